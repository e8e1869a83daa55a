// Package storage adapts repositories to the service-layer interfaces.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

const xpKey = "xp_total"

// SessionStore is the key-value surface the ledger persists through.
type SessionStore interface {
	Get(ctx context.Context, userID int64, key string) (string, error)
	Set(ctx context.Context, userID int64, key, value string) error
}

// XPLedger accumulates experience awards per user. Implements mood.RewardSink.
type XPLedger struct {
	sessions SessionStore
}

// NewXPLedger returns an XPLedger.
func NewXPLedger(sessions SessionStore) *XPLedger {
	return &XPLedger{sessions: sessions}
}

// Award credits the user for the given reason.
func (l *XPLedger) Award(ctx context.Context, userID int64, reason string) error {
	if l.sessions == nil {
		return fmt.Errorf("session store not configured")
	}

	total, err := l.Total(ctx, userID)
	if err != nil {
		return err
	}
	amount := xpForReason(reason)
	total += amount

	if err := l.sessions.Set(ctx, userID, xpKey, strconv.Itoa(total)); err != nil {
		return fmt.Errorf("failed to save xp total: %w", err)
	}
	slog.Info("xp awarded", "user_id", userID, "reason", reason, "amount", amount, "total", total)
	return nil
}

// Total returns the user's accumulated XP.
func (l *XPLedger) Total(ctx context.Context, userID int64) (int, error) {
	if l.sessions == nil {
		return 0, fmt.Errorf("session store not configured")
	}
	raw, err := l.sessions.Get(ctx, userID, xpKey)
	if err != nil {
		return 0, fmt.Errorf("failed to load xp total: %w", err)
	}
	if raw == "" {
		return 0, nil
	}
	total, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("corrupt xp total, resetting", "user_id", userID, "value", raw)
		return 0, nil
	}
	return total, nil
}

func xpForReason(reason string) int {
	switch reason {
	case "conflict_resolved":
		return 50
	default:
		return 10
	}
}
