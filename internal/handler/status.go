// Package handler implements chat commands.
package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/velvetlabs/amora/internal/mood"
	"github.com/velvetlabs/amora/internal/types"
)

// RetentionSource exposes retention state for the status line.
type RetentionSource interface {
	Retention(ctx context.Context, userID int64) (types.RetentionState, bool)
}

// XPSource exposes the accumulated XP total.
type XPSource interface {
	Total(ctx context.Context, userID int64) (int, error)
}

// Status renders the /status command reply.
type Status struct {
	retention RetentionSource
	moods     *mood.Service
	xp        XPSource
}

// NewStatus returns a Status handler.
func NewStatus(retention RetentionSource, moods *mood.Service, xp XPSource) *Status {
	return &Status{retention: retention, moods: moods, xp: xp}
}

// IsStatusCommand reports whether the message invokes the status command.
func IsStatusCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/status")
}

// Render builds the status reply for a user.
func (s *Status) Render(ctx context.Context, userID int64) string {
	var b strings.Builder

	state := types.RetentionState{Stage: types.StageNew}
	if s.retention != nil {
		if loaded, ok := s.retention.Retention(ctx, userID); ok {
			state = loaded
		}
	}
	fmt.Fprintf(&b, "stage: %s\n", state.Stage)
	fmt.Fprintf(&b, "streak: %d days\n", state.Streak)
	fmt.Fprintf(&b, "messages: %d\n", state.MessageCount)

	if s.moods != nil {
		moodState := s.moods.Mood(ctx, userID)
		fmt.Fprintf(&b, "happiness: %.0f/100\n", moodState.BaseHappiness)
		fmt.Fprintf(&b, "affection: %.0f/100\n", moodState.AffectionLevel)
		if conflict := s.moods.ConflictState(ctx, userID); conflict.State != types.ConflictNone {
			fmt.Fprintf(&b, "conflict: %s (%s)\n", conflict.State, conflict.Reason)
		}
	}

	if s.xp != nil {
		if total, err := s.xp.Total(ctx, userID); err == nil {
			fmt.Fprintf(&b, "xp: %d\n", total)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
