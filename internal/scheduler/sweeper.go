package scheduler

import (
	"context"
	"log/slog"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/velvetlabs/amora/internal/types"
)

// UserLister enumerates users eligible for proactive outreach.
type UserLister interface {
	ActiveUserIDs(ctx context.Context) ([]int64, error)
}

// Sender delivers a proactive message of the given type to a user.
type Sender interface {
	SendProactive(ctx context.Context, userID int64, msgType types.ProactiveType) error
}

// Sweeper periodically walks the active users and dispatches whatever
// proactive message the scheduler approves for each.
type Sweeper struct {
	service *Service
	users   UserLister
	sender  Sender
	cron    *rcron.Cron
	spec    string
}

// NewSweeper returns a sweeper running on the given cron spec (with seconds
// field); empty spec defaults to every 30 minutes.
func NewSweeper(service *Service, users UserLister, sender Sender, spec string) *Sweeper {
	if spec == "" {
		spec = "0 */30 * * * *"
	}
	return &Sweeper{service: service, users: users, sender: sender, spec: spec}
}

// Start registers the sweep job and starts the cron loop.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = rcron.New(rcron.WithSeconds())
	if _, err := s.cron.AddFunc(s.spec, func() { s.Sweep(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("proactive sweeper started", "spec", s.spec)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the cron loop.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Sweep runs one pass over all active users.
func (s *Sweeper) Sweep(ctx context.Context) {
	userIDs, err := s.users.ActiveUserIDs(ctx)
	if err != nil {
		slog.Warn("sweep aborted, cannot list users", "error", err.Error())
		return
	}

	sent := 0
	for _, userID := range userIDs {
		if s.sweepUser(ctx, userID) {
			sent++
		}
	}
	slog.Info("proactive sweep done", "users", len(userIDs), "sent", sent)
}

func (s *Sweeper) sweepUser(ctx context.Context, userID int64) bool {
	offset := s.service.OffsetFor(ctx, userID)
	hour := localHour(s.service.nowFunc(), offset)

	msgType, ok := candidateType(hour)
	if !ok {
		return false
	}

	events := s.service.sendHistory(ctx, userID)
	lastSentAt := time.Time{}
	if last := lastSend(events); last != nil {
		lastSentAt = last.SentAt
	}

	if !s.service.ShouldSendProactive(ctx, userID, msgType, lastSentAt) {
		return false
	}
	if err := s.sender.SendProactive(ctx, userID, msgType); err != nil {
		slog.Warn("proactive send failed", "user_id", userID, "type", msgType, "error", err.Error())
		return false
	}
	s.service.RecordSend(ctx, userID, msgType)
	return true
}

// candidateType maps the user's local hour to the message type that fits it.
func candidateType(localHour int) (types.ProactiveType, bool) {
	switch {
	case localHour >= 8 && localHour < 11:
		return types.ProactiveMorning, true
	case localHour >= 13 && localHour < 17:
		return types.ProactiveThinking, true
	case localHour >= 18 && localHour < 21:
		return types.ProactivePhoto, true
	case localHour >= 21 && localHour < 23:
		return types.ProactiveGoodnight, true
	default:
		return "", false
	}
}
