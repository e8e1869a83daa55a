// Package scheduler decides when a silent user should receive unprompted
// outreach, based on inferred timezone, quiet hours, and response history.
package scheduler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/velvetlabs/amora/internal/cache"
	"github.com/velvetlabs/amora/internal/types"
)

const (
	timezoneKey     = "timezone"
	quietHoursKey   = "quiet_hours"
	sendHistoryKey  = "proactive_history"
	sendHistoryCap  = 20
	userCacheCap    = 5000
	historyMsgLimit = 20
)

// MessageSource supplies recent conversation turns, newest-last.
type MessageSource interface {
	RecentMessages(ctx context.Context, userID int64, limit int) ([]types.ConversationTurn, error)
}

// SessionStore is the advisory durable key-value store.
type SessionStore interface {
	Get(ctx context.Context, userID int64, key string) (string, error)
	Set(ctx context.Context, userID int64, key, value string) error
}

// RetentionSource exposes the user's retention state for stage-aware cadence
// and the engagement score.
type RetentionSource interface {
	Retention(ctx context.Context, userID int64) (types.RetentionState, bool)
}

// Service owns the per-user proactive send history and timezone inference
// results. Construct once and inject.
type Service struct {
	messages  MessageSource
	sessions  SessionStore
	retention RetentionSource

	history   *cache.Bounded[[]types.ProactiveSendEvent]
	timezones *cache.Bounded[int]
	nowFunc   func() time.Time
}

// NewService returns a scheduler service. sessions may be nil (no
// durability); retention may be nil (no stage cadence).
func NewService(messages MessageSource, sessions SessionStore, retention RetentionSource) *Service {
	return &Service{
		messages:  messages,
		sessions:  sessions,
		retention: retention,
		history:   cache.New[[]types.ProactiveSendEvent](userCacheCap),
		timezones: cache.New[int](userCacheCap),
		nowFunc:   time.Now,
	}
}

// SetClock injects a fixed clock for tests.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.nowFunc = now
	}
}

// OffsetFor returns the user's UTC offset in minutes, inferring and
// persisting it on first use.
func (s *Service) OffsetFor(ctx context.Context, userID int64) int {
	if offset, ok := s.timezones.Get(userID); ok {
		return offset
	}
	if s.sessions != nil {
		if raw, err := s.sessions.Get(ctx, userID, timezoneKey); err == nil && raw != "" {
			offset := ParseOffset(raw)
			s.timezones.Set(userID, offset)
			return offset
		}
	}

	offset := 0
	if s.messages != nil {
		turns, err := s.messages.RecentMessages(ctx, userID, historyMsgLimit)
		if err != nil {
			slog.Warn("failed to load messages for timezone inference", "user_id", userID, "error", err.Error())
		} else {
			offset = DetectOffsetMinutes(timestampsOf(turns))
		}
	}
	s.timezones.Set(userID, offset)
	s.persist(ctx, userID, timezoneKey, FormatOffset(offset))
	return offset
}

// Timezone returns the inferred timezone label, e.g. "UTC-5".
func (s *Service) Timezone(ctx context.Context, userID int64) string {
	return FormatOffset(s.OffsetFor(ctx, userID))
}

// QuietHoursFor returns the user's configured quiet hours or the default.
func (s *Service) QuietHoursFor(ctx context.Context, userID int64) QuietHours {
	quiet := DefaultQuietHours()
	if s.sessions == nil {
		return quiet
	}
	raw, err := s.sessions.Get(ctx, userID, quietHoursKey)
	if err != nil || raw == "" {
		return quiet
	}
	if err := json.Unmarshal([]byte(raw), &quiet); err != nil {
		slog.Warn("corrupt quiet hours, using default", "user_id", userID, "error", err.Error())
		return DefaultQuietHours()
	}
	return quiet
}

// SetQuietHours stores a per-user quiet hours window.
func (s *Service) SetQuietHours(ctx context.Context, userID int64, quiet QuietHours) {
	raw, err := json.Marshal(quiet)
	if err != nil {
		return
	}
	s.persist(ctx, userID, quietHoursKey, string(raw))
}

// ShouldSendProactive decides whether a message of msgType may go out right
// now: quiet hours first, then the throttle rules, then stage-aware cadence.
func (s *Service) ShouldSendProactive(ctx context.Context, userID int64, msgType types.ProactiveType, lastSentAt time.Time) bool {
	now := s.nowFunc()

	offset := s.OffsetFor(ctx, userID)
	if s.QuietHoursFor(ctx, userID).Contains(localHour(now, offset)) {
		return false
	}

	if ShouldThrottle(s.sendHistory(ctx, userID), msgType, now) {
		return false
	}

	if !lastSentAt.IsZero() && now.Sub(lastSentAt) < s.stageCadence(ctx, userID) {
		return false
	}
	return true
}

// BestLocalHourFor returns the best local hour to schedule msgType for the
// user.
func (s *Service) BestLocalHourFor(ctx context.Context, userID int64, msgType types.ProactiveType) int {
	offset := s.OffsetFor(ctx, userID)
	quiet := s.QuietHoursFor(ctx, userID)

	var stamps []time.Time
	if s.messages != nil {
		if turns, err := s.messages.RecentMessages(ctx, userID, historyMsgLimit); err == nil {
			stamps = timestampsOf(turns)
		}
	}
	return BestLocalHour(stamps, offset, msgType, quiet)
}

// RecordSend appends a proactive send to the rolling history.
func (s *Service) RecordSend(ctx context.Context, userID int64, msgType types.ProactiveType) {
	events := s.sendHistory(ctx, userID)
	events = append(events, types.ProactiveSendEvent{SentAt: s.nowFunc(), MessageType: msgType})
	if len(events) > sendHistoryCap {
		events = events[len(events)-sendHistoryCap:]
	}
	s.storeHistory(ctx, userID, events)
}

// RecordResponse marks the most recent unanswered send as responded. Call on
// every inbound user message; a no-op when nothing is pending.
func (s *Service) RecordResponse(ctx context.Context, userID int64) {
	events := s.sendHistory(ctx, userID)
	if len(events) == 0 {
		return
	}
	last := &events[len(events)-1]
	if last.RespondedAt != nil {
		return
	}
	at := s.nowFunc()
	last.RespondedAt = &at
	s.storeHistory(ctx, userID, events)
}

// Engagement computes the composite engagement score for the user.
func (s *Service) Engagement(ctx context.Context, userID int64) float64 {
	events := s.sendHistory(ctx, userID)

	avgLen := 0.0
	if s.messages != nil {
		if turns, err := s.messages.RecentMessages(ctx, userID, historyMsgLimit); err == nil {
			total, count := 0, 0
			for _, turn := range turns {
				if turn.Role == types.RoleUser {
					total += len(turn.Content)
					count++
				}
			}
			if count > 0 {
				avgLen = float64(total) / float64(count)
			}
		}
	}

	streak := 0
	if s.retention != nil {
		if state, ok := s.retention.Retention(ctx, userID); ok {
			streak = state.Streak
		}
	}
	return EngagementScore(events, avgLen, streak)
}

// stageCadence is the minimum gap between proactive sends per relationship
// stage; closer relationships tolerate more frequent outreach.
func (s *Service) stageCadence(ctx context.Context, userID int64) time.Duration {
	stage := types.StageNew
	if s.retention != nil {
		if state, ok := s.retention.Retention(ctx, userID); ok {
			stage = state.Stage
		}
	}
	switch stage {
	case types.StageObsessed:
		return 4 * time.Hour
	case types.StageIntimate:
		return 8 * time.Hour
	case types.StageComfortable:
		return 12 * time.Hour
	default:
		return 24 * time.Hour
	}
}

func (s *Service) sendHistory(ctx context.Context, userID int64) []types.ProactiveSendEvent {
	if events, ok := s.history.Get(userID); ok {
		return events
	}
	var events []types.ProactiveSendEvent
	if s.sessions != nil {
		raw, err := s.sessions.Get(ctx, userID, sendHistoryKey)
		if err == nil && raw != "" {
			if err := json.Unmarshal([]byte(raw), &events); err != nil {
				slog.Warn("corrupt send history, starting empty", "user_id", userID, "error", err.Error())
				events = nil
			}
		}
	}
	s.history.Set(userID, events)
	return events
}

func (s *Service) storeHistory(ctx context.Context, userID int64, events []types.ProactiveSendEvent) {
	s.history.Set(userID, events)
	raw, err := json.Marshal(events)
	if err != nil {
		return
	}
	s.persist(ctx, userID, sendHistoryKey, string(raw))
}

func (s *Service) persist(ctx context.Context, userID int64, key, value string) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.Set(ctx, userID, key, value); err != nil {
		slog.Warn("session write-through failed", "key", key, "user_id", userID, "error", err.Error())
	}
}

func timestampsOf(turns []types.ConversationTurn) []time.Time {
	stamps := make([]time.Time, 0, len(turns))
	for _, turn := range turns {
		if turn.Role == types.RoleUser && !turn.Timestamp.IsZero() {
			stamps = append(stamps, turn.Timestamp)
		}
	}
	return stamps
}
