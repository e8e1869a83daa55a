// Package mood owns per-user ephemeral mood decay and the conflict loop.
package mood

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/velvetlabs/amora/internal/cache"
	"github.com/velvetlabs/amora/internal/emotion"
	"github.com/velvetlabs/amora/internal/types"
)

const (
	moodStateKey     = "mood_state"
	conflictStateKey = "conflict_state"
)

// SessionStore is the durable key-value store behind the caches. Best-effort:
// write failures are logged and swallowed, read failures fall back to defaults.
type SessionStore interface {
	Get(ctx context.Context, userID int64, key string) (string, error)
	Set(ctx context.Context, userID int64, key, value string) error
}

// RewardSink credits users for relationship milestones. Fire-and-forget.
type RewardSink interface {
	Award(ctx context.Context, userID int64, reason string) error
}

// Service holds the bounded mood and conflict caches for all users.
// Construct once at process start and inject everywhere.
type Service struct {
	moods     *cache.Bounded[types.MoodState]
	conflicts *cache.Bounded[types.ConflictRecord]
	sessions  SessionStore
	rewards   RewardSink
	nowFunc   func() time.Time
	randFunc  func() float64
}

// NewService returns a mood service. sessions and rewards may be nil, in which
// case the caches run without durability or XP credit.
func NewService(capacity int, sessions SessionStore, rewards RewardSink) *Service {
	return &Service{
		moods:     cache.New[types.MoodState](capacity),
		conflicts: cache.New[types.ConflictRecord](capacity),
		sessions:  sessions,
		rewards:   rewards,
		nowFunc:   time.Now,
		randFunc:  rand.Float64,
	}
}

// SetClock injects a fixed clock and chance source for tests.
func (s *Service) SetClock(now func() time.Time, chance func() float64) {
	if now != nil {
		s.nowFunc = now
	}
	if chance != nil {
		s.randFunc = chance
	}
}

// Mood returns the current decayed mood for a user, reading through to the
// durable store on cache miss.
func (s *Service) Mood(ctx context.Context, userID int64) types.MoodState {
	now := s.nowFunc()
	state, ok := s.moods.Get(userID)
	if !ok {
		state = s.loadMood(ctx, userID, now)
	}
	return Decay(state, now)
}

// RecordMessage runs the per-message pipeline for one user: mood update,
// conflict trigger evaluation, then conflict message processing, in that
// order. Returns the updated conflict record for prompt construction.
func (s *Service) RecordMessage(ctx context.Context, userID int64, text string, cls emotion.Classification) types.ConflictRecord {
	now := s.nowFunc()

	state, ok := s.moods.Get(userID)
	if !ok {
		state = s.loadMood(ctx, userID, now)
	}

	hoursSince := now.Sub(state.LastInteractionAt).Hours()
	state = Apply(state, cls, now)

	// The upset flag is consumed exactly once, by trigger evaluation below.
	pendingUpset := state.PendingUpset
	state.PendingUpset = false

	record, haveRecord := s.conflicts.Get(userID)
	if !haveRecord {
		record = s.loadConflict(ctx, userID)
	}
	record = DecayResolved(record, now)

	var effects []Effect
	if record.State == types.ConflictNone {
		record = EvaluateTrigger(state, hoursSince, pendingUpset, s.randFunc(), now)
	} else {
		record, effects = ProcessMessage(record, text, now)
	}

	s.moods.Set(userID, state)
	s.conflicts.Set(userID, record)
	s.persist(ctx, userID, moodStateKey, state)
	s.persist(ctx, userID, conflictStateKey, record)
	s.dispatch(ctx, userID, effects)

	return record
}

// ConflictState returns the current conflict record, decaying an expired
// resolved record back to none.
func (s *Service) ConflictState(ctx context.Context, userID int64) types.ConflictRecord {
	now := s.nowFunc()
	record, ok := s.conflicts.Get(userID)
	if !ok {
		record = s.loadConflict(ctx, userID)
	}
	decayed := DecayResolved(record, now)
	if decayed.State != record.State {
		s.conflicts.Set(userID, decayed)
		s.persist(ctx, userID, conflictStateKey, decayed)
	}
	return decayed
}

// ConflictPromptModifier renders the behavioral directive for the user's
// active conflict, empty when there is none.
func (s *Service) ConflictPromptModifier(ctx context.Context, userID int64) string {
	return PromptModifier(s.ConflictState(ctx, userID))
}

// MoodInstruction renders the continuous-mood tone guideline.
func (s *Service) MoodInstruction(ctx context.Context, userID int64) string {
	return Instruction(s.Mood(ctx, userID))
}

func (s *Service) dispatch(ctx context.Context, userID int64, effects []Effect) {
	if s.rewards == nil {
		return
	}
	for _, effect := range effects {
		if effect.Kind != EffectAwardXP {
			continue
		}
		if err := s.rewards.Award(ctx, userID, effect.Reason); err != nil {
			slog.Warn("xp award failed", "user_id", userID, "reason", effect.Reason, "error", err.Error())
		}
	}
}

func (s *Service) persist(ctx context.Context, userID int64, key string, value any) {
	if s.sessions == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		slog.Warn("failed to encode session value", "key", key, "error", err.Error())
		return
	}
	if err := s.sessions.Set(ctx, userID, key, string(raw)); err != nil {
		slog.Warn("session write-through failed", "key", key, "user_id", userID, "error", err.Error())
	}
}

func (s *Service) loadMood(ctx context.Context, userID int64, now time.Time) types.MoodState {
	state := DefaultMoodState(now)
	if s.sessions == nil {
		return state
	}
	raw, err := s.sessions.Get(ctx, userID, moodStateKey)
	if err != nil {
		slog.Warn("session read failed", "key", moodStateKey, "user_id", userID, "error", err.Error())
		return state
	}
	if raw == "" {
		return state
	}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		slog.Warn("corrupt mood state, using default", "user_id", userID, "error", err.Error())
		return DefaultMoodState(now)
	}
	return state
}

func (s *Service) loadConflict(ctx context.Context, userID int64) types.ConflictRecord {
	record := types.ConflictRecord{State: types.ConflictNone}
	if s.sessions == nil {
		return record
	}
	raw, err := s.sessions.Get(ctx, userID, conflictStateKey)
	if err != nil {
		slog.Warn("session read failed", "key", conflictStateKey, "user_id", userID, "error", err.Error())
		return record
	}
	if raw == "" {
		return record
	}
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		slog.Warn("corrupt conflict state, using none", "user_id", userID, "error", err.Error())
		return types.ConflictRecord{State: types.ConflictNone}
	}
	return record
}
