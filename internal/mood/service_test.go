package mood

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/velvetlabs/amora/internal/emotion"
	"github.com/velvetlabs/amora/internal/types"
)

type fakeSessionStore struct {
	values   map[string]string
	failSets bool
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{values: make(map[string]string)}
}

func (f *fakeSessionStore) Get(_ context.Context, userID int64, key string) (string, error) {
	return f.values[fmt.Sprintf("%d/%s", userID, key)], nil
}

func (f *fakeSessionStore) Set(_ context.Context, userID int64, key, value string) error {
	if f.failSets {
		return fmt.Errorf("store unreachable")
	}
	f.values[fmt.Sprintf("%d/%s", userID, key)] = value
	return nil
}

type fakeRewardSink struct {
	awards []string
}

func (f *fakeRewardSink) Award(_ context.Context, userID int64, reason string) error {
	f.awards = append(f.awards, reason)
	return nil
}

func newTestService(sessions SessionStore, rewards RewardSink, now time.Time) *Service {
	s := NewService(10, sessions, rewards)
	s.SetClock(func() time.Time { return now }, func() float64 { return 0.99 })
	return s
}

func TestRecordMessageTriggersNeglectAfterSilence(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	store := newFakeSessionStore()
	s := newTestService(store, nil, now.Add(-30*time.Hour))

	// A first message establishes LastInteractionAt, then 30h pass.
	s.RecordMessage(context.Background(), 42, "hey", emotion.Neutral())
	s.SetClock(func() time.Time { return now }, nil)

	record := s.RecordMessage(context.Background(), 42, "hi again", emotion.Neutral())

	if record.State != types.ConflictTriggered || record.Reason != types.ReasonNeglectMild {
		t.Fatalf("expected mild neglect conflict, got %#v", record)
	}
}

func TestPendingUpsetConsumedOnce(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	s := newTestService(newFakeSessionStore(), nil, now.Add(-30*time.Hour))
	s.RecordMessage(context.Background(), 7, "hey", emotion.Neutral())
	s.SetClock(func() time.Time { return now }, nil)

	first := s.RecordMessage(context.Background(), 7, "hi", emotion.Neutral())
	if first.State != types.ConflictTriggered {
		t.Fatalf("expected trigger on first message back, got %#v", first)
	}

	// Resolve, let the linger pass, then check the flag does not re-trigger.
	s.RecordMessage(context.Background(), 7, "i love you", emotion.Neutral())
	s.SetClock(func() time.Time { return now.Add(20 * time.Minute) }, nil)

	record := s.RecordMessage(context.Background(), 7, "what's up", emotion.Neutral())
	if record.State != types.ConflictNone {
		t.Fatalf("consumed upset flag must not trigger again, got %#v", record)
	}
}

func TestResolutionAwardsXPOnce(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	rewards := &fakeRewardSink{}
	s := newTestService(newFakeSessionStore(), rewards, now)

	// Seed an active conflict directly.
	s.conflicts.Set(9, types.ConflictRecord{State: types.ConflictTriggered, Reason: types.ReasonJealousyMild})

	s.RecordMessage(context.Background(), 9, "i love you so much", emotion.Neutral())
	s.RecordMessage(context.Background(), 9, "you're amazing", emotion.Neutral())

	if len(rewards.awards) != 1 || rewards.awards[0] != "conflict_resolved" {
		t.Fatalf("expected exactly one award, got %#v", rewards.awards)
	}
}

func TestWriteThroughFailureIsSwallowed(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	store := newFakeSessionStore()
	store.failSets = true
	s := newTestService(store, nil, now)

	record := s.RecordMessage(context.Background(), 3, "hello", emotion.Neutral())
	if record.State != types.ConflictNone {
		t.Fatalf("pipeline must survive store failures, got %#v", record)
	}
}

func TestReadThroughOnCacheMiss(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	store := newFakeSessionStore()

	warm := newTestService(store, nil, now)
	warm.conflicts.Set(5, types.ConflictRecord{State: types.ConflictEscalating, EscalationCount: 3})
	warm.persist(context.Background(), 5, conflictStateKey, types.ConflictRecord{State: types.ConflictEscalating, EscalationCount: 3})

	cold := newTestService(store, nil, now)
	record := cold.ConflictState(context.Background(), 5)
	if record.State != types.ConflictEscalating || record.EscalationCount != 3 {
		t.Fatalf("expected read-through from durable store, got %#v", record)
	}
}

