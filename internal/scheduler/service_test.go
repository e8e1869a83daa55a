package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/velvetlabs/amora/internal/types"
)

type fakeMessageSource struct {
	turns []types.ConversationTurn
}

func (f *fakeMessageSource) RecentMessages(ctx context.Context, userID int64, limit int) ([]types.ConversationTurn, error) {
	return f.turns, nil
}

type fakeSessionStore struct {
	values map[string]string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{values: make(map[string]string)}
}

func (f *fakeSessionStore) Get(ctx context.Context, userID int64, key string) (string, error) {
	return f.values[fmt.Sprintf("%d/%s", userID, key)], nil
}

func (f *fakeSessionStore) Set(ctx context.Context, userID int64, key, value string) error {
	f.values[fmt.Sprintf("%d/%s", userID, key)] = value
	return nil
}

type fakeRetentionSource struct {
	state types.RetentionState
	ok    bool
}

func (f *fakeRetentionSource) Retention(ctx context.Context, userID int64) (types.RetentionState, bool) {
	return f.state, f.ok
}

func userTurnsAt(stamps []time.Time) []types.ConversationTurn {
	var turns []types.ConversationTurn
	for i, ts := range stamps {
		turns = append(turns, types.ConversationTurn{
			Role:      types.RoleUser,
			Content:   fmt.Sprintf("message %d", i),
			Timestamp: ts,
		})
	}
	return turns
}

func serviceAt(t *testing.T, now time.Time, msgs MessageSource, sessions SessionStore, retention RetentionSource) *Service {
	t.Helper()
	svc := NewService(msgs, sessions, retention)
	svc.SetClock(func() time.Time { return now })
	return svc
}

func TestOffsetForInfersAndPersists(t *testing.T) {
	ctx := context.Background()
	sessions := newFakeSessionStore()
	hours := []int{10, 21}
	for len(hours) < 20 {
		hours = append(hours, 14)
	}
	msgs := &fakeMessageSource{turns: userTurnsAt(stampsAtLocalHours(-300, hours))}
	svc := serviceAt(t, time.Now(), msgs, sessions, nil)

	if got := svc.OffsetFor(ctx, 7); got != -300 {
		t.Fatalf("inferred offset: got %d, want -300", got)
	}
	if got := sessions.values["7/timezone"]; got != "UTC-5" {
		t.Fatalf("persisted timezone: got %q, want UTC-5", got)
	}

	// A fresh service with no message source must read the stored value back.
	svc2 := serviceAt(t, time.Now(), nil, sessions, nil)
	if got := svc2.OffsetFor(ctx, 7); got != -300 {
		t.Fatalf("offset from session store: got %d, want -300", got)
	}
}

func TestShouldSendProactiveQuietHours(t *testing.T) {
	ctx := context.Background()
	// 03:00 UTC with offset 0 is deep in default quiet hours.
	now := time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC)
	svc := serviceAt(t, now, nil, nil, nil)

	if svc.ShouldSendProactive(ctx, 1, types.ProactiveMorning, time.Time{}) {
		t.Fatal("quiet hours must block sends")
	}
}

func TestShouldSendProactiveStageCadence(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 15, 0, 0, 0, time.UTC)
	retention := &fakeRetentionSource{state: types.RetentionState{Stage: types.StageObsessed}, ok: true}
	svc := serviceAt(t, now, nil, nil, retention)

	// Obsessed cadence is 4h: a send 3h ago blocks, 5h ago does not.
	if svc.ShouldSendProactive(ctx, 1, types.ProactiveThinking, now.Add(-3*time.Hour)) {
		t.Fatal("within the stage cadence, must not send")
	}
	if !svc.ShouldSendProactive(ctx, 1, types.ProactiveThinking, now.Add(-5*time.Hour)) {
		t.Fatal("past the stage cadence, may send")
	}

	// A new-stage user waits a full day.
	retention.state.Stage = types.StageNew
	if svc.ShouldSendProactive(ctx, 1, types.ProactiveThinking, now.Add(-5*time.Hour)) {
		t.Fatal("new stage needs a 24h gap")
	}
}

func TestRecordSendAndResponseRoundTrip(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 15, 0, 0, 0, time.UTC)
	sessions := newFakeSessionStore()
	svc := serviceAt(t, now, nil, sessions, nil)

	svc.RecordSend(ctx, 3, types.ProactiveThinking)
	svc.SetClock(func() time.Time { return now.Add(2 * time.Minute) })
	svc.RecordResponse(ctx, 3)

	events := svc.sendHistory(ctx, 3)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].RespondedAt == nil {
		t.Fatal("send not marked answered")
	}
	if got := events[0].RespondedAt.Sub(events[0].SentAt); got != 2*time.Minute {
		t.Fatalf("response delay: got %v, want 2m", got)
	}

	// Second response with nothing pending is a no-op.
	svc.SetClock(func() time.Time { return now.Add(time.Hour) })
	svc.RecordResponse(ctx, 3)
	events = svc.sendHistory(ctx, 3)
	if got := events[0].RespondedAt.Sub(events[0].SentAt); got != 2*time.Minute {
		t.Fatalf("response time must not move: got %v", got)
	}

	// History survives a restart through the session store.
	svc2 := serviceAt(t, now.Add(time.Hour), nil, sessions, nil)
	if got := len(svc2.sendHistory(ctx, 3)); got != 1 {
		t.Fatalf("history after reload: got %d events, want 1", got)
	}
}

func TestRecordResponseOnlyMarksLatestSend(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 15, 0, 0, 0, time.UTC)
	svc := serviceAt(t, now, nil, newFakeSessionStore(), nil)

	svc.RecordSend(ctx, 3, types.ProactiveMorning)
	svc.SetClock(func() time.Time { return now.Add(4 * time.Hour) })
	svc.RecordSend(ctx, 3, types.ProactiveThinking)
	svc.SetClock(func() time.Time { return now.Add(4*time.Hour + time.Minute) })
	svc.RecordResponse(ctx, 3)

	events := svc.sendHistory(ctx, 3)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].RespondedAt != nil {
		t.Fatalf("older send must stay unanswered, got %#v", events[0])
	}
	if events[1].RespondedAt == nil {
		t.Fatal("latest send not marked answered")
	}

	// Another response does not reach back to the older unanswered send.
	svc.RecordResponse(ctx, 3)
	events = svc.sendHistory(ctx, 3)
	if events[0].RespondedAt != nil {
		t.Fatalf("older send must stay unanswered, got %#v", events[0])
	}
}

func TestRecordSendCapsHistory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 15, 0, 0, 0, time.UTC)
	svc := serviceAt(t, now, nil, nil, nil)

	for i := 0; i < sendHistoryCap+10; i++ {
		svc.SetClock(func() time.Time { return now.Add(time.Duration(i) * time.Hour) })
		svc.RecordSend(ctx, 4, types.ProactiveMorning)
	}
	events := svc.sendHistory(ctx, 4)
	if len(events) != sendHistoryCap {
		t.Fatalf("got %d events, want %d", len(events), sendHistoryCap)
	}
	wantNewest := now.Add(time.Duration(sendHistoryCap+9) * time.Hour)
	if !events[len(events)-1].SentAt.Equal(wantNewest) {
		t.Fatalf("cap must drop the oldest entries, newest is %v", events[len(events)-1].SentAt)
	}
}

func TestFastResponderBeatsRecentSend(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 15, 0, 0, 0, time.UTC)
	svc := serviceAt(t, now.Add(-3*time.Hour), nil, nil, nil)

	svc.RecordSend(ctx, 5, types.ProactiveThinking)
	svc.SetClock(func() time.Time { return now.Add(-3*time.Hour + 2*time.Minute) })
	svc.RecordResponse(ctx, 5)

	svc.SetClock(func() time.Time { return now })
	if !svc.ShouldSendProactive(ctx, 5, types.ProactiveThinking, time.Time{}) {
		t.Fatal("fast responder answered 2 minutes after a send 3h ago, must not throttle")
	}
}

func TestEngagementUsesLengthAndStreak(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 15, 0, 0, 0, time.UTC)
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	msgs := &fakeMessageSource{turns: []types.ConversationTurn{
		{Role: types.RoleUser, Content: string(long), Timestamp: now},
		{Role: types.RoleAssistant, Content: "short", Timestamp: now},
	}}
	retention := &fakeRetentionSource{state: types.RetentionState{Streak: 20}, ok: true}
	svc := serviceAt(t, now, msgs, nil, retention)

	// No send history: only the saturated length and streak terms remain.
	if got := svc.Engagement(ctx, 9); got != messageLenWeight+streakWeight {
		t.Fatalf("engagement: got %v, want %v", got, messageLenWeight+streakWeight)
	}
}

func TestSetQuietHoursRoundTrip(t *testing.T) {
	ctx := context.Background()
	sessions := newFakeSessionStore()
	svc := serviceAt(t, time.Now(), nil, sessions, nil)

	svc.SetQuietHours(ctx, 2, QuietHours{StartHour: 0, EndHour: 6})
	got := svc.QuietHoursFor(ctx, 2)
	if got.StartHour != 0 || got.EndHour != 6 {
		t.Fatalf("quiet hours round trip: got %+v", got)
	}
}
