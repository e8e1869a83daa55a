package handler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/velvetlabs/amora/internal/mood"
	"github.com/velvetlabs/amora/internal/types"
)

type fakeRetention struct {
	state types.RetentionState
	ok    bool
}

func (f *fakeRetention) Retention(ctx context.Context, userID int64) (types.RetentionState, bool) {
	return f.state, f.ok
}

type fakeXP struct {
	total int
}

func (f *fakeXP) Total(ctx context.Context, userID int64) (int, error) {
	return f.total, nil
}

func TestIsStatusCommand(t *testing.T) {
	if !IsStatusCommand("/status") || !IsStatusCommand("  /status please") {
		t.Fatal("status command not recognized")
	}
	if IsStatusCommand("what's your status?") {
		t.Fatal("plain text must not trigger the command")
	}
}

func TestRenderStatus(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	moods := mood.NewService(0, nil, nil)
	moods.SetClock(func() time.Time { return now }, func() float64 { return 1 })

	status := NewStatus(&fakeRetention{
		state: types.RetentionState{Stage: types.StageIntimate, Streak: 9, MessageCount: 120},
		ok:    true,
	}, moods, &fakeXP{total: 150})

	got := status.Render(context.Background(), 1)
	for _, want := range []string{"stage: intimate", "streak: 9 days", "messages: 120", "xp: 150"} {
		if !strings.Contains(got, want) {
			t.Fatalf("status %q missing %q", got, want)
		}
	}
	if strings.Contains(got, "conflict:") {
		t.Fatalf("no conflict expected: %q", got)
	}
}

func TestRenderStatusDefaults(t *testing.T) {
	status := NewStatus(nil, nil, nil)
	got := status.Render(context.Background(), 1)
	if !strings.Contains(got, "stage: new") {
		t.Fatalf("default stage missing: %q", got)
	}
}
