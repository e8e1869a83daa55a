package storage

import (
	"context"
	"fmt"
	"testing"
)

type memSessionStore struct {
	values map[string]string
}

func (m *memSessionStore) Get(ctx context.Context, userID int64, key string) (string, error) {
	return m.values[fmt.Sprintf("%d/%s", userID, key)], nil
}

func (m *memSessionStore) Set(ctx context.Context, userID int64, key, value string) error {
	m.values[fmt.Sprintf("%d/%s", userID, key)] = value
	return nil
}

func TestAwardAccumulates(t *testing.T) {
	ctx := context.Background()
	ledger := NewXPLedger(&memSessionStore{values: make(map[string]string)})

	if err := ledger.Award(ctx, 1, "conflict_resolved"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ledger.Award(ctx, 1, "daily_checkin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total, err := ledger.Total(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 60 {
		t.Fatalf("got %d, want 60", total)
	}
}

func TestTotalCorruptValueResets(t *testing.T) {
	ctx := context.Background()
	store := &memSessionStore{values: map[string]string{"1/xp_total": "not-a-number"}}
	ledger := NewXPLedger(store)

	total, err := ledger.Total(ctx, 1)
	if err != nil || total != 0 {
		t.Fatalf("got %d, %v; want 0, nil", total, err)
	}
}

func TestAwardWithoutStore(t *testing.T) {
	ledger := NewXPLedger(nil)
	if err := ledger.Award(context.Background(), 1, "x"); err == nil {
		t.Fatal("expected error without a session store")
	}
}
