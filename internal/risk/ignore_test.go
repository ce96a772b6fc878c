package risk

import (
	"context"
	"testing"
	"time"
)

func TestIgnoreList_BackoffEscalates(t *testing.T) {
	store := newMemStore()
	list := NewIgnoreList(store)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	if err := list.Add(ctx, "AAPL", "REJECTED", now); err != nil {
		t.Fatalf("add: %v", err)
	}
	entry := store.ignore["AAPL"]
	if got, want := entry.IgnoredUntil.Sub(now), time.Hour; got != want {
		t.Errorf("level-1 backoff = %v, want %v", got, want)
	}

	if err := list.Add(ctx, "AAPL", "REJECTED", now); err != nil {
		t.Fatalf("add: %v", err)
	}
	entry = store.ignore["AAPL"]
	if got, want := entry.IgnoredUntil.Sub(now), 4*time.Hour; got != want {
		t.Errorf("level-2 backoff = %v, want %v", got, want)
	}
}

func TestIgnoreList_BackoffCapsAtLevel4(t *testing.T) {
	store := newMemStore()
	list := NewIgnoreList(store)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		if err := list.Add(ctx, "AAPL", "REJECTED", now); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	entry := store.ignore["AAPL"]
	if got, want := entry.IgnoredUntil.Sub(now), 7*24*time.Hour; got != want {
		t.Errorf("capped backoff = %v, want %v", got, want)
	}
}

func TestIgnoreList_IsIgnored(t *testing.T) {
	store := newMemStore()
	list := NewIgnoreList(store)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	ignored, err := list.IsIgnored(ctx, "AAPL", now)
	if err != nil {
		t.Fatalf("is ignored: %v", err)
	}
	if ignored {
		t.Fatal("expected not ignored before any strikes")
	}

	if err := list.Add(ctx, "AAPL", "REJECTED", now); err != nil {
		t.Fatalf("add: %v", err)
	}
	ignored, err = list.IsIgnored(ctx, "AAPL", now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("is ignored: %v", err)
	}
	if !ignored {
		t.Fatal("expected ignored within backoff window")
	}

	ignored, err = list.IsIgnored(ctx, "AAPL", now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("is ignored: %v", err)
	}
	if ignored {
		t.Fatal("expected not ignored after backoff window elapses")
	}
}

func TestIgnoreList_Reset(t *testing.T) {
	store := newMemStore()
	list := NewIgnoreList(store)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	if err := list.Add(ctx, "AAPL", "REJECTED", now); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := list.Reset(ctx, "AAPL", now); err != nil {
		t.Fatalf("reset: %v", err)
	}
	ignored, err := list.IsIgnored(ctx, "AAPL", now)
	if err != nil {
		t.Fatalf("is ignored: %v", err)
	}
	if ignored {
		t.Fatal("expected not ignored after reset")
	}
}
