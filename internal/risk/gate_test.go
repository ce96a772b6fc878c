package risk

import (
	"context"
	"testing"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/signal"
	"github.com/nitinkhare/algoTradingAgent/internal/storage"
)

func makeTestGate(store *memStore) *Gate {
	cfg := makeTestRiskConfig()
	cooldown := signal.NewCooldownMap(store)
	ignore := NewIgnoreList(store)
	limits := NewDailyLimits(store, cfg)
	return NewGate(store, cfg, 100000, ignore, limits, cooldown)
}

func TestGate_ApprovesCleanCandidate(t *testing.T) {
	store := newMemStore()
	gate := makeTestGate(store)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	decision, err := gate.Check(context.Background(), "AAPL", 80, 100, 3, 95, nil, now)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !decision.Approved {
		t.Fatalf("expected approval, got denial: %s", decision.Reason)
	}
	if decision.Size.Shares <= 0 {
		t.Error("expected positive share count")
	}
}

func TestGate_DeniesIgnoredTicker(t *testing.T) {
	store := newMemStore()
	gate := makeTestGate(store)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	if err := gate.ignore.Add(context.Background(), "AAPL", "REJECTED", now); err != nil {
		t.Fatalf("add to ignore: %v", err)
	}

	decision, err := gate.Check(context.Background(), "AAPL", 80, 100, 3, 95, nil, now)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision.Approved {
		t.Fatal("expected denial for ignored ticker")
	}
	if decision.Reason != "IGNORE_LIST" {
		t.Errorf("reason = %q, want IGNORE_LIST", decision.Reason)
	}
}

func TestGate_DeniesExistingPosition(t *testing.T) {
	store := newMemStore()
	store.positions["AAPL"] = &storage.PositionRecord{Ticker: "AAPL", Status: storage.PositionOpen, Quantity: 10, EntryPrice: 100}
	gate := makeTestGate(store)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	decision, err := gate.Check(context.Background(), "AAPL", 80, 100, 3, 95, nil, now)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision.Approved {
		t.Fatal("expected denial for duplicate position")
	}
	if decision.Reason != "POSITION_EXISTS" {
		t.Errorf("reason = %q, want POSITION_EXISTS", decision.Reason)
	}
}

func TestGate_DeniesAtMaxOpenPositions(t *testing.T) {
	store := newMemStore()
	cfg := makeTestRiskConfig()
	cfg.MaxOpenPositions = 1
	store.positions["MSFT"] = &storage.PositionRecord{Ticker: "MSFT", Status: storage.PositionOpen, Quantity: 10, EntryPrice: 100}
	cooldown := signal.NewCooldownMap(store)
	ignore := NewIgnoreList(store)
	limits := NewDailyLimits(store, cfg)
	gate := NewGate(store, cfg, 100000, ignore, limits, cooldown)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	decision, err := gate.Check(context.Background(), "AAPL", 80, 100, 3, 95, nil, now)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision.Approved {
		t.Fatal("expected denial at max open positions")
	}
	if decision.Reason != "MAX_OPEN_POSITIONS" {
		t.Errorf("reason = %q, want MAX_OPEN_POSITIONS", decision.Reason)
	}
}

func TestGate_AvailableCapitalSubtractsDeployed(t *testing.T) {
	store := newMemStore()
	store.positions["MSFT"] = &storage.PositionRecord{Ticker: "MSFT", Status: storage.PositionOpen, Quantity: 100, EntryPrice: 200}
	gate := makeTestGate(store)

	available, err := gate.AvailableCapital(context.Background())
	if err != nil {
		t.Fatalf("available capital: %v", err)
	}
	if want := 100000.0 - 20000.0; available != want {
		t.Errorf("available capital = %v, want %v", available, want)
	}
}

func TestGate_DeniesOnCooldown(t *testing.T) {
	store := newMemStore()
	gate := makeTestGate(store)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	if err := gate.cooldown.SetCooldown(context.Background(), "AAPL", "STOP_LOSS", now); err != nil {
		t.Fatalf("set cooldown: %v", err)
	}

	decision, err := gate.Check(context.Background(), "AAPL", 80, 100, 3, 95, nil, now)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision.Approved {
		t.Fatal("expected denial while on cooldown")
	}
	if decision.Reason != "COOLDOWN" {
		t.Errorf("reason = %q, want COOLDOWN", decision.Reason)
	}
}
