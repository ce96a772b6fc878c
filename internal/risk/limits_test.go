package risk

import (
	"context"
	"testing"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/config"
	"github.com/nitinkhare/algoTradingAgent/internal/storage"
)

func makeTestRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		MaxRiskPerTradePct:      1.0,
		MaxOpenPositions:        5,
		MaxDailyLossPct:         3.0,
		MaxCapitalDeploymentPct: 80.0,
		MaxPerTrade:             10000,
		RiskPerTradePct:         1.0,
		DailyLossLimit:          5000,
		DailyProfitCap:          8000,
	}
}

func TestDailyLimits_AllowsWithinBand(t *testing.T) {
	store := newMemStore()
	store.realized = -1000
	limits := NewDailyLimits(store, makeTestRiskConfig())

	allowed, reason, err := limits.Check(context.Background(), nil, time.Now())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !allowed {
		t.Errorf("expected allowed, got denied with reason %q", reason)
	}
}

func TestDailyLimits_DeniesPastLossLimit(t *testing.T) {
	store := newMemStore()
	store.realized = -6000
	limits := NewDailyLimits(store, makeTestRiskConfig())

	allowed, reason, err := limits.Check(context.Background(), nil, time.Now())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if allowed {
		t.Fatal("expected denial past daily loss limit")
	}
	if reason != "DAILY_LOSS_LIMIT" {
		t.Errorf("reason = %q, want DAILY_LOSS_LIMIT", reason)
	}
}

func TestDailyLimits_DeniesPastProfitCap(t *testing.T) {
	store := newMemStore()
	store.realized = 9000
	limits := NewDailyLimits(store, makeTestRiskConfig())

	allowed, reason, err := limits.Check(context.Background(), nil, time.Now())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if allowed {
		t.Fatal("expected denial past daily profit cap")
	}
	if reason != "DAILY_PROFIT_CAP" {
		t.Errorf("reason = %q, want DAILY_PROFIT_CAP", reason)
	}
}

func TestDailyLimits_IncludesUnrealizedPnL(t *testing.T) {
	store := newMemStore()
	store.realized = -4000
	store.positions["AAPL"] = &storage.PositionRecord{
		Ticker:     "AAPL",
		Status:     storage.PositionOpen,
		Quantity:   100,
		EntryPrice: 150,
	}
	limits := NewDailyLimits(store, makeTestRiskConfig())

	marks := map[string]float64{"AAPL": 140} // -1000 unrealized, total -5000
	allowed, reason, err := limits.Check(context.Background(), marks, time.Now())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if allowed {
		t.Fatal("expected denial once unrealized loss pushes total past the limit")
	}
	if reason != "DAILY_LOSS_LIMIT" {
		t.Errorf("reason = %q, want DAILY_LOSS_LIMIT", reason)
	}
}
