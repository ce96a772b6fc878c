package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/config"
	"github.com/nitinkhare/algoTradingAgent/internal/storage"
)

// DailyLimits denies new entries once today's realized+unrealized P&L
// crosses the configured loss floor or profit ceiling (spec.md §4.4).
type DailyLimits struct {
	store storage.Store
	cfg   config.RiskConfig
}

// NewDailyLimits creates a DailyLimits checker.
func NewDailyLimits(store storage.Store, cfg config.RiskConfig) *DailyLimits {
	return &DailyLimits{store: store, cfg: cfg}
}

// Check returns (allowed, reason). allowed is false once realized+unrealized
// P&L for the trading day has breached -DailyLossLimit or +DailyProfitCap.
// marks supplies current mark prices (ticker -> price) for open positions,
// used to value unrealized P&L.
func (d *DailyLimits) Check(ctx context.Context, marks map[string]float64, now time.Time) (bool, string, error) {
	realized, err := d.store.GetRealizedPnLToday(ctx, now)
	if err != nil {
		return false, "", fmt.Errorf("risk: realized pnl: %w", err)
	}
	unrealized, err := d.store.GetUnrealizedPnL(ctx, marks)
	if err != nil {
		return false, "", fmt.Errorf("risk: unrealized pnl: %w", err)
	}

	total := realized + unrealized

	if d.cfg.DailyLossLimit > 0 && total <= -d.cfg.DailyLossLimit {
		return false, "DAILY_LOSS_LIMIT", nil
	}
	if d.cfg.DailyProfitCap > 0 && total >= d.cfg.DailyProfitCap {
		return false, "DAILY_PROFIT_CAP", nil
	}
	return true, "", nil
}
