package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/config"
	"github.com/nitinkhare/algoTradingAgent/internal/signal"
	"github.com/nitinkhare/algoTradingAgent/internal/storage"
)

// Decision is the Risk Gate's verdict on a candidate entry.
type Decision struct {
	Approved bool
	Reason   string // set when Approved is false
	Size     SizeResult
}

// Gate is the Risk Gate: the single composite admission check every
// confirmed signal must clear before an order is placed (spec.md §4.6).
// It chains, in order: Ignore List -> Daily Limits -> Cooldown Map ->
// duplicate-position check -> Position Sizer -> validate_risk.
type Gate struct {
	store    storage.Store
	cfg      config.RiskConfig
	capital  float64
	ignore   *IgnoreList
	limits   *DailyLimits
	cooldown *signal.CooldownMap
	sizer    *PositionSizer
}

// NewGate assembles a Risk Gate from its constituent checks and the
// account's total capital.
func NewGate(store storage.Store, cfg config.RiskConfig, capital float64, ignore *IgnoreList, limits *DailyLimits, cooldown *signal.CooldownMap) *Gate {
	return &Gate{
		store:    store,
		cfg:      cfg,
		capital:  capital,
		ignore:   ignore,
		limits:   limits,
		cooldown: cooldown,
		sizer:    NewPositionSizer(cfg),
	}
}

// AvailableCapital is total capital minus the notional currently deployed in
// OPEN or CLOSING positions. The teacher's stub returned total capital
// unconditionally; see DESIGN.md Open Question decision 3.
func (g *Gate) AvailableCapital(ctx context.Context) (float64, error) {
	positions, err := g.store.GetPositionsByStatus(ctx, storage.PositionOpen, storage.PositionClosing)
	if err != nil {
		return 0, fmt.Errorf("risk: list open positions: %w", err)
	}
	deployed := 0.0
	for _, p := range positions {
		deployed += p.EntryPrice * float64(p.Quantity)
	}
	return g.capital - deployed, nil
}

// Check runs the full admission chain for a candidate entry on ticker.
// price/atr/stopLoss describe the candidate entry; marks supplies current
// mark prices for unrealized P&L valuation.
func (g *Gate) Check(ctx context.Context, ticker string, confidence, price, atr, stopLoss float64, marks map[string]float64, now time.Time) (Decision, error) {
	ignored, err := g.ignore.IsIgnored(ctx, ticker, now)
	if err != nil {
		return Decision{}, err
	}
	if ignored {
		return Decision{Approved: false, Reason: "IGNORE_LIST"}, nil
	}

	allowed, reason, err := g.limits.Check(ctx, marks, now)
	if err != nil {
		return Decision{}, err
	}
	if !allowed {
		return Decision{Approved: false, Reason: reason}, nil
	}

	onCooldown, err := g.cooldown.IsOnCooldown(ctx, ticker, now)
	if err != nil {
		return Decision{}, err
	}
	if onCooldown {
		return Decision{Approved: false, Reason: "COOLDOWN"}, nil
	}

	existing, err := g.store.GetOpenPosition(ctx, ticker)
	if err != nil {
		return Decision{}, err
	}
	if existing != nil {
		return Decision{Approved: false, Reason: "POSITION_EXISTS"}, nil
	}

	openPositions, err := g.store.GetPositionsByStatus(ctx, storage.PositionOpen, storage.PositionClosing)
	if err != nil {
		return Decision{}, err
	}
	if g.cfg.MaxOpenPositions > 0 && len(openPositions) >= g.cfg.MaxOpenPositions {
		return Decision{Approved: false, Reason: "MAX_OPEN_POSITIONS"}, nil
	}

	available, err := g.AvailableCapital(ctx)
	if err != nil {
		return Decision{}, err
	}
	if available <= 0 {
		return Decision{Approved: false, Reason: "NO_AVAILABLE_CAPITAL"}, nil
	}

	size := g.sizer.Size(SizeInputs{
		AvailableCapital: available,
		Confidence:       confidence,
		Price:            price,
		ATR:              atr,
		StopLoss:         stopLoss,
	})
	if size.Shares <= 0 {
		return Decision{Approved: false, Reason: "ZERO_SHARES"}, nil
	}

	ok, riskReason := g.sizer.ValidateRisk(size.Shares, price, stopLoss, g.capital)
	if !ok {
		return Decision{Approved: false, Reason: riskReason}, nil
	}

	return Decision{Approved: true, Size: size}, nil
}
