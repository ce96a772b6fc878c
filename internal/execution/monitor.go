// Package execution - monitor.go implements the Exit Monitor (spec.md §4.8),
// grounded on original_source/core/execution/monitor.py's ExitMonitor. Three
// ordered exit paths run every tick: stop-losses first, then strategy
// exits, then the forced pre-close sweep.
package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/broker"
	"github.com/nitinkhare/algoTradingAgent/internal/market"
	"github.com/nitinkhare/algoTradingAgent/internal/signal"
	"github.com/nitinkhare/algoTradingAgent/internal/storage"
)

// DefaultForceCloseMinutes is the window before close in which open
// positions are force-sold at MARKET regardless of strategy state.
const DefaultForceCloseMinutes = 5

// preCloseWarningMinutes is the window in which a PRE_CLOSE_WARNING fires
// without yet forcing an exit.
const preCloseWarningMinutes = 15

// ExitOutcome describes one exit decision made by the monitor this tick.
type ExitOutcome struct {
	Ticker string
	Reason string // STOP_LOSS, STRATEGY, FORCE_CLOSE, PRE_CLOSE_WARNING
	Result Result
}

// Monitor runs the three ordered exit checks against live OPEN/CLOSING
// positions.
type Monitor struct {
	store             storage.Store
	executor          *Executor
	calendar          *market.Calendar
	cooldown          *signal.CooldownMap
	forceCloseMinutes int
}

// NewMonitor creates an Exit Monitor. forceCloseMinutes <= 0 falls back to
// DefaultForceCloseMinutes.
func NewMonitor(store storage.Store, executor *Executor, calendar *market.Calendar, cooldown *signal.CooldownMap, forceCloseMinutes int) *Monitor {
	if forceCloseMinutes <= 0 {
		forceCloseMinutes = DefaultForceCloseMinutes
	}
	return &Monitor{
		store:             store,
		executor:          executor,
		calendar:          calendar,
		cooldown:          cooldown,
		forceCloseMinutes: forceCloseMinutes,
	}
}

// CheckStopLosses sells at MARKET any OPEN position whose current mark has
// fallen to or below its stop-loss percentage below entry.
func (m *Monitor) CheckStopLosses(ctx context.Context, marks map[string]float64, now time.Time) ([]ExitOutcome, error) {
	positions, err := m.store.GetPositionsByStatus(ctx, storage.PositionOpen)
	if err != nil {
		return nil, fmt.Errorf("execution monitor: list OPEN positions: %w", err)
	}

	var outcomes []ExitOutcome
	for _, p := range positions {
		price, ok := marks[p.Ticker]
		if !ok || price <= 0 || p.EntryPrice <= 0 {
			continue
		}
		pctMove := (price - p.EntryPrice) / p.EntryPrice
		if pctMove > -p.StopLoss {
			continue
		}

		res, err := m.executor.ExecuteExit(ctx, p.Ticker, price, p.Quantity, broker.OrderTypeMarket, p.SignalID)
		if err != nil {
			return outcomes, fmt.Errorf("execution monitor: stop-loss exit %s: %w", p.Ticker, err)
		}
		if err := m.applyExit(ctx, &p, res, "STOP_LOSS", now); err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, ExitOutcome{Ticker: p.Ticker, Reason: "STOP_LOSS", Result: res})
	}
	return outcomes, nil
}

// CheckStrategyExits submits LIMIT sells for positions a strategy has
// already marked CLOSING (ExitSignal set elsewhere in the cycle).
func (m *Monitor) CheckStrategyExits(ctx context.Context, marks map[string]float64, now time.Time) ([]ExitOutcome, error) {
	positions, err := m.store.GetPositionsByStatus(ctx, storage.PositionClosing)
	if err != nil {
		return nil, fmt.Errorf("execution monitor: list CLOSING positions: %w", err)
	}

	var outcomes []ExitOutcome
	for _, p := range positions {
		if p.ExitSignal == "" || p.ExitSignal == "FORCE_CLOSE" {
			continue // forced closes are handled by CheckPreClose
		}
		price, ok := marks[p.Ticker]
		if !ok || price <= 0 {
			price = p.Target
		}

		res, err := m.executor.ExecuteExit(ctx, p.Ticker, price, p.Quantity, broker.OrderTypeLimit, p.SignalID)
		if err != nil {
			return outcomes, fmt.Errorf("execution monitor: strategy exit %s: %w", p.Ticker, err)
		}
		if err := m.applyExit(ctx, &p, res, "STRATEGY", now); err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, ExitOutcome{Ticker: p.Ticker, Reason: "STRATEGY", Result: res})
	}
	return outcomes, nil
}

// CheckPreClose forces a MARKET exit on every remaining OPEN/CLOSING
// position within forceCloseMinutes of the close, and emits a
// PRE_CLOSE_WARNING-only outcome (no order) in the (forceCloseMinutes, 15]
// minute window ahead of that.
func (m *Monitor) CheckPreClose(ctx context.Context, marks map[string]float64, now time.Time) ([]ExitOutcome, error) {
	minutesToClose := m.calendar.MinutesUntilClose(now)
	if minutesToClose < 0 {
		return nil, nil
	}

	if minutesToClose > m.forceCloseMinutes {
		if minutesToClose <= preCloseWarningMinutes {
			positions, err := m.store.GetPositionsByStatus(ctx, storage.PositionOpen, storage.PositionClosing)
			if err != nil {
				return nil, fmt.Errorf("execution monitor: list positions for pre-close warning: %w", err)
			}
			outcomes := make([]ExitOutcome, 0, len(positions))
			for _, p := range positions {
				outcomes = append(outcomes, ExitOutcome{Ticker: p.Ticker, Reason: "PRE_CLOSE_WARNING"})
			}
			return outcomes, nil
		}
		return nil, nil
	}

	positions, err := m.store.GetPositionsByStatus(ctx, storage.PositionOpen, storage.PositionClosing)
	if err != nil {
		return nil, fmt.Errorf("execution monitor: list positions for force close: %w", err)
	}

	var outcomes []ExitOutcome
	for _, p := range positions {
		price, ok := marks[p.Ticker]
		if !ok || price <= 0 {
			price = p.EntryPrice
		}
		res, err := m.executor.ExecuteExit(ctx, p.Ticker, price, p.Quantity, broker.OrderTypeMarket, p.SignalID)
		if err != nil {
			return outcomes, fmt.Errorf("execution monitor: force close %s: %w", p.Ticker, err)
		}
		if err := m.applyExit(ctx, &p, res, "FORCE_CLOSE", now); err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, ExitOutcome{Ticker: p.Ticker, Reason: "FORCE_CLOSE", Result: res})
	}
	return outcomes, nil
}

// applyExit persists the position-lifecycle side effects of an exit order:
// on an immediate fill the position closes and a trade-history row is
// written; on a pending order the position is marked CLOSING so a later
// tick's reconciliation/CheckPendingOrders resolves it. A cooldown is set
// either way so the ticker doesn't immediately re-enter KIV.
func (m *Monitor) applyExit(ctx context.Context, p *storage.PositionRecord, res Result, reason string, now time.Time) error {
	if res.Status == ResultFailed {
		return nil // leave position OPEN/CLOSING; next tick retries
	}

	if res.Status == ResultPending {
		if err := m.store.UpdatePositionStatus(ctx, p.Ticker, storage.PositionClosing, reason); err != nil {
			return fmt.Errorf("execution monitor: mark %s CLOSING: %w", p.Ticker, err)
		}
		if err := m.cooldown.SetCooldown(ctx, p.Ticker, reason, now); err != nil {
			return fmt.Errorf("execution monitor: set cooldown %s: %w", p.Ticker, err)
		}
		return nil
	}

	pnlDollar := (res.FillPrice - p.EntryPrice) * float64(res.Quantity)
	pnlPct := 0.0
	if p.EntryPrice != 0 {
		pnlPct = (res.FillPrice - p.EntryPrice) / p.EntryPrice * 100
	}
	winLoss := "LOSS"
	if pnlDollar > 0 {
		winLoss = "WIN"
	}

	hist := &storage.TradeHistoryRecord{
		Ticker:     p.Ticker,
		SignalID:   p.SignalID,
		StrategyID: p.StrategyID,
		Quantity:   res.Quantity,
		EntryPrice: p.EntryPrice,
		ExitPrice:  res.FillPrice,
		EntryTime:  p.EntryTime,
		ExitTime:   now,
		ExitReason: reason,
		PnLDollar:  pnlDollar,
		PnLPercent: pnlPct,
		WinLoss:    winLoss,
		Ticket:     res.TicketID,
	}
	if err := m.store.SaveTradeHistory(ctx, hist); err != nil {
		return fmt.Errorf("execution monitor: save trade history %s: %w", p.Ticker, err)
	}
	if err := m.store.ClosePosition(ctx, p.Ticker); err != nil {
		return fmt.Errorf("execution monitor: close position %s: %w", p.Ticker, err)
	}
	if err := m.cooldown.SetCooldown(ctx, p.Ticker, reason, now); err != nil {
		return fmt.Errorf("execution monitor: set cooldown %s: %w", p.Ticker, err)
	}
	return nil
}
