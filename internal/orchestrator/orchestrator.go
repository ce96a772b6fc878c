// orchestrator.go drives the single-tick priority pyramid of spec.md
// §4.11, grounded on original_source's top-level engine loop (the Python
// original's run_cycle, synthesized from sentinel.py/reconciler.py/
// monitor.py/executor.go's own ordering comments — there is no single
// orchestrator.py file in the original; the ordering contract lives in the
// individual components' docstrings and is assembled here).
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/broker"
	"github.com/nitinkhare/algoTradingAgent/internal/execution"
	"github.com/nitinkhare/algoTradingAgent/internal/sentinel"
	"github.com/nitinkhare/algoTradingAgent/internal/storage"
	"github.com/nitinkhare/algoTradingAgent/internal/strategy"
)

// CycleOutcome tells the caller (cmd/engine/main.go) why a cycle ended
// where it did, so it can map to the CLI exit-code contract (spec.md §6).
type CycleOutcome string

const (
	OutcomeCompleted    CycleOutcome = "COMPLETED"
	OutcomeMarketClosed CycleOutcome = "MARKET_CLOSED"
	OutcomeLockHeld     CycleOutcome = "LOCK_HELD"
	OutcomeNoTrade      CycleOutcome = "NO_TRADE"
	OutcomeRedHealth    CycleOutcome = "RED_HEALTH"
)

// CycleResult summarizes one RunCycle call.
type CycleResult struct {
	Outcome      CycleOutcome
	Health       sentinel.CheckResult
	Reconcile    execution.Report
	ExitOutcomes []execution.ExitOutcome
	Resolved     []execution.Result
	NewEntries   []execution.Result
}

// RunCycle executes steps 1-11 of the priority pyramid exactly once.
// universe is the Stage-A candidate list (Tier 1); scores is the AI
// composite-score map consulted by Tier 2 seeding.
func (d *Dependencies) RunCycle(ctx context.Context, now time.Time, universe []string, scores map[string]strategy.StockScore) (CycleResult, error) {
	// 1. market hours gate.
	if !d.Calendar.IsMarketOpen(now) {
		return CycleResult{Outcome: OutcomeMarketClosed}, nil
	}

	// 2. acquire single-instance lock.
	if err := d.Lock.Acquire(); err != nil {
		if err == ErrLockHeld {
			return CycleResult{Outcome: OutcomeLockHeld}, nil
		}
		return CycleResult{}, fmt.Errorf("orchestrator: acquire lock: %w", err)
	}
	defer d.Lock.Release()

	// 3. sentinel health check.
	health, err := d.Sentinel.CheckHealth(ctx, now)
	if err != nil {
		return CycleResult{}, fmt.Errorf("orchestrator: check health: %w", err)
	}

	// 4. should_trade gate.
	if !d.Sentinel.ShouldTrade(health) {
		return CycleResult{Outcome: OutcomeNoTrade, Health: health}, nil
	}

	marks, err := d.markPrices(ctx)
	if err != nil {
		return CycleResult{Health: health}, err
	}

	// 5. exit monitor: stop-losses -> strategy exits -> pre-close.
	result := CycleResult{Outcome: OutcomeCompleted, Health: health}

	stopOutcomes, err := d.Monitor.CheckStopLosses(ctx, marks, now)
	if err != nil {
		return result, fmt.Errorf("orchestrator: stop-loss exits: %w", err)
	}
	result.ExitOutcomes = append(result.ExitOutcomes, stopOutcomes...)

	strategyOutcomes, err := d.Monitor.CheckStrategyExits(ctx, marks, now)
	if err != nil {
		return result, fmt.Errorf("orchestrator: strategy exits: %w", err)
	}
	result.ExitOutcomes = append(result.ExitOutcomes, strategyOutcomes...)

	preCloseOutcomes, err := d.Monitor.CheckPreClose(ctx, marks, now)
	if err != nil {
		return result, fmt.Errorf("orchestrator: pre-close sweep: %w", err)
	}
	result.ExitOutcomes = append(result.ExitOutcomes, preCloseOutcomes...)

	// 6. reconcile; RED aborts admission for the rest of this tick.
	report, err := d.Reconciler.ReconcileAll(ctx, now)
	if err != nil {
		return result, fmt.Errorf("orchestrator: reconcile: %w", err)
	}
	result.Reconcile = report
	if report.Status == execution.StatusRed {
		result.Outcome = OutcomeRedHealth
		return result, nil
	}

	// 7. resolve pending orders.
	resolved, err := d.Executor.CheckPendingOrders(ctx)
	if err != nil {
		return result, fmt.Errorf("orchestrator: check pending orders: %w", err)
	}
	result.Resolved = resolved

	// 8/9. Tier-1/Tier-2 scans, gated on health.
	var tier1 []string
	if health.State == sentinel.StateGreen || health.State == sentinel.StateYellow {
		tier1, err = d.tier1Scan(ctx, universe, now)
		if err != nil {
			return result, fmt.Errorf("orchestrator: tier-1 scan: %w", err)
		}
	}
	if health.State == sentinel.StateGreen {
		if err := d.tier2Scan(ctx, tier1, scores, now); err != nil {
			return result, fmt.Errorf("orchestrator: tier-2 scan: %w", err)
		}
	}

	// 10. confirmation + admission, gated on health.
	if health.State == sentinel.StateGreen || health.State == sentinel.StateYellow {
		minConf := 70.0
		maxNew := 1
		if health.State == sentinel.StateGreen {
			minConf = 60.0
			maxNew = 3
		}

		for _, ticker := range tier1 {
			entry, err := d.Cache.Get(ctx, ticker, 60*time.Second)
			if err != nil {
				continue // tiered fallback exhausted; this ticker sits out confirmation this tick
			}
			if _, err := d.Engine.CheckConfirmation(ctx, ticker, "ai_composite", entry.Price, now); err != nil {
				return result, fmt.Errorf("orchestrator: check confirmation %s: %w", ticker, err)
			}
		}

		confirmed, err := d.Engine.GetConfirmedSignals(ctx, minConf, now)
		if err != nil {
			return result, fmt.Errorf("orchestrator: get confirmed signals: %w", err)
		}
		sort.Slice(confirmed, func(i, j int) bool { return confirmed[i].Confidence > confirmed[j].Confidence })
		if len(confirmed) > maxNew {
			confirmed = confirmed[:maxNew]
		}

		for _, s := range confirmed {
			entryRes, err := d.admit(ctx, s, marks, now)
			if err != nil {
				return result, err
			}
			if entryRes != nil {
				result.NewEntries = append(result.NewEntries, *entryRes)
			}
		}
	}

	// 11. release lock (deferred above).
	return result, nil
}

// admit runs the Risk Gate on one confirmed signal and, if approved,
// submits the entry order and opens the position.
func (d *Dependencies) admit(ctx context.Context, s storage.SignalRecord, marks map[string]float64, now time.Time) (*execution.Result, error) {
	price := marks[s.Ticker]
	if price <= 0 {
		if entry, err := d.Cache.Get(ctx, s.Ticker, 60*time.Second); err == nil {
			price = entry.Price
		}
	}
	if price <= 0 {
		price = s.GoInPrice
	}
	atr := price - s.StopLoss
	if atr < 0 {
		atr = 0
	}

	decision, err := d.Gate.Check(ctx, s.Ticker, s.Confidence, price, atr, s.StopLoss, marks, now)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: risk gate %s: %w", s.Ticker, err)
	}
	if !decision.Approved {
		if err := d.Engine.RejectSignal(ctx, s.SignalID, decision.Reason); err != nil {
			return nil, fmt.Errorf("orchestrator: reject signal %s: %w", s.SignalID, err)
		}
		return nil, nil
	}

	res, err := d.Executor.ExecuteEntry(ctx, s.Ticker, price, decision.Size.Shares, broker.OrderTypeLimit, s.SignalID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: execute entry %s: %w", s.Ticker, err)
	}
	if res.Status == execution.ResultFailed {
		if err := d.Engine.RejectSignal(ctx, s.SignalID, "EXECUTION_FAILED:"+res.Error); err != nil {
			return nil, fmt.Errorf("orchestrator: reject failed entry %s: %w", s.SignalID, err)
		}
		return &res, nil
	}

	if err := d.Engine.MarkExecuted(ctx, s.SignalID); err != nil {
		return nil, fmt.Errorf("orchestrator: mark executed %s: %w", s.SignalID, err)
	}

	qty := decision.Size.Shares
	fillPrice := price
	if res.Status == execution.ResultFilled {
		qty = res.Quantity
		fillPrice = res.FillPrice
	}
	if err := d.Store.SavePosition(ctx, &storage.PositionRecord{
		Ticker:        s.Ticker,
		SignalID:      s.SignalID,
		StrategyID:    s.StrategyID,
		Status:        storage.PositionOpen,
		Side:          "LONG",
		Quantity:      qty,
		EntryPrice:    fillPrice,
		StopLoss:      s.StopLoss,
		Target:        s.ProfitTarget,
		EntryTime:     now,
		BrokerOrderID: res.TicketID,
	}); err != nil {
		return nil, fmt.Errorf("orchestrator: save position %s: %w", s.Ticker, err)
	}

	return &res, nil
}

// markPrices fetches a current price for every ticker with a live OPEN or
// CLOSING position — the only marks the exit monitor and daily-limits
// unrealized P&L check need.
func (d *Dependencies) markPrices(ctx context.Context) (map[string]float64, error) {
	positions, err := d.Store.GetPositionsByStatus(ctx, storage.PositionOpen, storage.PositionClosing)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: list positions for marks: %w", err)
	}
	marks := make(map[string]float64, len(positions))
	for _, p := range positions {
		entry, err := d.Cache.Get(ctx, p.Ticker, 60*time.Second)
		if err != nil {
			continue // tiered fallback already exhausted inside Cache.Get; skip this tick
		}
		marks[p.Ticker] = entry.Price
	}
	return marks, nil
}
