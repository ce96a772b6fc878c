package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/market"
	"github.com/nitinkhare/algoTradingAgent/internal/signal"
	"github.com/nitinkhare/algoTradingAgent/internal/storage"
	"github.com/nitinkhare/algoTradingAgent/internal/strategy"
)

// minBarsForEntry is the shortest history StageB accepts before a ticker is
// eligible to be seeded into KIV — long enough for the 14-period ATR (atrPeriod).
const minBarsForEntry = 20

// atrPeriod is the lookback CalculateATR uses to size a candidate's
// stop-loss/target band.
const atrPeriod = 14

// atrStopMultiple / atrTargetMultiple turn a raw ATR reading into a
// stop-loss distance and profit target — 2R stop, 3R target, the same
// risk:reward ratio the teacher's indicator strategies used.
const atrStopMultiple = 2.0
const atrTargetMultiple = 3.0

// tier1Scan runs Stage-A validation over the universe; tickers whose
// validation is CRITICAL get an ignore-list entry right away (spec.md §7)
// so later cycles don't keep re-fetching obviously bad data. Returns the
// tickers that passed.
func (d *Dependencies) tier1Scan(ctx context.Context, universe []string, now time.Time) ([]string, error) {
	var passed []string
	for _, ticker := range universe {
		res, _, err := d.Validator.StageA(ctx, ticker, 5*time.Minute)
		if err != nil {
			return passed, fmt.Errorf("orchestrator: tier-1 stage-A %s: %w", ticker, err)
		}
		if res.Valid {
			passed = append(passed, ticker)
			continue
		}

		reason := res.Reason()
		sev := market.Severity(reason)
		_ = d.Store.LogError(ctx, &storage.ErrorLogEntry{
			Severity:  sev,
			Component: "tier1_scan",
			Code:      reason,
			Ticker:    ticker,
			CreatedAt: now,
		})
		if sev == "CRITICAL" {
			_ = d.IgnoreList.Add(ctx, ticker, reason, now)
		}
	}
	return passed, nil
}

// tier2Scan runs the deeper check on every Stage-A survivor: Stage-B bar
// validation, then (for tickers that clear it) ATR-based entry levels and a
// KIV seed keyed by the AI composite score as confidence.
func (d *Dependencies) tier2Scan(ctx context.Context, candidates []string, scores map[string]strategy.StockScore, now time.Time) error {
	for _, ticker := range candidates {
		candles, err := d.Store.GetCandles(ctx, ticker, now.AddDate(0, 0, -60), now)
		if err != nil {
			return fmt.Errorf("orchestrator: tier-2 get candles %s: %w", ticker, err)
		}

		res := d.Validator.StageB(candles, minBarsForEntry)
		if !res.Valid {
			_ = d.Store.LogError(ctx, &storage.ErrorLogEntry{
				Severity:  market.Severity(res.Reason()),
				Component: "tier2_scan",
				Code:      res.Reason(),
				Ticker:    ticker,
				CreatedAt: now,
			})
			continue
		}

		score, ok := scores[ticker]
		if !ok {
			continue // no AI score available this cycle, skip
		}

		price := candles[len(candles)-1].Close
		atr := strategy.CalculateATR(candles, atrPeriod)
		stopLoss := price - atr*atrStopMultiple
		target := price + atr*atrTargetMultiple
		if stopLoss <= 0 {
			continue
		}

		prices := signal.EntryPrices{
			ReboundBottom: price,
			GoInPrice:     price,
			ProfitTarget:  target,
			StopLoss:      stopLoss,
		}
		if _, err := d.Seeder.Seed(ctx, ticker, "ai_composite", price, prices, score.CompositeScore*100, now); err != nil {
			return fmt.Errorf("orchestrator: tier-2 seed %s: %w", ticker, err)
		}
	}
	return nil
}
