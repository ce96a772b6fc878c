// Package market - regime.go detects the overall market regime from a fixed
// benchmark basket's trend, volatility, and breadth, grounded on
// original_source/core/market/regime.py's RegimeDetector.
package market

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/storage"
	"github.com/nitinkhare/algoTradingAgent/internal/strategy"
)

// Benchmarks is the fixed basket scored for trend/breadth.
var Benchmarks = []string{"SPY", "QQQ", "IWM", "XLF", "XLK", "XLE", "TLT"}

// RegimeMultiplier maps a detected regime to the position-size multiplier
// applied by the Position Sizer.
var RegimeMultiplier = map[strategy.MarketRegime]float64{
	strategy.RegimeBull:        1.2,
	strategy.RegimeNeutralBull: 1.1,
	strategy.RegimeNeutral:     1.0,
	strategy.RegimeNeutralBear: 0.7,
	strategy.RegimeBear:        0.4,
	strategy.RegimeCrash:       0.0,
}

// RegimeResult is a single detect_regime() evaluation.
type RegimeResult struct {
	Regime          strategy.MarketRegime
	Score           int
	TrendScore      int
	VolatilityScore int
	BreadthScore    int
	Multiplier      float64
}

// RegimeDetector scores trend, volatility, and breadth across the benchmark
// basket and rolls them into a single market regime.
type RegimeDetector struct {
	store storage.Store
}

// NewRegimeDetector creates a RegimeDetector backed by candle storage.
func NewRegimeDetector(store storage.Store) *RegimeDetector {
	return &RegimeDetector{store: store}
}

// DetectRegime computes the current regime as of `asOf` using each
// benchmark's candle history up to that date.
func (r *RegimeDetector) DetectRegime(ctx context.Context, asOf time.Time) (RegimeResult, error) {
	trend, err := r.trendScore(ctx, asOf)
	if err != nil {
		return RegimeResult{}, fmt.Errorf("market: regime trend score: %w", err)
	}
	vol, err := r.volatilityScore(ctx, asOf)
	if err != nil {
		return RegimeResult{}, fmt.Errorf("market: regime volatility score: %w", err)
	}
	breadth, err := r.breadthScore(ctx, asOf)
	if err != nil {
		return RegimeResult{}, fmt.Errorf("market: regime breadth score: %w", err)
	}

	total := trend + vol + breadth
	regime := classify(total)

	return RegimeResult{
		Regime:          regime,
		Score:           total,
		TrendScore:      trend,
		VolatilityScore: vol,
		BreadthScore:    breadth,
		Multiplier:      RegimeMultiplier[regime],
	}, nil
}

// ShouldTrade returns false only for CRASH, mirroring the original's hard
// stop — every other regime scales position size instead of blocking entry.
func (r RegimeResult) ShouldTrade() bool {
	return r.Regime != strategy.RegimeCrash
}

func classify(total int) strategy.MarketRegime {
	switch {
	case total >= 4:
		return strategy.RegimeBull
	case total >= 1:
		return strategy.RegimeNeutralBull
	case total >= -1:
		return strategy.RegimeNeutral
	case total >= -3:
		return strategy.RegimeNeutralBear
	case total >= -5:
		return strategy.RegimeBear
	default:
		return strategy.RegimeCrash
	}
}

// trendScore averages the 20-day SMA slope over the trailing 5 days across
// the benchmark basket and maps it onto [-2, 2] via the ±0.02/±0.04 bands.
func (r *RegimeDetector) trendScore(ctx context.Context, asOf time.Time) (int, error) {
	var slopes []float64
	for _, sym := range Benchmarks {
		candles, err := r.candlesEndingAt(ctx, sym, asOf, 30)
		if err != nil {
			return 0, err
		}
		if len(candles) < 25 {
			continue
		}
		smaNow := sma(candles, len(candles), 20)
		smaThen := sma(candles, len(candles)-5, 20)
		if smaThen == 0 {
			continue
		}
		slopes = append(slopes, (smaNow-smaThen)/smaThen)
	}
	if len(slopes) == 0 {
		return 0, nil
	}
	avg := mean(slopes)
	switch {
	case avg > 0.04:
		return 2, nil
	case avg > 0.02:
		return 1, nil
	case avg < -0.04:
		return -2, nil
	case avg < -0.02:
		return -1, nil
	default:
		return 0, nil
	}
}

// volatilityScore proxies VIX with the annualized stdev of SPY's daily
// returns over the trailing 20 sessions — see DESIGN.md for why the proxy
// replaces a direct VIX feed.
func (r *RegimeDetector) volatilityScore(ctx context.Context, asOf time.Time) (int, error) {
	candles, err := r.candlesEndingAt(ctx, "SPY", asOf, 21)
	if err != nil {
		return 0, err
	}
	if len(candles) < 11 {
		return 0, nil
	}

	var rets []float64
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev == 0 {
			continue
		}
		rets = append(rets, (candles[i].Close-prev)/prev)
	}
	if len(rets) < 2 {
		return 0, nil
	}
	annualizedPct := stddev(rets) * math.Sqrt(252) * 100

	switch {
	case annualizedPct > 30:
		return -2, nil
	case annualizedPct > 25:
		return -1, nil
	case annualizedPct < 15:
		return 2, nil
	case annualizedPct < 20:
		return 1, nil
	default:
		return 0, nil
	}
}

// breadthScore is the fraction of the basket trading above its 50-day MA.
func (r *RegimeDetector) breadthScore(ctx context.Context, asOf time.Time) (int, error) {
	above, total := 0, 0
	for _, sym := range Benchmarks {
		candles, err := r.candlesEndingAt(ctx, sym, asOf, 60)
		if err != nil {
			return 0, err
		}
		if len(candles) < 50 {
			continue
		}
		total++
		ma50 := sma(candles, len(candles), 50)
		if candles[len(candles)-1].Close > ma50 {
			above++
		}
	}
	if total == 0 {
		return 0, nil
	}
	pct := float64(above) / float64(total)

	switch {
	case pct > 0.6:
		return 2, nil
	case pct > 0.5:
		return 1, nil
	case pct < 0.3:
		return -2, nil
	case pct < 0.4:
		return -1, nil
	default:
		return 0, nil
	}
}

func (r *RegimeDetector) candlesEndingAt(ctx context.Context, symbol string, asOf time.Time, lookbackDays int) ([]strategy.Candle, error) {
	from := asOf.AddDate(0, 0, -lookbackDays*2) // generous window to absorb weekends/holidays
	candles, err := r.store.GetCandles(ctx, symbol, from, asOf)
	if err != nil {
		return nil, fmt.Errorf("candles for %s: %w", symbol, err)
	}
	if len(candles) > lookbackDays {
		candles = candles[len(candles)-lookbackDays:]
	}
	return candles, nil
}

// sma returns the simple moving average of the `period` candles ending at
// index `upTo` (exclusive upper bound), matching a pandas .rolling(period)
// value taken at position upTo-1.
func sma(candles []strategy.Candle, upTo, period int) float64 {
	if upTo > len(candles) {
		upTo = len(candles)
	}
	start := upTo - period
	if start < 0 {
		start = 0
	}
	window := candles[start:upTo]
	if len(window) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range window {
		sum += c.Close
	}
	return sum / float64(len(window))
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	m := mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}
