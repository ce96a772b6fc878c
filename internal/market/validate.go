// Package market - validate.go implements the two-stage data validator,
// grounded on original_source/core/data/validator.py's DataValidator.
//
// Stage A is ultra-cheap: it only looks at the current cached/live price.
// Stage B is the full bar check, run only for candidates that already
// cleared Stage A.
package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/storage"
	"github.com/nitinkhare/algoTradingAgent/internal/strategy"
)

// ValidationResult is the outcome of a Stage A or Stage B check.
type ValidationResult struct {
	Valid  bool
	Codes  []string // e.g. INVALID_PRICE, ZERO_VOLUME, STALE_DATA, WIDE_SPREAD, GAPS
	Detail string
}

// Reason joins all codes, or "OK" when none fired.
func (v ValidationResult) Reason() string {
	if len(v.Codes) == 0 {
		return "OK"
	}
	return strings.Join(v.Codes, ",")
}

// Validator runs Stage A/B data-quality checks ahead of signal evaluation.
type Validator struct {
	cache *PriceCache
	store storage.Store
}

// NewValidator creates a Validator backed by the given price cache and store.
func NewValidator(cache *PriceCache, store storage.Store) *Validator {
	return &Validator{cache: cache, store: store}
}

// StageA is the ultra-cheap check: price must exist and be positive, volume
// zero is a warning (not fatal), stale data past 5 minutes is flagged, and a
// spread check runs when a bid/ask is present, with a context-aware
// threshold by price band (<$20: 3%, <$50: 2%, else: 1%).
func (v *Validator) StageA(ctx context.Context, ticker string, maxAge time.Duration) (ValidationResult, *storage.PriceCacheEntry, error) {
	entry, err := v.cache.Get(ctx, ticker, maxAge)
	if err != nil {
		return ValidationResult{Valid: false, Codes: []string{"NO_PRICE_DATA"}}, nil, nil
	}

	var codes []string
	if entry.Price <= 0 {
		codes = append(codes, "INVALID_PRICE")
	}
	if entry.Volume == 0 {
		codes = append(codes, "ZERO_VOLUME")
	}

	age := time.Since(entry.Timestamp)
	if age > 5*time.Minute {
		codes = append(codes, fmt.Sprintf("STALE_DATA_%.0fs", age.Seconds()))
	}

	if entry.Bid > 0 && entry.Ask > entry.Bid {
		spreadPct := (entry.Ask - entry.Bid) / entry.Bid * 100
		threshold := 1.0
		switch {
		case entry.Price < 20:
			threshold = 3.0
		case entry.Price < 50:
			threshold = 2.0
		}
		if spreadPct > threshold {
			codes = append(codes, fmt.Sprintf("WIDE_SPREAD_%.1f%%", spreadPct))
		}
	}

	// Zero volume alone is a warning, not a fatal Stage A rejection.
	valid := len(codes) == 0 || (len(codes) == 1 && codes[0] == "ZERO_VOLUME")

	return ValidationResult{Valid: valid, Codes: codes}, entry, nil
}

// StageB validates a candidate's full bar history: minimum bar count, no
// zero/negative closes, no duplicate dates, and no gap of more than 3
// calendar days between consecutive bars.
func (v *Validator) StageB(candles []strategy.Candle, minBars int) ValidationResult {
	var codes []string

	if len(candles) < minBars {
		codes = append(codes, fmt.Sprintf("INSUFFICIENT_BARS:%d<%d", len(candles), minBars))
	}

	seen := make(map[string]bool, len(candles))
	for i, c := range candles {
		if c.Close <= 0 {
			codes = append(codes, "NAN_CLOSE")
		}
		if c.Volume < 0 {
			codes = append(codes, "NAN_VOLUME")
		}
		key := c.Date.Format("2006-01-02")
		if seen[key] {
			codes = append(codes, "DUPLICATE_TIMESTAMPS")
		}
		seen[key] = true

		if i > 0 {
			gap := c.Date.Sub(candles[i-1].Date)
			if gap > 3*24*time.Hour { // beyond a long weekend
				codes = append(codes, "GAPS")
			}
		}
	}

	return ValidationResult{Valid: len(codes) == 0, Codes: dedupe(codes)}
}

// Severity maps a validation reason string to an error-log severity.
func Severity(reason string) string {
	if reason == "OK" {
		return "INFO"
	}
	if strings.Contains(reason, "NAN") || strings.Contains(reason, "INSUFFICIENT_BARS") {
		return "CRITICAL"
	}
	if strings.Contains(reason, "GAPS") || strings.Contains(reason, "DUPLICATE") {
		return "ERROR"
	}
	return "WARNING"
}

func dedupe(xs []string) []string {
	seen := make(map[string]bool, len(xs))
	var out []string
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}
