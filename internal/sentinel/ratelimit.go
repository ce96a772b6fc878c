// Package sentinel - ratelimit.go implements the sliding-window API call
// budget, grounded on original_source/core/market/sentinel.py's
// _check_api_usage (Open Question (d): counters are sliding-window, not
// fixed-bucket, so a burst at the top of a minute doesn't reset early).
package sentinel

import (
	"context"
	"fmt"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/storage"
)

// RateLimiter tracks outbound API calls in a trailing one-minute window.
type RateLimiter struct {
	store   storage.Store
	maxCalls int
}

// NewRateLimiter creates a RateLimiter allowing maxCallsPerMinute calls in
// any trailing 60-second window.
func NewRateLimiter(store storage.Store, maxCallsPerMinute int) *RateLimiter {
	return &RateLimiter{store: store, maxCalls: maxCallsPerMinute}
}

// Record logs a single outbound call against the budget.
func (r *RateLimiter) Record(ctx context.Context, endpoint string) error {
	if err := r.store.RecordApiCall(ctx, endpoint); err != nil {
		return fmt.Errorf("sentinel: record api call: %w", err)
	}
	return nil
}

// UsagePct returns the fraction (0-100+) of the per-minute budget consumed
// by calls in the trailing 60 seconds as of now.
func (r *RateLimiter) UsagePct(ctx context.Context, now time.Time) (float64, error) {
	count, err := r.store.CountApiCallsSince(ctx, now.Add(-time.Minute))
	if err != nil {
		return 0, fmt.Errorf("sentinel: count api calls: %w", err)
	}
	if r.maxCalls <= 0 {
		return 0, nil
	}
	return float64(count) / float64(r.maxCalls) * 100, nil
}
