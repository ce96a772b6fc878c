// Package signal implements the signal state machine (KIV → CONFIRMED →
// EXECUTED/EXPIRED/REJECTED) and its supporting cooldown map.
//
// Design rules (from spec):
//   - Every state write is transactional.
//   - No transition ever moves backward.
//   - Terminal states (EXECUTED, EXPIRED, REJECTED) are immutable.
package signal

import (
	"context"
	"fmt"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/storage"
)

// Default cooldown durations by exit reason.
var cooldownDurations = map[string]time.Duration{
	"STOP_LOSS":   60 * time.Minute,
	"TAKE_PROFIT": 30 * time.Minute,
	"REJECTED":    15 * time.Minute,
}

const defaultCooldown = 60 * time.Minute

// CooldownMap enforces a per-ticker re-entry lockout after exits. The
// strategy is not part of the key: an exit locks the ticker for every strategy.
type CooldownMap struct {
	store storage.Store
}

// NewCooldownMap creates a CooldownMap backed by the given store.
func NewCooldownMap(store storage.Store) *CooldownMap {
	return &CooldownMap{store: store}
}

// SetCooldown records a lockout for ticker expiring after the duration mapped
// from reason; unrecognized reasons fall back to the 60-minute default.
func (c *CooldownMap) SetCooldown(ctx context.Context, ticker, reason string, now time.Time) error {
	d, ok := cooldownDurations[reason]
	if !ok {
		d = defaultCooldown
	}
	entry := &storage.CooldownEntry{
		Ticker:        ticker,
		Reason:        reason,
		CooldownUntil: now.Add(d),
	}
	if err := c.store.SetCooldown(ctx, entry); err != nil {
		return fmt.Errorf("signal: set cooldown %s: %w", ticker, err)
	}
	return nil
}

// IsOnCooldown reports whether ticker currently has a future cooldown expiry.
func (c *CooldownMap) IsOnCooldown(ctx context.Context, ticker string, now time.Time) (bool, error) {
	entry, err := c.store.GetCooldown(ctx, ticker)
	if err != nil {
		return false, fmt.Errorf("signal: get cooldown %s: %w", ticker, err)
	}
	if entry == nil {
		return false, nil
	}
	return entry.CooldownUntil.After(now), nil
}
