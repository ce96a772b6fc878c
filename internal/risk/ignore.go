package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/storage"
)

// backoffMap maps Ignore List escalation level to quarantine duration.
var backoffMap = map[int]time.Duration{
	1: time.Hour,
	2: 4 * time.Hour,
	3: 24 * time.Hour,
	4: 7 * 24 * time.Hour,
}

const maxBackoffLevel = 4

// IgnoreList quarantines a ticker with exponential backoff on repeated
// strikes (1h/4h/1d/7d).
type IgnoreList struct {
	store storage.Store
}

// NewIgnoreList creates an IgnoreList backed by the given store.
func NewIgnoreList(store storage.Store) *IgnoreList {
	return &IgnoreList{store: store}
}

// Add records a strike against ticker. A ticker with no stored entry starts
// at backoff level 1; an existing entry's level, expired or not, is incremented (capped at 4)
// and its ttl recomputed from the new level. backoff_level never decreases.
func (l *IgnoreList) Add(ctx context.Context, ticker, reason string, now time.Time) error {
	existing, err := l.store.GetIgnoreEntry(ctx, ticker)
	if err != nil {
		return fmt.Errorf("risk: get ignore entry %s: %w", ticker, err)
	}

	level := 1
	strikeCount := 1
	if existing != nil {
		level = existing.StrikeCount + 1
		if level > maxBackoffLevel {
			level = maxBackoffLevel
		}
		strikeCount = existing.StrikeCount + 1
	}

	entry := &storage.IgnoreEntry{
		Ticker:       ticker,
		Reason:       reason,
		StrikeCount:  strikeCount,
		IgnoredUntil: now.Add(backoffMap[level]),
	}
	if err := l.store.UpsertIgnoreEntry(ctx, entry); err != nil {
		return fmt.Errorf("risk: upsert ignore entry %s: %w", ticker, err)
	}
	return nil
}

// IsIgnored reports whether ticker currently has an active ignore window.
func (l *IgnoreList) IsIgnored(ctx context.Context, ticker string, now time.Time) (bool, error) {
	entry, err := l.store.GetIgnoreEntry(ctx, ticker)
	if err != nil {
		return false, fmt.Errorf("risk: get ignore entry %s: %w", ticker, err)
	}
	if entry == nil {
		return false, nil
	}
	return entry.IgnoredUntil.After(now), nil
}

// Reset clears the ignore entry for ticker — a manual operator override.
func (l *IgnoreList) Reset(ctx context.Context, ticker string, now time.Time) error {
	entry := &storage.IgnoreEntry{
		Ticker:       ticker,
		Reason:       "manual_reset",
		StrikeCount:  0,
		IgnoredUntil: now.Add(-time.Second), // already expired
	}
	if err := l.store.UpsertIgnoreEntry(ctx, entry); err != nil {
		return fmt.Errorf("risk: reset ignore entry %s: %w", ticker, err)
	}
	return nil
}
