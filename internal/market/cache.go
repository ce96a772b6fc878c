// Package market - cache.go implements the tiered read-through price cache,
// grounded on original_source/core/data/cache.py's PriceCache. Unlike the
// Python SQLite cache, reads are backed by storage.Store so the cache lives
// alongside every other operational table in Postgres.
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/storage"
)

// DefaultCacheMaxAge is the default staleness bound for a cache hit (Stage A
// validation's normal read path).
const DefaultCacheMaxAge = 60 * time.Second

// DefaultCleanStaleAge is the default age at which clean_stale purges a row.
const DefaultCleanStaleAge = 60 * time.Minute

// PriceCache is the read-through cache -> snapshot -> last_trade tiering
// described in spec.md §4.12. Every tier that answers a Get writes its
// result back to storage so the next call within maxAge is a pure cache hit.
type PriceCache struct {
	store    storage.Store
	provider QuoteProvider
}

// NewPriceCache creates a PriceCache backed by store and provider.
func NewPriceCache(store storage.Store, provider QuoteProvider) *PriceCache {
	return &PriceCache{store: store, provider: provider}
}

// Get returns a price for ticker, trying the cache first, then a live
// snapshot quote, then the last trade — each tier that succeeds writes back
// to the cache before returning.
func (c *PriceCache) Get(ctx context.Context, ticker string, maxAge time.Duration) (*storage.PriceCacheEntry, error) {
	cached, err := c.store.GetPriceCache(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("market cache: get %s: %w", ticker, err)
	}
	if cached != nil && time.Since(cached.Timestamp) <= maxAge {
		return cached, nil
	}

	if snap, err := c.provider.GetSnapshot(ctx, ticker); err == nil && snap.Price > 0 {
		return c.writeBack(ctx, ticker, snap)
	}

	trade, err := c.provider.GetLastTrade(ctx, ticker)
	if err != nil {
		if cached != nil {
			// Both live tiers failed; a stale cache row beats nothing.
			return cached, nil
		}
		return nil, fmt.Errorf("market cache: no price available for %s: %w", ticker, err)
	}
	return c.writeBack(ctx, ticker, trade)
}

func (c *PriceCache) writeBack(ctx context.Context, ticker string, q *Quote) (*storage.PriceCacheEntry, error) {
	entry := &storage.PriceCacheEntry{
		Ticker:    ticker,
		Price:     q.Price,
		Bid:       q.Bid,
		Ask:       q.Ask,
		Volume:    q.Volume,
		Source:    q.Source,
		Timestamp: time.Now(),
	}
	if err := c.store.UpsertPriceCache(ctx, entry); err != nil {
		return nil, fmt.Errorf("market cache: write back %s: %w", ticker, err)
	}
	return entry, nil
}

// CleanStale removes cache rows older than maxAge.
func (c *PriceCache) CleanStale(ctx context.Context, maxAge time.Duration) (int, error) {
	n, err := c.store.CleanStalePriceCache(ctx, maxAge)
	if err != nil {
		return 0, fmt.Errorf("market cache: clean stale: %w", err)
	}
	return n, nil
}
