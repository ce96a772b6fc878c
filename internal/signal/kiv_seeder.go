package signal

import (
	"context"
	"time"
)

// Seeder is the narrow external entry point universe-construction tooling
// calls to seed KIV signals. Universe construction itself — the offline scan
// that produces candidate tickers — is out of scope (spec.md §1); this is
// just the stable contract that process calls into.
type Seeder struct {
	engine *Engine
}

// NewSeeder wraps an Engine as a KIV seeding entry point.
func NewSeeder(engine *Engine) *Seeder {
	return &Seeder{engine: engine}
}

// Seed adds a single candidate to KIV. It's a direct pass-through to
// Engine.AddToKIV, kept as its own named type so callers depend on a
// narrow surface rather than the full Signal Engine.
func (s *Seeder) Seed(ctx context.Context, ticker, strategyID string, triggerPrice float64, prices EntryPrices, confidence float64, now time.Time) (AddResult, error) {
	return s.engine.AddToKIV(ctx, ticker, strategyID, triggerPrice, prices, confidence, now)
}
