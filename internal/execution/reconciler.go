// Package execution - reconciler.go implements the Reconciler (spec.md
// §4.9), grounded on original_source/core/execution/reconciler.py's
// Reconciler. It compares the local position ledger against the broker's
// live positions every cycle and auto-heals the differences it can.
package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/broker"
	"github.com/nitinkhare/algoTradingAgent/internal/storage"
)

// Status is the health state a reconciliation run produces.
type Status string

const (
	StatusGreen    Status = "GREEN"
	StatusDegraded Status = "DEGRADED"
	StatusYellow   Status = "YELLOW"
	StatusRed      Status = "RED"
)

// Bucket classifies one ticker's local-vs-broker comparison.
type Bucket string

const (
	BucketMatched         Bucket = "matched"
	BucketMismatchPrice   Bucket = "mismatch_price"
	BucketMismatchQty     Bucket = "mismatch_quantity"
	BucketMissingInBroker Bucket = "missing_in_broker"
	BucketMissingInLocal  Bucket = "missing_in_local"
)

// Discrepancy is one ticker's classification result.
type Discrepancy struct {
	Ticker string
	Bucket Bucket
	Local  *storage.PositionRecord
	Broker *broker.Position
	Healed bool
	Ticket string
}

// Report is the outcome of one reconcile_all() run.
type Report struct {
	Status       Status
	Discrepancies []Discrepancy
	CheckedAt    time.Time
}

// Reconciler compares local OPEN/CLOSING positions against the broker's
// live position list every cycle.
type Reconciler struct {
	broker broker.Broker
	store  storage.Store
}

// NewReconciler creates a Reconciler against the given broker and store.
func NewReconciler(b broker.Broker, store storage.Store) *Reconciler {
	return &Reconciler{broker: b, store: store}
}

// ReconcileAll builds the local and broker position maps, classifies every
// ticker into one of five buckets, auto-heals what it safely can, and
// appends a HealthStateEntry recording the run.
func (r *Reconciler) ReconcileAll(ctx context.Context, now time.Time) (Report, error) {
	local, err := r.store.GetPositionsByStatus(ctx, storage.PositionOpen, storage.PositionClosing)
	if err != nil {
		return Report{}, fmt.Errorf("reconciler: list local positions: %w", err)
	}
	brokerPositions, err := r.broker.GetAllPositions(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("reconciler: list broker positions: %w", err)
	}

	localByTicker := make(map[string]storage.PositionRecord, len(local))
	for _, p := range local {
		localByTicker[p.Ticker] = p
	}
	brokerByTicker := make(map[string]broker.Position, len(brokerPositions))
	for _, p := range brokerPositions {
		brokerByTicker[p.Symbol] = p
	}

	tickers := make(map[string]bool, len(localByTicker)+len(brokerByTicker))
	for t := range localByTicker {
		tickers[t] = true
	}
	for t := range brokerByTicker {
		tickers[t] = true
	}

	report := Report{Status: StatusGreen, CheckedAt: now}
	for ticker := range tickers {
		lp, hasLocal := localByTicker[ticker]
		bp, hasBroker := brokerByTicker[ticker]

		d := Discrepancy{Ticker: ticker}
		switch {
		case hasLocal && !hasBroker:
			d.Bucket = BucketMissingInBroker
			local := lp
			d.Local = &local

		case !hasLocal && hasBroker:
			d.Bucket = BucketMissingInLocal
			b := bp
			d.Broker = &b

		case hasLocal && hasBroker && lp.Quantity != bp.Quantity:
			d.Bucket = BucketMismatchQty
			local, b := lp, bp
			d.Local, d.Broker = &local, &b

		case hasLocal && hasBroker && !pricesClose(lp.EntryPrice, bp.AveragePrice):
			d.Bucket = BucketMismatchPrice
			local, b := lp, bp
			d.Local, d.Broker = &local, &b

		default:
			d.Bucket = BucketMatched
		}

		if d.Bucket != BucketMatched {
			if err := r.heal(ctx, &d, now); err != nil {
				return report, err
			}
			report.Discrepancies = append(report.Discrepancies, d)
		}
	}

	report.Status = classify(report.Discrepancies)

	reasons := make([]string, 0, len(report.Discrepancies))
	for _, d := range report.Discrepancies {
		reasons = append(reasons, fmt.Sprintf("%s:%s", d.Ticker, d.Bucket))
	}
	if err := r.store.SaveHealthState(ctx, &storage.HealthStateEntry{
		State:     string(report.Status),
		Reasons:   reasons,
		CreatedAt: now,
	}); err != nil {
		return report, fmt.Errorf("reconciler: save health state: %w", err)
	}

	return report, nil
}

// classify applies the status ladder: mismatch_quantity or
// missing_in_broker -> RED; missing_in_local -> YELLOW; mismatch_price ->
// DEGRADED; no discrepancies -> GREEN. First matching bucket across all
// discrepancies wins, worst case first.
func classify(discrepancies []Discrepancy) Status {
	var sawMissingLocal, sawMismatchPrice bool
	for _, d := range discrepancies {
		switch d.Bucket {
		case BucketMismatchQty, BucketMissingInBroker:
			return StatusRed
		case BucketMissingInLocal:
			sawMissingLocal = true
		case BucketMismatchPrice:
			sawMismatchPrice = true
		}
	}
	if sawMissingLocal {
		return StatusYellow
	}
	if sawMismatchPrice {
		return StatusDegraded
	}
	return StatusGreen
}

// heal auto-corrects what's safe to auto-correct: a position the broker
// holds but the local ledger doesn't know about gets inserted with a
// deterministic RCL- ticket; a price mismatch overwrites the local entry
// price to the broker's. Quantity mismatches and missing_in_broker are
// left unhealed — those require a human to resolve the discrepancy.
func (r *Reconciler) heal(ctx context.Context, d *Discrepancy, now time.Time) error {
	switch d.Bucket {
	case BucketMissingInLocal:
		ticket := fmt.Sprintf("RCL-%s-%s", d.Ticker, now.Format("20060102150405"))
		rec := &storage.PositionRecord{
			Ticker:        d.Ticker,
			Status:        storage.PositionOpen,
			Side:          "LONG",
			Quantity:      d.Broker.Quantity,
			EntryPrice:    d.Broker.AveragePrice,
			EntryTime:     now,
			BrokerOrderID: ticket,
		}
		if err := r.store.SavePosition(ctx, rec); err != nil {
			return fmt.Errorf("reconciler: heal missing_in_local %s: %w", d.Ticker, err)
		}
		d.Healed = true
		d.Ticket = ticket

	case BucketMismatchPrice:
		if err := r.store.UpdatePositionEntryPrice(ctx, d.Ticker, d.Broker.AveragePrice); err != nil {
			return fmt.Errorf("reconciler: heal mismatch_price %s: %w", d.Ticker, err)
		}
		d.Healed = true
	}
	return nil
}

// pricesClose reports whether two entry prices agree within a cent,
// avoiding float-equality false positives on mismatch_price.
func pricesClose(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 0.01
}

// QuickCheck is the O(1) health probe the Sentinel calls every tick: it
// only compares local-vs-broker position counts, never enumerating or
// classifying individual tickers.
func (r *Reconciler) QuickCheck(ctx context.Context) (bool, error) {
	local, err := r.store.GetPositionsByStatus(ctx, storage.PositionOpen, storage.PositionClosing)
	if err != nil {
		return false, fmt.Errorf("reconciler: quick check list local: %w", err)
	}
	brokerPositions, err := r.broker.GetAllPositions(ctx)
	if err != nil {
		return false, fmt.Errorf("reconciler: quick check list broker: %w", err)
	}
	return len(local) == len(brokerPositions), nil
}
