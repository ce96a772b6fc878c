package signal

import (
	"context"
	"fmt"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/storage"
)

// Default timing parameters, from spec.md §4.1/§4.2 and
// original_source/core/signal/processor.py.
const (
	DefaultKIVTimeout        = 4 * time.Hour
	DefaultConfirmationBounce = 0.01 // 1%
	DefaultConfirmedTimeout  = 2 * time.Hour
)

// AddResult is the outcome of AddToKIV.
type AddResult struct {
	Status   string // ADDED, EXISTS, REJECTED
	SignalID string
	Reason   string // populated when Status == REJECTED
}

// EntryPrices is the (rebound_bottom, go_in_price, profit_target, stop_loss)
// triple a universe-build seeder supplies for a candidate ticker.
type EntryPrices struct {
	ReboundBottom float64
	GoInPrice     float64
	ProfitTarget  float64
	StopLoss      float64
}

// Engine implements the Signal Engine state machine. It exclusively owns
// Signal rows and their status transitions.
type Engine struct {
	store         storage.Store
	cooldown      *CooldownMap
	kivTimeout    time.Duration
	bouncePct     float64
	confirmedTimeout time.Duration
}

// New creates a Signal Engine with spec-default timing parameters.
func New(store storage.Store, cooldown *CooldownMap) *Engine {
	return &Engine{
		store:            store,
		cooldown:         cooldown,
		kivTimeout:       DefaultKIVTimeout,
		bouncePct:        DefaultConfirmationBounce,
		confirmedTimeout: DefaultConfirmedTimeout,
	}
}

// signalID computes the deterministic id ticker_strategy_YYYYMMDDHH — one
// signal per hourly bucket per ticker per strategy, making duplicate KIV
// inserts within the bucket a no-op.
func signalID(ticker, strategyID string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s", ticker, strategyID, now.UTC().Format("2006010215"))
}

// AddToKIV inserts a new KIV signal, or returns EXISTS/REJECTED idempotently.
func (e *Engine) AddToKIV(ctx context.Context, ticker, strategyID string, triggerPrice float64, prices EntryPrices, confidence float64, now time.Time) (AddResult, error) {
	onCooldown, err := e.cooldown.IsOnCooldown(ctx, ticker, now)
	if err != nil {
		return AddResult{}, err
	}
	if onCooldown {
		return AddResult{Status: "REJECTED", Reason: "COOLDOWN"}, nil
	}

	// An active row (KIV or CONFIRMED) for this (ticker, strategy) already
	// exists — look across both statuses since a strategy may re-seed.
	for _, status := range []storage.SignalStatus{storage.SignalKIV, storage.SignalConfirmed} {
		active, err := e.store.GetSignalsByStatus(ctx, status)
		if err != nil {
			return AddResult{}, fmt.Errorf("signal: list active signals: %w", err)
		}
		for _, s := range active {
			if s.Ticker == ticker && s.StrategyID == strategyID {
				return AddResult{Status: "EXISTS", SignalID: s.SignalID}, nil
			}
		}
	}

	id := signalID(ticker, strategyID, now)
	rec := &storage.SignalRecord{
		SignalID:      id,
		Ticker:        ticker,
		StrategyID:    strategyID,
		Status:        storage.SignalKIV,
		TriggerPrice:  triggerPrice,
		ReboundBottom: prices.ReboundBottom,
		GoInPrice:     prices.GoInPrice,
		ProfitTarget:  prices.ProfitTarget,
		StopLoss:      prices.StopLoss,
		Confidence:    confidence,
		TriggerTime:   now,
	}
	if err := e.store.SaveSignal(ctx, rec); err != nil {
		return AddResult{}, fmt.Errorf("signal: save KIV %s: %w", id, err)
	}
	return AddResult{Status: "ADDED", SignalID: id}, nil
}

// ConfirmationResult is the outcome of CheckConfirmation.
type ConfirmationResult struct {
	Confirmed bool
	Reason    string // EXPIRED when Confirmed is false due to timeout
	Prices    EntryPrices
	SignalID  string
}

// CheckConfirmation finds the newest KIV row for (ticker, strategy) and
// advances it to CONFIRMED on bounce, or EXPIRED on timeout.
func (e *Engine) CheckConfirmation(ctx context.Context, ticker, strategyID string, currentPrice float64, now time.Time) (ConfirmationResult, error) {
	kivSignals, err := e.store.GetSignalsByStatus(ctx, storage.SignalKIV)
	if err != nil {
		return ConfirmationResult{}, fmt.Errorf("signal: list KIV: %w", err)
	}

	var newest *storage.SignalRecord
	for i := range kivSignals {
		s := &kivSignals[i]
		if s.Ticker != ticker || s.StrategyID != strategyID {
			continue
		}
		if newest == nil || s.TriggerTime.After(newest.TriggerTime) {
			newest = s
		}
	}
	if newest == nil {
		return ConfirmationResult{}, nil
	}

	if err := e.store.RecordPriceCheck(ctx, newest.SignalID, currentPrice); err != nil {
		return ConfirmationResult{}, err
	}

	age := now.Sub(newest.TriggerTime)
	if age > e.kivTimeout {
		if err := e.store.UpdateSignalStatus(ctx, newest.SignalID, storage.SignalExpired, ""); err != nil {
			return ConfirmationResult{}, err
		}
		return ConfirmationResult{Confirmed: false, Reason: "EXPIRED", SignalID: newest.SignalID}, nil
	}

	bounceThreshold := newest.ReboundBottom * (1 + e.bouncePct)
	if currentPrice >= bounceThreshold {
		if err := e.store.ConfirmSignal(ctx, newest.SignalID, now); err != nil {
			return ConfirmationResult{}, err
		}
		return ConfirmationResult{
			Confirmed: true,
			SignalID:  newest.SignalID,
			Prices: EntryPrices{
				ReboundBottom: newest.ReboundBottom,
				GoInPrice:     newest.GoInPrice,
				ProfitTarget:  newest.ProfitTarget,
				StopLoss:      newest.StopLoss,
			},
		}, nil
	}

	return ConfirmationResult{SignalID: newest.SignalID}, nil
}

// GetConfirmedSignals expires any CONFIRMED row whose trigger_time is older
// than confirmed_timeout, then returns the remaining CONFIRMED rows with
// confidence >= minConfidence, sorted by confidence descending.
//
// trigger_time (the KIV creation time) is deliberately used as the expiry
// clock rather than confirmed_time — see DESIGN.md Open Question decision 2.
func (e *Engine) GetConfirmedSignals(ctx context.Context, minConfidence float64, now time.Time) ([]storage.SignalRecord, error) {
	confirmed, err := e.store.GetSignalsByStatus(ctx, storage.SignalConfirmed)
	if err != nil {
		return nil, fmt.Errorf("signal: list CONFIRMED: %w", err)
	}

	var live []storage.SignalRecord
	for _, s := range confirmed {
		if now.Sub(s.TriggerTime) > e.confirmedTimeout {
			if err := e.store.UpdateSignalStatus(ctx, s.SignalID, storage.SignalExpired, ""); err != nil {
				return nil, err
			}
			continue
		}
		if s.Confidence < minConfidence {
			continue
		}
		live = append(live, s)
	}

	for i := 0; i < len(live); i++ {
		for j := i + 1; j < len(live); j++ {
			if live[j].Confidence > live[i].Confidence {
				live[i], live[j] = live[j], live[i]
			}
		}
	}
	return live, nil
}

// MarkExecuted transitions a CONFIRMED signal to EXECUTED on fill.
func (e *Engine) MarkExecuted(ctx context.Context, signalID string) error {
	if err := e.store.UpdateSignalStatus(ctx, signalID, storage.SignalExecuted, ""); err != nil {
		return fmt.Errorf("signal: mark executed %s: %w", signalID, err)
	}
	return nil
}

// RejectSignal transitions a CONFIRMED signal to REJECTED, e.g. on risk-gate denial.
func (e *Engine) RejectSignal(ctx context.Context, signalID, reason string) error {
	if err := e.store.UpdateSignalStatus(ctx, signalID, storage.SignalRejected, reason); err != nil {
		return fmt.Errorf("signal: reject %s: %w", signalID, err)
	}
	return nil
}

// CleanupExpired scans all KIV and CONFIRMED rows and expires those past
// their respective deadlines. Intended to run once per cycle ahead of
// confirmation checks so stale rows never leak into the confirmed set.
func (e *Engine) CleanupExpired(ctx context.Context, now time.Time) (int, error) {
	count := 0
	kiv, err := e.store.GetSignalsByStatus(ctx, storage.SignalKIV)
	if err != nil {
		return 0, err
	}
	for _, s := range kiv {
		if now.Sub(s.TriggerTime) > e.kivTimeout {
			if err := e.store.UpdateSignalStatus(ctx, s.SignalID, storage.SignalExpired, ""); err != nil {
				return count, err
			}
			count++
		}
	}

	confirmed, err := e.store.GetSignalsByStatus(ctx, storage.SignalConfirmed)
	if err != nil {
		return count, err
	}
	for _, s := range confirmed {
		if now.Sub(s.TriggerTime) > e.confirmedTimeout {
			if err := e.store.UpdateSignalStatus(ctx, s.SignalID, storage.SignalExpired, ""); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}
