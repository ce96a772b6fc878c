// Package sentinel implements the system health roll-up and kill switch
// (spec.md §4.10), grounded on
// original_source/core/market/sentinel.py's Sentinel class.
package sentinel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/config"
	"github.com/nitinkhare/algoTradingAgent/internal/execution"
	"github.com/nitinkhare/algoTradingAgent/internal/storage"
	"github.com/nitinkhare/algoTradingAgent/internal/strategy"
)

// State is the overall health roll-up produced by CheckHealth.
type State string

const (
	StateGreen  State = "GREEN"
	StateYellow State = "YELLOW"
	StateRed    State = "RED"
)

// CheckResult is the full detail behind one CheckHealth call, so callers
// (and tests) can see which individual check drove the roll-up.
type CheckResult struct {
	State           State
	Reasons         []string
	APIUsagePct     float64
	DataErrorsToday int
	Regime          strategy.MarketRegime
	KillSwitch      bool
	KillSwitchReason string
	CheckedAt       time.Time
}

// Sentinel rolls up API usage, data quality, reconciliation health, market
// regime, and a manual kill switch into a single GREEN/YELLOW/RED state
// every tick.
type Sentinel struct {
	store       storage.Store
	reconciler  *execution.Reconciler
	rateLimiter *RateLimiter
	cfg         config.SentinelConfig

	mu                 sync.Mutex
	killSwitchEngaged  bool
	killSwitchReason   string
	consecutiveFailures int

	regimeFn func(ctx context.Context) (strategy.MarketRegime, error)
}

// NewSentinel creates a Sentinel. regimeFn supplies the latest market
// regime reading (typically market.RegimeDetector.DetectRegime, adapted to
// return just the regime) — it is injected so the Sentinel never needs to
// import the market package's benchmark-fetching dependencies directly.
func NewSentinel(store storage.Store, reconciler *execution.Reconciler, cfg config.SentinelConfig, regimeFn func(ctx context.Context) (strategy.MarketRegime, error)) *Sentinel {
	rl := NewRateLimiter(store, cfg.MaxAPICallsPerMinute)
	return &Sentinel{
		store:       store,
		reconciler:  reconciler,
		rateLimiter: rl,
		cfg:         cfg,
		regimeFn:    regimeFn,
	}
}

// EngageKillSwitch trips the process-wide manual kill switch; ShouldTrade
// returns false unconditionally until ReleaseKillSwitch is called.
func (s *Sentinel) EngageKillSwitch(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killSwitchEngaged = true
	s.killSwitchReason = reason
}

// ReleaseKillSwitch clears a previously engaged kill switch.
func (s *Sentinel) ReleaseKillSwitch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killSwitchEngaged = false
	s.killSwitchReason = ""
}

// KillSwitchEngaged reports the current kill switch state and reason.
func (s *Sentinel) KillSwitchEngaged() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killSwitchEngaged, s.killSwitchReason
}

// CheckHealth runs every individual check, rolls the results up into a
// single State via _determine_health_state's priority ladder, and appends
// a HealthStateEntry for every call.
func (s *Sentinel) CheckHealth(ctx context.Context, now time.Time) (CheckResult, error) {
	res := CheckResult{CheckedAt: now}

	killEngaged, killReason := s.KillSwitchEngaged()
	res.KillSwitch = killEngaged
	res.KillSwitchReason = killReason

	var criticals, warnings []string

	usagePct, err := s.rateLimiter.UsagePct(ctx, now)
	if err != nil {
		return res, fmt.Errorf("sentinel: check api usage: %w", err)
	}
	res.APIUsagePct = usagePct
	switch {
	case usagePct > 90:
		criticals = append(criticals, "API_USAGE_CRITICAL")
	case usagePct > 75:
		warnings = append(warnings, "API_USAGE_WARNING")
	}

	errorsToday, err := s.store.CountErrorsSince(ctx, startOfDay(now))
	if err != nil {
		return res, fmt.Errorf("sentinel: check data quality: %w", err)
	}
	res.DataErrorsToday = errorsToday
	limit := s.cfg.MaxDataErrorsPerDay
	switch {
	case limit > 0 && errorsToday > limit:
		criticals = append(criticals, "DATA_ERRORS_CRITICAL")
	case limit > 0 && float64(errorsToday) > 0.7*float64(limit):
		warnings = append(warnings, "DATA_ERRORS_WARNING")
	}

	ok, err := s.reconciler.QuickCheck(ctx)
	if err != nil {
		return res, fmt.Errorf("sentinel: check reconciliation: %w", err)
	}
	s.mu.Lock()
	if ok {
		s.consecutiveFailures = 0
	} else {
		s.consecutiveFailures++
		criticals = append(criticals, "RECONCILIATION_FAILED")
	}
	consecutiveFailures := s.consecutiveFailures
	s.mu.Unlock()

	if s.regimeFn != nil {
		regime, err := s.regimeFn(ctx)
		if err != nil {
			return res, fmt.Errorf("sentinel: check market conditions: %w", err)
		}
		res.Regime = regime
		switch regime {
		case strategy.RegimeCrash:
			criticals = append(criticals, "MARKET_CRASH")
		case strategy.RegimeBear:
			warnings = append(warnings, "MARKET_BEAR")
		}
	}

	if killEngaged {
		criticals = append(criticals, "KILL_SWITCH_ENGAGED")
	}

	maxFailures := s.cfg.MaxConsecutiveFailures
	if maxFailures <= 0 {
		maxFailures = 3
	}

	switch {
	case len(criticals) > 0:
		res.State = StateRed
	case consecutiveFailures >= maxFailures:
		res.State = StateRed
		criticals = append(criticals, "CONSECUTIVE_FAILURES")
	case len(warnings) > 0:
		res.State = StateYellow
	case usagePct > 70:
		res.State = StateYellow
	case limit > 0 && float64(errorsToday) > 0.5*float64(limit):
		res.State = StateYellow
	default:
		res.State = StateGreen
	}

	res.Reasons = append(criticals, warnings...)

	if err := s.store.SaveHealthState(ctx, &storage.HealthStateEntry{
		State:     string(res.State),
		Reasons:   res.Reasons,
		CreatedAt: now,
	}); err != nil {
		return res, fmt.Errorf("sentinel: save health state: %w", err)
	}

	return res, nil
}

// ShouldTrade gates new order flow: the kill switch and RED both veto
// trading outright; YELLOW still permits trading (the orchestrator tightens
// admission thresholds in that case); GREEN trades normally.
func (s *Sentinel) ShouldTrade(check CheckResult) bool {
	if check.KillSwitch {
		return false
	}
	return check.State != StateRed
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
