// Package storage defines the database storage interfaces and types.
//
// Uses Postgres for:
//   - Candles (regime detector's benchmark basket history)
//   - Signals (KIV → CONFIRMED → EXECUTED/EXPIRED/REJECTED)
//   - Positions (OPEN → CLOSING → CLOSED)
//   - Trade history (closed positions, for analytics)
//   - Risk bookkeeping (ignore list, cooldowns)
//   - Operational state (health, price cache, execution quality, error log,
//     API call budget, per-strategy stats, regime history)
package storage

import (
	"context"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/strategy"
)

// SignalStatus is the lifecycle state of a Signal row.
type SignalStatus string

const (
	SignalKIV       SignalStatus = "KIV"
	SignalConfirmed SignalStatus = "CONFIRMED"
	SignalExecuted  SignalStatus = "EXECUTED"
	SignalExpired   SignalStatus = "EXPIRED"
	SignalRejected  SignalStatus = "REJECTED"
)

// PositionStatus is the lifecycle state of a Position row.
type PositionStatus string

const (
	PositionOpen    PositionStatus = "OPEN"
	PositionClosing PositionStatus = "CLOSING"
	PositionClosed  PositionStatus = "CLOSED"
)

// SignalRecord represents a strategy signal moving through the
// KIV → CONFIRMED → EXECUTED/EXPIRED/REJECTED lifecycle.
type SignalRecord struct {
	ID               int64
	SignalID         string // deterministic: ticker_strategy_YYYYMMDDHH
	Ticker           string
	StrategyID       string
	Status           SignalStatus
	TriggerPrice     float64
	ReboundBottom    float64
	GoInPrice        float64
	ProfitTarget     float64
	StopLoss         float64
	Confidence       float64
	TriggerTime      time.Time // time this signal was added to KIV
	ConfirmedTime    *time.Time
	LastPriceChecked float64
	RejectionReason  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PositionRecord represents a live or recently-closed position.
type PositionRecord struct {
	ID               int64
	Ticker           string
	SignalID         string
	StrategyID       string
	Status           PositionStatus
	Side             string // "LONG" (spec scope: long-only equities)
	Quantity         int
	EntryPrice       float64
	StopLoss         float64
	Target           float64
	EntryTime        time.Time
	ExitSignal       string // set by strategy exit, consumed by Exit Monitor
	BrokerOrderID    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TradeHistoryRecord is a closed position, the unit analytics operates on.
type TradeHistoryRecord struct {
	ID          int64
	Ticker      string
	SignalID    string
	StrategyID  string
	Quantity    int
	EntryPrice  float64
	ExitPrice   float64
	EntryTime   time.Time
	ExitTime    time.Time
	ExitReason  string // STOP_LOSS, STRATEGY, FORCE_CLOSE
	PnLDollar   float64
	PnLPercent  float64
	WinLoss     string // WIN or LOSS
	Ticket      string
	CreatedAt   time.Time
}

// IgnoreEntry records a ticker under an exponential backoff ignore window.
type IgnoreEntry struct {
	Ticker     string
	Reason     string
	StrikeCount int
	IgnoredUntil time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CooldownEntry records a post-exit cooldown window for a ticker.
type CooldownEntry struct {
	Ticker      string
	Reason      string // STOP_LOSS, TAKE_PROFIT, REJECTED, default
	CooldownUntil time.Time
	CreatedAt   time.Time
}

// HealthStateEntry is a persisted Sentinel health roll-up snapshot.
type HealthStateEntry struct {
	ID        int64
	State     string // RED, YELLOW, GREEN
	Reasons   []string
	CreatedAt time.Time
}

// PriceCacheEntry is a tiered quote cache row.
type PriceCacheEntry struct {
	Ticker    string
	Price     float64
	Bid       float64
	Ask       float64
	Volume    int64
	Source    string // cache, snapshot, last_trade
	Timestamp time.Time
}

// ExecutionQualityRecord captures a single order's slippage/fill quality.
type ExecutionQualityRecord struct {
	ID               int64
	Ticker           string
	OrderID          string
	ExpectedPrice    float64
	FillPrice        float64
	PriceSlippage    float64
	PriceSlippagePct float64
	RequestedQty     int
	FilledQty        int
	FillRatio        float64
	PartialFill      bool
	CreatedAt        time.Time
}

// ErrorLogEntry is an entry in the system error log, consumed by the
// Sentinel's data-quality check.
type ErrorLogEntry struct {
	ID        int64
	Severity  string // CRITICAL, ERROR, WARNING
	Component string
	Code      string
	Message   string
	Ticker    string
	CreatedAt time.Time
}

// ApiBudgetEntry is a single recorded outbound API call, used by the
// sliding-window rate limiter.
type ApiBudgetEntry struct {
	Endpoint  string
	CreatedAt time.Time
}

// StrategyStatsEntry is a per-strategy, per-day rollup for reporting.
type StrategyStatsEntry struct {
	StrategyID string
	Date       time.Time
	Signals    int
	Executions int
	Wins       int
	Losses     int
	PnLDollar  float64
}

// RegimeEntry is a persisted market regime reading.
type RegimeEntry struct {
	Date       time.Time
	Regime     string
	Confidence float64
	CreatedAt  time.Time
}

// Tx is a transactional handle. Implementations bind it to a single
// underlying connection/transaction so callers can compose several writes
// atomically via Store.WithTx.
type Tx interface {
	Store
}

// Store defines the complete storage interface for the trading system.
type Store interface {
	// Candle operations (implements market.DataStore) — used by the
	// regime detector's benchmark-basket trend/volatility scoring.
	SaveCandles(ctx context.Context, candles []strategy.Candle) error
	GetCandles(ctx context.Context, symbol string, from, to time.Time) ([]strategy.Candle, error)
	GetLatestCandleDate(ctx context.Context, symbol string) (time.Time, error)

	// Signal lifecycle.
	SaveSignal(ctx context.Context, s *SignalRecord) error
	GetSignal(ctx context.Context, signalID string) (*SignalRecord, error)
	GetSignalsByStatus(ctx context.Context, status SignalStatus) ([]SignalRecord, error)
	UpdateSignalStatus(ctx context.Context, signalID string, status SignalStatus, rejectionReason string) error
	ConfirmSignal(ctx context.Context, signalID string, confirmedTime time.Time) error
	RecordPriceCheck(ctx context.Context, signalID string, price float64) error

	// Position lifecycle.
	SavePosition(ctx context.Context, p *PositionRecord) error
	GetOpenPosition(ctx context.Context, ticker string) (*PositionRecord, error) // OPEN or CLOSING
	GetPositionsByStatus(ctx context.Context, statuses ...PositionStatus) ([]PositionRecord, error)
	UpdatePositionStatus(ctx context.Context, ticker string, status PositionStatus, exitSignal string) error
	UpdatePositionEntryPrice(ctx context.Context, ticker string, entryPrice float64) error
	ClosePosition(ctx context.Context, ticker string) error

	// Trade history.
	SaveTradeHistory(ctx context.Context, t *TradeHistoryRecord) error
	GetTradeHistory(ctx context.Context, from, to time.Time) ([]TradeHistoryRecord, error)
	GetTradeHistoryByStrategy(ctx context.Context, strategyID string) ([]TradeHistoryRecord, error)

	// Risk bookkeeping.
	GetIgnoreEntry(ctx context.Context, ticker string) (*IgnoreEntry, error)
	UpsertIgnoreEntry(ctx context.Context, e *IgnoreEntry) error
	GetCooldown(ctx context.Context, ticker string) (*CooldownEntry, error)
	SetCooldown(ctx context.Context, e *CooldownEntry) error
	GetRealizedPnLToday(ctx context.Context, date time.Time) (float64, error)
	GetUnrealizedPnL(ctx context.Context, marks map[string]float64) (float64, error)

	// Price cache.
	GetPriceCache(ctx context.Context, ticker string) (*PriceCacheEntry, error)
	UpsertPriceCache(ctx context.Context, e *PriceCacheEntry) error
	CleanStalePriceCache(ctx context.Context, maxAge time.Duration) (int, error)

	// Execution quality.
	SaveExecutionQuality(ctx context.Context, e *ExecutionQualityRecord) error
	GetExecutionQualityStats(ctx context.Context, ticker string, since time.Time) ([]ExecutionQualityRecord, error)

	// Error log / Sentinel.
	LogError(ctx context.Context, e *ErrorLogEntry) error
	CountErrorsSince(ctx context.Context, since time.Time, severities ...string) (int, error)
	SaveHealthState(ctx context.Context, e *HealthStateEntry) error
	GetLatestHealthState(ctx context.Context) (*HealthStateEntry, error)

	// API budget (sliding-window rate limiting).
	RecordApiCall(ctx context.Context, endpoint string) error
	CountApiCallsSince(ctx context.Context, since time.Time) (int, error)

	// Strategy stats / regime history.
	SaveStrategyStats(ctx context.Context, s *StrategyStatsEntry) error
	SaveRegime(ctx context.Context, r *RegimeEntry) error
	GetLatestRegime(ctx context.Context) (*RegimeEntry, error)

	// WithTx runs fn against a transactional Store; a non-nil return
	// rolls the transaction back.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Health check.
	Ping(ctx context.Context) error
}
