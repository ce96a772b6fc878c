package risk

import (
	"context"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/storage"
	"github.com/nitinkhare/algoTradingAgent/internal/strategy"
)

// memStore is a minimal in-memory storage.Store used to exercise the risk
// package without a database.
type memStore struct {
	ignore     map[string]*storage.IgnoreEntry
	cooldowns  map[string]*storage.CooldownEntry
	positions  map[string]*storage.PositionRecord
	realized   float64
}

func newMemStore() *memStore {
	return &memStore{
		ignore:    make(map[string]*storage.IgnoreEntry),
		cooldowns: make(map[string]*storage.CooldownEntry),
		positions: make(map[string]*storage.PositionRecord),
	}
}

func (m *memStore) SaveCandles(ctx context.Context, candles []strategy.Candle) error { return nil }
func (m *memStore) GetCandles(ctx context.Context, symbol string, from, to time.Time) ([]strategy.Candle, error) {
	return nil, nil
}
func (m *memStore) GetLatestCandleDate(ctx context.Context, symbol string) (time.Time, error) {
	return time.Time{}, nil
}

func (m *memStore) SaveSignal(ctx context.Context, s *storage.SignalRecord) error { return nil }
func (m *memStore) GetSignal(ctx context.Context, signalID string) (*storage.SignalRecord, error) {
	return nil, nil
}
func (m *memStore) GetSignalsByStatus(ctx context.Context, status storage.SignalStatus) ([]storage.SignalRecord, error) {
	return nil, nil
}
func (m *memStore) UpdateSignalStatus(ctx context.Context, signalID string, status storage.SignalStatus, reason string) error {
	return nil
}
func (m *memStore) ConfirmSignal(ctx context.Context, signalID string, confirmedTime time.Time) error {
	return nil
}
func (m *memStore) RecordPriceCheck(ctx context.Context, signalID string, price float64) error {
	return nil
}

func (m *memStore) SavePosition(ctx context.Context, p *storage.PositionRecord) error {
	m.positions[p.Ticker] = p
	return nil
}
func (m *memStore) GetOpenPosition(ctx context.Context, ticker string) (*storage.PositionRecord, error) {
	if p, ok := m.positions[ticker]; ok && (p.Status == storage.PositionOpen || p.Status == storage.PositionClosing) {
		return p, nil
	}
	return nil, nil
}
func (m *memStore) GetPositionsByStatus(ctx context.Context, statuses ...storage.PositionStatus) ([]storage.PositionRecord, error) {
	var out []storage.PositionRecord
	for _, p := range m.positions {
		for _, s := range statuses {
			if p.Status == s {
				out = append(out, *p)
				break
			}
		}
	}
	return out, nil
}
func (m *memStore) UpdatePositionStatus(ctx context.Context, ticker string, status storage.PositionStatus, exitSignal string) error {
	if p, ok := m.positions[ticker]; ok {
		p.Status = status
		p.ExitSignal = exitSignal
	}
	return nil
}
func (m *memStore) UpdatePositionEntryPrice(ctx context.Context, ticker string, entryPrice float64) error {
	if p, ok := m.positions[ticker]; ok {
		p.EntryPrice = entryPrice
	}
	return nil
}
func (m *memStore) ClosePosition(ctx context.Context, ticker string) error {
	if p, ok := m.positions[ticker]; ok {
		p.Status = storage.PositionClosed
	}
	return nil
}

func (m *memStore) SaveTradeHistory(ctx context.Context, t *storage.TradeHistoryRecord) error {
	return nil
}
func (m *memStore) GetTradeHistory(ctx context.Context, from, to time.Time) ([]storage.TradeHistoryRecord, error) {
	return nil, nil
}
func (m *memStore) GetTradeHistoryByStrategy(ctx context.Context, strategyID string) ([]storage.TradeHistoryRecord, error) {
	return nil, nil
}

func (m *memStore) GetIgnoreEntry(ctx context.Context, ticker string) (*storage.IgnoreEntry, error) {
	return m.ignore[ticker], nil
}
func (m *memStore) UpsertIgnoreEntry(ctx context.Context, e *storage.IgnoreEntry) error {
	m.ignore[e.Ticker] = e
	return nil
}
func (m *memStore) GetCooldown(ctx context.Context, ticker string) (*storage.CooldownEntry, error) {
	return m.cooldowns[ticker], nil
}
func (m *memStore) SetCooldown(ctx context.Context, e *storage.CooldownEntry) error {
	m.cooldowns[e.Ticker] = e
	return nil
}
func (m *memStore) GetRealizedPnLToday(ctx context.Context, date time.Time) (float64, error) {
	return m.realized, nil
}
func (m *memStore) GetUnrealizedPnL(ctx context.Context, marks map[string]float64) (float64, error) {
	total := 0.0
	for _, p := range m.positions {
		if p.Status != storage.PositionOpen && p.Status != storage.PositionClosing {
			continue
		}
		mark, ok := marks[p.Ticker]
		if !ok {
			continue
		}
		total += (mark - p.EntryPrice) * float64(p.Quantity)
	}
	return total, nil
}

func (m *memStore) GetPriceCache(ctx context.Context, ticker string) (*storage.PriceCacheEntry, error) {
	return nil, nil
}
func (m *memStore) UpsertPriceCache(ctx context.Context, e *storage.PriceCacheEntry) error {
	return nil
}
func (m *memStore) CleanStalePriceCache(ctx context.Context, maxAge time.Duration) (int, error) {
	return 0, nil
}

func (m *memStore) SaveExecutionQuality(ctx context.Context, e *storage.ExecutionQualityRecord) error {
	return nil
}
func (m *memStore) GetExecutionQualityStats(ctx context.Context, ticker string, since time.Time) ([]storage.ExecutionQualityRecord, error) {
	return nil, nil
}

func (m *memStore) LogError(ctx context.Context, e *storage.ErrorLogEntry) error { return nil }
func (m *memStore) CountErrorsSince(ctx context.Context, since time.Time, severities ...string) (int, error) {
	return 0, nil
}
func (m *memStore) SaveHealthState(ctx context.Context, e *storage.HealthStateEntry) error {
	return nil
}
func (m *memStore) GetLatestHealthState(ctx context.Context) (*storage.HealthStateEntry, error) {
	return nil, nil
}

func (m *memStore) RecordApiCall(ctx context.Context, endpoint string) error { return nil }
func (m *memStore) CountApiCallsSince(ctx context.Context, since time.Time) (int, error) {
	return 0, nil
}

func (m *memStore) SaveStrategyStats(ctx context.Context, s *storage.StrategyStatsEntry) error {
	return nil
}
func (m *memStore) SaveRegime(ctx context.Context, r *storage.RegimeEntry) error { return nil }
func (m *memStore) GetLatestRegime(ctx context.Context) (*storage.RegimeEntry, error) {
	return nil, nil
}

func (m *memStore) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	return fn(m)
}

func (m *memStore) Ping(ctx context.Context) error { return nil }
