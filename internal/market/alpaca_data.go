// Package market - alpaca_data.go implements the DataProvider interface
// using Alpaca's historical market-data API.
//
// This is intentionally separate from the broker layer
// (internal/broker/alpaca.go). Market data fetching is a data concern,
// not an execution concern — the same split the teacher draws between
// its order-placement broker client and its historical-bars client.
//
// Alpaca market-data API details:
//   - Endpoint: GET /v2/stocks/{symbol}/bars
//   - Auth: APCA-API-KEY-ID / APCA-API-SECRET-KEY headers
//   - Pagination: next_page_token, followed until empty
//   - Response: array of {t,o,h,l,c,v} bars
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/strategy"
)

// AlpacaDataConfig holds configuration for the Alpaca historical data provider.
type AlpacaDataConfig struct {
	KeyID     string `json:"key_id"`
	SecretKey string `json:"secret_key"`
	BaseURL   string `json:"base_url"`
}

// AlpacaDataProvider implements DataProvider using Alpaca's historical bars API.
type AlpacaDataProvider struct {
	cfg    AlpacaDataConfig
	client *http.Client
}

type alpacaBar struct {
	Timestamp string  `json:"t"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    int64   `json:"v"`
}

type alpacaBarsResponse struct {
	Bars          []alpacaBar `json:"bars"`
	NextPageToken string      `json:"next_page_token"`
}

// NewAlpacaDataProvider creates a new Alpaca historical data provider.
func NewAlpacaDataProvider(cfg AlpacaDataConfig) (*AlpacaDataProvider, error) {
	if cfg.KeyID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("alpaca data: key_id and secret_key are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://data.alpaca.markets"
	}
	return &AlpacaDataProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// FetchDailyCandles retrieves daily OHLCV bars for symbol within [from, to],
// following pagination until the full range has been fetched.
func (p *AlpacaDataProvider) FetchDailyCandles(ctx context.Context, symbol string, from, to time.Time) ([]strategy.Candle, error) {
	var candles []strategy.Candle
	pageToken := ""

	for {
		url := fmt.Sprintf("%s/v2/stocks/%s/bars?timeframe=1Day&start=%s&end=%s&limit=1000",
			p.cfg.BaseURL, symbol, from.Format(time.RFC3339), to.Format(time.RFC3339))
		if pageToken != "" {
			url += "&page_token=" + pageToken
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("alpaca data: build request %s: %w", symbol, err)
		}
		req.Header.Set("APCA-API-KEY-ID", p.cfg.KeyID)
		req.Header.Set("APCA-API-SECRET-KEY", p.cfg.SecretKey)

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("alpaca data: fetch %s: %w", symbol, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("alpaca data: read response %s: %w", symbol, err)
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("alpaca data: %s returned %d: %s", symbol, resp.StatusCode, string(body))
		}

		var parsed alpacaBarsResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("alpaca data: parse response %s: %w", symbol, err)
		}

		for _, bar := range parsed.Bars {
			ts, _ := time.Parse(time.RFC3339, bar.Timestamp)
			candles = append(candles, strategy.Candle{
				Symbol: symbol,
				Date:   ts,
				Open:   bar.Open,
				High:   bar.High,
				Low:    bar.Low,
				Close:  bar.Close,
				Volume: bar.Volume,
			})
		}

		if parsed.NextPageToken == "" {
			break
		}
		pageToken = parsed.NextPageToken
	}

	return candles, nil
}

// FetchBulkDailyCandles fetches daily candles for multiple symbols sequentially.
// Alpaca's multi-symbol bars endpoint exists but the per-symbol endpoint keeps
// error isolation simple: one bad symbol doesn't abort the whole batch. The
// first error, if any, is returned alongside the symbols that succeeded.
func (p *AlpacaDataProvider) FetchBulkDailyCandles(ctx context.Context, symbols []string, from, to time.Time) (map[string][]strategy.Candle, error) {
	out := make(map[string][]strategy.Candle, len(symbols))
	var firstErr error
	for _, symbol := range symbols {
		candles, err := p.FetchDailyCandles(ctx, symbol, from, to)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("alpaca data: bulk fetch %s: %w", symbol, err)
			}
			continue
		}
		out[symbol] = candles
	}
	return out, firstErr
}
