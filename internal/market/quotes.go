// Package market - quotes.go fetches live quotes/trades from Alpaca's
// market-data API for the Price Cache's snapshot/last-trade tiers.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Quote is a single point-in-time price reading, regardless of which tier
// (cache/snapshot/last_trade) produced it.
type Quote struct {
	Price     float64
	Bid       float64
	Ask       float64
	Volume    int64
	Source    string
	Timestamp time.Time
}

// QuoteProvider fetches live quote/trade data. Implementations sit behind
// the Price Cache; nothing else in the engine calls a provider directly.
type QuoteProvider interface {
	// GetSnapshot returns the latest NBBO quote (bid/ask) for ticker.
	GetSnapshot(ctx context.Context, ticker string) (*Quote, error)

	// GetLastTrade returns the most recent executed trade price for ticker,
	// used when no recent quote is available.
	GetLastTrade(ctx context.Context, ticker string) (*Quote, error)
}

// AlpacaQuoteProvider implements QuoteProvider against Alpaca's market data API.
type AlpacaQuoteProvider struct {
	keyID     string
	secretKey string
	baseURL   string
	client    *http.Client
}

// NewAlpacaQuoteProvider creates a quote provider. baseURL defaults to
// Alpaca's market-data endpoint (distinct from the trading API's base URL).
func NewAlpacaQuoteProvider(keyID, secretKey, baseURL string) *AlpacaQuoteProvider {
	if baseURL == "" {
		baseURL = "https://data.alpaca.markets"
	}
	return &AlpacaQuoteProvider{
		keyID:     keyID,
		secretKey: secretKey,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type alpacaQuoteResp struct {
	Quote struct {
		BidPrice  float64 `json:"bp"`
		AskPrice  float64 `json:"ap"`
		Timestamp string  `json:"t"`
	} `json:"quote"`
}

type alpacaTradeResp struct {
	Trade struct {
		Price     float64 `json:"p"`
		Size      float64 `json:"s"`
		Timestamp string  `json:"t"`
	} `json:"trade"`
}

func (p *AlpacaQuoteProvider) do(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("APCA-API-KEY-ID", p.keyID)
	req.Header.Set("APCA-API-SECRET-KEY", p.secretKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alpaca quotes: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("alpaca quotes: read response %s: %w", path, err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("alpaca quotes: %s returned %d: %s", path, resp.StatusCode, string(body))
	}
	return body, nil
}

// GetSnapshot fetches the latest NBBO quote via
// GET /v2/stocks/{symbol}/quotes/latest.
//
// The upstream Python NBBO client historically swapped bid/ask when mapping
// the response (DESIGN.md Open Question decision 1) — bp is the bid, ap is the
// ask, and that is preserved faithfully here rather than the bug.
func (p *AlpacaQuoteProvider) GetSnapshot(ctx context.Context, ticker string) (*Quote, error) {
	body, err := p.do(ctx, "/v2/stocks/"+ticker+"/quotes/latest")
	if err != nil {
		return nil, err
	}
	var parsed alpacaQuoteResp
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("alpaca quotes: parse snapshot for %s: %w", ticker, err)
	}

	bid, ask := parsed.Quote.BidPrice, parsed.Quote.AskPrice
	mid := (bid + ask) / 2
	ts, _ := time.Parse(time.RFC3339Nano, parsed.Quote.Timestamp)

	return &Quote{
		Price:     mid,
		Bid:       bid,
		Ask:       ask,
		Source:    "snapshot",
		Timestamp: ts,
	}, nil
}

// GetLastTrade fetches the most recent executed trade via
// GET /v2/stocks/{symbol}/trades/latest.
func (p *AlpacaQuoteProvider) GetLastTrade(ctx context.Context, ticker string) (*Quote, error) {
	body, err := p.do(ctx, "/v2/stocks/"+ticker+"/trades/latest")
	if err != nil {
		return nil, err
	}
	var parsed alpacaTradeResp
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("alpaca quotes: parse last trade for %s: %w", ticker, err)
	}

	ts, _ := time.Parse(time.RFC3339Nano, parsed.Trade.Timestamp)
	vol, _ := strconv.ParseInt(strconv.FormatFloat(parsed.Trade.Size, 'f', 0, 64), 10, 64)

	return &Quote{
		Price:     parsed.Trade.Price,
		Volume:    vol,
		Source:    "last_trade",
		Timestamp: ts,
	}, nil
}
