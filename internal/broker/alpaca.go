// Package broker - alpaca.go implements the Broker interface using Alpaca's
// trading API.
//
// Alpaca Trading API v2:
//   - Base URL: https://api.alpaca.markets (paper: https://paper-api.alpaca.markets)
//   - Auth: APCA-API-KEY-ID / APCA-API-SECRET-KEY headers
//   - Orders: POST/GET/DELETE /v2/orders
//   - Account: GET /v2/account
//   - Positions: GET /v2/positions
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// AlpacaConfig holds Alpaca-specific API configuration.
type AlpacaConfig struct {
	KeyID     string `json:"key_id"`
	SecretKey string `json:"secret_key"`
	BaseURL   string `json:"base_url"`
}

// AlpacaBroker implements the Broker interface for Alpaca.
type AlpacaBroker struct {
	config AlpacaConfig
	client *http.Client
}

// NewAlpacaBroker creates a new Alpaca broker instance from JSON config.
// Unlike the teacher's registry-based construction, this is called
// directly from cmd/engine's static Dependencies builder.
func NewAlpacaBroker(configJSON []byte) (*AlpacaBroker, error) {
	var cfg AlpacaConfig
	if err := json.Unmarshal(configJSON, &cfg); err != nil {
		return nil, fmt.Errorf("alpaca broker: parse config: %w", err)
	}
	if cfg.KeyID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("alpaca broker: key_id and secret_key are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.alpaca.markets"
	}

	return &AlpacaBroker{
		config: cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// mapOrderType converts our OrderType to Alpaca's enum.
func mapOrderType(ot OrderType) string {
	switch ot {
	case OrderTypeLimit:
		return "limit"
	case OrderTypeMarket:
		return "market"
	case OrderTypeStop:
		return "stop"
	case OrderTypeStopLimit:
		return "stop_limit"
	default:
		return "market"
	}
}

// mapTIF converts our TimeInForce to Alpaca's enum.
func mapTIF(tif TimeInForce) string {
	switch tif {
	case TIFDay:
		return "day"
	default:
		return "day"
	}
}

// mapAlpacaStatus converts an Alpaca order status to our OrderStatus.
func mapAlpacaStatus(s string) OrderStatus {
	switch s {
	case "filled":
		return OrderStatusCompleted
	case "canceled", "expired":
		return OrderStatusCancelled
	case "rejected":
		return OrderStatusRejected
	case "new", "accepted", "pending_new":
		return OrderStatusPending
	case "partially_filled", "accepted_for_bidding":
		return OrderStatusOpen
	default:
		return OrderStatusPending
	}
}

// --- Alpaca API request/response types ---

// alpacaOrderReq is the POST body for /v2/orders.
type alpacaOrderReq struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	LimitPrice    string `json:"limit_price,omitempty"`
	StopPrice     string `json:"stop_price,omitempty"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

// alpacaOrderResp is the response shape for order endpoints.
type alpacaOrderResp struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	FilledQty      string `json:"filled_qty"`
	Qty            string `json:"qty"`
	FilledAvgPrice string `json:"filled_avg_price"`
	UpdatedAt      string `json:"updated_at"`
}

// alpacaAccountResp is the response from GET /v2/account.
type alpacaAccountResp struct {
	Cash           string `json:"cash"`
	BuyingPower    string `json:"buying_power"`
	PortfolioValue string `json:"portfolio_value"`
}

// alpacaPositionResp is a single position from GET /v2/positions.
type alpacaPositionResp struct {
	Symbol       string `json:"symbol"`
	Qty          string `json:"qty"`
	AvgEntryPrice string `json:"avg_entry_price"`
	CurrentPrice string `json:"current_price"`
	UnrealizedPL string `json:"unrealized_pl"`
}

// alpacaErrorResp is Alpaca's standard error envelope.
type alpacaErrorResp struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// --- HTTP helper ---

// doRequest makes an authenticated request to the Alpaca API.
func (a *AlpacaBroker) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	url := a.config.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyJSON)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("APCA-API-KEY-ID", a.config.KeyID)
	req.Header.Set("APCA-API-SECRET-KEY", a.config.SecretKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("authentication failed (%d): check key_id/secret_key", resp.StatusCode)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429): too many requests")
	}

	if resp.StatusCode >= 400 {
		var apiErr alpacaErrorResp
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("alpaca API error %d: %s", apiErr.Code, apiErr.Message)
		}
		return nil, fmt.Errorf("alpaca API error %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// --- Broker interface implementation ---

// SubmitOrder submits an order to Alpaca via POST /v2/orders.
func (a *AlpacaBroker) SubmitOrder(ctx context.Context, order Order) (*OrderResponse, error) {
	req := alpacaOrderReq{
		Symbol:        order.Symbol,
		Qty:           strconv.Itoa(order.Quantity),
		Side:          mapAlpacaSide(order.Side),
		Type:          mapOrderType(order.Type),
		TimeInForce:   mapTIF(order.TIF),
		ClientOrderID: order.Tag,
	}
	if order.Type == OrderTypeLimit || order.Type == OrderTypeStopLimit {
		req.LimitPrice = strconv.FormatFloat(order.Price, 'f', 2, 64)
	}
	if order.Type == OrderTypeStop || order.Type == OrderTypeStopLimit {
		req.StopPrice = strconv.FormatFloat(order.TriggerPrice, 'f', 2, 64)
	}

	respBody, err := a.doRequest(ctx, http.MethodPost, "/v2/orders", req)
	if err != nil {
		return nil, fmt.Errorf("alpaca broker SubmitOrder: %w", err)
	}

	var alpacaResp alpacaOrderResp
	if err := json.Unmarshal(respBody, &alpacaResp); err != nil {
		return nil, fmt.Errorf("alpaca broker SubmitOrder: parse response: %w", err)
	}

	return &OrderResponse{
		OrderID:   alpacaResp.ID,
		Status:    mapAlpacaStatus(alpacaResp.Status),
		Message:   fmt.Sprintf("order placed: %s %d %s @ %s", order.Side, order.Quantity, order.Symbol, mapOrderType(order.Type)),
		Timestamp: time.Now(),
	}, nil
}

func mapAlpacaSide(s OrderSide) string {
	if s == OrderSideSell {
		return "sell"
	}
	return "buy"
}

// GetOrderByID checks order status via GET /v2/orders/{order_id}.
func (a *AlpacaBroker) GetOrderByID(ctx context.Context, orderID string) (*OrderStatusResponse, error) {
	respBody, err := a.doRequest(ctx, http.MethodGet, "/v2/orders/"+orderID, nil)
	if err != nil {
		return nil, fmt.Errorf("alpaca broker GetOrderByID: %w", err)
	}

	var detail alpacaOrderResp
	if err := json.Unmarshal(respBody, &detail); err != nil {
		return nil, fmt.Errorf("alpaca broker GetOrderByID: parse response: %w", err)
	}

	filled := int(parseFloat(detail.FilledQty))
	total := int(parseFloat(detail.Qty))

	return &OrderStatusResponse{
		OrderID:      detail.ID,
		Status:       mapAlpacaStatus(detail.Status),
		FilledQty:    filled,
		PendingQty:   total - filled,
		AveragePrice: parseFloat(detail.FilledAvgPrice),
		Timestamp:    time.Now(),
	}, nil
}

// CancelOrderByID cancels a pending order via DELETE /v2/orders/{order_id}.
func (a *AlpacaBroker) CancelOrderByID(ctx context.Context, orderID string) error {
	_, err := a.doRequest(ctx, http.MethodDelete, "/v2/orders/"+orderID, nil)
	if err != nil {
		return fmt.Errorf("alpaca broker CancelOrderByID: %w", err)
	}
	return nil
}

// GetAccount retrieves cash/buying-power via GET /v2/account.
func (a *AlpacaBroker) GetAccount(ctx context.Context) (*Account, error) {
	respBody, err := a.doRequest(ctx, http.MethodGet, "/v2/account", nil)
	if err != nil {
		return nil, fmt.Errorf("alpaca broker GetAccount: %w", err)
	}

	var acctResp alpacaAccountResp
	if err := json.Unmarshal(respBody, &acctResp); err != nil {
		return nil, fmt.Errorf("alpaca broker GetAccount: parse response: %w", err)
	}

	return &Account{
		Cash:           parseFloat(acctResp.Cash),
		BuyingPower:    parseFloat(acctResp.BuyingPower),
		PortfolioValue: parseFloat(acctResp.PortfolioValue),
	}, nil
}

// GetAllPositions retrieves open positions via GET /v2/positions.
func (a *AlpacaBroker) GetAllPositions(ctx context.Context) ([]Position, error) {
	respBody, err := a.doRequest(ctx, http.MethodGet, "/v2/positions", nil)
	if err != nil {
		return nil, fmt.Errorf("alpaca broker GetAllPositions: %w", err)
	}

	var alpacaPositions []alpacaPositionResp
	if err := json.Unmarshal(respBody, &alpacaPositions); err != nil {
		return nil, fmt.Errorf("alpaca broker GetAllPositions: parse response: %w", err)
	}

	positions := make([]Position, 0, len(alpacaPositions))
	for _, p := range alpacaPositions {
		positions = append(positions, Position{
			Symbol:       p.Symbol,
			Quantity:     int(parseFloat(p.Qty)),
			AveragePrice: parseFloat(p.AvgEntryPrice),
			LastPrice:    parseFloat(p.CurrentPrice),
			PnL:          parseFloat(p.UnrealizedPL),
		})
	}

	return positions, nil
}

// GetOpenPosition retrieves a single symbol's position via
// GET /v2/positions/{symbol}. Any request error, including the 404 Alpaca
// returns when flat, is reported as a nil position with a nil error.
func (a *AlpacaBroker) GetOpenPosition(ctx context.Context, symbol string) (*Position, error) {
	respBody, err := a.doRequest(ctx, http.MethodGet, "/v2/positions/"+symbol, nil)
	if err != nil {
		return nil, nil
	}

	var p alpacaPositionResp
	if err := json.Unmarshal(respBody, &p); err != nil {
		return nil, fmt.Errorf("alpaca broker GetOpenPosition: parse response: %w", err)
	}

	return &Position{
		Symbol:       p.Symbol,
		Quantity:     int(parseFloat(p.Qty)),
		AveragePrice: parseFloat(p.AvgEntryPrice),
		LastPrice:    parseFloat(p.CurrentPrice),
		PnL:          parseFloat(p.UnrealizedPL),
	}, nil
}
