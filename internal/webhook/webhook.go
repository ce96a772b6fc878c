// Package webhook provides an HTTP server to receive order/trade update
// notifications relayed from Alpaca's trade_updates stream.
//
// Alpaca itself only pushes trade updates over its streaming WebSocket API;
// this server exists for the common deployment pattern where a small relay
// process subscribes to that stream and forwards each event as an HTTP POST
// so the engine doesn't need to hold its own persistent WebSocket connection.
// The relay's JSON body mirrors Alpaca's trade_updates event shape verbatim
// (event + nested order object).
//
// This package:
//   - Starts a lightweight HTTP server on a configurable port.
//   - Parses the relayed trade_updates payload.
//   - Maps it to the broker-agnostic OrderUpdate type.
//   - Invokes registered callback functions so the engine can react
//     (log to DB, adjust positions, send alerts, etc.).
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/broker"
)

// ────────────────────────────────────────────────────────────────────
// Configuration
// ────────────────────────────────────────────────────────────────────

// Config holds webhook server settings.
type Config struct {
	Port    int    `json:"port"`    // e.g. 8080
	Path    string `json:"path"`    // e.g. "/webhook/alpaca/trade-update"
	Enabled bool   `json:"enabled"` // master switch
}

// ────────────────────────────────────────────────────────────────────
// Alpaca trade_updates payload (relayed from the streaming API)
// ────────────────────────────────────────────────────────────────────

// AlpacaTradeUpdate is the JSON body a trade_updates relay POSTs whenever
// an order's status changes (new, partially_filled, filled, canceled,
// expired, rejected, ...). Field names mirror Alpaca's own event schema.
type AlpacaTradeUpdate struct {
	Event string `json:"event"`
	Order struct {
		ID            string  `json:"id"`
		ClientOrderID string  `json:"client_order_id"` // carries the strategy/signal tag
		Symbol        string  `json:"symbol"`
		Side          string  `json:"side"` // "buy" or "sell"
		Qty           string  `json:"qty"`
		FilledQty     string  `json:"filled_qty"`
		FilledAvgPrice string `json:"filled_avg_price"`
		Status        string  `json:"status"`
		CreatedAt     string  `json:"created_at"`
		UpdatedAt     string  `json:"updated_at"`
	} `json:"order"`
}

// ────────────────────────────────────────────────────────────────────
// Broker-agnostic order update
// ────────────────────────────────────────────────────────────────────

// OrderUpdate is the broker-agnostic representation of a status change.
// Callbacks receive this instead of the raw Alpaca trade_updates payload
// so that upstream code is not coupled to Alpaca's wire format.
type OrderUpdate struct {
	OrderID       string
	CorrelationID string // maps to the Tag/SignalID used when placing the order
	Symbol        string
	Status        broker.OrderStatus
	Side          string  // "BUY" or "SELL"
	Quantity      int     // total order quantity
	FilledQty     int     // quantity filled so far
	PendingQty    int     // remaining quantity
	AveragePrice  float64 // average fill price
	ErrorCode     string  // OMS error code (if rejected/cancelled)
	ErrorMessage  string  // human-readable error (if rejected/cancelled)
	ReceivedAt    time.Time
}

// ────────────────────────────────────────────────────────────────────
// Callback type
// ────────────────────────────────────────────────────────────────────

// OrderUpdateHandler is called whenever a valid postback is received.
type OrderUpdateHandler func(update OrderUpdate)

// ────────────────────────────────────────────────────────────────────
// Server
// ────────────────────────────────────────────────────────────────────

// Server is the HTTP webhook receiver.
type Server struct {
	cfg      Config
	logger   *log.Logger
	srv      *http.Server
	mu       sync.RWMutex
	handlers []OrderUpdateHandler
	updates  []OrderUpdate // ring buffer for recent updates (for debugging)
}

// NewServer creates a new webhook server. It does not start listening
// until Start() is called.
func NewServer(cfg Config, logger *log.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

// OnOrderUpdate registers a handler that will be called for every
// validated postback. Multiple handlers may be registered.
func (s *Server) OnOrderUpdate(h OrderUpdateHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

// RecentUpdates returns a copy of the last N order updates (for status/debug).
func (s *Server) RecentUpdates(n int) []OrderUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n > len(s.updates) {
		n = len(s.updates)
	}
	out := make([]OrderUpdate, n)
	copy(out, s.updates[len(s.updates)-n:])
	return out
}

// Start begins listening for postback HTTP requests.
// It returns immediately; the server runs in a background goroutine.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	path := s.cfg.Path
	if path == "" {
		path = "/webhook/alpaca/trade-update"
	}
	mux.HandleFunc(path, s.handleTradeUpdate)

	// Health check endpoint.
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"ok"}`)
	})

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Printf("[webhook] starting server on %s%s", addr, path)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("[webhook] server error: %v", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the webhook server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	s.logger.Println("[webhook] shutting down server")
	return s.srv.Shutdown(ctx)
}

// ────────────────────────────────────────────────────────────────────
// HTTP handler
// ────────────────────────────────────────────────────────────────────

func (s *Server) handleTradeUpdate(w http.ResponseWriter, r *http.Request) {
	// Only accept POST.
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Decode JSON body.
	var tu AlpacaTradeUpdate
	if err := json.NewDecoder(r.Body).Decode(&tu); err != nil {
		s.logger.Printf("[webhook] invalid JSON payload: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// Basic validation.
	if tu.Order.ID == "" {
		s.logger.Println("[webhook] missing order.id in trade update")
		http.Error(w, "missing order.id", http.StatusBadRequest)
		return
	}

	qty, _ := strconv.Atoi(tu.Order.Qty)
	filled, _ := strconv.Atoi(tu.Order.FilledQty)
	avgPrice, _ := strconv.ParseFloat(tu.Order.FilledAvgPrice, 64)

	// Map to broker-agnostic OrderUpdate.
	update := OrderUpdate{
		OrderID:       tu.Order.ID,
		CorrelationID: tu.Order.ClientOrderID,
		Symbol:        tu.Order.Symbol,
		Status:        mapAlpacaOrderStatus(tu.Order.Status),
		Side:          strings.ToUpper(tu.Order.Side),
		Quantity:      qty,
		FilledQty:     filled,
		PendingQty:    qty - filled,
		AveragePrice:  avgPrice,
		ReceivedAt:    time.Now(),
	}
	if update.Status == broker.OrderStatusRejected {
		update.ErrorCode = tu.Event
		update.ErrorMessage = "order rejected: event=" + tu.Event
	}

	s.logger.Printf("[webhook] trade update: order=%s symbol=%s status=%s filled=%d/%d price=%.2f",
		update.OrderID, update.Symbol, update.Status, update.FilledQty, update.Quantity, update.AveragePrice)

	// Store in recent updates buffer (keep last 100).
	s.mu.Lock()
	s.updates = append(s.updates, update)
	if len(s.updates) > 100 {
		s.updates = s.updates[len(s.updates)-100:]
	}
	// Copy handlers under lock to avoid holding lock during callbacks.
	handlers := make([]OrderUpdateHandler, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	// Invoke all registered handlers.
	for _, h := range handlers {
		h(update)
	}

	// Respond 200 OK to the sender.
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, `{"received":true}`)
}

// ────────────────────────────────────────────────────────────────────
// Status mapping
// ────────────────────────────────────────────────────────────────────

// mapAlpacaOrderStatus converts Alpaca's order status string to the
// broker-agnostic OrderStatus enum.
func mapAlpacaOrderStatus(s string) broker.OrderStatus {
	switch s {
	case "filled":
		return broker.OrderStatusCompleted
	case "canceled", "expired":
		return broker.OrderStatusCancelled
	case "rejected":
		return broker.OrderStatusRejected
	case "new", "accepted", "pending_new":
		return broker.OrderStatusPending
	case "partially_filled":
		return broker.OrderStatusOpen
	default:
		return broker.OrderStatusPending
	}
}
