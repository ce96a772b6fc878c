package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/broker"
)

func newTestServer() *Server {
	logger := log.New(os.Stdout, "[test-webhook] ", log.LstdFlags)
	return NewServer(Config{
		Port:    0, // not used in tests (we use httptest)
		Path:    "/webhook/alpaca/trade-update",
		Enabled: true,
	}, logger)
}

func tradeUpdate(event, orderID, clientOrderID, symbol, side, status, qty, filledQty, avgPrice string) AlpacaTradeUpdate {
	var tu AlpacaTradeUpdate
	tu.Event = event
	tu.Order.ID = orderID
	tu.Order.ClientOrderID = clientOrderID
	tu.Order.Symbol = symbol
	tu.Order.Side = side
	tu.Order.Status = status
	tu.Order.Qty = qty
	tu.Order.FilledQty = filledQty
	tu.Order.FilledAvgPrice = avgPrice
	return tu
}

// postJSON sends a POST request with a JSON body to the server's handler.
func postJSON(s *Server, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/webhook/alpaca/trade-update", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.handleTradeUpdate(w, req)
	return w
}

func TestTradeUpdate_Filled(t *testing.T) {
	s := newTestServer()

	var received OrderUpdate
	var mu sync.Mutex
	s.OnOrderUpdate(func(u OrderUpdate) {
		mu.Lock()
		received = u
		mu.Unlock()
	})

	tu := tradeUpdate("fill", "ORD-123456", "sig_ai_composite_AAPL", "AAPL", "buy", "filled", "10", "10", "249.80")

	resp := postJSON(s, tu)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	mu.Lock()
	defer mu.Unlock()
	if received.OrderID != "ORD-123456" {
		t.Errorf("expected OrderID ORD-123456, got %s", received.OrderID)
	}
	if received.Status != broker.OrderStatusCompleted {
		t.Errorf("expected status COMPLETED, got %s", received.Status)
	}
	if received.Symbol != "AAPL" {
		t.Errorf("expected symbol AAPL, got %s", received.Symbol)
	}
	if received.Side != "BUY" {
		t.Errorf("expected side BUY, got %s", received.Side)
	}
	if received.FilledQty != 10 {
		t.Errorf("expected filledQty 10, got %d", received.FilledQty)
	}
	if received.AveragePrice != 249.80 {
		t.Errorf("expected avgPrice 249.80, got %.2f", received.AveragePrice)
	}
	if received.CorrelationID != "sig_ai_composite_AAPL" {
		t.Errorf("expected correlationID sig_ai_composite_AAPL, got %s", received.CorrelationID)
	}
	if received.PendingQty != 0 {
		t.Errorf("expected pendingQty 0, got %d", received.PendingQty)
	}
}

func TestTradeUpdate_Rejected(t *testing.T) {
	s := newTestServer()

	var received OrderUpdate
	var mu sync.Mutex
	s.OnOrderUpdate(func(u OrderUpdate) {
		mu.Lock()
		received = u
		mu.Unlock()
	})

	tu := tradeUpdate("rejected", "ORD-789", "", "MSFT", "buy", "rejected", "5", "0", "0")

	resp := postJSON(s, tu)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	mu.Lock()
	defer mu.Unlock()
	if received.Status != broker.OrderStatusRejected {
		t.Errorf("expected status REJECTED, got %s", received.Status)
	}
	if received.ErrorCode != "rejected" {
		t.Errorf("expected errorCode 'rejected', got %s", received.ErrorCode)
	}
	if received.ErrorMessage == "" {
		t.Error("expected a non-empty error message")
	}
}

func TestTradeUpdate_Canceled(t *testing.T) {
	s := newTestServer()

	var received OrderUpdate
	var mu sync.Mutex
	s.OnOrderUpdate(func(u OrderUpdate) {
		mu.Lock()
		received = u
		mu.Unlock()
	})

	tu := tradeUpdate("canceled", "ORD-CXL-100", "", "GOOG", "sell", "canceled", "20", "0", "0")

	resp := postJSON(s, tu)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	mu.Lock()
	defer mu.Unlock()
	if received.Status != broker.OrderStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", received.Status)
	}
	if received.Side != "SELL" {
		t.Errorf("expected side SELL, got %s", received.Side)
	}
}

func TestTradeUpdate_PartiallyFilled(t *testing.T) {
	s := newTestServer()

	var received OrderUpdate
	var mu sync.Mutex
	s.OnOrderUpdate(func(u OrderUpdate) {
		mu.Lock()
		received = u
		mu.Unlock()
	})

	tu := tradeUpdate("partial_fill", "ORD-PART-200", "", "NVDA", "buy", "partially_filled", "100", "40", "650.25")

	resp := postJSON(s, tu)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	mu.Lock()
	defer mu.Unlock()
	if received.Status != broker.OrderStatusOpen {
		t.Errorf("expected OPEN (partially_filled), got %s", received.Status)
	}
	if received.FilledQty != 40 {
		t.Errorf("expected filledQty 40, got %d", received.FilledQty)
	}
	if received.PendingQty != 60 {
		t.Errorf("expected pendingQty 60, got %d", received.PendingQty)
	}
}

func TestTradeUpdate_Expired(t *testing.T) {
	s := newTestServer()

	var received OrderUpdate
	var mu sync.Mutex
	s.OnOrderUpdate(func(u OrderUpdate) {
		mu.Lock()
		received = u
		mu.Unlock()
	})

	tu := tradeUpdate("expired", "ORD-EXP-300", "", "AMZN", "buy", "expired", "50", "0", "0")

	resp := postJSON(s, tu)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	mu.Lock()
	defer mu.Unlock()
	// expired maps to CANCELLED.
	if received.Status != broker.OrderStatusCancelled {
		t.Errorf("expected CANCELLED (expired), got %s", received.Status)
	}
}

func TestTradeUpdate_New(t *testing.T) {
	s := newTestServer()

	var received OrderUpdate
	var mu sync.Mutex
	s.OnOrderUpdate(func(u OrderUpdate) {
		mu.Lock()
		received = u
		mu.Unlock()
	})

	tu := tradeUpdate("new", "ORD-PND-400", "", "META", "buy", "new", "30", "0", "0")

	resp := postJSON(s, tu)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	mu.Lock()
	defer mu.Unlock()
	if received.Status != broker.OrderStatusPending {
		t.Errorf("expected PENDING, got %s", received.Status)
	}
}

func TestTradeUpdate_Accepted(t *testing.T) {
	s := newTestServer()

	var received OrderUpdate
	var mu sync.Mutex
	s.OnOrderUpdate(func(u OrderUpdate) {
		mu.Lock()
		received = u
		mu.Unlock()
	})

	tu := tradeUpdate("accepted", "ORD-TRS-500", "", "TSLA", "buy", "accepted", "15", "0", "0")

	resp := postJSON(s, tu)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	mu.Lock()
	defer mu.Unlock()
	if received.Status != broker.OrderStatusPending {
		t.Errorf("expected PENDING (accepted), got %s", received.Status)
	}
}

func TestTradeUpdate_InvalidJSON(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/webhook/alpaca/trade-update",
		bytes.NewReader([]byte(`{not valid json`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.handleTradeUpdate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid JSON, got %d", w.Code)
	}
}

func TestTradeUpdate_MissingOrderID(t *testing.T) {
	s := newTestServer()

	tu := tradeUpdate("fill", "", "", "AAPL", "buy", "filled", "10", "10", "249.80")

	resp := postJSON(s, tu)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing order id, got %d", resp.Code)
	}
}

func TestTradeUpdate_WrongMethod(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/webhook/alpaca/trade-update", nil)
	w := httptest.NewRecorder()
	s.handleTradeUpdate(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", w.Code)
	}
}

func TestTradeUpdate_MultipleHandlers(t *testing.T) {
	s := newTestServer()

	var wg sync.WaitGroup
	count := 0
	var mu sync.Mutex

	// Register 3 handlers.
	for i := 0; i < 3; i++ {
		wg.Add(1)
		s.OnOrderUpdate(func(_ OrderUpdate) {
			mu.Lock()
			count++
			mu.Unlock()
			wg.Done()
		})
	}

	tu := tradeUpdate("fill", "ORD-MULTI-600", "", "INTC", "buy", "filled", "100", "100", "35.10")

	postJSON(s, tu)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if count != 3 {
		t.Errorf("expected 3 handler invocations, got %d", count)
	}
}

func TestRecentUpdates(t *testing.T) {
	s := newTestServer()

	// Send 5 trade updates.
	for i := 1; i <= 5; i++ {
		tu := tradeUpdate("fill", fmt.Sprintf("ORD-%d", i), "", "AAPL", "buy", "filled", "10", "10", "150.00")
		postJSON(s, tu)
	}

	// Request last 3.
	recent := s.RecentUpdates(3)
	if len(recent) != 3 {
		t.Fatalf("expected 3 recent updates, got %d", len(recent))
	}
	if recent[0].OrderID != "ORD-3" {
		t.Errorf("expected first recent to be ORD-3, got %s", recent[0].OrderID)
	}
	if recent[2].OrderID != "ORD-5" {
		t.Errorf("expected last recent to be ORD-5, got %s", recent[2].OrderID)
	}
}

func TestServerStartShutdown(t *testing.T) {
	logger := log.New(os.Stdout, "[test-webhook] ", log.LstdFlags)
	s := NewServer(Config{
		Port:    18923, // unlikely to be in use
		Path:    "/webhook/alpaca/trade-update",
		Enabled: true,
	}, logger)

	if err := s.Start(); err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	// Give server time to bind.
	time.Sleep(50 * time.Millisecond)

	// Health check.
	resp, err := http.Get("http://localhost:18923/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health check expected 200, got %d", resp.StatusCode)
	}

	// Shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
}
