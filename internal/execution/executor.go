// Package execution implements order placement, fill tracking, and exit
// monitoring — the Executor and Exit Monitor of spec.md §4.7/§4.8, grounded
// on original_source/core/execution/executor.py and monitor.py.
package execution

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/nitinkhare/algoTradingAgent/internal/broker"
	"github.com/nitinkhare/algoTradingAgent/internal/storage"
)

// ResultStatus is the outcome of a single execute_entry/execute_exit call.
type ResultStatus string

const (
	ResultFilled ResultStatus = "FILLED"
	ResultPending ResultStatus = "PENDING"
	ResultFailed  ResultStatus = "FAILED"
)

// Result is returned by ExecuteEntry/ExecuteExit and by each resolved entry
// from CheckPendingOrders.
type Result struct {
	Status    ResultStatus
	TicketID  string
	OrderID   string
	Ticker    string
	FillPrice float64
	Quantity  int
	Error     string
}

// pendingOrder tracks a submitted order that did not fill immediately,
// keyed by the broker's order id, so CheckPendingOrders can poll it.
type pendingOrder struct {
	Ticker        string
	TicketID      string
	Side          broker.OrderSide
	RequestedQty  int
	ExpectedPrice float64
}

// Executor submits entry/exit orders and tracks non-immediate fills in an
// in-memory pending map keyed by broker order id.
type Executor struct {
	broker broker.Broker
	store  storage.Store

	mu      sync.Mutex
	pending map[string]*pendingOrder
}

// NewExecutor creates an Executor against the given broker and store.
func NewExecutor(b broker.Broker, store storage.Store) *Executor {
	return &Executor{
		broker:  b,
		store:   store,
		pending: make(map[string]*pendingOrder),
	}
}

// ticketID generates a ticket id of the form TKT-xxxxxxxx (8 hex chars),
// assigned at submission time regardless of whether the order fills
// immediately.
func ticketID(prefix string) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively unreachable on a sane OS; fall
		// back to a fixed suffix rather than panicking mid-order.
		return prefix + "-00000000"
	}
	return prefix + "-" + hex.EncodeToString(buf)
}

// ExecuteEntry submits a day-only entry order. A LIMIT order that does not
// fill immediately is tracked in the pending map for CheckPendingOrders to
// resolve on a later tick.
func (e *Executor) ExecuteEntry(ctx context.Context, ticker string, price float64, qty int, orderType broker.OrderType, tag string) (Result, error) {
	return e.submit(ctx, ticker, broker.OrderSideBuy, price, qty, orderType, tag)
}

// ExecuteExit submits a day-only exit order. Stop-loss exits must always be
// submitted as orderType=broker.OrderTypeMarket by the caller — the
// Executor itself enforces no policy about which exits are stop-losses,
// that decision belongs to the Exit Monitor.
func (e *Executor) ExecuteExit(ctx context.Context, ticker string, price float64, qty int, orderType broker.OrderType, tag string) (Result, error) {
	return e.submit(ctx, ticker, broker.OrderSideSell, price, qty, orderType, tag)
}

func (e *Executor) submit(ctx context.Context, ticker string, side broker.OrderSide, price float64, qty int, orderType broker.OrderType, tag string) (Result, error) {
	tkt := ticketID("TKT")

	order := broker.Order{
		Symbol:   ticker,
		Side:     side,
		Type:     orderType,
		TIF:      broker.TIFDay,
		Quantity: qty,
		Price:    price,
		Tag:      tkt,
	}
	if tag != "" {
		order.Tag = tag + "-" + tkt
	}

	resp, err := e.broker.SubmitOrder(ctx, order)
	if err != nil {
		return Result{Status: ResultFailed, TicketID: tkt, Ticker: ticker, Error: err.Error()}, nil
	}

	switch resp.Status {
	case broker.OrderStatusRejected, broker.OrderStatusCancelled:
		return Result{Status: ResultFailed, TicketID: tkt, Ticker: ticker, OrderID: resp.OrderID, Error: resp.Message}, nil

	case broker.OrderStatusCompleted:
		detail, err := e.broker.GetOrderByID(ctx, resp.OrderID)
		if err != nil {
			return Result{}, fmt.Errorf("execution: fetch fill detail for %s: %w", resp.OrderID, err)
		}
		e.recordQuality(ctx, ticker, resp.OrderID, price, detail.AveragePrice, qty, detail.FilledQty)
		return Result{
			Status:    ResultFilled,
			TicketID:  tkt,
			OrderID:   resp.OrderID,
			Ticker:    ticker,
			FillPrice: detail.AveragePrice,
			Quantity:  detail.FilledQty,
		}, nil

	default:
		e.mu.Lock()
		e.pending[resp.OrderID] = &pendingOrder{
			Ticker:        ticker,
			TicketID:      tkt,
			Side:          side,
			RequestedQty:  qty,
			ExpectedPrice: price,
		}
		e.mu.Unlock()
		return Result{Status: ResultPending, TicketID: tkt, OrderID: resp.OrderID, Ticker: ticker}, nil
	}
}

// CheckPendingOrders polls every order in the pending map and returns the
// Result for each one that has reached a terminal broker state. Resolved
// orders are removed from the map; orders still open/pending are left in
// place for the next tick.
func (e *Executor) CheckPendingOrders(ctx context.Context) ([]Result, error) {
	e.mu.Lock()
	snapshot := make(map[string]*pendingOrder, len(e.pending))
	for id, p := range e.pending {
		snapshot[id] = p
	}
	e.mu.Unlock()

	var results []Result
	for orderID, p := range snapshot {
		detail, err := e.broker.GetOrderByID(ctx, orderID)
		if err != nil {
			return results, fmt.Errorf("execution: check pending order %s: %w", orderID, err)
		}

		switch detail.Status {
		case broker.OrderStatusCompleted:
			e.recordQuality(ctx, p.Ticker, orderID, p.ExpectedPrice, detail.AveragePrice, p.RequestedQty, detail.FilledQty)
			results = append(results, Result{
				Status:    ResultFilled,
				TicketID:  p.TicketID,
				OrderID:   orderID,
				Ticker:    p.Ticker,
				FillPrice: detail.AveragePrice,
				Quantity:  detail.FilledQty,
			})
			e.removePending(orderID)

		case broker.OrderStatusRejected, broker.OrderStatusCancelled:
			results = append(results, Result{
				Status:   ResultFailed,
				TicketID: p.TicketID,
				OrderID:  orderID,
				Ticker:   p.Ticker,
				Error:    detail.Message,
			})
			e.removePending(orderID)
		}
		// PENDING/OPEN: left in the map for the next tick.
	}
	return results, nil
}

// PendingCount reports how many orders are still awaiting resolution in the
// in-memory pending map.
func (e *Executor) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// TrackPending registers an already-submitted broker order so it resolves
// through the normal CheckPendingOrders path. Nothing in the engine calls it
// at startup: the pending map is not rebuilt after a process restart.
func (e *Executor) TrackPending(orderID, ticker, ticketID string, side broker.OrderSide, qty int, expectedPrice float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending[orderID] = &pendingOrder{
		Ticker:        ticker,
		TicketID:      ticketID,
		Side:          side,
		RequestedQty:  qty,
		ExpectedPrice: expectedPrice,
	}
}

func (e *Executor) removePending(orderID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, orderID)
}

func (e *Executor) recordQuality(ctx context.Context, ticker, orderID string, expectedPrice, fillPrice float64, requestedQty, filledQty int) {
	rec := quality(ticker, orderID, expectedPrice, fillPrice, requestedQty, filledQty)
	_ = e.store.SaveExecutionQuality(ctx, rec) // quality logging never blocks order flow
}
