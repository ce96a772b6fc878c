// Package broker - paper.go implements the paper trading broker.
//
// The paper broker simulates order execution in memory: every order fills
// at its requested price.
// It uses the same interface as live brokers so all engine logic
// remains identical between paper and live modes.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// PaperBroker simulates broker operations for paper trading.
// Orders are filled immediately at the requested price (simplified).
type PaperBroker struct {
	mu        sync.Mutex
	account   Account
	orders    map[string]*paperOrder
	positions map[string]*Position
	nextID    int
}

type paperOrder struct {
	Order    Order
	Response OrderStatusResponse
}

// NewPaperBroker creates a paper broker with the given initial capital.
func NewPaperBroker(initialCapital float64) *PaperBroker {
	return &PaperBroker{
		account: Account{
			Cash:           initialCapital,
			BuyingPower:    initialCapital,
			PortfolioValue: initialCapital,
		},
		orders:    make(map[string]*paperOrder),
		positions: make(map[string]*Position),
	}
}

func (pb *PaperBroker) GetAccount(_ context.Context) (*Account, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	a := pb.account
	return &a, nil
}

func (pb *PaperBroker) GetAllPositions(_ context.Context) ([]Position, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	result := make([]Position, 0, len(pb.positions))
	for _, p := range pb.positions {
		result = append(result, *p)
	}
	return result, nil
}

func (pb *PaperBroker) GetOpenPosition(_ context.Context, symbol string) (*Position, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	p, ok := pb.positions[symbol]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// SubmitOrder simulates order placement. Market, limit, and stop orders all
// fill immediately at the requested price — paper mode does not model
// order-book depth or slippage. internal/execution/slippage.go only records
// the quality of the fills a broker reports; it does not simulate fills.
func (pb *PaperBroker) SubmitOrder(_ context.Context, order Order) (*OrderResponse, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	pb.nextID++
	orderID := fmt.Sprintf("PAPER-%d", pb.nextID)

	fillPrice := order.Price
	if order.Type == OrderTypeMarket || order.Type == OrderTypeStop {
		fillPrice = order.Price
	}

	cost := fillPrice * float64(order.Quantity)

	if order.Side == OrderSideBuy {
		if cost > pb.account.Cash {
			return &OrderResponse{
				OrderID:   orderID,
				Status:    OrderStatusRejected,
				Message:   "insufficient funds",
				Timestamp: time.Now(),
			}, nil
		}

		pb.account.Cash -= cost

		if p, exists := pb.positions[order.Symbol]; exists {
			totalQty := p.Quantity + order.Quantity
			p.AveragePrice = (p.AveragePrice*float64(p.Quantity) + fillPrice*float64(order.Quantity)) / float64(totalQty)
			p.Quantity = totalQty
			p.LastPrice = fillPrice
		} else {
			pb.positions[order.Symbol] = &Position{
				Symbol:       order.Symbol,
				Quantity:     order.Quantity,
				AveragePrice: fillPrice,
				LastPrice:    fillPrice,
			}
		}
	} else if order.Side == OrderSideSell {
		p, exists := pb.positions[order.Symbol]
		if !exists || p.Quantity < order.Quantity {
			return &OrderResponse{
				OrderID:   orderID,
				Status:    OrderStatusRejected,
				Message:   "insufficient position",
				Timestamp: time.Now(),
			}, nil
		}

		proceeds := fillPrice * float64(order.Quantity)
		pb.account.Cash += proceeds

		p.Quantity -= order.Quantity
		p.LastPrice = fillPrice
		if p.Quantity == 0 {
			delete(pb.positions, order.Symbol)
		}
	}

	pb.account.PortfolioValue = pb.portfolioValueLocked()

	pb.orders[orderID] = &paperOrder{
		Order: order,
		Response: OrderStatusResponse{
			OrderID:      orderID,
			Status:       OrderStatusCompleted,
			FilledQty:    order.Quantity,
			PendingQty:   0,
			AveragePrice: fillPrice,
			Message:      "paper fill",
			Timestamp:    time.Now(),
		},
	}

	return &OrderResponse{
		OrderID:   orderID,
		Status:    OrderStatusCompleted,
		Message:   "paper order filled",
		Timestamp: time.Now(),
	}, nil
}

func (pb *PaperBroker) portfolioValueLocked() float64 {
	total := pb.account.Cash
	for _, p := range pb.positions {
		total += p.LastPrice * float64(p.Quantity)
	}
	return total
}

func (pb *PaperBroker) CancelOrderByID(_ context.Context, orderID string) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	po, exists := pb.orders[orderID]
	if !exists {
		return fmt.Errorf("paper broker: order %s not found", orderID)
	}
	if po.Response.Status == OrderStatusCompleted {
		return fmt.Errorf("paper broker: order %s already completed", orderID)
	}

	po.Response.Status = OrderStatusCancelled
	return nil
}

func (pb *PaperBroker) GetOrderByID(_ context.Context, orderID string) (*OrderStatusResponse, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	po, exists := pb.orders[orderID]
	if !exists {
		return nil, fmt.Errorf("paper broker: order %s not found", orderID)
	}

	resp := po.Response
	return &resp, nil
}
