package broker

import (
	"context"
	"testing"
)

func TestPaperBroker_InitialFunds(t *testing.T) {
	pb := NewPaperBroker(500000)
	ctx := context.Background()

	acct, err := pb.GetAccount(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acct.Cash != 500000 {
		t.Errorf("expected 500000, got %.2f", acct.Cash)
	}
}

func TestPaperBroker_BuyReducesCash(t *testing.T) {
	pb := NewPaperBroker(500000)
	ctx := context.Background()

	order := Order{
		Symbol:   "AAPL",
		Side:     OrderSideBuy,
		Type:     OrderTypeLimit,
		TIF:      TIFDay,
		Quantity: 10,
		Price:    250,
	}

	resp, err := pb.SubmitOrder(ctx, order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != OrderStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", resp.Status)
	}

	acct, _ := pb.GetAccount(ctx)
	expectedCash := 500000.0 - (250.0 * 10)
	if acct.Cash != expectedCash {
		t.Errorf("expected %.2f, got %.2f", expectedCash, acct.Cash)
	}
}

func TestPaperBroker_SellIncreasesCash(t *testing.T) {
	pb := NewPaperBroker(500000)
	ctx := context.Background()

	buyOrder := Order{
		Symbol: "MSFT", Side: OrderSideBuy,
		Type: OrderTypeLimit, Quantity: 5, Price: 350,
	}
	pb.SubmitOrder(ctx, buyOrder)

	sellOrder := Order{
		Symbol: "MSFT", Side: OrderSideSell,
		Type: OrderTypeLimit, Quantity: 5, Price: 360,
	}
	resp, err := pb.SubmitOrder(ctx, sellOrder)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != OrderStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", resp.Status)
	}

	acct, _ := pb.GetAccount(ctx)
	expectedCash := 500000.0 - 1750.0 + 1800.0
	if acct.Cash != expectedCash {
		t.Errorf("expected %.2f, got %.2f", expectedCash, acct.Cash)
	}
}

func TestPaperBroker_RejectsInsufficientFunds(t *testing.T) {
	pb := NewPaperBroker(1000)
	ctx := context.Background()

	order := Order{
		Symbol: "AAPL", Side: OrderSideBuy,
		Type: OrderTypeLimit, Quantity: 10, Price: 250,
	}

	resp, err := pb.SubmitOrder(ctx, order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != OrderStatusRejected {
		t.Errorf("expected REJECTED, got %s", resp.Status)
	}
}

func TestPaperBroker_RejectsInsufficientPosition(t *testing.T) {
	pb := NewPaperBroker(500000)
	ctx := context.Background()

	order := Order{
		Symbol: "MSFT", Side: OrderSideSell,
		Type: OrderTypeLimit, Quantity: 10, Price: 350,
	}

	resp, err := pb.SubmitOrder(ctx, order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != OrderStatusRejected {
		t.Errorf("expected REJECTED, got %s", resp.Status)
	}
}

func TestPaperBroker_PositionsTrack(t *testing.T) {
	pb := NewPaperBroker(500000)
	ctx := context.Background()

	order := Order{
		Symbol: "NVDA", Side: OrderSideBuy,
		Type: OrderTypeLimit, Quantity: 20, Price: 120,
	}
	pb.SubmitOrder(ctx, order)

	positions, err := pb.GetAllPositions(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	if positions[0].Symbol != "NVDA" || positions[0].Quantity != 20 {
		t.Errorf("unexpected position: %+v", positions[0])
	}

	single, err := pb.GetOpenPosition(ctx, "NVDA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if single == nil || single.Quantity != 20 {
		t.Errorf("unexpected single position lookup: %+v", single)
	}
}

func TestPaperBroker_OrderStatusTracked(t *testing.T) {
	pb := NewPaperBroker(500000)
	ctx := context.Background()

	order := Order{
		Symbol: "SPY", Side: OrderSideBuy,
		Type: OrderTypeLimit, Quantity: 50, Price: 60,
	}
	resp, _ := pb.SubmitOrder(ctx, order)

	status, err := pb.GetOrderByID(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != OrderStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", status.Status)
	}
	if status.FilledQty != 50 {
		t.Errorf("expected filled qty 50, got %d", status.FilledQty)
	}
}
