// Package execution - slippage.go computes per-fill execution quality,
// grounded on original_source/core/execution/executor.py's post-fill
// quality logging.
package execution

import (
	"github.com/nitinkhare/algoTradingAgent/internal/storage"
)

// quality builds an ExecutionQualityRecord comparing the requested price
// and quantity against what the broker actually filled.
func quality(ticker, orderID string, expectedPrice, fillPrice float64, requestedQty, filledQty int) *storage.ExecutionQualityRecord {
	slippage := fillPrice - expectedPrice
	slippagePct := 0.0
	if expectedPrice != 0 {
		slippagePct = slippage / expectedPrice * 100
	}
	fillRatio := 0.0
	if requestedQty != 0 {
		fillRatio = float64(filledQty) / float64(requestedQty)
	}

	return &storage.ExecutionQualityRecord{
		Ticker:           ticker,
		OrderID:          orderID,
		ExpectedPrice:    expectedPrice,
		FillPrice:        fillPrice,
		PriceSlippage:    slippage,
		PriceSlippagePct: slippagePct,
		RequestedQty:     requestedQty,
		FilledQty:        filledQty,
		FillRatio:        fillRatio,
		PartialFill:      filledQty > 0 && filledQty < requestedQty,
	}
}
