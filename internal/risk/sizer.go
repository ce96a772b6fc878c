package risk

import (
	"math"

	"github.com/nitinkhare/algoTradingAgent/internal/config"
)

// SizeInputs is everything the Position Sizer needs for one candidate entry.
type SizeInputs struct {
	AvailableCapital float64
	Confidence       float64 // 0-100
	Price            float64
	ATR              float64
	StopLoss         float64
}

// SizeResult is the Position Sizer's output (spec.md §4.5).
type SizeResult struct {
	Shares       int
	DollarAmount float64
	VolMultiplier float64
}

// PositionSizer computes share counts from the exact formula in spec.md §4.5:
//
//	base   = min(max_per_trade, available_capital * 0.2)
//	scaled = base * (confidence / 100)
//	vol_mult = 0.5 if atr/price > 0.05, 1.2 if atr/price < 0.01, else 1.0
//	final  = min(scaled * vol_mult, max_per_trade)
//	shares = floor(final / price)
type PositionSizer struct {
	cfg config.RiskConfig
}

// NewPositionSizer creates a PositionSizer from risk config.
func NewPositionSizer(cfg config.RiskConfig) *PositionSizer {
	return &PositionSizer{cfg: cfg}
}

// Size computes the share count and dollar amount for a candidate entry.
func (s *PositionSizer) Size(in SizeInputs) SizeResult {
	base := math.Min(s.cfg.MaxPerTrade, in.AvailableCapital*0.2)
	scaled := base * (in.Confidence / 100)

	volMult := 1.0
	if in.Price > 0 {
		ratio := in.ATR / in.Price
		switch {
		case ratio > 0.05:
			volMult = 0.5
		case ratio < 0.01:
			volMult = 1.2
		}
	}

	final := math.Min(scaled*volMult, s.cfg.MaxPerTrade)
	shares := 0
	if in.Price > 0 {
		shares = int(math.Floor(final / in.Price))
	}

	return SizeResult{
		Shares:        shares,
		DollarAmount:  final,
		VolMultiplier: volMult,
	}
}

// ValidateRisk rejects a sized entry whose per-share stop-loss risk is
// disproportionate to capital: reject if risk/capital exceeds 2x
// risk_per_trade_pct, or if risk exceeds 5%% of capital outright.
func (s *PositionSizer) ValidateRisk(shares int, price, stopLoss, capital float64) (bool, string) {
	if capital <= 0 {
		return false, "NO_CAPITAL"
	}
	perShareRisk := price - stopLoss
	if perShareRisk < 0 {
		perShareRisk = 0
	}
	risk := perShareRisk * float64(shares)

	if risk/capital > 2*(s.cfg.RiskPerTradePct/100) {
		return false, "RISK_EXCEEDS_2X_PER_TRADE_PCT"
	}
	if risk > 0.05*capital {
		return false, "RISK_EXCEEDS_5PCT_CAPITAL"
	}
	return true, ""
}
