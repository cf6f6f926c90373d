package engine

import (
	"github.com/shopspring/decimal"

	"gridflex/pkg/units"
)

// CostSavings estimates the saving from running energyKWh at optimalPrice
// instead of currentPrice, in £ rounded to two decimals. Clamped to zero:
// a deferral is never reported as harmful even when the heuristic optimal
// price turns out worse than the current one.
func CostSavings(energyKWh, currentPrice, optimalPrice float64) decimal.Decimal {
	delta := decimal.NewFromFloat(currentPrice).Sub(decimal.NewFromFloat(optimalPrice))
	savings := decimal.NewFromFloat(energyKWh).Mul(delta).Round(2)
	if savings.IsNegative() {
		return decimal.Zero
	}
	return savings
}

// CarbonReduction estimates the emission cut from running energyKWh at
// optimalCarbon instead of currentCarbon, in grams CO2 rounded to two
// decimals. Clamped to zero like CostSavings.
func CarbonReduction(energyKWh, currentCarbon, optimalCarbon float64) float64 {
	reduction := units.Round2(energyKWh * (currentCarbon - optimalCarbon))
	if reduction < 0 {
		return 0
	}
	return reduction
}
