package api

import (
	"fmt"

	"gridflex/decision/engine"
	"gridflex/pkg/units"
)

// Explanation renders human-readable prose for a decision. The engine
// emits structured fields only; text belongs at the boundary.
func Explanation(d engine.Decision, cfg engine.Config) string {
	switch d.Rationale {
	case engine.RationaleSLACritical:
		return "Critical priority job - must execute immediately to meet SLA commitments."
	case engine.RationaleOptimalConditions:
		return fmt.Sprintf(
			"Optimal conditions: carbon at %.0f gCO2/kWh (<=%.0f), price at £%.3f/kWh (<=£%.2f). Executing now.",
			d.CarbonIntensity, cfg.CarbonThreshold, d.PriceGBP, cfg.PriceThreshold)
	case engine.RationaleHighCarbon:
		return fmt.Sprintf(
			"High carbon intensity (%.0f gCO2/kWh > %.0f). Deferring to low-carbon window (est. %.0f gCO2/kWh) saves %.1f kgCO2.",
			d.CarbonIntensity, cfg.CarbonThreshold, d.OptimalCarbon,
			units.GramsToKg(d.CarbonReductionGrams))
	case engine.RationaleHighPrice:
		return fmt.Sprintf(
			"High energy price (£%.3f/kWh > £%.2f). Deferring to off-peak window (est. £%.3f/kWh) saves £%s.",
			d.PriceGBP, cfg.PriceThreshold, d.OptimalPrice, d.CostSavingsGBP.StringFixed(2))
	default:
		return "No significant benefit from deferring. Current conditions acceptable or deferral window too short."
	}
}
