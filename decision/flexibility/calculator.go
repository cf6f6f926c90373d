// Package flexibility values deferred workload capacity on the P415
// flexibility market. This is an advisory heuristic against typical
// clearing prices, not a live market clearing.
package flexibility

import (
	"time"

	"github.com/shopspring/decimal"

	"gridflex/internal/grid"
	"gridflex/internal/workload"
	"gridflex/pkg/units"
)

// Flexibility service names.
const (
	ServiceDynamicModeration  = "Dynamic Moderation"  // peak demand reduction
	ServiceDemandTurnUp       = "Demand Turn Up"      // absorb excess renewables
	ServiceDynamicContainment = "Dynamic Containment" // frequency response standby
)

// Carbon intensity bands selecting the service, gCO2/kWh.
const (
	highCarbonBand = 200.0
	lowCarbonBand  = 100.0
)

// Typical clearing prices, £/MW·h.
var (
	moderationPrice  = decimal.NewFromFloat(17.50)
	turnUpPrice      = decimal.NewFromFloat(12.00)
	containmentPrice = decimal.NewFromFloat(9.50)
)

// Dynamic Containment is the fastest service class; its response-time
// requirement bounds compliance for all of them.
const fastestResponseRequirement = 2 * time.Second

// Valuation is the flexibility market value of a batch of deferred jobs.
type Valuation struct {
	Service             string          `json:"service_type"`
	CapacityMW          float64         `json:"capacity_offered_mw"`
	ClearingPriceGBPMWh decimal.Decimal `json:"clearing_price_gbp_mw_h"`
	RevenueGBPPerHour   decimal.Decimal `json:"revenue_gbp_per_hour"`
	ResponseTime        time.Duration   `json:"-"`
	ResponseTimeSeconds float64         `json:"response_time_seconds"`
	Compliant           bool            `json:"p415_compliant"`
	GridCarbonIntensity float64         `json:"grid_carbon_intensity"`
	DeferredJobs        int             `json:"deferred_jobs_count"`
	SettlementPeriod    time.Time       `json:"settlement_period"`
}

// Value computes the service classification and hourly revenue for the
// deferred jobs under current grid conditions. Bands are evaluated in
// order: high carbon first, then low carbon, then the standby default.
func Value(deferred []*workload.Job, snap *grid.Snapshot, responseTime time.Duration, settlement time.Time) Valuation {
	var totalKWh float64
	for _, job := range deferred {
		totalKWh += job.EnergyKWh
	}
	capacityMW := units.Round2(units.KWhToMWh(totalKWh))

	var service string
	var clearingPrice decimal.Decimal
	switch {
	case snap.CarbonIntensity > highCarbonBand:
		// Grid under stress: defer compute to cut peak demand.
		service = ServiceDynamicModeration
		clearingPrice = moderationPrice
	case snap.CarbonIntensity < lowCarbonBand:
		// Excess renewable generation: schedule compute to absorb it.
		service = ServiceDemandTurnUp
		clearingPrice = turnUpPrice
	default:
		service = ServiceDynamicContainment
		clearingPrice = containmentPrice
	}

	revenue := decimal.NewFromFloat(capacityMW).Mul(clearingPrice).Round(2)

	return Valuation{
		Service:             service,
		CapacityMW:          capacityMW,
		ClearingPriceGBPMWh: clearingPrice,
		RevenueGBPPerHour:   revenue,
		ResponseTime:        responseTime,
		ResponseTimeSeconds: responseTime.Seconds(),
		Compliant:           responseTime < fastestResponseRequirement,
		GridCarbonIntensity: snap.CarbonIntensity,
		DeferredJobs:        len(deferred),
		SettlementPeriod:    settlement,
	}
}
