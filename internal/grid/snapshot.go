// Package grid provides grid market data: carbon intensity, wholesale
// price, and the refresh loop that keeps a classified snapshot current.
package grid

import (
	"context"
	"time"

	"gridflex/decision/market"
)

// Snapshot is a point-in-time view of grid conditions.
// Immutable once constructed; a new snapshot is built on every refresh.
type Snapshot struct {
	Timestamp          time.Time        `json:"timestamp"`
	CarbonIntensity    float64          `json:"carbon_intensity"`    // gCO2/kWh
	Price              float64          `json:"energy_price"`        // £/kWh
	RenewablePercent   float64          `json:"renewable_percentage"`
	ForecastNextPeriod *float64         `json:"forecast_next_hour,omitempty"` // gCO2/kWh
	Condition          market.Condition `json:"market_condition"`
}

// Source fetches raw grid data. Implementations must not retry internally;
// the monitor owns the fallback policy when a fetch fails.
type Source interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}
