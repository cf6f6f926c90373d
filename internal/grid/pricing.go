package grid

import (
	"math/rand"
	"time"
)

// PriceSource simulates UK wholesale electricity prices. In production
// this would read National Grid ESO day-ahead or EPEX SPOT prices; the
// simulated curve keeps the same daily shape: peaks in the morning and
// evening, troughs overnight.
type PriceSource struct {
	rng *rand.Rand
}

// NewPriceSource creates a seeded price source. Seeded sources make the
// curve reproducible in tests.
func NewPriceSource(seed int64) *PriceSource {
	return &PriceSource{rng: rand.New(rand.NewSource(seed))}
}

// At returns a wholesale price in £/kWh for the given time of day.
func (p *PriceSource) At(t time.Time) float64 {
	hour := t.Hour()

	var base float64
	switch {
	case (hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 20):
		// Peak hours
		base = 0.08 + p.rng.Float64()*0.07
	case hour <= 5:
		// Night hours - lowest prices
		base = 0.03 + p.rng.Float64()*0.03
	default:
		base = 0.05 + p.rng.Float64()*0.04
	}

	return float64(int(base*10000)) / 10000
}
