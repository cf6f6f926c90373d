package workload

import (
	"math/rand"
	"time"

	"gridflex/pkg/confidence"
	"gridflex/pkg/units"
)

// DemandForecast is the expected compute demand for one future hour.
// These curves are synthetic stand-ins for a trained demand model; the
// decision engine consumes forecasts as provided inputs only.
type DemandForecast struct {
	Timestamp  time.Time `json:"timestamp"`
	Jobs       int       `json:"forecasted_jobs"`
	EnergyKWh  float64   `json:"forecasted_energy_kwh"`
	Confidence float64   `json:"confidence_score"`
}

// ForecastDemand simulates hourly demand from the typical datacenter
// daily load shape: high during business hours, lowest overnight.
func ForecastDemand(rng *rand.Rand, from time.Time, hoursAhead int) []DemandForecast {
	forecasts := make([]DemandForecast, 0, hoursAhead)

	for offset := 0; offset < hoursAhead; offset++ {
		slot := from.Add(time.Duration(offset) * time.Hour)
		hour := slot.Hour()

		var jobs int
		var energy, score float64
		switch {
		case hour >= 9 && hour <= 18:
			jobs = 15 + rng.Intn(11)
			energy = 800 + rng.Float64()*400
			score = confidence.BusinessConfidence
		case hour <= 6:
			// Night hours - the windows deferred jobs land in.
			jobs = 5 + rng.Intn(6)
			energy = 200 + rng.Float64()*200
			score = confidence.NightConfidence
		default:
			jobs = 10 + rng.Intn(6)
			energy = 400 + rng.Float64()*300
			score = confidence.OffPeakConfidence
		}

		forecasts = append(forecasts, DemandForecast{
			Timestamp:  slot,
			Jobs:       jobs,
			EnergyKWh:  units.Round2(energy),
			Confidence: confidence.Clamp(score),
		})
	}
	return forecasts
}

// OptimalWindow picks the lowest-demand slot within the job's deferral
// bound, provided that slot beats current demand by at least 30%.
// Returns the slot start and the aggregate confidence of the forecast
// consulted, or nil when the job should run now.
func OptimalWindow(job *Job, forecast []DemandForecast) (*time.Time, float64) {
	if !job.Deferrable || len(forecast) == 0 {
		return nil, 0
	}

	bound := job.MaxDeferralHours
	if bound > len(forecast) {
		bound = len(forecast)
	}
	if bound == 0 {
		return nil, 0
	}
	window := forecast[:bound]

	best := window[0]
	scores := make([]float64, 0, len(window))
	for _, f := range window {
		scores = append(scores, f.Confidence)
		if f.EnergyKWh < best.EnergyKWh {
			best = f
		}
	}

	current := window[0].EnergyKWh
	if best.EnergyKWh >= current*0.7 {
		return nil, 0
	}
	ts := best.Timestamp
	return &ts, confidence.Aggregate(scores)
}
