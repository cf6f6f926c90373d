package flexibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridflex/internal/grid"
	"gridflex/internal/workload"
)

func deferredJobs(t *testing.T, energies ...float64) []*workload.Job {
	t.Helper()
	jobs := make([]*workload.Job, 0, len(energies))
	for _, kwh := range energies {
		job, err := workload.NewJob(workload.Spec{
			Type:             workload.TypeLLMTraining,
			Priority:         workload.PriorityMedium,
			EnergyKWh:        kwh,
			DurationHours:    4,
			Deferrable:       true,
			MaxDeferralHours: 8,
		})
		require.NoError(t, err)
		jobs = append(jobs, job)
	}
	return jobs
}

func TestValueServiceBands(t *testing.T) {
	tests := []struct {
		name        string
		carbon      float64
		wantService string
		wantPrice   string
	}{
		{"high carbon selects dynamic moderation", 220, ServiceDynamicModeration, "17.50"},
		{"low carbon selects demand turn up", 80, ServiceDemandTurnUp, "12.00"},
		{"mid band selects dynamic containment", 150, ServiceDynamicContainment, "9.50"},
		{"exactly at high band is containment", 200, ServiceDynamicContainment, "9.50"},
		{"exactly at low band is containment", 100, ServiceDynamicContainment, "9.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &grid.Snapshot{CarbonIntensity: tt.carbon}
			v := Value(deferredJobs(t, 100), snap, time.Second, time.Now())
			assert.Equal(t, tt.wantService, v.Service)
			assert.Equal(t, tt.wantPrice, v.ClearingPriceGBPMWh.StringFixed(2))
		})
	}
}

func TestValueRevenue(t *testing.T) {
	// 300 kWh = 0.3 MW at £17.50/MW·h = £5.25/hour.
	snap := &grid.Snapshot{CarbonIntensity: 220}
	v := Value(deferredJobs(t, 100, 120, 80), snap, time.Second, time.Now())

	assert.Equal(t, 0.3, v.CapacityMW)
	assert.Equal(t, "5.25", v.RevenueGBPPerHour.StringFixed(2))
	assert.Equal(t, 3, v.DeferredJobs)
	assert.Equal(t, 220.0, v.GridCarbonIntensity)
}

func TestValueCompliance(t *testing.T) {
	snap := &grid.Snapshot{CarbonIntensity: 150}

	v := Value(deferredJobs(t, 100), snap, 500*time.Millisecond, time.Now())
	assert.True(t, v.Compliant)
	assert.Equal(t, 0.5, v.ResponseTimeSeconds)

	v = Value(deferredJobs(t, 100), snap, 3*time.Second, time.Now())
	assert.False(t, v.Compliant)

	// The two-second requirement is exclusive.
	v = Value(deferredJobs(t, 100), snap, 2*time.Second, time.Now())
	assert.False(t, v.Compliant)
}

func TestValueEmptyBatch(t *testing.T) {
	snap := &grid.Snapshot{CarbonIntensity: 150}
	v := Value(nil, snap, time.Second, time.Now())

	assert.Equal(t, 0.0, v.CapacityMW)
	assert.Equal(t, "0.00", v.RevenueGBPPerHour.StringFixed(2))
	assert.Equal(t, 0, v.DeferredJobs)
}
