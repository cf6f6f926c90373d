package engine

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridflex/internal/grid"
	"gridflex/internal/workload"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testJob(t *testing.T, spec workload.Spec) *workload.Job {
	t.Helper()
	job, err := workload.NewJob(spec)
	require.NoError(t, err)
	return job
}

func snapshot(carbon, price float64) *grid.Snapshot {
	return &grid.Snapshot{
		Timestamp:       time.Now(),
		CarbonIntensity: carbon,
		Price:           price,
	}
}

func TestDecideCriticalAlwaysExecutesNow(t *testing.T) {
	eng := NewEngine(DefaultConfig(), testLogger())

	// Worst possible grid: critical jobs still run immediately.
	snap := snapshot(500, 0.30)

	critical := testJob(t, workload.Spec{
		Type:          workload.TypeInferenceRealtime,
		Priority:      workload.PriorityCritical,
		EnergyKWh:     50,
		DurationHours: 1,
		Deferrable:    true,
	})
	d := eng.Decide(critical, snap)
	assert.Equal(t, ActionExecuteNow, d.Action)
	assert.Equal(t, RationaleSLACritical, d.Rationale)
	assert.Nil(t, d.DeferUntil)
	assert.True(t, d.CostSavingsGBP.IsZero())

	nonDeferrable := testJob(t, workload.Spec{
		Type:          workload.TypeDataProcessing,
		Priority:      workload.PriorityLow,
		EnergyKWh:     50,
		DurationHours: 1,
		Deferrable:    false,
	})
	d = eng.Decide(nonDeferrable, snap)
	assert.Equal(t, ActionExecuteNow, d.Action)
	assert.Equal(t, RationaleSLACritical, d.Rationale)
}

func TestDecideOptimalConditions(t *testing.T) {
	eng := NewEngine(DefaultConfig(), testLogger())
	job := testJob(t, workload.Spec{
		Type:             workload.TypeLLMTraining,
		Priority:         workload.PriorityMedium,
		EnergyKWh:        200,
		DurationHours:    8,
		Deferrable:       true,
		MaxDeferralHours: 12,
	})

	d := eng.Decide(job, snapshot(90, 0.06))
	assert.Equal(t, ActionExecuteNow, d.Action)
	assert.Equal(t, RationaleOptimalConditions, d.Rationale)
	assert.Nil(t, d.DeferUntil)

	// Thresholds are inclusive.
	d = eng.Decide(job, snapshot(150, 0.12))
	assert.Equal(t, ActionExecuteNow, d.Action)
	assert.Equal(t, RationaleOptimalConditions, d.Rationale)
}

func TestDecideHighCarbonDefers(t *testing.T) {
	eng := NewEngine(DefaultConfig(), testLogger())
	job := testJob(t, workload.Spec{
		Type:             workload.TypeLLMTraining,
		Priority:         workload.PriorityMedium,
		EnergyKWh:        150,
		DurationHours:    6,
		Deferrable:       true,
		MaxDeferralHours: 6,
	})

	forecast := 85.0
	snap := snapshot(245, 0.09)
	snap.ForecastNextPeriod = &forecast

	before := time.Now()
	d := eng.Decide(job, snap)

	assert.Equal(t, ActionDefer, d.Action)
	assert.Equal(t, RationaleHighCarbon, d.Rationale)
	assert.Equal(t, forecast, d.OptimalCarbon)

	// 150 kWh * (245 - 85) gCO2/kWh = 24000 g
	assert.Equal(t, 24000.0, d.CarbonReductionGrams)

	// 150 kWh * (0.09 - 0.063) £/kWh = £4.05
	assert.Equal(t, "4.05", d.CostSavingsGBP.StringFixed(2))

	require.NotNil(t, d.DeferUntil)
	assert.WithinDuration(t, before.Add(6*time.Hour), *d.DeferUntil, 5*time.Second)
}

func TestDecideHighCarbonWithoutForecastHalvesIntensity(t *testing.T) {
	eng := NewEngine(DefaultConfig(), testLogger())
	job := testJob(t, workload.Spec{
		Type:             workload.TypeImageTraining,
		Priority:         workload.PriorityLow,
		EnergyKWh:        100,
		DurationHours:    4,
		Deferrable:       true,
		MaxDeferralHours: 24,
	})

	d := eng.Decide(job, snapshot(300, 0.10))
	assert.Equal(t, RationaleHighCarbon, d.Rationale)
	assert.Equal(t, 150.0, d.OptimalCarbon)
	assert.Equal(t, 15000.0, d.CarbonReductionGrams)
}

func TestDecideHighPriceDefers(t *testing.T) {
	cfg := DefaultConfig()
	eng := NewEngine(cfg, testLogger())
	job := testJob(t, workload.Spec{
		Type:             workload.TypeModelFinetuning,
		Priority:         workload.PriorityMedium,
		EnergyKWh:        100,
		DurationHours:    3,
		Deferrable:       true,
		MaxDeferralHours: 12,
	})

	before := time.Now()
	d := eng.Decide(job, snapshot(120, 0.18))

	assert.Equal(t, ActionDefer, d.Action)
	assert.Equal(t, RationaleHighPrice, d.Rationale)

	// Optimal price is 70% of the threshold, not of the current price.
	assert.InDelta(t, cfg.PriceThreshold*0.7, d.OptimalPrice, 1e-9)

	// 100 kWh * (0.18 - 0.084) = £9.60
	assert.Equal(t, "9.60", d.CostSavingsGBP.StringFixed(2))

	// Off-peak deferral caps at 4 hours.
	require.NotNil(t, d.DeferUntil)
	assert.WithinDuration(t, before.Add(4*time.Hour), *d.DeferUntil, 5*time.Second)
}

func TestDecideDeferralCappedByJobWindow(t *testing.T) {
	eng := NewEngine(DefaultConfig(), testLogger())
	job := testJob(t, workload.Spec{
		Type:             workload.TypeInferenceBatch,
		Priority:         workload.PriorityHigh,
		EnergyKWh:        40,
		DurationHours:    2,
		Deferrable:       true,
		MaxDeferralHours: 2,
	})

	before := time.Now()
	d := eng.Decide(job, snapshot(300, 0.05))
	require.NotNil(t, d.DeferUntil)
	assert.WithinDuration(t, before.Add(2*time.Hour), *d.DeferUntil, 5*time.Second)
}

func TestDecideRecordsMetricsAndHistory(t *testing.T) {
	eng := NewEngine(DefaultConfig(), testLogger())

	deferrable := testJob(t, workload.Spec{
		Type:             workload.TypeLLMTraining,
		Priority:         workload.PriorityMedium,
		EnergyKWh:        100,
		DurationHours:    4,
		Deferrable:       true,
		MaxDeferralHours: 8,
	})

	eng.Decide(deferrable, snapshot(250, 0.09)) // defer
	eng.Decide(deferrable, snapshot(90, 0.06))  // execute
	eng.Decide(deferrable, snapshot(250, 0.09)) // defer

	m := eng.Metrics()
	assert.Equal(t, 3, m.TotalDecisions)
	assert.Equal(t, 1, m.ExecutedImmediately)
	assert.Equal(t, 2, m.Deferred)
	assert.True(t, m.CostSavedGBP.IsPositive())
	assert.Equal(t, 100.0, m.SLAComplianceRate)

	recent := eng.RecentDecisions(2)
	require.Len(t, recent, 2)
	// Most recent first.
	assert.Equal(t, ActionDefer, recent[0].Action)
	assert.Equal(t, ActionExecuteNow, recent[1].Action)
}

func TestOptimizeQueue(t *testing.T) {
	eng := NewEngine(DefaultConfig(), testLogger())

	jobs := []*workload.Job{
		testJob(t, workload.Spec{
			Type: workload.TypeInferenceRealtime, Priority: workload.PriorityCritical,
			EnergyKWh: 20, DurationHours: 1,
		}),
		testJob(t, workload.Spec{
			Type: workload.TypeLLMTraining, Priority: workload.PriorityMedium,
			EnergyKWh: 300, DurationHours: 10, Deferrable: true, MaxDeferralHours: 12,
		}),
		testJob(t, workload.Spec{
			Type: workload.TypeDataProcessing, Priority: workload.PriorityLow,
			EnergyKWh: 100, DurationHours: 3, Deferrable: true, MaxDeferralHours: 24,
		}),
	}

	decisions, valuation := eng.OptimizeQueue(jobs, snapshot(250, 0.09))
	require.Len(t, decisions, 3)

	// Input order is preserved.
	for i, d := range decisions {
		assert.Equal(t, jobs[i].ID, d.JobID)
	}

	assert.Equal(t, ActionExecuteNow, decisions[0].Action)
	assert.Equal(t, ActionDefer, decisions[1].Action)
	assert.Equal(t, ActionDefer, decisions[2].Action)

	require.NotNil(t, valuation)
	assert.Equal(t, 2, valuation.DeferredJobs)
	// 400 kWh deferred = 0.4 MW offered.
	assert.Equal(t, 0.4, valuation.CapacityMW)
}

func TestOptimizeQueueNoDeferralsNoValuation(t *testing.T) {
	eng := NewEngine(DefaultConfig(), testLogger())
	jobs := []*workload.Job{
		testJob(t, workload.Spec{
			Type: workload.TypeInferenceBatch, Priority: workload.PriorityMedium,
			EnergyKWh: 50, DurationHours: 2, Deferrable: true, MaxDeferralHours: 8,
		}),
	}

	decisions, valuation := eng.OptimizeQueue(jobs, snapshot(90, 0.05))
	require.Len(t, decisions, 1)
	assert.Nil(t, valuation)
}

func TestDecideConcurrent(t *testing.T) {
	eng := NewEngine(DefaultConfig(), testLogger())
	job := testJob(t, workload.Spec{
		Type: workload.TypeLLMTraining, Priority: workload.PriorityMedium,
		EnergyKWh: 100, DurationHours: 4, Deferrable: true, MaxDeferralHours: 8,
	})
	snap := snapshot(250, 0.09)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			eng.Decide(job, snap)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, eng.Metrics().TotalDecisions)
}
