package workload

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGeneratorDeterministicWithSeed(t *testing.T) {
	a := NewGenerator(42, discardLogger()).NextBatch(20)
	b := NewGenerator(42, discardLogger()).NextBatch(20)

	require.Len(t, a, 20)
	require.Len(t, b, 20)
	for i := range a {
		assert.Equal(t, a[i].Type, b[i].Type)
		assert.Equal(t, a[i].Priority, b[i].Priority)
		assert.Equal(t, a[i].EnergyKWh, b[i].EnergyKWh)
		assert.Equal(t, a[i].DurationHours, b[i].DurationHours)
		assert.Equal(t, a[i].MaxDeferralHours, b[i].MaxDeferralHours)
	}
}

func TestGeneratorJobFieldsWithinModelRanges(t *testing.T) {
	gen := NewGenerator(7, discardLogger())

	for _, job := range gen.NextBatch(200) {
		er, ok := energyByType[job.Type]
		require.True(t, ok, "unknown workload type %q", job.Type)
		assert.GreaterOrEqual(t, job.EnergyKWh, er.min)
		assert.LessOrEqual(t, job.EnergyKWh, er.max)

		dr := durationByType[job.Type]
		assert.GreaterOrEqual(t, job.DurationHours, dr.min)
		assert.LessOrEqual(t, job.DurationHours, dr.max)

		assert.Equal(t, StatusQueued, job.Status)
	}
}

func TestGeneratorCriticalJobsNeverDeferrable(t *testing.T) {
	gen := NewGenerator(99, discardLogger())

	for _, job := range gen.NextBatch(200) {
		if job.Priority == PriorityCritical {
			assert.False(t, job.Deferrable)
			assert.Equal(t, 0, job.MaxDeferralHours)
		}
		if job.Type == TypeInferenceRealtime {
			assert.Equal(t, PriorityCritical, job.Priority)
		}
	}
}

func TestGeneratorDeferralWindowsByPriority(t *testing.T) {
	gen := NewGenerator(123, discardLogger())

	for _, job := range gen.NextBatch(300) {
		switch job.Priority {
		case PriorityHigh:
			assert.True(t, job.Deferrable)
			assert.GreaterOrEqual(t, job.MaxDeferralHours, 1)
			assert.LessOrEqual(t, job.MaxDeferralHours, 4)
		case PriorityMedium:
			assert.GreaterOrEqual(t, job.MaxDeferralHours, 4)
			assert.LessOrEqual(t, job.MaxDeferralHours, 12)
		case PriorityLow:
			assert.GreaterOrEqual(t, job.MaxDeferralHours, 12)
			assert.LessOrEqual(t, job.MaxDeferralHours, 24)
		}
	}
}
