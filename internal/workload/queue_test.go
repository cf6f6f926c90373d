package workload

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queuedJob(t *testing.T, priority Priority, deferrable bool, energyKWh float64) *Job {
	t.Helper()
	maxDeferral := 0
	if deferrable {
		maxDeferral = 8
	}
	job, err := NewJob(Spec{
		Type:             TypeDataProcessing,
		Priority:         priority,
		EnergyKWh:        energyKWh,
		DurationHours:    2,
		Deferrable:       deferrable,
		MaxDeferralHours: maxDeferral,
	})
	require.NoError(t, err)
	return job
}

func TestQueuePartitions(t *testing.T) {
	q := NewQueue()
	q.Add(queuedJob(t, PriorityCritical, false, 10))
	q.Add(queuedJob(t, PriorityMedium, true, 100))
	q.Add(queuedJob(t, PriorityLow, true, 50))
	// Deferrable but critical priority still counts as critical.
	q.Add(queuedJob(t, PriorityCritical, true, 5))

	assert.Equal(t, 4, q.Len())
	assert.Len(t, q.Deferrable(), 3)
	assert.Len(t, q.Critical(), 2)
	assert.Equal(t, 165.0, q.TotalEnergyKWh())
}

func TestQueueJobsReturnsCopy(t *testing.T) {
	q := NewQueue()
	q.Add(queuedJob(t, PriorityMedium, true, 100))

	jobs := q.Jobs()
	require.Len(t, jobs, 1)
	jobs[0] = nil

	require.NotNil(t, q.Jobs()[0])
}

func TestQueueStatusTransitions(t *testing.T) {
	q := NewQueue()
	job := queuedJob(t, PriorityMedium, true, 100)
	q.Add(job)

	assert.True(t, q.MarkDeferred(job.ID))
	assert.Equal(t, StatusDeferred, job.Status)

	// A deferred job cannot be deferred again.
	assert.False(t, q.MarkDeferred(job.ID))

	assert.True(t, q.MarkRunning(job.ID))
	assert.Equal(t, StatusRunning, job.Status)

	// Running is terminal for the queue's transitions.
	assert.False(t, q.MarkRunning(job.ID))
	assert.False(t, q.MarkDeferred("job_missing"))
}

func TestQueueStats(t *testing.T) {
	q := NewQueue()
	q.Add(queuedJob(t, PriorityCritical, false, 10))
	q.Add(queuedJob(t, PriorityMedium, true, 100))
	q.Add(queuedJob(t, PriorityMedium, true, 50))

	stats := q.Stats()
	assert.Equal(t, 3, stats.TotalJobs)
	assert.Equal(t, 2, stats.DeferrableJobs)
	assert.Equal(t, 1, stats.CriticalJobs)
	assert.Equal(t, 160.0, stats.TotalEnergyKWh)
	assert.Equal(t, 2, stats.ByPriority[PriorityMedium])
	assert.Equal(t, 3, stats.ByType[TypeDataProcessing])
	assert.Equal(t, 3, stats.TotalSeen)

	// Every bucket is present even when empty.
	assert.Contains(t, stats.ByPriority, PriorityLow)
	assert.Contains(t, stats.ByType, TypeLLMTraining)
}

func TestQueueConcurrentAdd(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Add(queuedJob(t, PriorityLow, true, 10))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, q.Len())
	assert.Equal(t, 50, q.Stats().TotalSeen)
}
