package workload

import (
	"sync"

	"gridflex/pkg/units"
)

// Queue holds jobs awaiting a scheduling decision. Appends and reads may
// happen concurrently; all access goes through the mutex.
type Queue struct {
	mu        sync.Mutex
	jobs      []*Job
	totalSeen int
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Add appends a job to the queue.
func (q *Queue) Add(job *Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	q.totalSeen++
}

// Jobs returns a snapshot copy of the queued jobs in arrival order.
func (q *Queue) Jobs() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Job, len(q.jobs))
	copy(out, q.jobs)
	return out
}

// Len returns the number of queued jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Deferrable returns the jobs whose start may be delayed.
func (q *Queue) Deferrable() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*Job
	for _, j := range q.jobs {
		if j.Deferrable {
			out = append(out, j)
		}
	}
	return out
}

// Critical returns the jobs that must execute immediately.
func (q *Queue) Critical() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*Job
	for _, j := range q.jobs {
		if !j.Deferrable || j.Priority == PriorityCritical {
			out = append(out, j)
		}
	}
	return out
}

// TotalEnergyKWh returns the aggregate energy demand of the queue.
func (q *Queue) TotalEnergyKWh() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	var total float64
	for _, j := range q.jobs {
		total += j.EnergyKWh
	}
	return units.Round2(total)
}

// MarkDeferred transitions a queued job to deferred status.
// Status transitions belong here, never to the decision engine.
func (q *Queue) MarkDeferred(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, j := range q.jobs {
		if j.ID == jobID && j.Status == StatusQueued {
			j.Status = StatusDeferred
			return true
		}
	}
	return false
}

// MarkRunning transitions a queued or deferred job to running status.
func (q *Queue) MarkRunning(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, j := range q.jobs {
		if j.ID == jobID && (j.Status == StatusQueued || j.Status == StatusDeferred) {
			j.Status = StatusRunning
			return true
		}
	}
	return false
}

// Stats is a point-in-time breakdown of the queue.
type Stats struct {
	TotalJobs      int              `json:"total_jobs"`
	DeferrableJobs int              `json:"deferrable_jobs"`
	CriticalJobs   int              `json:"critical_jobs"`
	TotalEnergyKWh float64          `json:"total_energy_kwh"`
	ByPriority     map[Priority]int `json:"priority_breakdown"`
	ByType         map[Type]int     `json:"type_breakdown"`
	TotalSeen      int              `json:"total_monitored_lifetime"`
}

// Stats computes queue statistics for monitoring.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := Stats{
		TotalJobs:  len(q.jobs),
		ByPriority: make(map[Priority]int, len(Priorities())),
		ByType:     make(map[Type]int, len(Types())),
		TotalSeen:  q.totalSeen,
	}
	for _, p := range Priorities() {
		stats.ByPriority[p] = 0
	}
	for _, t := range Types() {
		stats.ByType[t] = 0
	}

	var energy float64
	for _, j := range q.jobs {
		energy += j.EnergyKWh
		stats.ByPriority[j.Priority]++
		stats.ByType[j.Type]++
		if j.Deferrable {
			stats.DeferrableJobs++
		}
		if !j.Deferrable || j.Priority == PriorityCritical {
			stats.CriticalJobs++
		}
	}
	stats.TotalEnergyKWh = units.Round2(energy)
	return stats
}
