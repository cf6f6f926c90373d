package workload

import (
	"log/slog"
	"math/rand"
	"time"

	"gridflex/pkg/units"
)

// Source supplies batches of jobs to the orchestration layer.
// Production feeds (Kubernetes, Slurm, Ray) and the synthetic generator
// both sit behind this interface; tests substitute deterministic fakes.
type Source interface {
	NextBatch(n int) []*Job
}

type energyRange struct{ min, max float64 }
type durationRange struct{ min, max float64 }

var energyByType = map[Type]energyRange{
	TypeLLMTraining:       {100, 500},
	TypeImageTraining:     {50, 200},
	TypeInferenceBatch:    {10, 50},
	TypeInferenceRealtime: {1, 10},
	TypeDataProcessing:    {20, 100},
	TypeModelFinetuning:   {50, 150},
}

var durationByType = map[Type]durationRange{
	TypeLLMTraining:       {4, 24},
	TypeImageTraining:     {2, 12},
	TypeInferenceBatch:    {0.5, 4},
	TypeInferenceRealtime: {0.1, 0.5},
	TypeDataProcessing:    {1, 6},
	TypeModelFinetuning:   {2, 8},
}

// Generator produces synthetic workload jobs with realistic energy and
// deferral characteristics. It stands in for a real scheduler feed.
type Generator struct {
	rng    *rand.Rand
	logger *slog.Logger
}

// NewGenerator creates a generator seeded for reproducible batches.
func NewGenerator(seed int64, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}
}

// NextBatch generates n jobs. Implements Source.
func (g *Generator) NextBatch(n int) []*Job {
	jobs := make([]*Job, 0, n)
	for i := 0; i < n; i++ {
		jobs = append(jobs, g.Job())
	}
	g.logger.Debug("generated synthetic batch", "jobs", len(jobs))
	return jobs
}

// Job generates a single synthetic job.
func (g *Generator) Job() *Job {
	types := Types()
	workloadType := types[g.rng.Intn(len(types))]

	priority := g.priorityFor(workloadType)

	er := energyByType[workloadType]
	dr := durationByType[workloadType]
	energy := units.Round2(er.min + g.rng.Float64()*(er.max-er.min))
	duration := units.Round2(dr.min + g.rng.Float64()*(dr.max-dr.min))

	deferrable, maxDeferral := g.deferralFor(priority)

	// 30% of critical/high jobs carry a hard deadline 2-12 hours out.
	var deadline *time.Time
	if priority == PriorityCritical || priority == PriorityHigh {
		if g.rng.Float64() < 0.3 {
			d := time.Now().Add(time.Duration(2+g.rng.Intn(11)) * time.Hour)
			deadline = &d
		}
	}

	job, err := NewJob(Spec{
		Type:             workloadType,
		Priority:         priority,
		EnergyKWh:        energy,
		DurationHours:    duration,
		Deadline:         deadline,
		Deferrable:       deferrable,
		MaxDeferralHours: maxDeferral,
	})
	if err != nil {
		// Generated fields are always within the model ranges.
		panic(err)
	}
	return job
}

func (g *Generator) priorityFor(workloadType Type) Priority {
	switch workloadType {
	case TypeInferenceRealtime:
		return PriorityCritical
	case TypeLLMTraining:
		if g.rng.Intn(2) == 0 {
			return PriorityMedium
		}
		return PriorityHigh
	default:
		priorities := Priorities()
		return priorities[g.rng.Intn(len(priorities))]
	}
}

func (g *Generator) deferralFor(priority Priority) (bool, int) {
	switch priority {
	case PriorityCritical:
		return false, 0
	case PriorityHigh:
		return true, 1 + g.rng.Intn(4)
	case PriorityMedium:
		return true, 4 + g.rng.Intn(9)
	default:
		return true, 12 + g.rng.Intn(13)
	}
}
