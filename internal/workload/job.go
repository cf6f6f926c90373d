// Package workload models compute jobs and the queue the advisor reads from.
package workload

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"gridflex/pkg/errors"
)

// Type is the kind of compute workload.
type Type string

const (
	TypeLLMTraining       Type = "llm_training"
	TypeImageTraining     Type = "image_training"
	TypeInferenceBatch    Type = "inference_batch"
	TypeInferenceRealtime Type = "inference_realtime"
	TypeDataProcessing    Type = "data_processing"
	TypeModelFinetuning   Type = "model_finetuning"
)

// Types lists all workload types.
func Types() []Type {
	return []Type{
		TypeLLMTraining, TypeImageTraining, TypeInferenceBatch,
		TypeInferenceRealtime, TypeDataProcessing, TypeModelFinetuning,
	}
}

// Priority is the job priority level.
type Priority string

const (
	PriorityCritical Priority = "critical" // cannot defer - real-time inference
	PriorityHigh     Priority = "high"     // can defer 1-2 hours
	PriorityMedium   Priority = "medium"   // standard training, defer 4-8 hours
	PriorityLow      Priority = "low"      // batch jobs, defer 12-24 hours
)

// Priorities lists all priority levels.
func Priorities() []Priority {
	return []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
}

// Status is the job execution state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusDeferred  Status = "deferred"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Allowed field ranges, enforced at construction time. The decision engine
// treats every job it receives as already validated.
const (
	MaxEnergyKWh     = 1000.0
	MaxDurationHours = 72.0
	MaxDeferralHours = 48
)

// Job is a single compute workload awaiting a scheduling decision.
// The decision engine reads but never mutates a Job; status transitions
// belong to the queue.
type Job struct {
	ID               string     `json:"job_id"`
	Type             Type       `json:"workload_type"`
	Priority         Priority   `json:"priority"`
	EnergyKWh        float64    `json:"energy_required_kwh"`
	DurationHours    float64    `json:"estimated_duration_hours"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	Deferrable       bool       `json:"deferrable"`
	MaxDeferralHours int        `json:"max_deferral_hours"`
	Status           Status     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Spec carries the caller-supplied fields for a new job.
type Spec struct {
	Type             Type
	Priority         Priority
	EnergyKWh        float64
	DurationHours    float64
	Deadline         *time.Time
	Deferrable       bool
	MaxDeferralHours int
}

// NewJob validates the spec and builds a queued job with a fresh ID.
func NewJob(spec Spec) (*Job, error) {
	id := NewJobID()

	if spec.EnergyKWh <= 0 || spec.EnergyKWh > MaxEnergyKWh {
		return nil, errors.NewInvalidJobDataError("energy_required_kwh", id,
			"must be in (0, 1000] kWh")
	}
	if spec.DurationHours <= 0 || spec.DurationHours > MaxDurationHours {
		return nil, errors.NewInvalidJobDataError("estimated_duration_hours", id,
			"must be in (0, 72] hours")
	}
	if spec.MaxDeferralHours < 0 || spec.MaxDeferralHours > MaxDeferralHours {
		return nil, errors.NewInvalidJobDataError("max_deferral_hours", id,
			"must be in [0, 48] hours")
	}

	return &Job{
		ID:               id,
		Type:             spec.Type,
		Priority:         spec.Priority,
		EnergyKWh:        spec.EnergyKWh,
		DurationHours:    spec.DurationHours,
		Deadline:         spec.Deadline,
		Deferrable:       spec.Deferrable,
		MaxDeferralHours: spec.MaxDeferralHours,
		Status:           StatusQueued,
		CreatedAt:        time.Now(),
	}, nil
}

// NewJobID generates a short job identifier.
func NewJobID() string {
	return "job_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
