// Package engine implements the demand-response decision engine: a
// precedence-ordered rule cascade mapping job attributes and grid
// conditions to an execution action with a savings estimate.
package engine

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gridflex/decision/flexibility"
	"gridflex/internal/grid"
	"gridflex/internal/workload"
)

// Action is what the engine recommends for a job.
type Action string

const (
	ActionExecuteNow  Action = "execute_now"
	ActionDefer       Action = "defer"
	ActionShiftRegion Action = "shift_region"
	ActionCancel      Action = "cancel"
)

// Rationale tags why a decision was made. Decisions carry the structured
// figures; explanation prose is rendered at the API/CLI boundary.
type Rationale string

const (
	RationaleOptimalConditions Rationale = "optimal_conditions"
	RationaleHighCarbon        Rationale = "high_carbon"
	RationaleHighPrice         Rationale = "high_price"
	RationaleSLACritical       Rationale = "sla_critical"
	RationaleForecastBetter    Rationale = "forecast_better"
	RationaleNoBenefit         Rationale = "no_benefit"
)

// Decision is one immutable optimization decision for one job.
type Decision struct {
	ID                   string          `json:"decision_id"`
	Timestamp            time.Time       `json:"timestamp"`
	JobID                string          `json:"job_id"`
	Action               Action          `json:"action"`
	Rationale            Rationale       `json:"rationale"`
	CarbonIntensity      float64         `json:"current_carbon_intensity"` // gCO2/kWh at decision time
	PriceGBP             float64         `json:"current_energy_price"`     // £/kWh at decision time
	CostSavingsGBP       decimal.Decimal `json:"estimated_cost_savings_gbp"`
	CarbonReductionGrams float64         `json:"estimated_carbon_reduction_gco2"`
	DeferUntil           *time.Time      `json:"defer_until,omitempty"`

	// Heuristic optimal-window estimates backing the savings figures.
	// Zero for execute-now decisions.
	OptimalCarbon float64 `json:"optimal_carbon,omitempty"`
	OptimalPrice  float64 `json:"optimal_price,omitempty"`
}

// Config holds the engine thresholds and SLA budget.
type Config struct {
	CarbonThreshold   float64       // gCO2/kWh
	PriceThreshold    float64       // £/kWh
	SLAResponseBudget time.Duration // max wall-clock time per decision
}

// DefaultConfig returns the standard optimization targets.
func DefaultConfig() Config {
	return Config{
		CarbonThreshold:   150.0,
		PriceThreshold:    0.12,
		SLAResponseBudget: 5 * time.Minute,
	}
}

// Engine makes scheduling decisions for deferrable compute jobs. One
// engine owns one metrics aggregate and one decision log; construct a
// fresh engine per run rather than sharing a process-wide instance.
type Engine struct {
	cfg     Config
	metrics *Aggregator
	history *History
	logger  *slog.Logger
}

// NewEngine creates an engine with the given configuration.
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("decision engine initialized",
		"carbon_threshold", cfg.CarbonThreshold,
		"price_threshold", cfg.PriceThreshold,
		"sla_budget", cfg.SLAResponseBudget)
	return &Engine{
		cfg:     cfg,
		metrics: NewAggregator(),
		history: NewHistory(),
		logger:  logger,
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Metrics returns a copy of the running aggregate.
func (e *Engine) Metrics() Metrics { return e.metrics.Snapshot() }

// RecentDecisions returns up to limit decisions, most recent first.
func (e *Engine) RecentDecisions(limit int) []Decision {
	return e.history.Recent(limit)
}

// Decide evaluates one job against current grid conditions.
//
// The rules form a strict cascade; the first match wins:
//  1. non-deferrable or critical priority  -> execute now (SLA)
//  2. carbon and price both within bounds  -> execute now (optimal)
//  3. carbon above threshold               -> defer to low-carbon window
//  4. price above threshold                -> defer to off-peak window
//  5. otherwise                            -> execute now (no benefit)
//
// Inputs are treated as already validated; the cascade is total over its
// domain and never fails.
func (e *Engine) Decide(job *workload.Job, snap *grid.Snapshot) Decision {
	start := time.Now()
	d := e.evaluate(job, snap, start)

	latency := time.Since(start)
	compliant := latency <= e.cfg.SLAResponseBudget
	if !compliant {
		// A breach degrades the compliance rate but never fails the call.
		e.logger.Warn("sla breach",
			"job_id", job.ID,
			"latency", latency,
			"budget", e.cfg.SLAResponseBudget)
	}

	e.metrics.Record(d, latency, compliant)
	e.history.Append(d)

	e.logger.Info("decision made",
		"decision_id", d.ID,
		"job_id", d.JobID,
		"action", d.Action,
		"rationale", d.Rationale)

	return d
}

func (e *Engine) evaluate(job *workload.Job, snap *grid.Snapshot, now time.Time) Decision {
	d := Decision{
		ID:              newDecisionID(),
		Timestamp:       now,
		JobID:           job.ID,
		CarbonIntensity: snap.CarbonIntensity,
		PriceGBP:        snap.Price,
		CostSavingsGBP:  decimal.Zero,
	}

	carbonOK := snap.CarbonIntensity <= e.cfg.CarbonThreshold
	priceOK := snap.Price <= e.cfg.PriceThreshold

	switch {
	// Rule 1: SLA-sensitive jobs always win regardless of grid state.
	case !job.Deferrable || job.Priority == workload.PriorityCritical:
		d.Action = ActionExecuteNow
		d.Rationale = RationaleSLACritical

	// Rule 2: both metrics favorable, nothing to gain from waiting.
	case carbonOK && priceOK:
		d.Action = ActionExecuteNow
		d.Rationale = RationaleOptimalConditions

	// Rule 3: high carbon - defer to the forecast window, or assume the
	// overnight trough halves intensity when no forecast is available.
	case snap.CarbonIntensity > e.cfg.CarbonThreshold:
		optimalCarbon := snap.CarbonIntensity * 0.5
		if snap.ForecastNextPeriod != nil {
			optimalCarbon = *snap.ForecastNextPeriod
		}
		optimalPrice := snap.Price * 0.7

		d.Action = ActionDefer
		d.Rationale = RationaleHighCarbon
		d.OptimalCarbon = optimalCarbon
		d.OptimalPrice = optimalPrice
		d.CostSavingsGBP = CostSavings(job.EnergyKWh, snap.Price, optimalPrice)
		d.CarbonReductionGrams = CarbonReduction(job.EnergyKWh, snap.CarbonIntensity, optimalCarbon)
		d.DeferUntil = deferUntil(now, 6, job.MaxDeferralHours)

	// Rule 4: high price - defer to off-peak pricing.
	case snap.Price > e.cfg.PriceThreshold:
		optimalCarbon := snap.CarbonIntensity * 0.8
		optimalPrice := e.cfg.PriceThreshold * 0.7

		d.Action = ActionDefer
		d.Rationale = RationaleHighPrice
		d.OptimalCarbon = optimalCarbon
		d.OptimalPrice = optimalPrice
		d.CostSavingsGBP = CostSavings(job.EnergyKWh, snap.Price, optimalPrice)
		d.CarbonReductionGrams = CarbonReduction(job.EnergyKWh, snap.CarbonIntensity, optimalCarbon)
		d.DeferUntil = deferUntil(now, 4, job.MaxDeferralHours)

	// Rule 5: conditions acceptable or deferral benefit insufficient.
	default:
		d.Action = ActionExecuteNow
		d.Rationale = RationaleNoBenefit
	}

	return d
}

// OptimizeQueue applies Decide to each job in input order, then values
// the deferred subset on the flexibility market. The valuation is nil
// when nothing was deferred.
func (e *Engine) OptimizeQueue(jobs []*workload.Job, snap *grid.Snapshot) ([]Decision, *flexibility.Valuation) {
	decisions := make([]Decision, 0, len(jobs))
	var deferred []*workload.Job

	for _, job := range jobs {
		d := e.Decide(job, snap)
		decisions = append(decisions, d)
		if d.Action == ActionDefer {
			deferred = append(deferred, job)
		}
	}

	e.logger.Info("queue optimization complete",
		"jobs", len(jobs),
		"deferred", len(deferred))

	if len(deferred) == 0 {
		return decisions, nil
	}

	valuation := flexibility.Value(deferred, snap, e.metrics.AvgDecisionLatency(), time.Now())
	e.logger.Info("flexibility market valuation",
		"service", valuation.Service,
		"capacity_mw", valuation.CapacityMW,
		"revenue_gbp_per_hour", valuation.RevenueGBPPerHour)

	return decisions, &valuation
}

func deferUntil(now time.Time, capHours, maxDeferralHours int) *time.Time {
	hours := capHours
	if maxDeferralHours < hours {
		hours = maxDeferralHours
	}
	t := now.Add(time.Duration(hours) * time.Hour)
	return &t
}

func newDecisionID() string {
	return "dec_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
