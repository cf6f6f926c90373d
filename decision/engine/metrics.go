package engine

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"gridflex/pkg/units"
)

// Metrics is the running aggregate over all decisions of one engine
// lifetime. Snapshot copies are handed out; the live instance stays
// behind the aggregator's mutex.
type Metrics struct {
	TotalDecisions      int             `json:"total_decisions_made"`
	ExecutedImmediately int             `json:"jobs_executed_immediately"`
	Deferred            int             `json:"jobs_deferred"`
	Shifted             int             `json:"jobs_shifted"`
	CostSavedGBP        decimal.Decimal `json:"total_cost_saved_gbp"`
	CarbonReducedKgCO2  float64         `json:"total_carbon_reduced_kgco2"`
	AvgDecisionTimeMs   float64         `json:"avg_decision_time_ms"`
	SLAComplianceRate   float64         `json:"sla_compliance_rate"`
}

// Aggregator folds decisions into the running metrics. Every update is a
// single atomic step under the mutex so concurrent Decide calls cannot
// interleave partial counter updates.
type Aggregator struct {
	mu      sync.Mutex
	metrics Metrics
}

// NewAggregator starts with zero counters and full SLA compliance.
func NewAggregator() *Aggregator {
	return &Aggregator{
		metrics: Metrics{
			CostSavedGBP:      decimal.Zero,
			SLAComplianceRate: 100.0,
		},
	}
}

// Record folds one decision into the aggregate: action tallies,
// cumulative savings, incremental latency mean, and the SLA compliance
// rate (100 for a compliant decision, 0 for a breach).
func (a *Aggregator) Record(d Decision, latency time.Duration, compliant bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	m := &a.metrics
	m.TotalDecisions++
	n := float64(m.TotalDecisions)

	switch d.Action {
	case ActionDefer:
		m.Deferred++
		m.CostSavedGBP = m.CostSavedGBP.Add(d.CostSavingsGBP)
		m.CarbonReducedKgCO2 = units.Round2(m.CarbonReducedKgCO2 + units.GramsToKg(d.CarbonReductionGrams))
	case ActionShiftRegion:
		m.Shifted++
	default:
		m.ExecutedImmediately++
	}

	latencyMs := float64(latency.Microseconds()) / 1000.0
	m.AvgDecisionTimeMs = (m.AvgDecisionTimeMs*(n-1) + latencyMs) / n

	sample := 0.0
	if compliant {
		sample = 100.0
	}
	m.SLAComplianceRate = (m.SLAComplianceRate*(n-1) + sample) / n
}

// Snapshot returns a read-only copy of the current aggregate.
func (a *Aggregator) Snapshot() Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.metrics
}

// AvgDecisionLatency returns the running mean decision latency.
func (a *Aggregator) AvgDecisionLatency() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return time.Duration(a.metrics.AvgDecisionTimeMs * float64(time.Millisecond))
}

// History is the append-only decision log. Unbounded in this scope;
// retention is an external concern.
type History struct {
	mu        sync.Mutex
	decisions []Decision
}

// NewHistory creates an empty log.
func NewHistory() *History {
	return &History{}
}

// Append records a decision.
func (h *History) Append(d Decision) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.decisions = append(h.decisions, d)
}

// Len returns the number of logged decisions.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.decisions)
}

// Recent returns up to limit decisions, most recent first.
func (h *History) Recent(limit int) []Decision {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit <= 0 || limit > len(h.decisions) {
		limit = len(h.decisions)
	}
	out := make([]Decision, 0, limit)
	for i := len(h.decisions) - 1; i >= len(h.decisions)-limit; i-- {
		out = append(out, h.decisions[i])
	}
	return out
}
