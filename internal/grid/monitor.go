package grid

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gridflex/decision/market"
	"gridflex/pkg/errors"
)

// APISource builds snapshots from the carbon intensity API and the
// wholesale price feed.
type APISource struct {
	carbon *CarbonIntensityClient
	prices *PriceSource
}

// NewAPISource composes the live data sources.
func NewAPISource(carbon *CarbonIntensityClient, prices *PriceSource) *APISource {
	return &APISource{carbon: carbon, prices: prices}
}

// Fetch implements Source. The market condition is left unset; the
// monitor classifies every snapshot it accepts.
func (s *APISource) Fetch(ctx context.Context) (*Snapshot, error) {
	reading, err := s.carbon.CurrentIntensity(ctx)
	if err != nil {
		return nil, err
	}

	// The forecast is optional: a failed forecast fetch does not fail
	// the snapshot.
	forecast, err := s.carbon.NextPeriodForecast(ctx)
	if err != nil {
		forecast = nil
	}

	now := time.Now()
	return &Snapshot{
		Timestamp:          now,
		CarbonIntensity:    reading.Actual,
		Price:              s.prices.At(now),
		RenewablePercent:   reading.RenewablePercent,
		ForecastNextPeriod: forecast,
	}, nil
}

// MonitorConfig holds the refresh policy.
type MonitorConfig struct {
	// RefreshInterval is how long a snapshot stays fresh. The public
	// carbon intensity API updates every half hour; five minutes keeps
	// well under its rate limits.
	RefreshInterval time.Duration

	// Fallback values used when the source fails. Historical UK
	// averages so decisions degrade gracefully instead of stalling.
	FallbackCarbonIntensity  float64
	FallbackPrice            float64
	FallbackRenewablePercent float64
}

// DefaultMonitorConfig returns the default refresh policy.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		RefreshInterval:          5 * time.Minute,
		FallbackCarbonIntensity:  150.0,
		FallbackPrice:            0.08,
		FallbackRenewablePercent: 40.0,
	}
}

// Monitor caches the latest classified snapshot and refreshes it when
// stale. A failed fetch substitutes the configured fallback snapshot, so
// the decision engine always receives authoritative-looking data.
type Monitor struct {
	source     Source
	classifier market.Classifier
	cfg        MonitorConfig
	logger     *slog.Logger

	mu         sync.Mutex
	current    *Snapshot
	lastUpdate time.Time
}

// NewMonitor creates a monitor over the given source.
func NewMonitor(source Source, classifier market.Classifier, cfg MonitorConfig, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		source:     source,
		classifier: classifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// Current returns the cached snapshot, refreshing first if it is stale or
// has never been fetched. Never returns nil.
func (m *Monitor) Current(ctx context.Context) *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && time.Since(m.lastUpdate) <= m.cfg.RefreshInterval {
		return m.current
	}
	return m.refreshLocked(ctx)
}

// Refresh forces a fetch regardless of staleness.
func (m *Monitor) Refresh(ctx context.Context) *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx)
}

func (m *Monitor) refreshLocked(ctx context.Context) *Snapshot {
	snap, err := m.source.Fetch(ctx)
	if err != nil {
		gridErr := errors.NewMissingGridDataError("carbon-intensity", err)
		m.logger.Warn("grid data fetch failed, using fallback snapshot",
			"error", gridErr,
			"fallback_carbon", m.cfg.FallbackCarbonIntensity)
		snap = &Snapshot{
			Timestamp:        time.Now(),
			CarbonIntensity:  m.cfg.FallbackCarbonIntensity,
			Price:            m.cfg.FallbackPrice,
			RenewablePercent: m.cfg.FallbackRenewablePercent,
		}
	}

	snap.Condition = m.classifier.Classify(snap.CarbonIntensity, snap.Price)
	m.current = snap
	m.lastUpdate = time.Now()

	m.logger.Info("grid market data updated",
		"carbon_intensity", snap.CarbonIntensity,
		"price", snap.Price,
		"renewable_pct", snap.RenewablePercent,
		"condition", snap.Condition)

	return snap
}
