// Package api provides the HTTP API server for GridFlex.
// Thin request/response mapping over the decision engine; no scheduling
// logic lives here.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"gridflex/decision/engine"
	"gridflex/decision/flexibility"
	"gridflex/internal/grid"
	"gridflex/internal/workload"
)

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	engine     *engine.Engine
	monitor    *grid.Monitor
	queue      *workload.Queue
	source     workload.Source
	config     *Config
	logger     *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestSize int64
	CORSOrigins    []string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		MaxRequestSize: 1 * 1024 * 1024, // 1MB
		CORSOrigins:    []string{"*"},
	}
}

// NewServer creates a new API server.
func NewServer(eng *engine.Engine, monitor *grid.Monitor, queue *workload.Queue, source workload.Source, config *Config, logger *slog.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:  eng,
		monitor: monitor,
		queue:   queue,
		source:  source,
		config:  config,
		logger:  logger,
	}
}

// Handler builds the route table wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/grid/current", s.handleGridCurrent)
	mux.HandleFunc("/workload/queue", s.handleWorkloadQueue)
	mux.HandleFunc("/optimize", s.handleOptimize)
	mux.HandleFunc("/metrics/system", s.handleSystemMetrics)
	mux.HandleFunc("/decisions/recent", s.handleRecentDecisions)

	return s.corsMiddleware(s.loggingMiddleware(mux))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("gridflex api server starting", "port", s.config.Port)
	return s.httpServer.ListenAndServe()
}

// StartWithGracefulShutdown starts the server and drains on SIGINT/SIGTERM.
func (s *Server) StartWithGracefulShutdown() error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.Start(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-quit:
		s.logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"duration", time.Since(start))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		allowed := false
		for _, o := range s.config.CORSOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// SYSTEM ENDPOINTS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "1.0.0",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// The monitor substitutes a fallback snapshot on fetch failure, so a
	// non-nil snapshot is all readiness requires.
	if snap := s.monitor.Current(ctx); snap == nil {
		s.jsonError(w, http.StatusServiceUnavailable, "grid data not ready")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ready"})
}

// =============================================================================
// GRID & WORKLOAD ENDPOINTS
// =============================================================================

func (s *Server) handleGridCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap := s.monitor.Current(r.Context())
	s.jsonResponse(w, http.StatusOK, snap)
}

func (s *Server) handleWorkloadQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.jsonResponse(w, http.StatusOK, s.queue.Stats())
}

// =============================================================================
// OPTIMIZE ENDPOINT
// =============================================================================

// OptimizeRequest is the API request for queue optimization.
type OptimizeRequest struct {
	// GenerateJobs adds this many synthetic jobs to the queue before
	// optimizing. Zero optimizes the queue as-is.
	GenerateJobs int `json:"generate_jobs"`
}

// DecisionResponse is one decision with rendered explanation.
type DecisionResponse struct {
	DecisionID        string     `json:"decision_id"`
	Timestamp         time.Time  `json:"timestamp"`
	JobID             string     `json:"job_id"`
	Action            string     `json:"action"`
	Rationale         string     `json:"rationale"`
	Explanation       string     `json:"explanation"`
	CarbonIntensity   float64    `json:"current_carbon_intensity"`
	EnergyPrice       float64    `json:"current_energy_price"`
	CostSavingsGBP    string     `json:"estimated_cost_savings_gbp"`
	CarbonReductionKg float64    `json:"estimated_carbon_reduction_kg"`
	DeferUntil        *time.Time `json:"defer_until,omitempty"`
}

// OptimizeResponse is the API response for queue optimization.
type OptimizeResponse struct {
	Decisions   []DecisionResponse     `json:"decisions"`
	Flexibility *flexibility.Valuation `json:"flexibility,omitempty"`
	Grid        *grid.Snapshot         `json:"grid_conditions"`
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)

	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
		s.jsonError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	if req.GenerateJobs > 0 {
		for _, job := range s.source.NextBatch(req.GenerateJobs) {
			s.queue.Add(job)
		}
	}

	snap := s.monitor.Current(r.Context())
	jobs := s.queue.Jobs()
	decisions, valuation := s.engine.OptimizeQueue(jobs, snap)

	// Relay decisions into queue status; the engine never mutates jobs.
	for _, d := range decisions {
		if d.Action == engine.ActionDefer {
			s.queue.MarkDeferred(d.JobID)
		}
	}

	resp := OptimizeResponse{
		Decisions:   make([]DecisionResponse, 0, len(decisions)),
		Flexibility: valuation,
		Grid:        snap,
	}
	for _, d := range decisions {
		resp.Decisions = append(resp.Decisions, s.renderDecision(d))
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) renderDecision(d engine.Decision) DecisionResponse {
	return DecisionResponse{
		DecisionID:        d.ID,
		Timestamp:         d.Timestamp,
		JobID:             d.JobID,
		Action:            string(d.Action),
		Rationale:         string(d.Rationale),
		Explanation:       Explanation(d, s.engine.Config()),
		CarbonIntensity:   d.CarbonIntensity,
		EnergyPrice:       d.PriceGBP,
		CostSavingsGBP:    d.CostSavingsGBP.StringFixed(2),
		CarbonReductionKg: d.CarbonReductionGrams / 1000.0,
		DeferUntil:        d.DeferUntil,
	}
}

// =============================================================================
// METRICS & DECISIONS ENDPOINTS
// =============================================================================

func (s *Server) handleSystemMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	metrics := s.engine.Metrics()
	snap := s.monitor.Current(r.Context())

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"orchestrator": metrics,
		"workload":     s.queue.Stats(),
		"grid":         snap,
	})
}

func (s *Server) handleRecentDecisions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			s.jsonError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	recent := s.engine.RecentDecisions(limit)
	resp := make([]DecisionResponse, 0, len(recent))
	for _, d := range recent {
		resp = append(resp, s.renderDecision(d))
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{
		"error": message,
	})
}
