// GridFlex CLI - Demand-Response Scheduling Advisor
//
// Usage:
//   gridflex serve [--port 8080]
//   gridflex optimize --jobs 20 [--format json]
//   gridflex grid
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"gridflex/api"
	"gridflex/decision/engine"
	"gridflex/decision/flexibility"
	"gridflex/decision/market"
	"gridflex/internal/beckn"
	"gridflex/internal/grid"
	"gridflex/internal/workload"
	"gridflex/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "gridflex",
		Usage:   "Demand-Response Scheduling Advisor - carbon and price aware compute scheduling",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"GRIDFLEX_LOG_LEVEL"},
			},
			&cli.Float64Flag{
				Name:    "carbon-threshold",
				Value:   150.0,
				Usage:   "Carbon intensity threshold (gCO2/kWh)",
				EnvVars: []string{"GRIDFLEX_CARBON_THRESHOLD"},
			},
			&cli.Float64Flag{
				Name:    "price-threshold",
				Value:   0.12,
				Usage:   "Energy price threshold (£/kWh)",
				EnvVars: []string{"GRIDFLEX_PRICE_THRESHOLD"},
			},
			&cli.IntFlag{
				Name:    "sla-minutes",
				Value:   5,
				Usage:   "Decision SLA response budget in minutes",
				EnvVars: []string{"GRIDFLEX_SLA_MINUTES"},
			},
			&cli.Int64Flag{
				Name:    "seed",
				Value:   0,
				Usage:   "Random seed for synthetic workload and pricing (0 uses current time)",
				EnvVars: []string{"GRIDFLEX_SEED"},
			},
			&cli.StringFlag{
				Name:    "carbon-api-url",
				Value:   grid.DefaultCarbonIntensityURL,
				Usage:   "Carbon Intensity API base URL",
				EnvVars: []string{"GRIDFLEX_CARBON_API_URL"},
			},
		},

		Commands: []*cli.Command{
			serveCommand(),
			optimizeCommand(),
			gridCommand(),
			marketCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func engineConfig(c *cli.Context) engine.Config {
	return engine.Config{
		CarbonThreshold:   c.Float64("carbon-threshold"),
		PriceThreshold:    c.Float64("price-threshold"),
		SLAResponseBudget: time.Duration(c.Int("sla-minutes")) * time.Minute,
	}
}

func seed(c *cli.Context) int64 {
	if s := c.Int64("seed"); s != 0 {
		return s
	}
	return time.Now().UnixNano()
}

// =============================================================================
// SERVE COMMAND
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the GridFlex API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP port",
				EnvVars: []string{"GRIDFLEX_PORT"},
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	logger := platform.NewLogger(c.String("log-level"))
	cfg := engineConfig(c)

	eng := engine.NewEngine(cfg, logger)
	monitor := grid.NewMonitor(
		grid.NewAPISource(
			grid.NewCarbonIntensityClientWithURL(c.String("carbon-api-url")),
			grid.NewPriceSource(seed(c)),
		),
		market.NewClassifier(cfg.CarbonThreshold, cfg.PriceThreshold),
		grid.DefaultMonitorConfig(),
		logger,
	)
	queue := workload.NewQueue()
	source := workload.NewGenerator(seed(c), logger)

	serverConfig := api.DefaultConfig()
	serverConfig.Port = c.Int("port")

	server := api.NewServer(eng, monitor, queue, source, serverConfig, logger)
	return server.StartWithGracefulShutdown()
}

// =============================================================================
// OPTIMIZE COMMAND
// =============================================================================

func optimizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "optimize",
		Usage: "Generate a synthetic workload batch and optimize it against live grid conditions",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"n"},
				Value:   10,
				Usage:   "Number of synthetic jobs to generate",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "table",
				Usage:   "Output format (table, json)",
			},
		},
		Action: runOptimize,
	}
}

func runOptimize(c *cli.Context) error {
	ctx := context.Background()
	logger := platform.NewLogger(c.String("log-level"))
	cfg := engineConfig(c)

	eng := engine.NewEngine(cfg, logger)
	monitor := grid.NewMonitor(
		grid.NewAPISource(
			grid.NewCarbonIntensityClientWithURL(c.String("carbon-api-url")),
			grid.NewPriceSource(seed(c)),
		),
		market.NewClassifier(cfg.CarbonThreshold, cfg.PriceThreshold),
		grid.DefaultMonitorConfig(),
		logger,
	)
	source := workload.NewGenerator(seed(c), logger)

	jobs := source.NextBatch(c.Int("jobs"))
	snap := monitor.Current(ctx)
	decisions, valuation := eng.OptimizeQueue(jobs, snap)

	switch c.String("format") {
	case "json":
		return outputJSON(decisions, valuation, snap, cfg)
	default:
		return outputTable(decisions, valuation, snap, cfg, eng.Metrics())
	}
}

// =============================================================================
// GRID COMMAND
// =============================================================================

func gridCommand() *cli.Command {
	return &cli.Command{
		Name:   "grid",
		Usage:  "Show current grid conditions",
		Action: runGrid,
	}
}

func runGrid(c *cli.Context) error {
	ctx := context.Background()
	logger := platform.NewLogger(c.String("log-level"))
	cfg := engineConfig(c)

	monitor := grid.NewMonitor(
		grid.NewAPISource(
			grid.NewCarbonIntensityClientWithURL(c.String("carbon-api-url")),
			grid.NewPriceSource(seed(c)),
		),
		market.NewClassifier(cfg.CarbonThreshold, cfg.PriceThreshold),
		grid.DefaultMonitorConfig(),
		logger,
	)

	snap := monitor.Current(ctx)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// =============================================================================
// MARKET COMMAND
// =============================================================================

func marketCommand() *cli.Command {
	return &cli.Command{
		Name:  "market",
		Usage: "Interact with the Beckn flexibility marketplace",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "bap-url",
				Value:   beckn.DefaultBaseURL,
				Usage:   "Beckn BAP base URL",
				EnvVars: []string{"GRIDFLEX_BAP_URL"},
			},
		},
		Subcommands: []*cli.Command{
			{
				Name:  "discover",
				Usage: "Discover available flexibility windows",
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  "renewable-min",
						Value: 0,
						Usage: "Minimum renewable mix percentage filter",
					},
				},
				Action: runMarketDiscover,
			},
			{
				Name:  "book",
				Usage: "Select, init and confirm a discovered flexibility window",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "transaction", Usage: "Transaction ID from discovery", Required: true},
					&cli.StringFlag{Name: "provider", Usage: "Provider ID", Required: true},
					&cli.StringFlag{Name: "item", Usage: "Catalog item ID", Required: true},
				},
				Action: runMarketBook,
			},
		},
	}
}

func runMarketDiscover(c *cli.Context) error {
	ctx := context.Background()
	logger := platform.NewLogger(c.String("log-level"))

	client := beckn.NewClient(c.String("bap-url"), logger)
	resp, err := client.Discover(ctx, c.Float64("renewable-min"))
	if err != nil {
		return fmt.Errorf("discover flexibility windows: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func runMarketBook(c *cli.Context) error {
	ctx := context.Background()
	logger := platform.NewLogger(c.String("log-level"))

	client := beckn.NewClient(c.String("bap-url"), logger)
	txn := c.String("transaction")
	provider := c.String("provider")
	item := c.String("item")

	if _, err := client.Select(ctx, txn, provider, item); err != nil {
		return fmt.Errorf("select window: %w", err)
	}
	if _, err := client.Init(ctx, txn, provider, item); err != nil {
		return fmt.Errorf("init order: %w", err)
	}
	resp, err := client.Confirm(ctx, txn, provider, item)
	if err != nil {
		return fmt.Errorf("confirm order: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// =============================================================================
// OUTPUT FORMATTERS
// =============================================================================

type jsonOutput struct {
	Grid        *grid.Snapshot     `json:"grid_conditions"`
	Decisions   []jsonDecision     `json:"decisions"`
	Flexibility *flexValuationJSON `json:"flexibility,omitempty"`
}

type jsonDecision struct {
	DecisionID        string     `json:"decision_id"`
	JobID             string     `json:"job_id"`
	Action            string     `json:"action"`
	Rationale         string     `json:"rationale"`
	Explanation       string     `json:"explanation"`
	CostSavingsGBP    string     `json:"estimated_cost_savings_gbp"`
	CarbonReductionKg float64    `json:"estimated_carbon_reduction_kg"`
	DeferUntil        *time.Time `json:"defer_until,omitempty"`
}

type flexValuationJSON struct {
	Service           string  `json:"service_type"`
	CapacityMW        float64 `json:"capacity_offered_mw"`
	RevenueGBPPerHour string  `json:"revenue_gbp_per_hour"`
	Compliant         bool    `json:"p415_compliant"`
	DeferredJobs      int     `json:"deferred_jobs_count"`
}

func outputJSON(decisions []engine.Decision, valuation *flexibility.Valuation, snap *grid.Snapshot, cfg engine.Config) error {
	out := jsonOutput{Grid: snap}
	for _, d := range decisions {
		out.Decisions = append(out.Decisions, jsonDecision{
			DecisionID:        d.ID,
			JobID:             d.JobID,
			Action:            string(d.Action),
			Rationale:         string(d.Rationale),
			Explanation:       api.Explanation(d, cfg),
			CostSavingsGBP:    d.CostSavingsGBP.StringFixed(2),
			CarbonReductionKg: d.CarbonReductionGrams / 1000.0,
			DeferUntil:        d.DeferUntil,
		})
	}
	if valuation != nil {
		out.Flexibility = &flexValuationJSON{
			Service:           valuation.Service,
			CapacityMW:        valuation.CapacityMW,
			RevenueGBPPerHour: valuation.RevenueGBPPerHour.StringFixed(2),
			Compliant:         valuation.Compliant,
			DeferredJobs:      valuation.DeferredJobs,
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func outputTable(decisions []engine.Decision, valuation *flexibility.Valuation, snap *grid.Snapshot, cfg engine.Config, metrics engine.Metrics) error {
	fmt.Println()
	fmt.Println("GRID CONDITIONS")
	fmt.Printf("  Carbon intensity:  %.0f gCO2/kWh (threshold %.0f)\n", snap.CarbonIntensity, cfg.CarbonThreshold)
	fmt.Printf("  Energy price:      £%.3f/kWh (threshold £%.2f)\n", snap.Price, cfg.PriceThreshold)
	fmt.Printf("  Renewable mix:     %.0f%%\n", snap.RenewablePercent)
	fmt.Printf("  Market condition:  %s\n", snap.Condition)
	fmt.Println()

	fmt.Println("DECISIONS")
	fmt.Printf("  %-14s %-12s %-18s %10s %12s\n", "JOB", "ACTION", "RATIONALE", "SAVE £", "SAVE kgCO2")
	for _, d := range decisions {
		fmt.Printf("  %-14s %-12s %-18s %10s %12.1f\n",
			d.JobID, d.Action, d.Rationale,
			d.CostSavingsGBP.StringFixed(2),
			d.CarbonReductionGrams/1000.0)
	}
	fmt.Println()

	if valuation != nil {
		fmt.Println("FLEXIBILITY MARKET")
		fmt.Printf("  Service:           %s\n", valuation.Service)
		fmt.Printf("  Capacity offered:  %.2f MW\n", valuation.CapacityMW)
		fmt.Printf("  Clearing price:    £%s/MW·h\n", valuation.ClearingPriceGBPMWh.StringFixed(2))
		fmt.Printf("  Revenue:           £%s/hour\n", valuation.RevenueGBPPerHour.StringFixed(2))
		fmt.Printf("  P415 compliant:    %t\n", valuation.Compliant)
		fmt.Println()
	}

	fmt.Println("SESSION TOTALS")
	fmt.Printf("  Decisions:         %d (%d immediate, %d deferred)\n",
		metrics.TotalDecisions, metrics.ExecutedImmediately, metrics.Deferred)
	fmt.Printf("  Cost saved:        £%s\n", metrics.CostSavedGBP.StringFixed(2))
	fmt.Printf("  Carbon reduced:    %.1f kgCO2\n", metrics.CarbonReducedKgCO2)
	fmt.Printf("  SLA compliance:    %.1f%%\n", metrics.SLAComplianceRate)
	fmt.Println()
	return nil
}
