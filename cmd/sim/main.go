// Package main runs a hot dog order-quantity study from the command line.
// Single mode simulates one Q; --grid searches a Q range and optionally
// refines around the best point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"newsvendor-lab/internal/app"
	"newsvendor-lab/internal/config"
	"newsvendor-lab/internal/domain"
	"newsvendor-lab/internal/events"
	"newsvendor-lab/internal/metrics"
	"newsvendor-lab/internal/orchestrator"
	"newsvendor-lab/internal/reporting"
	"newsvendor-lab/internal/search"
	"newsvendor-lab/internal/simulation"
)

func main() {
	config.LoadEnvFile(".env")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options holds every non-scenario flag.
type options struct {
	q          int
	grid       bool
	qmin, qmax int
	step       int
	refine     bool
	refineW    int
	refineStep int
	traces     bool
	workers    int

	jsonOut  bool
	csvPath  string
	mdPath   string
	xlsxPath string

	configPath string
	logLevel   string

	persist       bool
	useMemory     bool
	postgresDSN   string
	clickhouseDSN string
	redisURL      string
	kafkaBrokers  string
	kafkaTopic    string
}

// scenarioFlags holds the raw scenario flag values. Only flags set on the
// command line override the default scenario.
type scenarioFlags struct {
	seed                   int64
	n                      int
	capacity               int
	temp                   float64
	teamWins, teamLosses   int
	oppWins, oppLosses     int
	rain, snow             bool
	promo, playoff, indoor bool
	price, cost, salvage   float64
	fixedCost              float64
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("sim", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	var sf scenarioFlags

	// Decision variable
	fs.IntVar(&o.q, "q", 20000, "Order quantity (hot dogs)")

	// Scenario
	fs.Int64Var(&sf.seed, "seed", domain.DefaultSeed, "Random seed")
	fs.IntVar(&sf.n, "n", domain.DefaultReplications, "Number of simulated games")
	fs.IntVar(&sf.capacity, "capacity", domain.DefaultStadiumCapacity, "Stadium capacity")
	fs.Float64Var(&sf.temp, "temp", 0, "Temperature (F), defaults to the model's ideal")
	fs.IntVar(&sf.teamWins, "team-wins", domain.DefaultWins, "Home team wins")
	fs.IntVar(&sf.teamLosses, "team-losses", domain.DefaultLosses, "Home team losses")
	fs.IntVar(&sf.oppWins, "opp-wins", domain.DefaultWins, "Opponent wins")
	fs.IntVar(&sf.oppLosses, "opp-losses", domain.DefaultLosses, "Opponent losses")
	fs.BoolVar(&sf.rain, "rain", false, "Rain")
	fs.BoolVar(&sf.snow, "snow", false, "Snow")
	fs.BoolVar(&sf.promo, "promo", false, "Promotion")
	fs.BoolVar(&sf.playoff, "playoff", false, "Playoff game")
	fs.BoolVar(&sf.indoor, "indoor", false, "Indoor stadium (pins temperature, clears weather)")
	fs.Float64Var(&sf.price, "price", domain.DefaultPrice, "Selling price per unit")
	fs.Float64Var(&sf.cost, "cost", domain.DefaultCost, "Purchase cost per unit")
	fs.Float64Var(&sf.salvage, "salvage", domain.DefaultSalvage, "Salvage value per leftover unit")
	fs.Float64Var(&sf.fixedCost, "fixed-cost", domain.DefaultFixedCostPerGame, "Fixed cost per game")

	// Grid
	fs.BoolVar(&o.grid, "grid", false, "Evaluate a grid of Q values")
	fs.IntVar(&o.qmin, "qmin", 15000, "Grid: minimum Q")
	fs.IntVar(&o.qmax, "qmax", 30000, "Grid: maximum Q (inclusive)")
	fs.IntVar(&o.step, "step", 500, "Grid: step size")
	fs.BoolVar(&o.refine, "refine", false, "Refine around the best Q of the coarse grid")
	fs.IntVar(&o.refineW, "refine-width", 2000, "Refine: half-width around best Q")
	fs.IntVar(&o.refineStep, "refine-step", 100, "Refine: step size")
	fs.IntVar(&o.workers, "workers", 0, "Parallel grid workers (0 = GOMAXPROCS)")
	fs.BoolVar(&o.traces, "traces", false, "Re-run the best Q with per-game traces and concessions metrics")

	// Output
	fs.BoolVar(&o.jsonOut, "json", false, "Print the result as JSON")
	fs.StringVar(&o.csvPath, "csv", "", "Write grid summaries as CSV to this path")
	fs.StringVar(&o.mdPath, "md", "", "Write a Markdown report to this path")
	fs.StringVar(&o.xlsxPath, "xlsx", "", "Write an XLSX workbook to this path")

	// Model and logging
	fs.StringVar(&o.configPath, "config", os.Getenv("NEWSVENDOR_CONFIG"), "YAML model configuration")
	fs.StringVar(&o.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	// Persistence
	fs.BoolVar(&o.persist, "persist", false, "Store the run and its summaries")
	fs.BoolVar(&o.useMemory, "use-memory", false, "Use in-memory storage with --persist")
	fs.StringVar(&o.postgresDSN, "postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	fs.StringVar(&o.clickhouseDSN, "clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	fs.StringVar(&o.redisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis URL for the summary cache")
	fs.StringVar(&o.kafkaBrokers, "kafka-brokers", os.Getenv("KAFKA_BROKERS"), "Comma-separated Kafka brokers")
	fs.StringVar(&o.kafkaTopic, "kafka-topic", events.DefaultTopic, "Kafka topic for run events")

	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, err := app.NewLogger(stderr, "sim", o.logLevel, false)
	if err != nil {
		return err
	}

	model, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if model, err = config.ApplyEnv(model, os.Getenv); err != nil {
		return err
	}

	sc := buildScenario(fs, sf, model)
	if err := sc.Validate(model); err != nil {
		return err
	}

	orch, cleanup, err := newOrchestrator(ctx, o, model, &logger)
	if err != nil {
		return err
	}
	defer cleanup()

	req := orchestrator.Request{
		Scenario:    sc,
		Mode:        domain.RunModeSingle,
		Q:           o.q,
		QMin:        o.qmin,
		QMax:        o.qmax,
		Step:        o.step,
		Refine:      o.refine,
		RefineWidth: o.refineW,
		RefineStep:  o.refineStep,
		Traces:      o.traces,
	}
	if o.grid {
		req.Mode = domain.RunModeGrid
	}

	start := time.Now()
	res, err := orch.Run(ctx, req)
	if err != nil {
		return err
	}
	logger.Info().Dur("elapsed", time.Since(start)).Str("run_id", res.ShortID).Msg("done")

	if o.jsonOut {
		if err := printJSON(stdout, res); err != nil {
			return err
		}
	} else {
		printResult(stdout, o, res)
	}

	return writeOutputs(o, res)
}

// buildScenario overlays the flags the user actually set on the default scenario.
func buildScenario(fs *flag.FlagSet, sf scenarioFlags, m config.Model) domain.Scenario {
	sc := domain.DefaultScenario(m)
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			sc.Seed = sf.seed
		case "n":
			sc.Replications = sf.n
		case "capacity":
			sc.StadiumCapacity = sf.capacity
		case "temp":
			sc.TempF = sf.temp
		case "team-wins":
			sc.TeamWins = sf.teamWins
		case "team-losses":
			sc.TeamLosses = sf.teamLosses
		case "opp-wins":
			sc.OppWins = sf.oppWins
		case "opp-losses":
			sc.OppLosses = sf.oppLosses
		case "rain":
			sc.Rain = sf.rain
		case "snow":
			sc.Snow = sf.snow
		case "promo":
			sc.Promo = sf.promo
		case "playoff":
			sc.Playoff = sf.playoff
		case "price":
			sc.Price = sf.price
		case "cost":
			sc.Cost = sf.cost
		case "salvage":
			sc.Salvage = sf.salvage
		case "fixed-cost":
			sc.FixedCostPerGame = sf.fixedCost
		}
	})
	if sf.indoor {
		sc = sc.WithIndoor(true, m)
	}
	return sc
}

func newOrchestrator(ctx context.Context, o options, m config.Model, logger *zerolog.Logger) (*orchestrator.Orchestrator, func(), error) {
	runner := simulation.NewRunner(simulation.RunnerOptions{
		Model:   m,
		Workers: o.workers,
		Logger:  logger,
	})
	opts := orchestrator.Options{Runner: runner, Logger: logger}
	if !o.persist {
		return orchestrator.New(opts), func() {}, nil
	}

	stores, closeStores, err := app.OpenStores(ctx, app.StoreConfig{
		PostgresDSN:   o.postgresDSN,
		ClickHouseDSN: o.clickhouseDSN,
		UseMemory:     o.useMemory,
		Migrate:       true,
	}, nil)
	if err != nil {
		return nil, nil, err
	}
	summaryCache, closeCache, err := app.OpenCache(ctx, o.redisURL, 0, nil)
	if err != nil {
		closeStores()
		return nil, nil, err
	}
	publisher, err := app.OpenPublisher(o.kafkaBrokers, o.kafkaTopic, *logger, nil)
	if err != nil {
		closeCache()
		closeStores()
		return nil, nil, err
	}

	opts.RunStore = stores.Runs
	opts.SummaryStore = stores.Summaries
	opts.Cache = summaryCache
	opts.Publisher = publisher

	cleanup := func() {
		publisher.Close()
		closeCache()
		closeStores()
	}
	return orchestrator.New(opts), cleanup, nil
}

// printSummary prints one summary in the fixed-width console layout.
func printSummary(w io.Writer, s *domain.Summary) {
	fmt.Fprintln(w, "\n=== Monte Carlo Summary ===")
	fmt.Fprintf(w, "Q:              %d\n", s.Q)
	fmt.Fprintf(w, "n games:        %d\n", s.NGames)
	fmt.Fprintf(w, "seed:           %d\n", s.Seed)
	fmt.Fprintln(w, "----------------------------")
	fmt.Fprintf(w, "avg_profit:     %.2f\n", s.AvgProfit)
	fmt.Fprintf(w, "sd_profit:      %.2f\n", s.SDProfit)
	fmt.Fprintf(w, "min_profit:     %.2f\n", s.MinProfit)
	fmt.Fprintf(w, "max_profit:     %.2f\n", s.MaxProfit)
	fmt.Fprintln(w, "----------------------------")
	fmt.Fprintf(w, "avg_attendance: %.1f\n", s.AvgAttendance)
	fmt.Fprintf(w, "avg_demand:     %.1f\n", s.AvgDemand)
	fmt.Fprintf(w, "avg_sold:       %.1f\n", s.AvgSold)
	fmt.Fprintf(w, "avg_leftover:   %.1f\n", s.AvgLeftover)
	fmt.Fprintf(w, "stockout_rate:  %.3f\n", s.StockoutRate)
	fmt.Fprintln(w)
}

func printResult(w io.Writer, o options, res *orchestrator.Result) {
	if res.Run.Mode == domain.RunModeSingle {
		printSummary(w, res.Best)
		printConcessions(w, res.Concessions)
		return
	}

	coarseLen := search.Points(o.qmin, o.qmax, o.step)
	if coarseLen > len(res.Summaries) {
		coarseLen = len(res.Summaries)
	}
	coarse := res.Summaries[:coarseLen]

	fmt.Fprintf(w, "\n=== Grid Search Results (top %d by avg_profit) ===\n", reporting.DefaultTopN)
	for _, s := range search.TopN(coarse, reporting.DefaultTopN) {
		fmt.Fprintf(w, "Q=%6d | avg_profit=%10.2f | stockout_rate=%.3f | avg_leftover=%.1f\n",
			s.Q, s.AvgProfit, s.StockoutRate, s.AvgLeftover)
	}

	if coarseBest, err := search.Best(coarse); err == nil {
		fmt.Fprintln(w, "\n=== Best Q by avg_profit (coarse grid) ===")
		printSummary(w, coarseBest)
	}

	if o.refine && len(res.Summaries) > coarseLen {
		if refined, err := search.Best(res.Summaries[coarseLen:]); err == nil {
			fmt.Fprintf(w, "\n=== Refined Search (best±%d by %d) ===\n", o.refineW, o.refineStep)
			printSummary(w, refined)
		}
	}

	printConcessions(w, res.Concessions)
	fmt.Fprintf(w, "run_id: %s (%s)\n", res.ShortID, res.Run.RunID)
}

func printConcessions(w io.Writer, c *metrics.Concessions) {
	if c == nil {
		return
	}
	fmt.Fprintf(w, "=== Concessions (Q=%d) ===\n", c.Q)
	fmt.Fprintf(w, "p05/p50/p95 profit: %.2f / %.2f / %.2f\n", c.P05Profit, c.P50Profit, c.P95Profit)
	fmt.Fprintf(w, "sellout_rate:       %.3f\n", c.SelloutRate)
	fmt.Fprintf(w, "waste_rate:         %.3f\n", c.WasteRate)
	fmt.Fprintf(w, "efficiency:         %.3f\n", c.Efficiency)
	fmt.Fprintf(w, "hot dogs per 1k:    %.1f\n", c.HotDogsPer1kFans)
	fmt.Fprintln(w)
}

type jsonResult struct {
	RunID       string               `json:"run_id"`
	ShortID     string               `json:"short_id"`
	Mode        string               `json:"mode"`
	Best        *domain.Summary      `json:"best"`
	Summaries   []*domain.Summary    `json:"summaries,omitempty"`
	Concessions *metrics.Concessions `json:"concessions,omitempty"`
	Notes       []string             `json:"notes,omitempty"`
	Persisted   bool                 `json:"persisted"`
}

func printJSON(w io.Writer, res *orchestrator.Result) error {
	out := jsonResult{
		RunID:       res.Run.RunID,
		ShortID:     res.ShortID,
		Mode:        res.Run.Mode,
		Best:        res.Best,
		Concessions: res.Concessions,
		Notes:       metrics.Notes(res.Best, res.Concessions),
		Persisted:   res.Persisted,
	}
	if res.Run.Mode == domain.RunModeGrid {
		out.Summaries = res.Summaries
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// writeOutputs writes the requested report files.
func writeOutputs(o options, res *orchestrator.Result) error {
	if o.csvPath != "" {
		if err := os.WriteFile(o.csvPath, []byte(reporting.RenderCSV(res.Summaries)), 0644); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	if o.mdPath == "" && o.xlsxPath == "" {
		return nil
	}

	r, err := reporting.Build(reporting.Input{
		Run:        res.Run,
		ShortID:    res.ShortID,
		Summaries:  res.Summaries,
		BestTraces: res.Best.Traces,
		Now:        time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	if o.mdPath != "" {
		if err := os.WriteFile(o.mdPath, []byte(reporting.RenderMarkdown(r)), 0644); err != nil {
			return fmt.Errorf("write markdown: %w", err)
		}
	}
	if o.xlsxPath != "" {
		f, err := os.Create(o.xlsxPath)
		if err != nil {
			return fmt.Errorf("create xlsx: %w", err)
		}
		defer f.Close()
		if err := reporting.WriteXLSX(f, r); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
	}
	return nil
}
