// Package main runs the simulation API server:
// - REST: single-Q simulations, grid searches, stored runs and reports
// - WebSocket: grid summaries streamed as they are computed
// - Verification (scheduled): stored runs are replayed and compared
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"newsvendor-lab/internal/api"
	"newsvendor-lab/internal/app"
	"newsvendor-lab/internal/cache"
	"newsvendor-lab/internal/config"
	"newsvendor-lab/internal/events"
	"newsvendor-lab/internal/observability"
	"newsvendor-lab/internal/orchestrator"
	"newsvendor-lab/internal/reporting"
	"newsvendor-lab/internal/simulation"
	"newsvendor-lab/internal/verification"
)

// options holds the parsed command line.
type options struct {
	addr           string
	configPath     string
	postgresDSN    string
	clickhouseDSN  string
	useMemory      bool
	migrate        bool
	redisURL       string
	cacheTTL       time.Duration
	kafkaBrokers   string
	kafkaTopic     string
	corsOrigins    string
	workers        int
	verifyInterval time.Duration
	logLevel       string
	logJSON        bool
}

func main() {
	// Load .env file if exists
	config.LoadEnvFile(".env")

	o, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	// Setup logger
	logger, err := app.NewLogger(os.Stdout, "server", o.logLevel, o.logJSON)
	if err != nil {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Fatal().Err(err).Msg("invalid log level")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithContext(ctx)

	srv, cleanup, err := newServer(ctx, o, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
	defer cleanup()

	logger.Info().
		Str("storage", srv.stores.Backend).
		Bool("redis", o.redisURL != "").
		Bool("kafka", o.kafkaBrokers != "").
		Msg("backends ready")

	httpSrv := &http.Server{
		Addr:              o.addr,
		Handler:           srv.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if o.verifyInterval > 0 {
		go runVerifyScheduler(ctx, srv.verifier, o.verifyInterval, logger)
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", o.addr).Msg("listening")
		serveErr <- httpSrv.ListenAndServe()
	}()

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("received signal, initiating graceful shutdown")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Second signal forces an immediate exit
	go func() {
		select {
		case sig := <-sigCh:
			logger.Warn().Str("signal", sig.String()).Msg("received second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-shutdownCtx.Done():
		}
	}()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("shutdown complete")
}

// parseFlags reads the command line. Environment variables supply defaults.
func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.addr, "addr", envOr("NEWSVENDOR_ADDR", ":8080"), "HTTP listen address")
	fs.StringVar(&o.configPath, "config", os.Getenv("NEWSVENDOR_CONFIG"), "YAML model configuration")
	fs.StringVar(&o.postgresDSN, "postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	fs.StringVar(&o.clickhouseDSN, "clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	fs.BoolVar(&o.useMemory, "use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	fs.BoolVar(&o.migrate, "migrate", true, "Apply database migrations on startup")
	fs.StringVar(&o.redisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis URL for the summary cache (in-process cache if empty)")
	fs.DurationVar(&o.cacheTTL, "cache-ttl", cache.DefaultTTL, "Summary cache TTL")
	fs.StringVar(&o.kafkaBrokers, "kafka-brokers", os.Getenv("KAFKA_BROKERS"), "Comma-separated Kafka brokers (events disabled if empty)")
	fs.StringVar(&o.kafkaTopic, "kafka-topic", envOr("KAFKA_TOPIC", events.DefaultTopic), "Kafka topic for run events")
	fs.StringVar(&o.corsOrigins, "cors-origins", os.Getenv("CORS_ORIGINS"), "Comma-separated allowed origins (all if empty)")
	fs.IntVar(&o.workers, "workers", 0, "Parallel grid workers (0 = GOMAXPROCS)")
	fs.DurationVar(&o.verifyInterval, "verify-interval", 0, "Replay verification interval (0 disables)")
	fs.StringVar(&o.logLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	fs.BoolVar(&o.logJSON, "log-json", true, "Log as JSON")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

// server is the wired set of components behind the HTTP handler.
type server struct {
	model     config.Model
	stores    *app.Stores
	cache     cache.SummaryCache
	publisher events.Publisher
	verifier  verification.Verifier
	handler   http.Handler
}

// newServer opens the backends and builds the handler.
// The returned cleanup closes every backend that was opened.
func newServer(ctx context.Context, o options, logger zerolog.Logger) (*server, func(), error) {
	model, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load model config: %w", err)
	}
	if model, err = config.ApplyEnv(model, os.Getenv); err != nil {
		return nil, nil, fmt.Errorf("apply model env overrides: %w", err)
	}

	// Metrics on an isolated registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := observability.NewMetrics("newsvendor", reg)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	stores, closeStores, err := app.OpenStores(ctx, app.StoreConfig{
		PostgresDSN:   o.postgresDSN,
		ClickHouseDSN: o.clickhouseDSN,
		UseMemory:     o.useMemory,
		Migrate:       o.migrate,
	}, m)
	if err != nil {
		return nil, nil, fmt.Errorf("create stores: %w", err)
	}
	closers = append(closers, closeStores)

	summaryCache, closeCache, err := app.OpenCache(ctx, o.redisURL, o.cacheTTL, m)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	closers = append(closers, closeCache)

	publisher, err := app.OpenPublisher(o.kafkaBrokers, o.kafkaTopic, logger, m)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("create event publisher: %w", err)
	}
	closers = append(closers, func() { publisher.Close() })

	// Components
	runner := simulation.NewRunner(simulation.RunnerOptions{
		Model:    model,
		Workers:  o.workers,
		Logger:   &logger,
		Recorder: m,
	})
	orch := orchestrator.New(orchestrator.Options{
		Runner:       runner,
		RunStore:     stores.Runs,
		SummaryStore: stores.Summaries,
		Cache:        summaryCache,
		Publisher:    publisher,
		Logger:       &logger,
	})
	reports := reporting.NewGenerator(reporting.GeneratorOptions{
		RunStore:     stores.Runs,
		SummaryStore: stores.Summaries,
		Model:        model,
		Traces:       true,
		Recorder:     m,
	})

	var origins []string
	for _, origin := range strings.Split(o.corsOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	handler := api.NewServer(api.Options{
		Orchestrator:   orch,
		Runner:         runner,
		RunStore:       stores.Runs,
		SummaryStore:   stores.Summaries,
		Reports:        reports,
		Metrics:        m,
		MetricsHandler: observability.HandlerFor(reg),
		CORSOrigins:    origins,
		Logger:         &logger,
	}).Router()

	return &server{
		model:     model,
		stores:    stores,
		cache:     summaryCache,
		publisher: publisher,
		verifier: verification.NewReplayVerifier(verification.ReplayVerifierOptions{
			RunStore:     stores.Runs,
			SummaryStore: stores.Summaries,
			Model:        model,
		}),
		handler: handler,
	}, cleanup, nil
}

// runVerifyScheduler replays every stored run on each tick and logs divergences.
func runVerifyScheduler(ctx context.Context, v verification.Verifier, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := v.VerifyAll(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("verification failed")
				continue
			}
			ev := logger.Info()
			if report.DivergentRuns > 0 {
				ev = logger.Warn()
			}
			ev.Int("total", report.TotalRuns).
				Int("matched", report.MatchedRuns).
				Int("divergent", report.DivergentRuns).
				Msg("verification complete")
			for _, r := range report.Results {
				if !r.Match {
					logger.Warn().Str("run_id", r.RunID).Int("divergences", len(r.Divergences)).Msg("run diverged on replay")
				}
			}
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
