// Package app wires the infrastructure shared by the commands: logging,
// storage backends, the summary cache and the event publisher. Every
// backend is optional and falls back to an in-process implementation.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"newsvendor-lab/internal/cache"
	"newsvendor-lab/internal/events"
	"newsvendor-lab/internal/observability"
	"newsvendor-lab/internal/storage"
	chstore "newsvendor-lab/internal/storage/clickhouse"
	"newsvendor-lab/internal/storage/memory"
	"newsvendor-lab/internal/storage/migrations"
	pgstore "newsvendor-lab/internal/storage/postgres"
)

// ErrMissingDSN is returned when durable storage is requested without both DSNs.
var ErrMissingDSN = errors.New("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")

// NewLogger builds a logger for a command.
// JSON output is meant for servers; the console writer for interactive tools.
func NewLogger(w io.Writer, component, level string, jsonOutput bool) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("parse log level %q: %w", level, err)
		}
		lvl = parsed
	}
	if !jsonOutput {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("component", component).Logger(), nil
}

// StoreConfig selects the storage backends.
type StoreConfig struct {
	PostgresDSN   string
	ClickHouseDSN string
	UseMemory     bool
	Migrate       bool // apply embedded migrations before use
}

// Stores holds the run registry and the summary store.
type Stores struct {
	Runs      storage.RunStore
	Summaries storage.SummaryStore
	Backend   string // "memory" or "postgres+clickhouse"
}

// OpenStores connects the configured backends. rec may be nil.
// The returned cleanup closes every connection.
func OpenStores(ctx context.Context, cfg StoreConfig, rec storage.QueryRecorder) (*Stores, func(), error) {
	if cfg.UseMemory {
		return instrument(&Stores{
			Runs:      memory.NewRunStore(),
			Summaries: memory.NewSummaryStore(),
			Backend:   "memory",
		}, rec), func() {}, nil
	}
	if cfg.PostgresDSN == "" || cfg.ClickHouseDSN == "" {
		return nil, nil, ErrMissingDSN
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if cfg.Migrate {
		if _, err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
	}

	// ClickHouse
	var conn *chstore.Conn
	if cfg.Migrate {
		conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
	} else {
		conn, err = chstore.NewConn(ctx, cfg.ClickHouseDSN)
	}
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	stores := instrument(&Stores{
		Runs:      pgstore.NewRunStore(pool),
		Summaries: chstore.NewSummaryStore(conn),
		Backend:   "postgres+clickhouse",
	}, rec)

	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

func instrument(s *Stores, rec storage.QueryRecorder) *Stores {
	if rec == nil {
		return s
	}
	runsDB, summariesDB := "memory", "memory"
	if s.Backend != "memory" {
		runsDB, summariesDB = "postgres", "clickhouse"
	}
	s.Runs = storage.InstrumentRunStore(s.Runs, runsDB, rec)
	s.Summaries = storage.InstrumentSummaryStore(s.Summaries, summariesDB, rec)
	return s
}

// OpenCache returns a Redis cache for a non-empty URL and an in-process cache otherwise.
func OpenCache(ctx context.Context, redisURL string, ttl time.Duration, m *observability.Metrics) (cache.SummaryCache, func(), error) {
	if redisURL == "" {
		return cache.NewMemoryCache(ttl), func() {}, nil
	}
	client, err := cache.NewRedisClient(ctx, redisURL)
	if err != nil {
		return nil, nil, err
	}
	opts := cache.RedisOptions{TTL: ttl}
	if m != nil {
		opts.Recorder = m
	}
	return cache.NewRedisCache(client, opts), func() { client.Close() }, nil
}

// OpenPublisher returns a Kafka publisher for non-empty brokers and a no-op publisher otherwise.
func OpenPublisher(brokers, topic string, logger zerolog.Logger, m *observability.Metrics) (events.Publisher, error) {
	list := splitList(brokers)
	if len(list) == 0 {
		return events.NopPublisher{}, nil
	}
	opts := events.KafkaOptions{
		Brokers: list,
		Topic:   topic,
		Logger:  &logger,
	}
	if m != nil {
		opts.Recorder = m
	}
	p, err := events.NewKafkaPublisher(opts)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
