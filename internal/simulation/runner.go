package simulation

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"newsvendor-lab/internal/config"
	"newsvendor-lab/internal/domain"
)

// Recorder receives run-level measurements. *observability.Metrics satisfies it.
type Recorder interface {
	RecordRun(mode string, points, games int, d time.Duration, err error)
}

// Runner executes simulations against a fixed model configuration.
type Runner struct {
	model    config.Model
	workers  int
	logger   zerolog.Logger
	recorder Recorder
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Model    config.Model
	Workers  int // parallel grid workers, <= 0 means GOMAXPROCS
	Logger   *zerolog.Logger
	Recorder Recorder
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "simulation").Logger()
	}
	return &Runner{
		model:    opts.Model,
		workers:  workers,
		logger:   logger,
		recorder: opts.Recorder,
	}
}

// Model returns the model configuration the runner was built with.
func (r *Runner) Model() config.Model {
	return r.model
}

// Simulate runs a single order quantity.
func (r *Runner) Simulate(ctx context.Context, q int, sc domain.Scenario, opts Options) (*domain.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	s, err := Simulate(q, sc, r.model, opts)
	r.observe(domain.RunModeSingle, 1, opts, sc, start, err)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().
		Int("q", q).
		Int("n_games", s.NGames).
		Int64("seed", s.Seed).
		Float64("avg_profit", s.AvgProfit).
		Float64("stockout_rate", s.StockoutRate).
		Dur("elapsed", time.Since(start)).
		Msg("simulation complete")
	return s, nil
}

// EvaluateGrid evaluates every Q in order, in parallel across the runner's workers.
// Output order always matches qs.
func (r *Runner) EvaluateGrid(ctx context.Context, qs []int, sc domain.Scenario, opts Options) ([]*domain.Summary, error) {
	start := time.Now()
	out, err := EvaluateGridParallel(ctx, qs, sc, r.model, opts, r.workers)
	r.observe(domain.RunModeGrid, len(qs), opts, sc, start, err)
	if err != nil {
		r.logger.Warn().Err(err).Int("points", len(qs)).Msg("grid evaluation failed")
		return nil, err
	}

	r.logger.Info().
		Int("points", len(qs)).
		Int("workers", r.workers).
		Dur("elapsed", time.Since(start)).
		Msg("grid evaluation complete")
	return out, nil
}

// StreamGrid evaluates qs in order and hands each summary to fn as soon as it
// is ready. It stops at the first error from the simulation, fn or ctx.
func (r *Runner) StreamGrid(ctx context.Context, qs []int, sc domain.Scenario, opts Options, fn func(pos int, s *domain.Summary) error) error {
	start := time.Now()
	err := r.streamGrid(ctx, qs, sc, opts, fn)
	r.observe(domain.RunModeGrid, len(qs), opts, sc, start, err)
	return err
}

func (r *Runner) streamGrid(ctx context.Context, qs []int, sc domain.Scenario, opts Options, fn func(pos int, s *domain.Summary) error) error {
	if err := sc.Validate(r.model); err != nil {
		return err
	}
	for i, q := range qs {
		if err := ctx.Err(); err != nil {
			return err
		}
		s, err := Simulate(q, sc, r.model, opts)
		if err != nil {
			return fmt.Errorf("simulate Q=%d: %w", q, err)
		}
		if err := fn(i, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) observe(mode string, points int, opts Options, sc domain.Scenario, start time.Time, err error) {
	if r.recorder == nil {
		return
	}
	n, _ := opts.Resolve(sc)
	r.recorder.RecordRun(mode, points, n, time.Since(start), err)
}

// EvaluateGridParallel is EvaluateGrid with up to workers concurrent Q values.
// Results are identical to the sequential version because every Q owns its generator.
func EvaluateGridParallel(ctx context.Context, qs []int, sc domain.Scenario, m config.Model, opts Options, workers int) ([]*domain.Summary, error) {
	if err := sc.Validate(m); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}

	out := make([]*domain.Summary, len(qs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, q := range qs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := Simulate(q, sc, m, opts)
			if err != nil {
				return fmt.Errorf("simulate Q=%d: %w", q, err)
			}
			out[i] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
