// Package orchestrator runs a complete order-quantity study.
// It coordinates: validation → grid evaluation → refinement → best-Q detail →
// persistence → cache → events.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"newsvendor-lab/internal/cache"
	"newsvendor-lab/internal/domain"
	"newsvendor-lab/internal/events"
	"newsvendor-lab/internal/idhash"
	"newsvendor-lab/internal/metrics"
	"newsvendor-lab/internal/search"
	"newsvendor-lab/internal/simulation"
	"newsvendor-lab/internal/storage"
)

// ErrInvalidRefine is returned for a negative refine width or a non-positive refine step.
var ErrInvalidRefine = errors.New("refine width must be >= 0 and refine step > 0")

// Orchestrator coordinates study execution.
type Orchestrator struct {
	runner *simulation.Runner

	// Optional collaborators
	runStore     storage.RunStore
	summaryStore storage.SummaryStore
	cache        cache.SummaryCache
	publisher    events.Publisher

	logger zerolog.Logger
	now    func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Runner *simulation.Runner

	// Persistence is skipped unless both stores are set.
	RunStore     storage.RunStore
	SummaryStore storage.SummaryStore

	Cache     cache.SummaryCache // optional
	Publisher events.Publisher   // optional, defaults to events.NopPublisher

	Logger *zerolog.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "orchestrator").Logger()
	}
	var publisher events.Publisher = events.NopPublisher{}
	if opts.Publisher != nil {
		publisher = opts.Publisher
	}
	return &Orchestrator{
		runner:       opts.Runner,
		runStore:     opts.RunStore,
		summaryStore: opts.SummaryStore,
		cache:        opts.Cache,
		publisher:    publisher,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Request describes one study.
type Request struct {
	Scenario domain.Scenario
	Mode     string // domain.RunModeSingle or domain.RunModeGrid

	// Single mode
	Q int

	// Grid mode: QValues wins over the QMin..QMax range when non-empty.
	QMin, QMax, Step int
	QValues          []int

	// Refine re-searches ±RefineWidth around the coarse best in RefineStep steps.
	Refine      bool
	RefineWidth int
	RefineStep  int

	// Overrides for the scenario's replications and seed.
	Sim simulation.Options

	// Traces re-runs the best Q with per-game series and concessions metrics.
	Traces bool
}

// Result contains the outcome of a study.
type Result struct {
	Run     *domain.Run
	ShortID string

	// Summaries in evaluation order: coarse grid first, then refined points.
	Summaries []*domain.Summary
	Best      *domain.Summary // carries traces when requested

	Concessions *metrics.Concessions

	Cached    bool // served from the cache without simulating
	Persisted bool // run and summaries are in the stores
}

// Run executes a study.
// Phases:
//  1. Validate the scenario and build the Q grid
//  2. Evaluate the grid (and the refined grid)
//  3. Re-run the best Q with traces
//  4. Persist, cache and publish
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	m := o.runner.Model()

	// Phase 1: Validation
	if err := req.Scenario.Validate(m); err != nil {
		return nil, err
	}
	qs, err := o.coarseGrid(req)
	if err != nil {
		return nil, err
	}
	simOpts := req.Sim
	simOpts.Traces = false
	n, seed := simOpts.Resolve(req.Scenario)

	mode := req.Mode
	if mode != domain.RunModeSingle {
		mode = domain.RunModeGrid
	}

	// Phase 2: Evaluation
	var summaries []*domain.Summary
	var cached *cache.Entry
	if !req.Refine {
		if cached = o.lookup(ctx, idhash.ComputeRunID(mode, req.Scenario, m, qs, n, seed)); cached != nil {
			summaries = cached.Summaries
		}
	}

	if cached == nil {
		summaries, err = o.evaluate(ctx, mode, qs, req.Scenario, simOpts)
		if err != nil {
			return nil, fmt.Errorf("evaluate grid: %w", err)
		}
	}

	if req.Refine && mode == domain.RunModeGrid {
		refined, err := o.refine(ctx, req, qs, summaries, simOpts)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, refined...)
		for _, s := range refined {
			qs = append(qs, s.Q)
		}
	}

	best, err := search.Best(summaries)
	if err != nil {
		return nil, err
	}

	runID := idhash.ComputeRunID(mode, req.Scenario, m, qs, n, seed)
	short, err := idhash.ShortRunID(runID)
	if err != nil {
		return nil, err
	}

	run := &domain.Run{
		RunID:     runID,
		Mode:      mode,
		Scenario:  req.Scenario,
		QValues:   qs,
		NGames:    n,
		Seed:      seed,
		BestQ:     best.Q,
		CreatedAt: o.now().UnixMilli(),
	}
	if cached != nil && cached.Run != nil {
		run.CreatedAt = cached.Run.CreatedAt
	}

	result := &Result{
		Run:       run,
		ShortID:   short,
		Summaries: summaries,
		Best:      best,
		Cached:    cached != nil,
	}

	// Phase 3: Best-Q detail
	if req.Traces {
		detailOpts := simOpts.WithN(n).WithSeed(seed)
		detailOpts.Traces = true
		detailed, err := simulation.Simulate(best.Q, req.Scenario, m, detailOpts)
		if err != nil {
			return nil, fmt.Errorf("best Q traces: %w", err)
		}
		c, err := metrics.FromTraces(best.Q, req.Scenario.StadiumCapacity, detailed.Traces)
		if err != nil {
			return nil, err
		}
		result.Best = detailed
		result.Concessions = c
	}

	o.logger.Info().
		Str("run_id", short).
		Str("mode", mode).
		Int("points", len(qs)).
		Int("best_q", best.Q).
		Float64("avg_profit", best.AvgProfit).
		Bool("cached", result.Cached).
		Msg("study complete")

	if result.Cached {
		return result, nil
	}

	// Phase 4: Side effects
	persisted, err := o.persist(ctx, run, summaries)
	if err != nil {
		return nil, fmt.Errorf("persist run %s: %w", short, err)
	}
	result.Persisted = persisted

	o.store(ctx, run, summaries)

	if err := o.publisher.PublishRunCompleted(ctx, events.NewRunCompleted(run, best, o.now())); err != nil {
		o.logger.Warn().Err(err).Str("run_id", short).Msg("publish run completed failed")
	}

	return result, nil
}

// coarseGrid builds the requested order quantities.
func (o *Orchestrator) coarseGrid(req Request) ([]int, error) {
	lim := o.runner.Model().Limits
	switch {
	case req.Mode == domain.RunModeSingle:
		qs := []int{req.Q}
		if err := search.CheckValues(qs, lim); err != nil {
			return nil, err
		}
		return qs, nil
	case len(req.QValues) > 0:
		if err := search.CheckValues(req.QValues, lim); err != nil {
			return nil, err
		}
		return slices.Clone(req.QValues), nil
	default:
		return search.Range(req.QMin, req.QMax, req.Step, lim)
	}
}

func (o *Orchestrator) evaluate(ctx context.Context, mode string, qs []int, sc domain.Scenario, opts simulation.Options) ([]*domain.Summary, error) {
	if mode == domain.RunModeSingle {
		s, err := o.runner.Simulate(ctx, qs[0], sc, opts)
		if err != nil {
			return nil, err
		}
		return []*domain.Summary{s}, nil
	}
	return o.runner.EvaluateGrid(ctx, qs, sc, opts)
}

// refine evaluates the refined grid around the coarse best, bounded by the coarse range.
func (o *Orchestrator) refine(ctx context.Context, req Request, coarse []int, summaries []*domain.Summary, opts simulation.Options) ([]*domain.Summary, error) {
	if req.RefineWidth < 0 || req.RefineStep <= 0 {
		return nil, ErrInvalidRefine
	}
	best, err := search.Best(summaries)
	if err != nil {
		return nil, err
	}

	qs, err := search.RefineRange(best.Q, req.RefineWidth, req.RefineStep,
		slices.Min(coarse), slices.Max(coarse), o.runner.Model().Limits)
	if err != nil {
		return nil, fmt.Errorf("refine range: %w", err)
	}

	refined, err := o.runner.EvaluateGrid(ctx, qs, req.Scenario, opts)
	if err != nil {
		return nil, fmt.Errorf("evaluate refined grid: %w", err)
	}

	o.logger.Debug().
		Int("center", best.Q).
		Int("points", len(qs)).
		Msg("refined grid evaluated")
	return refined, nil
}

// lookup returns the cached entry for runID, or nil.
func (o *Orchestrator) lookup(ctx context.Context, runID string) *cache.Entry {
	if o.cache == nil {
		return nil
	}
	e, ok, err := o.cache.Get(ctx, runID)
	if err != nil {
		o.logger.Warn().Err(err).Msg("cache lookup failed")
		return nil
	}
	if !ok || len(e.Summaries) == 0 {
		return nil
	}
	return e
}

// persist stores the summaries and then the run.
// The run row is written last so a stored run always has its summaries;
// a retry after a failed run insert finds the summaries already in place.
// A run already stored under the same ID is left untouched.
func (o *Orchestrator) persist(ctx context.Context, run *domain.Run, summaries []*domain.Summary) (bool, error) {
	if o.runStore == nil || o.summaryStore == nil {
		return false, nil
	}

	rows := make([]*domain.RunSummary, len(summaries))
	for i, s := range summaries {
		rows[i] = &domain.RunSummary{RunID: run.RunID, Position: i, Summary: *s}
		rows[i].Traces = nil
	}
	if err := o.summaryStore.InsertBulk(ctx, rows); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			return false, fmt.Errorf("insert summaries: %w", err)
		}
		stored, err := o.summaryStore.GetByRunID(ctx, run.RunID)
		if err != nil {
			return false, fmt.Errorf("check stored summaries: %w", err)
		}
		if len(stored) != len(rows) {
			return false, fmt.Errorf("%w: %d of %d summaries stored for run", storage.ErrDuplicateKey, len(stored), len(rows))
		}
		o.logger.Debug().Str("run_id", run.RunID).Msg("summaries already stored")
	}

	if err := o.runStore.Insert(ctx, run); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			o.logger.Debug().Str("run_id", run.RunID).Msg("run already stored")
			return true, nil
		}
		return false, fmt.Errorf("insert run: %w", err)
	}
	return true, nil
}

// store writes the run to the cache. Failures are logged.
func (o *Orchestrator) store(ctx context.Context, run *domain.Run, summaries []*domain.Summary) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Put(ctx, &cache.Entry{Run: run, Summaries: summaries}); err != nil {
		o.logger.Warn().Err(err).Str("run_id", run.RunID).Msg("cache put failed")
	}
}
