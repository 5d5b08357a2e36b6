package reporting

import (
	"context"
	"time"

	"newsvendor-lab/internal/config"
	"newsvendor-lab/internal/domain"
	"newsvendor-lab/internal/idhash"
	"newsvendor-lab/internal/simulation"
	"newsvendor-lab/internal/storage"
)

// Recorder is notified for every generated report. *observability.Metrics satisfies it.
type Recorder interface {
	RecordReport()
}

// Generator produces reports from stored runs.
type Generator struct {
	runStore     storage.RunStore
	summaryStore storage.SummaryStore
	model        config.Model
	traces       bool
	recorder     Recorder
	now          func() time.Time // Injectable clock for deterministic output
}

// GeneratorOptions contains configuration for creating a Generator.
type GeneratorOptions struct {
	RunStore     storage.RunStore
	SummaryStore storage.SummaryStore
	Model        config.Model
	// Traces re-runs the best Q with traces to fill concessions metrics.
	// Runs are deterministic, so the re-run reproduces the stored summary.
	Traces   bool
	Recorder Recorder
}

// NewGenerator creates a new report generator.
func NewGenerator(opts GeneratorOptions) *Generator {
	return &Generator{
		runStore:     opts.RunStore,
		summaryStore: opts.SummaryStore,
		model:        opts.Model,
		traces:       opts.Traces,
		recorder:     opts.Recorder,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report for a stored run.
// Returns storage.ErrNotFound for an unknown run and ErrNoSummaries for a
// run without summaries.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	stored, err := g.summaryStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, ErrNoSummaries
	}

	summaries := make([]*domain.Summary, len(stored))
	for i, rs := range stored {
		s := rs.Summary
		summaries[i] = &s
	}

	var traces *domain.Traces
	if g.traces {
		bestQ := run.BestQ
		best, err := simulation.Simulate(bestQ, run.Scenario, g.model,
			simulation.Options{Traces: true}.WithN(run.NGames).WithSeed(run.Seed))
		if err != nil {
			return nil, err
		}
		traces = best.Traces
	}

	short, _ := idhash.ShortRunID(run.RunID)

	r, err := Build(Input{
		Run:        run,
		ShortID:    short,
		Summaries:  summaries,
		BestTraces: traces,
		Now:        g.now(),
	})
	if err != nil {
		return nil, err
	}
	if g.recorder != nil {
		g.recorder.RecordReport()
	}
	return r, nil
}
