package verification

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"newsvendor-lab/internal/config"
	"newsvendor-lab/internal/domain"
	"newsvendor-lab/internal/simulation"
	"newsvendor-lab/internal/storage"
)

var (
	// ErrRunNotFound is returned when the run ID doesn't exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrInvalidRepeats is returned by CheckDeterminism for repeats < 2.
	ErrInvalidRepeats = errors.New("determinism check needs at least 2 repeats")
)

// ReplayVerifier implements Verifier.
type ReplayVerifier struct {
	runStore     storage.RunStore
	summaryStore storage.SummaryStore
	model        config.Model
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	RunStore     storage.RunStore
	SummaryStore storage.SummaryStore
	// Model must be the model the runs were produced with.
	Model config.Model
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		runStore:     opts.RunStore,
		summaryStore: opts.SummaryStore,
		model:        opts.Model,
	}
}

// VerifyRun verifies a single run by replaying its grid.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationResult, error) {
	// 1. Load stored run
	run, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	stored, err := v.summaryStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	// 2. Replay simulation
	replayed, err := simulation.EvaluateGrid(run.QValues, run.Scenario, v.model,
		simulation.Options{}.WithN(run.NGames).WithSeed(run.Seed))
	if err != nil {
		return nil, fmt.Errorf("replay run %s: %w", runID, err)
	}

	// 3. Compare results
	divergences := compareGrid(stored, replayed)

	return &VerificationResult{
		RunID:       runID,
		Match:       len(divergences) == 0,
		Divergences: divergences,
		Points:      len(stored),
	}, nil
}

// VerifyAll verifies all stored runs.
func (v *ReplayVerifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	runs, err := v.runStore.List(ctx, 0)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalRuns: len(runs),
		Results:   make([]VerificationResult, 0, len(runs)),
	}

	for _, run := range runs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := v.VerifyRun(ctx, run.RunID)
		if err != nil {
			// Record error as divergence
			report.Results = append(report.Results, VerificationResult{
				RunID: run.RunID,
				Match: false,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentRuns++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedRuns++
		} else {
			report.DivergentRuns++
		}
	}

	return report, nil
}

// CheckDeterminism simulates q repeats times with identical inputs and
// reports whether every repeat, traces included, is identical to the first.
func CheckDeterminism(q int, sc domain.Scenario, m config.Model, opts simulation.Options, repeats int) (bool, error) {
	if repeats < 2 {
		return false, ErrInvalidRepeats
	}
	opts.Traces = true

	first, err := simulation.Simulate(q, sc, m, opts)
	if err != nil {
		return false, err
	}
	for i := 1; i < repeats; i++ {
		next, err := simulation.Simulate(q, sc, m, opts)
		if err != nil {
			return false, err
		}
		if !reflect.DeepEqual(first, next) {
			return false, nil
		}
	}
	return true, nil
}
