// Package verification replays stored runs and checks that the simulator
// reproduces every stored summary. Runs are deterministic given scenario,
// order quantities, seed and trial count, so any divergence points at a
// model change or corrupted storage.
package verification

import (
	"context"
	"fmt"
	"math"

	"newsvendor-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-9

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string // field name, prefixed with the grid position
	Expected any    // stored value
	Actual   any    // replayed value
}

// VerificationResult contains the result of verifying a single run.
type VerificationResult struct {
	RunID       string
	Match       bool              // true if all fields match
	Divergences []FieldDivergence // list of divergent fields
	Points      int               // number of stored summaries compared
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalRuns     int
	MatchedRuns   int
	DivergentRuns int
	Results       []VerificationResult
}

// Verifier replays stored runs.
type Verifier interface {
	// VerifyRun loads the stored run, re-executes the simulation with the
	// same inputs and compares every summary field.
	VerifyRun(ctx context.Context, runID string) (*VerificationResult, error)

	// VerifyAll verifies all stored runs.
	VerifyAll(ctx context.Context) (*VerificationReport, error)
}

// CompareSummaries compares two summaries and returns divergences.
// Integer fields must match exactly; floats use FloatTolerance.
// prefix is prepended to each field name, e.g. "[3]".
func CompareSummaries(prefix string, stored, replayed *domain.Summary) []FieldDivergence {
	var d []FieldDivergence

	ints := []struct {
		name   string
		exp    int64
		actual int64
	}{
		{"Q", int64(stored.Q), int64(replayed.Q)},
		{"NGames", int64(stored.NGames), int64(replayed.NGames)},
		{"Seed", stored.Seed, replayed.Seed},
	}
	for _, f := range ints {
		if f.exp != f.actual {
			d = append(d, FieldDivergence{Field: prefix + f.name, Expected: f.exp, Actual: f.actual})
		}
	}

	floats := []struct {
		name   string
		exp    float64
		actual float64
	}{
		{"AvgProfit", stored.AvgProfit, replayed.AvgProfit},
		{"SDProfit", stored.SDProfit, replayed.SDProfit},
		{"MinProfit", stored.MinProfit, replayed.MinProfit},
		{"MaxProfit", stored.MaxProfit, replayed.MaxProfit},
		{"AvgAttendance", stored.AvgAttendance, replayed.AvgAttendance},
		{"AvgDemand", stored.AvgDemand, replayed.AvgDemand},
		{"AvgSold", stored.AvgSold, replayed.AvgSold},
		{"AvgLeftover", stored.AvgLeftover, replayed.AvgLeftover},
		{"StockoutRate", stored.StockoutRate, replayed.StockoutRate},
		{"Price", stored.Price, replayed.Price},
		{"Cost", stored.Cost, replayed.Cost},
		{"Salvage", stored.Salvage, replayed.Salvage},
		{"FixedCostPerGame", stored.FixedCostPerGame, replayed.FixedCostPerGame},
	}
	for _, f := range floats {
		if !floatEquals(f.exp, f.actual) {
			d = append(d, FieldDivergence{Field: prefix + f.name, Expected: f.exp, Actual: f.actual})
		}
	}

	return d
}

// compareGrid compares stored and replayed summaries position by position.
func compareGrid(stored []*domain.RunSummary, replayed []*domain.Summary) []FieldDivergence {
	var d []FieldDivergence
	if len(stored) != len(replayed) {
		d = append(d, FieldDivergence{Field: "Points", Expected: len(stored), Actual: len(replayed)})
	}
	for i := 0; i < min(len(stored), len(replayed)); i++ {
		rs := stored[i]
		if rs.Position != i {
			d = append(d, FieldDivergence{Field: fmt.Sprintf("[%d].Position", i), Expected: i, Actual: rs.Position})
		}
		d = append(d, CompareSummaries(fmt.Sprintf("[%d].", i), &rs.Summary, replayed[i])...)
	}
	return d
}

// floatEquals compares two float64 values within FloatTolerance.
// NaN equals NaN so an empty-distribution field never reports a false divergence.
func floatEquals(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= FloatTolerance
}
