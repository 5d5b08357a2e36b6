// Package metrics derives decision metrics from simulated games and grids.
package metrics

import (
	"context"
	"errors"
	"math"

	"newsvendor-lab/internal/domain"
	"newsvendor-lab/internal/storage"
)

// ErrNoSummaries is returned when a run has no stored summaries.
var ErrNoSummaries = errors.New("no summaries available for aggregation")

// DefaultBandTolerance is the relative profit gap that still counts as near-optimal.
const DefaultBandTolerance = 0.01

// GridStats describes the shape of a profit-vs-Q curve.
type GridStats struct {
	RunID  string `json:"run_id,omitempty"`
	Points int    `json:"points"`

	BestQ       int     `json:"best_q"`
	BestProfit  float64 `json:"best_profit"`
	WorstQ      int     `json:"worst_q"`
	WorstProfit float64 `json:"worst_profit"`

	// BestStockout and BestLeftover describe the winning Q.
	BestStockout float64 `json:"best_stockout_rate"`
	BestLeftover float64 `json:"best_avg_leftover"`

	// Near-optimal band: the smallest and largest Q whose profit is within
	// BandTolerance (relative) of BestProfit.
	BandTolerance float64 `json:"band_tolerance"`
	BandLowQ      int     `json:"band_low_q"`
	BandHighQ     int     `json:"band_high_q"`
}

// ComputeGridStats summarizes a grid. Ties for best and worst go to the
// earliest entry.
func ComputeGridStats(summaries []*domain.Summary, tolerance float64) (*GridStats, error) {
	if len(summaries) == 0 {
		return nil, ErrNoSummaries
	}
	if tolerance < 0 {
		tolerance = 0
	}

	best, worst := summaries[0], summaries[0]
	for _, s := range summaries[1:] {
		if s.AvgProfit > best.AvgProfit {
			best = s
		}
		if s.AvgProfit < worst.AvgProfit {
			worst = s
		}
	}

	floor := best.AvgProfit - tolerance*math.Abs(best.AvgProfit)
	lo, hi := best.Q, best.Q
	for _, s := range summaries {
		if s.AvgProfit >= floor {
			lo = min(lo, s.Q)
			hi = max(hi, s.Q)
		}
	}

	return &GridStats{
		Points:        len(summaries),
		BestQ:         best.Q,
		BestProfit:    best.AvgProfit,
		WorstQ:        worst.Q,
		WorstProfit:   worst.AvgProfit,
		BestStockout:  best.StockoutRate,
		BestLeftover:  best.AvgLeftover,
		BandTolerance: tolerance,
		BandLowQ:      lo,
		BandHighQ:     hi,
	}, nil
}

// Aggregator computes grid statistics for stored runs.
type Aggregator struct {
	summaryStore storage.SummaryStore
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(summaryStore storage.SummaryStore) *Aggregator {
	return &Aggregator{summaryStore: summaryStore}
}

// ForRun loads a run's summaries and computes its grid statistics.
// Returns ErrNoSummaries if the run has none.
func (a *Aggregator) ForRun(ctx context.Context, runID string, tolerance float64) (*GridStats, error) {
	stored, err := a.summaryStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, ErrNoSummaries
	}

	summaries := make([]*domain.Summary, len(stored))
	for i, rs := range stored {
		summaries[i] = &rs.Summary
	}

	stats, err := ComputeGridStats(summaries, tolerance)
	if err != nil {
		return nil, err
	}
	stats.RunID = runID
	return stats, nil
}
