package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsvendor-lab/internal/domain"
	"newsvendor-lab/internal/storage/memory"
)

func grid(points ...[2]float64) []*domain.Summary {
	out := make([]*domain.Summary, len(points))
	for i, p := range points {
		out[i] = &domain.Summary{Q: int(p[0]), AvgProfit: p[1]}
	}
	return out
}

func TestComputeGridStats(t *testing.T) {
	g := grid(
		[2]float64{10_000, 40_000},
		[2]float64{12_000, 49_600},
		[2]float64{14_000, 50_000},
		[2]float64{16_000, 49_700},
		[2]float64{18_000, 45_000},
	)

	s, err := ComputeGridStats(g, 0.01)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Points)
	assert.Equal(t, 14_000, s.BestQ)
	assert.Equal(t, 50_000.0, s.BestProfit)
	assert.Equal(t, 10_000, s.WorstQ)
	assert.Equal(t, 12_000, s.BandLowQ)
	assert.Equal(t, 16_000, s.BandHighQ)

	s, err = ComputeGridStats(g, 0)
	require.NoError(t, err)
	assert.Equal(t, 14_000, s.BandLowQ)
	assert.Equal(t, 14_000, s.BandHighQ)
}

func TestComputeGridStats_TiesAndEmpty(t *testing.T) {
	s, err := ComputeGridStats(grid([2]float64{1, 5}, [2]float64{2, 5}), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, s.BestQ)
	assert.Equal(t, 1, s.WorstQ)

	_, err = ComputeGridStats(nil, 0.01)
	assert.True(t, errors.Is(err, ErrNoSummaries))
}

func TestAggregator_ForRun(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSummaryStore()

	require.NoError(t, store.InsertBulk(ctx, []*domain.RunSummary{
		{RunID: "run-1", Position: 0, Summary: domain.Summary{Q: 100, AvgProfit: 10}},
		{RunID: "run-1", Position: 1, Summary: domain.Summary{Q: 200, AvgProfit: 30}},
	}))

	agg := NewAggregator(store)
	s, err := agg.ForRun(ctx, "run-1", DefaultBandTolerance)
	require.NoError(t, err)
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, 200, s.BestQ)

	_, err = agg.ForRun(ctx, "missing", DefaultBandTolerance)
	assert.True(t, errors.Is(err, ErrNoSummaries))
}
