package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsvendor-lab/internal/domain"
	"newsvendor-lab/internal/storage"
)

func makeRunSummary(runID string, pos, q int) *domain.RunSummary {
	return &domain.RunSummary{
		RunID:    runID,
		Position: pos,
		Summary: domain.Summary{
			Q:         q,
			NGames:    100,
			Seed:      123,
			AvgProfit: float64(q) / 2,
		},
	}
}

func TestSummaryStore_InsertBulkAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewSummaryStore()

	batch := []*domain.RunSummary{
		makeRunSummary("run-1", 2, 20_000),
		makeRunSummary("run-1", 0, 10_000),
		makeRunSummary("run-1", 1, 15_000),
		makeRunSummary("run-2", 0, 5_000),
	}
	batch[0].Traces = &domain.Traces{Profit: []float64{1}}
	require.NoError(t, s.InsertBulk(ctx, batch))

	got, err := s.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, rs := range got {
		assert.Equal(t, i, rs.Position)
		assert.Nil(t, rs.Traces)
	}
	assert.Equal(t, 10_000, got[0].Q)
	assert.Equal(t, 20_000, got[2].Q)

	none, err := s.GetByRunID(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSummaryStore_BatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewSummaryStore()

	require.NoError(t, s.InsertBulk(ctx, []*domain.RunSummary{makeRunSummary("run-1", 0, 1)}))

	err := s.InsertBulk(ctx, []*domain.RunSummary{
		makeRunSummary("run-1", 1, 2),
		makeRunSummary("run-1", 0, 3),
	})
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))

	got, err := s.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	err = s.InsertBulk(ctx, []*domain.RunSummary{
		makeRunSummary("run-3", 0, 1),
		makeRunSummary("run-3", 0, 2),
	})
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))
}

func TestSummaryStore_InvalidInput(t *testing.T) {
	s := NewSummaryStore()
	err := s.InsertBulk(context.Background(), []*domain.RunSummary{{Position: 0}})
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))
	assert.NoError(t, s.InsertBulk(context.Background(), nil))
}
