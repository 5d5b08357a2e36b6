package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsvendor-lab/internal/config"
	"newsvendor-lab/internal/domain"
	"newsvendor-lab/internal/storage"
	pgstore "newsvendor-lab/internal/storage/postgres"
)

func makeRun(id string, createdAt int64) *domain.Run {
	sc := domain.DefaultScenario(config.Default())
	sc.Promo = true
	return &domain.Run{
		RunID:     id,
		Mode:      domain.RunModeGrid,
		Scenario:  sc,
		QValues:   []int{15_000, 15_500, 16_000},
		NGames:    sc.Replications,
		Seed:      sc.Seed,
		BestQ:     15_500,
		CreatedAt: createdAt,
	}
}

func TestRunStore_InsertAndGet(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := pgstore.NewRunStore(pool)

	run := makeRun("run-1", 1_700_000_000_000)
	require.NoError(t, store.Insert(ctx, run))

	got, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, got)
}

func TestRunStore_DuplicateKey(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := pgstore.NewRunStore(pool)

	require.NoError(t, store.Insert(ctx, makeRun("run-1", 1)))
	err := store.Insert(ctx, makeRun("run-1", 2))
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))
}

func TestRunStore_NotFound(t *testing.T) {
	pool := newTestPool(t)

	_, err := pgstore.NewRunStore(pool).GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestRunStore_List(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := pgstore.NewRunStore(pool)

	require.NoError(t, store.Insert(ctx, makeRun("b", 10)))
	require.NoError(t, store.Insert(ctx, makeRun("a", 10)))
	require.NoError(t, store.Insert(ctx, makeRun("c", 30)))

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{all[0].RunID, all[1].RunID, all[2].RunID})

	top, err := store.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "c", top[0].RunID)
}
