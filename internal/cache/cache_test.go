package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsvendor-lab/internal/domain"
)

func makeEntry(id string) *Entry {
	return &Entry{
		Run: &domain.Run{RunID: id, Mode: domain.RunModeGrid, QValues: []int{1, 2}, NGames: 10, Seed: 1, BestQ: 2},
		Summaries: []*domain.Summary{
			{Q: 1, NGames: 10, AvgProfit: 1.5},
			{Q: 2, NGames: 10, AvgProfit: 2.5},
		},
	}
}

func TestMemoryCache_PutGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	_, ok, err := c.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, makeEntry("run-1")))
	got, ok, err := c.Get(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, makeEntry("run-1"), got)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Put(ctx, makeEntry("run-1")))
	now = now.Add(2 * time.Minute)

	_, ok, err := c.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_ExpiredEntryRemovedOnGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Put(ctx, makeEntry("run-1")))
	require.Equal(t, 1, c.Len())

	now = now.Add(2 * time.Minute)
	_, ok, err := c.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_PutSweepsExpired(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for _, id := range []string{"run-1", "run-2", "run-3"} {
		require.NoError(t, c.Put(ctx, makeEntry(id)))
	}
	require.Equal(t, 3, c.Len())

	now = now.Add(2 * time.Minute)
	require.NoError(t, c.Put(ctx, makeEntry("run-4")))
	assert.Equal(t, 1, c.Len())

	_, ok, err := c.Get(ctx, "run-4")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCache_InvalidEntry(t *testing.T) {
	c := NewMemoryCache(0)
	assert.True(t, errors.Is(c.Put(context.Background(), nil), ErrInvalidEntry))
	assert.True(t, errors.Is(c.Put(context.Background(), &Entry{Run: &domain.Run{}}), ErrInvalidEntry))
}
