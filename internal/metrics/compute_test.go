package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsvendor-lab/internal/domain"
)

func TestComputePercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.05, 1.45},
		{0.5, 5.5},
		{0.95, 9.55},
		{1, 10},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, computePercentile(sorted, tt.p), 1e-9, "p=%v", tt.p)
	}

	assert.Equal(t, 0.0, computePercentile(nil, 0.5))
	assert.Equal(t, 7.0, computePercentile([]float64{7}, 0.05))
}

func TestFromTraces(t *testing.T) {
	tr := &domain.Traces{
		Profit:     []float64{100, 200, 300, 400},
		Demand:     []int{50, 100, 150, 200},
		Attendance: []int{1_000, 2_000, 2_000, 500},
	}

	c, err := FromTraces(100, 2_000, tr)
	require.NoError(t, err)

	assert.Equal(t, 100, c.Q)
	assert.Equal(t, 4, c.Games)
	assert.InDelta(t, 0.5, c.SelloutRate, 1e-12)
	// leftover 50,0,0,0 over Q=100
	assert.InDelta(t, 0.125, c.WasteRate, 1e-12)
	// sold 50,100,100,100 over Q=100
	assert.InDelta(t, 0.875, c.Efficiency, 1e-12)
	// 50/1000, 100/2000, 100/2000, 100/500 per 1k fans
	assert.InDelta(t, (50.0+50+50+200)/4, c.HotDogsPer1kFans, 1e-9)
	assert.InDelta(t, 115.0, c.P05Profit, 1e-9)
	assert.InDelta(t, 250.0, c.P50Profit, 1e-9)
	assert.InDelta(t, 385.0, c.P95Profit, 1e-9)
}

func TestFromTraces_ZeroQuantityAndEmptyHouse(t *testing.T) {
	tr := &domain.Traces{
		Profit:     []float64{0},
		Demand:     []int{10},
		Attendance: []int{0},
	}
	c, err := FromTraces(0, 100, tr)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.WasteRate)
	assert.Equal(t, 0.0, c.Efficiency)
	assert.Equal(t, 0.0, c.HotDogsPer1kFans)
	assert.Equal(t, 0.0, c.SelloutRate)
}

func TestFromTraces_Errors(t *testing.T) {
	_, err := FromTraces(1, 1, nil)
	assert.True(t, errors.Is(err, ErrNoTraces))

	_, err = FromTraces(1, 1, &domain.Traces{})
	assert.True(t, errors.Is(err, ErrNoTraces))

	_, err = FromTraces(1, 1, &domain.Traces{Profit: []float64{1}, Demand: []int{1}})
	assert.True(t, errors.Is(err, ErrNoTraces))
}

func TestNotes(t *testing.T) {
	s := &domain.Summary{AvgProfit: 61_249.6, StockoutRate: 0.3}
	c := &Concessions{WasteRate: 0.05, SelloutRate: 0.3}

	lines := Notes(s, c)
	require.Len(t, lines, 4)
	assert.Equal(t, "Expected profit is about $61,250 per game.", lines[0])
	assert.Contains(t, lines[1], "frequent")
	assert.Contains(t, lines[2], "low")
	assert.Contains(t, lines[3], "often")

	assert.Len(t, Notes(&domain.Summary{StockoutRate: 0.01}, nil), 2)
	assert.Nil(t, Notes(nil, nil))
}

func TestGroupThousands(t *testing.T) {
	assert.Equal(t, "0", groupThousands(0))
	assert.Equal(t, "999", groupThousands(999))
	assert.Equal(t, "1,000", groupThousands(1000))
	assert.Equal(t, "-1,234,567", groupThousands(-1234567))
}
