package profit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsvendor-lab/internal/domain"
)

func economics(fixed float64) domain.Scenario {
	return domain.Scenario{Price: 6.00, Cost: 1.50, Salvage: 0.25, FixedCostPerGame: fixed}
}

func TestForGame_Leftover(t *testing.T) {
	res, err := ForGame(20000, 15000, 50000, economics(0))
	require.NoError(t, err)

	assert.Equal(t, 15000, res.Sold)
	assert.Equal(t, 5000, res.Leftover)
	assert.Equal(t, 90000.0, res.Revenue)
	assert.Equal(t, 30000.0, res.Cost)
	assert.Equal(t, 1250.0, res.Salvage)
	assert.Equal(t, 61250.0, res.Profit)
	assert.Equal(t, 50000, res.Attendance)
	assert.False(t, res.Stockout())
}

func TestForGame_Stockout(t *testing.T) {
	res, err := ForGame(10000, 12000, 0, economics(0))
	require.NoError(t, err)

	assert.Equal(t, 10000, res.Sold)
	assert.Equal(t, 0, res.Leftover)
	assert.Equal(t, 60000.0, res.Revenue)
	assert.Equal(t, 15000.0, res.Cost)
	assert.Equal(t, 0.0, res.Salvage)
	assert.Equal(t, 45000.0, res.Profit)
	assert.True(t, res.Stockout())
}

func TestForGame_FixedCostAndZeroOrder(t *testing.T) {
	res, err := ForGame(0, 500, 0, economics(1000))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sold)
	assert.Equal(t, -1000.0, res.Profit)

	res, err = ForGame(100, 100, 0, economics(1000))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Leftover)
	assert.Equal(t, 600.0-150.0-1000.0, res.Profit)
}

func TestForGame_RejectsNegativeInputs(t *testing.T) {
	_, err := ForGame(-1, 10, 0, economics(0))
	require.ErrorIs(t, err, domain.ErrNegativeQuantity)

	_, err = ForGame(10, -1, 0, economics(0))
	require.ErrorIs(t, err, domain.ErrNegativeDemand)
}

func TestCriticalRatio(t *testing.T) {
	assert.InDelta(t, 4.5/5.75, CriticalRatio(economics(0)), 1e-12)
	assert.True(t, math.IsNaN(CriticalRatio(domain.Scenario{Price: 1, Salvage: 1})))
}

func TestNormalApproxQuantity(t *testing.T) {
	sc := economics(0)

	// critical ratio ~0.783 puts Q above the mean
	q := NormalApproxQuantity(15000, 2000, sc)
	assert.Greater(t, q, 15000)
	assert.Less(t, q, 17000)

	// symmetric economics give the mean
	even := domain.Scenario{Price: 2, Cost: 1, Salvage: 0}
	assert.Equal(t, 15000, NormalApproxQuantity(15000, 2000, even))

	assert.Equal(t, 15000, NormalApproxQuantity(15000, 0, sc))
}
