package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsvendor-lab/internal/config"
)

func TestDefaultScenario_Valid(t *testing.T) {
	m := config.Default()
	sc := DefaultScenario(m)

	require.NoError(t, sc.Validate(m))
	// idempotent
	require.NoError(t, sc.Validate(m))
	assert.Equal(t, m.TempIdealF, sc.TempF)
}

func TestScenario_Validate_Rejects(t *testing.T) {
	m := config.Default()

	tests := []struct {
		name    string
		mutate  func(*Scenario)
		wantMsg string
	}{
		{"replications too low", func(s *Scenario) { s.Replications = 10 }, "replications"},
		{"replications too high", func(s *Scenario) { s.Replications = 1_000_000 }, "replications"},
		{"capacity out of range", func(s *Scenario) { s.StadiumCapacity = 1000 }, "stadium_capacity"},
		{"temp out of range", func(s *Scenario) { s.TempF = 120 }, "temp_f"},
		{"price zero", func(s *Scenario) { s.Price = 0 }, "price"},
		{"cost negative", func(s *Scenario) { s.Cost = -1 }, "cost"},
		{"salvage above cost", func(s *Scenario) { s.Salvage = 2.00; s.Cost = 1.50 }, "salvage cannot exceed cost"},
		{"price not above cost", func(s *Scenario) { s.Price = 1.50; s.Cost = 1.50; s.Salvage = 0 }, "price must be greater than cost"},
		{"fixed cost negative", func(s *Scenario) { s.FixedCostPerGame = -5 }, "fixed_cost_per_game"},
		{"team wins negative", func(s *Scenario) { s.TeamWins = -1 }, "team wins/losses must be >= 0"},
		{"opp losses above season", func(s *Scenario) { s.OppWins = 0; s.OppLosses = 21 }, "opp wins/losses must be <= 20"},
		{"team record above season", func(s *Scenario) { s.TeamWins = 12; s.TeamLosses = 9 }, "team wins+losses cannot exceed 20"},
		{"rain and snow", func(s *Scenario) { s.Rain = true; s.Snow = true }, "rain and snow"},
		{"indoor with rain", func(s *Scenario) { s.Indoor = true; s.Rain = true }, "indoor"},
		{"indoor with snow", func(s *Scenario) { s.Indoor = true; s.Snow = true }, "indoor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := DefaultScenario(m)
			tt.mutate(&sc)

			err := sc.Validate(m)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidScenario)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestScenario_Validate_FirstViolationWins(t *testing.T) {
	m := config.Default()
	sc := DefaultScenario(m)
	sc.Salvage = 2.00 // rule 5
	sc.Rain = true    // rule 9
	sc.Snow = true

	err := sc.Validate(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "salvage cannot exceed cost")
}

func TestScenario_Validate_UsesInjectedLimits(t *testing.T) {
	m := config.Default()
	m.Limits.CapacityMin = 1000
	sc := DefaultScenario(m)
	sc.StadiumCapacity = 5000

	require.NoError(t, sc.Validate(m))
	require.Error(t, sc.Validate(config.Default()))
}

func TestScenario_WinPct(t *testing.T) {
	sc := Scenario{TeamWins: 15, TeamLosses: 5}
	assert.InDelta(t, 0.75, sc.TeamWinPct(), 1e-12)
	assert.Equal(t, 0.5, sc.OppWinPct(), "no games played means no information")

	sc.OppLosses = 4
	assert.Equal(t, 0.0, sc.OppWinPct())
}

func TestScenario_WithIndoor(t *testing.T) {
	m := config.Default()
	sc := DefaultScenario(m)
	sc.TempF = 20

	indoor := sc.WithIndoor(true, m)
	assert.True(t, indoor.Indoor)
	assert.Equal(t, m.TempIdealF, indoor.TempF)
	require.NoError(t, indoor.Validate(m))

	// receiver untouched
	assert.False(t, sc.Indoor)
	assert.Equal(t, 20.0, sc.TempF)
}

func TestScenario_WithIndoorKeepsWeather(t *testing.T) {
	m := config.Default()
	sc := DefaultScenario(m)
	sc.Snow = true

	indoor := sc.WithIndoor(true, m)
	assert.True(t, indoor.Snow)
	assert.ErrorIs(t, indoor.Validate(m), ErrInvalidScenario)
}

func TestGameResult_Stockout(t *testing.T) {
	assert.True(t, GameResult{Q: 10, D: 11}.Stockout())
	assert.False(t, GameResult{Q: 10, D: 10}.Stockout())
}
