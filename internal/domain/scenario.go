package domain

import (
	"fmt"

	"newsvendor-lab/internal/config"
)

// Scenario represents every user-controlled input of one simulation run.
// It is a plain value: construction never validates, so partially filled
// scenarios can be built up by a caller. Call Validate before sampling.
type Scenario struct {
	// Simulation controls
	Seed         int64 `json:"seed"`
	Replications int   `json:"replications"`

	// Game context
	StadiumCapacity int     `json:"stadium_capacity"`
	TempF           float64 `json:"temp_f"`

	// Economics (per unit, except fixed cost)
	Price            float64 `json:"price"`
	Cost             float64 `json:"cost"`
	Salvage          float64 `json:"salvage"`
	FixedCostPerGame float64 `json:"fixed_cost_per_game"`

	// Season records
	TeamWins   int `json:"team_wins"`
	TeamLosses int `json:"team_losses"`
	OppWins    int `json:"opp_wins"`
	OppLosses  int `json:"opp_losses"`

	// Flags
	Indoor  bool `json:"indoor"`
	Rain    bool `json:"rain"`
	Snow    bool `json:"snow"`
	Promo   bool `json:"promo"`
	Playoff bool `json:"playoff"`
}

// Default scenario inputs for a regular-season game.
const (
	DefaultSeed             int64 = 123
	DefaultReplications           = 10_000
	DefaultStadiumCapacity        = 60_000
	DefaultPrice                  = 6.00
	DefaultCost                   = 1.50
	DefaultSalvage                = 0.25
	DefaultFixedCostPerGame       = 0.0
	DefaultWins                   = 9
	DefaultLosses                 = 8
)

// DefaultScenario returns a regular-season game at the model's ideal temperature.
func DefaultScenario(m config.Model) Scenario {
	return Scenario{
		Seed:             DefaultSeed,
		Replications:     DefaultReplications,
		StadiumCapacity:  DefaultStadiumCapacity,
		TempF:            m.TempIdealF,
		Price:            DefaultPrice,
		Cost:             DefaultCost,
		Salvage:          DefaultSalvage,
		FixedCostPerGame: DefaultFixedCostPerGame,
		TeamWins:         DefaultWins,
		TeamLosses:       DefaultLosses,
		OppWins:          DefaultWins,
		OppLosses:        DefaultLosses,
	}
}

// WithIndoor returns a copy with the indoor flag set.
// Indoor venues are climate controlled, so temperature is pinned to the
// ideal value. Weather flags are left as given; Validate rejects indoor
// rain or snow.
func (s Scenario) WithIndoor(indoor bool, m config.Model) Scenario {
	s.Indoor = indoor
	if indoor {
		s.TempF = m.TempIdealF
	}
	return s
}

// TeamWinPct returns the home team's win fraction, 0.5 with no games played.
func (s Scenario) TeamWinPct() float64 {
	return winPct(s.TeamWins, s.TeamLosses)
}

// OppWinPct returns the opponent's win fraction, 0.5 with no games played.
func (s Scenario) OppWinPct() float64 {
	return winPct(s.OppWins, s.OppLosses)
}

func winPct(wins, losses int) float64 {
	games := wins + losses
	if games <= 0 {
		return 0.5
	}
	return float64(wins) / float64(games)
}

// Validate checks the scenario against the model limits.
// The first violated rule is reported; the error wraps ErrInvalidScenario.
func (s Scenario) Validate(m config.Model) error {
	lim := m.Limits

	if s.Replications < lim.RepsMin || s.Replications > lim.RepsMax {
		return invalid("replications must be between %d and %d", lim.RepsMin, lim.RepsMax)
	}
	if s.StadiumCapacity < lim.CapacityMin || s.StadiumCapacity > lim.CapacityMax {
		return invalid("stadium_capacity must be between %d and %d", lim.CapacityMin, lim.CapacityMax)
	}
	if s.TempF < lim.TempMinF || s.TempF > lim.TempMaxF {
		return invalid("temp_f must be between %v and %v", lim.TempMinF, lim.TempMaxF)
	}

	// Economics
	if s.Price < lim.PriceMin || s.Price > lim.PriceMax || s.Price <= 0 {
		return invalid("price must be between %v and %v", lim.PriceMin, lim.PriceMax)
	}
	if s.Cost < lim.CostMin || s.Cost > lim.CostMax || s.Cost < 0 {
		return invalid("cost must be between %v and %v", lim.CostMin, lim.CostMax)
	}
	if s.Salvage < lim.SalvageMin || s.Salvage > lim.SalvageMax || s.Salvage < 0 {
		return invalid("salvage must be between %v and %v", lim.SalvageMin, lim.SalvageMax)
	}
	if s.Salvage > s.Cost {
		return invalid("salvage cannot exceed cost")
	}
	if s.Price <= s.Cost {
		return invalid("price must be greater than cost")
	}
	if s.FixedCostPerGame < 0 {
		return invalid("fixed_cost_per_game must be >= 0")
	}

	// Records
	for _, rec := range []struct {
		name         string
		wins, losses int
	}{
		{"team", s.TeamWins, s.TeamLosses},
		{"opp", s.OppWins, s.OppLosses},
	} {
		if rec.wins < 0 || rec.losses < 0 {
			return invalid("%s wins/losses must be >= 0", rec.name)
		}
		if rec.wins > m.SeasonGames || rec.losses > m.SeasonGames {
			return invalid("%s wins/losses must be <= %d", rec.name, m.SeasonGames)
		}
		if rec.wins+rec.losses > m.SeasonGames {
			return invalid("%s wins+losses cannot exceed %d", rec.name, m.SeasonGames)
		}
	}

	// Weather
	if s.Rain && s.Snow {
		return invalid("rain and snow cannot both be set")
	}
	if s.Indoor && (s.Rain || s.Snow) {
		return invalid("indoor stadium cannot have rain or snow")
	}

	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidScenario, fmt.Sprintf(format, args...))
}
