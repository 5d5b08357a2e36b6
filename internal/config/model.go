// Package config holds the tunable coefficients and validation ranges of the
// demand and profit model. Nothing in the simulator reads package-level
// state: a Model value is passed explicitly to every consumer.
package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when a Model fails its own sanity checks.
var ErrInvalidConfig = errors.New("invalid model config")

// Model contains every coefficient used by attendance, noise and demand sampling.
type Model struct {
	RBase float64 `yaml:"r_base"` // hot dogs per attendee

	// Attendance distribution
	BaseFillRate      float64 `yaml:"base_fill_rate"`      // share of seats filled on a regular game
	AttendanceStdFrac float64 `yaml:"attendance_std_frac"` // std dev as a fraction of the mean
	MinStd            float64 `yaml:"min_std"`             // std dev floor for small stadiums

	// Lognormal noise, log-space sigma
	NoiseSigma float64 `yaml:"noise_sigma"`

	// Attendance drivers
	PromoBoost        float64 `yaml:"promo_boost"`
	PlayoffBoost      float64 `yaml:"playoff_boost"`
	RainPenalty       float64 `yaml:"rain_penalty"`
	SnowPenalty       float64 `yaml:"snow_penalty"`
	TempIdealF        float64 `yaml:"temp_ideal_f"`
	TempPenaltyPer10F float64 `yaml:"temp_penalty_per_10f"`
	TempMultFloor     float64 `yaml:"temp_mult_floor"`
	TeamWinBoostAt1   float64 `yaml:"team_win_boost_at_1"`
	OppWinBoostAt1    float64 `yaml:"opp_win_boost_at_1"`
	TeamWinMultFloor  float64 `yaml:"team_win_mult_floor"`
	OppWinMultFloor   float64 `yaml:"opp_win_mult_floor"`

	SeasonGames int `yaml:"season_games"`

	Limits Limits `yaml:"limits"`
}

// Limits are the accepted ranges for scenario fields and order quantities.
type Limits struct {
	CapacityMin int `yaml:"capacity_min"`
	CapacityMax int `yaml:"capacity_max"`

	TempMinF float64 `yaml:"temp_min_f"`
	TempMaxF float64 `yaml:"temp_max_f"`

	RepsMin int `yaml:"reps_min"`
	RepsMax int `yaml:"reps_max"`

	PriceMin   float64 `yaml:"price_min"`
	PriceMax   float64 `yaml:"price_max"`
	CostMin    float64 `yaml:"cost_min"`
	CostMax    float64 `yaml:"cost_max"`
	SalvageMin float64 `yaml:"salvage_min"`
	SalvageMax float64 `yaml:"salvage_max"`

	QMin          int `yaml:"q_min"`
	QMax          int `yaml:"q_max"`
	MaxGridPoints int `yaml:"max_grid_points"`
}

// Default returns the calibrated baseline model.
func Default() Model {
	return Model{
		RBase: 0.30,

		BaseFillRate:      0.86,
		AttendanceStdFrac: 0.12,
		MinStd:            2000,

		NoiseSigma: 0.10,

		PromoBoost:        1.03,
		PlayoffBoost:      1.20,
		RainPenalty:       0.90,
		SnowPenalty:       0.95,
		TempIdealF:        65,
		TempPenaltyPer10F: 0.02,
		TempMultFloor:     0.70,
		TeamWinBoostAt1:   1.10,
		OppWinBoostAt1:    1.05,
		TeamWinMultFloor:  0.80,
		OppWinMultFloor:   0.90,

		SeasonGames: 20,

		Limits: DefaultLimits(),
	}
}

// DefaultLimits returns the default input ranges.
func DefaultLimits() Limits {
	return Limits{
		CapacityMin: 25_000,
		CapacityMax: 100_000,

		TempMinF: 0,
		TempMaxF: 100,

		RepsMin: 100,
		RepsMax: 100_000,

		PriceMin:   0.01,
		PriceMax:   50.0,
		CostMin:    0.00,
		CostMax:    50.0,
		SalvageMin: 0.00,
		SalvageMax: 50.0,

		QMin:          0,
		QMax:          100_000,
		MaxGridPoints: 500,
	}
}

// Validate checks that the model itself is usable.
// A model with non-positive sigma or inverted ranges would make sampling meaningless.
func (m Model) Validate() error {
	switch {
	case m.RBase < 0:
		return fmt.Errorf("%w: r_base must be >= 0", ErrInvalidConfig)
	case m.BaseFillRate <= 0:
		return fmt.Errorf("%w: base_fill_rate must be > 0", ErrInvalidConfig)
	case m.AttendanceStdFrac < 0 || m.MinStd < 0:
		return fmt.Errorf("%w: attendance std parameters must be >= 0", ErrInvalidConfig)
	case m.NoiseSigma < 0:
		return fmt.Errorf("%w: noise_sigma must be >= 0", ErrInvalidConfig)
	case m.TempMultFloor <= 0 || m.TeamWinMultFloor <= 0 || m.OppWinMultFloor <= 0:
		return fmt.Errorf("%w: multiplier floors must be > 0", ErrInvalidConfig)
	case m.SeasonGames <= 0:
		return fmt.Errorf("%w: season_games must be > 0", ErrInvalidConfig)
	}
	return m.Limits.validate()
}

func (l Limits) validate() error {
	type rng struct {
		name     string
		min, max float64
	}
	for _, r := range []rng{
		{"capacity", float64(l.CapacityMin), float64(l.CapacityMax)},
		{"temp_f", l.TempMinF, l.TempMaxF},
		{"replications", float64(l.RepsMin), float64(l.RepsMax)},
		{"price", l.PriceMin, l.PriceMax},
		{"cost", l.CostMin, l.CostMax},
		{"salvage", l.SalvageMin, l.SalvageMax},
		{"q", float64(l.QMin), float64(l.QMax)},
	} {
		if r.min > r.max {
			return fmt.Errorf("%w: %s range is inverted (%v > %v)", ErrInvalidConfig, r.name, r.min, r.max)
		}
	}
	if l.RepsMin <= 0 {
		return fmt.Errorf("%w: reps_min must be > 0", ErrInvalidConfig)
	}
	if l.CapacityMin <= 0 {
		return fmt.Errorf("%w: capacity_min must be > 0", ErrInvalidConfig)
	}
	if l.QMin < 0 {
		return fmt.Errorf("%w: q_min must be >= 0", ErrInvalidConfig)
	}
	if l.MaxGridPoints <= 0 {
		return fmt.Errorf("%w: max_grid_points must be > 0", ErrInvalidConfig)
	}
	return nil
}
