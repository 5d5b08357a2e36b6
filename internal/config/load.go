package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override key.
const EnvPrefix = "NEWSVENDOR_"

// Load reads a YAML model file on top of Default.
// Keys missing from the file keep their default values.
// An empty path returns Default unchanged.
func Load(path string) (Model, error) {
	m := Default()
	if path == "" {
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Model{}, fmt.Errorf("read model config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Model{}, fmt.Errorf("parse model config %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return Model{}, err
	}
	return m, nil
}

// ApplyEnv overrides model fields from environment variables such as
// NEWSVENDOR_NOISE_SIGMA. getenv is usually os.Getenv.
// Unparseable values are reported rather than ignored.
func ApplyEnv(m Model, getenv func(string) string) (Model, error) {
	floats := map[string]*float64{
		"R_BASE":               &m.RBase,
		"BASE_FILL_RATE":       &m.BaseFillRate,
		"ATTENDANCE_STD_FRAC":  &m.AttendanceStdFrac,
		"MIN_STD":              &m.MinStd,
		"NOISE_SIGMA":          &m.NoiseSigma,
		"PROMO_BOOST":          &m.PromoBoost,
		"PLAYOFF_BOOST":        &m.PlayoffBoost,
		"RAIN_PENALTY":         &m.RainPenalty,
		"SNOW_PENALTY":         &m.SnowPenalty,
		"TEMP_IDEAL_F":         &m.TempIdealF,
		"TEMP_PENALTY_PER_10F": &m.TempPenaltyPer10F,
		"TEMP_MULT_FLOOR":      &m.TempMultFloor,
		"TEAM_WIN_BOOST_AT_1":  &m.TeamWinBoostAt1,
		"OPP_WIN_BOOST_AT_1":   &m.OppWinBoostAt1,
		"TEAM_WIN_MULT_FLOOR":  &m.TeamWinMultFloor,
		"OPP_WIN_MULT_FLOOR":   &m.OppWinMultFloor,
	}
	ints := map[string]*int{
		"SEASON_GAMES":    &m.SeasonGames,
		"REPS_MIN":        &m.Limits.RepsMin,
		"REPS_MAX":        &m.Limits.RepsMax,
		"Q_MAX":           &m.Limits.QMax,
		"MAX_GRID_POINTS": &m.Limits.MaxGridPoints,
	}

	for key, dst := range floats {
		raw := strings.TrimSpace(getenv(EnvPrefix + key))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Model{}, fmt.Errorf("%w: %s%s=%q: %v", ErrInvalidConfig, EnvPrefix, key, raw, err)
		}
		*dst = v
	}
	for key, dst := range ints {
		raw := strings.TrimSpace(getenv(EnvPrefix + key))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Model{}, fmt.Errorf("%w: %s%s=%q: %v", ErrInvalidConfig, EnvPrefix, key, raw, err)
		}
		*dst = v
	}

	if err := m.Validate(); err != nil {
		return Model{}, err
	}
	return m, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Existing variables are not overridden. A missing file is not an error.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
