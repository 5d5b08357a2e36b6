package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	m := Default()
	require.NoError(t, m.Validate())

	assert.Equal(t, 0.30, m.RBase)
	assert.Equal(t, 0.86, m.BaseFillRate)
	assert.Equal(t, 0.70, m.TempMultFloor)
	assert.Equal(t, 0.80, m.TeamWinMultFloor)
	assert.Equal(t, 0.90, m.OppWinMultFloor)
	assert.Equal(t, 500, m.Limits.MaxGridPoints)
}

func TestLoad_EmptyPathReturnsDefault(t *testing.T) {
	m, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), m)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	content := "noise_sigma: 0.25\nlimits:\n  max_grid_points: 50\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.25, m.NoiseSigma)
	assert.Equal(t, 50, m.Limits.MaxGridPoints)
	assert.Equal(t, 0.30, m.RBase)
	assert.Equal(t, 100_000, m.Limits.RepsMax)
}

func TestLoad_InvalidModelRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte("season_games: 0\n"), 0o644))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"NEWSVENDOR_NOISE_SIGMA":     "0.2",
		"NEWSVENDOR_MAX_GRID_POINTS": "42",
	}
	m, err := ApplyEnv(Default(), func(k string) string { return env[k] })
	require.NoError(t, err)

	assert.Equal(t, 0.2, m.NoiseSigma)
	assert.Equal(t, 42, m.Limits.MaxGridPoints)
	assert.Equal(t, Default().RBase, m.RBase)
}

func TestApplyEnv_BadValue(t *testing.T) {
	env := map[string]string{"NEWSVENDOR_R_BASE": "lots"}
	_, err := ApplyEnv(Default(), func(k string) string { return env[k] })
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate_InvertedRange(t *testing.T) {
	m := Default()
	m.Limits.TempMinF = 120
	require.ErrorIs(t, m.Validate(), ErrInvalidConfig)
}
