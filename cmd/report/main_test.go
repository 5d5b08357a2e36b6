package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"newsvendor-lab/internal/reporting"
)

func runReport(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	err := run(context.Background(), args, &stdout, io.Discard)
	return stdout.String(), err
}

func TestRun_FixtureMarkdown(t *testing.T) {
	out, err := runReport(t, "--use-fixtures")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Contains(t, out, "# Concessions Order Report")
}

func TestRun_FixtureCSV(t *testing.T) {
	out, err := runReport(t, "--use-fixtures", "--format", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 10) // header + 9 grid points
	assert.True(t, strings.HasPrefix(lines[0], "Q,"))
	assert.True(t, strings.HasPrefix(lines[1], "16000,500,"))
}

func TestRun_FixtureXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	out, err := runReport(t, "--use-fixtures", "--format", "xlsx", "--output", path)
	require.NoError(t, err)
	assert.Contains(t, out, "written to")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), reporting.SheetGrid)
}

func TestRun_FixtureVerify(t *testing.T) {
	out, err := runReport(t, "--use-fixtures", "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "1 runs verified, 0 diverged")
}

func TestRun_FixtureList(t *testing.T) {
	out, err := runReport(t, "--use-fixtures", "--list", "5")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "SHORT_ID")
	assert.Contains(t, lines[1], "grid")
	assert.Contains(t, lines[1], "2025-01-04T12:00:00Z")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown format", []string{"--use-fixtures", "--format", "pdf"}},
		{"xlsx without output", []string{"--use-fixtures", "--format", "xlsx"}},
		{"unknown run", []string{"--use-fixtures", "--run-id", strings.Repeat("0", 64)}},
		{"verify unknown run", []string{"--use-fixtures", "--verify", "--run-id", "missing"}},
		{"missing dsn", []string{"--postgres-dsn", "", "--clickhouse-dsn", "", "--run-id", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runReport(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestRun_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	_, err := runReport(t, "--use-fixtures", "--output", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
