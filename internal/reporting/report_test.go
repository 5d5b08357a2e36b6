package reporting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"newsvendor-lab/internal/config"
	"newsvendor-lab/internal/domain"
	"newsvendor-lab/internal/simulation"
	"newsvendor-lab/internal/storage"
	"newsvendor-lab/internal/storage/memory"
)

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func simulatedRun(t *testing.T, qs []int) (*domain.Run, []*domain.Summary, config.Model) {
	t.Helper()
	m := config.Default()
	sc := domain.DefaultScenario(m)
	sc.Replications = 500

	summaries, err := simulation.EvaluateGrid(qs, sc, m, simulation.Options{})
	require.NoError(t, err)

	best := summaries[0]
	for _, s := range summaries {
		if s.AvgProfit > best.AvgProfit {
			best = s
		}
	}
	run := &domain.Run{
		RunID:     strings.Repeat("ab", 32),
		Mode:      domain.RunModeGrid,
		Scenario:  sc,
		QValues:   qs,
		NGames:    sc.Replications,
		Seed:      sc.Seed,
		BestQ:     best.Q,
		CreatedAt: fixedNow.UnixMilli(),
	}
	return run, summaries, m
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$0.00", money(0))
	assert.Equal(t, "$61,250.00", money(61250))
	assert.Equal(t, "$1,234,567.89", money(1234567.891))
	assert.Equal(t, "-$45,000.50", money(-45000.5))
	assert.Equal(t, "$0.13", money(0.125))
	assert.Equal(t, 2.35, roundMoney(2.345))
}

func TestBuild(t *testing.T) {
	run, summaries, m := simulatedRun(t, []int{12_000, 14_000, 16_000, 18_000})

	best, err := simulation.Simulate(run.BestQ, run.Scenario, m, simulation.Options{Traces: true})
	require.NoError(t, err)

	r, err := Build(Input{Run: run, Summaries: summaries, BestTraces: best.Traces, TopN: 3, Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, run.BestQ, r.Best.Q)
	assert.Len(t, r.Top, 3)
	assert.Equal(t, r.Best, r.Top[0])
	require.NotNil(t, r.Concessions)
	assert.Equal(t, run.BestQ, r.Concessions.Q)
	assert.InDelta(t, (6-1.5)/(6-0.25), r.CriticalRatio, 1e-12)
	require.NotNil(t, r.NormalApproxQ)
	assert.Greater(t, *r.NormalApproxQ, 0)
	assert.NotEmpty(t, r.Notes)
	assert.Equal(t, 4, r.Grid.Points)
}

func TestBuild_WithoutTraces(t *testing.T) {
	run, summaries, _ := simulatedRun(t, []int{15_000})

	r, err := Build(Input{Run: run, Summaries: summaries, Now: fixedNow})
	require.NoError(t, err)
	assert.Nil(t, r.Concessions)
	assert.Nil(t, r.NormalApproxQ)
	assert.Len(t, r.Top, 1)
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(Input{Run: &domain.Run{}})
	assert.True(t, errors.Is(err, ErrNoSummaries))

	_, err = Build(Input{})
	assert.Error(t, err)
}

func TestRenderCSV(t *testing.T) {
	csv := RenderCSV([]*domain.Summary{
		{Q: 100, NGames: 10, Seed: 1, AvgProfit: 12.5, StockoutRate: 0.25, Price: 6, Cost: 1.5, Salvage: 0.25},
	})
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Q,n_games,seed,avg_profit"))
	assert.True(t, strings.HasPrefix(lines[1], "100,10,1,12.500000,"))
	assert.True(t, strings.HasSuffix(lines[1], ",0.250000,6.00,1.50,0.25,0.00"))
}

func TestRenderTracesCSV(t *testing.T) {
	out := RenderTracesCSV(&domain.Traces{
		Profit:     []float64{10, 20},
		Demand:     []int{5, 6},
		Attendance: []int{50, 60},
		Eps:        []float64{1, 1.1},
	})
	assert.Equal(t, "game,attendance,eps,demand,profit\n1,50,1.000000,5,10.00\n2,60,1.100000,6,20.00\n", out)
	assert.Equal(t, "game,attendance,eps,demand,profit\n", RenderTracesCSV(nil))
}

func TestRenderMarkdown(t *testing.T) {
	run, summaries, m := simulatedRun(t, []int{14_000, 16_000})
	run.Scenario.Promo = true
	best, err := simulation.Simulate(run.BestQ, run.Scenario, m, simulation.Options{Traces: true})
	require.NoError(t, err)

	r, err := Build(Input{Run: run, ShortID: "short", Summaries: summaries, BestTraces: best.Traces, Now: fixedNow})
	require.NoError(t, err)

	md := RenderMarkdown(r)
	assert.Contains(t, md, "# Concessions Order Report")
	assert.Contains(t, md, "Generated: 2026-01-02T03:04:05Z")
	assert.Contains(t, md, "Run: `short`")
	assert.Contains(t, md, "| Flags | promo |")
	assert.Contains(t, md, "| Price / Cost / Salvage | $6.00 / $1.50 / $0.25 |")
	assert.Contains(t, md, "## Top 2 by Avg Profit")
	assert.Contains(t, md, "Downside Profit (5th pct)")
	assert.Contains(t, md, "## Notes")
}

func TestWriteXLSX(t *testing.T) {
	run, summaries, m := simulatedRun(t, []int{14_000, 16_000, 18_000})
	best, err := simulation.Simulate(run.BestQ, run.Scenario, m, simulation.Options{Traces: true}.WithN(50))
	require.NoError(t, err)

	r, err := Build(Input{Run: run, Summaries: summaries, BestTraces: best.Traces, Now: fixedNow})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, r))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetGrid, SheetTraces}, f.GetSheetList())

	rows, err := f.GetRows(SheetGrid)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Q", rows[0][0])
	assert.Equal(t, "14000", rows[1][0])

	traces, err := f.GetRows(SheetTraces)
	require.NoError(t, err)
	assert.Len(t, traces, 51)

	bestQ, err := f.GetCellValue(SheetSummary, "B5")
	require.NoError(t, err)
	assert.Equal(t, r.Best.Q, mustAtoi(t, bestQ))
}

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	run, summaries, m := simulatedRun(t, []int{14_000, 16_000})

	runs := memory.NewRunStore()
	sums := memory.NewSummaryStore()
	require.NoError(t, runs.Insert(ctx, run))
	stored := make([]*domain.RunSummary, len(summaries))
	for i, s := range summaries {
		stored[i] = &domain.RunSummary{RunID: run.RunID, Position: i, Summary: *s}
	}
	require.NoError(t, sums.InsertBulk(ctx, stored))

	rec := &countingRecorder{}
	g := NewGenerator(GeneratorOptions{RunStore: runs, SummaryStore: sums, Model: m, Traces: true, Recorder: rec}).
		WithClock(func() time.Time { return fixedNow })

	r, err := g.Generate(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, r.GeneratedAt)
	assert.NotEmpty(t, r.ShortID)
	require.NotNil(t, r.Traces)
	assert.Len(t, r.Traces.Profit, run.NGames)
	assert.Equal(t, 1, rec.n)

	// the re-run reproduces the stored best summary
	var sum float64
	for _, p := range r.Traces.Profit {
		sum += p
	}
	assert.InDelta(t, r.Best.AvgProfit, sum/float64(run.NGames), 1e-6)

	_, err = g.Generate(ctx, "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

type countingRecorder struct{ n int }

func (c *countingRecorder) RecordReport() { c.n++ }

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	var v int
	_, err := fmt.Sscanf(s, "%d", &v)
	require.NoError(t, err)
	return v
}
