package reporting

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aclements/go-moremath/stats"

	"newsvendor-lab/internal/domain"
	"newsvendor-lab/internal/metrics"
	"newsvendor-lab/internal/profit"
	"newsvendor-lab/internal/search"
)

// DefaultTopN is the size of the ranked table.
const DefaultTopN = 10

// ErrNoSummaries is returned when a report has nothing to describe.
var ErrNoSummaries = errors.New("report has no summaries")

// Report represents one run's decision report.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	ShortID     string
	Mode        string
	Scenario    domain.Scenario
	NGames      int
	Seed        int64

	// Grid results in evaluation order
	Summaries []*domain.Summary
	Best      *domain.Summary
	Top       []*domain.Summary
	Grid      *metrics.GridStats

	// Best-Q detail, present only when traces were produced
	Traces      *domain.Traces
	Concessions *metrics.Concessions

	// Closed-form reference points
	CriticalRatio float64
	NormalApproxQ *int // requires traces for the demand spread

	Notes []string
}

// Input holds everything Build needs.
type Input struct {
	Run        *domain.Run
	ShortID    string
	Summaries  []*domain.Summary
	BestTraces *domain.Traces // optional, traces of the best Q
	TopN       int            // <= 0 uses DefaultTopN
	Now        time.Time
}

// Build assembles a report from a run and its summaries.
func Build(in Input) (*Report, error) {
	if in.Run == nil {
		return nil, fmt.Errorf("build report: nil run")
	}
	if len(in.Summaries) == 0 {
		return nil, ErrNoSummaries
	}

	best, err := search.Best(in.Summaries)
	if err != nil {
		return nil, err
	}
	grid, err := metrics.ComputeGridStats(in.Summaries, metrics.DefaultBandTolerance)
	if err != nil {
		return nil, err
	}
	grid.RunID = in.Run.RunID

	topN := in.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	r := &Report{
		GeneratedAt:   in.Now,
		RunID:         in.Run.RunID,
		ShortID:       in.ShortID,
		Mode:          in.Run.Mode,
		Scenario:      in.Run.Scenario,
		NGames:        in.Run.NGames,
		Seed:          in.Run.Seed,
		Summaries:     in.Summaries,
		Best:          best,
		Top:           search.TopN(in.Summaries, topN),
		Grid:          grid,
		CriticalRatio: profit.CriticalRatio(in.Run.Scenario),
	}

	if in.BestTraces != nil {
		c, err := metrics.FromTraces(best.Q, in.Run.Scenario.StadiumCapacity, in.BestTraces)
		if err != nil {
			return nil, err
		}
		r.Traces = in.BestTraces
		r.Concessions = c

		demand := make([]float64, len(in.BestTraces.Demand))
		for i, d := range in.BestTraces.Demand {
			demand[i] = float64(d)
		}
		// population spread to match the summary statistics
		mean := stats.Mean(demand)
		var ss float64
		for _, d := range demand {
			ss += (d - mean) * (d - mean)
		}
		sd := math.Sqrt(ss / float64(len(demand)))
		q := profit.NormalApproxQuantity(best.AvgDemand, sd, in.Run.Scenario)
		r.NormalApproxQ = &q
	}

	r.Notes = metrics.Notes(best, r.Concessions)
	return r, nil
}
