package metrics

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aclements/go-moremath/stats"

	"newsvendor-lab/internal/domain"
)

// ErrNoTraces is returned when per-game traces are missing or empty.
var ErrNoTraces = errors.New("no per-game traces available")

// Concessions holds operating metrics for one order quantity, derived from traces.
type Concessions struct {
	Q        int `json:"Q"`
	Capacity int `json:"capacity"`
	Games    int `json:"games"`

	P05Profit float64 `json:"p05_profit"` // downside
	P50Profit float64 `json:"p50_profit"`
	P95Profit float64 `json:"p95_profit"`

	SelloutRate      float64 `json:"sellout_rate"`        // share of games with attendance at capacity
	WasteRate        float64 `json:"waste_rate"`          // mean leftover / Q
	Efficiency       float64 `json:"efficiency"`          // mean sold / Q
	HotDogsPer1kFans float64 `json:"hot_dogs_per_1k_fans"` // mean sold per 1,000 attendees
}

// FromTraces computes concessions metrics for order quantity q.
// Sold and leftover are re-derived from the demand trace.
func FromTraces(q, capacity int, tr *domain.Traces) (*Concessions, error) {
	if tr == nil || len(tr.Profit) == 0 {
		return nil, ErrNoTraces
	}
	n := len(tr.Profit)
	if len(tr.Demand) != n || len(tr.Attendance) != n {
		return nil, fmt.Errorf("%w: trace lengths differ (profit=%d demand=%d attendance=%d)",
			ErrNoTraces, n, len(tr.Demand), len(tr.Attendance))
	}

	qDen := float64(max(q, 1))
	waste := make([]float64, n)
	eff := make([]float64, n)
	per1k := make([]float64, n)
	sellouts := 0

	for i := 0; i < n; i++ {
		d := tr.Demand[i]
		att := tr.Attendance[i]
		sold := min(q, d)
		leftover := max(q-d, 0)

		waste[i] = float64(leftover) / qDen
		eff[i] = float64(sold) / qDen
		per1k[i] = float64(sold) / float64(max(att, 1)) * 1000
		if att >= capacity {
			sellouts++
		}
	}

	sorted := make([]float64, n)
	copy(sorted, tr.Profit)
	sort.Float64s(sorted)

	return &Concessions{
		Q:                q,
		Capacity:         capacity,
		Games:            n,
		P05Profit:        computePercentile(sorted, 0.05),
		P50Profit:        computePercentile(sorted, 0.50),
		P95Profit:        computePercentile(sorted, 0.95),
		SelloutRate:      float64(sellouts) / float64(n),
		WasteRate:        stats.Mean(waste),
		Efficiency:       stats.Mean(eff),
		HotDogsPer1kFans: stats.Mean(per1k),
	}, nil
}

// computePercentile uses linear interpolation between closest ranks.
// sorted must be pre-sorted ASC.
// p is percentile (0.05 = 5th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
