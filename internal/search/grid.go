// Package search builds order-quantity grids and picks winners from evaluated grids.
package search

import (
	"errors"
	"fmt"
	"sort"

	"newsvendor-lab/internal/config"
	"newsvendor-lab/internal/domain"
)

// Grid errors
var (
	ErrInvalidRange = errors.New("invalid grid range")
	ErrGridTooLarge = errors.New("grid too large")
	ErrNoSummaries  = errors.New("no summaries to rank")
)

// Points returns the number of values Range(qmin, qmax, step) would produce.
func Points(qmin, qmax, step int) int {
	if step <= 0 || qmax < qmin {
		return 0
	}
	return (qmax-qmin)/step + 1
}

// Range returns qmin, qmin+step, ... up to and including qmax when it lands
// on the step. Bounds are checked against lim before anything is allocated.
func Range(qmin, qmax, step int, lim config.Limits) ([]int, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: step must be > 0, got %d", ErrInvalidRange, step)
	}
	if qmax < qmin {
		return nil, fmt.Errorf("%w: qmax (%d) must be >= qmin (%d)", ErrInvalidRange, qmax, qmin)
	}
	if qmin < lim.QMin || qmax > lim.QMax {
		return nil, fmt.Errorf("%w: Q must be between %d and %d", ErrInvalidRange, lim.QMin, lim.QMax)
	}

	n := Points(qmin, qmax, step)
	if lim.MaxGridPoints > 0 && n > lim.MaxGridPoints {
		return nil, fmt.Errorf("%w: %d points exceeds limit of %d", ErrGridTooLarge, n, lim.MaxGridPoints)
	}

	qs := make([]int, 0, n)
	for q := qmin; q <= qmax; q += step {
		qs = append(qs, q)
	}
	return qs, nil
}

// CheckValues validates an explicit list of order quantities.
func CheckValues(qs []int, lim config.Limits) error {
	if len(qs) == 0 {
		return fmt.Errorf("%w: no order quantities", ErrInvalidRange)
	}
	if lim.MaxGridPoints > 0 && len(qs) > lim.MaxGridPoints {
		return fmt.Errorf("%w: %d points exceeds limit of %d", ErrGridTooLarge, len(qs), lim.MaxGridPoints)
	}
	for _, q := range qs {
		if q < lim.QMin || q > lim.QMax {
			return fmt.Errorf("%w: Q=%d outside %d..%d", ErrInvalidRange, q, lim.QMin, lim.QMax)
		}
	}
	return nil
}

// Best returns the summary with the highest AvgProfit. Ties go to the
// earliest entry, so the result is stable for a given grid order.
func Best(summaries []*domain.Summary) (*domain.Summary, error) {
	if len(summaries) == 0 {
		return nil, ErrNoSummaries
	}
	best := summaries[0]
	for _, s := range summaries[1:] {
		if s.AvgProfit > best.AvgProfit {
			best = s
		}
	}
	return best, nil
}

// TopN returns up to n summaries ordered by AvgProfit descending.
// Equal profits keep their grid order. The input slice is not modified.
func TopN(summaries []*domain.Summary, n int) []*domain.Summary {
	sorted := make([]*domain.Summary, len(summaries))
	copy(sorted, summaries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AvgProfit > sorted[j].AvgProfit
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// RefineRange returns a finer grid of +/-width around best, clamped to the
// coarse bounds [qmin, qmax].
func RefineRange(best, width, step, qmin, qmax int, lim config.Limits) ([]int, error) {
	if width < 0 {
		return nil, fmt.Errorf("%w: refine width must be >= 0, got %d", ErrInvalidRange, width)
	}
	if step <= 0 {
		return nil, fmt.Errorf("%w: refine step must be > 0, got %d", ErrInvalidRange, step)
	}
	lo := max(qmin, best-width)
	hi := min(qmax, best+width)
	return Range(lo, hi, step, lim)
}
