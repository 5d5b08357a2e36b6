// Package simulation runs Monte Carlo trials of the newsvendor model for one
// order quantity or a grid of them.
//
// Every run builds its own generator from a seed. Grid evaluation re-seeds
// per Q from the same value (common random numbers), so the attendance and
// noise sequences are identical across Q and only the profit side changes.
package simulation

import (
	"fmt"

	"newsvendor-lab/internal/config"
	"newsvendor-lab/internal/demand"
	"newsvendor-lab/internal/domain"
	"newsvendor-lab/internal/profit"
)

// Options controls a run. Nil fields fall back to the scenario's values.
type Options struct {
	N      *int   // trial count, defaults to Scenario.Replications
	Seed   *int64 // defaults to Scenario.Seed
	Traces bool   // retain per-game series
}

// WithN returns a copy of o with the trial count set.
func (o Options) WithN(n int) Options {
	o.N = &n
	return o
}

// WithSeed returns a copy of o with the seed set.
func (o Options) WithSeed(seed int64) Options {
	o.Seed = &seed
	return o
}

// Resolve returns the effective trial count and seed for sc.
func (o Options) Resolve(sc domain.Scenario) (int, int64) {
	n := sc.Replications
	if o.N != nil {
		n = *o.N
	}
	seed := sc.Seed
	if o.Seed != nil {
		seed = *o.Seed
	}
	return n, seed
}

// Simulate runs n independent games for order quantity q.
// Identical (q, sc, m, seed, n) always yields identical output.
func Simulate(q int, sc domain.Scenario, m config.Model, opts Options) (*domain.Summary, error) {
	if err := sc.Validate(m); err != nil {
		return nil, err
	}

	n, seed := opts.Resolve(sc)
	if n <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidTrialCount, n)
	}
	if q < 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrNegativeQuantity, q)
	}

	sampler, err := demand.NewSampler(demand.NewRand(seed), sc, m)
	if err != nil {
		return nil, err
	}

	acc := newAccumulator()

	var traces *domain.Traces
	if opts.Traces {
		traces = &domain.Traces{
			Profit:     make([]float64, 0, n),
			Demand:     make([]int, 0, n),
			Attendance: make([]int, 0, n),
			Eps:        make([]float64, 0, n),
		}
	}

	for i := 0; i < n; i++ {
		d, attendance, eps := sampler.Demand()

		res, err := profit.ForGame(q, d, attendance, sc)
		if err != nil {
			return nil, err
		}
		acc.add(res)

		if traces != nil {
			traces.Profit = append(traces.Profit, res.Profit)
			traces.Demand = append(traces.Demand, res.D)
			traces.Attendance = append(traces.Attendance, res.Attendance)
			traces.Eps = append(traces.Eps, eps)
		}
	}

	summary := acc.summary(q, seed, sc)
	summary.Traces = traces
	return summary, nil
}

// EvaluateGrid runs Simulate once per order quantity, in input order.
// Each Q gets a fresh generator seeded identically. Fails on the first error
// and returns no partial results.
func EvaluateGrid(qs []int, sc domain.Scenario, m config.Model, opts Options) ([]*domain.Summary, error) {
	if err := sc.Validate(m); err != nil {
		return nil, err
	}

	out := make([]*domain.Summary, 0, len(qs))
	for _, q := range qs {
		s, err := Simulate(q, sc, m, opts)
		if err != nil {
			return nil, fmt.Errorf("simulate Q=%d: %w", q, err)
		}
		out = append(out, s)
	}
	return out, nil
}
