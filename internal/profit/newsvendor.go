// Package profit computes single-game newsvendor economics.
package profit

import (
	"fmt"
	"math"

	"github.com/aclements/go-moremath/stats"

	"newsvendor-lab/internal/domain"
)

// ForGame computes the outcome of ordering q units when d are demanded.
//
//	profit = price*min(q,d) - cost*q + salvage*max(q-d,0) - fixed
//
// Stockouts and leftovers fall out of the same formula.
func ForGame(q, d, attendance int, sc domain.Scenario) (domain.GameResult, error) {
	if q < 0 {
		return domain.GameResult{}, fmt.Errorf("%w: got %d", domain.ErrNegativeQuantity, q)
	}
	if d < 0 {
		return domain.GameResult{}, fmt.Errorf("%w: got %d", domain.ErrNegativeDemand, d)
	}

	sold := min(q, d)
	leftover := max(q-d, 0)

	revenue := sc.Price * float64(sold)
	cost := sc.Cost * float64(q)
	salvage := sc.Salvage * float64(leftover)

	return domain.GameResult{
		Q:          q,
		D:          d,
		Sold:       sold,
		Leftover:   leftover,
		Revenue:    revenue,
		Cost:       cost,
		Salvage:    salvage,
		Profit:     revenue - cost + salvage - sc.FixedCostPerGame,
		Attendance: attendance,
	}, nil
}

// CriticalRatio returns the newsvendor service level (p-c)/(p-s): the
// probability of covering demand at the optimal order quantity.
// Returns NaN when price equals salvage.
func CriticalRatio(sc domain.Scenario) float64 {
	den := sc.Price - sc.Salvage
	if den == 0 {
		return math.NaN()
	}
	return (sc.Price - sc.Cost) / den
}

// NormalApproxQuantity returns the closed-form optimal order quantity if
// demand were Normal(meanDemand, sdDemand). It is a reference point for the
// simulated grid search, not a replacement for it.
func NormalApproxQuantity(meanDemand, sdDemand float64, sc domain.Scenario) int {
	cr := CriticalRatio(sc)
	if math.IsNaN(cr) || sdDemand <= 0 {
		return int(math.Round(math.Max(0, meanDemand)))
	}
	cr = math.Min(math.Max(cr, 1e-9), 1-1e-9)

	q := stats.NormalDist{Mu: meanDemand, Sigma: sdDemand}.InvCDF(cr)
	return int(math.Round(math.Max(0, q)))
}
