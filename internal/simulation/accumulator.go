package simulation

import (
	"math"

	"newsvendor-lab/internal/domain"
)

// accumulator keeps running statistics in O(1) memory.
// Profit variance uses Welford's update so long runs stay numerically stable.
type accumulator struct {
	n int

	profitMean float64
	profitM2   float64
	profitMin  float64
	profitMax  float64

	sumAttendance float64
	sumDemand     float64
	sumSold       float64
	sumLeftover   float64
	stockouts     int
}

func newAccumulator() *accumulator {
	return &accumulator{
		profitMin: math.Inf(1),
		profitMax: math.Inf(-1),
	}
}

func (a *accumulator) add(g domain.GameResult) {
	a.n++

	delta := g.Profit - a.profitMean
	a.profitMean += delta / float64(a.n)
	a.profitM2 += delta * (g.Profit - a.profitMean)

	if g.Profit < a.profitMin {
		a.profitMin = g.Profit
	}
	if g.Profit > a.profitMax {
		a.profitMax = g.Profit
	}

	a.sumAttendance += float64(g.Attendance)
	a.sumDemand += float64(g.D)
	a.sumSold += float64(g.Sold)
	a.sumLeftover += float64(g.Leftover)
	if g.Stockout() {
		a.stockouts++
	}
}

// summary fills the aggregate fields. Callers guarantee n > 0.
func (a *accumulator) summary(q int, seed int64, sc domain.Scenario) *domain.Summary {
	n := float64(a.n)
	return &domain.Summary{
		Q:      q,
		NGames: a.n,
		Seed:   seed,

		AvgProfit: a.profitMean,
		SDProfit:  math.Sqrt(a.profitM2 / n),
		MinProfit: a.profitMin,
		MaxProfit: a.profitMax,

		AvgAttendance: a.sumAttendance / n,
		AvgDemand:     a.sumDemand / n,
		AvgSold:       a.sumSold / n,
		AvgLeftover:   a.sumLeftover / n,
		StockoutRate:  float64(a.stockouts) / n,

		Price:            sc.Price,
		Cost:             sc.Cost,
		Salvage:          sc.Salvage,
		FixedCostPerGame: sc.FixedCostPerGame,
	}
}
