package reporting

import (
	"fmt"
	"strings"

	"newsvendor-lab/internal/domain"
)

// RenderCSV renders grid summaries as CSV string, one row per Q in grid order.
func RenderCSV(summaries []*domain.Summary) string {
	var sb strings.Builder

	// Header
	sb.WriteString("Q,n_games,seed,avg_profit,sd_profit,min_profit,max_profit,")
	sb.WriteString("avg_attendance,avg_demand,avg_sold,avg_leftover,stockout_rate,")
	sb.WriteString("price,cost,salvage,fixed_cost_per_game\n")

	// Rows
	for _, s := range summaries {
		sb.WriteString(fmt.Sprintf("%d,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.2f,%.2f,%.2f,%.2f\n",
			s.Q,
			s.NGames,
			s.Seed,
			s.AvgProfit,
			s.SDProfit,
			s.MinProfit,
			s.MaxProfit,
			s.AvgAttendance,
			s.AvgDemand,
			s.AvgSold,
			s.AvgLeftover,
			s.StockoutRate,
			s.Price,
			s.Cost,
			s.Salvage,
			s.FixedCostPerGame,
		))
	}

	return sb.String()
}

// RenderTracesCSV renders per-game traces as CSV string.
func RenderTracesCSV(tr *domain.Traces) string {
	var sb strings.Builder
	sb.WriteString("game,attendance,eps,demand,profit\n")
	if tr == nil {
		return sb.String()
	}
	for i := range tr.Profit {
		sb.WriteString(fmt.Sprintf("%d,%d,%.6f,%d,%.2f\n",
			i+1, tr.Attendance[i], tr.Eps[i], tr.Demand[i], tr.Profit[i]))
	}
	return sb.String()
}
