package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Concessions Order Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	id := r.RunID
	if r.ShortID != "" {
		id = r.ShortID
	}
	sb.WriteString(fmt.Sprintf("Run: `%s` | Mode: %s | Games per Q: %d | Seed: %d\n\n", id, r.Mode, r.NGames, r.Seed))

	// Scenario
	sc := r.Scenario
	sb.WriteString("## Scenario\n\n")
	sb.WriteString("| Input | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Stadium Capacity | %d |\n", sc.StadiumCapacity))
	if sc.Indoor {
		sb.WriteString(fmt.Sprintf("| Temperature (F) | %.0f (indoor) |\n", sc.TempF))
	} else {
		sb.WriteString(fmt.Sprintf("| Temperature (F) | %.0f |\n", sc.TempF))
	}
	sb.WriteString(fmt.Sprintf("| Team Record | %d-%d |\n", sc.TeamWins, sc.TeamLosses))
	sb.WriteString(fmt.Sprintf("| Opponent Record | %d-%d |\n", sc.OppWins, sc.OppLosses))
	sb.WriteString(fmt.Sprintf("| Flags | %s |\n", flags(r)))
	sb.WriteString(fmt.Sprintf("| Price / Cost / Salvage | %s / %s / %s |\n", money(sc.Price), money(sc.Cost), money(sc.Salvage)))
	sb.WriteString(fmt.Sprintf("| Fixed Cost per Game | %s |\n", money(sc.FixedCostPerGame)))
	sb.WriteString("\n")

	// Best Q
	b := r.Best
	sb.WriteString("## Best Order Quantity\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Q | %d |\n", b.Q))
	sb.WriteString(fmt.Sprintf("| Avg Profit | %s |\n", money(b.AvgProfit)))
	sb.WriteString(fmt.Sprintf("| SD Profit | %s |\n", money(b.SDProfit)))
	sb.WriteString(fmt.Sprintf("| Min / Max Profit | %s / %s |\n", money(b.MinProfit), money(b.MaxProfit)))
	sb.WriteString(fmt.Sprintf("| Avg Demand | %.1f |\n", b.AvgDemand))
	sb.WriteString(fmt.Sprintf("| Avg Sold | %.1f |\n", b.AvgSold))
	sb.WriteString(fmt.Sprintf("| Avg Leftover | %.1f |\n", b.AvgLeftover))
	sb.WriteString(fmt.Sprintf("| Stockout Rate | %.1f%% |\n", b.StockoutRate*100))
	sb.WriteString(fmt.Sprintf("| Critical Ratio | %.4f |\n", r.CriticalRatio))
	if r.NormalApproxQ != nil {
		sb.WriteString(fmt.Sprintf("| Normal-approx Q | %d |\n", *r.NormalApproxQ))
	}
	if r.Grid != nil && r.Grid.Points > 1 {
		sb.WriteString(fmt.Sprintf("| Near-optimal Band (%.0f%%) | %d - %d |\n",
			r.Grid.BandTolerance*100, r.Grid.BandLowQ, r.Grid.BandHighQ))
	}
	sb.WriteString("\n")

	// Concessions
	sb.WriteString("## Concessions Performance\n\n")
	if c := r.Concessions; c != nil {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Downside Profit (5th pct) | %s |\n", money(c.P05Profit)))
		sb.WriteString(fmt.Sprintf("| Median Profit | %s |\n", money(c.P50Profit)))
		sb.WriteString(fmt.Sprintf("| Upside Profit (95th pct) | %s |\n", money(c.P95Profit)))
		sb.WriteString(fmt.Sprintf("| Sellout Rate | %.1f%% |\n", c.SelloutRate*100))
		sb.WriteString(fmt.Sprintf("| Waste Rate | %.1f%% |\n", c.WasteRate*100))
		sb.WriteString(fmt.Sprintf("| Order Efficiency | %.1f%% |\n", c.Efficiency*100))
		sb.WriteString(fmt.Sprintf("| Hot Dogs per 1,000 Fans | %.0f |\n", c.HotDogsPer1kFans))
	} else {
		sb.WriteString("No per-game traces available.\n")
	}
	sb.WriteString("\n")

	// Top N
	sb.WriteString(fmt.Sprintf("## Top %d by Avg Profit\n\n", len(r.Top)))
	sb.WriteString("| Q | Avg Profit | SD Profit | Stockout | Avg Leftover |\n")
	sb.WriteString("|---|------------|-----------|----------|--------------|\n")
	for _, s := range r.Top {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %.3f | %.1f |\n",
			s.Q, money(s.AvgProfit), money(s.SDProfit), s.StockoutRate, s.AvgLeftover))
	}
	sb.WriteString("\n")

	// Notes
	if len(r.Notes) > 0 {
		sb.WriteString("## Notes\n\n")
		for _, n := range r.Notes {
			sb.WriteString(fmt.Sprintf("- %s\n", n))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func flags(r *Report) string {
	var on []string
	sc := r.Scenario
	if sc.Indoor {
		on = append(on, "indoor")
	}
	if sc.Rain {
		on = append(on, "rain")
	}
	if sc.Snow {
		on = append(on, "snow")
	}
	if sc.Promo {
		on = append(on, "promo")
	}
	if sc.Playoff {
		on = append(on, "playoff")
	}
	if len(on) == 0 {
		return "none"
	}
	return strings.Join(on, ", ")
}
