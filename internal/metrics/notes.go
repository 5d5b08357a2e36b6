package metrics

import (
	"fmt"
	"math"

	"newsvendor-lab/internal/domain"
)

// Notes returns short plain-language observations about a result.
// c may be nil when no traces were kept.
func Notes(s *domain.Summary, c *Concessions) []string {
	if s == nil {
		return nil
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Expected profit is about $%s per game.", groupThousands(int(math.RoundToEven(s.AvgProfit)))))

	switch {
	case s.StockoutRate >= 0.20:
		lines = append(lines, "Stockouts are frequent; meaningful demand is left on the table.")
	case s.StockoutRate >= 0.08:
		lines = append(lines, "Stockouts are moderate; lost sales are balanced against waste.")
	default:
		lines = append(lines, "Stockouts are low; availability is prioritized.")
	}

	if c == nil {
		return lines
	}

	switch {
	case c.WasteRate >= 0.25:
		lines = append(lines, "Waste is relatively high; consider lowering Q or improving salvage.")
	case c.WasteRate >= 0.10:
		lines = append(lines, "Waste looks manageable with a buffer for demand spikes.")
	default:
		lines = append(lines, "Waste is low; ordering is tight.")
	}

	switch {
	case c.SelloutRate >= 0.25:
		lines = append(lines, "Sellouts happen often; packed houses drive right-tail demand.")
	case c.SelloutRate >= 0.10:
		lines = append(lines, "Sellouts occur sometimes; expect occasional demand surges.")
	}
	return lines
}

func groupThousands(v int) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := fmt.Sprintf("%d", v)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + s
}
