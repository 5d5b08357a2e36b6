package reporting

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Sheet names used by WriteXLSX.
const (
	SheetSummary = "Summary"
	SheetGrid    = "Grid"
	SheetTraces  = "Traces"
)

var gridHeader = []any{
	"Q", "n_games", "seed", "avg_profit", "sd_profit", "min_profit", "max_profit",
	"avg_attendance", "avg_demand", "avg_sold", "avg_leftover", "stockout_rate",
}

// WriteXLSX writes the report as a workbook with summary, grid and
// (when present) trace sheets.
func WriteXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	pctStyle, err := f.NewStyle(&excelize.Style{NumFmt: 10})
	if err != nil {
		return err
	}

	// Summary: key/value pairs
	b := r.Best
	summary := [][]any{
		{"Run", r.RunID},
		{"Mode", r.Mode},
		{"Games per Q", r.NGames},
		{"Seed", r.Seed},
		{"Best Q", b.Q},
		{"Avg Profit", roundMoney(b.AvgProfit)},
		{"SD Profit", roundMoney(b.SDProfit)},
		{"Stockout Rate", b.StockoutRate},
		{"Critical Ratio", r.CriticalRatio},
	}
	if c := r.Concessions; c != nil {
		summary = append(summary,
			[]any{"Downside Profit (P05)", roundMoney(c.P05Profit)},
			[]any{"Sellout Rate", c.SelloutRate},
			[]any{"Waste Rate", c.WasteRate},
			[]any{"Order Efficiency", c.Efficiency},
			[]any{"Hot Dogs per 1,000 Fans", c.HotDogsPer1kFans},
		)
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SheetSummary, "A", "A", 26); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetSummary, "B", "B", 70); err != nil {
		return err
	}

	// Grid
	if _, err := f.NewSheet(SheetGrid); err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetGrid, "A1", &gridHeader); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(gridHeader))
	if err := f.SetCellStyle(SheetGrid, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}
	for i, s := range r.Summaries {
		row := []any{
			s.Q, s.NGames, s.Seed,
			roundMoney(s.AvgProfit), roundMoney(s.SDProfit), roundMoney(s.MinProfit), roundMoney(s.MaxProfit),
			s.AvgAttendance, s.AvgDemand, s.AvgSold, s.AvgLeftover, s.StockoutRate,
		}
		if err := f.SetSheetRow(SheetGrid, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	if n := len(r.Summaries); n > 0 {
		stockoutCol, _ := excelize.ColumnNumberToName(len(gridHeader))
		if err := f.SetCellStyle(SheetGrid, stockoutCol+"2", fmt.Sprintf("%s%d", stockoutCol, n+1), pctStyle); err != nil {
			return err
		}
	}

	// Traces
	if tr := r.Traces; tr != nil {
		if _, err := f.NewSheet(SheetTraces); err != nil {
			return err
		}
		header := []any{"game", "attendance", "eps", "demand", "profit"}
		if err := f.SetSheetRow(SheetTraces, "A1", &header); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetTraces, "A1", "E1", headerStyle); err != nil {
			return err
		}
		for i := range tr.Profit {
			row := []any{i + 1, tr.Attendance[i], tr.Eps[i], tr.Demand[i], roundMoney(tr.Profit[i])}
			if err := f.SetSheetRow(SheetTraces, fmt.Sprintf("A%d", i+2), &row); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}
