package domain

// Summary represents the aggregate of n simulated games for one order quantity.
type Summary struct {
	Q      int   `json:"Q"`
	NGames int   `json:"n_games"`
	Seed   int64 `json:"seed"`

	// Profit distribution
	AvgProfit float64 `json:"avg_profit"`
	SDProfit  float64 `json:"sd_profit"` // population std dev
	MinProfit float64 `json:"min_profit"`
	MaxProfit float64 `json:"max_profit"`

	// Volume means
	AvgAttendance float64 `json:"avg_attendance"`
	AvgDemand     float64 `json:"avg_demand"`
	AvgSold       float64 `json:"avg_sold"`
	AvgLeftover   float64 `json:"avg_leftover"`
	StockoutRate  float64 `json:"stockout_rate"` // share of games with D > Q

	// Echoed economics
	Price            float64 `json:"price"`
	Cost             float64 `json:"cost"`
	Salvage          float64 `json:"salvage"`
	FixedCostPerGame float64 `json:"fixed_cost_per_game"`

	Traces *Traces `json:"traces,omitempty"`
}

// Traces holds per-game series, all of length NGames.
type Traces struct {
	Profit     []float64 `json:"profit"`
	Demand     []int     `json:"demand"`
	Attendance []int     `json:"attendance"`
	Eps        []float64 `json:"eps"`
}

// Run represents one persisted simulation request: the inputs needed to
// replay it and the identifiers of its summaries.
type Run struct {
	RunID     string   `json:"run_id"`
	Mode      string   `json:"mode"` // RunModeSingle | RunModeGrid
	Scenario  Scenario `json:"scenario"`
	QValues   []int    `json:"q_values"`
	NGames    int      `json:"n_games"`
	Seed      int64    `json:"seed"`
	BestQ     int      `json:"best_q"`
	CreatedAt int64    `json:"created_at"` // unix ms
}

// Run mode constants
const (
	RunModeSingle = "single"
	RunModeGrid   = "grid"
)

// RunSummary is a Summary stored under a run, keyed by its position in the grid.
type RunSummary struct {
	RunID    string
	Position int
	Summary
}
