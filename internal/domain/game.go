package domain

// GameResult represents the outcome of one simulated game for a fixed order quantity.
type GameResult struct {
	Q        int // units ordered
	D        int // realized demand
	Sold     int // min(Q, D)
	Leftover int // max(Q - D, 0)

	Revenue float64 // price * sold
	Cost    float64 // cost * Q
	Salvage float64 // salvage * leftover
	Profit  float64 // revenue - cost + salvage - fixed cost

	Attendance int
}

// Stockout reports whether demand exceeded the order quantity.
func (g GameResult) Stockout() bool {
	return g.D > g.Q
}
