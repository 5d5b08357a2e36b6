// Package events publishes run lifecycle events.
package events

import (
	"context"
	"time"

	"newsvendor-lab/internal/domain"
)

// RunCompleted is emitted once a run's summaries are persisted.
type RunCompleted struct {
	RunID        string  `json:"run_id"`
	Mode         string  `json:"mode"`
	BestQ        int     `json:"best_q"`
	AvgProfit    float64 `json:"avg_profit"`
	StockoutRate float64 `json:"stockout_rate"`
	Points       int     `json:"points"`
	NGames       int     `json:"n_games"`
	Seed         int64   `json:"seed"`
	CompletedAt  int64   `json:"completed_at"` // unix ms
}

// NewRunCompleted builds the event for a run and its best summary.
func NewRunCompleted(run *domain.Run, best *domain.Summary, at time.Time) RunCompleted {
	return RunCompleted{
		RunID:        run.RunID,
		Mode:         run.Mode,
		BestQ:        best.Q,
		AvgProfit:    best.AvgProfit,
		StockoutRate: best.StockoutRate,
		Points:       len(run.QValues),
		NGames:       run.NGames,
		Seed:         run.Seed,
		CompletedAt:  at.UnixMilli(),
	}
}

// Publisher delivers run events.
type Publisher interface {
	PublishRunCompleted(ctx context.Context, e RunCompleted) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

// PublishRunCompleted does nothing.
func (NopPublisher) PublishRunCompleted(context.Context, RunCompleted) error { return nil }

// Close does nothing.
func (NopPublisher) Close() error { return nil }

var _ Publisher = NopPublisher{}
