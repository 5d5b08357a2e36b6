package storage

import (
	"context"

	"newsvendor-lab/internal/domain"
)

// RunStore provides access to simulation_runs storage.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.Run) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.Run, error)

	// List retrieves the most recent runs, ordered by created_at DESC, run_id ASC.
	// limit <= 0 returns all runs.
	List(ctx context.Context, limit int) ([]*domain.Run, error)
}

// SummaryStore provides access to run_summaries storage.
type SummaryStore interface {
	// InsertBulk adds all summaries of a run atomically.
	// Fails entire batch on any duplicate (run_id, position).
	InsertBulk(ctx context.Context, summaries []*domain.RunSummary) error

	// GetByRunID retrieves all summaries for a run, ordered by position ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.RunSummary, error)
}
