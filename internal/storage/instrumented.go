package storage

import (
	"context"
	"errors"
	"time"

	"newsvendor-lab/internal/domain"
)

// QueryRecorder receives per-query timings. *observability.Metrics satisfies it.
type QueryRecorder interface {
	RecordDBQuery(database, operation string, seconds float64, err error)
}

// InstrumentRunStore wraps s so every call is timed under database.
// Not-found lookups are not counted as errors.
func InstrumentRunStore(s RunStore, database string, rec QueryRecorder) RunStore {
	return &instrumentedRunStore{inner: s, database: database, rec: rec}
}

// InstrumentSummaryStore wraps s so every call is timed under database.
func InstrumentSummaryStore(s SummaryStore, database string, rec QueryRecorder) SummaryStore {
	return &instrumentedSummaryStore{inner: s, database: database, rec: rec}
}

type instrumentedRunStore struct {
	inner    RunStore
	database string
	rec      QueryRecorder
}

func (s *instrumentedRunStore) Insert(ctx context.Context, r *domain.Run) error {
	start := time.Now()
	err := s.inner.Insert(ctx, r)
	observe(s.rec, s.database, "run_insert", start, err)
	return err
}

func (s *instrumentedRunStore) GetByID(ctx context.Context, runID string) (*domain.Run, error) {
	start := time.Now()
	r, err := s.inner.GetByID(ctx, runID)
	observe(s.rec, s.database, "run_get", start, err)
	return r, err
}

func (s *instrumentedRunStore) List(ctx context.Context, limit int) ([]*domain.Run, error) {
	start := time.Now()
	runs, err := s.inner.List(ctx, limit)
	observe(s.rec, s.database, "run_list", start, err)
	return runs, err
}

type instrumentedSummaryStore struct {
	inner    SummaryStore
	database string
	rec      QueryRecorder
}

func (s *instrumentedSummaryStore) InsertBulk(ctx context.Context, summaries []*domain.RunSummary) error {
	start := time.Now()
	err := s.inner.InsertBulk(ctx, summaries)
	observe(s.rec, s.database, "summary_insert", start, err)
	return err
}

func (s *instrumentedSummaryStore) GetByRunID(ctx context.Context, runID string) ([]*domain.RunSummary, error) {
	start := time.Now()
	rows, err := s.inner.GetByRunID(ctx, runID)
	observe(s.rec, s.database, "summary_get", start, err)
	return rows, err
}

func observe(rec QueryRecorder, database, op string, start time.Time, err error) {
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	rec.RecordDBQuery(database, op, time.Since(start).Seconds(), err)
}
