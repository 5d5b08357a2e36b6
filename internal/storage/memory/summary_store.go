package memory

import (
	"context"
	"sort"
	"sync"

	"newsvendor-lab/internal/domain"
	"newsvendor-lab/internal/storage"
)

type summaryKey struct {
	runID    string
	position int
}

// SummaryStore is an in-memory implementation of storage.SummaryStore.
// Traces are never stored.
type SummaryStore struct {
	mu   sync.RWMutex
	data map[summaryKey]*domain.RunSummary
}

// NewSummaryStore creates a new in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{
		data: make(map[summaryKey]*domain.RunSummary),
	}
}

// InsertBulk adds multiple summaries atomically. Fails entire batch on any duplicate.
func (s *SummaryStore) InsertBulk(_ context.Context, summaries []*domain.RunSummary) error {
	if len(summaries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[summaryKey]struct{}, len(summaries))

	// First pass: check for duplicates (existing + intra-batch)
	for _, rs := range summaries {
		if rs == nil || rs.RunID == "" || rs.Position < 0 {
			return storage.ErrInvalidInput
		}
		key := summaryKey{rs.RunID, rs.Position}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, rs := range summaries {
		c := *rs
		c.Traces = nil
		s.data[summaryKey{rs.RunID, rs.Position}] = &c
	}
	return nil
}

// GetByRunID retrieves all summaries for a run, ordered by position ASC.
func (s *SummaryStore) GetByRunID(_ context.Context, runID string) ([]*domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RunSummary
	for key, rs := range s.data {
		if key.runID == runID {
			c := *rs
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Position < result[j].Position
	})
	return result, nil
}

var _ storage.SummaryStore = (*SummaryStore)(nil)
