// Package cache stores evaluated runs keyed by run ID.
// Runs are deterministic in their inputs, so a cached entry never goes stale;
// the TTL only bounds memory.
package cache

import (
	"context"
	"sync"
	"time"

	"newsvendor-lab/internal/domain"
)

// DefaultTTL bounds how long an entry is kept.
const DefaultTTL = 24 * time.Hour

// Entry is a cached run with its summaries in grid order.
type Entry struct {
	Run       *domain.Run       `json:"run"`
	Summaries []*domain.Summary `json:"summaries"`
}

// SummaryCache provides access to cached runs.
type SummaryCache interface {
	// Get returns the entry for runID; ok is false on a miss.
	Get(ctx context.Context, runID string) (entry *Entry, ok bool, err error)

	// Put stores an entry under its run ID.
	Put(ctx context.Context, e *Entry) error
}

// Recorder receives hit/miss outcomes. *observability.Metrics satisfies it.
type Recorder interface {
	RecordCache(result string)
}

// Lookup results reported to a Recorder.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// MemoryCache is an in-process SummaryCache.
type MemoryCache struct {
	mu   sync.RWMutex
	ttl  time.Duration
	now  func() time.Time
	data map[string]memoryItem
}

type memoryItem struct {
	entry   *Entry
	expires time.Time
}

// NewMemoryCache creates an in-process cache. ttl <= 0 uses DefaultTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		ttl:  ttl,
		now:  time.Now,
		data: make(map[string]memoryItem),
	}
}

// Get returns the entry for runID. An expired entry is removed.
func (c *MemoryCache) Get(_ context.Context, runID string) (*Entry, bool, error) {
	c.mu.RLock()
	item, ok := c.data[runID]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if now := c.now(); now.After(item.expires) {
		c.mu.Lock()
		// Re-check: a concurrent Put may have refreshed the entry.
		if cur, ok := c.data[runID]; ok && now.After(cur.expires) {
			delete(c.data, runID)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return item.entry, true, nil
}

// Put stores an entry and drops any that have expired.
func (c *MemoryCache) Put(_ context.Context, e *Entry) error {
	if e == nil || e.Run == nil || e.Run.RunID == "" {
		return ErrInvalidEntry
	}

	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, item := range c.data {
		if now.After(item.expires) {
			delete(c.data, id)
		}
	}
	c.data[e.Run.RunID] = memoryItem{entry: e, expires: now.Add(c.ttl)}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

var _ SummaryCache = (*MemoryCache)(nil)
