package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidEntry is returned when an entry has no run ID.
var ErrInvalidEntry = errors.New("cache entry missing run id")

// KeyPrefix namespaces all cache keys.
const KeyPrefix = "newsvendor:run:"

// RedisCache is a SummaryCache backed by Redis.
type RedisCache struct {
	client   redis.UniversalClient
	ttl      time.Duration
	recorder Recorder
}

// RedisOptions configures a RedisCache.
type RedisOptions struct {
	TTL      time.Duration // <= 0 uses DefaultTTL
	Recorder Recorder
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(client redis.UniversalClient, opts RedisOptions) *RedisCache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl, recorder: opts.Recorder}
}

// Get returns the entry for runID. A missing key is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, runID string) (*Entry, bool, error) {
	data, err := c.client.Get(ctx, KeyPrefix+runID).Bytes()
	if errors.Is(err, redis.Nil) {
		c.record(ResultMiss)
		return nil, false, nil
	}
	if err != nil {
		c.record(ResultError)
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.record(ResultError)
		return nil, false, fmt.Errorf("decode cache entry: %w", err)
	}
	c.record(ResultHit)
	return &e, true, nil
}

// Put stores an entry with the configured TTL.
func (c *RedisCache) Put(ctx context.Context, e *Entry) error {
	if e == nil || e.Run == nil || e.Run.RunID == "" {
		return ErrInvalidEntry
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.client.Set(ctx, KeyPrefix+e.Run.RunID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) record(result string) {
	if c.recorder != nil {
		c.recorder.RecordCache(result)
	}
}

var _ SummaryCache = (*RedisCache)(nil)
