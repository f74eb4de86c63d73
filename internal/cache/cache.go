// Package cache memoizes segmentation run results in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/adoptimizer/internal/segmentation"
	"github.com/ignite/adoptimizer/internal/service/audit"
)

const (
	DefaultTTL = 24 * time.Hour
	keyPrefix  = "adopt:run:"
)

// ResultCache stores RunResults as JSON under a content fingerprint.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a ResultCache. A non-positive ttl uses DefaultTTL.
func New(client *redis.Client, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResultCache{client: client, ttl: ttl}
}

// Get returns audit.ErrCacheMiss when nothing is stored under key.
func (c *ResultCache) Get(ctx context.Context, key string) (*segmentation.RunResult, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, audit.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var res segmentation.RunResult
	if err := json.Unmarshal(data, &res); err != nil {
		// a corrupt entry is treated as absent and overwritten on the next Set
		return nil, audit.ErrCacheMiss
	}
	return &res, nil
}

func (c *ResultCache) Set(ctx context.Context, key string, res *segmentation.RunResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *ResultCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
