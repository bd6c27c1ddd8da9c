package billing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "billing:breakdown:"

// Cache wraps Redis-based caching of computed breakdowns. A nil client
// degrades to recomputation on every read.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetBreakdown loads a cached breakdown, reporting whether one was present.
func (c *Cache) GetBreakdown(ctx context.Context, patientID string) (Breakdown, bool, error) {
	if c == nil || c.client == nil {
		return Breakdown{}, false, nil
	}
	raw, err := c.client.Get(ctx, cacheKeyPrefix+patientID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Breakdown{}, false, nil
	}
	if err != nil {
		return Breakdown{}, false, err
	}
	var breakdown Breakdown
	if err := json.Unmarshal(raw, &breakdown); err != nil {
		return Breakdown{}, false, err
	}
	return breakdown, true, nil
}

// SetBreakdown stores a breakdown with the configured TTL.
func (c *Cache) SetBreakdown(ctx context.Context, patientID string, breakdown Breakdown) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(breakdown)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKeyPrefix+patientID, raw, c.ttl).Err()
}

// Invalidate drops the cached breakdown after a billing write.
func (c *Cache) Invalidate(ctx context.Context, patientID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, cacheKeyPrefix+patientID).Err()
}
