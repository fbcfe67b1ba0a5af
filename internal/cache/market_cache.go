package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// MarketCache is a short-TTL JSON cache over redis for upstream market-data
// responses. Entries are written wholesale on refresh and never mutated in
// place. A nil client degrades to a pass-through (every Get misses).
type MarketCache struct {
	rdb *redis.Client
}

func NewMarketCache(rdb *redis.Client) *MarketCache {
	return &MarketCache{rdb: rdb}
}

// Get unmarshals the cached value for key into out and reports whether it was
// present. A corrupted entry is deleted and treated as a miss.
func (c *MarketCache) Get(ctx context.Context, key string, out any) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil || len(b) == 0 {
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		_ = c.rdb.Del(ctx, key).Err()
		return false
	}
	return true
}

// Set stores v under key with the given TTL. Best effort: a failed write is
// ignored, the next Get simply misses.
func (c *MarketCache) Set(ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key, b, ttl).Err()
}
