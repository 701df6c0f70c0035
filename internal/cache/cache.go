// Package cache is a thin read-side cache over redis for the query
// endpoints. Every method is safe on a nil receiver or a missing redis
// connection, so the API degrades to uncached reads instead of failing.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultTTL bounds staleness of cached query responses.
const DefaultTTL = 30 * time.Second

// Cache wraps a redis client with JSON marshalling.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a cache over the given redis client. A nil client yields
// a no-op cache.
func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb, ttl: DefaultTTL}
}

// GetJSON loads key into dest, reporting whether it was present.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c == nil || c.rdb == nil {
		return false, nil
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores value under key with the cache TTL. Failures are
// logged, not propagated: caching is best effort.
func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Failed to marshal cache value")
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Failed to write cache")
	}
}

// Invalidate drops the given keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate cache")
	}
}
