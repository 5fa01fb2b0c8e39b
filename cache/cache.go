// Package cache provides the shared key/value cache used to memoise
// slowly-changing registry results such as full version lists.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
)

const keyPrefix = "affected"

// Cache is a key/value store with per-entry expiry. Implementations must be
// safe for concurrent use.
type Cache interface {
	// Get returns the stored value and true, or false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key composes a cache key from its parts, e.g.
// Key("Maven", "org.apache:commons") or Key("Debian", pkg, release).
func Key(parts ...string) string {
	return keyPrefix + "/" + strings.Join(parts, "/")
}

// Fetch returns the value stored under key, or calls fetch and stores its
// result for ttl. A nil cache always fetches. Cache failures are logged and
// treated as misses; only fetch errors are returned.
func Fetch[T any](ctx context.Context, c Cache, logger *zap.Logger, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return fetch(ctx)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	data, ok, err := c.Get(ctx, key)
	if err != nil {
		logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		var cached T
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		logger.Warn("discarding undecodable cache entry", zap.String("key", key))
	}

	value, err := fetch(ctx)
	if err != nil {
		return value, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return value, nil
	}
	if err := c.Set(ctx, key, encoded, ttl); err != nil {
		logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}
