// Package cache provides a Redis read-through cache for indexer and post
// lookups. Values are JSON-encoded; writes invalidate the affected keys.
package cache

import (
	"context"
	stderrors "errors"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/openindexer/indexerd/pkg/config"
	"github.com/openindexer/indexerd/pkg/errors"
	"github.com/openindexer/indexerd/pkg/logger"
	"github.com/openindexer/indexerd/pkg/metrics"
)

// Key helpers. All cache keys live under the indexerd: namespace.
const (
	keyPrefix   = "indexerd:"
	PostListKey = keyPrefix + "posts:all"
)

// IndexerKey returns the cache key for one indexer
func IndexerKey(id string) string {
	return keyPrefix + "indexer:" + id
}

// PostKey returns the cache key for one post
func PostKey(id string) string {
	return keyPrefix + "post:" + id
}

// Cache stores JSON-encoded values with a TTL
type Cache interface {
	// GetJSON fetches key into dest, reporting whether it was present
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)

	// SetJSON stores value under key with the configured TTL
	SetJSON(ctx context.Context, key string, value interface{}) error

	// Delete removes keys
	Delete(ctx context.Context, keys ...string) error

	// Health verifies the cache is reachable
	Health(ctx context.Context) error

	// Close releases client resources
	Close() error
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a Redis cache, or a no-op cache when disabled in config
func New(ctx context.Context, cfg *config.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "cache not reachable")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	logger.Info("cache initialized", zap.String("addr", cfg.Addr), zap.Duration("ttl", ttl))

	return &redisCache{
		client: client,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "cache")),
	}, nil
}

func (c *redisCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			metrics.RecordCacheOp("get", "miss")
			return false, nil
		}
		metrics.RecordCacheOp("get", "error")
		return false, errors.Wrap(err, errors.ErrorTypeConnection, "cache get failed")
	}

	if err := json.Unmarshal(data, dest); err != nil {
		// A corrupt entry is dropped rather than served
		c.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, key).Err()
		metrics.RecordCacheOp("get", "miss")
		return false, nil
	}

	metrics.RecordCacheOp("get", "hit")
	return true, nil
}

func (c *redisCache) SetJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "cache encode failed")
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		metrics.RecordCacheOp("set", "error")
		return errors.Wrap(err, errors.ErrorTypeConnection, "cache set failed")
	}
	metrics.RecordCacheOp("set", "ok")
	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		metrics.RecordCacheOp("delete", "error")
		return errors.Wrap(err, errors.ErrorTypeConnection, "cache delete failed")
	}
	metrics.RecordCacheOp("delete", "ok")
	return nil
}

func (c *redisCache) Health(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeHealth, "cache not reachable")
	}
	return nil
}

func (c *redisCache) Close() error {
	return c.client.Close()
}

// Noop is a disabled cache: every read misses, writes succeed silently
type Noop struct{}

func (Noop) GetJSON(context.Context, string, interface{}) (bool, error) { return false, nil }
func (Noop) SetJSON(context.Context, string, interface{}) error         { return nil }
func (Noop) Delete(context.Context, ...string) error                    { return nil }
func (Noop) Health(context.Context) error                               { return nil }
func (Noop) Close() error                                               { return nil }
