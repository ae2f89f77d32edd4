package contextcache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Service is a short-TTL read-through / write-invalidate cache in front of a
// durable store. Two instances exist in practice: one for conversation
// context (seconds TTL) and one for business config (minutes TTL).
type Service interface {
	// Get returns the cached bytes for key, if present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool)
	// GetOrLoad returns the cached value or runs loader and caches its result.
	GetOrLoad(ctx context.Context, key string, loader func() ([]byte, error)) ([]byte, error)
	// Set stores value under key with the service TTL.
	Set(ctx context.Context, key string, value []byte)
	// Invalidate drops key. Must be called before any write another reader of
	// the same key could observe, and again before the re-read in the same turn.
	Invalidate(ctx context.Context, key string)
}

// RedisCache implements Service on Redis, degrading to an in-process map when
// the client is nil or a round-trip fails.
type RedisCache struct {
	client   *redis.Client
	fallback *localCache
	prefix   string
	ttl      time.Duration
	logger   *zap.Logger
}

// NewRedisCache builds a cache service. client may be nil, in which case only
// the local fallback is used.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client:   client,
		fallback: newLocalCache(ttl),
		prefix:   prefix,
		ttl:      ttl,
		logger:   logger,
	}
}

// StartSweeper runs the periodic best-effort expiry sweep of the local
// fallback until ctx is cancelled.
func (c *RedisCache) StartSweeper(ctx context.Context, interval time.Duration) {
	go c.fallback.sweep(ctx, interval)
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c.client != nil {
		data, err := c.client.Get(ctx, c.prefix+key).Bytes()
		if err == nil {
			return data, true
		}
		if err != redis.Nil {
			c.logger.Warn("cache read failed, using local fallback",
				zap.String("key", key), zap.Error(err))
			return c.fallback.get(key)
		}
		return nil, false
	}
	return c.fallback.get(key)
}

func (c *RedisCache) GetOrLoad(ctx context.Context, key string, loader func() ([]byte, error)) ([]byte, error) {
	if data, ok := c.Get(ctx, key); ok {
		return data, nil
	}
	data, err := loader()
	if err != nil {
		return nil, err
	}
	c.Set(ctx, key, data)
	return data, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte) {
	if c.client != nil {
		if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
			c.logger.Warn("cache write failed, using local fallback",
				zap.String("key", key), zap.Error(err))
			c.fallback.set(key, value)
		}
		return
	}
	c.fallback.set(key, value)
}

func (c *RedisCache) Invalidate(ctx context.Context, key string) {
	if c.client != nil {
		if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
			c.logger.Warn("cache invalidate failed",
				zap.String("key", key), zap.Error(err))
		}
	}
	c.fallback.del(key)
}
