package contextcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

func TestGetOrLoadReadsThrough(t *testing.T) {
	client, _ := newTestRedis(t)
	cache := NewRedisCache(client, "ctx:", time.Minute, zap.NewNop())
	ctx := context.Background()

	loads := 0
	loader := func() ([]byte, error) {
		loads++
		return []byte(`{"stage":"idle"}`), nil
	}

	val, err := cache.GetOrLoad(ctx, "u1:b1", loader)
	require.NoError(t, err)
	assert.Equal(t, `{"stage":"idle"}`, string(val))
	assert.Equal(t, 1, loads)

	// Second read comes from cache, loader untouched.
	val, err = cache.GetOrLoad(ctx, "u1:b1", loader)
	require.NoError(t, err)
	assert.Equal(t, `{"stage":"idle"}`, string(val))
	assert.Equal(t, 1, loads)
}

func TestGetOrLoadPropagatesLoaderError(t *testing.T) {
	client, _ := newTestRedis(t)
	cache := NewRedisCache(client, "ctx:", time.Minute, zap.NewNop())

	_, err := cache.GetOrLoad(context.Background(), "u1:b1", func() ([]byte, error) {
		return nil, errors.New("store down")
	})
	assert.EqualError(t, err, "store down")
}

func TestInvalidateForcesReload(t *testing.T) {
	client, _ := newTestRedis(t)
	cache := NewRedisCache(client, "ctx:", time.Minute, zap.NewNop())
	ctx := context.Background()

	cache.Set(ctx, "u1:b1", []byte("stale"))
	cache.Invalidate(ctx, "u1:b1")

	_, ok := cache.Get(ctx, "u1:b1")
	assert.False(t, ok, "invalidated key must not be readable")

	loads := 0
	val, err := cache.GetOrLoad(ctx, "u1:b1", func() ([]byte, error) {
		loads++
		return []byte("fresh"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(val))
	assert.Equal(t, 1, loads)
}

func TestTTLExpiry(t *testing.T) {
	client, mr := newTestRedis(t)
	cache := NewRedisCache(client, "ctx:", 5*time.Second, zap.NewNop())
	ctx := context.Background()

	cache.Set(ctx, "u1:b1", []byte("v"))
	mr.FastForward(6 * time.Second)

	_, ok := cache.Get(ctx, "u1:b1")
	assert.False(t, ok)
}

func TestLocalFallbackWhenRedisNil(t *testing.T) {
	cache := NewRedisCache(nil, "ctx:", time.Minute, zap.NewNop())
	ctx := context.Background()

	cache.Set(ctx, "k", []byte("v"))
	val, ok := cache.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", string(val))

	cache.Invalidate(ctx, "k")
	_, ok = cache.Get(ctx, "k")
	assert.False(t, ok)
}

func TestLocalFallbackWhenRedisDies(t *testing.T) {
	client, mr := newTestRedis(t)
	cache := NewRedisCache(client, "ctx:", time.Minute, zap.NewNop())
	ctx := context.Background()

	mr.Close()

	// Writes land in the local fallback once the round-trip fails.
	cache.Set(ctx, "k", []byte("v"))
	val, ok := cache.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", string(val))
}

func TestLocalCacheSweepDropsExpired(t *testing.T) {
	lc := newLocalCache(10 * time.Millisecond)
	lc.set("a", []byte("1"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go lc.sweep(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		lc.mu.RLock()
		defer lc.mu.RUnlock()
		_, ok := lc.entries["a"]
		return !ok
	}, time.Second, 10*time.Millisecond)
}
