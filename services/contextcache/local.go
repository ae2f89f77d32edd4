package contextcache

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	value   []byte
	expires time.Time
}

// localCache is the in-process fallback used when Redis is unreachable.
type localCache struct {
	mu      sync.RWMutex
	entries map[string]localEntry
	ttl     time.Duration
}

func newLocalCache(ttl time.Duration) *localCache {
	return &localCache{
		entries: make(map[string]localEntry),
		ttl:     ttl,
	}
}

func (l *localCache) get(key string) ([]byte, bool) {
	l.mu.RLock()
	entry, ok := l.entries[key]
	l.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.value, true
}

func (l *localCache) set(key string, value []byte) {
	l.mu.Lock()
	l.entries[key] = localEntry{value: value, expires: time.Now().Add(l.ttl)}
	l.mu.Unlock()
}

func (l *localCache) del(key string) {
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
}

// sweep drops expired entries at the given interval until ctx is cancelled.
func (l *localCache) sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			l.mu.Lock()
			for key, entry := range l.entries {
				if now.After(entry.expires) {
					delete(l.entries, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
