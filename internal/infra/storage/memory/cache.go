package memory

import (
	"context"
	"sync"
	"time"

	"venuehire/internal/app/middleware"
)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// QueryCache is a process-local middleware.QueryCache. Expired entries are
// evicted lazily on read and by Sweep.
type QueryCache struct {
	mu          sync.Mutex
	entries     map[string]cacheEntry
	generations map[string]int64
	now         func() time.Time
}

func NewQueryCache() *QueryCache {
	return &QueryCache{
		entries:     make(map[string]cacheEntry),
		generations: make(map[string]int64),
		now:         time.Now,
	}
}

func (c *QueryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, middleware.ErrCacheMiss
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, middleware.ErrCacheMiss
	}
	return append([]byte(nil), e.value...), nil
}

func (c *QueryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: append([]byte(nil), value...), expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *QueryCache) Generation(ctx context.Context, scope string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[scope], nil
}

func (c *QueryCache) Bump(ctx context.Context, scope string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[scope]++
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (c *QueryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

var _ middleware.QueryCache = (*QueryCache)(nil)
