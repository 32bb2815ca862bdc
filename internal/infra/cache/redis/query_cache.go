package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"venuehire/internal/app/middleware"
)

// QueryCache stores encoded query results under "cache:" keys and scope
// generations under "gen:" keys.
type QueryCache struct {
	client goredis.Cmdable
}

func NewQueryCache(client goredis.Cmdable) *QueryCache {
	return &QueryCache{client: client}
}

func (c *QueryCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, middleware.ErrCacheMiss
		}
		return nil, err
	}
	return data, nil
}

func (c *QueryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, cacheKey(key), value, ttl).Err()
}

func (c *QueryCache) Generation(ctx context.Context, scope string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(scope)).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return gen, nil
}

func (c *QueryCache) Bump(ctx context.Context, scope string) error {
	return c.client.Incr(ctx, generationKey(scope)).Err()
}

func cacheKey(key string) string {
	return "cache:" + key
}

func generationKey(scope string) string {
	return "gen:" + scope
}

var _ middleware.QueryCache = (*QueryCache)(nil)
