package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"venuehire/internal/app/commands"
	"venuehire/internal/app/queries"
)

// ErrCacheMiss is returned by QueryCache.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("middleware: cache miss")

// QueryCache stores encoded query results. Generations let writers invalidate
// every key of a scope at once without enumerating them.
type QueryCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Generation(ctx context.Context, scope string) (int64, error)
	Bump(ctx context.Context, scope string) error
}

// CacheableQuery opts a query into cache-aside. CacheKey must cover every input
// that changes the result except time, which the middleware adds per minute.
type CacheableQuery interface {
	queries.Query
	CacheScope() string
	CacheKey() string
	ResultPrototype() any
}

// DeadlineResult is implemented by query results that go stale at a known
// instant; the cache entry never lives past it.
type DeadlineResult interface {
	CacheDeadline() (time.Time, bool)
}

// ScopeInvalidator is implemented by command results that change cached reads.
type ScopeInvalidator interface {
	InvalidatedScopes() []string
}

type CacheOptions struct {
	TTL    time.Duration
	Codec  ResultCodec
	Clock  func() time.Time
	Logger *slog.Logger
}

// Cache is a cache-aside query middleware. Cache faults never fail the query:
// they are logged and the handler runs as if the entry were missing.
func Cache(store QueryCache, opts CacheOptions) QueryMiddleware {
	if store == nil {
		panic("middleware: query cache required")
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.Codec == nil {
		opts.Codec = JSONResultCodec{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			cq, ok := q.(CacheableQuery)
			if !ok {
				return nextFn(ctx, q)
			}
			gen, err := store.Generation(ctx, cq.CacheScope())
			if err != nil {
				opts.Logger.WarnContext(ctx, "cache generation lookup failed", "scope", cq.CacheScope(), "error", err)
				return nextFn(ctx, q)
			}
			now := opts.Clock().UTC()
			key := fmt.Sprintf("%s:%s:g%d:%s:%d", q.Key(), cq.CacheScope(), gen, cq.CacheKey(), now.Truncate(time.Minute).Unix())

			raw, err := store.Get(ctx, key)
			switch {
			case err == nil:
				proto := cq.ResultPrototype()
				if decErr := opts.Codec.Decode(raw, proto); decErr == nil {
					return normalizePrototype(proto), nil
				} else {
					opts.Logger.WarnContext(ctx, "cached entry undecodable", "key", key, "error", decErr)
				}
			case !errors.Is(err, ErrCacheMiss):
				opts.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
			}

			res, err := nextFn(ctx, q)
			if err != nil {
				return nil, err
			}
			ttl := opts.TTL
			if dr, ok := res.(DeadlineResult); ok {
				if deadline, ok := dr.CacheDeadline(); ok {
					ttl = min(ttl, deadline.Sub(now))
				}
			}
			if ttl <= 0 {
				return res, nil
			}
			payload, err := opts.Codec.Encode(res)
			if err != nil {
				opts.Logger.WarnContext(ctx, "cache encode failed", "key", key, "error", err)
				return res, nil
			}
			if err := store.Set(ctx, key, payload, ttl); err != nil {
				opts.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
			}
			return res, nil
		})
	}
}

// InvalidateCache bumps the scopes named by successful command results. Place it
// outside Transaction so only committed writes invalidate.
func InvalidateCache(store QueryCache, logger *slog.Logger) CommandMiddleware {
	if store == nil {
		panic("middleware: query cache required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if inv, ok := res.(ScopeInvalidator); ok {
				for _, scope := range inv.InvalidatedScopes() {
					if bumpErr := store.Bump(ctx, scope); bumpErr != nil {
						logger.WarnContext(ctx, "cache invalidation failed", "scope", scope, "error", bumpErr)
					}
				}
			}
			return res, nil
		})
	}
}

// ListingScope is the cache scope shared by reads derived from one listing.
func ListingScope(listingID string) string {
	return "listing:" + listingID
}
