package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuehire/internal/app/commands"
	"venuehire/internal/app/outbox"
	"venuehire/internal/app/queries"
	"venuehire/internal/app/uow"
)

type priceQuery struct {
	listing string
	hours   int
}

func (q priceQuery) Key() string          { return "test.price" }
func (q priceQuery) CacheScope() string   { return ListingScope(q.listing) }
func (q priceQuery) CacheKey() string     { return q.listing }
func (q priceQuery) ResultPrototype() any { return new(priceResult) }

type priceResult struct {
	Cents int64 `json:"cents"`
}

type renameCommand struct {
	listing string
	key     string
	role    string
}

func (c renameCommand) Key() string            { return "test.rename" }
func (c renameCommand) IdempotencyKey() string { return c.key }
func (c renameCommand) ResultPrototype() any   { return new(renameResult) }
func (c renameCommand) RequiredRole() string   { return c.role }

type renameResult struct {
	Listing string `json:"listing"`
	Calls   int    `json:"calls"`
}

func (r *renameResult) InvalidatedScopes() []string { return []string{ListingScope(r.Listing)} }

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	gens    map[string]int64
	failGen bool
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}, ttls: map[string]time.Duration{}, gens: map[string]int64{}}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *mapCache) Generation(_ context.Context, scope string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGen {
		return 0, errors.New("cache down")
	}
	return c.gens[scope], nil
}

func (c *mapCache) Bump(_ context.Context, scope string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[scope]++
	return nil
}

type mapIdempotency struct {
	records map[string]IdempotencyRecord
}

func (s *mapIdempotency) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	rec, ok := s.records[key]
	return rec, ok, nil
}

func (s *mapIdempotency) Save(_ context.Context, rec IdempotencyRecord) error {
	s.records[rec.Key] = rec
	return nil
}

func fixedClock() time.Time { return time.Date(2025, 3, 1, 9, 0, 30, 0, time.UTC) }

func priceBus(calls *int, cents *int64) *queries.InMemoryBus {
	bus := queries.NewInMemoryBus()
	queries.RegisterHandler(bus, "test.price", queries.HandlerFunc[priceQuery, *priceResult](func(ctx context.Context, q priceQuery) (*priceResult, error) {
		*calls++
		return &priceResult{Cents: *cents * int64(q.hours)}, nil
	}))
	return bus
}

func TestCacheServesUntilScopeBumped(t *testing.T) {
	cache := newMapCache()
	calls, cents := 0, int64(100)
	bus := ChainQueries(priceBus(&calls, &cents), Cache(cache, CacheOptions{Clock: fixedClock}))

	ask := func() int64 {
		res, err := queries.Ask[priceQuery, *priceResult](context.Background(), bus, priceQuery{listing: "l-1", hours: 2})
		require.NoError(t, err)
		return res.Cents
	}
	assert.Equal(t, int64(200), ask())
	cents = 150
	assert.Equal(t, int64(200), ask())
	assert.Equal(t, 1, calls)

	require.NoError(t, cache.Bump(context.Background(), ListingScope("l-1")))
	assert.Equal(t, int64(300), ask())
	assert.Equal(t, 2, calls)
}

type saleQuote struct {
	Cents int64     `json:"cents"`
	Until time.Time `json:"until"`
}

func (r *saleQuote) CacheDeadline() (time.Time, bool) { return r.Until, !r.Until.IsZero() }

func TestCacheEntryNeverOutlivesResultDeadline(t *testing.T) {
	cases := []struct {
		name   string
		until  time.Time
		want   time.Duration
		cached bool
	}{
		{"no deadline", time.Time{}, time.Minute, true},
		{"deadline after ttl", fixedClock().Add(time.Hour), time.Minute, true},
		{"deadline inside ttl", fixedClock().Add(10 * time.Second), 10 * time.Second, true},
		{"deadline passed", fixedClock().Add(-time.Second), 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cache := newMapCache()
			base := queries.NewInMemoryBus()
			queries.RegisterHandler(base, "test.price", queries.HandlerFunc[priceQuery, *saleQuote](func(context.Context, priceQuery) (*saleQuote, error) {
				return &saleQuote{Cents: 900, Until: tc.until}, nil
			}))
			bus := ChainQueries(base, Cache(cache, CacheOptions{TTL: time.Minute, Clock: fixedClock}))

			_, err := bus.Ask(context.Background(), priceQuery{listing: "l-1", hours: 1})
			require.NoError(t, err)
			if !tc.cached {
				assert.Empty(t, cache.ttls)
				return
			}
			require.Len(t, cache.ttls, 1)
			for _, ttl := range cache.ttls {
				assert.Equal(t, tc.want, ttl)
			}
		})
	}
}

func TestCacheFaultFallsThrough(t *testing.T) {
	cache := newMapCache()
	cache.failGen = true
	calls, cents := 0, int64(100)
	bus := ChainQueries(priceBus(&calls, &cents), Cache(cache, CacheOptions{Clock: fixedClock}))

	for i := 0; i < 2; i++ {
		_, err := queries.Ask[priceQuery, *priceResult](context.Background(), bus, priceQuery{listing: "l-1", hours: 1})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, cache.entries)
}

func renameBus(calls *int, fail *bool) *commands.InMemoryBus {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, "test.rename", commands.HandlerFunc[renameCommand, *renameResult](func(ctx context.Context, c renameCommand) (*renameResult, error) {
		*calls++
		if *fail {
			return nil, errors.New("rejected")
		}
		return &renameResult{Listing: c.listing, Calls: *calls}, nil
	}))
	return bus
}

func TestIdempotencyReplaysSuccessOnly(t *testing.T) {
	store := &mapIdempotency{records: map[string]IdempotencyRecord{}}
	calls, fail := 0, true
	bus := ChainCommands(renameBus(&calls, &fail), Idempotency(store, IdempotencyOptions{Clock: fixedClock}))
	cmd := renameCommand{listing: "l-1", key: "k-1"}

	_, err := commands.Dispatch[renameCommand, *renameResult](context.Background(), bus, cmd)
	require.Error(t, err)
	assert.Empty(t, store.records)

	fail = false
	first, err := commands.Dispatch[renameCommand, *renameResult](context.Background(), bus, cmd)
	require.NoError(t, err)
	replay, err := commands.Dispatch[renameCommand, *renameResult](context.Background(), bus, cmd)
	require.NoError(t, err)

	assert.Equal(t, first, replay)
	assert.Equal(t, 2, calls)
	rec := store.records["test.rename:k-1"]
	assert.Equal(t, fixedClock(), rec.OccurredAt)

	_, err = commands.Dispatch[renameCommand, *renameResult](context.Background(), bus, renameCommand{listing: "l-1"})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestInvalidateCacheBumpsOnSuccess(t *testing.T) {
	cache := newMapCache()
	calls, fail := 0, false
	bus := ChainCommands(renameBus(&calls, &fail), InvalidateCache(cache, nil))

	_, err := commands.Dispatch[renameCommand, *renameResult](context.Background(), bus, renameCommand{listing: "l-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), cache.gens[ListingScope("l-1")])

	fail = true
	_, err = commands.Dispatch[renameCommand, *renameResult](context.Background(), bus, renameCommand{listing: "l-1"})
	require.Error(t, err)
	assert.Equal(t, int64(1), cache.gens[ListingScope("l-1")])
}

func TestAuthorizationChecksRequiredRole(t *testing.T) {
	calls, fail := 0, false
	bus := ChainCommands(renameBus(&calls, &fail), Authorization(RoleAuthorizer{}))
	cmd := renameCommand{listing: "l-1", role: "host"}

	_, err := commands.Dispatch[renameCommand, *renameResult](context.Background(), bus, cmd)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	guest := WithPrincipal(context.Background(), Principal{ID: "u-1", Roles: []string{"guest"}})
	_, err = commands.Dispatch[renameCommand, *renameResult](guest, bus, cmd)
	assert.ErrorIs(t, err, ErrForbidden)

	host := WithPrincipal(context.Background(), Principal{ID: "u-2", Roles: []string{"HOST"}})
	_, err = commands.Dispatch[renameCommand, *renameResult](host, bus, cmd)
	require.NoError(t, err)

	_, err = commands.Dispatch[renameCommand, *renameResult](context.Background(), bus, renameCommand{listing: "l-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

type recordingOutbox struct {
	added     map[string][]outbox.EventRecord
	flushed   []string
	discarded []string
}

func (o *recordingOutbox) Add(ctx context.Context, rec outbox.EventRecord) error {
	if o.added == nil {
		o.added = map[string][]outbox.EventRecord{}
	}
	batch := outbox.BatchFrom(ctx)
	o.added[batch] = append(o.added[batch], rec)
	return nil
}

func (o *recordingOutbox) Flush(ctx context.Context) error {
	o.flushed = append(o.flushed, outbox.BatchFrom(ctx))
	return errors.New("broker down")
}

func (o *recordingOutbox) Discard(ctx context.Context) {
	o.discarded = append(o.discarded, outbox.BatchFrom(ctx))
}

func TestOutboxFlushPerCommandBatch(t *testing.T) {
	box := &recordingOutbox{}
	fail := false
	base := commands.NewInMemoryBus()
	commands.RegisterHandler(base, "test.rename", commands.HandlerFunc[renameCommand, *renameResult](func(ctx context.Context, c renameCommand) (*renameResult, error) {
		if err := box.Add(ctx, outbox.EventRecord{Name: "listing.renamed"}); err != nil {
			return nil, err
		}
		if fail {
			return nil, errors.New("rejected")
		}
		return &renameResult{Listing: c.listing}, nil
	}))
	bus := ChainCommands(base, OutboxFlush(box, nil))

	_, err := commands.Dispatch[renameCommand, *renameResult](context.Background(), bus, renameCommand{listing: "l-1"})
	require.NoError(t, err, "flush failures are logged, not returned")
	require.Len(t, box.flushed, 1)
	assert.NotEmpty(t, box.flushed[0])

	fail = true
	_, err = commands.Dispatch[renameCommand, *renameResult](context.Background(), bus, renameCommand{listing: "l-1"})
	require.Error(t, err)
	require.Len(t, box.discarded, 1)
	assert.NotEqual(t, box.flushed[0], box.discarded[0])
	assert.Len(t, box.flushed, 1)
}

type fakeUnit struct {
	uow.UnitOfWork
	committed  bool
	rolledBack bool
}

func (u *fakeUnit) Commit(context.Context) error   { u.committed = true; return nil }
func (u *fakeUnit) Rollback(context.Context) error { u.rolledBack = true; return nil }

type fakeFactory struct {
	units []*fakeUnit
}

func (f *fakeFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	u := &fakeUnit{}
	f.units = append(f.units, u)
	return u, nil
}

func TestTransactionCommitsOrRollsBack(t *testing.T) {
	factory := &fakeFactory{}
	calls, fail := 0, false
	base := commands.NewInMemoryBus()
	commands.RegisterHandler(base, "test.rename", commands.HandlerFunc[renameCommand, *renameResult](func(ctx context.Context, c renameCommand) (*renameResult, error) {
		calls++
		if _, err := uow.Current(ctx); err != nil {
			return nil, err
		}
		if fail {
			return nil, errors.New("rejected")
		}
		return &renameResult{Listing: c.listing}, nil
	}))
	bus := ChainCommands(base, Transaction(factory, nil, nil))

	_, err := commands.Dispatch[renameCommand, *renameResult](context.Background(), bus, renameCommand{listing: "l-1"})
	require.NoError(t, err)
	fail = true
	_, err = commands.Dispatch[renameCommand, *renameResult](context.Background(), bus, renameCommand{listing: "l-1"})
	require.Error(t, err)

	require.Len(t, factory.units, 2)
	assert.True(t, factory.units[0].committed)
	assert.False(t, factory.units[0].rolledBack)
	assert.False(t, factory.units[1].committed)
	assert.True(t, factory.units[1].rolledBack)
	assert.Equal(t, 2, calls)
}
