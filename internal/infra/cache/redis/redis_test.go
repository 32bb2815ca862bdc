package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuehire/internal/app/middleware"
	"venuehire/internal/app/uow"
)

// These tests need a live server; set REDIS_ADDR to run them.
func testClientConfig(t *testing.T) Config {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	return Config{Addr: addr, Password: os.Getenv("REDIS_PASSWORD")}
}

func TestQueryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, err := NewClient(ctx, testClientConfig(t))
	require.NoError(t, err)
	defer client.Close()
	cache := NewQueryCache(client)

	key := "test:" + uuid.NewString()
	_, err = cache.Get(ctx, key)
	assert.ErrorIs(t, err, middleware.ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, key, []byte(`{"ok":true}`), time.Minute))
	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(got))

	scope := "listing:" + uuid.NewString()
	gen, err := cache.Generation(ctx, scope)
	require.NoError(t, err)
	assert.Zero(t, gen)
	require.NoError(t, cache.Bump(ctx, scope))
	gen, err = cache.Generation(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}

func TestSlotLockerExcludesSecondHolder(t *testing.T) {
	ctx := context.Background()
	client, err := NewClient(ctx, testClientConfig(t))
	require.NoError(t, err)
	defer client.Close()
	locker := NewSlotLocker(client, 5*time.Second, nil)

	key := "slot:test:" + uuid.NewString()
	release, err := locker.Lock(ctx, key)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, key)
	assert.ErrorIs(t, err, uow.ErrSlotBusy)

	release()
	release()
	again, err := locker.Lock(ctx, key)
	require.NoError(t, err)
	again()
}

func TestKeysArePrefixed(t *testing.T) {
	assert.Equal(t, "cache:quotes.get:x", cacheKey("quotes.get:x"))
	assert.Equal(t, "gen:listing:a", generationKey("listing:a"))
	assert.Equal(t, "lock:slot:a:2030-03-04", lockKey("slot:a:2030-03-04"))
}
