package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuehire/internal/app/middleware"
	appoutbox "venuehire/internal/app/outbox"
	"venuehire/internal/app/uow"
	domainlistings "venuehire/internal/domain/listings"
	domainpricing "venuehire/internal/domain/pricing"
	"venuehire/internal/domain/shared/money"
)

func TestSearchFilterNumbersPlaceholders(t *testing.T) {
	where, args := searchFilter(domainlistings.SearchParams{
		OnlyActive:   true,
		City:         "austin",
		MinGuests:    10,
		MaxRateCents: 9000,
		VenueTypes:   []string{"loft"},
	}.Normalized())

	assert.Equal(t, "WHERE state = $1 AND city = $2 AND venue_type = ANY($3) AND capacity >= $4 AND hourly_rate <= $5", where)
	assert.Equal(t, []any{"ACTIVE", "austin", []string{"loft"}, 10, int64(9000)}, args)

	where, args = searchFilter(domainlistings.SearchParams{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestSearchOrder(t *testing.T) {
	assert.Equal(t, "hourly_rate ASC, id", searchOrder(""))
	assert.Equal(t, "capacity DESC, id", searchOrder(domainlistings.SortByCapacity))
	assert.Equal(t, "updated_at DESC, id", searchOrder(domainlistings.SortByUpdated))
}

// The tests below need a disposable database; set POSTGRES_DSN to run them.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool))
	return pool
}

func newListing(t *testing.T) *domainlistings.Listing {
	t.Helper()
	l, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:       domainlistings.ListingID("pg-" + uuid.NewString()),
		Host:     "host-pg",
		Title:    "Loft",
		Address:  domainlistings.Address{Line1: "1 Main", City: "Austin", Country: "US"},
		Capacity: 12,
		Pricing:  domainpricing.Config{HourlyRate: money.Must(5000, "USD"), MinHours: 1, MaxHours: 8},
		Now:      time.Now(),
	})
	require.NoError(t, err)
	return l
}

func TestListingSaveDetectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	pool := testPool(t)
	f := Factory{Pool: pool}
	l := newListing(t)

	unit, err := f.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Listings().Save(ctx, l))
	require.NoError(t, unit.Commit(ctx))
	assert.Equal(t, int64(1), l.Version)

	stale := *l
	unit, err = f.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	l.Title = "Loft 2"
	require.NoError(t, unit.Listings().Save(ctx, l))
	require.NoError(t, unit.Commit(ctx))

	unit, err = f.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	defer unit.Rollback(ctx)
	assert.ErrorIs(t, unit.Listings().Save(ctx, &stale), domainlistings.ErrConcurrentUpdate)
}

func TestLockSlotTimesOut(t *testing.T) {
	ctx := context.Background()
	pool := testPool(t)
	f := Factory{Pool: pool, SlotWait: 50 * time.Millisecond}
	date := time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)
	id := domainlistings.ListingID(uuid.NewString())

	first, err := f.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	defer first.Rollback(ctx)
	require.NoError(t, first.LockSlot(ctx, id, date))

	second, err := f.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	defer second.Rollback(ctx)
	assert.ErrorIs(t, second.LockSlot(ctx, id, date), uow.ErrSlotBusy)
}

func TestOutboxJoinsUnitTransaction(t *testing.T) {
	ctx := context.Background()
	pool := testPool(t)
	store := NewOutboxStore(pool)
	f := Factory{Pool: pool}

	unit, err := f.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	txCtx := uow.ContextWithUnitOfWork(ctx, unit)
	id := uuid.NewString()
	require.NoError(t, store.Add(txCtx, appoutbox.EventRecord{ID: id, Name: "booking.requested", Payload: []byte(`{}`), OccurredAt: time.Now(), AggregateID: "b"}))
	require.NoError(t, unit.Rollback(ctx))

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE id=$1`, id).Scan(&n))
	assert.Zero(t, n)
}

func TestIdempotencyStoreAgesFromSave(t *testing.T) {
	ctx := context.Background()
	pool := testPool(t)
	store := NewIdempotencyStore(pool, time.Hour)
	key := "bookings.request:" + uuid.NewString()

	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{
		Key: key, Command: "bookings.request", Payload: []byte(`{}`), OccurredAt: time.Now().Add(-48 * time.Hour),
	}))
	_, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)

	_, err = pool.Exec(ctx, `UPDATE idempotency SET stored_at = now() - interval '2 hours' WHERE key=$1`, key)
	require.NoError(t, err)
	_, found, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
}
