package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS listings (
	id TEXT PRIMARY KEY,
	host_id TEXT NOT NULL,
	state TEXT NOT NULL,
	city TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	venue_type TEXT NOT NULL DEFAULT '',
	capacity INTEGER NOT NULL,
	hourly_rate BIGINT NOT NULL,
	version BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	doc JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_listings_host ON listings(host_id);
CREATE INDEX IF NOT EXISTS idx_listings_state_rate ON listings(state, hourly_rate);

CREATE TABLE IF NOT EXISTS bookings (
	id TEXT PRIMARY KEY,
	listing_id TEXT NOT NULL,
	host_id TEXT NOT NULL,
	guest_id TEXT NOT NULL,
	day TEXT NOT NULL,
	start_sec INTEGER NOT NULL,
	end_sec INTEGER NOT NULL,
	state TEXT NOT NULL,
	version BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	doc JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bookings_listing_day ON bookings(listing_id, day);
CREATE INDEX IF NOT EXISTS idx_bookings_guest ON bookings(guest_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_bookings_host ON bookings(host_id, created_at DESC);

CREATE TABLE IF NOT EXISTS outbox (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	payload JSONB NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	aggregate_id TEXT NOT NULL,
	aggregate_type TEXT NOT NULL,
	headers JSONB NOT NULL DEFAULT '{}',
	state TEXT NOT NULL DEFAULT 'NEW',
	attempts INTEGER NOT NULL DEFAULT 0,
	next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	claimed_by TEXT NOT NULL DEFAULT '',
	claimed_at TIMESTAMPTZ,
	sent_at TIMESTAMPTZ,
	last_error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_outbox_due ON outbox(state, next_attempt_at);

CREATE TABLE IF NOT EXISTS idempotency (
	key TEXT PRIMARY KEY,
	command TEXT NOT NULL,
	payload BYTEA,
	occurred_at TIMESTAMPTZ NOT NULL,
	stored_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

ALTER TABLE idempotency ADD COLUMN IF NOT EXISTS stored_at TIMESTAMPTZ NOT NULL DEFAULT now();
`

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
