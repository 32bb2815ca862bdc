package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"venuehire/internal/app/middleware"
)

// IdempotencyStore keeps replayable command results. Rows are aged by the
// database clock from stored_at; rows older than ttl read as absent.
type IdempotencyStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewIdempotencyStore(pool *pgxpool.Pool, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{pool: pool, ttl: ttl}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	var rec middleware.IdempotencyRecord
	err := s.pool.QueryRow(ctx, `SELECT key, command, payload, occurred_at FROM idempotency
		WHERE key=$1 AND ($2::bigint = 0 OR stored_at > now() - $2::bigint * interval '1 millisecond')`,
		key, s.ttl.Milliseconds()).
		Scan(&rec.Key, &rec.Command, &rec.Payload, &rec.OccurredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO idempotency (key, command, payload, occurred_at, stored_at) VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (key) DO UPDATE SET command=EXCLUDED.command, payload=EXCLUDED.payload,
			occurred_at=EXCLUDED.occurred_at, stored_at=EXCLUDED.stored_at`,
		rec.Key, rec.Command, rec.Payload, rec.OccurredAt)
	return err
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
