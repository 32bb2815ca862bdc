package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "venuehire/internal/app/outbox"
	"venuehire/internal/app/uow"
	infraoutbox "venuehire/internal/infra/outbox"
)

// OutboxStore writes events into the outbox table. Inside a unit of work the
// insert joins its transaction, so events commit or roll back with the
// aggregate rows.
type OutboxStore struct {
	pool *pgxpool.Pool
}

func NewOutboxStore(pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{pool: pool}
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	headers, err := json.Marshal(record.Headers)
	if err != nil {
		return err
	}
	payload := record.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	_, err = s.querier(ctx).Exec(ctx, `INSERT INTO outbox (id, name, payload, occurred_at, aggregate_id, aggregate_type, headers)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.ID, record.Name, payload, record.OccurredAt, record.AggregateID, record.AggregateType, headers)
	return err
}

// Flush is a no-op: the worker delivers committed rows.
func (s *OutboxStore) Flush(context.Context) error {
	return nil
}

func (s *OutboxStore) querier(ctx context.Context) querier {
	if unit, ok := uow.FromContext(ctx); ok {
		if pu, ok := unit.(*Unit); ok {
			return pu.tx
		}
	}
	return s.pool
}

// Claim locks one due row with SKIP LOCKED so concurrent workers never pick
// the same event.
func (s *OutboxStore) Claim(ctx context.Context, workerID string, now time.Time) (*infraoutbox.Pending, error) {
	row := s.pool.QueryRow(ctx, `UPDATE outbox SET state=$1, claimed_by=$2, claimed_at=$3
		WHERE id = (
			SELECT id FROM outbox
			WHERE state IN ($4, $5) AND next_attempt_at <= $3
			ORDER BY next_attempt_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, name, payload, occurred_at, aggregate_id, aggregate_type, headers, attempts`,
		infraoutbox.StateClaimed, workerID, now, infraoutbox.StateNew, infraoutbox.StateFailed)

	var (
		p       infraoutbox.Pending
		headers []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.Payload, &p.OccurredAt, &p.AggregateID, &p.AggregateType, &headers, &p.Attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &p.Headers); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET state=$2, sent_at=$3 WHERE id=$1`, id, infraoutbox.StateSent, at)
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET state=$2, next_attempt_at=$3, last_error=$4, attempts=attempts+1 WHERE id=$1`,
		id, infraoutbox.StateFailed, next, errMsg)
	return err
}

var (
	_ appoutbox.Outbox  = (*OutboxStore)(nil)
	_ infraoutbox.Store = (*OutboxStore)(nil)
)
