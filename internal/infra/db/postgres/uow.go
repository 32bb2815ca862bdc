package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"venuehire/internal/app/uow"
	domainbooking "venuehire/internal/domain/booking"
	domainlistings "venuehire/internal/domain/listings"
)

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing pool")

// Factory begins one pgx transaction per unit of work.
type Factory struct {
	Pool *pgxpool.Pool
	// SlotWait becomes the transaction's lock_timeout before LockSlot blocks.
	SlotWait time.Duration
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Pool == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}
	tx, err := f.Pool.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, err
	}
	return &Unit{tx: tx, slotWait: f.SlotWait}, nil
}

type Unit struct {
	tx       pgx.Tx
	slotWait time.Duration
}

func (u *Unit) Listings() domainlistings.ListingRepository {
	return ListingRepository{q: u.tx}
}

func (u *Unit) Booking() domainbooking.Repository {
	return BookingRepository{q: u.tx}
}

// LockSlot takes a transaction-scoped advisory lock; postgres releases it on
// commit or rollback.
func (u *Unit) LockSlot(ctx context.Context, listingID domainlistings.ListingID, date time.Time) error {
	key := uow.SlotKey(listingID, date)
	if u.slotWait > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", u.slotWait.Milliseconds())
		if _, err := u.tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := u.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		if isLockTimeout(err) {
			return fmt.Errorf("%w: %s", uow.ErrSlotBusy, key)
		}
		return err
	}
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	return u.tx.Commit(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
