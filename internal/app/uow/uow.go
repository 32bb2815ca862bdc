package uow

import (
	"context"
	"errors"
	"time"

	domainbooking "venuehire/internal/domain/booking"
	domainlistings "venuehire/internal/domain/listings"
)

// ErrSlotBusy is returned by LockSlot when another unit of work holds the
// listing/date lock and it could not be acquired in time.
var ErrSlotBusy = errors.New("uow: slot is locked by another request")

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Listings() domainlistings.ListingRepository
	Booking() domainbooking.Repository

	// LockSlot serialises booking writes for one listing and calendar day until
	// the unit of work ends. Overlap checks must run after the lock is held.
	LockSlot(ctx context.Context, listingID domainlistings.ListingID, date time.Time) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

// SlotKey is the lock name shared by every storage backend.
func SlotKey(listingID domainlistings.ListingID, date time.Time) string {
	return "slot:" + string(listingID) + ":" + date.UTC().Format(time.DateOnly)
}

// SlotLocker hands out named exclusive locks. Backends without a native lock
// primitive take one per unit of work; release must be safe to call twice.
type SlotLocker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}
