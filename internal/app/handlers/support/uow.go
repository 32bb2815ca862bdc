package support

import (
	"context"
	"errors"
	"time"

	"venuehire/internal/app/outbox"
	"venuehire/internal/app/uow"
	domainavailability "venuehire/internal/domain/availability"
	domainbooking "venuehire/internal/domain/booking"
	domainlistings "venuehire/internal/domain/listings"
	"venuehire/internal/domain/shared/events"
)

var ErrUnitOfWorkRequired = errors.New("handlers: unit of work required")

func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	unit, ok := uow.FromContext(ctx)
	if ok {
		return unit, ctx, func() {}, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	newUnit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := uow.Bind(ctx, newUnit)
	cleanup := func() {
		_ = newUnit.Rollback(execCtx)
	}
	return newUnit, execCtx, cleanup, nil
}

// WithUnit runs fn inside the unit of work already carried by ctx. When there is
// none it begins a writable one, commits it if fn succeeds and rolls it back
// otherwise.
func WithUnit(ctx context.Context, factory uow.UoWFactory, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	if unit, ok := uow.FromContext(ctx); ok {
		return fn(ctx, unit)
	}
	if factory == nil {
		return ErrUnitOfWorkRequired
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	execCtx := uow.Bind(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()
	if err := fn(execCtx, unit); err != nil {
		return err
	}
	if err := unit.Commit(execCtx); err != nil {
		return err
	}
	committed = true
	return nil
}

type eventSource interface {
	Drain() []events.DomainEvent
}

// RecordEvents hands every aggregate's pending events to the outbox.
func RecordEvents(ctx context.Context, box outbox.Outbox, encoder outbox.EventEncoder, sources ...eventSource) error {
	for _, src := range sources {
		if err := outbox.RecordDomainEvents(ctx, box, encoder, src.Drain()); err != nil {
			return err
		}
	}
	return nil
}

// Now returns clock() in UTC, falling back to the wall clock.
func Now(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}

// BookedWindows loads the bookings of a listing on date as conflict-check input.
func BookedWindows(ctx context.Context, repo domainbooking.Repository, listingID domainlistings.ListingID, date time.Time) ([]domainavailability.BookedWindow, error) {
	bookings, err := repo.ListByListingDate(ctx, listingID, date)
	if err != nil {
		return nil, err
	}
	out := make([]domainavailability.BookedWindow, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.BookedWindow())
	}
	return out, nil
}
