package me

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"venuehire/internal/app/dto"
	handlersupport "venuehire/internal/app/handlers/support"
	"venuehire/internal/app/queries"
	"venuehire/internal/app/uow"
	domainlistings "venuehire/internal/domain/listings"
)

const listGuestBookingsKey = "me.bookings.list"

type ListGuestBookingsQuery struct {
	GuestID string `validate:"required"`
}

func (q ListGuestBookingsQuery) Key() string { return listGuestBookingsKey }

type ListGuestBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListGuestBookingsHandler) Handle(ctx context.Context, q ListGuestBookingsQuery) (dto.BookingCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	defer cleanup()

	bookings, err := unit.Booking().ListByGuest(execCtx, q.GuestID)
	if err != nil {
		return dto.BookingCollection{}, err
	}

	items := make([]dto.BookingSummary, 0, len(bookings))
	for _, booking := range bookings {
		listing, err := unit.Listings().ByID(execCtx, booking.ListingID)
		if err != nil && !errors.Is(err, domainlistings.ErrNotFound) {
			return dto.BookingCollection{}, err
		}
		items = append(items, dto.MapBookingSummary(booking, listing, false))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	if h.Logger != nil {
		h.Logger.DebugContext(ctx, "guest bookings listed", "guest_id", q.GuestID, "count", len(items))
	}
	return dto.BookingCollection{Items: items}, nil
}

var _ queries.Handler[ListGuestBookingsQuery, dto.BookingCollection] = (*ListGuestBookingsHandler)(nil)
