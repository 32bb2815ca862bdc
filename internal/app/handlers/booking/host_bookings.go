package booking

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"venuehire/internal/app/commands"
	"venuehire/internal/app/dto"
	handlersupport "venuehire/internal/app/handlers/support"
	"venuehire/internal/app/outbox"
	"venuehire/internal/app/queries"
	"venuehire/internal/app/uow"
	domainbooking "venuehire/internal/domain/booking"
	domainlistings "venuehire/internal/domain/listings"
)

const (
	listHostBookingsKey    = "host.bookings.list"
	confirmHostBookingKey  = "host.bookings.confirm"
	declineHostBookingKey  = "host.bookings.decline"
	completeHostBookingKey = "host.bookings.complete"
	allStatusesFilterValue = "ALL"

	hostRole = "host"
)

var ErrBookingNotOwned = errors.New("booking: not owned by caller")

type ListHostBookingsQuery struct {
	HostID string `validate:"required"`
	Status string
}

func (q ListHostBookingsQuery) Key() string { return listHostBookingsKey }

func (q ListHostBookingsQuery) RequiredRole() string { return hostRole }

type ListHostBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListHostBookingsHandler) Handle(ctx context.Context, q ListHostBookingsQuery) (dto.BookingCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	defer cleanup()

	bookings, err := unit.Booking().ListByHost(execCtx, domainlistings.HostID(q.HostID))
	if err != nil {
		return dto.BookingCollection{}, err
	}

	statusFilter := strings.ToUpper(strings.TrimSpace(q.Status))
	if statusFilter == "" {
		statusFilter = string(domainbooking.StatePending)
	}
	allStatuses := statusFilter == allStatusesFilterValue

	listings := map[domainlistings.ListingID]*domainlistings.Listing{}
	items := make([]dto.BookingSummary, 0, len(bookings))
	for _, booking := range bookings {
		if !allStatuses && string(booking.State) != statusFilter {
			continue
		}
		listing, err := cachedListing(execCtx, unit, listings, booking.ListingID)
		if err != nil {
			return dto.BookingCollection{}, err
		}
		items = append(items, dto.MapBookingSummary(booking, listing, true))
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date < items[j].Date
		}
		return items[i].Window.Start < items[j].Window.Start
	})

	if h.Logger != nil {
		h.Logger.DebugContext(ctx, "host bookings listed", "host_id", q.HostID, "count", len(items), "status", statusFilter)
	}
	return dto.BookingCollection{Items: items}, nil
}

type ConfirmHostBookingCommand struct {
	HostID    string `validate:"required"`
	BookingID string `validate:"required"`
}

func (c ConfirmHostBookingCommand) Key() string          { return confirmHostBookingKey }
func (c ConfirmHostBookingCommand) RequiredRole() string { return hostRole }

type DeclineHostBookingCommand struct {
	HostID    string `validate:"required"`
	BookingID string `validate:"required"`
	Reason    string `validate:"max=500"`
}

func (c DeclineHostBookingCommand) Key() string          { return declineHostBookingKey }
func (c DeclineHostBookingCommand) RequiredRole() string { return hostRole }

type CompleteHostBookingCommand struct {
	HostID    string `validate:"required"`
	BookingID string `validate:"required"`
}

func (c CompleteHostBookingCommand) Key() string          { return completeHostBookingKey }
func (c CompleteHostBookingCommand) RequiredRole() string { return hostRole }

// HostBookingHandler serves the host-side booking transitions.
type HostBookingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
	Logger     *slog.Logger
}

func (h *HostBookingHandler) Confirm(ctx context.Context, cmd ConfirmHostBookingCommand) (*dto.BookingResult, error) {
	return h.transition(ctx, cmd.HostID, cmd.BookingID, "confirmed", func(b *domainbooking.Booking, now time.Time) error {
		return b.Confirm(now)
	})
}

func (h *HostBookingHandler) Decline(ctx context.Context, cmd DeclineHostBookingCommand) (*dto.BookingResult, error) {
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		reason = "host-declined"
	}
	return h.transition(ctx, cmd.HostID, cmd.BookingID, "declined", func(b *domainbooking.Booking, now time.Time) error {
		return b.Decline(reason, now)
	})
}

func (h *HostBookingHandler) Complete(ctx context.Context, cmd CompleteHostBookingCommand) (*dto.BookingResult, error) {
	return h.transition(ctx, cmd.HostID, cmd.BookingID, "completed", func(b *domainbooking.Booking, now time.Time) error {
		return b.Complete(now)
	})
}

func (h *HostBookingHandler) transition(ctx context.Context, hostID, bookingID, verb string, apply func(*domainbooking.Booking, time.Time) error) (*dto.BookingResult, error) {
	var result *dto.BookingResult
	err := handlersupport.WithUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		booking, err := unit.Booking().ByID(ctx, domainbooking.BookingID(bookingID))
		if err != nil {
			return err
		}
		if booking.HostID != domainlistings.HostID(hostID) {
			return ErrBookingNotOwned
		}
		if err := apply(booking, handlersupport.Now(h.Clock)); err != nil {
			return err
		}
		if err := unit.Booking().Save(ctx, booking); err != nil {
			return err
		}
		if err := handlersupport.RecordEvents(ctx, h.Outbox, h.Encoder, booking); err != nil {
			return err
		}
		result = dto.MapBookingResult(booking)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "host booking "+verb, "booking_id", bookingID, "host_id", hostID, "listing_id", result.ListingID)
	}
	return result, nil
}

func cachedListing(ctx context.Context, unit uow.UnitOfWork, seen map[domainlistings.ListingID]*domainlistings.Listing, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	if l, ok := seen[id]; ok {
		return l, nil
	}
	l, err := unit.Listings().ByID(ctx, id)
	if errors.Is(err, domainlistings.ErrNotFound) {
		seen[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	seen[id] = l
	return l, nil
}

var _ queries.Handler[ListHostBookingsQuery, dto.BookingCollection] = (*ListHostBookingsHandler)(nil)

var (
	_ commands.HandlerFunc[ConfirmHostBookingCommand, *dto.BookingResult]  = (*HostBookingHandler)(nil).Confirm
	_ commands.HandlerFunc[DeclineHostBookingCommand, *dto.BookingResult]  = (*HostBookingHandler)(nil).Decline
	_ commands.HandlerFunc[CompleteHostBookingCommand, *dto.BookingResult] = (*HostBookingHandler)(nil).Complete
)
