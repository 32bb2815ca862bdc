package booking

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"venuehire/internal/app/commands"
	"venuehire/internal/app/dto"
	handlersupport "venuehire/internal/app/handlers/support"
	"venuehire/internal/app/middleware"
	"venuehire/internal/app/outbox"
	"venuehire/internal/app/policies"
	"venuehire/internal/app/uow"
	domainbooking "venuehire/internal/domain/booking"
	domainlistings "venuehire/internal/domain/listings"
	"venuehire/internal/domain/shared/timeofday"
)

const requestBookingKey = "booking.request"

type RequestBookingCommand struct {
	ListingID       string `validate:"required"`
	GuestID         string `validate:"required"`
	Date            string `validate:"required,datetime=2006-01-02"`
	Start           string `validate:"required"`
	End             string `validate:"required"`
	Guests          int    `validate:"gte=1"`
	IdempotencyKeyV string `validate:"omitempty,max=128"`
}

func (c RequestBookingCommand) Key() string { return requestBookingKey }

func (c RequestBookingCommand) IdempotencyKey() string {
	if c.IdempotencyKeyV == "" {
		return ""
	}
	return c.GuestID + ":" + c.IdempotencyKeyV
}

func (c RequestBookingCommand) ResultPrototype() any { return &dto.BookingResult{} }

// RequestBookingHandler takes the listing/date slot lock first and re-runs the
// full quote under it, so the conflict check and the insert cannot interleave
// with another request for the same day.
type RequestBookingHandler struct {
	UoWFactory  uow.UoWFactory
	Pricing     policies.PricingPort
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Clock       func() time.Time
	IDGenerator func() string
	Logger      *slog.Logger
}

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*dto.BookingResult, error) {
	date, err := timeofday.ParseDate(cmd.Date)
	if err != nil {
		return nil, err
	}
	window, err := timeofday.ParseWindow(cmd.Start, cmd.End)
	if err != nil {
		return nil, err
	}
	now := handlersupport.Now(h.Clock)
	if err := domainbooking.ValidateStart(date, window, now); err != nil {
		return nil, err
	}

	var result *dto.BookingResult
	err = handlersupport.WithUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		// Lock before the first read: snapshot stores (mongo) pin what the unit
		// sees at its first operation.
		if err := unit.LockSlot(ctx, domainlistings.ListingID(cmd.ListingID), date); err != nil {
			return err
		}
		listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
		if err != nil {
			return err
		}
		if !listing.Bookable() {
			return domainlistings.ErrNotBookable
		}
		if err := domainbooking.ValidateCapacity(cmd.Guests, listing.Capacity); err != nil {
			return err
		}
		existing, err := handlersupport.BookedWindows(ctx, unit.Booking(), listing.ID, date)
		if err != nil {
			return err
		}
		price, err := h.Pricing.Quote(ctx, policies.QuoteInput{
			Listing:  listing,
			Date:     date,
			Window:   window,
			Guests:   cmd.Guests,
			Existing: existing,
			Now:      now,
		})
		if err != nil {
			return err
		}

		booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
			ID:        domainbooking.BookingID(h.newID()),
			ListingID: listing.ID,
			HostID:    listing.Host,
			GuestID:   cmd.GuestID,
			Date:      date,
			Window:    window,
			Guests:    cmd.Guests,
			Price:     price,
			Policy:    domainbooking.SnapshotPolicy(listing.Cancellation, window.StartsAt(date)),
			CreatedAt: now,
		})
		if err != nil {
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
		h.Logger.InfoContext(ctx, "booking requested", "booking_id", result.BookingID, "listing_id", cmd.ListingID, "date", cmd.Date, "window", window.String())
	}
	return result, nil
}

func (h *RequestBookingHandler) newID() string {
	if h.IDGenerator != nil {
		return h.IDGenerator()
	}
	return uuid.NewString()
}

var _ commands.Handler[RequestBookingCommand, *dto.BookingResult] = (*RequestBookingHandler)(nil)
var _ middleware.IdempotentCommand = RequestBookingCommand{}
