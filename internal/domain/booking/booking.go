package booking

import (
	"context"
	"errors"
	"time"

	"venuehire/internal/domain/availability"
	"venuehire/internal/domain/listings"
	"venuehire/internal/domain/pricing"
	"venuehire/internal/domain/shared/events"
	"venuehire/internal/domain/shared/money"
	"venuehire/internal/domain/shared/timeofday"
)

var (
	ErrInvalidGuests    = errors.New("booking: guests count must be positive")
	ErrInvalidState     = errors.New("booking: invalid state transition")
	ErrBookingNotFound  = errors.New("booking: not found")
	ErrStartInPast      = errors.New("booking: start time is in the past")
	ErrNotFinished      = errors.New("booking: booking has not ended yet")
	ErrOverCapacity     = errors.New("booking: guests exceed venue capacity")
	ErrConcurrentUpdate = errors.New("booking: booking was modified concurrently")
)

type BookingID string

type BookingState string

const (
	StatePending   BookingState = availability.StatusPending
	StateConfirmed BookingState = availability.StatusConfirmed
	StateDeclined  BookingState = "DECLINED"
	StateCancelled BookingState = "CANCELLED"
	StateCompleted BookingState = "COMPLETED"
)

type Booking struct {
	ID        BookingID
	ListingID listings.ListingID
	HostID    listings.HostID
	GuestID   string
	Date      time.Time
	Window    timeofday.Window
	Guests    int
	Price     pricing.PriceBreakdown
	State     BookingState
	Policy    CancellationPolicySnapshot
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	ListByListingDate(ctx context.Context, listingID listings.ListingID, date time.Time) ([]*Booking, error)
	ListByGuest(ctx context.Context, guestID string) ([]*Booking, error)
	ListByHost(ctx context.Context, hostID listings.HostID) ([]*Booking, error)
}

type CreateParams struct {
	ID        BookingID
	ListingID listings.ListingID
	HostID    listings.HostID
	GuestID   string
	Date      time.Time
	Window    timeofday.Window
	Guests    int
	Price     pricing.PriceBreakdown
	Policy    CancellationPolicySnapshot
	CreatedAt time.Time
	AllowZero bool
}

func NewBooking(params CreateParams) (*Booking, error) {
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if params.GuestID == "" {
		return nil, errors.New("booking: guest id required")
	}
	if err := params.Window.Validate(); err != nil {
		return nil, err
	}
	if err := params.Price.Validate(); err != nil {
		return nil, err
	}
	if !params.Price.TotalPrice.IsPositive() && !params.AllowZero {
		return nil, errors.New("booking: total must be positive")
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:        params.ID,
		ListingID: params.ListingID,
		HostID:    params.HostID,
		GuestID:   params.GuestID,
		Date:      timeofday.DateOf(params.Date),
		Window:    params.Window,
		Guests:    params.Guests,
		Price:     params.Price.Copy(),
		Policy:    params.Policy,
		State:     StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.Record(BookingRequested{
		BookingID:   b.ID,
		ListingID:   b.ListingID,
		GuestID:     b.GuestID,
		Date:        timeofday.FormatDate(b.Date),
		Window:      b.Window,
		GuestsCount: b.Guests,
		QuotedPrice: b.Price.TotalPrice,
		At:          now,
	})
	return b, nil
}

// Start is the booked start as an instant, with the date read as UTC.
func (b *Booking) Start() time.Time {
	return b.Window.StartsAt(b.Date)
}

func (b *Booking) End() time.Time {
	return b.Start().Add(b.Window.Duration())
}

// HoldsSlot reports whether the booking still blocks its window for others.
func (b *Booking) HoldsSlot() bool {
	return b.State == StatePending || b.State == StateConfirmed
}

// BookedWindow projects the booking for the availability conflict check.
func (b *Booking) BookedWindow() availability.BookedWindow {
	return availability.BookedWindow{
		Reference: string(b.ID),
		Date:      b.Date,
		Window:    b.Window,
		Status:    string(b.State),
	}
}

func (b *Booking) Confirm(now time.Time) error {
	if b.State != StatePending {
		return ErrInvalidState
	}
	b.State = StateConfirmed
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{
		BookingID: b.ID,
		ListingID: b.ListingID,
		Date:      timeofday.FormatDate(b.Date),
		Window:    b.Window,
		Total:     b.Price.TotalPrice,
		At:        b.UpdatedAt,
	})
	return nil
}

func (b *Booking) Decline(reason string, now time.Time) error {
	if b.State != StatePending {
		return ErrInvalidState
	}
	b.State = StateDeclined
	b.UpdatedAt = now.UTC()
	b.Record(BookingDeclined{BookingID: b.ID, Reason: reason, At: b.UpdatedAt})
	return nil
}

// Cancel releases the slot and settles refund and penalty against the snapshot
// taken when the booking was requested.
func (b *Booking) Cancel(reason string, now time.Time) (money.Money, money.Money, error) {
	switch b.State {
	case StatePending, StateConfirmed:
	default:
		return money.Money{}, money.Money{}, ErrInvalidState
	}
	refund, penalty, err := b.Policy.CalculateRefund(b.Price.TotalPrice, now, b.Start())
	if err != nil {
		return money.Money{}, money.Money{}, err
	}
	b.State = StateCancelled
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, Refund: refund, Penalty: penalty, Reason: reason, At: b.UpdatedAt})
	return refund, penalty, nil
}

func (b *Booking) Complete(now time.Time) error {
	if b.State != StateConfirmed {
		return ErrInvalidState
	}
	if now.Before(b.End()) {
		return ErrNotFinished
	}
	b.State = StateCompleted
	b.UpdatedAt = now.UTC()
	b.Record(BookingCompleted{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}
