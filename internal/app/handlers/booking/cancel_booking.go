package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"venuehire/internal/app/commands"
	"venuehire/internal/app/dto"
	handlersupport "venuehire/internal/app/handlers/support"
	"venuehire/internal/app/outbox"
	"venuehire/internal/app/uow"
	domainbooking "venuehire/internal/domain/booking"
)

const cancelGuestBookingKey = "booking.cancel"

type CancelGuestBookingCommand struct {
	GuestID   string `validate:"required"`
	BookingID string `validate:"required"`
	Reason    string `validate:"max=500"`
}

func (c CancelGuestBookingCommand) Key() string { return cancelGuestBookingKey }

// CancelGuestBookingHandler releases the slot and settles the refund against
// the cancellation terms captured at request time.
type CancelGuestBookingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
	Logger     *slog.Logger
}

func (h *CancelGuestBookingHandler) Handle(ctx context.Context, cmd CancelGuestBookingCommand) (*dto.BookingResult, error) {
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		reason = "guest-cancelled"
	}
	var result *dto.BookingResult
	err := handlersupport.WithUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		booking, err := unit.Booking().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
		if err != nil {
			return err
		}
		if booking.GuestID != cmd.GuestID {
			return ErrBookingNotOwned
		}
		refund, penalty, err := booking.Cancel(reason, handlersupport.Now(h.Clock))
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
		refundDTO, penaltyDTO := dto.MapMoney(refund), dto.MapMoney(penalty)
		result.Refund, result.Penalty = &refundDTO, &penaltyDTO
		return nil
	})
	if err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "booking cancelled", "booking_id", cmd.BookingID, "refund", result.Refund.Amount, "penalty", result.Penalty.Amount)
	}
	return result, nil
}

var _ commands.Handler[CancelGuestBookingCommand, *dto.BookingResult] = (*CancelGuestBookingHandler)(nil)
