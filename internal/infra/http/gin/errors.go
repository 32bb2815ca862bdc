package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	bookingapp "venuehire/internal/app/handlers/booking"
	"venuehire/internal/app/middleware"
	"venuehire/internal/app/uow"
	domainavailability "venuehire/internal/domain/availability"
	domainbooking "venuehire/internal/domain/booking"
	domainlistings "venuehire/internal/domain/listings"
	domainpricing "venuehire/internal/domain/pricing"
	"venuehire/internal/domain/shared/timeofday"
	"venuehire/internal/infra/validation"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// statusFor maps application errors to HTTP statuses and a stable code clients
// can branch on.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, middleware.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, middleware.ErrForbidden):
		return http.StatusForbidden, "forbidden"

	case errors.Is(err, validation.ErrInvalidInput),
		errors.Is(err, timeofday.ErrInvalidClock),
		errors.Is(err, timeofday.ErrInvalidWindow),
		errors.Is(err, timeofday.ErrInvalidDate),
		errors.Is(err, domainbooking.ErrInvalidGuests),
		errors.Is(err, domainpricing.ErrInvalidGuests),
		errors.Is(err, domainlistings.ErrTitleRequired),
		errors.Is(err, domainlistings.ErrCapacity),
		errors.Is(err, domainlistings.ErrCancellationTerms):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domainavailability.ErrInvalidWindow):
		return http.StatusBadRequest, "invalid_window"
	case errors.Is(err, domainbooking.ErrStartInPast):
		return http.StatusBadRequest, "start_in_past"

	case errors.Is(err, domainlistings.ErrNotFound),
		errors.Is(err, domainbooking.ErrBookingNotFound),
		errors.Is(err, bookingapp.ErrBookingNotOwned):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, domainavailability.ErrConflictsWithExistingBooking):
		return http.StatusConflict, "conflicts_with_existing_booking"
	case errors.Is(err, uow.ErrSlotBusy):
		return http.StatusConflict, "slot_busy"
	case errors.Is(err, domainlistings.ErrConcurrentUpdate),
		errors.Is(err, domainbooking.ErrConcurrentUpdate):
		return http.StatusConflict, "concurrent_update"
	case errors.Is(err, domainbooking.ErrInvalidState),
		errors.Is(err, domainlistings.ErrInvalidState):
		return http.StatusConflict, "invalid_state"

	case errors.Is(err, domainpricing.ErrInvalidConfiguration),
		errors.Is(err, domainlistings.ErrIncludedOverCapacity):
		return http.StatusUnprocessableEntity, "invalid_configuration"
	case errors.Is(err, domainavailability.ErrOutsideOperatingHours):
		return http.StatusUnprocessableEntity, "outside_operating_hours"
	case errors.Is(err, domainbooking.ErrOverCapacity):
		return http.StatusUnprocessableEntity, "over_capacity"
	case errors.Is(err, domainlistings.ErrNotBookable),
		errors.Is(err, domainlistings.ErrAddressRequired),
		errors.Is(err, domainbooking.ErrNotFinished):
		return http.StatusUnprocessableEntity, "not_allowed"
	}
	return http.StatusInternalServerError, ""
}

// listingIDKey names the listing a request targets when it is not a path
// parameter, e.g. the body of POST /bookings.
const listingIDKey = "listing_id"

func targetListing(c *gin.Context) string {
	if id := c.GetString(listingIDKey); id != "" {
		return id
	}
	return c.Param("id")
}

func handleError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := statusFor(err)
	if logger != nil {
		ctx := c.Request.Context()
		fields := []any{"status", status, "error", err, "path", c.FullPath()}
		if p, ok := currentPrincipal(c); ok {
			fields = append(fields, "user_id", p.ID)
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.ErrorContext(ctx, "request failed", fields...)
		case code == "invalid_configuration":
			logger.WarnContext(ctx, "listing pricing configuration rejected", append(fields, "listing_id", targetListing(c))...)
		default:
			logger.InfoContext(ctx, "request rejected", fields...)
		}
	}
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, errorBody{Error: msg, Code: code})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Code: "invalid_input"})
}

func respondUnavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, errorBody{Error: what + " unavailable"})
}
