package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"venuehire/internal/app/commands"
	"venuehire/internal/app/dto"
	bookingapp "venuehire/internal/app/handlers/booking"
	meapp "venuehire/internal/app/handlers/me"
	"venuehire/internal/app/queries"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	Cancel(c *gin.Context)
	ListMine(c *gin.Context)
}

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	ListingID string `json:"listing_id"`
	Date      string `json:"date"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Guests    int    `json:"guests"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) Create(c *gin.Context) {
	guest, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Commands == nil {
		respondUnavailable(c, "commands bus")
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	c.Set(listingIDKey, strings.TrimSpace(req.ListingID))
	cmd := bookingapp.RequestBookingCommand{
		ListingID:       strings.TrimSpace(req.ListingID),
		GuestID:         guest.ID,
		Date:            strings.TrimSpace(req.Date),
		Start:           strings.TrimSpace(req.Start),
		End:             strings.TrimSpace(req.End),
		Guests:          req.Guests,
		IdempotencyKeyV: strings.TrimSpace(c.GetHeader("Idempotency-Key")),
	}
	result, err := commands.Dispatch[bookingapp.RequestBookingCommand, *dto.BookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.Header("Location", "/api/v1/bookings/"+result.BookingID)
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	guest, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Commands == nil {
		respondUnavailable(c, "commands bus")
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
	}
	cmd := bookingapp.CancelGuestBookingCommand{
		GuestID:   guest.ID,
		BookingID: strings.TrimSpace(c.Param("id")),
		Reason:    strings.TrimSpace(req.Reason),
	}
	result, err := commands.Dispatch[bookingapp.CancelGuestBookingCommand, *dto.BookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListMine(c *gin.Context) {
	guest, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Queries == nil {
		respondUnavailable(c, "queries bus")
		return
	}
	query := meapp.ListGuestBookingsQuery{GuestID: guest.ID}
	result, err := queries.Ask[meapp.ListGuestBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ BookingHTTP = BookingHandler{}
