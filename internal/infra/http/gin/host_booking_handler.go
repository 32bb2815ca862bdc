package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"venuehire/internal/app/commands"
	"venuehire/internal/app/dto"
	bookingapp "venuehire/internal/app/handlers/booking"
	"venuehire/internal/app/queries"
)

type HostBookingHTTP interface {
	List(c *gin.Context)
	Confirm(c *gin.Context)
	Decline(c *gin.Context)
	Complete(c *gin.Context)
}

type HostBookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type declineBookingRequest struct {
	Reason string `json:"reason"`
}

func (h HostBookingHandler) List(c *gin.Context) {
	host, ok := requireRole(c, roleHost)
	if !ok {
		return
	}
	if h.Queries == nil {
		respondUnavailable(c, "queries bus")
		return
	}
	query := bookingapp.ListHostBookingsQuery{
		HostID: host.ID,
		Status: c.Query("status"),
	}
	result, err := queries.Ask[bookingapp.ListHostBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostBookingHandler) Confirm(c *gin.Context) {
	host, ok := requireRole(c, roleHost)
	if !ok {
		return
	}
	cmd := bookingapp.ConfirmHostBookingCommand{
		HostID:    host.ID,
		BookingID: strings.TrimSpace(c.Param("id")),
	}
	dispatchBooking(c, h.Commands, h.Logger, cmd)
}

func (h HostBookingHandler) Decline(c *gin.Context) {
	host, ok := requireRole(c, roleHost)
	if !ok {
		return
	}
	var req declineBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
	}
	cmd := bookingapp.DeclineHostBookingCommand{
		HostID:    host.ID,
		BookingID: strings.TrimSpace(c.Param("id")),
		Reason:    strings.TrimSpace(req.Reason),
	}
	dispatchBooking(c, h.Commands, h.Logger, cmd)
}

func (h HostBookingHandler) Complete(c *gin.Context) {
	host, ok := requireRole(c, roleHost)
	if !ok {
		return
	}
	cmd := bookingapp.CompleteHostBookingCommand{
		HostID:    host.ID,
		BookingID: strings.TrimSpace(c.Param("id")),
	}
	dispatchBooking(c, h.Commands, h.Logger, cmd)
}

func dispatchBooking[C commands.Command](c *gin.Context, bus commands.Bus, logger *slog.Logger, cmd C) {
	if bus == nil {
		respondUnavailable(c, "commands bus")
		return
	}
	result, err := commands.Dispatch[C, *dto.BookingResult](c.Request.Context(), bus, cmd)
	if err != nil {
		handleError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ HostBookingHTTP = HostBookingHandler{}
