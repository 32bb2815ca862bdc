package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"venuehire/internal/app/dto"
	availabilityapp "venuehire/internal/app/handlers/availability"
	quotesapp "venuehire/internal/app/handlers/quotes"
	"venuehire/internal/app/queries"
)

type QuoteHTTP interface {
	Quote(c *gin.Context)
	Schedule(c *gin.Context)
}

// QuoteHandler serves price quotes and day schedules. Neither needs a caller
// identity.
type QuoteHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

type quoteRequest struct {
	Date   string `json:"date"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Guests int    `json:"guests"`
}

func (h QuoteHandler) Quote(c *gin.Context) {
	if h.Queries == nil {
		respondUnavailable(c, "queries bus")
		return
	}
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	query := quotesapp.GetQuoteQuery{
		ListingID: strings.TrimSpace(c.Param("id")),
		Date:      strings.TrimSpace(req.Date),
		Start:     strings.TrimSpace(req.Start),
		End:       strings.TrimSpace(req.End),
		Guests:    req.Guests,
	}
	result, err := queries.Ask[quotesapp.GetQuoteQuery, *dto.Quote](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h QuoteHandler) Schedule(c *gin.Context) {
	if h.Queries == nil {
		respondUnavailable(c, "queries bus")
		return
	}
	query := availabilityapp.GetDayScheduleQuery{
		ListingID: strings.TrimSpace(c.Param("id")),
		Date:      strings.TrimSpace(c.Query("date")),
	}
	result, err := queries.Ask[availabilityapp.GetDayScheduleQuery, *dto.DaySchedule](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ QuoteHTTP = QuoteHandler{}
