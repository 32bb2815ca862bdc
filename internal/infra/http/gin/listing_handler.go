package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"venuehire/internal/app/dto"
	listingapp "venuehire/internal/app/handlers/listings"
	"venuehire/internal/app/queries"
)

type ListingHTTP interface {
	Catalog(c *gin.Context)
	Get(c *gin.Context)
}

// ListingHandler wires listing queries to HTTP.
type ListingHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

// Catalog responds with a filtered collection of active listings.
func (h ListingHandler) Catalog(c *gin.Context) {
	if h.Queries == nil {
		respondUnavailable(c, "queries bus")
		return
	}
	query := listingapp.SearchCatalogQuery{
		City:         c.Query("city"),
		Country:      c.Query("country"),
		VenueTypes:   splitCSV(c.Query("venue_types")),
		MinGuests:    parseInt(c.Query("min_guests")),
		MaxRateCents: parseInt64(c.Query("max_rate_cents")),
		Sort:         c.Query("sort"),
		Limit:        parseIntWithDefault(c.Query("limit"), 24),
		Offset:       parseInt(c.Query("offset")),
	}
	result, err := queries.Ask[listingapp.SearchCatalogQuery, dto.ListingCatalog](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Get(c *gin.Context) {
	if h.Queries == nil {
		respondUnavailable(c, "queries bus")
		return
	}
	query := listingapp.GetListingQuery{ListingID: strings.TrimSpace(c.Param("id"))}
	if p, ok := currentPrincipal(c); ok {
		query.ViewerID = p.ID
	}
	result, err := queries.Ask[listingapp.GetListingQuery, dto.ListingView](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ListingHTTP = ListingHandler{}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseInt(raw string) int {
	value, _ := strconv.Atoi(strings.TrimSpace(raw))
	if value < 0 {
		return 0
	}
	return value
}

func parseIntWithDefault(raw string, fallback int) int {
	value := parseInt(raw)
	if value == 0 {
		return fallback
	}
	return value
}

func parseInt64(raw string) int64 {
	value, _ := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if value < 0 {
		return 0
	}
	return value
}
