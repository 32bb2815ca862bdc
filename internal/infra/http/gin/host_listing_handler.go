package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"venuehire/internal/app/commands"
	"venuehire/internal/app/dto"
	listingapp "venuehire/internal/app/handlers/listings"
	"venuehire/internal/app/queries"
	domainlistings "venuehire/internal/domain/listings"
	domainpricing "venuehire/internal/domain/pricing"
)

type HostListingHTTP interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	UpdatePricing(c *gin.Context)
	Publish(c *gin.Context)
	Unpublish(c *gin.Context)
}

type HostListingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type hostListingRequest struct {
	Title        string                           `json:"title"`
	Description  string                           `json:"description"`
	VenueType    string                           `json:"venue_type"`
	Address      domainlistings.Address           `json:"address"`
	Amenities    []string                         `json:"amenities"`
	Capacity     int                              `json:"capacity"`
	Cancellation domainlistings.CancellationTerms `json:"cancellation"`
}

func (r hostListingRequest) payload() listingapp.HostListingPayload {
	return listingapp.HostListingPayload{
		Title:        strings.TrimSpace(r.Title),
		Description:  strings.TrimSpace(r.Description),
		VenueType:    strings.TrimSpace(r.VenueType),
		Address:      r.Address,
		Amenities:    r.Amenities,
		Capacity:     r.Capacity,
		Cancellation: r.Cancellation,
	}
}

type createHostListingRequest struct {
	hostListingRequest
	Pricing domainpricing.Config `json:"pricing"`
}

type unpublishRequest struct {
	Reason string `json:"reason"`
}

func (h HostListingHandler) List(c *gin.Context) {
	host, ok := requireRole(c, roleHost)
	if !ok {
		return
	}
	if h.Queries == nil {
		respondUnavailable(c, "queries bus")
		return
	}
	query := listingapp.ListHostListingsQuery{
		HostID: host.ID,
		Limit:  parseIntWithDefault(c.Query("limit"), 24),
		Offset: parseInt(c.Query("offset")),
	}
	result, err := queries.Ask[listingapp.ListHostListingsQuery, dto.ListingCatalog](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostListingHandler) Create(c *gin.Context) {
	host, ok := requireRole(c, roleHost)
	if !ok {
		return
	}
	if h.Commands == nil {
		respondUnavailable(c, "commands bus")
		return
	}
	var req createHostListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	cmd := listingapp.CreateHostListingCommand{
		HostID:          host.ID,
		Payload:         req.payload(),
		Pricing:         req.Pricing,
		IdempotencyKeyV: strings.TrimSpace(c.GetHeader("Idempotency-Key")),
	}
	result, err := commands.Dispatch[listingapp.CreateHostListingCommand, *dto.ListingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Get returns the listing as its host sees it, drafts included.
func (h HostListingHandler) Get(c *gin.Context) {
	host, ok := requireRole(c, roleHost)
	if !ok {
		return
	}
	if h.Queries == nil {
		respondUnavailable(c, "queries bus")
		return
	}
	query := listingapp.GetListingQuery{
		ListingID: strings.TrimSpace(c.Param("id")),
		ViewerID:  host.ID,
	}
	result, err := queries.Ask[listingapp.GetListingQuery, dto.ListingView](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostListingHandler) Update(c *gin.Context) {
	host, ok := requireRole(c, roleHost)
	if !ok {
		return
	}
	var req hostListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	dispatchListing(c, h.Commands, h.Logger, listingapp.UpdateHostListingCommand{
		HostID:    host.ID,
		ListingID: strings.TrimSpace(c.Param("id")),
		Payload:   req.payload(),
	})
}

func (h HostListingHandler) UpdatePricing(c *gin.Context) {
	host, ok := requireRole(c, roleHost)
	if !ok {
		return
	}
	var cfg domainpricing.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		respondBadRequest(c, err)
		return
	}
	dispatchListing(c, h.Commands, h.Logger, listingapp.UpdateHostListingPricingCommand{
		HostID:    host.ID,
		ListingID: strings.TrimSpace(c.Param("id")),
		Pricing:   cfg,
	})
}

func (h HostListingHandler) Publish(c *gin.Context) {
	host, ok := requireRole(c, roleHost)
	if !ok {
		return
	}
	dispatchListing(c, h.Commands, h.Logger, listingapp.PublishHostListingCommand{
		HostID:    host.ID,
		ListingID: strings.TrimSpace(c.Param("id")),
	})
}

func (h HostListingHandler) Unpublish(c *gin.Context) {
	host, ok := requireRole(c, roleHost)
	if !ok {
		return
	}
	var req unpublishRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
	}
	dispatchListing(c, h.Commands, h.Logger, listingapp.UnpublishHostListingCommand{
		HostID:    host.ID,
		ListingID: strings.TrimSpace(c.Param("id")),
		Reason:    strings.TrimSpace(req.Reason),
	})
}

func dispatchListing[C commands.Command](c *gin.Context, bus commands.Bus, logger *slog.Logger, cmd C) {
	if bus == nil {
		respondUnavailable(c, "commands bus")
		return
	}
	result, err := commands.Dispatch[C, *dto.ListingResult](c.Request.Context(), bus, cmd)
	if err != nil {
		handleError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ HostListingHTTP = HostListingHandler{}
