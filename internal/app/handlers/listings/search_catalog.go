package listings

import (
	"context"
	"time"

	"venuehire/internal/app/dto"
	handlersupport "venuehire/internal/app/handlers/support"
	"venuehire/internal/app/queries"
	"venuehire/internal/app/uow"
	domainlistings "venuehire/internal/domain/listings"
)

const searchCatalogKey = "listings.catalog"

// SearchCatalogQuery describes request filters.
type SearchCatalogQuery struct {
	City         string
	Country      string
	VenueTypes   []string
	MinGuests    int    `validate:"gte=0"`
	MaxRateCents int64  `validate:"gte=0"`
	Sort         string `validate:"omitempty,oneof=rate_asc rate_desc capacity_desc updated"`
	Limit        int    `validate:"gte=0,lte=60"`
	Offset       int    `validate:"gte=0"`
}

func (q SearchCatalogQuery) Key() string { return searchCatalogKey }

// SearchCatalogHandler lists active listings matching the filters.
type SearchCatalogHandler struct {
	UoWFactory uow.UoWFactory
	Clock      func() time.Time
}

func (h *SearchCatalogHandler) Handle(ctx context.Context, q SearchCatalogQuery) (dto.ListingCatalog, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	defer cleanup()

	params := domainlistings.SearchParams{
		City:         q.City,
		Country:      q.Country,
		VenueTypes:   append([]string(nil), q.VenueTypes...),
		MinGuests:    q.MinGuests,
		MaxRateCents: q.MaxRateCents,
		Sort:         domainlistings.CatalogSort(q.Sort),
		Limit:        q.Limit,
		Offset:       q.Offset,
		OnlyActive:   true,
	}.Normalized()

	result, err := unit.Listings().Search(execCtx, params)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	return mapCatalog(result, params, handlersupport.Now(h.Clock)), nil
}

func mapCatalog(result domainlistings.SearchResult, params domainlistings.SearchParams, now time.Time) dto.ListingCatalog {
	items := make([]dto.ListingCard, 0, len(result.Items))
	for _, l := range result.Items {
		items = append(items, dto.MapListingCard(l, now))
	}
	return dto.ListingCatalog{Items: items, Total: result.Total, Limit: params.Limit, Offset: params.Offset}
}

var _ queries.Handler[SearchCatalogQuery, dto.ListingCatalog] = (*SearchCatalogHandler)(nil)
