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

const (
	listHostListingsKey = "host.listings.list"
	getListingKey       = "listings.get"
)

type ListHostListingsQuery struct {
	HostID string `validate:"required"`
	Limit  int    `validate:"gte=0,lte=60"`
	Offset int    `validate:"gte=0"`
}

func (q ListHostListingsQuery) Key() string          { return listHostListingsKey }
func (q ListHostListingsQuery) RequiredRole() string { return hostRole }

type ListHostListingsHandler struct {
	UoWFactory uow.UoWFactory
	Clock      func() time.Time
}

func (h *ListHostListingsHandler) Handle(ctx context.Context, q ListHostListingsQuery) (dto.ListingCatalog, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	defer cleanup()

	params := domainlistings.SearchParams{
		Host:   domainlistings.HostID(q.HostID),
		Sort:   domainlistings.SortByUpdated,
		Limit:  q.Limit,
		Offset: q.Offset,
	}.Normalized()
	result, err := unit.Listings().Search(execCtx, params)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	return mapCatalog(result, params, handlersupport.Now(h.Clock)), nil
}

// GetListingQuery returns a listing. Drafts and suspended listings are only
// visible to their host.
type GetListingQuery struct {
	ListingID string `validate:"required"`
	ViewerID  string
}

func (q GetListingQuery) Key() string { return getListingKey }

type GetListingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (dto.ListingView, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingView{}, err
	}
	defer cleanup()

	listing, err := unit.Listings().ByID(execCtx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.ListingView{}, err
	}
	if !listing.Bookable() && string(listing.Host) != q.ViewerID {
		return dto.ListingView{}, domainlistings.ErrNotFound
	}
	return dto.MapListingView(listing), nil
}

var (
	_ queries.Handler[ListHostListingsQuery, dto.ListingCatalog] = (*ListHostListingsHandler)(nil)
	_ queries.Handler[GetListingQuery, dto.ListingView]          = (*GetListingHandler)(nil)
)
