package quotes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"venuehire/internal/app/dto"
	handlersupport "venuehire/internal/app/handlers/support"
	"venuehire/internal/app/middleware"
	"venuehire/internal/app/policies"
	"venuehire/internal/app/queries"
	"venuehire/internal/app/uow"
	domainlistings "venuehire/internal/domain/listings"
	"venuehire/internal/domain/shared/timeofday"
)

const getQuoteKey = "quotes.get"

// GetQuoteQuery prices a prospective booking without reserving anything.
type GetQuoteQuery struct {
	ListingID string `validate:"required"`
	Date      string `validate:"required,datetime=2006-01-02"`
	Start     string `validate:"required"`
	End       string `validate:"required"`
	Guests    int    `validate:"gte=1"`
}

func (q GetQuoteQuery) Key() string { return getQuoteKey }

func (q GetQuoteQuery) CacheScope() string { return middleware.ListingScope(q.ListingID) }

func (q GetQuoteQuery) CacheKey() string {
	return fmt.Sprintf("%s:%s-%s:%d", q.Date, q.Start, q.End, q.Guests)
}

func (q GetQuoteQuery) ResultPrototype() any { return &dto.Quote{} }

type GetQuoteHandler struct {
	UoWFactory uow.UoWFactory
	Pricing    policies.PricingPort
	Clock      func() time.Time
	Logger     *slog.Logger
}

func (h *GetQuoteHandler) Handle(ctx context.Context, q GetQuoteQuery) (*dto.Quote, error) {
	date, err := timeofday.ParseDate(q.Date)
	if err != nil {
		return nil, err
	}
	window, err := timeofday.ParseWindow(q.Start, q.End)
	if err != nil {
		return nil, err
	}

	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	listing, err := unit.Listings().ByID(execCtx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return nil, err
	}
	if !listing.Bookable() {
		return nil, domainlistings.ErrNotBookable
	}
	existing, err := handlersupport.BookedWindows(execCtx, unit.Booking(), listing.ID, date)
	if err != nil {
		return nil, err
	}

	now := handlersupport.Now(h.Clock)
	breakdown, err := h.Pricing.Quote(execCtx, policies.QuoteInput{
		Listing:  listing,
		Date:     date,
		Window:   window,
		Guests:   q.Guests,
		Existing: existing,
		Now:      now,
	})
	if err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.DebugContext(ctx, "quote computed", "listing_id", listing.ID, "date", q.Date, "window", window.String(), "total", breakdown.TotalPrice.String())
	}
	out := &dto.Quote{
		ListingID: string(listing.ID),
		Date:      timeofday.FormatDate(date),
		Window:    dto.MapWindow(window),
		Guests:    q.Guests,
		Breakdown: breakdown,
	}
	if edge, ok := listing.Pricing.Sale.NextChange(now); ok {
		out.ValidUntil = &edge
	}
	return out, nil
}

var _ queries.Handler[GetQuoteQuery, *dto.Quote] = (*GetQuoteHandler)(nil)
var _ middleware.CacheableQuery = GetQuoteQuery{}
