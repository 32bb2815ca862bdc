package policies

import (
	"context"
	"time"

	domainavailability "venuehire/internal/domain/availability"
	domainlistings "venuehire/internal/domain/listings"
	domainpricing "venuehire/internal/domain/pricing"
	"venuehire/internal/domain/shared/timeofday"
)

// QuoteInput is one booking attempt against a loaded listing.
type QuoteInput struct {
	Listing  *domainlistings.Listing
	Date     time.Time
	Window   timeofday.Window
	Guests   int
	Existing []domainavailability.BookedWindow
	Now      time.Time
}

type PricingPort interface {
	Quote(ctx context.Context, in QuoteInput) (domainpricing.PriceBreakdown, error)
}
