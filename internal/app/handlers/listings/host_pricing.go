package listings

import (
	"context"
	"time"

	"venuehire/internal/app/commands"
	"venuehire/internal/app/dto"
	domainlistings "venuehire/internal/domain/listings"
	domainpricing "venuehire/internal/domain/pricing"
)

const updateHostListingPricingKey = "host.listings.pricing"

// UpdateHostListingPricingCommand replaces the whole pricing configuration.
// An invalid configuration is rejected and the stored one stays in force.
type UpdateHostListingPricingCommand struct {
	HostID    string               `validate:"required"`
	ListingID string               `validate:"required"`
	Pricing   domainpricing.Config `validate:"-"`
}

func (c UpdateHostListingPricingCommand) Key() string          { return updateHostListingPricingKey }
func (c UpdateHostListingPricingCommand) RequiredRole() string { return hostRole }

func (h *HostListingHandler) UpdatePricing(ctx context.Context, cmd UpdateHostListingPricingCommand) (*dto.ListingResult, error) {
	return h.mutate(ctx, cmd.HostID, cmd.ListingID, "host listing pricing updated", func(l *domainlistings.Listing, now time.Time) error {
		return l.UpdatePricing(cmd.Pricing, now)
	})
}

var _ commands.HandlerFunc[UpdateHostListingPricingCommand, *dto.ListingResult] = (*HostListingHandler)(nil).UpdatePricing
