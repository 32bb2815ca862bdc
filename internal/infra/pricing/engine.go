package pricing

import (
	"context"
	"errors"
	"log/slog"

	"venuehire/internal/app/policies"
	domainpricing "venuehire/internal/domain/pricing"
)

// EnginePort serves policies.PricingPort with the in-process quote engine.
type EnginePort struct {
	Engine *domainpricing.Engine
	Logger *slog.Logger
}

func NewEnginePort(policy domainpricing.Policy, logger *slog.Logger) (*EnginePort, error) {
	engine, err := domainpricing.NewEngine(policy)
	if err != nil {
		return nil, err
	}
	return &EnginePort{Engine: engine, Logger: logger}, nil
}

func (p *EnginePort) Quote(ctx context.Context, in policies.QuoteInput) (domainpricing.PriceBreakdown, error) {
	breakdown, err := p.Engine.Quote(domainpricing.QuoteRequest{
		Config:   in.Listing.Pricing,
		Date:     in.Date,
		Window:   in.Window,
		Guests:   in.Guests,
		Existing: in.Existing,
		Now:      in.Now,
	})
	if err != nil {
		// A stored listing that fails validation is a data fault, not a bad request.
		if errors.Is(err, domainpricing.ErrInvalidConfiguration) && p.Logger != nil {
			p.Logger.ErrorContext(ctx, "listing pricing configuration invalid", "listing_id", in.Listing.ID, "error", err)
		}
		return domainpricing.PriceBreakdown{}, err
	}
	return breakdown, nil
}

var _ policies.PricingPort = (*EnginePort)(nil)
