package pricing

import (
	"errors"
	"fmt"
	"time"

	"venuehire/internal/domain/availability"
	"venuehire/internal/domain/shared/timeofday"
)

var ErrInvalidGuests = errors.New("pricing: at least one guest is required")

// QuoteRequest is a booking attempt as the engine sees it. Now is injected so
// quoting never reads the system clock.
type QuoteRequest struct {
	Config   Config
	Date     time.Time
	Window   timeofday.Window
	Guests   int
	Existing []availability.BookedWindow
	Now      time.Time
}

// Engine quotes booking requests under a fixed fee/tax policy. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	policy Policy
}

func NewEngine(policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Engine{policy: policy}, nil
}

func (e *Engine) Policy() Policy {
	return e.policy
}

// Quote validates the request and prices it. The result is deterministic for
// identical input.
func (e *Engine) Quote(req QuoteRequest) (PriceBreakdown, error) {
	if err := req.Config.Validate(); err != nil {
		return PriceBreakdown{}, err
	}
	if req.Guests < 1 {
		return PriceBreakdown{}, fmt.Errorf("%w: got %d", ErrInvalidGuests, req.Guests)
	}
	if err := availability.Validate(req.Config.OperatingHours, req.Date, req.Window, req.Config.Bounds(), req.Existing); err != nil {
		return PriceBreakdown{}, err
	}
	duration := req.Window.Duration()
	tier, _ := ResolveTier(req.Config.DurationDiscounts, duration)
	promo := ResolvePromotions(req.Config.BonusHours, req.Config.Sale, duration, req.Now)
	return Assemble(AssembleInput{
		HourlyRate:     req.Config.HourlyRate,
		Duration:       duration,
		Guests:         req.Guests,
		IncludedGuests: req.Config.IncludedGuests,
		ExtraGuestRate: req.Config.ExtraGuestRate,
		Tier:           tier,
		Promotions:     promo,
	}, e.policy), nil
}
