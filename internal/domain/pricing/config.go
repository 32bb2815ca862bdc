package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"venuehire/internal/domain/availability"
	"venuehire/internal/domain/shared/money"
)

var ErrInvalidConfiguration = errors.New("pricing: invalid listing configuration")

var hundred = decimal.NewFromInt(100)

// DurationTier grants DiscountPercent off when the booked duration reaches MinHours.
type DurationTier struct {
	MinHours        int             `json:"min_hours" yaml:"min_hours" bson:"min_hours"`
	DiscountPercent decimal.Decimal `json:"discount_percent" yaml:"discount_percent" bson:"discount_percent"`
}

// BonusHoursOffer grants BonusHours free of charge once MinHours are booked.
type BonusHoursOffer struct {
	MinHours   int    `json:"min_hours" yaml:"min_hours" bson:"min_hours"`
	BonusHours int    `json:"bonus_hours" yaml:"bonus_hours" bson:"bonus_hours"`
	Label      string `json:"label" yaml:"label" bson:"label"`
}

// Sale is a time-boxed percentage markdown, active on [From, Until] inclusive.
type Sale struct {
	Percent decimal.Decimal `json:"percent" yaml:"percent" bson:"percent"`
	From    time.Time       `json:"from" yaml:"from" bson:"from"`
	Until   time.Time       `json:"until" yaml:"until" bson:"until"`
	Reason  string          `json:"reason" yaml:"reason" bson:"reason"`
}

// ActiveAt reports whether the sale applies at now. A sale with a missing bound
// is never active.
func (s *Sale) ActiveAt(now time.Time) bool {
	if s == nil || !s.Percent.IsPositive() {
		return false
	}
	if s.From.IsZero() || s.Until.IsZero() {
		return false
	}
	return !now.Before(s.From) && !now.After(s.Until)
}

// NextChange returns the first instant after now at which ActiveAt flips, so
// a price quoted at now stays valid until then.
func (s *Sale) NextChange(now time.Time) (time.Time, bool) {
	if s == nil || !s.Percent.IsPositive() || s.From.IsZero() || s.Until.IsZero() {
		return time.Time{}, false
	}
	switch {
	case now.Before(s.From):
		return s.From, true
	case !now.After(s.Until):
		return s.Until.Add(time.Nanosecond), true
	}
	return time.Time{}, false
}

// Config is the pricing configuration a listing owns. The engine only reads it.
type Config struct {
	HourlyRate        money.Money                 `json:"hourly_rate" bson:"hourly_rate"`
	MinHours          int                         `json:"min_hours" bson:"min_hours"`
	MaxHours          int                         `json:"max_hours" bson:"max_hours"`
	IncludedGuests    int                         `json:"included_guests" bson:"included_guests"`
	ExtraGuestRate    money.Money                 `json:"extra_guest_rate" bson:"extra_guest_rate"`
	DurationDiscounts []DurationTier              `json:"duration_discounts,omitempty" bson:"duration_discounts,omitempty"`
	BonusHours        *BonusHoursOffer            `json:"bonus_hours_offer,omitempty" bson:"bonus_hours_offer,omitempty"`
	Sale              *Sale                       `json:"sale,omitempty" bson:"sale,omitempty"`
	OperatingHours    availability.OperatingHours `json:"operating_hours,omitempty" bson:"operating_hours,omitempty"`
}

func (c Config) Bounds() availability.DurationBounds {
	return availability.DurationBounds{MinHours: c.MinHours, MaxHours: c.MaxHours}
}

// Validate enforces the configuration invariants; every failure wraps
// ErrInvalidConfiguration.
func (c Config) Validate() error {
	if !c.HourlyRate.IsPositive() {
		return fmt.Errorf("%w: hourly rate must be positive", ErrInvalidConfiguration)
	}
	if len(strings.TrimSpace(c.HourlyRate.Currency)) != 3 {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, money.ErrInvalidCurrency)
	}
	if c.ExtraGuestRate.Amount < 0 {
		return fmt.Errorf("%w: extra guest rate must be non-negative", ErrInvalidConfiguration)
	}
	if c.ExtraGuestRate.IsPositive() && c.ExtraGuestRate.Currency != c.HourlyRate.Currency {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, money.ErrCurrencyMismatch)
	}
	if c.MinHours < 0 || c.MaxHours <= 0 {
		return fmt.Errorf("%w: hour bounds must be positive", ErrInvalidConfiguration)
	}
	if c.MinHours > c.MaxHours {
		return fmt.Errorf("%w: min hours %d exceed max hours %d", ErrInvalidConfiguration, c.MinHours, c.MaxHours)
	}
	if c.IncludedGuests < 0 {
		return fmt.Errorf("%w: included guests must be non-negative", ErrInvalidConfiguration)
	}
	if err := validateTiers(c.DurationDiscounts); err != nil {
		return err
	}
	if b := c.BonusHours; b != nil {
		if b.MinHours <= 0 || b.BonusHours <= 0 {
			return fmt.Errorf("%w: bonus hours offer needs positive min and bonus hours", ErrInvalidConfiguration)
		}
	}
	if s := c.Sale; s != nil {
		if s.Percent.IsNegative() || s.Percent.GreaterThan(hundred) {
			return fmt.Errorf("%w: sale percent must be within 0-100", ErrInvalidConfiguration)
		}
		if !s.From.IsZero() && !s.Until.IsZero() && s.Until.Before(s.From) {
			return fmt.Errorf("%w: sale ends before it starts", ErrInvalidConfiguration)
		}
	}
	if err := c.OperatingHours.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return nil
}

// validateTiers requires percentages to strictly increase with the tier threshold.
// Tiers sharing a threshold are tolerated; the resolver picks the larger one.
func validateTiers(tiers []DurationTier) error {
	sorted := append([]DurationTier(nil), tiers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinHours < sorted[j].MinHours
	})
	// best is the largest percent among tiers with a strictly lower threshold.
	best := decimal.Zero
	groupHours, groupBest := 0, decimal.Zero
	for _, tier := range sorted {
		if tier.MinHours <= 0 {
			return fmt.Errorf("%w: duration tier needs positive min hours", ErrInvalidConfiguration)
		}
		if !tier.DiscountPercent.IsPositive() || tier.DiscountPercent.GreaterThan(hundred) {
			return fmt.Errorf("%w: duration tier %dh percent must be within (0, 100]", ErrInvalidConfiguration, tier.MinHours)
		}
		if tier.MinHours != groupHours {
			best = decimal.Max(best, groupBest)
			groupHours, groupBest = tier.MinHours, decimal.Zero
		}
		if !tier.DiscountPercent.GreaterThan(best) {
			return fmt.Errorf("%w: duration tier %dh must discount more than shorter tiers", ErrInvalidConfiguration, tier.MinHours)
		}
		groupBest = decimal.Max(groupBest, tier.DiscountPercent)
	}
	return nil
}

// Copy returns a deep copy so callers can hand the config out without aliasing.
func (c Config) Copy() Config {
	clone := c
	clone.DurationDiscounts = append([]DurationTier(nil), c.DurationDiscounts...)
	if c.BonusHours != nil {
		b := *c.BonusHours
		clone.BonusHours = &b
	}
	if c.Sale != nil {
		s := *c.Sale
		clone.Sale = &s
	}
	clone.OperatingHours = c.OperatingHours.Copy()
	return clone
}
