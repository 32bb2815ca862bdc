package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// ResolveTier returns the tier with the largest MinHours not exceeding duration.
// Tiers sharing a threshold resolve to the larger percent. Discounts do not
// accumulate across tiers. The boolean is false when no tier qualifies.
func ResolveTier(tiers []DurationTier, duration time.Duration) (DurationTier, bool) {
	var (
		best  DurationTier
		found bool
	)
	for _, tier := range tiers {
		if time.Duration(tier.MinHours)*time.Hour > duration {
			continue
		}
		switch {
		case !found,
			tier.MinHours > best.MinHours,
			tier.MinHours == best.MinHours && tier.DiscountPercent.GreaterThan(best.DiscountPercent):
			best, found = tier, true
		}
	}
	return best, found
}

// TierPercent is ResolveTier reduced to the percentage, 0 when nothing qualifies.
func TierPercent(tiers []DurationTier, duration time.Duration) decimal.Decimal {
	tier, ok := ResolveTier(tiers, duration)
	if !ok {
		return decimal.Zero
	}
	return tier.DiscountPercent
}
