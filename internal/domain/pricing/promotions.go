package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Promotions are the duration-independent adjustments in force for a request.
type Promotions struct {
	BonusHours  int
	BonusLabel  string
	SalePercent decimal.Decimal
	SaleReason  string
}

// ResolvePromotions grants bonus hours when the booked duration reaches the offer
// threshold and applies the sale only while now is inside its window.
func ResolvePromotions(offer *BonusHoursOffer, sale *Sale, duration time.Duration, now time.Time) Promotions {
	promo := Promotions{SalePercent: decimal.Zero}
	if offer != nil && offer.BonusHours > 0 && duration >= time.Duration(offer.MinHours)*time.Hour {
		promo.BonusHours = offer.BonusHours
		promo.BonusLabel = offer.Label
	}
	if sale.ActiveAt(now) {
		promo.SalePercent = sale.Percent
		promo.SaleReason = sale.Reason
	}
	return promo
}
