package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"venuehire/internal/domain/shared/money"
)

var secondsPerHour = decimal.NewFromInt(3600)

// AssembleInput carries everything the fee/tax/total stage needs. It has no
// knowledge of listings, dates or bookings.
type AssembleInput struct {
	HourlyRate     money.Money
	Duration       time.Duration
	Guests         int
	IncludedGuests int
	ExtraGuestRate money.Money
	Tier           DurationTier
	Promotions     Promotions
}

// Assemble prices a request. Every intermediate stays unrounded; base, extra
// guest, after-discount, fee and tax are each rounded half-up to cents once at
// the end. Subtotal, discount and total are derived from those rounded fields
// so the breakdown balances exactly.
func Assemble(in AssembleInput, policy Policy) PriceBreakdown {
	currency := in.HourlyRate.Currency

	booked := int64(in.Duration / time.Second)
	billable := booked - int64(in.Promotions.BonusHours)*3600
	if billable < 0 {
		billable = 0
	}

	base := in.HourlyRate.Decimal().Mul(decimal.NewFromInt(billable)).Div(secondsPerHour)
	extra := decimal.Zero
	if extraGuests := in.Guests - in.IncludedGuests; extraGuests > 0 && in.ExtraGuestRate.IsPositive() {
		extra = in.ExtraGuestRate.Decimal().Mul(decimal.NewFromInt(int64(extraGuests)))
	}
	baseR := money.FromDecimal(base, currency)
	extraR := money.FromDecimal(extra, currency)
	subtotalR := money.Money{Amount: baseR.Amount + extraR.Amount, Currency: currency}
	subtotal := base.Add(extra)

	tierPct := in.Tier.DiscountPercent
	salePct := in.Promotions.SalePercent
	tierFactor := decimal.NewFromInt(1).Sub(tierPct.Div(hundred))

	afterTier := subtotal.Mul(tierFactor)
	var afterSale decimal.Decimal
	switch policy.Stacking {
	case StackAdditive:
		combined := decimal.Min(hundred, tierPct.Add(salePct))
		afterSale = subtotal.Mul(decimal.NewFromInt(1).Sub(combined.Div(hundred)))
	default:
		afterSale = afterTier.Mul(decimal.NewFromInt(1).Sub(salePct.Div(hundred)))
	}

	fee := afterSale.Mul(policy.ServiceFeeRate)
	taxable := afterSale
	if policy.TaxBase != TaxOnSubtotal {
		taxable = afterSale.Add(fee)
	}
	tax := taxable.Mul(policy.TaxRate)

	afterSaleR := clampCents(money.FromDecimal(afterSale, currency), 0, subtotalR.Amount)
	afterTierR := clampCents(money.FromDecimal(afterTier, currency), afterSaleR.Amount, subtotalR.Amount)
	feeR := money.FromDecimal(fee, currency)
	taxR := money.FromDecimal(tax, currency)

	out := PriceBreakdown{
		Currency:        currency,
		HourlyRate:      in.HourlyRate,
		BookedSeconds:   booked,
		BillableSeconds: billable,
		BonusHours:      in.Promotions.BonusHours,
		BonusLabel:      in.Promotions.BonusLabel,
		BasePrice:       baseR,
		ExtraGuestPrice: extraR,
		Subtotal:        subtotalR,
		DiscountAmount:  money.Money{Amount: subtotalR.Amount - afterSaleR.Amount, Currency: currency},
		AfterDiscounts:  afterSaleR,
		ServiceFee:      feeR,
		Tax:             taxR,
		TotalPrice:      money.Money{Amount: afterSaleR.Amount + feeR.Amount + taxR.Amount, Currency: currency},
		TierPercent:     tierPct,
		SalePercent:     salePct,
		ServiceFeeRate:  policy.ServiceFeeRate,
		TaxRate:         policy.TaxRate,
	}
	if tierPct.IsPositive() {
		out.AppliedDiscounts = append(out.AppliedDiscounts, AppliedDiscount{
			Type:    DiscountDurationTier,
			Label:   fmt.Sprintf("%d+ hours", in.Tier.MinHours),
			Percent: tierPct,
			Amount:  money.Money{Amount: subtotalR.Amount - afterTierR.Amount, Currency: currency},
		})
	}
	if salePct.IsPositive() {
		out.AppliedDiscounts = append(out.AppliedDiscounts, AppliedDiscount{
			Type:    DiscountSale,
			Label:   in.Promotions.SaleReason,
			Percent: salePct,
			Amount:  money.Money{Amount: afterTierR.Amount - afterSaleR.Amount, Currency: currency},
		})
	}
	return out
}

func clampCents(m money.Money, lo, hi int64) money.Money {
	if m.Amount < lo {
		m.Amount = lo
	}
	if m.Amount > hi {
		m.Amount = hi
	}
	return m
}
