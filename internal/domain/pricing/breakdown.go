package pricing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"venuehire/internal/domain/shared/money"
)

var (
	ErrNegativeComponent = errors.New("pricing: components cannot be negative")
	ErrCurrencyUnset     = errors.New("pricing: currency must be defined")
	ErrUnbalanced        = errors.New("pricing: breakdown does not add up")
)

// Discount types recorded in AppliedDiscounts.
const (
	DiscountDurationTier = "duration_tier"
	DiscountSale         = "sale"
)

type AppliedDiscount struct {
	Type    string          `json:"type" bson:"type"`
	Label   string          `json:"label,omitempty" bson:"label,omitempty"`
	Percent decimal.Decimal `json:"percent" bson:"percent"`
	Amount  money.Money     `json:"amount" bson:"amount"`
}

// PriceBreakdown is the engine output persisted on a booking. It is computed once
// per attempt and never edited; a re-quote builds a new one.
type PriceBreakdown struct {
	Currency        string      `json:"currency" bson:"currency"`
	HourlyRate      money.Money `json:"hourly_rate" bson:"hourly_rate"`
	BookedSeconds   int64       `json:"booked_seconds" bson:"booked_seconds"`
	BillableSeconds int64       `json:"billable_seconds" bson:"billable_seconds"`
	BonusHours      int         `json:"bonus_hours" bson:"bonus_hours"`
	BonusLabel      string      `json:"bonus_label,omitempty" bson:"bonus_label,omitempty"`

	BasePrice       money.Money `json:"base_price" bson:"base_price"`
	ExtraGuestPrice money.Money `json:"extra_guest_price" bson:"extra_guest_price"`
	Subtotal        money.Money `json:"subtotal" bson:"subtotal"`
	DiscountAmount  money.Money `json:"discount_amount" bson:"discount_amount"`
	AfterDiscounts  money.Money `json:"after_discounts" bson:"after_discounts"`
	ServiceFee      money.Money `json:"service_fee" bson:"service_fee"`
	Tax             money.Money `json:"tax" bson:"tax"`
	TotalPrice      money.Money `json:"total_price" bson:"total_price"`

	TierPercent      decimal.Decimal   `json:"tier_percent" bson:"tier_percent"`
	SalePercent      decimal.Decimal   `json:"sale_percent" bson:"sale_percent"`
	ServiceFeeRate   decimal.Decimal   `json:"service_fee_rate" bson:"service_fee_rate"`
	TaxRate          decimal.Decimal   `json:"tax_rate" bson:"tax_rate"`
	AppliedDiscounts []AppliedDiscount `json:"applied_discounts" bson:"applied_discounts"`
}

func (p PriceBreakdown) BookedDuration() time.Duration {
	return time.Duration(p.BookedSeconds) * time.Second
}

// BillableHours is the billed duration in hours, e.g. 5 or 2.5.
func (p PriceBreakdown) BillableHours() decimal.Decimal {
	return decimal.NewFromInt(p.BillableSeconds).Div(decimal.NewFromInt(3600))
}

// Validate checks sign and the two balancing identities the assembler guarantees:
// Subtotal - DiscountAmount == AfterDiscounts == TotalPrice - Tax - ServiceFee.
func (p PriceBreakdown) Validate() error {
	if p.Currency == "" {
		return ErrCurrencyUnset
	}
	for _, m := range []money.Money{p.BasePrice, p.ExtraGuestPrice, p.Subtotal, p.DiscountAmount, p.AfterDiscounts, p.ServiceFee, p.Tax, p.TotalPrice} {
		if m.Amount < 0 {
			return ErrNegativeComponent
		}
	}
	if p.Subtotal.Amount != p.BasePrice.Amount+p.ExtraGuestPrice.Amount {
		return ErrUnbalanced
	}
	if p.Subtotal.Amount-p.DiscountAmount.Amount != p.AfterDiscounts.Amount {
		return ErrUnbalanced
	}
	if p.TotalPrice.Amount-p.Tax.Amount-p.ServiceFee.Amount != p.AfterDiscounts.Amount {
		return ErrUnbalanced
	}
	var applied int64
	for _, d := range p.AppliedDiscounts {
		applied += d.Amount.Amount
	}
	if applied != p.DiscountAmount.Amount {
		return ErrUnbalanced
	}
	return nil
}

func (p PriceBreakdown) Copy() PriceBreakdown {
	clone := p
	clone.AppliedDiscounts = append([]AppliedDiscount(nil), p.AppliedDiscounts...)
	return clone
}
