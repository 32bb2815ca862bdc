package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidPolicy = errors.New("pricing: invalid fee/tax policy")

// TaxBase selects what the tax rate is applied to.
type TaxBase string

const (
	// TaxOnSubtotalAndFee taxes the discounted rental plus the service fee.
	TaxOnSubtotalAndFee TaxBase = "subtotal_and_fee"
	// TaxOnSubtotal taxes the discounted rental only.
	TaxOnSubtotal TaxBase = "subtotal"
)

// Stacking selects how the tier and sale percentages combine.
type Stacking string

const (
	// StackSequential applies the tier discount, then the sale on what remains.
	StackSequential Stacking = "sequential"
	// StackAdditive sums both percentages (capped at 100) and applies them once.
	StackAdditive Stacking = "additive"
)

// Policy holds the marketplace-wide fee and tax settings.
type Policy struct {
	ServiceFeeRate decimal.Decimal
	TaxRate        decimal.Decimal
	TaxBase        TaxBase
	Stacking       Stacking
}

func DefaultPolicy() Policy {
	return Policy{
		ServiceFeeRate: decimal.RequireFromString("0.10"),
		TaxRate:        decimal.RequireFromString("0.0881"),
		TaxBase:        TaxOnSubtotalAndFee,
		Stacking:       StackSequential,
	}
}

func (p Policy) Validate() error {
	one := decimal.NewFromInt(1)
	if p.ServiceFeeRate.IsNegative() || p.ServiceFeeRate.GreaterThan(one) {
		return fmt.Errorf("%w: service fee rate %s must be within 0-1", ErrInvalidPolicy, p.ServiceFeeRate)
	}
	if p.TaxRate.IsNegative() || p.TaxRate.GreaterThan(one) {
		return fmt.Errorf("%w: tax rate %s must be within 0-1", ErrInvalidPolicy, p.TaxRate)
	}
	switch p.TaxBase {
	case TaxOnSubtotalAndFee, TaxOnSubtotal:
	default:
		return fmt.Errorf("%w: unknown tax base %q", ErrInvalidPolicy, p.TaxBase)
	}
	switch p.Stacking {
	case StackSequential, StackAdditive:
	default:
		return fmt.Errorf("%w: unknown stacking %q", ErrInvalidPolicy, p.Stacking)
	}
	return nil
}
