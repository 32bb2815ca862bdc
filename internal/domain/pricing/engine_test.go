package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuehire/internal/domain/availability"
	"venuehire/internal/domain/shared/money"
	"venuehire/internal/domain/shared/timeofday"
)

// 2025-03-10 is a Monday.
var (
	monday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	now    = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
)

func pct(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func usd(cents int64) money.Money {
	return money.Must(cents, "USD")
}

func window(start, end string) timeofday.Window {
	return timeofday.Window{Start: timeofday.MustParseClock(start), End: timeofday.MustParseClock(end)}
}

func baseConfig() Config {
	return Config{
		HourlyRate:     usd(5000),
		MinHours:       2,
		MaxHours:       12,
		IncludedGuests: 10,
		OperatingHours: availability.OperatingHours{
			"monday": {Start: timeofday.At(8, 0), End: timeofday.At(22, 0)},
		},
	}
}

func newEngine(t *testing.T, policy Policy) *Engine {
	t.Helper()
	engine, err := NewEngine(policy)
	require.NoError(t, err)
	return engine
}

func TestQuoteSeedListingExpiredSale(t *testing.T) {
	cfg := baseConfig()
	cfg.HourlyRate = usd(5400)
	cfg.Sale = &Sale{
		Percent: pct("1"),
		From:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Until:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Reason:  "winter",
	}
	req := QuoteRequest{Config: cfg, Date: monday, Window: window("10:00", "14:00"), Guests: 1, Now: now}

	t.Run("tax on subtotal and fee", func(t *testing.T) {
		quote, err := newEngine(t, DefaultPolicy()).Quote(req)
		require.NoError(t, err)

		assert.Equal(t, int64(21600), quote.BasePrice.Amount)
		assert.Equal(t, int64(0), quote.DiscountAmount.Amount)
		assert.Equal(t, int64(2160), quote.ServiceFee.Amount)
		assert.Equal(t, int64(2093), quote.Tax.Amount)
		assert.Equal(t, int64(25853), quote.TotalPrice.Amount)
		assert.Empty(t, quote.AppliedDiscounts)
		assert.True(t, quote.SalePercent.IsZero())
	})

	t.Run("tax on subtotal only", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.TaxBase = TaxOnSubtotal
		policy.TaxRate = pct("0.088")
		quote, err := newEngine(t, policy).Quote(req)
		require.NoError(t, err)

		assert.Equal(t, int64(1901), quote.Tax.Amount)
		assert.Equal(t, int64(25661), quote.TotalPrice.Amount)
		assert.Equal(t, "256.61 USD", quote.TotalPrice.String())
	})
}

func TestQuoteBonusHoursReduceBilledDuration(t *testing.T) {
	cfg := baseConfig()
	cfg.BonusHours = &BonusHoursOffer{MinHours: 6, BonusHours: 1, Label: "Book 6+ hours, get 1 hour FREE"}

	quote, err := newEngine(t, DefaultPolicy()).Quote(QuoteRequest{
		Config: cfg, Date: monday, Window: window("10:00", "16:00"), Guests: 2, Now: now,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(6*3600), quote.BookedSeconds)
	assert.Equal(t, int64(5*3600), quote.BillableSeconds)
	assert.True(t, quote.BillableHours().Equal(decimal.NewFromInt(5)))
	assert.Equal(t, int64(25000), quote.BasePrice.Amount)
	assert.Equal(t, 1, quote.BonusHours)
	assert.Equal(t, "Book 6+ hours, get 1 hour FREE", quote.BonusLabel)
}

func TestQuoteBonusNotGrantedBelowThreshold(t *testing.T) {
	cfg := baseConfig()
	cfg.BonusHours = &BonusHoursOffer{MinHours: 6, BonusHours: 1}

	quote, err := newEngine(t, DefaultPolicy()).Quote(QuoteRequest{
		Config: cfg, Date: monday, Window: window("10:00", "15:59"), Guests: 2, Now: now,
	})
	require.NoError(t, err)
	assert.Zero(t, quote.BonusHours)
	assert.Equal(t, quote.BookedSeconds, quote.BillableSeconds)
}

func TestQuoteTierAndSaleStacking(t *testing.T) {
	cfg := baseConfig()
	cfg.DurationDiscounts = []DurationTier{
		{MinHours: 4, DiscountPercent: pct("8")},
		{MinHours: 6, DiscountPercent: pct("13")},
	}
	cfg.Sale = &Sale{
		Percent: pct("10"),
		From:    now.Add(-time.Hour),
		Until:   now.Add(time.Hour),
		Reason:  "spring sale",
	}
	req := QuoteRequest{Config: cfg, Date: monday, Window: window("10:00", "16:00"), Guests: 1, Now: now}

	t.Run("sequential", func(t *testing.T) {
		quote, err := newEngine(t, DefaultPolicy()).Quote(req)
		require.NoError(t, err)

		assert.Equal(t, int64(30000), quote.Subtotal.Amount)
		assert.Equal(t, int64(23490), quote.AfterDiscounts.Amount)
		assert.Equal(t, int64(6510), quote.DiscountAmount.Amount)
		require.Len(t, quote.AppliedDiscounts, 2)
		assert.Equal(t, DiscountDurationTier, quote.AppliedDiscounts[0].Type)
		assert.Equal(t, int64(3900), quote.AppliedDiscounts[0].Amount.Amount)
		assert.Equal(t, "6+ hours", quote.AppliedDiscounts[0].Label)
		assert.Equal(t, DiscountSale, quote.AppliedDiscounts[1].Type)
		assert.Equal(t, int64(2610), quote.AppliedDiscounts[1].Amount.Amount)
		assert.Equal(t, "spring sale", quote.AppliedDiscounts[1].Label)
		require.NoError(t, quote.Validate())
	})

	t.Run("additive", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.Stacking = StackAdditive
		quote, err := newEngine(t, policy).Quote(req)
		require.NoError(t, err)

		assert.Equal(t, int64(23100), quote.AfterDiscounts.Amount)
		assert.Equal(t, int64(6900), quote.DiscountAmount.Amount)
		require.Len(t, quote.AppliedDiscounts, 2)
		assert.Equal(t, int64(3900), quote.AppliedDiscounts[0].Amount.Amount)
		assert.Equal(t, int64(3000), quote.AppliedDiscounts[1].Amount.Amount)
		require.NoError(t, quote.Validate())
	})
}

func TestQuoteTierOnlyTotals(t *testing.T) {
	cfg := baseConfig()
	cfg.DurationDiscounts = []DurationTier{{MinHours: 6, DiscountPercent: pct("13")}}

	quote, err := newEngine(t, DefaultPolicy()).Quote(QuoteRequest{
		Config: cfg, Date: monday, Window: window("10:00", "16:00"), Guests: 1, Now: now,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(26100), quote.AfterDiscounts.Amount)
	assert.Equal(t, int64(2610), quote.ServiceFee.Amount)
	assert.Equal(t, int64(2529), quote.Tax.Amount)
	assert.Equal(t, int64(31239), quote.TotalPrice.Amount)
}

func TestQuoteExtraGuests(t *testing.T) {
	cfg := baseConfig()
	cfg.ExtraGuestRate = usd(500)

	quote, err := newEngine(t, DefaultPolicy()).Quote(QuoteRequest{
		Config: cfg, Date: monday, Window: window("10:00", "12:00"), Guests: 13, Now: now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), quote.BasePrice.Amount)
	assert.Equal(t, int64(1500), quote.ExtraGuestPrice.Amount)
	assert.Equal(t, int64(11500), quote.Subtotal.Amount)
}

func TestQuoteSaleOutsideWindowContributesNothing(t *testing.T) {
	for _, sale := range []*Sale{
		{Percent: pct("90"), From: now.Add(time.Hour), Until: now.Add(48 * time.Hour)},
		{Percent: pct("90"), From: now.Add(-48 * time.Hour), Until: now.Add(-time.Second)},
		{Percent: pct("90"), From: now.Add(-time.Hour)},
	} {
		cfg := baseConfig()
		cfg.Sale = sale
		quote, err := newEngine(t, DefaultPolicy()).Quote(QuoteRequest{
			Config: cfg, Date: monday, Window: window("10:00", "14:00"), Guests: 1, Now: now,
		})
		require.NoError(t, err)
		assert.Zero(t, quote.DiscountAmount.Amount)
		assert.True(t, quote.SalePercent.IsZero())
	}
}

func TestQuoteSaleBoundsAreInclusive(t *testing.T) {
	cfg := baseConfig()
	cfg.Sale = &Sale{Percent: pct("10"), From: now.Add(-time.Hour), Until: now}

	quote, err := newEngine(t, DefaultPolicy()).Quote(QuoteRequest{
		Config: cfg, Date: monday, Window: window("10:00", "12:00"), Guests: 1, Now: now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), quote.DiscountAmount.Amount)
}

func TestQuoteDurationBoundary(t *testing.T) {
	engine := newEngine(t, DefaultPolicy())

	_, err := engine.Quote(QuoteRequest{Config: baseConfig(), Date: monday, Window: window("10:00", "12:00"), Guests: 1, Now: now})
	require.NoError(t, err)

	// 0.01h short of the two hour minimum.
	_, err = engine.Quote(QuoteRequest{Config: baseConfig(), Date: monday, Window: window("10:00", "11:59:24"), Guests: 1, Now: now})
	assert.ErrorIs(t, err, availability.ErrInvalidWindow)
}

func TestQuoteRejections(t *testing.T) {
	engine := newEngine(t, DefaultPolicy())
	invalid := baseConfig()
	invalid.MinHours = 10
	invalid.MaxHours = 4

	cases := []struct {
		name string
		req  QuoteRequest
		want error
	}{
		{"invalid config", QuoteRequest{Config: invalid, Date: monday, Window: window("10:00", "12:00"), Guests: 1}, ErrInvalidConfiguration},
		{"no guests", QuoteRequest{Config: baseConfig(), Date: monday, Window: window("10:00", "12:00"), Guests: 0}, ErrInvalidGuests},
		{"before opening", QuoteRequest{Config: baseConfig(), Date: monday, Window: window("07:00", "11:00"), Guests: 1}, availability.ErrOutsideOperatingHours},
		{"end before start", QuoteRequest{Config: baseConfig(), Date: monday, Window: window("12:00", "10:00"), Guests: 1}, availability.ErrInvalidWindow},
		{"conflict", QuoteRequest{
			Config: baseConfig(), Date: monday, Window: window("16:00", "19:00"), Guests: 1,
			Existing: []availability.BookedWindow{{Reference: "b-1", Date: monday, Window: window("14:00", "18:00"), Status: availability.StatusConfirmed}},
		}, availability.ErrConflictsWithExistingBooking},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Quote(tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestQuoteIsDeterministic(t *testing.T) {
	cfg := baseConfig()
	cfg.HourlyRate = usd(3333)
	cfg.DurationDiscounts = []DurationTier{{MinHours: 3, DiscountPercent: pct("7.5")}}
	cfg.Sale = &Sale{Percent: pct("12.5"), From: now.Add(-time.Hour), Until: now.Add(time.Hour)}
	req := QuoteRequest{Config: cfg, Date: monday, Window: window("09:10", "13:47:13"), Guests: 4, Now: now}
	engine := newEngine(t, DefaultPolicy())

	first, err := engine.Quote(req)
	require.NoError(t, err)
	second, err := engine.Quote(req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAssembleBalancesForAllInputs(t *testing.T) {
	rates := []int64{1, 999, 3333, 5400, 12345}
	durations := []time.Duration{time.Hour, 90 * time.Minute, 2*time.Hour + 9*time.Minute + 37*time.Second, 7 * time.Hour}
	tiers := []string{"0", "7.5", "13", "33.33", "100"}
	sales := []string{"0", "1", "12.5", "66.67"}
	policies := []Policy{DefaultPolicy(), {
		ServiceFeeRate: pct("0.125"), TaxRate: pct("0.0725"), TaxBase: TaxOnSubtotal, Stacking: StackAdditive,
	}}

	for _, rate := range rates {
		for _, d := range durations {
			for _, tier := range tiers {
				for _, sale := range sales {
					for _, policy := range policies {
						out := Assemble(AssembleInput{
							HourlyRate:     usd(rate),
							Duration:       d,
							Guests:         5,
							IncludedGuests: 3,
							ExtraGuestRate: usd(rate / 3),
							Tier:           DurationTier{MinHours: 1, DiscountPercent: pct(tier)},
							Promotions:     Promotions{SalePercent: pct(sale), BonusHours: 1},
						}, policy)
						require.NoError(t, out.Validate(), "rate=%d d=%s tier=%s sale=%s", rate, d, tier, sale)
						assert.Equal(t, out.AfterDiscounts.Amount, out.TotalPrice.Amount-out.Tax.Amount-out.ServiceFee.Amount)
						assert.Equal(t, out.AfterDiscounts.Amount, out.Subtotal.Amount-out.DiscountAmount.Amount)
					}
				}
			}
		}
	}
}

func TestAssembleDiscountsUnroundedSubtotal(t *testing.T) {
	// 30 minutes at 10.01 is 5.005, shown as 5.01; half of the exact amount is
	// 2.5025, so the discounted price rounds to 2.50 rather than half of 5.01.
	out := Assemble(AssembleInput{
		HourlyRate: usd(1001),
		Duration:   30 * time.Minute,
		Tier:       DurationTier{DiscountPercent: pct("50")},
	}, DefaultPolicy())

	assert.Equal(t, int64(501), out.BasePrice.Amount)
	assert.Equal(t, int64(250), out.AfterDiscounts.Amount)
	assert.Equal(t, int64(251), out.DiscountAmount.Amount)
	assert.Equal(t, int64(25), out.ServiceFee.Amount)
	require.NoError(t, out.Validate())
}

func TestBreakdownValidateDetectsImbalance(t *testing.T) {
	out := Assemble(AssembleInput{HourlyRate: usd(5000), Duration: 2 * time.Hour}, DefaultPolicy())
	require.NoError(t, out.Validate())

	broken := out.Copy()
	broken.TotalPrice.Amount++
	assert.ErrorIs(t, broken.Validate(), ErrUnbalanced)

	broken = out.Copy()
	broken.Tax.Amount = -1
	assert.ErrorIs(t, broken.Validate(), ErrNegativeComponent)
}

func TestNewEngineRejectsBadPolicy(t *testing.T) {
	policy := DefaultPolicy()
	policy.TaxBase = "gross"
	_, err := NewEngine(policy)
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	policy = DefaultPolicy()
	policy.ServiceFeeRate = pct("1.5")
	_, err = NewEngine(policy)
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}
