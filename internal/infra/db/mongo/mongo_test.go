package mongo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	domainlistings "venuehire/internal/domain/listings"
	domainpricing "venuehire/internal/domain/pricing"
	"venuehire/internal/domain/shared/money"
)

func TestDecimalCodecStoresStrings(t *testing.T) {
	type holder struct {
		Percent decimal.Decimal `bson:"percent"`
	}
	reg := Registry()

	raw, err := bson.MarshalWithRegistry(reg, holder{Percent: decimal.RequireFromString("12.5")})
	require.NoError(t, err)
	assert.Equal(t, "12.5", bson.Raw(raw).Lookup("percent").StringValue())

	var back holder
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &back))
	assert.True(t, back.Percent.Equal(decimal.RequireFromString("12.5")))
}

func TestDecimalCodecRoundTripsPricingConfig(t *testing.T) {
	cfg := domainpricing.Config{
		HourlyRate: money.Must(5000, "USD"),
		MinHours:   1,
		MaxHours:   8,
		DurationDiscounts: []domainpricing.DurationTier{
			{MinHours: 4, DiscountPercent: decimal.RequireFromString("8")},
		},
	}
	raw, err := bson.MarshalWithRegistry(Registry(), cfg)
	require.NoError(t, err)

	var back domainpricing.Config
	require.NoError(t, bson.UnmarshalWithRegistry(Registry(), raw, &back))
	assert.Equal(t, int64(5000), back.HourlyRate.Amount)
	require.Len(t, back.DurationDiscounts, 1)
	assert.True(t, back.DurationDiscounts[0].DiscountPercent.Equal(decimal.NewFromInt(8)))
}

func TestSearchFilter(t *testing.T) {
	filter := searchFilter(domainlistings.SearchParams{OnlyActive: true, City: "Austin", MinGuests: 5}.Normalized())
	assert.Equal(t, "ACTIVE", filter["state"])
	assert.Equal(t, primitive.Regex{Pattern: "^austin$", Options: "i"}, filter["address.city"])
	assert.Equal(t, bson.M{"$gte": 5}, filter["capacity"])
	_, hasRate := filter["pricing.hourly_rate.amount"]
	assert.False(t, hasRate)
}
