package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }

func TestEncodeCountryPrices(t *testing.T) {
	rules := []CountryPriceRule{
		{ID: "1", Country: "India", FixedPrice: fp(25.50)},
		{ID: "2", Country: "United States", FixedPrice: fp(19.99)},
		{ID: "3", Country: "Germany", DiscountPercentage: fp(10)},
		{ID: "4", Country: "Atlantis", FixedPrice: fp(5)},
	}

	stored := EncodeCountryPrices(rules)

	require.Len(t, stored, 2)
	assert.Equal(t, StoredPrice{PriceCents: 2550, Currency: "INR"}, stored["IN"])
	assert.Equal(t, StoredPrice{PriceCents: 1999, Currency: "USD"}, stored["US"])
	assert.NotContains(t, stored, "DE", "percentage rules have no stored form")
}

func TestDecodeCountryPrices(t *testing.T) {
	stored := map[string]StoredPrice{
		"IN": {PriceCents: 2550, Currency: "INR"},
		"GB": {PriceCents: 1000, Currency: "GBP"},
		"XX": {PriceCents: 999, Currency: "???"},
	}

	rules := DecodeCountryPrices(stored)

	require.Len(t, rules, 2, "unknown country codes are skipped")
	assert.Equal(t, "India", rules[0].Country)
	assert.Equal(t, 25.50, *rules[0].FixedPrice)
	assert.Equal(t, "United Kingdom", rules[1].Country)
	assert.Equal(t, 10.0, *rules[1].FixedPrice)
}

func TestCountryPrices_RoundTrip(t *testing.T) {
	in := []CountryPriceRule{{ID: "r1", Country: "India", FixedPrice: fp(25.50)}}

	stored := EncodeCountryPrices(in)
	require.Equal(t, int64(2550), stored["IN"].PriceCents)

	out := DecodeCountryPrices(stored)
	require.Len(t, out, 1)
	assert.Equal(t, "India", out[0].Country)
	assert.Equal(t, 25.50, *out[0].FixedPrice)
	assert.Nil(t, out[0].DiscountPercentage)
}

func TestCountryPrices_PercentageDroppedNotCorrupted(t *testing.T) {
	in := []CountryPriceRule{
		{ID: "r1", Country: "Japan", DiscountPercentage: fp(15)},
		{ID: "r2", Country: "Japan", FixedPrice: fp(42)},
	}

	stored := EncodeCountryPrices(in)

	require.Len(t, stored, 1)
	assert.Equal(t, StoredPrice{PriceCents: 4200, Currency: "JPY"}, stored["JP"])
}

func TestCountryPriceRule_Type(t *testing.T) {
	assert.Equal(t, PriceRuleFixed, CountryPriceRule{FixedPrice: fp(1)}.Type())
	assert.Equal(t, PriceRulePercentage, CountryPriceRule{DiscountPercentage: fp(1)}.Type())
}

func TestCountryLookup(t *testing.T) {
	c, ok := CountryByName("India")
	require.True(t, ok)
	assert.Equal(t, "IN", c.Code)
	assert.Equal(t, "INR", c.Currency)

	c, ok = CountryByCode("US")
	require.True(t, ok)
	assert.Equal(t, "United States", c.Name)

	_, ok = CountryByName("Atlantis")
	assert.False(t, ok)
}
