package domain

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// Listing statuses.
const (
	ListingStatusDraft    = "Draft"
	ListingStatusActive   = "Active"
	ListingStatusInactive = "Inactive"
)

// Listing is a sellable product listing managed through the admin
// dashboard. Variations and media are stored as opaque JSON; the admin
// API round-trips them without interpreting their contents.
type Listing struct {
	ID              string                 `json:"id"`
	Title           string                 `json:"title"`
	Slug            string                 `json:"slug"`
	SKU             string                 `json:"sku,omitempty"`
	Description     string                 `json:"description,omitempty"`
	Status          string                 `json:"status"`
	PriceCents      int64                  `json:"priceCents"`
	Currency        string                 `json:"currency"`
	Quantity        int                    `json:"quantity"`
	SEOTitle        string                 `json:"seoTitle,omitempty"`
	SEODescription  string                 `json:"seoDescription,omitempty"`
	WeightGrams     int                    `json:"weightGrams,omitempty"`
	RequiresShipping bool                  `json:"requiresShipping"`
	Variations      json.RawMessage        `json:"variations,omitempty"`
	Media           json.RawMessage        `json:"media,omitempty"`
	CountryPrices   map[string]StoredPrice `json:"countryPrices,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

// StoredPrice is the persisted per-country price: integer cents plus an
// explicit currency code, keyed by ISO country code in the parent map.
type StoredPrice struct {
	PriceCents int64  `json:"priceCents"`
	Currency   string `json:"currency"`
}

// Country price rule types as seen in the editor.
const (
	PriceRuleFixed      = "fixed"
	PriceRulePercentage = "percentage"
)

// CountryPriceRule is the editor-facing form of a country price: a
// human country name and a dollar amount, with the rule type implied by
// which value is set.
type CountryPriceRule struct {
	ID                 string   `json:"id"`
	Country            string   `json:"country"`
	FixedPrice         *float64 `json:"fixedPrice,omitempty"`
	DiscountPercentage *float64 `json:"discountPercentage,omitempty"`
}

// Type returns the implied rule type.
func (r CountryPriceRule) Type() string {
	if r.DiscountPercentage != nil {
		return PriceRulePercentage
	}
	return PriceRuleFixed
}

// EncodeCountryPrices converts editor rules into the stored map.
// Percentage rules have no stored slot and are dropped, as are rules
// naming a country outside the lookup table. Dollars convert to cents
// via round(x*100) so 25.50 stores exactly as 2550.
func EncodeCountryPrices(rules []CountryPriceRule) map[string]StoredPrice {
	stored := make(map[string]StoredPrice, len(rules))
	for _, r := range rules {
		if r.Type() == PriceRulePercentage || r.FixedPrice == nil {
			continue
		}
		c, ok := CountryByName(r.Country)
		if !ok {
			continue
		}
		stored[c.Code] = StoredPrice{
			PriceCents: int64(math.Round(*r.FixedPrice * 100)),
			Currency:   c.Currency,
		}
	}
	return stored
}

// DecodeCountryPrices converts the stored map back into editor rules,
// ordered by country name for a stable editor listing. Codes missing
// from the lookup table are skipped.
func DecodeCountryPrices(stored map[string]StoredPrice) []CountryPriceRule {
	rules := make([]CountryPriceRule, 0, len(stored))
	for code, price := range stored {
		c, ok := CountryByCode(code)
		if !ok {
			continue
		}
		dollars := float64(price.PriceCents) / 100
		rules = append(rules, CountryPriceRule{
			ID:         code,
			Country:    c.Name,
			FixedPrice: &dollars,
		})
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Country < rules[j].Country })
	return rules
}
