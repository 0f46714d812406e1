package domain

// Country is one row of the fixed country lookup table used by the
// country-specific pricing codec. The table is intentionally static:
// both directions of the price conversion must agree on name, code and
// currency, so the set is compiled in rather than fetched.
type Country struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Currency string `json:"currency"`
}

var countries = []Country{
	{"Australia", "AU", "AUD"},
	{"Brazil", "BR", "BRL"},
	{"Canada", "CA", "CAD"},
	{"France", "FR", "EUR"},
	{"Germany", "DE", "EUR"},
	{"India", "IN", "INR"},
	{"Italy", "IT", "EUR"},
	{"Japan", "JP", "JPY"},
	{"Mexico", "MX", "MXN"},
	{"Netherlands", "NL", "EUR"},
	{"New Zealand", "NZ", "NZD"},
	{"Singapore", "SG", "SGD"},
	{"Spain", "ES", "EUR"},
	{"United Arab Emirates", "AE", "AED"},
	{"United Kingdom", "GB", "GBP"},
	{"United States", "US", "USD"},
}

var (
	countryByName = make(map[string]Country, len(countries))
	countryByCode = make(map[string]Country, len(countries))
)

func init() {
	for _, c := range countries {
		countryByName[c.Name] = c
		countryByCode[c.Code] = c
	}
}

// CountryByName looks a country up by display name.
func CountryByName(name string) (Country, bool) {
	c, ok := countryByName[name]
	return c, ok
}

// CountryByCode looks a country up by ISO code.
func CountryByCode(code string) (Country, bool) {
	c, ok := countryByCode[code]
	return c, ok
}

// Countries returns the full lookup table in display order.
func Countries() []Country {
	out := make([]Country, len(countries))
	copy(out, countries)
	return out
}
