// Package domain holds the core entities and the requirements codec for
// the admin API: discounts, listings, pages and catalog records.
package domain

import (
	"encoding/json"
	"regexp"
	"time"
)

// Discount type literals as they appear on the wire. These are display
// strings, not enum codes; clients match on them verbatim.
const (
	TypeAmountOffProducts = "Amount off products"
	TypeAmountOffOrder    = "Amount off order"
	TypeBuyXGetY          = "Buy X get Y"
	TypeFreeShipping      = "Free shipping"
)

// Discount method literals.
const (
	MethodCode      = "Code"
	MethodAutomatic = "Automatic"
)

// Discount status literals.
const (
	StatusDraft     = "Draft"
	StatusActive    = "Active"
	StatusScheduled = "Scheduled"
	StatusExpired   = "Expired"
)

// codePattern restricts discount codes to letters, digits, hyphens and
// underscores. Codes are compared case-insensitively for uniqueness.
var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// IsValidCode reports whether s is a well-formed discount code.
func IsValidCode(s string) bool {
	return s != "" && codePattern.MatchString(s)
}

// Discount is a promotion record. The flat Value/ValueUnit pair is
// denormalized from the nested requirements on every save so that list
// views never have to parse the requirements blob.
type Discount struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Code         string          `json:"code,omitempty"`
	Type         string          `json:"type"`
	Method       string          `json:"method"`
	Status       string          `json:"status"`
	Value        float64         `json:"value"`
	ValueUnit    string          `json:"valueUnit"`
	Currency     string          `json:"currency"`
	Requirements json.RawMessage `json:"requirements,omitempty"`
	UsageLimit   *int            `json:"usageLimit,omitempty"`
	OncePerUser  bool            `json:"oncePerUser"`
	Used         int             `json:"used"`
	Combinations Combinations    `json:"combinations"`
	StartAt      time.Time       `json:"startAt"`
	EndAt        *time.Time      `json:"endAt,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Combinations flags which other discount classes a discount may stack
// with at checkout.
type Combinations struct {
	Product  bool `json:"product"`
	Order    bool `json:"order"`
	Shipping bool `json:"shipping"`
}

// IsBuyXGetY reports whether the discount uses the Buy-X-Get-Y editor
// and requirements shape.
func (d *Discount) IsBuyXGetY() bool {
	return d.Type == TypeBuyXGetY
}

// DeriveStatus computes the effective status from the schedule. Draft
// records stay Draft until explicitly activated.
func DeriveStatus(current string, startAt time.Time, endAt *time.Time, now time.Time) string {
	if current == StatusDraft {
		return StatusDraft
	}
	if endAt != nil && now.After(*endAt) {
		return StatusExpired
	}
	if now.Before(startAt) {
		return StatusScheduled
	}
	return StatusActive
}
