package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Standard (non Buy-X-Get-Y) requirements use a flat shape: an optional
// minimum purchase, an optional customer allowlist and an optional
// applies-to selection. Scope strings here are hyphenated, unlike the
// underscored enhanced Buy-X-Get-Y scopes.

type standardWire struct {
	MinPurchaseAmount   *float64                 `json:"minPurchaseAmount,omitempty"`
	MinPurchaseQuantity *int                     `json:"minPurchaseQuantity,omitempty"`
	CustomerEligibility *customerEligibilityWire `json:"customerEligibility,omitempty"`
	AppliesTo           *appliesToWire           `json:"appliesTo,omitempty"`
}

type customerEligibilityWire struct {
	Type        string   `json:"type"`
	CustomerIDs []string `json:"customerIds"`
}

type appliesToWire struct {
	Type string   `json:"type"`
	IDs  []string `json:"ids"`
}

// DecodeStandard reads a standard requirements blob. Missing or
// malformed input yields the permissive defaults: no minimum purchase,
// all customers, all products.
func DecodeStandard(raw json.RawMessage) *StandardRequirements {
	out := &StandardRequirements{
		MinPurchase: MinPurchaseNone,
		AppliesTo:   Selection{Scope: ScopeAny},
	}
	if len(raw) == 0 {
		return out
	}

	var wire standardWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return out
	}

	// The stored contract allows at most one of amount/quantity;
	// if a hand-edited record carries both, amount wins.
	switch {
	case wire.MinPurchaseAmount != nil && *wire.MinPurchaseAmount > 0:
		out.MinPurchase = MinPurchaseAmount
		out.MinPurchaseAmount = *wire.MinPurchaseAmount
	case wire.MinPurchaseQuantity != nil && *wire.MinPurchaseQuantity > 0:
		out.MinPurchase = MinPurchaseQuantity
		out.MinPurchaseQuantity = *wire.MinPurchaseQuantity
	}

	if wire.CustomerEligibility != nil {
		out.CustomerIDs = wire.CustomerEligibility.CustomerIDs
	}
	if wire.AppliesTo != nil {
		out.AppliesTo = Selection{
			Scope: scopeFromHyphenated(wire.AppliesTo.Type),
			IDs:   wire.AppliesTo.IDs,
		}
	}
	return out
}

// Encode serializes standard requirements. Fields at their permissive
// defaults are omitted entirely: no minPurchase key, no
// customerEligibility key, no appliesTo key.
func (s *StandardRequirements) Encode() (json.RawMessage, error) {
	var wire standardWire

	switch s.MinPurchase {
	case MinPurchaseAmount:
		if s.MinPurchaseAmount > 0 {
			v := s.MinPurchaseAmount
			wire.MinPurchaseAmount = &v
		}
	case MinPurchaseQuantity:
		if s.MinPurchaseQuantity > 0 {
			v := s.MinPurchaseQuantity
			wire.MinPurchaseQuantity = &v
		}
	}

	if len(s.CustomerIDs) > 0 {
		wire.CustomerEligibility = &customerEligibilityWire{
			Type:        "specific-customers",
			CustomerIDs: s.CustomerIDs,
		}
	}

	if s.AppliesTo.Scope != ScopeAny && s.AppliesTo.Scope != "" {
		wire.AppliesTo = &appliesToWire{
			Type: hyphenatedScope(s.AppliesTo.Scope),
			IDs:  nonNil(s.AppliesTo.IDs),
		}
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode standard requirements: %w", err)
	}
	return data, nil
}

// Hyphenated returns the hyphenated spelling used by the standard
// requirements shape and the editor form state.
func (s Scope) Hyphenated() string {
	return hyphenatedScope(s)
}

// ScopeFrom parses any known scope spelling into a canonical Scope.
// Unknown spellings default to specific products.
func ScopeFrom(s string) Scope {
	return normalizeScope(s)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func hyphenatedScope(s Scope) string {
	return strings.ReplaceAll(string(s), "_", "-")
}

func scopeFromHyphenated(s string) Scope {
	return normalizeScope(s)
}
