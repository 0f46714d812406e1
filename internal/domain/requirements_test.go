package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBuyXGetY_Enhanced(t *testing.T) {
	raw := json.RawMessage(`{
		"buyXGetY": {
			"buyConditions": {
				"quantity": 2,
				"scope": "specific_collections",
				"minimumAmount": 0,
				"products": [],
				"collections": ["col-1", "col-2"],
				"categories": []
			},
			"getRewards": {
				"quantity": 1,
				"discountType": "percentage",
				"discountValue": 20,
				"maxRewardValue": 50,
				"products": ["prod-9"],
				"collections": [],
				"categories": []
			},
			"rules": {
				"applyToLowestPrice": true,
				"stackable": false,
				"autoAdd": true,
				"maxUsesPerOrder": 3
			}
		}
	}`)

	b := DecodeBuyXGetY(raw)

	assert.Equal(t, 2, b.BuyQuantity)
	assert.Equal(t, ScopeCollections, b.Buy.Scope)
	assert.Equal(t, []string{"col-1", "col-2"}, b.Buy.IDs)

	assert.Equal(t, 1, b.GetQuantity)
	assert.Equal(t, RewardPercentage, b.RewardType)
	assert.Equal(t, 20.0, b.RewardValue)
	assert.Equal(t, 50.0, b.MaxRewardValue)
	assert.Equal(t, ScopeProducts, b.Get.Scope)
	assert.Equal(t, []string{"prod-9"}, b.Get.IDs)

	assert.True(t, b.ApplyToLowestPrice)
	assert.False(t, b.Stackable)
	assert.True(t, b.AutoAdd)
	require.NotNil(t, b.MaxUsesPerOrder)
	assert.Equal(t, 3, *b.MaxUsesPerOrder)
}

func TestDecodeBuyXGetY_Legacy(t *testing.T) {
	raw := json.RawMessage(`{
		"customerBuys": {
			"type": "min-purchase",
			"amount": 75.5,
			"appliesTo": "specific-collections",
			"appliesToIds": ["col-3"]
		},
		"customerGets": {
			"quantity": 2,
			"appliesTo": "specific-products",
			"appliesToIds": ["prod-1"],
			"discountedValue": {"type": "free", "value": 0}
		},
		"maxUsesPerOrder": true
	}`)

	b := DecodeBuyXGetY(raw)

	assert.Equal(t, 1, b.BuyQuantity, "missing quantity defaults to 1")
	assert.Equal(t, 75.5, b.BuyMinimumAmount)
	assert.Equal(t, ScopeCollections, b.Buy.Scope)
	assert.Equal(t, []string{"col-3"}, b.Buy.IDs)

	assert.Equal(t, 2, b.GetQuantity)
	assert.Equal(t, RewardFree, b.RewardType)
	assert.Equal(t, 100.0, b.RewardValue, "free reward normalizes to 100")

	require.NotNil(t, b.MaxUsesPerOrder)
	assert.Equal(t, 1, *b.MaxUsesPerOrder, "legacy boolean true maps to a limit of 1")
}

func TestDecodeBuyXGetY_LegacyFalseMaxUses(t *testing.T) {
	raw := json.RawMessage(`{
		"customerBuys": {"type": "min-quantity", "quantity": 1, "appliesTo": "any", "appliesToIds": []},
		"customerGets": {"quantity": 1, "appliesTo": "specific-products", "appliesToIds": [], "discountedValue": {"type": "percentage", "value": 10}},
		"maxUsesPerOrder": false
	}`)

	b := DecodeBuyXGetY(raw)

	assert.Equal(t, ScopeAny, b.Buy.Scope)
	assert.Nil(t, b.MaxUsesPerOrder)
}

func TestDecodeBuyXGetY_EnhancedWinsOverLegacy(t *testing.T) {
	raw := json.RawMessage(`{
		"buyXGetY": {
			"buyConditions": {"quantity": 5, "scope": "any_products", "minimumAmount": 0, "products": [], "collections": [], "categories": []},
			"getRewards": {"quantity": 1, "discountType": "percentage", "discountValue": 15, "maxRewardValue": 0, "products": [], "collections": [], "categories": []},
			"rules": {"applyToLowestPrice": false, "stackable": false, "autoAdd": false, "maxUsesPerOrder": null}
		},
		"customerBuys": {"type": "min-quantity", "quantity": 99, "appliesTo": "specific-products", "appliesToIds": ["stale"]}
	}`)

	b := DecodeBuyXGetY(raw)

	assert.Equal(t, 5, b.BuyQuantity)
	assert.Equal(t, ScopeAny, b.Buy.Scope)
	assert.Empty(t, b.Buy.IDs)
}

func TestDecodeBuyXGetY_Defaults(t *testing.T) {
	for _, raw := range []json.RawMessage{nil, json.RawMessage(`{}`), json.RawMessage(`not json`)} {
		b := DecodeBuyXGetY(raw)
		assert.Equal(t, 1, b.BuyQuantity)
		assert.Equal(t, 1, b.GetQuantity)
		assert.Equal(t, ScopeProducts, b.Buy.Scope)
		assert.Equal(t, ScopeProducts, b.Get.Scope)
		assert.Equal(t, RewardPercentage, b.RewardType)
	}
}

func TestBuyXGetY_EncodeArrayInvariant(t *testing.T) {
	b := &BuyXGetY{
		BuyQuantity: 2,
		Buy:         Selection{Scope: ScopeCategories, IDs: []string{"cat-1"}},
		GetQuantity: 1,
		RewardType:  RewardAmountOff,
		RewardValue: 5,
		Get:         Selection{Scope: ScopeProducts, IDs: []string{"prod-1", "prod-2"}},
	}

	raw, err := b.Encode()
	require.NoError(t, err)

	var decoded map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	buy := decoded["buyXGetY"]["buyConditions"]
	for _, key := range []string{"products", "collections", "categories"} {
		assert.Contains(t, buy, key, "every array key must be present on the wire")
	}
	assert.Len(t, buy["categories"], 1)
	assert.Empty(t, buy["products"])
	assert.Empty(t, buy["collections"])
	assert.Equal(t, "specific_categories", buy["scope"])

	get := decoded["buyXGetY"]["getRewards"]
	for _, key := range []string{"products", "collections", "categories"} {
		assert.Contains(t, get, key)
	}
	assert.Len(t, get["products"], 2)
	assert.Empty(t, get["collections"])
	assert.Empty(t, get["categories"])
}

func TestBuyXGetY_EncodeAnyScope(t *testing.T) {
	b := DefaultBuyXGetY()
	b.Buy = Selection{Scope: ScopeAny}

	raw, err := b.Encode()
	require.NoError(t, err)

	var wire requirementsWire
	require.NoError(t, json.Unmarshal(raw, &wire))
	require.NotNil(t, wire.BuyXGetY)

	buy := wire.BuyXGetY.BuyConditions
	assert.Equal(t, "any_products", buy.Scope)
	assert.Empty(t, buy.Products)
	assert.Empty(t, buy.Collections)
	assert.Empty(t, buy.Categories)
	assert.NotNil(t, buy.Products, "arrays are empty, never null")
}

func TestBuyXGetY_EncodeFreeRewardValue(t *testing.T) {
	b := DefaultBuyXGetY()
	b.RewardType = RewardFree
	b.RewardValue = 0

	raw, err := b.Encode()
	require.NoError(t, err)

	var wire requirementsWire
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Equal(t, 100.0, wire.BuyXGetY.GetRewards.DiscountValue)
}

func TestBuyXGetY_LegacyMigratesOnSave(t *testing.T) {
	legacy := json.RawMessage(`{
		"customerBuys": {"type": "min-quantity", "quantity": 3, "appliesTo": "specific-collections", "appliesToIds": ["col-7"]},
		"customerGets": {"quantity": 1, "appliesTo": "specific-products", "appliesToIds": ["prod-2"], "discountedValue": {"type": "percentage", "value": 25}},
		"maxUsesPerOrder": true
	}`)

	b := DecodeBuyXGetY(legacy)
	raw, err := b.Encode()
	require.NoError(t, err)

	var wire requirementsWire
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Nil(t, wire.CustomerBuys, "saves never write the legacy keys")
	assert.Nil(t, wire.CustomerGets)
	require.NotNil(t, wire.BuyXGetY)

	buy := wire.BuyXGetY.BuyConditions
	assert.Equal(t, 3, buy.Quantity)
	assert.Equal(t, "specific_collections", buy.Scope)
	assert.Equal(t, []string{"col-7"}, buy.Collections)

	get := wire.BuyXGetY.GetRewards
	assert.Equal(t, []string{"prod-2"}, get.Products)
	assert.Equal(t, 25.0, get.DiscountValue)

	require.NotNil(t, wire.BuyXGetY.Rules.MaxUsesPerOrder)
	assert.Equal(t, 1, *wire.BuyXGetY.Rules.MaxUsesPerOrder)
}

func TestBuyXGetY_DeriveValue(t *testing.T) {
	tests := []struct {
		name     string
		reward   string
		value    float64
		want     float64
		wantUnit string
	}{
		{"percentage", RewardPercentage, 20, 20, "%"},
		{"amount off", RewardAmountOff, 5.5, 5.5, "USD"},
		{"free", RewardFree, 0, 100, "%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := DefaultBuyXGetY()
			b.RewardType = tt.reward
			b.RewardValue = tt.value

			got, unit := b.DeriveValue("USD")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantUnit, unit)
		})
	}
}

func TestBuyXGetY_Describe(t *testing.T) {
	b := &BuyXGetY{
		BuyQuantity: 2,
		Buy:         Selection{Scope: ScopeCollections, IDs: []string{"a", "b", "c"}},
		GetQuantity: 1,
		RewardType:  RewardPercentage,
		RewardValue: 20,
		Get:         Selection{Scope: ScopeProducts, IDs: []string{"x"}},
	}
	assert.Equal(t, "Buy 2 items from 3 collections, get 1 item from 1 selected product at 20% off", b.Describe())

	b.BuyMinimumAmount = 50
	b.RewardType = RewardFree
	assert.Equal(t, "Spend 50 from 3 collections, get 1 item from 1 selected product free", b.Describe())
}

func TestDecodeStandard(t *testing.T) {
	raw := json.RawMessage(`{
		"minPurchaseAmount": 99.99,
		"customerEligibility": {"type": "specific-customers", "customerIds": ["cust-1"]},
		"appliesTo": {"type": "specific-collections", "ids": ["col-1"]}
	}`)

	s := DecodeStandard(raw)

	assert.Equal(t, MinPurchaseAmount, s.MinPurchase)
	assert.Equal(t, 99.99, s.MinPurchaseAmount)
	assert.Equal(t, []string{"cust-1"}, s.CustomerIDs)
	assert.Equal(t, ScopeCollections, s.AppliesTo.Scope)
	assert.Equal(t, []string{"col-1"}, s.AppliesTo.IDs)
}

func TestDecodeStandard_Defaults(t *testing.T) {
	s := DecodeStandard(nil)
	assert.Equal(t, MinPurchaseNone, s.MinPurchase)
	assert.Empty(t, s.CustomerIDs)
	assert.Equal(t, ScopeAny, s.AppliesTo.Scope)
}

func TestStandardRequirements_EncodeMutualExclusivity(t *testing.T) {
	s := &StandardRequirements{
		MinPurchase:         MinPurchaseQuantity,
		MinPurchaseAmount:   50, // stale form state from a prior radio choice
		MinPurchaseQuantity: 3,
		AppliesTo:           Selection{Scope: ScopeAny},
	}

	raw, err := s.Encode()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.NotContains(t, decoded, "minPurchaseAmount")
	assert.Equal(t, 3.0, decoded["minPurchaseQuantity"])
	assert.NotContains(t, decoded, "appliesTo", "any scope omits the key")
	assert.NotContains(t, decoded, "customerEligibility")
}

func TestStandardRequirements_RoundTrip(t *testing.T) {
	s := &StandardRequirements{
		MinPurchase:       MinPurchaseAmount,
		MinPurchaseAmount: 25,
		CustomerIDs:       []string{"cust-1", "cust-2"},
		AppliesTo:         Selection{Scope: ScopeCategories, IDs: []string{"cat-1"}},
	}

	raw, err := s.Encode()
	require.NoError(t, err)

	got := DecodeStandard(raw)
	assert.Equal(t, s.MinPurchase, got.MinPurchase)
	assert.Equal(t, s.MinPurchaseAmount, got.MinPurchaseAmount)
	assert.Equal(t, s.CustomerIDs, got.CustomerIDs)
	assert.Equal(t, s.AppliesTo, got.AppliesTo)
}
