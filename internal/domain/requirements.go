package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Scope identifies which catalog dimension a selection targets. The
// values are the enhanced-schema wire strings.
type Scope string

const (
	ScopeAny         Scope = "any_products"
	ScopeProducts    Scope = "specific_products"
	ScopeCollections Scope = "specific_collections"
	ScopeCategories  Scope = "specific_categories"
)

// Reward types for the "get" side of a Buy-X-Get-Y discount.
const (
	RewardPercentage = "percentage"
	RewardAmountOff  = "amount-off"
	RewardFree       = "free"
)

// Selection pairs a scope with the ids it targets. IDs is meaningful
// only for the three specific scopes and is empty for ScopeAny.
type Selection struct {
	Scope Scope    `json:"scope"`
	IDs   []string `json:"ids"`
}

// BuyXGetY is the canonical in-memory form of a Buy-X-Get-Y
// requirements blob, independent of which schema generation it was
// decoded from.
type BuyXGetY struct {
	BuyQuantity      int
	BuyMinimumAmount float64
	Buy              Selection

	GetQuantity    int
	RewardType     string
	RewardValue    float64
	MaxRewardValue float64
	Get            Selection

	ApplyToLowestPrice bool
	Stackable          bool
	AutoAdd            bool
	MaxUsesPerOrder    *int
}

// Minimum-purchase modes for standard discounts.
const (
	MinPurchaseNone     = "none"
	MinPurchaseAmount   = "amount"
	MinPurchaseQuantity = "quantity"
)

// StandardRequirements is the canonical form of a standard (non
// Buy-X-Get-Y) requirements blob.
type StandardRequirements struct {
	MinPurchase         string
	MinPurchaseAmount   float64
	MinPurchaseQuantity int

	// CustomerIDs empty means the discount applies to all customers.
	CustomerIDs []string

	// AppliesTo with ScopeAny means all products.
	AppliesTo Selection
}

// Wire shapes. The enhanced schema nests everything under a buyXGetY
// key; the legacy schema spreads customerBuys/customerGets/
// maxUsesPerOrder across the requirements object itself.

type requirementsWire struct {
	BuyXGetY     *buyXGetYWire     `json:"buyXGetY,omitempty"`
	CustomerBuys *legacyBuysWire   `json:"customerBuys,omitempty"`
	CustomerGets *legacyGetsWire   `json:"customerGets,omitempty"`
	MaxUses      *bool             `json:"maxUsesPerOrder,omitempty"`
}

type buyXGetYWire struct {
	BuyConditions buyConditionsWire `json:"buyConditions"`
	GetRewards    getRewardsWire    `json:"getRewards"`
	Rules         rulesWire         `json:"rules"`
}

type buyConditionsWire struct {
	Quantity      int      `json:"quantity"`
	Scope         string   `json:"scope"`
	MinimumAmount float64  `json:"minimumAmount"`
	Products      []string `json:"products"`
	Collections   []string `json:"collections"`
	Categories    []string `json:"categories"`
}

type getRewardsWire struct {
	Quantity       int      `json:"quantity"`
	DiscountType   string   `json:"discountType"`
	DiscountValue  float64  `json:"discountValue"`
	MaxRewardValue float64  `json:"maxRewardValue"`
	Products       []string `json:"products"`
	Collections    []string `json:"collections"`
	Categories     []string `json:"categories"`
}

type rulesWire struct {
	ApplyToLowestPrice bool `json:"applyToLowestPrice"`
	Stackable          bool `json:"stackable"`
	AutoAdd            bool `json:"autoAdd"`
	MaxUsesPerOrder    *int `json:"maxUsesPerOrder"`
}

type legacyBuysWire struct {
	Type         string   `json:"type"`
	Quantity     int      `json:"quantity"`
	Amount       float64  `json:"amount"`
	AppliesTo    string   `json:"appliesTo"`
	AppliesToIDs []string `json:"appliesToIds"`
}

type legacyGetsWire struct {
	Quantity        int              `json:"quantity"`
	AppliesTo       string           `json:"appliesTo"`
	AppliesToIDs    []string         `json:"appliesToIds"`
	DiscountedValue legacyValueWire  `json:"discountedValue"`
}

type legacyValueWire struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// DefaultBuyXGetY returns the form-state defaults used when a
// requirements blob is absent or unreadable: buy one, get one, both
// sides scoped to specific products with nothing selected yet.
func DefaultBuyXGetY() *BuyXGetY {
	return &BuyXGetY{
		BuyQuantity: 1,
		Buy:         Selection{Scope: ScopeProducts},
		GetQuantity: 1,
		RewardType:  RewardPercentage,
		Get:         Selection{Scope: ScopeProducts},
	}
}

// DecodeBuyXGetY reads either schema generation out of a requirements
// blob. The enhanced buyXGetY key wins when present; otherwise the
// legacy customerBuys/customerGets pair is consulted. Missing or
// malformed input yields defaults rather than an error so that a stale
// record can always be opened in the editor.
func DecodeBuyXGetY(raw json.RawMessage) *BuyXGetY {
	out := DefaultBuyXGetY()
	if len(raw) == 0 {
		return out
	}

	var wire requirementsWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return out
	}

	if wire.BuyXGetY != nil {
		decodeEnhanced(wire.BuyXGetY, out)
		return out
	}
	if wire.CustomerBuys != nil || wire.CustomerGets != nil {
		decodeLegacy(&wire, out)
	}
	return out
}

func decodeEnhanced(w *buyXGetYWire, out *BuyXGetY) {
	buy := w.BuyConditions
	if buy.Quantity > 0 {
		out.BuyQuantity = buy.Quantity
	}
	out.BuyMinimumAmount = buy.MinimumAmount
	out.Buy = selectionFromArrays(normalizeScope(buy.Scope), buy.Products, buy.Collections, buy.Categories)

	get := w.GetRewards
	if get.Quantity > 0 {
		out.GetQuantity = get.Quantity
	}
	if get.DiscountType != "" {
		out.RewardType = get.DiscountType
	}
	out.RewardValue = get.DiscountValue
	out.MaxRewardValue = get.MaxRewardValue
	out.Get = selectionFromArrays(inferScope(get.Products, get.Collections, get.Categories), get.Products, get.Collections, get.Categories)

	out.ApplyToLowestPrice = w.Rules.ApplyToLowestPrice
	out.Stackable = w.Rules.Stackable
	out.AutoAdd = w.Rules.AutoAdd
	out.MaxUsesPerOrder = w.Rules.MaxUsesPerOrder
}

func decodeLegacy(w *requirementsWire, out *BuyXGetY) {
	if buys := w.CustomerBuys; buys != nil {
		if buys.Quantity > 0 {
			out.BuyQuantity = buys.Quantity
		}
		if buys.Type == "min-purchase" {
			out.BuyMinimumAmount = buys.Amount
		}
		out.Buy = Selection{Scope: normalizeScope(buys.AppliesTo), IDs: buys.AppliesToIDs}
	}

	if gets := w.CustomerGets; gets != nil {
		if gets.Quantity > 0 {
			out.GetQuantity = gets.Quantity
		}
		out.Get = Selection{Scope: normalizeScope(gets.AppliesTo), IDs: gets.AppliesToIDs}
		if gets.DiscountedValue.Type != "" {
			out.RewardType = gets.DiscountedValue.Type
		}
		out.RewardValue = gets.DiscountedValue.Value
		if out.RewardType == RewardFree {
			out.RewardValue = 100
		}
	}

	// The legacy flag was a boolean; true maps onto a limit of
	// exactly one use per order, false onto no limit. Preserved as
	// observed in stored records.
	if w.MaxUses != nil && *w.MaxUses {
		one := 1
		out.MaxUsesPerOrder = &one
	}
}

// Encode serializes to the enhanced schema. Saves always write this
// generation regardless of what was loaded, so a legacy record migrates
// forward the first time it is edited.
func (b *BuyXGetY) Encode() (json.RawMessage, error) {
	buyProducts, buyCollections, buyCategories := arraysFor(b.Buy)
	getProducts, getCollections, getCategories := arraysFor(b.Get)

	wire := requirementsWire{
		BuyXGetY: &buyXGetYWire{
			BuyConditions: buyConditionsWire{
				Quantity:      b.BuyQuantity,
				Scope:         string(b.Buy.Scope),
				MinimumAmount: b.BuyMinimumAmount,
				Products:      buyProducts,
				Collections:   buyCollections,
				Categories:    buyCategories,
			},
			GetRewards: getRewardsWire{
				Quantity:       b.GetQuantity,
				DiscountType:   b.RewardType,
				DiscountValue:  b.rewardValue(),
				MaxRewardValue: b.MaxRewardValue,
				Products:       getProducts,
				Collections:    getCollections,
				Categories:     getCategories,
			},
			Rules: rulesWire{
				ApplyToLowestPrice: b.ApplyToLowestPrice,
				Stackable:          b.Stackable,
				AutoAdd:            b.AutoAdd,
				MaxUsesPerOrder:    b.MaxUsesPerOrder,
			},
		},
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode buy-x-get-y requirements: %w", err)
	}
	return data, nil
}

func (b *BuyXGetY) rewardValue() float64 {
	if b.RewardType == RewardFree {
		return 100
	}
	return b.RewardValue
}

// DeriveValue returns the flat value/valueUnit pair kept in sync with
// the nested requirements. Percentage and free rewards report "%",
// amount-off reports the shop currency.
func (b *BuyXGetY) DeriveValue(currency string) (float64, string) {
	switch b.RewardType {
	case RewardAmountOff:
		return b.RewardValue, currency
	case RewardFree:
		return 100, "%"
	default:
		return b.RewardValue, "%"
	}
}

// Describe regenerates the human-readable summary shown in list views.
// It is rebuilt on every save so stale text never survives an edit.
func (b *BuyXGetY) Describe() string {
	var sb strings.Builder

	if b.BuyMinimumAmount > 0 {
		fmt.Fprintf(&sb, "Spend %s", trimFloat(b.BuyMinimumAmount))
	} else {
		fmt.Fprintf(&sb, "Buy %d %s", b.BuyQuantity, plural(b.BuyQuantity, "item", "items"))
	}
	sb.WriteString(scopePhrase(b.Buy))

	fmt.Fprintf(&sb, ", get %d %s", b.GetQuantity, plural(b.GetQuantity, "item", "items"))
	sb.WriteString(scopePhrase(b.Get))

	switch b.RewardType {
	case RewardFree:
		sb.WriteString(" free")
	case RewardAmountOff:
		fmt.Fprintf(&sb, " at %s off", trimFloat(b.RewardValue))
	default:
		fmt.Fprintf(&sb, " at %s%% off", trimFloat(b.RewardValue))
	}
	return sb.String()
}

func scopePhrase(sel Selection) string {
	n := len(sel.IDs)
	switch sel.Scope {
	case ScopeProducts:
		if n > 0 {
			return fmt.Sprintf(" from %d selected %s", n, plural(n, "product", "products"))
		}
		return " from selected products"
	case ScopeCollections:
		if n > 0 {
			return fmt.Sprintf(" from %d %s", n, plural(n, "collection", "collections"))
		}
		return " from selected collections"
	case ScopeCategories:
		if n > 0 {
			return fmt.Sprintf(" from %d %s", n, plural(n, "category", "categories"))
		}
		return " from selected categories"
	default:
		return " from any product"
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// selectionFromArrays builds a Selection from the three always-present
// arrays, keeping the ids that match the declared scope.
func selectionFromArrays(scope Scope, products, collections, categories []string) Selection {
	sel := Selection{Scope: scope}
	switch scope {
	case ScopeProducts:
		sel.IDs = products
	case ScopeCollections:
		sel.IDs = collections
	case ScopeCategories:
		sel.IDs = categories
	}
	return sel
}

// inferScope deduces a scope from whichever array is populated, used
// for getRewards which carries no explicit scope field.
func inferScope(products, collections, categories []string) Scope {
	switch {
	case len(collections) > 0:
		return ScopeCollections
	case len(categories) > 0:
		return ScopeCategories
	default:
		return ScopeProducts
	}
}

// arraysFor flattens a Selection into the three wire arrays. All three
// are always non-nil so the serialized form always carries every key.
func arraysFor(sel Selection) (products, collections, categories []string) {
	products, collections, categories = []string{}, []string{}, []string{}
	ids := sel.IDs
	if ids == nil {
		ids = []string{}
	}
	switch sel.Scope {
	case ScopeProducts:
		products = ids
	case ScopeCollections:
		collections = ids
	case ScopeCategories:
		categories = ids
	}
	return products, collections, categories
}

// normalizeScope maps the scope spellings found across both schema
// generations (underscored, hyphenated, bare) onto the canonical
// enhanced values. Unknown spellings default to specific products.
func normalizeScope(s string) Scope {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "any", "all", "any_products", "all_products":
		return ScopeAny
	case "specific_collections", "collections":
		return ScopeCollections
	case "specific_categories", "categories":
		return ScopeCategories
	default:
		return ScopeProducts
	}
}
