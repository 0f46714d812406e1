package service

import (
	"context"
	"time"

	"github.com/merchantkit/admin-api/internal/domain"
)

// BuyXGetYForm is the editor form state for a Buy-X-Get-Y discount,
// with stored catalog ids resolved to display items.
type BuyXGetYForm struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Code   string `json:"code"`
	Method string `json:"method"`
	Status string `json:"status"`

	BuyQuantity      int                  `json:"buysQuantity"`
	BuyMinimumAmount float64              `json:"buysMinimumAmount"`
	BuyScope         string               `json:"buysScope"`
	BuySelections    []domain.CatalogItem `json:"buysSelections"`

	GetQuantity    int                  `json:"getsQuantity"`
	RewardType     string               `json:"rewardType"`
	RewardValue    float64              `json:"discountValue"`
	MaxRewardValue float64              `json:"maxRewardValue"`
	GetScope       string               `json:"getsScope"`
	GetSelections  []domain.CatalogItem `json:"getsSelections"`

	ApplyToLowestPrice bool `json:"applyToLowestPrice"`
	Stackable          bool `json:"stackable"`
	AutoAdd            bool `json:"autoAdd"`
	MaxUsesPerOrder    *int `json:"maxUsesPerOrder"`

	Combinations domain.Combinations `json:"combinations"`
	UsageLimit   *int                `json:"usageLimit"`
	OncePerUser  bool                `json:"oncePerUser"`
	StartAt      time.Time           `json:"startAt"`
	EndAt        *time.Time          `json:"endAt"`
}

// StandardForm is the editor form state for a standard discount.
type StandardForm struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Code   string `json:"code"`
	Type   string `json:"type"`
	Method string `json:"method"`
	Status string `json:"status"`

	Value     float64 `json:"discountValue"`
	ValueUnit string  `json:"valueUnit"`

	MinPurchase         string  `json:"minPurchase"`
	MinPurchaseAmount   float64 `json:"minPurchaseAmount"`
	MinPurchaseQuantity int     `json:"minPurchaseQuantity"`

	CustomerIDs []string `json:"customerIds"`

	AppliesToScope      string               `json:"appliesToScope"`
	AppliesToSelections []domain.CatalogItem `json:"appliesToSelections"`

	Combinations domain.Combinations `json:"combinations"`
	UsageLimit   *int                `json:"usageLimit"`
	OncePerUser  bool                `json:"oncePerUser"`
	StartAt      time.Time           `json:"startAt"`
	EndAt        *time.Time          `json:"endAt"`
}

// LoadBuyXGetYForm loads a discount into the Buy-X-Get-Y editor form.
// Either requirements schema generation is accepted; stored ids resolve
// to display items with unresolvable ids dropped. A discount of any
// other type yields an EditorMismatchError so the handler can redirect.
func (s *DiscountService) LoadBuyXGetYForm(ctx context.Context, id string) (*BuyXGetYForm, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.IsBuyXGetY() {
		return nil, &EditorMismatchError{ID: d.ID, ActualType: d.Type}
	}
	d.Status = domain.DeriveStatus(d.Status, d.StartAt, d.EndAt, time.Now().UTC())

	b := domain.DecodeBuyXGetY(d.Requirements)

	form := &BuyXGetYForm{
		ID:     d.ID,
		Title:  d.Title,
		Code:   d.Code,
		Method: d.Method,
		Status: d.Status,

		BuyQuantity:      b.BuyQuantity,
		BuyMinimumAmount: b.BuyMinimumAmount,
		BuyScope:         b.Buy.Scope.Hyphenated(),
		BuySelections:    s.resolveSelection(ctx, b.Buy),

		GetQuantity:    b.GetQuantity,
		RewardType:     b.RewardType,
		RewardValue:    b.RewardValue,
		MaxRewardValue: b.MaxRewardValue,
		GetScope:       b.Get.Scope.Hyphenated(),
		GetSelections:  s.resolveSelection(ctx, b.Get),

		ApplyToLowestPrice: b.ApplyToLowestPrice,
		Stackable:          b.Stackable,
		AutoAdd:            b.AutoAdd,
		MaxUsesPerOrder:    b.MaxUsesPerOrder,

		Combinations: d.Combinations,
		UsageLimit:   d.UsageLimit,
		OncePerUser:  d.OncePerUser,
		StartAt:      d.StartAt,
		EndAt:        d.EndAt,
	}
	return form, nil
}

// LoadStandardForm loads a discount into the standard editor form. A
// Buy-X-Get-Y discount yields an EditorMismatchError.
func (s *DiscountService) LoadStandardForm(ctx context.Context, id string) (*StandardForm, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.IsBuyXGetY() {
		return nil, &EditorMismatchError{ID: d.ID, ActualType: d.Type}
	}
	d.Status = domain.DeriveStatus(d.Status, d.StartAt, d.EndAt, time.Now().UTC())

	std := domain.DecodeStandard(d.Requirements)

	form := &StandardForm{
		ID:     d.ID,
		Title:  d.Title,
		Code:   d.Code,
		Type:   d.Type,
		Method: d.Method,
		Status: d.Status,

		Value:     d.Value,
		ValueUnit: d.ValueUnit,

		MinPurchase:         std.MinPurchase,
		MinPurchaseAmount:   std.MinPurchaseAmount,
		MinPurchaseQuantity: std.MinPurchaseQuantity,

		CustomerIDs: std.CustomerIDs,

		AppliesToScope:      std.AppliesTo.Scope.Hyphenated(),
		AppliesToSelections: s.resolveSelection(ctx, std.AppliesTo),

		Combinations: d.Combinations,
		UsageLimit:   d.UsageLimit,
		OncePerUser:  d.OncePerUser,
		StartAt:      d.StartAt,
		EndAt:        d.EndAt,
	}
	if form.CustomerIDs == nil {
		form.CustomerIDs = []string{}
	}
	return form, nil
}

// resolveSelection maps a selection's ids to display items via the
// catalog resolver. The any scope has nothing to resolve.
func (s *DiscountService) resolveSelection(ctx context.Context, sel domain.Selection) []domain.CatalogItem {
	kind, ok := domain.KindForScope(sel.Scope)
	if !ok || len(sel.IDs) == 0 {
		return []domain.CatalogItem{}
	}
	return s.resolver.Resolve(ctx, kind, sel.IDs)
}
