// Package service implements the business logic behind the admin API
// handlers: discount normalization and validation, listing bulk writes,
// page reordering and catalog suggestions.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/merchantkit/admin-api/internal/catalog"
	"github.com/merchantkit/admin-api/internal/domain"
	"github.com/merchantkit/admin-api/internal/event"
	"github.com/merchantkit/admin-api/internal/repository"
	"github.com/merchantkit/admin-api/pkg/apperr"
)

// EditorMismatchError signals that a discount was opened in the wrong
// editor. It is a navigation signal, not a failure: handlers translate
// it into a redirect to the editor matching ActualType.
type EditorMismatchError struct {
	ID         string
	ActualType string
}

func (e *EditorMismatchError) Error() string {
	return fmt.Sprintf("discount %s requires the editor for type %q", e.ID, e.ActualType)
}

// DiscountService implements discount business logic.
type DiscountService struct {
	repo     repository.DiscountRepository
	resolver catalog.Resolver
	events   event.Publisher
	logger   *slog.Logger
}

// NewDiscountService creates a new discount service.
func NewDiscountService(repo repository.DiscountRepository, resolver catalog.Resolver, events event.Publisher, logger *slog.Logger) *DiscountService {
	return &DiscountService{repo: repo, resolver: resolver, events: events, logger: logger}
}

// DiscountInput is the full save payload for a discount. Saves are
// always whole-record: the stored requirements blob is rebuilt from
// this input on every save, never patched in place.
type DiscountInput struct {
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Code         string               `json:"code"`
	Type         string               `json:"type"`
	Method       string               `json:"method"`
	Status       string               `json:"status"`
	Value        float64              `json:"value"`
	ValueUnit    string               `json:"valueUnit"`
	Currency     string               `json:"currency"`
	Requirements json.RawMessage      `json:"requirements"`
	UsageLimit   *int                 `json:"usageLimit"`
	OncePerUser  bool                 `json:"oncePerUser"`
	Combinations domain.Combinations  `json:"combinations"`
	StartAt      time.Time            `json:"startAt"`
	EndAt        *time.Time           `json:"endAt"`
}

var validTypes = map[string]bool{
	domain.TypeAmountOffProducts: true,
	domain.TypeAmountOffOrder:    true,
	domain.TypeBuyXGetY:          true,
	domain.TypeFreeShipping:      true,
}

var validStatuses = map[string]bool{
	domain.StatusDraft:     true,
	domain.StatusActive:    true,
	domain.StatusScheduled: true,
	domain.StatusExpired:   true,
}

// validate collects every violated rule into a field→message map. The
// map is empty when the input is valid; saves with a non-empty map
// never reach the repository.
func (in *DiscountInput) validate() map[string]string {
	fields := make(map[string]string)

	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "title is required"
	}
	if !validTypes[in.Type] {
		fields["type"] = fmt.Sprintf("unknown discount type %q", in.Type)
	}
	switch in.Method {
	case domain.MethodCode:
		if strings.TrimSpace(in.Code) == "" {
			fields["discountCode"] = "a discount code is required for code discounts"
		} else if !domain.IsValidCode(in.Code) {
			fields["discountCode"] = "codes may only contain letters, numbers, hyphens and underscores"
		}
	case domain.MethodAutomatic:
		// Automatic discounts carry no code.
	default:
		fields["method"] = fmt.Sprintf("unknown discount method %q", in.Method)
	}
	if in.Status != "" && !validStatuses[in.Status] {
		fields["status"] = fmt.Sprintf("unknown status %q", in.Status)
	}
	if in.Value < 0 {
		fields["discountValue"] = "discount value must not be negative"
	}
	if in.ValueUnit == "%" && in.Value > 100 {
		fields["discountValue"] = "percentage discounts cannot exceed 100"
	}
	if in.EndAt != nil && !in.EndAt.After(in.StartAt) {
		fields["endDate"] = "end date must be after the start date"
	}

	if in.Type == domain.TypeBuyXGetY {
		b := domain.DecodeBuyXGetY(in.Requirements)
		if b.BuyQuantity <= 0 {
			fields["buysQuantity"] = "buy quantity must be at least 1"
		}
		if b.GetQuantity <= 0 {
			fields["getsQuantity"] = "get quantity must be at least 1"
		}
		if b.RewardType == domain.RewardPercentage && b.RewardValue > 100 {
			fields["discountValue"] = "percentage discounts cannot exceed 100"
		}
		if b.RewardValue < 0 {
			fields["discountValue"] = "discount value must not be negative"
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

// normalize rebuilds the derived fields from the requirements blob:
// the enhanced-schema requirements themselves, the flat value/valueUnit
// pair and the generated description. Legacy-schema input migrates to
// the enhanced schema here.
func (s *DiscountService) normalize(d *domain.Discount, in *DiscountInput) error {
	if in.Type == domain.TypeBuyXGetY {
		b := domain.DecodeBuyXGetY(in.Requirements)

		requirements, err := b.Encode()
		if err != nil {
			return err
		}
		d.Requirements = requirements
		d.Value, d.ValueUnit = b.DeriveValue(d.Currency)
		d.Description = b.Describe()
		return nil
	}

	std := domain.DecodeStandard(in.Requirements)
	requirements, err := std.Encode()
	if err != nil {
		return err
	}
	d.Requirements = requirements
	d.Value = in.Value
	d.ValueUnit = in.ValueUnit
	if d.ValueUnit == "" {
		d.ValueUnit = d.Currency
	}
	d.Description = in.Description
	return nil
}

// Create validates and stores a new discount.
func (s *DiscountService) Create(ctx context.Context, in *DiscountInput) (*domain.Discount, error) {
	if fields := in.validate(); fields != nil {
		return nil, apperr.ValidationFailed(fields)
	}

	now := time.Now().UTC()
	d := &domain.Discount{
		ID:           uuid.New().String(),
		Title:        in.Title,
		Code:         strings.ToUpper(strings.TrimSpace(in.Code)),
		Type:         in.Type,
		Method:       in.Method,
		Status:       in.Status,
		Currency:     defaultCurrency(in.Currency),
		UsageLimit:   in.UsageLimit,
		OncePerUser:  in.OncePerUser,
		Used:         0,
		Combinations: in.Combinations,
		StartAt:      in.StartAt,
		EndAt:        in.EndAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if d.Status == "" {
		d.Status = domain.StatusDraft
	}
	if err := s.normalize(d, in); err != nil {
		return nil, fmt.Errorf("normalize requirements: %w", err)
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create discount: %w", err)
	}

	if err := s.events.DiscountCreated(ctx, d); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish discount.created event",
			slog.String("discount_id", d.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "discount created",
		slog.String("discount_id", d.ID),
		slog.String("type", d.Type),
	)
	return d, nil
}

// Get retrieves a discount by its ID. The status is derived from the
// schedule on every read: the stored string is what the merchant last
// saved, not what the calendar says now.
func (s *DiscountService) Get(ctx context.Context, id string) (*domain.Discount, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get discount: %w", err)
	}
	d.Status = domain.DeriveStatus(d.Status, d.StartAt, d.EndAt, time.Now().UTC())
	return d, nil
}

// List returns a filtered, paginated list of discounts with schedule-
// derived statuses.
func (s *DiscountService) List(ctx context.Context, filter repository.DiscountFilter) ([]domain.Discount, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	discounts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list discounts: %w", err)
	}

	now := time.Now().UTC()
	for i := range discounts {
		discounts[i].Status = domain.DeriveStatus(discounts[i].Status, discounts[i].StartAt, discounts[i].EndAt, now)
	}
	return discounts, total, nil
}

// Update validates and replaces an existing discount. The usage counter
// and creation time of the stored record are preserved.
func (s *DiscountService) Update(ctx context.Context, id string, in *DiscountInput) (*domain.Discount, error) {
	if fields := in.validate(); fields != nil {
		return nil, apperr.ValidationFailed(fields)
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get discount for update: %w", err)
	}

	d := &domain.Discount{
		ID:           existing.ID,
		Title:        in.Title,
		Code:         strings.ToUpper(strings.TrimSpace(in.Code)),
		Type:         in.Type,
		Method:       in.Method,
		Status:       in.Status,
		Currency:     defaultCurrency(in.Currency),
		UsageLimit:   in.UsageLimit,
		OncePerUser:  in.OncePerUser,
		Used:         existing.Used,
		Combinations: in.Combinations,
		StartAt:      in.StartAt,
		EndAt:        in.EndAt,
		CreatedAt:    existing.CreatedAt,
		UpdatedAt:    time.Now().UTC(),
	}
	if d.Status == "" {
		d.Status = existing.Status
	}
	if err := s.normalize(d, in); err != nil {
		return nil, fmt.Errorf("normalize requirements: %w", err)
	}

	if err := s.repo.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("update discount: %w", err)
	}

	if err := s.events.DiscountUpdated(ctx, d); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish discount.updated event",
			slog.String("discount_id", d.ID),
			slog.String("error", err.Error()),
		)
	}
	return d, nil
}

// Delete removes a discount.
func (s *DiscountService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete discount: %w", err)
	}

	if err := s.events.DiscountDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish discount.deleted event",
			slog.String("discount_id", id),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// Duplicate creates a copy of an existing discount with a fresh id and
// code, a reset usage counter and Draft status.
func (s *DiscountService) Duplicate(ctx context.Context, id string) (*domain.Discount, error) {
	src, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get discount for duplicate: %w", err)
	}

	now := time.Now().UTC()
	dup := *src
	dup.ID = uuid.New().String()
	dup.Title = src.Title + " (copy)"
	if src.Code != "" {
		dup.Code = duplicateCode(src.Code)
	}
	dup.Status = domain.StatusDraft
	dup.Used = 0
	dup.CreatedAt = now
	dup.UpdatedAt = now

	if err := s.repo.Create(ctx, &dup); err != nil {
		return nil, fmt.Errorf("create duplicate discount: %w", err)
	}

	if err := s.events.DiscountCreated(ctx, &dup); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish discount.created event",
			slog.String("discount_id", dup.ID),
			slog.String("error", err.Error()),
		)
	}
	return &dup, nil
}

// CheckCode reports whether a code is available. Blank codes
// short-circuit as available without touching the store; the caller's
// required-field validation owns that case. The check is advisory: the
// unique index remains the final authority at save time.
func (s *DiscountService) CheckCode(ctx context.Context, code, excludeID string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return true, nil
	}

	count, err := s.repo.CountByCode(ctx, code, excludeID)
	if err != nil {
		return false, fmt.Errorf("check code: %w", err)
	}
	return count == 0, nil
}

func defaultCurrency(currency string) string {
	if currency == "" {
		return "USD"
	}
	return strings.ToUpper(currency)
}

// duplicateCode derives a new code for a duplicated discount. A short
// random suffix keeps repeated duplication from colliding.
func duplicateCode(code string) string {
	suffix := strings.ToUpper(uuid.New().String()[:8])
	return fmt.Sprintf("%s-COPY-%s", code, suffix)
}
