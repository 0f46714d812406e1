package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/merchantkit/admin-api/internal/domain"
	"github.com/merchantkit/admin-api/internal/event"
	"github.com/merchantkit/admin-api/internal/repository"
	"github.com/merchantkit/admin-api/pkg/apperr"
	"github.com/merchantkit/admin-api/pkg/slugify"
)

// saveBackoff is the retry schedule for listing saves. Discount saves
// deliberately do not retry; listing saves do, because bulk edits over
// many records amplify transient store hiccups.
var saveBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// ListingService implements listing business logic.
type ListingService struct {
	repo   repository.ListingRepository
	events event.Publisher
	logger *slog.Logger

	// backoff is the wait schedule between save attempts; the attempt
	// count is len(backoff). Overridable in tests.
	backoff []time.Duration
}

// NewListingService creates a new listing service.
func NewListingService(repo repository.ListingRepository, events event.Publisher, logger *slog.Logger) *ListingService {
	return &ListingService{
		repo:    repo,
		events:  events,
		logger:  logger,
		backoff: saveBackoff,
	}
}

// ListingInput is the save payload for a listing. Price fields are in
// dollars as edited; they convert to stored cents on save. Country
// price rules convert to the stored per-country map, with percentage
// rules dropped.
type ListingInput struct {
	Title            string                    `json:"title"`
	Slug             string                    `json:"slug"`
	SKU              string                    `json:"sku"`
	Description      string                    `json:"description"`
	Status           string                    `json:"status"`
	Price            float64                   `json:"price"`
	Currency         string                    `json:"currency"`
	Quantity         int                       `json:"quantity"`
	SEOTitle         string                    `json:"seoTitle"`
	SEODescription   string                    `json:"seoDescription"`
	WeightGrams      int                       `json:"weightGrams"`
	RequiresShipping bool                      `json:"requiresShipping"`
	Variations       []byte                    `json:"-"`
	Media            []byte                    `json:"-"`
	CountryPrices    []domain.CountryPriceRule `json:"countryPrices"`
}

func (in *ListingInput) validate() map[string]string {
	fields := make(map[string]string)

	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "title is required"
	}
	if in.Price < 0 {
		fields["price"] = "price must not be negative"
	}
	if in.Quantity < 0 {
		fields["quantity"] = "quantity must not be negative"
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

func (in *ListingInput) apply(l *domain.Listing) {
	l.Title = in.Title
	l.Slug = in.Slug
	if l.Slug == "" {
		l.Slug = slugify.Make(in.Title)
	}
	l.SKU = in.SKU
	l.Description = in.Description
	l.Status = in.Status
	if l.Status == "" {
		l.Status = domain.ListingStatusDraft
	}
	l.PriceCents = int64(math.Round(in.Price * 100))
	l.Currency = defaultCurrency(in.Currency)
	l.Quantity = in.Quantity
	l.SEOTitle = in.SEOTitle
	l.SEODescription = in.SEODescription
	l.WeightGrams = in.WeightGrams
	l.RequiresShipping = in.RequiresShipping
	l.Variations = in.Variations
	l.Media = in.Media
	l.CountryPrices = domain.EncodeCountryPrices(in.CountryPrices)
}

// Create validates and stores a new listing.
func (s *ListingService) Create(ctx context.Context, in *ListingInput) (*domain.Listing, error) {
	if fields := in.validate(); fields != nil {
		return nil, apperr.ValidationFailed(fields)
	}

	now := time.Now().UTC()
	l := &domain.Listing{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now}
	in.apply(l)

	if err := s.repo.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}

	s.logger.InfoContext(ctx, "listing created", slog.String("listing_id", l.ID))
	return l, nil
}

// Get retrieves a listing by its ID.
func (s *ListingService) Get(ctx context.Context, id string) (*domain.Listing, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

// GetCountryPriceRules returns a listing's stored country prices in
// editor form.
func (s *ListingService) GetCountryPriceRules(ctx context.Context, id string) ([]domain.CountryPriceRule, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return domain.DecodeCountryPrices(l.CountryPrices), nil
}

// List returns a filtered, paginated list of listings.
func (s *ListingService) List(ctx context.Context, filter repository.ListingFilter) ([]domain.Listing, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	listings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list listings: %w", err)
	}
	return listings, total, nil
}

// Update validates and replaces an existing listing, retrying transient
// store errors per the listing save policy.
func (s *ListingService) Update(ctx context.Context, id string, in *ListingInput) (*domain.Listing, error) {
	if fields := in.validate(); fields != nil {
		return nil, apperr.ValidationFailed(fields)
	}

	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get listing for update: %w", err)
	}
	in.apply(l)

	if err := s.saveWithRetry(ctx, l); err != nil {
		return nil, err
	}

	if err := s.events.ListingUpdated(ctx, l); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish listing.updated event",
			slog.String("listing_id", l.ID),
			slog.String("error", err.Error()),
		)
	}
	return l, nil
}

// Delete removes a listing.
func (s *ListingService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	return nil
}

// BulkItem pairs a listing id with its new field values.
type BulkItem struct {
	ID    string        `json:"id"`
	Input *ListingInput `json:"input"`
}

// BulkUpdate writes every item concurrently, one save per record. Any
// single failure fails the whole call, but records that already saved
// stay saved: the operation is at-least-once, not atomic, and callers
// must treat a bulk failure as "re-check and retry", not "rolled back".
func (s *ListingService) BulkUpdate(ctx context.Context, items []BulkItem) error {
	if len(items) == 0 {
		return nil
	}

	for _, item := range items {
		if fields := item.Input.validate(); fields != nil {
			return apperr.ValidationFailed(fields)
		}
	}

	errs := make([]error, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item BulkItem) {
			defer wg.Done()

			l, err := s.repo.GetByID(ctx, item.ID)
			if err != nil {
				errs[i] = fmt.Errorf("listing %s: %w", item.ID, err)
				return
			}
			item.Input.apply(l)

			if err := s.saveWithRetry(ctx, l); err != nil {
				errs[i] = fmt.Errorf("listing %s: %w", item.ID, err)
			}
		}(i, item)
	}
	wg.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		s.logger.ErrorContext(ctx, "bulk listing update partially failed",
			slog.Int("total", len(items)),
			slog.Int("failed", len(failed)),
		)
		return fmt.Errorf("bulk update: %d of %d saves failed: %w", len(failed), len(items), errors.Join(failed...))
	}
	return nil
}

// saveWithRetry persists a listing, retrying transient errors with the
// configured backoff schedule. Not-found and conflict errors are
// terminal immediately.
func (s *ListingService) saveWithRetry(ctx context.Context, l *domain.Listing) error {
	var lastErr error
	for attempt := 0; attempt <= len(s.backoff); attempt++ {
		if attempt > 0 {
			wait := s.backoff[attempt-1]
			s.logger.WarnContext(ctx, "listing save failed, retrying",
				slog.String("listing_id", l.ID),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("save listing: %w", ctx.Err())
			case <-time.After(wait):
			}
		}

		lastErr = s.repo.Update(ctx, l)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, apperr.ErrNotFound) || errors.Is(lastErr, apperr.ErrAlreadyExists) {
			return lastErr
		}
	}
	return fmt.Errorf("save listing after %d attempts: %w", len(s.backoff)+1, lastErr)
}
