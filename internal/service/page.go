package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/merchantkit/admin-api/internal/domain"
	"github.com/merchantkit/admin-api/internal/event"
	"github.com/merchantkit/admin-api/internal/repository"
	"github.com/merchantkit/admin-api/pkg/apperr"
	"github.com/merchantkit/admin-api/pkg/debounce"
	"github.com/merchantkit/admin-api/pkg/slugify"
)

const (
	pageListCacheKey = "admin:pages:list"
	pageListCacheTTL = 10 * time.Minute

	// refreshDelay is how long after the last reorder the cached page
	// list is rebuilt. Rapid consecutive reorders collapse into one
	// refresh.
	refreshDelay = 5 * time.Second
)

// PageService implements dynamic page business logic. The page list is
// cached in Redis; section reorders schedule a debounced cache refresh
// instead of rebuilding on every drag.
type PageService struct {
	repo    repository.PageRepository
	cache   *redis.Client
	events  event.Publisher
	logger  *slog.Logger
	refresh *debounce.Debouncer
}

// NewPageService creates a new page service.
func NewPageService(repo repository.PageRepository, cache *redis.Client, events event.Publisher, logger *slog.Logger) *PageService {
	s := &PageService{repo: repo, cache: cache, events: events, logger: logger}
	s.refresh = debounce.New(refreshDelay, s.refreshListCache)
	return s
}

// Close cancels any pending cache refresh.
func (s *PageService) Close() {
	s.refresh.Cancel()
}

// PageInput is the save payload for a page.
type PageInput struct {
	Title    string           `json:"title"`
	Slug     string           `json:"slug"`
	Status   string           `json:"status"`
	Sections []domain.Section `json:"sections"`
}

func (in *PageInput) validate() map[string]string {
	fields := make(map[string]string)
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "title is required"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Create validates and stores a new page.
func (s *PageService) Create(ctx context.Context, in *PageInput) (*domain.Page, error) {
	if fields := in.validate(); fields != nil {
		return nil, apperr.ValidationFailed(fields)
	}

	now := time.Now().UTC()
	p := &domain.Page{
		ID:        uuid.New().String(),
		Title:     in.Title,
		Slug:      in.Slug,
		Status:    in.Status,
		Sections:  in.Sections,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.Slug == "" {
		p.Slug = slugify.Make(in.Title)
	}
	if p.Status == "" {
		p.Status = domain.PageStatusDraft
	}
	if p.Sections == nil {
		p.Sections = []domain.Section{}
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	s.invalidateListCache(ctx)
	return p, nil
}

// Get retrieves a page by its ID.
func (s *PageService) Get(ctx context.Context, id string) (*domain.Page, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	return p, nil
}

// List returns pages matching the filter. Unfiltered first-page reads
// are served from the Redis cache when warm.
func (s *PageService) List(ctx context.Context, filter repository.PageFilter) ([]domain.Page, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	cacheable := filter.Query == "" && filter.Status == nil && filter.Offset == 0

	if cacheable {
		if pages, total, ok := s.cachedList(ctx); ok {
			if len(pages) > filter.Limit {
				pages = pages[:filter.Limit]
			}
			return pages, total, nil
		}
	}

	pages, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list pages: %w", err)
	}

	if cacheable {
		s.storeListCache(ctx, pages, total)
	}
	return pages, total, nil
}

// Update validates and replaces an existing page.
func (s *PageService) Update(ctx context.Context, id string, in *PageInput) (*domain.Page, error) {
	if fields := in.validate(); fields != nil {
		return nil, apperr.ValidationFailed(fields)
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get page for update: %w", err)
	}

	wasDraft := p.Status != domain.PageStatusPublished

	p.Title = in.Title
	if in.Slug != "" {
		p.Slug = in.Slug
	}
	if in.Status != "" {
		p.Status = in.Status
	}
	if in.Sections != nil {
		p.Sections = in.Sections
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update page: %w", err)
	}

	if wasDraft && p.Status == domain.PageStatusPublished {
		if err := s.events.PagePublished(ctx, p); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish page.published event",
				slog.String("page_id", p.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.invalidateListCache(ctx)
	return p, nil
}

// Delete removes a page.
func (s *PageService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	s.invalidateListCache(ctx)
	return nil
}

// ReorderSections applies a new section order and schedules a debounced
// refresh of the cached page list. Re-triggering before the delay fires
// resets the countdown, so a burst of drags costs one rebuild.
func (s *PageService) ReorderSections(ctx context.Context, id string, sectionIDs []string) (*domain.Page, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get page for reorder: %w", err)
	}

	p.Reorder(sectionIDs)

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update page sections: %w", err)
	}

	s.refresh.Trigger()
	return p, nil
}

type cachedPageList struct {
	Pages []domain.Page `json:"pages"`
	Total int           `json:"total"`
}

func (s *PageService) cachedList(ctx context.Context) ([]domain.Page, int, bool) {
	data, err := s.cache.Get(ctx, pageListCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.WarnContext(ctx, "page list cache read failed", slog.String("error", err.Error()))
		}
		return nil, 0, false
	}

	var cached cachedPageList
	if err := json.Unmarshal(data, &cached); err != nil {
		s.logger.WarnContext(ctx, "page list cache corrupt, dropping", slog.String("error", err.Error()))
		s.cache.Del(ctx, pageListCacheKey)
		return nil, 0, false
	}
	return cached.Pages, cached.Total, true
}

func (s *PageService) storeListCache(ctx context.Context, pages []domain.Page, total int) {
	data, err := json.Marshal(cachedPageList{Pages: pages, Total: total})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, pageListCacheKey, data, pageListCacheTTL).Err(); err != nil {
		s.logger.WarnContext(ctx, "page list cache write failed", slog.String("error", err.Error()))
	}
}

func (s *PageService) invalidateListCache(ctx context.Context) {
	if err := s.cache.Del(ctx, pageListCacheKey).Err(); err != nil {
		s.logger.WarnContext(ctx, "page list cache invalidation failed", slog.String("error", err.Error()))
	}
}

// refreshListCache rebuilds the cached page list. It runs off a timer
// with no request context, so it uses a short background timeout.
func (s *PageService) refreshListCache() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pages, total, err := s.repo.List(ctx, repository.PageFilter{Limit: 100})
	if err != nil {
		s.logger.Error("debounced page list refresh failed", slog.String("error", err.Error()))
		return
	}
	s.storeListCache(ctx, pages, total)

	s.logger.Debug("page list cache refreshed", slog.Int("pages", len(pages)))
}
