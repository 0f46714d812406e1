package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/merchantkit/admin-api/internal/domain"
	"github.com/merchantkit/admin-api/internal/repository"
	"github.com/merchantkit/admin-api/internal/search"
)

// CatalogService serves the catalog search, lookup and suggestion
// endpoints consumed by the discount and listing editors.
type CatalogService struct {
	repo   repository.CatalogRepository
	engine search.Engine
	logger *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(repo repository.CatalogRepository, engine search.Engine, logger *slog.Logger) *CatalogService {
	return &CatalogService{repo: repo, engine: engine, logger: logger}
}

// SearchProducts returns products matching the query.
func (s *CatalogService) SearchProducts(ctx context.Context, filter repository.CatalogFilter) ([]domain.Product, int, error) {
	products, total, err := s.repo.SearchProducts(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("search products: %w", err)
	}
	return products, total, nil
}

// SearchCollections returns collections matching the query.
func (s *CatalogService) SearchCollections(ctx context.Context, filter repository.CatalogFilter) ([]domain.Collection, int, error) {
	collections, total, err := s.repo.SearchCollections(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("search collections: %w", err)
	}
	return collections, total, nil
}

// SearchCategories returns categories matching the query.
func (s *CatalogService) SearchCategories(ctx context.Context, filter repository.CatalogFilter) ([]domain.Category, int, error) {
	categories, total, err := s.repo.SearchCategories(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("search categories: %w", err)
	}
	return categories, total, nil
}

// GetProduct retrieves a product by id.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// GetCollection retrieves a collection by id.
func (s *CatalogService) GetCollection(ctx context.Context, id string) (*domain.Collection, error) {
	return s.repo.GetCollection(ctx, id)
}

// GetCategory retrieves a category by id.
func (s *CatalogService) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	return s.repo.GetCategory(ctx, id)
}

// GetProductBySlug resolves a product by slug, metadata handle or
// Shopify handle.
func (s *CatalogService) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return s.repo.GetProductBySlug(ctx, slug)
}

// Suggest returns search-as-you-type suggestions from the suggestion
// engine. Engine failures degrade to an empty list rather than a 5xx:
// a broken suggestion box should not block the editor.
func (s *CatalogService) Suggest(ctx context.Context, kind domain.CatalogKind, prefix string, limit int) []domain.CatalogItem {
	items, err := s.engine.Suggest(ctx, kind, prefix, limit)
	if err != nil {
		s.logger.WarnContext(ctx, "suggestion engine query failed",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return []domain.CatalogItem{}
	}
	if items == nil {
		items = []domain.CatalogItem{}
	}
	return items
}

// ReindexSuggestions rebuilds the suggestion index from the catalog
// tables. Called on startup and on demand.
func (s *CatalogService) ReindexSuggestions(ctx context.Context) error {
	var docs []search.Doc

	products, _, err := s.repo.SearchProducts(ctx, repository.CatalogFilter{Limit: 100})
	if err != nil {
		return fmt.Errorf("reindex: load products: %w", err)
	}
	for _, p := range products {
		docs = append(docs, search.Doc{ID: p.ID, Kind: domain.KindProducts, Name: p.Name, Slug: p.Slug})
	}

	collections, _, err := s.repo.SearchCollections(ctx, repository.CatalogFilter{Limit: 100})
	if err != nil {
		return fmt.Errorf("reindex: load collections: %w", err)
	}
	for _, c := range collections {
		docs = append(docs, search.Doc{ID: c.ID, Kind: domain.KindCollections, Name: c.Name, Slug: c.Slug})
	}

	categories, _, err := s.repo.SearchCategories(ctx, repository.CatalogFilter{Limit: 100})
	if err != nil {
		return fmt.Errorf("reindex: load categories: %w", err)
	}
	for _, c := range categories {
		docs = append(docs, search.Doc{ID: c.ID, Kind: domain.KindCategories, Name: c.Name, Slug: c.Slug})
	}

	if err := s.engine.BulkIndex(ctx, docs); err != nil {
		return fmt.Errorf("reindex: bulk index: %w", err)
	}

	s.logger.Info("suggestion index rebuilt", slog.Int("docs", len(docs)))
	return nil
}
