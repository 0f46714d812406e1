// Package repository defines the persistence interfaces consumed by the
// service layer. Implementations live in the postgres subpackage.
package repository

import (
	"context"

	"github.com/merchantkit/admin-api/internal/domain"
)

// DiscountFilter defines filter criteria for listing discounts.
type DiscountFilter struct {
	Query  string
	Status *string
	Method *string
	Type   *string
	Limit  int
	Offset int
}

// DiscountRepository defines discount persistence operations.
type DiscountRepository interface {
	// Create inserts a new discount.
	Create(ctx context.Context, d *domain.Discount) error

	// GetByID retrieves a discount by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Discount, error)

	// List returns discounts matching the filter along with the total count.
	List(ctx context.Context, filter DiscountFilter) ([]domain.Discount, int, error)

	// Update modifies an existing discount.
	Update(ctx context.Context, d *domain.Discount) error

	// Delete removes a discount by id.
	Delete(ctx context.Context, id string) error

	// CountByCode counts discounts holding the given code, excluding the
	// record identified by excludeID. Codes compare case-insensitively.
	CountByCode(ctx context.Context, code, excludeID string) (int, error)
}

// ListingFilter defines filter criteria for listing product listings.
type ListingFilter struct {
	Query  string
	Status *string
	Limit  int
	Offset int
}

// ListingRepository defines listing persistence operations.
type ListingRepository interface {
	Create(ctx context.Context, l *domain.Listing) error
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	List(ctx context.Context, filter ListingFilter) ([]domain.Listing, int, error)
	Update(ctx context.Context, l *domain.Listing) error
	Delete(ctx context.Context, id string) error
}

// PageFilter defines filter criteria for listing dynamic pages.
type PageFilter struct {
	Query  string
	Status *string
	Limit  int
	Offset int
}

// PageRepository defines dynamic page persistence operations.
type PageRepository interface {
	Create(ctx context.Context, p *domain.Page) error
	GetByID(ctx context.Context, id string) (*domain.Page, error)
	List(ctx context.Context, filter PageFilter) ([]domain.Page, int, error)
	Update(ctx context.Context, p *domain.Page) error
	Delete(ctx context.Context, id string) error
}

// CatalogFilter defines search criteria for catalog queries.
type CatalogFilter struct {
	Query string
	Limit int
}

// CatalogRepository defines read access to the product catalog.
type CatalogRepository interface {
	// SearchProducts returns products matching the query by name prefix
	// or substring, with the total count.
	SearchProducts(ctx context.Context, filter CatalogFilter) ([]domain.Product, int, error)

	// SearchCollections returns matching collections with the total count.
	SearchCollections(ctx context.Context, filter CatalogFilter) ([]domain.Collection, int, error)

	// SearchCategories returns matching categories with the total count.
	SearchCategories(ctx context.Context, filter CatalogFilter) ([]domain.Category, int, error)

	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetCollection(ctx context.Context, id string) (*domain.Collection, error)
	GetCategory(ctx context.Context, id string) (*domain.Category, error)

	// GetProductBySlug resolves a product whose slug, metadata handle or
	// Shopify handle matches. First match wins.
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
}
