package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/merchantkit/admin-api/internal/domain"
	"github.com/merchantkit/admin-api/internal/repository"
	"github.com/merchantkit/admin-api/pkg/apperr"
	"github.com/merchantkit/admin-api/pkg/database"
)

// CatalogRepository implements repository.CatalogRepository over the
// products, collections and categories tables.
type CatalogRepository struct {
	db database.DBTX
}

// NewCatalogRepository creates a PostgreSQL-backed catalog repository.
func NewCatalogRepository(db database.DBTX) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const productColumns = `id, name, slug, image_url, metadata, created_at, updated_at`

// SearchProducts returns products matching the query by name.
func (r *CatalogRepository) SearchProducts(ctx context.Context, filter repository.CatalogFilter) ([]domain.Product, int, error) {
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		WHERE $1 = '' OR name ILIKE '%%' || $1 || '%%'
		ORDER BY name
		LIMIT $2`, productColumns)

	rows, err := r.db.Query(ctx, query, filter.Query, searchLimit(filter))
	if err != nil {
		return nil, 0, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	var (
		products   []domain.Product
		totalCount int
	)
	for rows.Next() {
		var (
			p        domain.Product
			metadata []byte
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.ImageURL, &metadata, &p.CreatedAt, &p.UpdatedAt, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		p.Metadata = metadata
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}
	return products, totalCount, nil
}

// SearchCollections returns collections matching the query by name.
func (r *CatalogRepository) SearchCollections(ctx context.Context, filter repository.CatalogFilter) ([]domain.Collection, int, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at, count(*) OVER() AS total_count
		FROM collections
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, filter.Query, searchLimit(filter))
	if err != nil {
		return nil, 0, fmt.Errorf("search collections: %w", err)
	}
	defer rows.Close()

	var (
		collections []domain.Collection
		totalCount  int
	)
	for rows.Next() {
		var c domain.Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("scan collection row: %w", err)
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate collection rows: %w", err)
	}

	if collections == nil {
		collections = []domain.Collection{}
	}
	return collections, totalCount, nil
}

// SearchCategories returns categories matching the query by name.
func (r *CatalogRepository) SearchCategories(ctx context.Context, filter repository.CatalogFilter) ([]domain.Category, int, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at, count(*) OVER() AS total_count
		FROM categories
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, filter.Query, searchLimit(filter))
	if err != nil {
		return nil, 0, fmt.Errorf("search categories: %w", err)
	}
	defer rows.Close()

	var (
		categories []domain.Category
		totalCount int
	)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate category rows: %w", err)
	}

	if categories == nil {
		categories = []domain.Category{}
	}
	return categories, totalCount, nil
}

// GetProduct retrieves a product by its ID.
func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	return r.scanProduct(ctx, query, "product", id)
}

// GetCollection retrieves a collection by its ID.
func (r *CatalogRepository) GetCollection(ctx context.Context, id string) (*domain.Collection, error) {
	var c domain.Collection
	err := r.db.QueryRow(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM collections WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("collection", id)
		}
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return &c, nil
}

// GetCategory retrieves a category by its ID.
func (r *CatalogRepository) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	var c domain.Category
	err := r.db.QueryRow(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("category", id)
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

// GetProductBySlug resolves a product by its slug, its metadata handle
// or its Shopify handle, in that order of preference.
func (r *CatalogRepository) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE slug = $1
		   OR metadata->>'handle' = $1
		   OR metadata->'shopify'->>'handle' = $1
		ORDER BY (slug = $1) DESC,
		         (metadata->>'handle' = $1) DESC
		LIMIT 1`, productColumns)

	return r.scanProduct(ctx, query, "product", slug)
}

func (r *CatalogRepository) scanProduct(ctx context.Context, query, resource, arg string) (*domain.Product, error) {
	var (
		p        domain.Product
		metadata []byte
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&p.ID, &p.Name, &p.Slug, &p.ImageURL, &metadata, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(resource, arg)
		}
		return nil, fmt.Errorf("get %s: %w", resource, err)
	}
	p.Metadata = metadata
	return &p, nil
}

func searchLimit(filter repository.CatalogFilter) int {
	if filter.Limit <= 0 || filter.Limit > 100 {
		return 20
	}
	return filter.Limit
}
