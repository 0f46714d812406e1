package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/merchantkit/admin-api/internal/domain"
	"github.com/merchantkit/admin-api/internal/repository"
	"github.com/merchantkit/admin-api/pkg/apperr"
	"github.com/merchantkit/admin-api/pkg/database"
)

// ListingRepository implements repository.ListingRepository.
type ListingRepository struct {
	db database.DBTX
}

// NewListingRepository creates a PostgreSQL-backed listing repository.
func NewListingRepository(db database.DBTX) *ListingRepository {
	return &ListingRepository{db: db}
}

const listingColumns = `
	id, title, slug, sku, description, status, price_cents, currency,
	quantity, seo_title, seo_description, weight_grams, requires_shipping,
	variations, media, country_prices, created_at, updated_at`

// Create inserts a new listing.
func (r *ListingRepository) Create(ctx context.Context, l *domain.Listing) error {
	countryPricesJSON, err := json.Marshal(l.CountryPrices)
	if err != nil {
		return fmt.Errorf("marshal country_prices: %w", err)
	}

	query := `
		INSERT INTO listings (
			id, title, slug, sku, description, status, price_cents, currency,
			quantity, seo_title, seo_description, weight_grams, requires_shipping,
			variations, media, country_prices, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18)`

	_, err = r.db.Exec(ctx, query,
		l.ID,
		l.Title,
		l.Slug,
		l.SKU,
		l.Description,
		l.Status,
		l.PriceCents,
		l.Currency,
		l.Quantity,
		l.SEOTitle,
		l.SEODescription,
		l.WeightGrams,
		l.RequiresShipping,
		[]byte(l.Variations),
		[]byte(l.Media),
		countryPricesJSON,
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.AlreadyExists("listing", "slug", l.Slug)
		}
		return fmt.Errorf("insert listing: %w", err)
	}

	return nil
}

// GetByID retrieves a listing by its ID.
func (r *ListingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	query := fmt.Sprintf(`SELECT %s FROM listings WHERE id = $1`, listingColumns)

	l, err := scanListing(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("listing", id)
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

// List returns listings matching the filter with the total count.
func (r *ListingRepository) List(ctx context.Context, filter repository.ListingFilter) ([]domain.Listing, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Query != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR sku ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.Query+"%")
		argIndex++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM listings
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		listingColumns, whereClause, argIndex, argIndex+1,
	)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	var (
		listings   []domain.Listing
		totalCount int
	)

	for rows.Next() {
		var (
			l                 domain.Listing
			variations, media []byte
			countryPrices     []byte
		)
		if err := rows.Scan(
			&l.ID, &l.Title, &l.Slug, &l.SKU, &l.Description, &l.Status,
			&l.PriceCents, &l.Currency, &l.Quantity, &l.SEOTitle,
			&l.SEODescription, &l.WeightGrams, &l.RequiresShipping,
			&variations, &media, &countryPrices,
			&l.CreatedAt, &l.UpdatedAt, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan listing row: %w", err)
		}
		if err := fillListingJSON(&l, variations, media, countryPrices); err != nil {
			return nil, 0, err
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate listing rows: %w", err)
	}

	if listings == nil {
		listings = []domain.Listing{}
	}
	return listings, totalCount, nil
}

// Update modifies an existing listing.
func (r *ListingRepository) Update(ctx context.Context, l *domain.Listing) error {
	countryPricesJSON, err := json.Marshal(l.CountryPrices)
	if err != nil {
		return fmt.Errorf("marshal country_prices: %w", err)
	}

	l.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE listings
		SET title = $1, slug = $2, sku = $3, description = $4, status = $5,
		    price_cents = $6, currency = $7, quantity = $8, seo_title = $9,
		    seo_description = $10, weight_grams = $11, requires_shipping = $12,
		    variations = $13, media = $14, country_prices = $15, updated_at = $16
		WHERE id = $17`

	ct, err := r.db.Exec(ctx, query,
		l.Title,
		l.Slug,
		l.SKU,
		l.Description,
		l.Status,
		l.PriceCents,
		l.Currency,
		l.Quantity,
		l.SEOTitle,
		l.SEODescription,
		l.WeightGrams,
		l.RequiresShipping,
		[]byte(l.Variations),
		[]byte(l.Media),
		countryPricesJSON,
		l.UpdatedAt,
		l.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.AlreadyExists("listing", "slug", l.Slug)
		}
		return fmt.Errorf("update listing: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperr.NotFound("listing", l.ID)
	}
	return nil
}

// Delete removes a listing by id.
func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("listing", id)
	}
	return nil
}

func scanListing(row rowScanner) (*domain.Listing, error) {
	var (
		l                 domain.Listing
		variations, media []byte
		countryPrices     []byte
	)
	if err := row.Scan(
		&l.ID, &l.Title, &l.Slug, &l.SKU, &l.Description, &l.Status,
		&l.PriceCents, &l.Currency, &l.Quantity, &l.SEOTitle,
		&l.SEODescription, &l.WeightGrams, &l.RequiresShipping,
		&variations, &media, &countryPrices,
		&l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := fillListingJSON(&l, variations, media, countryPrices); err != nil {
		return nil, err
	}
	return &l, nil
}

func fillListingJSON(l *domain.Listing, variations, media, countryPrices []byte) error {
	l.Variations = variations
	l.Media = media
	if countryPrices != nil {
		if err := json.Unmarshal(countryPrices, &l.CountryPrices); err != nil {
			return fmt.Errorf("unmarshal country_prices: %w", err)
		}
	}
	return nil
}
