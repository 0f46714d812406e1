// Package postgres implements the repository interfaces on PostgreSQL
// via pgx. Repositories accept the database.DBTX subset of the pool so
// they can be exercised with pgxmock in tests.
package postgres

import (
	"context"
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

// DiscountRepository implements repository.DiscountRepository.
type DiscountRepository struct {
	db database.DBTX
}

// NewDiscountRepository creates a PostgreSQL-backed discount repository.
func NewDiscountRepository(db database.DBTX) *DiscountRepository {
	return &DiscountRepository{db: db}
}

const discountColumns = `
	id, title, description, code, type, method, status, value, value_unit,
	currency, requirements, usage_limit, once_per_user, used,
	combines_product, combines_order, combines_shipping,
	start_at, end_at, created_at, updated_at`

// Create inserts a new discount.
func (r *DiscountRepository) Create(ctx context.Context, d *domain.Discount) error {
	query := `
		INSERT INTO discounts (
			id, title, description, code, type, method, status, value, value_unit,
			currency, requirements, usage_limit, once_per_user, used,
			combines_product, combines_order, combines_shipping,
			start_at, end_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21)`

	_, err := r.db.Exec(ctx, query,
		d.ID,
		d.Title,
		d.Description,
		d.Code,
		d.Type,
		d.Method,
		d.Status,
		d.Value,
		d.ValueUnit,
		d.Currency,
		[]byte(d.Requirements),
		d.UsageLimit,
		d.OncePerUser,
		d.Used,
		d.Combinations.Product,
		d.Combinations.Order,
		d.Combinations.Shipping,
		d.StartAt,
		d.EndAt,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.AlreadyExists("discount", "code", d.Code)
		}
		return fmt.Errorf("insert discount: %w", err)
	}

	return nil
}

// GetByID retrieves a discount by its ID.
func (r *DiscountRepository) GetByID(ctx context.Context, id string) (*domain.Discount, error) {
	query := fmt.Sprintf(`SELECT %s FROM discounts WHERE id = $1`, discountColumns)

	d, err := scanDiscount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("discount", id)
		}
		return nil, fmt.Errorf("get discount: %w", err)
	}
	return d, nil
}

// List returns discounts matching the filter with the total count. The
// free-text query matches title or code, case-insensitively.
func (r *DiscountRepository) List(ctx context.Context, filter repository.DiscountFilter) ([]domain.Discount, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Query != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR code ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.Query+"%")
		argIndex++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.Method != nil {
		conditions = append(conditions, fmt.Sprintf("method = $%d", argIndex))
		args = append(args, *filter.Method)
		argIndex++
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIndex))
		args = append(args, *filter.Type)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM discounts
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		discountColumns, whereClause, argIndex, argIndex+1,
	)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list discounts: %w", err)
	}
	defer rows.Close()

	var (
		discounts  []domain.Discount
		totalCount int
	)

	for rows.Next() {
		d, err := scanDiscountRow(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("scan discount row: %w", err)
		}
		discounts = append(discounts, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate discount rows: %w", err)
	}

	if discounts == nil {
		discounts = []domain.Discount{}
	}
	return discounts, totalCount, nil
}

// Update modifies an existing discount.
func (r *DiscountRepository) Update(ctx context.Context, d *domain.Discount) error {
	d.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE discounts
		SET title = $1, description = $2, code = $3, type = $4, method = $5,
		    status = $6, value = $7, value_unit = $8, currency = $9,
		    requirements = $10, usage_limit = $11, once_per_user = $12,
		    used = $13, combines_product = $14, combines_order = $15,
		    combines_shipping = $16, start_at = $17, end_at = $18, updated_at = $19
		WHERE id = $20`

	ct, err := r.db.Exec(ctx, query,
		d.Title,
		d.Description,
		d.Code,
		d.Type,
		d.Method,
		d.Status,
		d.Value,
		d.ValueUnit,
		d.Currency,
		[]byte(d.Requirements),
		d.UsageLimit,
		d.OncePerUser,
		d.Used,
		d.Combinations.Product,
		d.Combinations.Order,
		d.Combinations.Shipping,
		d.StartAt,
		d.EndAt,
		d.UpdatedAt,
		d.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.AlreadyExists("discount", "code", d.Code)
		}
		return fmt.Errorf("update discount: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperr.NotFound("discount", d.ID)
	}
	return nil
}

// Delete removes a discount by id.
func (r *DiscountRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM discounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete discount: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("discount", id)
	}
	return nil
}

// CountByCode counts discounts with the given code excluding the record
// identified by excludeID.
func (r *DiscountRepository) CountByCode(ctx context.Context, code, excludeID string) (int, error) {
	query := `SELECT count(*) FROM discounts WHERE lower(code) = lower($1) AND id <> $2`

	var count int
	if err := r.db.QueryRow(ctx, query, code, excludeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count discounts by code: %w", err)
	}
	return count, nil
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDiscount(row rowScanner) (*domain.Discount, error) {
	var (
		d            domain.Discount
		requirements []byte
	)
	if err := row.Scan(
		&d.ID,
		&d.Title,
		&d.Description,
		&d.Code,
		&d.Type,
		&d.Method,
		&d.Status,
		&d.Value,
		&d.ValueUnit,
		&d.Currency,
		&requirements,
		&d.UsageLimit,
		&d.OncePerUser,
		&d.Used,
		&d.Combinations.Product,
		&d.Combinations.Order,
		&d.Combinations.Shipping,
		&d.StartAt,
		&d.EndAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.Requirements = requirements
	return &d, nil
}

func scanDiscountRow(rows pgx.Rows, totalCount *int) (*domain.Discount, error) {
	var (
		d            domain.Discount
		requirements []byte
	)
	if err := rows.Scan(
		&d.ID,
		&d.Title,
		&d.Description,
		&d.Code,
		&d.Type,
		&d.Method,
		&d.Status,
		&d.Value,
		&d.ValueUnit,
		&d.Currency,
		&requirements,
		&d.UsageLimit,
		&d.OncePerUser,
		&d.Used,
		&d.Combinations.Product,
		&d.Combinations.Order,
		&d.Combinations.Shipping,
		&d.StartAt,
		&d.EndAt,
		&d.CreatedAt,
		&d.UpdatedAt,
		totalCount,
	); err != nil {
		return nil, err
	}
	d.Requirements = requirements
	return &d, nil
}

// isUniqueViolation checks for a PostgreSQL unique constraint violation
// (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
