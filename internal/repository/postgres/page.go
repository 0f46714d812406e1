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

// PageRepository implements repository.PageRepository. Sections are
// stored as a single JSONB column in their sort order.
type PageRepository struct {
	db database.DBTX
}

// NewPageRepository creates a PostgreSQL-backed page repository.
func NewPageRepository(db database.DBTX) *PageRepository {
	return &PageRepository{db: db}
}

const pageColumns = `id, title, slug, status, sections, created_at, updated_at`

// Create inserts a new page.
func (r *PageRepository) Create(ctx context.Context, p *domain.Page) error {
	sectionsJSON, err := json.Marshal(p.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}

	query := `
		INSERT INTO pages (id, title, slug, status, sections, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.Exec(ctx, query,
		p.ID, p.Title, p.Slug, p.Status, sectionsJSON, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.AlreadyExists("page", "slug", p.Slug)
		}
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}

// GetByID retrieves a page by its ID.
func (r *PageRepository) GetByID(ctx context.Context, id string) (*domain.Page, error) {
	query := fmt.Sprintf(`SELECT %s FROM pages WHERE id = $1`, pageColumns)

	p, err := scanPage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("page", id)
		}
		return nil, fmt.Errorf("get page: %w", err)
	}
	return p, nil
}

// List returns pages matching the filter with the total count.
func (r *PageRepository) List(ctx context.Context, filter repository.PageFilter) ([]domain.Page, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Query != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR slug ILIKE $%d)", argIndex, argIndex))
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
		FROM pages
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		pageColumns, whereClause, argIndex, argIndex+1,
	)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var (
		pages      []domain.Page
		totalCount int
	)

	for rows.Next() {
		var (
			p        domain.Page
			sections []byte
		)
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Slug, &p.Status, &sections,
			&p.CreatedAt, &p.UpdatedAt, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan page row: %w", err)
		}
		if err := fillPageSections(&p, sections); err != nil {
			return nil, 0, err
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate page rows: %w", err)
	}

	if pages == nil {
		pages = []domain.Page{}
	}
	return pages, totalCount, nil
}

// Update modifies an existing page, sections included.
func (r *PageRepository) Update(ctx context.Context, p *domain.Page) error {
	sectionsJSON, err := json.Marshal(p.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}

	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE pages
		SET title = $1, slug = $2, status = $3, sections = $4, updated_at = $5
		WHERE id = $6`

	ct, err := r.db.Exec(ctx, query,
		p.Title, p.Slug, p.Status, sectionsJSON, p.UpdatedAt, p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.AlreadyExists("page", "slug", p.Slug)
		}
		return fmt.Errorf("update page: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperr.NotFound("page", p.ID)
	}
	return nil
}

// Delete removes a page by id.
func (r *PageRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM pages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("page", id)
	}
	return nil
}

func scanPage(row rowScanner) (*domain.Page, error) {
	var (
		p        domain.Page
		sections []byte
	)
	if err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Status, &sections,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := fillPageSections(&p, sections); err != nil {
		return nil, err
	}
	return &p, nil
}

func fillPageSections(p *domain.Page, sections []byte) error {
	if sections != nil {
		if err := json.Unmarshal(sections, &p.Sections); err != nil {
			return fmt.Errorf("unmarshal sections: %w", err)
		}
	}
	if p.Sections == nil {
		p.Sections = []domain.Section{}
	}
	return nil
}
