package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchantkit/admin-api/internal/domain"
	"github.com/merchantkit/admin-api/pkg/database"
)

func samplePage() *domain.Page {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	return &domain.Page{
		ID:     "page-001",
		Title:  "About Us",
		Slug:   "about-us",
		Status: domain.PageStatusPublished,
		Sections: []domain.Section{
			{ID: "sec-1", Type: "hero", SortOrder: 0, Content: json.RawMessage(`{"heading":"Hello"}`)},
			{ID: "sec-2", Type: "gallery", SortOrder: 1},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPageRepository_GetByID_Success(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPageRepository(mock)

	p := samplePage()
	sectionsJSON, _ := json.Marshal(p.Sections)

	mock.ExpectQuery("SELECT (.+) FROM pages WHERE id =").
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "title", "slug", "status", "sections", "created_at", "updated_at",
		}).AddRow(p.ID, p.Title, p.Slug, p.Status, sectionsJSON, p.CreatedAt, p.UpdatedAt))

	got, err := repo.GetByID(context.Background(), p.ID)

	require.NoError(t, err)
	require.Len(t, got.Sections, 2)
	assert.Equal(t, "hero", got.Sections[0].Type)
	assert.JSONEq(t, `{"heading":"Hello"}`, string(got.Sections[0].Content))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPageRepository_GetByID_NullSections(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPageRepository(mock)

	p := samplePage()
	mock.ExpectQuery("SELECT (.+) FROM pages WHERE id =").
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "title", "slug", "status", "sections", "created_at", "updated_at",
		}).AddRow(p.ID, p.Title, p.Slug, p.Status, []byte(nil), p.CreatedAt, p.UpdatedAt))

	got, err := repo.GetByID(context.Background(), p.ID)

	require.NoError(t, err)
	assert.NotNil(t, got.Sections)
	assert.Empty(t, got.Sections)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPageRepository_Update_PersistsSectionOrder(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPageRepository(mock)

	p := samplePage()
	p.Reorder([]string{"sec-2", "sec-1"})
	sectionsJSON, _ := json.Marshal(p.Sections)

	mock.ExpectExec("UPDATE pages").
		WithArgs(p.Title, p.Slug, p.Status, sectionsJSON, pgxmock.AnyArg(), p.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Update(context.Background(), p))
	assert.Equal(t, "sec-2", p.Sections[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
