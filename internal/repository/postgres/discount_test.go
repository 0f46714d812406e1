package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchantkit/admin-api/internal/domain"
	"github.com/merchantkit/admin-api/internal/repository"
	"github.com/merchantkit/admin-api/pkg/apperr"
	"github.com/merchantkit/admin-api/pkg/database"
)

func setupDiscountRepo(t *testing.T) (*DiscountRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewDiscountRepository(mock), mock
}

func sampleDiscount() *domain.Discount {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(30 * 24 * time.Hour)
	limit := 500
	return &domain.Discount{
		ID:          "disc-001",
		Title:       "Summer BOGO",
		Description: "Buy 2 items from 1 collection, get 1 item from 1 selected product at 20% off",
		Code:        "SUMMER-BOGO",
		Type:        domain.TypeBuyXGetY,
		Method:      domain.MethodCode,
		Status:      domain.StatusActive,
		Value:       20,
		ValueUnit:   "%",
		Currency:    "USD",
		Requirements: json.RawMessage(
			`{"buyXGetY":{"buyConditions":{"quantity":2,"scope":"specific_collections","minimumAmount":0,"products":[],"collections":["col-1"],"categories":[]},"getRewards":{"quantity":1,"discountType":"percentage","discountValue":20,"maxRewardValue":0,"products":["prod-1"],"collections":[],"categories":[]},"rules":{"applyToLowestPrice":false,"stackable":false,"autoAdd":false,"maxUsesPerOrder":null}}}`,
		),
		UsageLimit:   &limit,
		Used:         42,
		Combinations: domain.Combinations{Shipping: true},
		StartAt:      now,
		EndAt:        &end,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func discountColumnNames() []string {
	return []string{
		"id", "title", "description", "code", "type", "method", "status",
		"value", "value_unit", "currency", "requirements", "usage_limit",
		"once_per_user", "used", "combines_product", "combines_order",
		"combines_shipping", "start_at", "end_at", "created_at", "updated_at",
	}
}

func discountRow(d *domain.Discount) *pgxmock.Rows {
	return pgxmock.NewRows(discountColumnNames()).AddRow(
		d.ID, d.Title, d.Description, d.Code, d.Type, d.Method, d.Status,
		d.Value, d.ValueUnit, d.Currency, []byte(d.Requirements), d.UsageLimit,
		d.OncePerUser, d.Used, d.Combinations.Product, d.Combinations.Order,
		d.Combinations.Shipping, d.StartAt, d.EndAt, d.CreatedAt, d.UpdatedAt,
	)
}

func discountListRow(d *domain.Discount, totalCount int) *pgxmock.Rows {
	return pgxmock.NewRows(append(discountColumnNames(), "total_count")).AddRow(
		d.ID, d.Title, d.Description, d.Code, d.Type, d.Method, d.Status,
		d.Value, d.ValueUnit, d.Currency, []byte(d.Requirements), d.UsageLimit,
		d.OncePerUser, d.Used, d.Combinations.Product, d.Combinations.Order,
		d.Combinations.Shipping, d.StartAt, d.EndAt, d.CreatedAt, d.UpdatedAt,
		totalCount,
	)
}

func TestDiscountRepository_Create_Success(t *testing.T) {
	repo, mock := setupDiscountRepo(t)
	defer mock.Close()

	d := sampleDiscount()
	mock.ExpectExec("INSERT INTO discounts").
		WithArgs(
			d.ID, d.Title, d.Description, d.Code, d.Type, d.Method, d.Status,
			d.Value, d.ValueUnit, d.Currency, []byte(d.Requirements), d.UsageLimit,
			d.OncePerUser, d.Used, d.Combinations.Product, d.Combinations.Order,
			d.Combinations.Shipping, d.StartAt, d.EndAt, d.CreatedAt, d.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), d)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiscountRepository_Create_DuplicateCode(t *testing.T) {
	repo, mock := setupDiscountRepo(t)
	defer mock.Close()

	d := sampleDiscount()
	mock.ExpectExec("INSERT INTO discounts").
		WithArgs(
			d.ID, d.Title, d.Description, d.Code, d.Type, d.Method, d.Status,
			d.Value, d.ValueUnit, d.Currency, []byte(d.Requirements), d.UsageLimit,
			d.OncePerUser, d.Used, d.Combinations.Product, d.Combinations.Order,
			d.Combinations.Shipping, d.StartAt, d.EndAt, d.CreatedAt, d.UpdatedAt,
		).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "discounts_code_key" (SQLSTATE 23505)`))

	err := repo.Create(context.Background(), d)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiscountRepository_GetByID_Success(t *testing.T) {
	repo, mock := setupDiscountRepo(t)
	defer mock.Close()

	d := sampleDiscount()
	mock.ExpectQuery("SELECT (.+) FROM discounts WHERE id =").
		WithArgs(d.ID).
		WillReturnRows(discountRow(d))

	got, err := repo.GetByID(context.Background(), d.ID)

	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, d.Code, got.Code)
	assert.JSONEq(t, string(d.Requirements), string(got.Requirements))
	require.NotNil(t, got.EndAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiscountRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := setupDiscountRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM discounts WHERE id =").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiscountRepository_List_WithQuery(t *testing.T) {
	repo, mock := setupDiscountRepo(t)
	defer mock.Close()

	d := sampleDiscount()
	mock.ExpectQuery("SELECT (.+) FROM discounts").
		WithArgs("%SUMMER%", 10, 0).
		WillReturnRows(discountListRow(d, 1))

	got, total, err := repo.List(context.Background(), repository.DiscountFilter{Query: "SUMMER", Limit: 10})

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, d.ID, got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiscountRepository_List_Empty(t *testing.T) {
	repo, mock := setupDiscountRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM discounts").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows(append(discountColumnNames(), "total_count")))

	got, total, err := repo.List(context.Background(), repository.DiscountFilter{})

	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, got, "empty list serializes as [], not null")
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiscountRepository_Update_NotFound(t *testing.T) {
	repo, mock := setupDiscountRepo(t)
	defer mock.Close()

	d := sampleDiscount()
	mock.ExpectExec("UPDATE discounts").
		WithArgs(
			d.Title, d.Description, d.Code, d.Type, d.Method, d.Status,
			d.Value, d.ValueUnit, d.Currency, []byte(d.Requirements), d.UsageLimit,
			d.OncePerUser, d.Used, d.Combinations.Product, d.Combinations.Order,
			d.Combinations.Shipping, d.StartAt, d.EndAt, pgxmock.AnyArg(), d.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), d)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiscountRepository_Delete(t *testing.T) {
	repo, mock := setupDiscountRepo(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM discounts").
		WithArgs("disc-001").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.Delete(context.Background(), "disc-001"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiscountRepository_CountByCode(t *testing.T) {
	repo, mock := setupDiscountRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT count(.+) FROM discounts").
		WithArgs("SUMMER-BOGO", "disc-001").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	count, err := repo.CountByCode(context.Background(), "SUMMER-BOGO", "disc-001")

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
