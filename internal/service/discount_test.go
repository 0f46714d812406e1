package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/merchantkit/admin-api/internal/domain"
	"github.com/merchantkit/admin-api/internal/event"
	"github.com/merchantkit/admin-api/internal/repository"
	"github.com/merchantkit/admin-api/pkg/apperr"
)

// --- Mock repository ---

type mockDiscountRepository struct {
	mock.Mock
}

func (m *mockDiscountRepository) Create(ctx context.Context, d *domain.Discount) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDiscountRepository) GetByID(ctx context.Context, id string) (*domain.Discount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Discount), args.Error(1)
}

func (m *mockDiscountRepository) List(ctx context.Context, filter repository.DiscountFilter) ([]domain.Discount, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Discount), args.Int(1), args.Error(2)
}

func (m *mockDiscountRepository) Update(ctx context.Context, d *domain.Discount) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDiscountRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockDiscountRepository) CountByCode(ctx context.Context, code, excludeID string) (int, error) {
	args := m.Called(ctx, code, excludeID)
	return args.Int(0), args.Error(1)
}

// --- Stub resolver ---

type stubResolver struct {
	names map[string]string
}

func (r *stubResolver) Resolve(_ context.Context, _ domain.CatalogKind, ids []string) []domain.CatalogItem {
	items := make([]domain.CatalogItem, 0, len(ids))
	for _, id := range ids {
		if name, ok := r.names[id]; ok {
			items = append(items, domain.CatalogItem{ID: id, Name: name})
		}
	}
	return items
}

// --- Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestDiscountService(repo *mockDiscountRepository, resolver *stubResolver) *DiscountService {
	if resolver == nil {
		resolver = &stubResolver{}
	}
	return NewDiscountService(repo, resolver, event.NopPublisher{}, testLogger())
}

func validBuyXGetYInput() *DiscountInput {
	return &DiscountInput{
		Title:    "Summer BOGO",
		Code:     "SUMMER-BOGO",
		Type:     domain.TypeBuyXGetY,
		Method:   domain.MethodCode,
		Status:   domain.StatusActive,
		Currency: "USD",
		StartAt:  time.Now().UTC(),
		Requirements: json.RawMessage(`{
			"buyXGetY": {
				"buyConditions": {"quantity": 2, "scope": "specific_collections", "minimumAmount": 0, "products": [], "collections": ["col-1"], "categories": []},
				"getRewards": {"quantity": 1, "discountType": "percentage", "discountValue": 20, "maxRewardValue": 0, "products": ["prod-1"], "collections": [], "categories": []},
				"rules": {"applyToLowestPrice": false, "stackable": false, "autoAdd": false, "maxUsesPerOrder": null}
			}
		}`),
	}
}

// --- Tests ---

func TestDiscountService_Create_DerivesFlatFields(t *testing.T) {
	repo := new(mockDiscountRepository)
	svc := newTestDiscountService(repo, nil)

	var stored *domain.Discount
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Discount")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.Discount) }).
		Return(nil)

	d, err := svc.Create(context.Background(), validBuyXGetYInput())

	require.NoError(t, err)
	assert.Equal(t, 20.0, d.Value)
	assert.Equal(t, "%", d.ValueUnit)
	assert.Contains(t, d.Description, "Buy 2 items")
	assert.Contains(t, d.Description, "20% off")
	require.NotNil(t, stored)
	assert.JSONEq(t, string(stored.Requirements), string(d.Requirements))
	repo.AssertExpectations(t)
}

func TestDiscountService_Create_ValidationGate(t *testing.T) {
	repo := new(mockDiscountRepository)
	svc := newTestDiscountService(repo, nil)

	in := validBuyXGetYInput()
	in.Requirements = json.RawMessage(`{
		"buyXGetY": {
			"buyConditions": {"quantity": 1, "scope": "any_products", "minimumAmount": 0, "products": [], "collections": [], "categories": []},
			"getRewards": {"quantity": 1, "discountType": "percentage", "discountValue": 150, "maxRewardValue": 0, "products": [], "collections": [], "categories": []},
			"rules": {"applyToLowestPrice": false, "stackable": false, "autoAdd": false, "maxUsesPerOrder": null}
		}
	}`)

	_, err := svc.Create(context.Background(), in)

	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "percentage discounts cannot exceed 100", appErr.Fields["discountValue"])
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDiscountService_Create_CollectsAllViolations(t *testing.T) {
	repo := new(mockDiscountRepository)
	svc := newTestDiscountService(repo, nil)

	endBeforeStart := time.Now().UTC().Add(-time.Hour)
	in := &DiscountInput{
		Title:   "",
		Type:    domain.TypeAmountOffProducts,
		Method:  domain.MethodCode,
		Code:    "",
		StartAt: time.Now().UTC(),
		EndAt:   &endBeforeStart,
	}

	_, err := svc.Create(context.Background(), in)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "title")
	assert.Contains(t, appErr.Fields, "discountCode")
	assert.Contains(t, appErr.Fields, "endDate")
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDiscountService_Update_MigratesLegacyRequirements(t *testing.T) {
	repo := new(mockDiscountRepository)
	svc := newTestDiscountService(repo, nil)

	existing := &domain.Discount{
		ID:        "disc-1",
		Type:      domain.TypeBuyXGetY,
		Status:    domain.StatusActive,
		Used:      7,
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
	}
	repo.On("GetByID", mock.Anything, "disc-1").Return(existing, nil)

	var stored *domain.Discount
	repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Discount")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.Discount) }).
		Return(nil)

	in := validBuyXGetYInput()
	in.Requirements = json.RawMessage(`{
		"customerBuys": {"type": "min-quantity", "quantity": 3, "appliesTo": "specific-collections", "appliesToIds": ["col-7"]},
		"customerGets": {"quantity": 1, "appliesTo": "specific-products", "appliesToIds": ["prod-2"], "discountedValue": {"type": "percentage", "value": 25}},
		"maxUsesPerOrder": true
	}`)

	d, err := svc.Update(context.Background(), "disc-1", in)

	require.NoError(t, err)
	assert.Equal(t, 7, d.Used, "usage counter survives the update")

	require.NotNil(t, stored)
	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(stored.Requirements, &wire))
	assert.Contains(t, wire, "buyXGetY", "legacy records migrate to the enhanced schema on save")
	assert.NotContains(t, wire, "customerBuys")
	assert.Equal(t, 25.0, d.Value)
	repo.AssertExpectations(t)
}

func TestDiscountService_Duplicate_ResetsUsage(t *testing.T) {
	repo := new(mockDiscountRepository)
	svc := newTestDiscountService(repo, nil)

	src := &domain.Discount{
		ID:     "disc-1",
		Title:  "Summer BOGO",
		Code:   "SUMMER",
		Type:   domain.TypeBuyXGetY,
		Status: domain.StatusActive,
		Used:   99,
	}
	repo.On("GetByID", mock.Anything, "disc-1").Return(src, nil)

	var stored *domain.Discount
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Discount")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.Discount) }).
		Return(nil)

	dup, err := svc.Duplicate(context.Background(), "disc-1")

	require.NoError(t, err)
	assert.NotEqual(t, src.ID, dup.ID)
	assert.Equal(t, "Summer BOGO (copy)", dup.Title)
	assert.NotEqual(t, src.Code, dup.Code)
	assert.Zero(t, dup.Used)
	assert.Equal(t, domain.StatusDraft, dup.Status)
	assert.Equal(t, stored, dup)
	repo.AssertExpectations(t)
}

func TestDiscountService_CheckCode_BlankShortCircuits(t *testing.T) {
	repo := new(mockDiscountRepository)
	svc := newTestDiscountService(repo, nil)

	available, err := svc.CheckCode(context.Background(), "   ", "disc-1")

	require.NoError(t, err)
	assert.True(t, available)
	repo.AssertNotCalled(t, "CountByCode", mock.Anything, mock.Anything, mock.Anything)
}

func TestDiscountService_CheckCode_Taken(t *testing.T) {
	repo := new(mockDiscountRepository)
	svc := newTestDiscountService(repo, nil)

	repo.On("CountByCode", mock.Anything, "SUMMER", "disc-1").Return(1, nil)

	available, err := svc.CheckCode(context.Background(), "SUMMER", "disc-1")

	require.NoError(t, err)
	assert.False(t, available)
	repo.AssertExpectations(t)
}

func TestDiscountService_Delete_NotFound(t *testing.T) {
	repo := new(mockDiscountRepository)
	svc := newTestDiscountService(repo, nil)

	repo.On("Delete", mock.Anything, "ghost").Return(apperr.NotFound("discount", "ghost"))

	err := svc.Delete(context.Background(), "ghost")

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDiscountService_Get_PastEndAtReadsBackExpired(t *testing.T) {
	repo := new(mockDiscountRepository)
	svc := newTestDiscountService(repo, nil)

	ended := time.Now().UTC().Add(-48 * time.Hour)
	repo.On("GetByID", mock.Anything, "disc-1").Return(&domain.Discount{
		ID:      "disc-1",
		Status:  domain.StatusActive,
		StartAt: ended.Add(-72 * time.Hour),
		EndAt:   &ended,
	}, nil)

	got, err := svc.Get(context.Background(), "disc-1")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)
}

func TestDiscountService_List_DerivesScheduleStatuses(t *testing.T) {
	repo := new(mockDiscountRepository)
	svc := newTestDiscountService(repo, nil)

	now := time.Now().UTC()
	past := now.Add(-24 * time.Hour)
	rows := []domain.Discount{
		{ID: "disc-1", Status: domain.StatusActive, StartAt: now.Add(-48 * time.Hour), EndAt: &past},
		{ID: "disc-2", Status: domain.StatusActive, StartAt: now.Add(24 * time.Hour)},
		{ID: "disc-3", Status: domain.StatusDraft, StartAt: now.Add(-48 * time.Hour), EndAt: &past},
		{ID: "disc-4", Status: domain.StatusActive, StartAt: now.Add(-1 * time.Hour)},
	}
	repo.On("List", mock.Anything, mock.Anything).Return(rows, 4, nil)

	got, _, err := svc.List(context.Background(), repository.DiscountFilter{})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got[0].Status)
	assert.Equal(t, domain.StatusScheduled, got[1].Status)
	assert.Equal(t, domain.StatusDraft, got[2].Status)
	assert.Equal(t, domain.StatusActive, got[3].Status)
}

func TestDiscountService_LoadBuyXGetYForm_ResolvesSelections(t *testing.T) {
	repo := new(mockDiscountRepository)
	resolver := &stubResolver{names: map[string]string{
		"col-1":  "Spring Collection",
		"prod-1": "Hand-Painted Vase",
	}}
	svc := newTestDiscountService(repo, resolver)

	d := &domain.Discount{
		ID:   "disc-1",
		Type: domain.TypeBuyXGetY,
		Requirements: json.RawMessage(`{
			"buyXGetY": {
				"buyConditions": {"quantity": 2, "scope": "specific_collections", "minimumAmount": 0, "products": [], "collections": ["col-1", "col-gone"], "categories": []},
				"getRewards": {"quantity": 1, "discountType": "percentage", "discountValue": 20, "maxRewardValue": 0, "products": ["prod-1"], "collections": [], "categories": []},
				"rules": {"applyToLowestPrice": false, "stackable": true, "autoAdd": false, "maxUsesPerOrder": 1}
			}
		}`),
	}
	repo.On("GetByID", mock.Anything, "disc-1").Return(d, nil)

	form, err := svc.LoadBuyXGetYForm(context.Background(), "disc-1")

	require.NoError(t, err)
	assert.Equal(t, 2, form.BuyQuantity)
	assert.Equal(t, "specific-collections", form.BuyScope)
	require.Len(t, form.BuySelections, 1, "unresolvable ids are dropped")
	assert.Equal(t, "Spring Collection", form.BuySelections[0].Name)
	require.Len(t, form.GetSelections, 1)
	assert.True(t, form.Stackable)
	require.NotNil(t, form.MaxUsesPerOrder)
	assert.Equal(t, 1, *form.MaxUsesPerOrder)
}

func TestDiscountService_LoadBuyXGetYForm_EditorMismatch(t *testing.T) {
	repo := new(mockDiscountRepository)
	svc := newTestDiscountService(repo, nil)

	d := &domain.Discount{ID: "disc-1", Type: domain.TypeAmountOffProducts}
	repo.On("GetByID", mock.Anything, "disc-1").Return(d, nil)

	_, err := svc.LoadBuyXGetYForm(context.Background(), "disc-1")

	var mismatch *EditorMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, domain.TypeAmountOffProducts, mismatch.ActualType)
}

func TestDiscountService_LoadStandardForm_EditorMismatch(t *testing.T) {
	repo := new(mockDiscountRepository)
	svc := newTestDiscountService(repo, nil)

	d := &domain.Discount{ID: "disc-1", Type: domain.TypeBuyXGetY}
	repo.On("GetByID", mock.Anything, "disc-1").Return(d, nil)

	_, err := svc.LoadStandardForm(context.Background(), "disc-1")

	var mismatch *EditorMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, domain.TypeBuyXGetY, mismatch.ActualType)
}

func TestDiscountService_LoadStandardForm_MapsMinPurchase(t *testing.T) {
	repo := new(mockDiscountRepository)
	svc := newTestDiscountService(repo, nil)

	d := &domain.Discount{
		ID:           "disc-2",
		Type:         domain.TypeAmountOffProducts,
		Value:        10,
		ValueUnit:    "%",
		Requirements: json.RawMessage(`{"minPurchaseQuantity": 3}`),
	}
	repo.On("GetByID", mock.Anything, "disc-2").Return(d, nil)

	form, err := svc.LoadStandardForm(context.Background(), "disc-2")

	require.NoError(t, err)
	assert.Equal(t, domain.MinPurchaseQuantity, form.MinPurchase)
	assert.Equal(t, 3, form.MinPurchaseQuantity)
	assert.Equal(t, "any-products", form.AppliesToScope)
	assert.NotNil(t, form.CustomerIDs)
	assert.Empty(t, form.CustomerIDs)
}

func TestDiscountService_Update_ValidationNeverHitsStore(t *testing.T) {
	repo := new(mockDiscountRepository)
	svc := newTestDiscountService(repo, nil)

	in := validBuyXGetYInput()
	in.Title = ""

	_, err := svc.Update(context.Background(), "disc-1", in)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestDiscountService_Create_RepoErrorPropagates(t *testing.T) {
	repo := new(mockDiscountRepository)
	svc := newTestDiscountService(repo, nil)

	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	_, err := svc.Create(context.Background(), validBuyXGetYInput())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
