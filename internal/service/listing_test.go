package service

import (
	"context"
	"errors"
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

type mockListingRepository struct {
	mock.Mock
}

func (m *mockListingRepository) Create(ctx context.Context, l *domain.Listing) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *mockListingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}

func (m *mockListingRepository) List(ctx context.Context, filter repository.ListingFilter) ([]domain.Listing, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Listing), args.Int(1), args.Error(2)
}

func (m *mockListingRepository) Update(ctx context.Context, l *domain.Listing) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *mockListingRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestListingService(repo *mockListingRepository) *ListingService {
	svc := NewListingService(repo, event.NopPublisher{}, testLogger())
	// collapse the retry waits so tests run instantly
	svc.backoff = []time.Duration{0, 0, 0}
	return svc
}

func sampleListing(id string) *domain.Listing {
	return &domain.Listing{
		ID:       id,
		Title:    "Hand-Painted Vase",
		Slug:     "hand-painted-vase",
		Status:   domain.ListingStatusActive,
		Currency: "USD",
	}
}

func validListingInput() *ListingInput {
	return &ListingInput{
		Title:    "Hand-Painted Vase",
		Price:    25.50,
		Currency: "usd",
		Quantity: 3,
		Status:   domain.ListingStatusActive,
		CountryPrices: []domain.CountryPriceRule{
			{ID: "r1", Country: "India", FixedPrice: fp(25.50)},
			{ID: "r2", Country: "Germany", DiscountPercentage: fp(10)},
		},
	}
}

func fp(v float64) *float64 { return &v }

func TestListingService_Create_ConvertsPrices(t *testing.T) {
	repo := new(mockListingRepository)
	svc := newTestListingService(repo)

	var stored *domain.Listing
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Listing")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.Listing) }).
		Return(nil)

	l, err := svc.Create(context.Background(), validListingInput())

	require.NoError(t, err)
	assert.Equal(t, int64(2550), l.PriceCents)
	assert.Equal(t, "USD", l.Currency)
	assert.Equal(t, "hand-painted-vase", l.Slug, "slug derives from the title when absent")

	require.NotNil(t, stored)
	require.Len(t, stored.CountryPrices, 1, "percentage rules are dropped on save")
	assert.Equal(t, domain.StoredPrice{PriceCents: 2550, Currency: "INR"}, stored.CountryPrices["IN"])
	repo.AssertExpectations(t)
}

func TestListingService_Create_Validation(t *testing.T) {
	repo := new(mockListingRepository)
	svc := newTestListingService(repo)

	in := validListingInput()
	in.Title = " "
	in.Price = -1

	_, err := svc.Create(context.Background(), in)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "title")
	assert.Contains(t, appErr.Fields, "price")
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestListingService_Update_RetriesTransientErrors(t *testing.T) {
	repo := new(mockListingRepository)
	svc := newTestListingService(repo)

	repo.On("GetByID", mock.Anything, "lst-1").Return(sampleListing("lst-1"), nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(errors.New("connection reset")).Twice()
	repo.On("Update", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := svc.Update(context.Background(), "lst-1", validListingInput())

	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "Update", 3)
}

func TestListingService_Update_ExhaustsRetries(t *testing.T) {
	repo := new(mockListingRepository)
	svc := newTestListingService(repo)

	repo.On("GetByID", mock.Anything, "lst-1").Return(sampleListing("lst-1"), nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	_, err := svc.Update(context.Background(), "lst-1", validListingInput())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 4 attempts")
	repo.AssertNumberOfCalls(t, "Update", 4)
}

func TestListingService_Update_NotFoundIsTerminal(t *testing.T) {
	repo := new(mockListingRepository)
	svc := newTestListingService(repo)

	repo.On("GetByID", mock.Anything, "lst-1").Return(sampleListing("lst-1"), nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(apperr.NotFound("listing", "lst-1"))

	_, err := svc.Update(context.Background(), "lst-1", validListingInput())

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	repo.AssertNumberOfCalls(t, "Update", 1)
}

func TestListingService_BulkUpdate_AllSucceed(t *testing.T) {
	repo := new(mockListingRepository)
	svc := newTestListingService(repo)

	repo.On("GetByID", mock.Anything, "lst-1").Return(sampleListing("lst-1"), nil)
	repo.On("GetByID", mock.Anything, "lst-2").Return(sampleListing("lst-2"), nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	err := svc.BulkUpdate(context.Background(), []BulkItem{
		{ID: "lst-1", Input: validListingInput()},
		{ID: "lst-2", Input: validListingInput()},
	})

	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "Update", 2)
}

func TestListingService_BulkUpdate_PartialFailureNoRollback(t *testing.T) {
	repo := new(mockListingRepository)
	svc := newTestListingService(repo)

	repo.On("GetByID", mock.Anything, "lst-ok").Return(sampleListing("lst-ok"), nil)
	repo.On("GetByID", mock.Anything, "lst-bad").Return(nil, apperr.NotFound("listing", "lst-bad"))
	repo.On("Update", mock.Anything, mock.MatchedBy(func(l *domain.Listing) bool {
		return l.ID == "lst-ok"
	})).Return(nil)

	err := svc.BulkUpdate(context.Background(), []BulkItem{
		{ID: "lst-ok", Input: validListingInput()},
		{ID: "lst-bad", Input: validListingInput()},
	})

	require.Error(t, err, "any single failure fails the bulk call")
	assert.Contains(t, err.Error(), "1 of 2")
	// the succeeded record stays saved
	repo.AssertCalled(t, "Update", mock.Anything, mock.MatchedBy(func(l *domain.Listing) bool {
		return l.ID == "lst-ok"
	}))
}

func TestListingService_BulkUpdate_ValidatesBeforeWriting(t *testing.T) {
	repo := new(mockListingRepository)
	svc := newTestListingService(repo)

	bad := validListingInput()
	bad.Title = ""

	err := svc.BulkUpdate(context.Background(), []BulkItem{
		{ID: "lst-1", Input: validListingInput()},
		{ID: "lst-2", Input: bad},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestListingService_GetCountryPriceRules(t *testing.T) {
	repo := new(mockListingRepository)
	svc := newTestListingService(repo)

	l := sampleListing("lst-1")
	l.CountryPrices = map[string]domain.StoredPrice{
		"IN": {PriceCents: 2550, Currency: "INR"},
	}
	repo.On("GetByID", mock.Anything, "lst-1").Return(l, nil)

	rules, err := svc.GetCountryPriceRules(context.Background(), "lst-1")

	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "India", rules[0].Country)
	assert.Equal(t, 25.50, *rules[0].FixedPrice)
}
