package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/denthub/credit-engine/internal/apperrors"
	"github.com/denthub/credit-engine/internal/core/domain"
	portsrepo "github.com/denthub/credit-engine/internal/core/ports/repositories"
	portssvc "github.com/denthub/credit-engine/internal/core/ports/services"
	"github.com/denthub/credit-engine/internal/core/services"
)

// MockLedgerRepository is a mock type for the LedgerRepository interface
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) AppendEntry(ctx context.Context, entry domain.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) FindEntryByUniqueKey(ctx context.Context, organizationID, uniqueKey string) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, organizationID, uniqueKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) FindEntriesByOrganization(ctx context.Context, organizationID string) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) ListEntries(ctx context.Context, filter portsrepo.LedgerFilter, offset, limit int) ([]domain.LedgerEntry, int64, error) {
	args := m.Called(ctx, filter, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerRepository) SumAmounts(ctx context.Context, organizationID string) (decimal.Decimal, error) {
	args := m.Called(ctx, organizationID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedgerRepository) SumFirst(ctx context.Context, filter portsrepo.LedgerFilter, n int) (decimal.Decimal, error) {
	args := m.Called(ctx, filter, n)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// --- Test Suite Setup ---

type LedgerServiceTestSuite struct {
	suite.Suite
	mockRepo *MockLedgerRepository
	service  portssvc.LedgerSvcFacade
	orgID    string
	userID   string
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockLedgerRepository)
	suite.service = services.NewLedgerService(suite.mockRepo)
	suite.orgID = uuid.NewString()
	suite.userID = uuid.NewString()
}

// --- Test Cases ---

func (suite *LedgerServiceTestSuite) TestAppendEntry_Success() {
	ctx := context.Background()
	entry := domain.LedgerEntry{
		OrganizationID: suite.orgID,
		UserID:         suite.userID,
		Type:           domain.LedgerCharge,
		Amount:         decimal.NewFromInt(1_000_000),
		UniqueKey:      "chargeorder:" + uuid.NewString(),
		CreatedBy:      suite.userID,
	}

	suite.mockRepo.On("AppendEntry", ctx, mock.MatchedBy(func(e domain.LedgerEntry) bool {
		return e.OrganizationID == suite.orgID &&
			e.Type == domain.LedgerCharge &&
			e.Amount.Equal(decimal.NewFromInt(1_000_000)) &&
			e.EntryID != "" &&
			!e.CreatedAt.IsZero()
	})).Return(nil).Once()

	stored, err := suite.service.AppendEntry(ctx, entry)

	suite.Require().NoError(err)
	suite.Require().NotNil(stored)
	suite.NotEmpty(stored.EntryID)
	suite.WithinDuration(time.Now(), stored.CreatedAt, time.Second)

	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestAppendEntry_SpendStoredNegative() {
	ctx := context.Background()
	entry := domain.LedgerEntry{
		OrganizationID: suite.orgID,
		Type:           domain.LedgerSpend,
		Amount:         decimal.NewFromInt(300_000), // caller passes positive
		UniqueKey:      "spend:" + uuid.NewString(),
	}

	suite.mockRepo.On("AppendEntry", ctx, mock.MatchedBy(func(e domain.LedgerEntry) bool {
		return e.Amount.Equal(decimal.NewFromInt(-300_000))
	})).Return(nil).Once()

	stored, err := suite.service.AppendEntry(ctx, entry)

	suite.Require().NoError(err)
	suite.True(stored.Amount.IsNegative())

	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestAppendEntry_DuplicateReturnsStoredEntry() {
	ctx := context.Background()
	uniqueKey := "webhook:" + uuid.NewString()
	existing := &domain.LedgerEntry{
		EntryID:        uuid.NewString(),
		OrganizationID: suite.orgID,
		Type:           domain.LedgerCharge,
		Amount:         decimal.NewFromInt(500_000),
		UniqueKey:      uniqueKey,
		CreatedAt:      time.Now().Add(-time.Hour),
	}
	entry := domain.LedgerEntry{
		OrganizationID: suite.orgID,
		Type:           domain.LedgerCharge,
		Amount:         decimal.NewFromInt(500_000),
		UniqueKey:      uniqueKey,
	}

	suite.mockRepo.On("AppendEntry", ctx, mock.AnythingOfType("domain.LedgerEntry")).Return(apperrors.ErrDuplicate).Once()
	suite.mockRepo.On("FindEntryByUniqueKey", ctx, suite.orgID, uniqueKey).Return(existing, nil).Once()

	stored, err := suite.service.AppendEntry(ctx, entry)

	// The replay must surface the original row, not a second effect.
	suite.Require().NoError(err)
	suite.Equal(existing, stored)

	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestAppendEntry_MissingUniqueKey() {
	ctx := context.Background()
	entry := domain.LedgerEntry{
		OrganizationID: suite.orgID,
		Type:           domain.LedgerCharge,
		Amount:         decimal.NewFromInt(500_000),
	}

	stored, err := suite.service.AppendEntry(ctx, entry)

	suite.Require().Error(err)
	suite.Nil(stored)
	suite.ErrorIs(err, apperrors.ErrValidation)

	suite.mockRepo.AssertNotCalled(suite.T(), "AppendEntry", mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestAppendEntry_ZeroAmount() {
	ctx := context.Background()
	entry := domain.LedgerEntry{
		OrganizationID: suite.orgID,
		Type:           domain.LedgerCharge,
		Amount:         decimal.Zero,
		UniqueKey:      "adjust:" + uuid.NewString(),
	}

	stored, err := suite.service.AppendEntry(ctx, entry)

	suite.Require().Error(err)
	suite.Nil(stored)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *LedgerServiceTestSuite) TestAppendEntry_UnknownType() {
	ctx := context.Background()
	entry := domain.LedgerEntry{
		OrganizationID: suite.orgID,
		Type:           domain.LedgerEntryType("TRANSFER"),
		Amount:         decimal.NewFromInt(1),
		UniqueKey:      "x:" + uuid.NewString(),
	}

	stored, err := suite.service.AppendEntry(ctx, entry)

	suite.Require().Error(err)
	suite.Nil(stored)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *LedgerServiceTestSuite) TestAppendEntry_RepoError() {
	ctx := context.Background()
	entry := domain.LedgerEntry{
		OrganizationID: suite.orgID,
		Type:           domain.LedgerBonus,
		Amount:         decimal.NewFromInt(100_000),
		UniqueKey:      "bonus:" + uuid.NewString(),
	}
	expectedErr := assert.AnError

	suite.mockRepo.On("AppendEntry", ctx, mock.AnythingOfType("domain.LedgerEntry")).Return(expectedErr).Once()

	stored, err := suite.service.AppendEntry(ctx, entry)

	suite.Require().Error(err)
	suite.Nil(stored)
	suite.ErrorIs(err, expectedErr)

	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestGetBalance_ChargeThenSpend() {
	ctx := context.Background()
	entries := []domain.LedgerEntry{
		{Type: domain.LedgerCharge, Amount: decimal.NewFromInt(1_000_000)},
		{Type: domain.LedgerSpend, Amount: decimal.NewFromInt(-300_000)},
	}

	suite.mockRepo.On("FindEntriesByOrganization", ctx, suite.orgID).Return(entries, nil).Once()

	balance, err := suite.service.GetBalance(ctx, suite.orgID)

	suite.Require().NoError(err)
	suite.True(balance.Balance.Equal(decimal.NewFromInt(700_000)), "balance = %s", balance.Balance)
	suite.True(balance.PaidBalance.Equal(decimal.NewFromInt(700_000)))
	suite.True(balance.BonusBalance.IsZero())

	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestGetBalance_BonusDrainsBeforePaid() {
	ctx := context.Background()
	entries := []domain.LedgerEntry{
		{Type: domain.LedgerCharge, Amount: decimal.NewFromInt(1_000_000)},
		{Type: domain.LedgerBonus, Amount: decimal.NewFromInt(200_000)},
		{Type: domain.LedgerSpend, Amount: decimal.NewFromInt(-300_000)},
	}

	suite.mockRepo.On("FindEntriesByOrganization", ctx, suite.orgID).Return(entries, nil).Once()

	balance, err := suite.service.GetBalance(ctx, suite.orgID)

	// The spend eats all 200,000 bonus first, then 100,000 paid.
	suite.Require().NoError(err)
	suite.True(balance.BonusBalance.IsZero())
	suite.True(balance.PaidBalance.Equal(decimal.NewFromInt(900_000)))
	suite.True(balance.Balance.Equal(decimal.NewFromInt(900_000)))

	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestGetBalance_ClampsNegativeBuckets() {
	ctx := context.Background()
	entries := []domain.LedgerEntry{
		{Type: domain.LedgerBonus, Amount: decimal.NewFromInt(200_000)},
		{Type: domain.LedgerSpend, Amount: decimal.NewFromInt(-300_000)},
	}

	suite.mockRepo.On("FindEntriesByOrganization", ctx, suite.orgID).Return(entries, nil).Once()

	balance, err := suite.service.GetBalance(ctx, suite.orgID)

	// Paid ends at -100,000 internally; the displayed bucket clamps to zero.
	suite.Require().NoError(err)
	suite.True(balance.PaidBalance.IsZero())
	suite.True(balance.BonusBalance.IsZero())
	suite.True(balance.Balance.IsZero())

	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestGetBalance_RepoError() {
	ctx := context.Background()
	expectedErr := assert.AnError

	suite.mockRepo.On("FindEntriesByOrganization", ctx, suite.orgID).Return(nil, expectedErr).Once()

	_, err := suite.service.GetBalance(ctx, suite.orgID)

	suite.Require().Error(err)
	suite.ErrorIs(err, expectedErr)
}

func (suite *LedgerServiceTestSuite) TestListLedger_RunningBalance() {
	ctx := context.Background()
	filter := portsrepo.LedgerFilter{OrganizationID: suite.orgID}
	now := time.Now()
	// Page comes back newest first.
	entries := []domain.LedgerEntry{
		{EntryID: uuid.NewString(), Type: domain.LedgerSpend, Amount: decimal.NewFromInt(-300_000), CreatedAt: now},
		{EntryID: uuid.NewString(), Type: domain.LedgerCharge, Amount: decimal.NewFromInt(1_000_000), CreatedAt: now.Add(-time.Hour)},
	}

	suite.mockRepo.On("ListEntries", ctx, filter, 0, 50).Return(entries, int64(2), nil).Once()
	suite.mockRepo.On("SumAmounts", ctx, suite.orgID).Return(decimal.NewFromInt(700_000), nil).Once()
	suite.mockRepo.On("SumFirst", ctx, filter, 0).Return(decimal.Zero, nil).Once()

	page, err := suite.service.ListLedger(ctx, filter, 1, 50)

	suite.Require().NoError(err)
	suite.Require().Len(page.Items, 2)
	suite.Equal(int64(2), page.Total)
	suite.True(page.Items[0].BalanceAfter.Equal(decimal.NewFromInt(700_000)))
	suite.True(page.Items[1].BalanceAfter.Equal(decimal.NewFromInt(1_000_000)))

	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestListLedger_SecondPageAnchorsBelowSkippedRows() {
	ctx := context.Background()
	filter := portsrepo.LedgerFilter{OrganizationID: suite.orgID}
	entries := []domain.LedgerEntry{
		{EntryID: uuid.NewString(), Type: domain.LedgerCharge, Amount: decimal.NewFromInt(1_000_000), CreatedAt: time.Now()},
	}

	// Page 2 with pageSize 1: the newest row (a -300,000 spend) is skipped.
	suite.mockRepo.On("ListEntries", ctx, filter, 1, 1).Return(entries, int64(2), nil).Once()
	suite.mockRepo.On("SumAmounts", ctx, suite.orgID).Return(decimal.NewFromInt(700_000), nil).Once()
	suite.mockRepo.On("SumFirst", ctx, filter, 1).Return(decimal.NewFromInt(-300_000), nil).Once()

	page, err := suite.service.ListLedger(ctx, filter, 2, 1)

	suite.Require().NoError(err)
	suite.Require().Len(page.Items, 1)
	suite.True(page.Items[0].BalanceAfter.Equal(decimal.NewFromInt(1_000_000)))

	suite.mockRepo.AssertExpectations(suite.T())
}

// --- Run Test Suite ---

func TestLedgerService(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}
