package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/denthub/credit-engine/internal/apperrors"
	"github.com/denthub/credit-engine/internal/core/domain"
	portsrepo "github.com/denthub/credit-engine/internal/core/ports/repositories"
	portssvc "github.com/denthub/credit-engine/internal/core/ports/services"
	"github.com/denthub/credit-engine/internal/core/services"
)

// MockChargeOrderRepository is a mock type for the ChargeOrderRepository interface
type MockChargeOrderRepository struct {
	mock.Mock
}

func (m *MockChargeOrderRepository) Save(ctx context.Context, order domain.ChargeOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockChargeOrderRepository) FindByID(ctx context.Context, orderID string) (*domain.ChargeOrder, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChargeOrder), args.Error(1)
}

func (m *MockChargeOrderRepository) FindOpenByOrganization(ctx context.Context, organizationID string, now time.Time) (*domain.ChargeOrder, error) {
	args := m.Called(ctx, organizationID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChargeOrder), args.Error(1)
}

func (m *MockChargeOrderRepository) ListByOrganization(ctx context.Context, organizationID string, limit int) ([]domain.ChargeOrder, error) {
	args := m.Called(ctx, organizationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChargeOrder), args.Error(1)
}

func (m *MockChargeOrderRepository) ListByStatus(ctx context.Context, status domain.ChargeOrderStatus, limit int) ([]domain.ChargeOrder, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChargeOrder), args.Error(1)
}

func (m *MockChargeOrderRepository) OpenDepositCodes(ctx context.Context, now time.Time) ([]string, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockChargeOrderRepository) FindOpenByAmount(ctx context.Context, amountTotal decimal.Decimal, now time.Time) ([]domain.ChargeOrder, error) {
	args := m.Called(ctx, amountTotal, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChargeOrder), args.Error(1)
}

func (m *MockChargeOrderRepository) Cancel(ctx context.Context, orderID, organizationID string) error {
	args := m.Called(ctx, orderID, organizationID)
	return args.Error(0)
}

func (m *MockChargeOrderRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChargeOrderRepository) Match(ctx context.Context, p portsrepo.MatchParams, now time.Time) error {
	args := m.Called(ctx, p, now)
	return args.Error(0)
}

// MockBankTransactionRepository is a mock type for the BankTransactionRepository interface
type MockBankTransactionRepository struct {
	mock.Mock
}

func (m *MockBankTransactionRepository) Upsert(ctx context.Context, tx domain.BankTransaction) (*domain.BankTransaction, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankTransaction), args.Error(1)
}

func (m *MockBankTransactionRepository) FindByID(ctx context.Context, transactionID string) (*domain.BankTransaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankTransaction), args.Error(1)
}

func (m *MockBankTransactionRepository) ListNew(ctx context.Context, limit int) ([]domain.BankTransaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BankTransaction), args.Error(1)
}

// --- Test Suite Setup ---

type ChargeOrderServiceTestSuite struct {
	suite.Suite
	mockOrderRepo *MockChargeOrderRepository
	mockBankRepo  *MockBankTransactionRepository
	service       portssvc.ChargeOrderSvcFacade
	orgID         string
	userID        string
}

func (suite *ChargeOrderServiceTestSuite) SetupTest() {
	suite.mockOrderRepo = new(MockChargeOrderRepository)
	suite.mockBankRepo = new(MockBankTransactionRepository)
	suite.service = services.NewChargeOrderService(suite.mockOrderRepo, suite.mockBankRepo, 24*time.Hour)
	suite.orgID = uuid.NewString()
	suite.userID = uuid.NewString()
}

// --- Test Cases ---

func (suite *ChargeOrderServiceTestSuite) TestValidateSupplyAmount() {
	cases := []struct {
		amount int64
		err    error
	}{
		{500_000, nil},
		{1_000_000, nil},
		{2_000_000, nil},
		{5_000_000, nil},
		{400_000, services.ErrAmountOutOfRange},
		{6_000_000, services.ErrAmountOutOfRange},
		{700_000, services.ErrAmountNotMultiple},  // low tier steps by 500,000
		{1_500_000, services.ErrAmountNotMultiple}, // high tier steps by 1,000,000
	}
	for _, tc := range cases {
		err := services.ValidateSupplyAmount(decimal.NewFromInt(tc.amount))
		if tc.err == nil {
			suite.NoError(err, "amount %d", tc.amount)
		} else {
			suite.ErrorIs(err, tc.err, "amount %d", tc.amount)
		}
	}

	suite.ErrorIs(services.ValidateSupplyAmount(decimal.NewFromFloat(500_000.5)), services.ErrAmountNotInteger)
}

func (suite *ChargeOrderServiceTestSuite) TestVatFor() {
	suite.True(services.VatFor(decimal.NewFromInt(2_000_000)).Equal(decimal.NewFromInt(200_000)))
	suite.True(services.VatFor(decimal.NewFromInt(500_000)).Equal(decimal.NewFromInt(50_000)))
}

func (suite *ChargeOrderServiceTestSuite) TestCreateChargeOrder_Success() {
	ctx := context.Background()
	supply := decimal.NewFromInt(2_000_000)

	suite.mockOrderRepo.On("FindOpenByOrganization", ctx, suite.orgID, mock.AnythingOfType("time.Time")).
		Return(nil, apperrors.ErrNotFound).Once()
	suite.mockOrderRepo.On("OpenDepositCodes", ctx, mock.AnythingOfType("time.Time")).
		Return([]string{"42"}, nil).Once()
	suite.mockOrderRepo.On("Save", ctx, mock.MatchedBy(func(o domain.ChargeOrder) bool {
		return o.OrganizationID == suite.orgID &&
			o.Status == domain.ChargeOrderPending &&
			o.SupplyAmount.Equal(supply) &&
			o.VatAmount.Equal(decimal.NewFromInt(200_000)) &&
			o.AmountTotal.Equal(decimal.NewFromInt(2_200_000)) &&
			len(o.DepositCode) == 2 &&
			o.DepositCode != "42"
	})).Return(nil).Once()

	order, err := suite.service.CreateChargeOrder(ctx, suite.orgID, suite.userID, "홍길동", supply)

	suite.Require().NoError(err)
	suite.Require().NotNil(order)
	suite.NotEmpty(order.OrderID)
	suite.Equal("홍길동", order.DepositorName)
	suite.WithinDuration(time.Now().Add(24*time.Hour), order.ExpiresAt, time.Second)

	suite.mockOrderRepo.AssertExpectations(suite.T())
}

func (suite *ChargeOrderServiceTestSuite) TestCreateChargeOrder_ReusesOpenOrder() {
	ctx := context.Background()
	existing := &domain.ChargeOrder{
		OrderID:        uuid.NewString(),
		OrganizationID: suite.orgID,
		DepositCode:    "17",
		Status:         domain.ChargeOrderPending,
		AmountTotal:    decimal.NewFromInt(1_100_000),
		ExpiresAt:      time.Now().Add(12 * time.Hour),
	}

	suite.mockOrderRepo.On("FindOpenByOrganization", ctx, suite.orgID, mock.AnythingOfType("time.Time")).
		Return(existing, nil).Once()

	order, err := suite.service.CreateChargeOrder(ctx, suite.orgID, suite.userID, "홍길동", decimal.NewFromInt(1_000_000))

	// The open order comes back as-is, deposit code included.
	suite.Require().NoError(err)
	suite.Equal(existing, order)

	suite.mockOrderRepo.AssertExpectations(suite.T())
	suite.mockOrderRepo.AssertNotCalled(suite.T(), "Save", mock.Anything, mock.Anything)
}

func (suite *ChargeOrderServiceTestSuite) TestCreateChargeOrder_InvalidAmount() {
	ctx := context.Background()

	order, err := suite.service.CreateChargeOrder(ctx, suite.orgID, suite.userID, "", decimal.NewFromInt(700_000))

	suite.Require().Error(err)
	suite.Nil(order)
	suite.ErrorIs(err, apperrors.ErrValidation)

	suite.mockOrderRepo.AssertNotCalled(suite.T(), "FindOpenByOrganization", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ChargeOrderServiceTestSuite) TestCreateChargeOrder_NoCodesLeft() {
	ctx := context.Background()
	codes := make([]string, 0, 99)
	for i := 1; i <= 99; i++ {
		codes = append(codes, fmt.Sprintf("%02d", i))
	}

	suite.mockOrderRepo.On("FindOpenByOrganization", ctx, suite.orgID, mock.AnythingOfType("time.Time")).
		Return(nil, apperrors.ErrNotFound).Once()
	suite.mockOrderRepo.On("OpenDepositCodes", ctx, mock.AnythingOfType("time.Time")).
		Return(codes, nil).Once()

	order, err := suite.service.CreateChargeOrder(ctx, suite.orgID, suite.userID, "", decimal.NewFromInt(1_000_000))

	suite.Require().Error(err)
	suite.Nil(order)
	suite.ErrorIs(err, apperrors.ErrConflict)

	suite.mockOrderRepo.AssertNotCalled(suite.T(), "Save", mock.Anything, mock.Anything)
}

func (suite *ChargeOrderServiceTestSuite) TestCancelChargeOrder_Success() {
	ctx := context.Background()
	orderID := uuid.NewString()
	canceled := &domain.ChargeOrder{OrderID: orderID, OrganizationID: suite.orgID, Status: domain.ChargeOrderCanceled}

	suite.mockOrderRepo.On("Cancel", ctx, orderID, suite.orgID).Return(nil).Once()
	suite.mockOrderRepo.On("FindByID", ctx, orderID).Return(canceled, nil).Once()

	order, err := suite.service.CancelChargeOrder(ctx, suite.orgID, orderID)

	suite.Require().NoError(err)
	suite.Equal(domain.ChargeOrderCanceled, order.Status)

	suite.mockOrderRepo.AssertExpectations(suite.T())
}

func (suite *ChargeOrderServiceTestSuite) TestCancelChargeOrder_NotFound() {
	ctx := context.Background()
	orderID := uuid.NewString()

	suite.mockOrderRepo.On("Cancel", ctx, orderID, suite.orgID).Return(apperrors.ErrConflict).Once()
	suite.mockOrderRepo.On("FindByID", ctx, orderID).Return(nil, apperrors.ErrNotFound).Once()

	order, err := suite.service.CancelChargeOrder(ctx, suite.orgID, orderID)

	suite.Require().Error(err)
	suite.Nil(order)
	suite.ErrorIs(err, apperrors.ErrNotFound)

	suite.mockOrderRepo.AssertExpectations(suite.T())
}

func (suite *ChargeOrderServiceTestSuite) TestCancelChargeOrder_AlreadyMatched() {
	ctx := context.Background()
	orderID := uuid.NewString()
	matched := &domain.ChargeOrder{OrderID: orderID, Status: domain.ChargeOrderMatched}

	suite.mockOrderRepo.On("Cancel", ctx, orderID, suite.orgID).Return(apperrors.ErrConflict).Once()
	suite.mockOrderRepo.On("FindByID", ctx, orderID).Return(matched, nil).Once()

	order, err := suite.service.CancelChargeOrder(ctx, suite.orgID, orderID)

	suite.Require().Error(err)
	suite.Nil(order)
	suite.ErrorIs(err, apperrors.ErrConflict)

	suite.mockOrderRepo.AssertExpectations(suite.T())
}

func (suite *ChargeOrderServiceTestSuite) adminMatchFixtures(code string, txAmount decimal.Decimal) (*domain.ChargeOrder, *domain.BankTransaction) {
	order := &domain.ChargeOrder{
		OrderID:        uuid.NewString(),
		OrganizationID: suite.orgID,
		UserID:         suite.userID,
		DepositCode:    "42",
		Status:         domain.ChargeOrderPending,
		SupplyAmount:   decimal.NewFromInt(2_000_000),
		VatAmount:      decimal.NewFromInt(200_000),
		AmountTotal:    decimal.NewFromInt(2_200_000),
	}
	tx := &domain.BankTransaction{
		TransactionID: uuid.NewString(),
		Amount:        txAmount,
		DepositCode:   code,
		Status:        domain.BankTransactionNew,
	}
	return order, tx
}

func (suite *ChargeOrderServiceTestSuite) TestAdminMatch_Success() {
	ctx := context.Background()
	adminID := uuid.NewString()
	order, tx := suite.adminMatchFixtures("42", decimal.NewFromInt(2_200_000))

	suite.mockOrderRepo.On("FindByID", ctx, order.OrderID).Return(order, nil).Once()
	suite.mockBankRepo.On("FindByID", ctx, tx.TransactionID).Return(tx, nil).Once()
	suite.mockOrderRepo.On("Match", ctx, mock.MatchedBy(func(p portsrepo.MatchParams) bool {
		return p.OrderID == order.OrderID &&
			p.BankTransactionID == tx.TransactionID &&
			p.MatchedBy == domain.MatchedByAdmin &&
			p.MatchedByUserID == adminID &&
			len(p.FromStatuses) == 2 &&
			p.LedgerUniqueKey == "chargeorder:"+order.OrderID &&
			p.SupplyAmount.Equal(order.SupplyAmount) &&
			p.TaskType == domain.TaskTaxInvoiceIssue &&
			p.TaskUniqueKey == "taxinvoice:"+order.OrderID
	}), mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.AdminMatch(ctx, order.OrderID, tx.TransactionID, adminID, false)

	suite.Require().NoError(err)
	suite.mockOrderRepo.AssertExpectations(suite.T())
	suite.mockBankRepo.AssertExpectations(suite.T())
}

func (suite *ChargeOrderServiceTestSuite) TestAdminMatch_ExpiredOrderStillMatchable() {
	ctx := context.Background()
	adminID := uuid.NewString()
	order, tx := suite.adminMatchFixtures("42", decimal.NewFromInt(2_200_000))
	order.Status = domain.ChargeOrderExpired

	suite.mockOrderRepo.On("FindByID", ctx, order.OrderID).Return(order, nil).Once()
	suite.mockBankRepo.On("FindByID", ctx, tx.TransactionID).Return(tx, nil).Once()
	suite.mockOrderRepo.On("Match", ctx, mock.AnythingOfType("repositories.MatchParams"), mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.AdminMatch(ctx, order.OrderID, tx.TransactionID, adminID, false)

	suite.Require().NoError(err)
	suite.mockOrderRepo.AssertExpectations(suite.T())
}

func (suite *ChargeOrderServiceTestSuite) TestAdminMatch_AmountMismatch() {
	ctx := context.Background()
	order, tx := suite.adminMatchFixtures("42", decimal.NewFromInt(2_000_000))

	suite.mockOrderRepo.On("FindByID", ctx, order.OrderID).Return(order, nil).Once()
	suite.mockBankRepo.On("FindByID", ctx, tx.TransactionID).Return(tx, nil).Once()

	err := suite.service.AdminMatch(ctx, order.OrderID, tx.TransactionID, uuid.NewString(), true)

	// force never waives the amount check.
	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)

	suite.mockOrderRepo.AssertNotCalled(suite.T(), "Match", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ChargeOrderServiceTestSuite) TestAdminMatch_CodeMismatch() {
	ctx := context.Background()
	order, tx := suite.adminMatchFixtures("17", decimal.NewFromInt(2_200_000))

	suite.mockOrderRepo.On("FindByID", ctx, order.OrderID).Return(order, nil).Once()
	suite.mockBankRepo.On("FindByID", ctx, tx.TransactionID).Return(tx, nil).Once()

	err := suite.service.AdminMatch(ctx, order.OrderID, tx.TransactionID, uuid.NewString(), false)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)

	suite.mockOrderRepo.AssertNotCalled(suite.T(), "Match", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ChargeOrderServiceTestSuite) TestAdminMatch_ForceWaivesCodeCheck() {
	ctx := context.Background()
	order, tx := suite.adminMatchFixtures("", decimal.NewFromInt(2_200_000))

	suite.mockOrderRepo.On("FindByID", ctx, order.OrderID).Return(order, nil).Once()
	suite.mockBankRepo.On("FindByID", ctx, tx.TransactionID).Return(tx, nil).Once()
	suite.mockOrderRepo.On("Match", ctx, mock.AnythingOfType("repositories.MatchParams"), mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.AdminMatch(ctx, order.OrderID, tx.TransactionID, uuid.NewString(), true)

	suite.Require().NoError(err)
	suite.mockOrderRepo.AssertExpectations(suite.T())
}

func (suite *ChargeOrderServiceTestSuite) TestAdminMatch_TransactionTaken() {
	ctx := context.Background()
	order, tx := suite.adminMatchFixtures("42", decimal.NewFromInt(2_200_000))
	tx.Status = domain.BankTransactionMatched

	suite.mockOrderRepo.On("FindByID", ctx, order.OrderID).Return(order, nil).Once()
	suite.mockBankRepo.On("FindByID", ctx, tx.TransactionID).Return(tx, nil).Once()

	err := suite.service.AdminMatch(ctx, order.OrderID, tx.TransactionID, uuid.NewString(), false)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *ChargeOrderServiceTestSuite) TestAdminMatch_OrderAlreadyMatched() {
	ctx := context.Background()
	order, tx := suite.adminMatchFixtures("42", decimal.NewFromInt(2_200_000))
	order.BankTransactionID = uuid.NewString()

	suite.mockOrderRepo.On("FindByID", ctx, order.OrderID).Return(order, nil).Once()

	err := suite.service.AdminMatch(ctx, order.OrderID, tx.TransactionID, uuid.NewString(), false)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrConflict)

	suite.mockBankRepo.AssertNotCalled(suite.T(), "FindByID", mock.Anything, mock.Anything)
}

// --- Run Test Suite ---

func TestChargeOrderService(t *testing.T) {
	suite.Run(t, new(ChargeOrderServiceTestSuite))
}
