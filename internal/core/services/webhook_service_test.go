package services_test

import (
	"context"
	"encoding/json"
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
	"github.com/denthub/credit-engine/internal/dto"
)

// MockWebhookRepository is a mock type for the WebhookRepository interface
type MockWebhookRepository struct {
	mock.Mock
}

func (m *MockWebhookRepository) Insert(ctx context.Context, event domain.WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockWebhookRepository) FindByTransmissionID(ctx context.Context, transmissionID string) (*domain.WebhookEvent, error) {
	args := m.Called(ctx, transmissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WebhookEvent), args.Error(1)
}

func (m *MockWebhookRepository) MarkProcessed(ctx context.Context, eventID string, now time.Time) error {
	args := m.Called(ctx, eventID, now)
	return args.Error(0)
}

func (m *MockWebhookRepository) MarkIgnored(ctx context.Context, eventID string, now time.Time) error {
	args := m.Called(ctx, eventID, now)
	return args.Error(0)
}

func (m *MockWebhookRepository) MarkFailed(ctx context.Context, eventID, errMsg string, now time.Time) error {
	args := m.Called(ctx, eventID, errMsg, now)
	return args.Error(0)
}

func (m *MockWebhookRepository) ListRetryable(ctx context.Context, limit int) ([]domain.WebhookEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WebhookEvent), args.Error(1)
}

// MockLedgerService is a mock type for the LedgerSvcFacade interface
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) AppendEntry(ctx context.Context, entry domain.LedgerEntry) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}

func (m *MockLedgerService) GetBalance(ctx context.Context, organizationID string) (domain.Balance, error) {
	args := m.Called(ctx, organizationID)
	return args.Get(0).(domain.Balance), args.Error(1)
}

func (m *MockLedgerService) ListLedger(ctx context.Context, filter portsrepo.LedgerFilter, page, pageSize int) (*dto.LedgerPage, error) {
	args := m.Called(ctx, filter, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.LedgerPage), args.Error(1)
}

// MockQueueService is a mock type for the QueueSvcFacade interface
type MockQueueService struct {
	mock.Mock
}

func (m *MockQueueService) Enqueue(ctx context.Context, p portssvc.EnqueueParams) (*domain.QueueTask, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QueueTask), args.Error(1)
}

func (m *MockQueueService) Lease(ctx context.Context, workerID string, taskTypes []domain.TaskType, batchSize int) ([]domain.QueueTask, error) {
	args := m.Called(ctx, workerID, taskTypes, batchSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QueueTask), args.Error(1)
}

func (m *MockQueueService) Complete(ctx context.Context, taskID, workerID string, result []byte) error {
	args := m.Called(ctx, taskID, workerID, result)
	return args.Error(0)
}

func (m *MockQueueService) Fail(ctx context.Context, taskID string, taskErr domain.TaskError, retryable bool) error {
	args := m.Called(ctx, taskID, taskErr, retryable)
	return args.Error(0)
}

func (m *MockQueueService) Reap(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockQueueService) Cancel(ctx context.Context, taskID string) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

func (m *MockQueueService) Retry(ctx context.Context, taskID string) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

func (m *MockQueueService) GetTask(ctx context.Context, taskID string) (*domain.QueueTask, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QueueTask), args.Error(1)
}

func (m *MockQueueService) ListTasks(ctx context.Context, status domain.TaskStatus, taskType domain.TaskType, limit int) ([]domain.QueueTask, error) {
	args := m.Called(ctx, status, taskType, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QueueTask), args.Error(1)
}

func (m *MockQueueService) Stats(ctx context.Context) ([]domain.QueueStat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QueueStat), args.Error(1)
}

// --- Test Suite Setup ---

type WebhookServiceTestSuite struct {
	suite.Suite
	mockRepo      *MockWebhookRepository
	mockLedgerSvc *MockLedgerService
	mockQueueSvc  *MockQueueService
	service       portssvc.WebhookSvcFacade
	orgID         string
}

func (suite *WebhookServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockWebhookRepository)
	suite.mockLedgerSvc = new(MockLedgerService)
	suite.mockQueueSvc = new(MockQueueService)
	suite.service = services.NewWebhookService(suite.mockRepo, suite.mockLedgerSvc, suite.mockQueueSvc)
	suite.orgID = uuid.NewString()
}

func (suite *WebhookServiceTestSuite) depositEvent(eventType domain.WebhookEventType, amount int64) domain.WebhookEvent {
	body, err := json.Marshal(map[string]any{
		"organizationId": suite.orgID,
		"userId":         uuid.NewString(),
		"amount":         amount,
	})
	suite.Require().NoError(err)
	return domain.WebhookEvent{
		EventID:        uuid.NewString(),
		TransmissionID: "tx-" + uuid.NewString(),
		EventType:      eventType,
		Body:           body,
		ProcessStatus:  domain.WebhookReceived,
		CreatedAt:      time.Now(),
	}
}

// --- Test Cases ---

func (suite *WebhookServiceTestSuite) TestRecord_Success() {
	ctx := context.Background()
	transmissionID := "tx-" + uuid.NewString()
	body := []byte(`{"amount":550000}`)

	suite.mockRepo.On("Insert", ctx, mock.MatchedBy(func(e domain.WebhookEvent) bool {
		return e.TransmissionID == transmissionID &&
			e.EventType == domain.WebhookDepositConfirmed &&
			e.ProcessStatus == domain.WebhookReceived &&
			e.EventID != ""
	})).Return(nil).Once()

	event, err := suite.service.Record(ctx, transmissionID, domain.WebhookDepositConfirmed, "", body)

	suite.Require().NoError(err)
	suite.Require().NotNil(event)
	suite.Equal(domain.WebhookReceived, event.ProcessStatus)

	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *WebhookServiceTestSuite) TestRecord_DuplicateReturnsExisting() {
	ctx := context.Background()
	transmissionID := "tx-" + uuid.NewString()
	existing := &domain.WebhookEvent{
		EventID:        uuid.NewString(),
		TransmissionID: transmissionID,
		ProcessStatus:  domain.WebhookProcessed,
	}

	suite.mockRepo.On("Insert", ctx, mock.AnythingOfType("domain.WebhookEvent")).Return(apperrors.ErrDuplicate).Once()
	suite.mockRepo.On("FindByTransmissionID", ctx, transmissionID).Return(existing, nil).Once()

	event, err := suite.service.Record(ctx, transmissionID, domain.WebhookDepositConfirmed, "", nil)

	suite.Require().NoError(err)
	suite.Equal(existing, event)

	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *WebhookServiceTestSuite) TestRecord_MissingTransmissionID() {
	ctx := context.Background()

	event, err := suite.service.Record(ctx, "", domain.WebhookDepositConfirmed, "", nil)

	suite.Require().Error(err)
	suite.Nil(event)
	suite.ErrorIs(err, apperrors.ErrValidation)

	suite.mockRepo.AssertNotCalled(suite.T(), "Insert", mock.Anything, mock.Anything)
}

func (suite *WebhookServiceTestSuite) TestProcess_DepositConfirmedCreditsLedger() {
	ctx := context.Background()
	event := suite.depositEvent(domain.WebhookDepositConfirmed, 550_000)

	suite.mockLedgerSvc.On("AppendEntry", ctx, mock.MatchedBy(func(e domain.LedgerEntry) bool {
		return e.OrganizationID == suite.orgID &&
			e.Type == domain.LedgerCharge &&
			e.Amount.Equal(decimal.NewFromInt(550_000)) &&
			e.UniqueKey == "webhook:"+event.TransmissionID &&
			e.RefType == "WEBHOOK" &&
			e.RefID == event.EventID
	})).Return(&domain.LedgerEntry{}, nil).Once()
	suite.mockRepo.On("MarkProcessed", ctx, event.EventID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.Process(ctx, event)

	suite.Require().NoError(err)
	suite.mockLedgerSvc.AssertExpectations(suite.T())
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *WebhookServiceTestSuite) TestProcess_PaymentCanceledRefunds() {
	ctx := context.Background()
	event := suite.depositEvent(domain.WebhookPaymentCanceled, 550_000)

	suite.mockLedgerSvc.On("AppendEntry", ctx, mock.MatchedBy(func(e domain.LedgerEntry) bool {
		return e.Type == domain.LedgerRefund && e.UniqueKey == "webhook:"+event.TransmissionID
	})).Return(&domain.LedgerEntry{}, nil).Once()
	suite.mockRepo.On("MarkProcessed", ctx, event.EventID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.Process(ctx, event)

	suite.Require().NoError(err)
	suite.mockLedgerSvc.AssertExpectations(suite.T())
}

func (suite *WebhookServiceTestSuite) TestProcess_TerminalEventIsNoop() {
	ctx := context.Background()
	event := suite.depositEvent(domain.WebhookDepositConfirmed, 550_000)
	event.ProcessStatus = domain.WebhookProcessed

	err := suite.service.Process(ctx, event)

	suite.Require().NoError(err)
	suite.mockLedgerSvc.AssertNotCalled(suite.T(), "AppendEntry", mock.Anything, mock.Anything)
	suite.mockRepo.AssertNotCalled(suite.T(), "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *WebhookServiceTestSuite) TestProcess_UnknownEventTypeIgnored() {
	ctx := context.Background()
	event := suite.depositEvent(domain.WebhookEventType("CONTRACT_RENEWED"), 0)

	suite.mockRepo.On("MarkIgnored", ctx, event.EventID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.Process(ctx, event)

	suite.Require().NoError(err)
	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockLedgerSvc.AssertNotCalled(suite.T(), "AppendEntry", mock.Anything, mock.Anything)
}

func (suite *WebhookServiceTestSuite) TestProcess_StatementReadyEnqueuesCheck() {
	ctx := context.Background()
	jobID := uuid.NewString()
	body, err := json.Marshal(dto.StatementEventData{JobID: jobID, BankCode: "0004", AccountNumber: "1234567890"})
	suite.Require().NoError(err)
	event := domain.WebhookEvent{
		EventID:        uuid.NewString(),
		TransmissionID: "tx-" + uuid.NewString(),
		EventType:      domain.WebhookStatementReady,
		Body:           body,
		ProcessStatus:  domain.WebhookReceived,
	}

	suite.mockQueueSvc.On("Enqueue", ctx, mock.MatchedBy(func(p portssvc.EnqueueParams) bool {
		return p.TaskType == domain.TaskEasyFinBankCheck && p.UniqueKey == "bankcheck:"+jobID
	})).Return(&domain.QueueTask{}, nil).Once()
	suite.mockRepo.On("MarkProcessed", ctx, event.EventID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	err = suite.service.Process(ctx, event)

	suite.Require().NoError(err)
	suite.mockQueueSvc.AssertExpectations(suite.T())
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *WebhookServiceTestSuite) TestProcess_MalformedBodyMarksFailed() {
	ctx := context.Background()
	event := domain.WebhookEvent{
		EventID:        uuid.NewString(),
		TransmissionID: "tx-" + uuid.NewString(),
		EventType:      domain.WebhookDepositConfirmed,
		Body:           []byte(`{"amount":0}`), // no organization, no amount
		ProcessStatus:  domain.WebhookReceived,
	}

	suite.mockRepo.On("MarkFailed", ctx, event.EventID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.Process(ctx, event)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)

	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockRepo.AssertNotCalled(suite.T(), "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *WebhookServiceTestSuite) TestProcessPending_CountsOnlySuccesses() {
	ctx := context.Background()
	good := suite.depositEvent(domain.WebhookDepositConfirmed, 550_000)
	bad := domain.WebhookEvent{
		EventID:        uuid.NewString(),
		TransmissionID: "tx-" + uuid.NewString(),
		EventType:      domain.WebhookDepositConfirmed,
		Body:           []byte(`{}`),
		ProcessStatus:  domain.WebhookFailed,
	}

	suite.mockRepo.On("ListRetryable", ctx, 50).Return([]domain.WebhookEvent{good, bad}, nil).Once()
	suite.mockLedgerSvc.On("AppendEntry", ctx, mock.AnythingOfType("domain.LedgerEntry")).Return(&domain.LedgerEntry{}, nil).Once()
	suite.mockRepo.On("MarkProcessed", ctx, good.EventID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockRepo.On("MarkFailed", ctx, bad.EventID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Once()

	processed, err := suite.service.ProcessPending(ctx, 50)

	suite.Require().NoError(err)
	suite.Equal(1, processed)

	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockLedgerSvc.AssertExpectations(suite.T())
}

// --- Run Test Suite ---

func TestWebhookService(t *testing.T) {
	suite.Run(t, new(WebhookServiceTestSuite))
}
