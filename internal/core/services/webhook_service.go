package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/denthub/credit-engine/internal/apperrors"
	"github.com/denthub/credit-engine/internal/core/domain"
	portsrepo "github.com/denthub/credit-engine/internal/core/ports/repositories"
	portssvc "github.com/denthub/credit-engine/internal/core/ports/services"
	"github.com/denthub/credit-engine/internal/dto"
	"github.com/denthub/credit-engine/internal/middleware"
)

// webhookService records and processes inbound provider pushes exactly once.
type webhookService struct {
	webhookRepo portsrepo.WebhookRepository
	ledgerSvc   portssvc.LedgerSvcFacade
	queueSvc    portssvc.QueueSvcFacade
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(webhookRepo portsrepo.WebhookRepository, ledgerSvc portssvc.LedgerSvcFacade, queueSvc portssvc.QueueSvcFacade) portssvc.WebhookSvcFacade {
	return &webhookService{
		webhookRepo: webhookRepo,
		ledgerSvc:   ledgerSvc,
		queueSvc:    queueSvc,
	}
}

// Ensure webhookService implements the portssvc.WebhookSvcFacade interface
var _ portssvc.WebhookSvcFacade = (*webhookService)(nil)

func (s *webhookService) Record(ctx context.Context, transmissionID string, eventType domain.WebhookEventType, orderID string, body []byte) (*domain.WebhookEvent, error) {
	if transmissionID == "" {
		return nil, apperrors.NewAppError(400, "transmissionID is required", apperrors.ErrValidation)
	}
	event := domain.WebhookEvent{
		EventID:        uuid.New().String(),
		TransmissionID: transmissionID,
		EventType:      eventType,
		OrderID:        orderID,
		Body:           body,
		ProcessStatus:  domain.WebhookReceived,
		CreatedAt:      time.Now(),
	}
	err := s.webhookRepo.Insert(ctx, event)
	if err == nil {
		return &event, nil
	}
	if errors.Is(err, apperrors.ErrDuplicate) {
		// Provider retry of a delivery already on file.
		return s.webhookRepo.FindByTransmissionID(ctx, transmissionID)
	}
	return nil, err
}

// Process applies one recorded event. Terminal events (PROCESSED, IGNORED) are
// no-ops so delivery retries and the pending sweep can both call this safely;
// the ledger unique key carries the transmissionID so even a racing double
// process credits at most once.
func (s *webhookService) Process(ctx context.Context, event domain.WebhookEvent) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if event.ProcessStatus == domain.WebhookProcessed || event.ProcessStatus == domain.WebhookIgnored {
		return nil
	}
	now := time.Now()

	var err error
	switch event.EventType {
	case domain.WebhookDepositConfirmed:
		err = s.applyDeposit(ctx, event, domain.LedgerCharge)
	case domain.WebhookPaymentCanceled:
		err = s.applyDeposit(ctx, event, domain.LedgerRefund)
	case domain.WebhookStatementReady:
		err = s.enqueueStatementCheck(ctx, event)
	default:
		logger.Info("webhook event ignored", "transmissionID", event.TransmissionID, "eventType", string(event.EventType))
		return s.webhookRepo.MarkIgnored(ctx, event.EventID, now)
	}

	if err != nil {
		if markErr := s.webhookRepo.MarkFailed(ctx, event.EventID, err.Error(), now); markErr != nil {
			logger.Error("failed to record webhook failure", "eventID", event.EventID, "error", markErr)
		}
		return err
	}
	if err := s.webhookRepo.MarkProcessed(ctx, event.EventID, now); err != nil {
		return err
	}
	logger.Info("webhook event processed", "transmissionID", event.TransmissionID, "eventType", string(event.EventType))
	return nil
}

func (s *webhookService) applyDeposit(ctx context.Context, event domain.WebhookEvent, entryType domain.LedgerEntryType) error {
	var data dto.DepositEventData
	if err := json.Unmarshal(event.Body, &data); err != nil {
		return apperrors.NewAppError(400, "malformed deposit event body", err)
	}
	if data.OrganizationID == "" || data.Amount <= 0 {
		return apperrors.NewAppError(400, "deposit event missing organizationID or amount", apperrors.ErrValidation)
	}
	_, err := s.ledgerSvc.AppendEntry(ctx, domain.LedgerEntry{
		OrganizationID: data.OrganizationID,
		UserID:         data.UserID,
		Type:           entryType,
		Amount:         decimal.NewFromInt(data.Amount),
		UniqueKey:      "webhook:" + event.TransmissionID,
		RefType:        "WEBHOOK",
		RefID:          event.EventID,
		CreatedBy:      "system",
	})
	return err
}

func (s *webhookService) enqueueStatementCheck(ctx context.Context, event domain.WebhookEvent) error {
	var data dto.StatementEventData
	if err := json.Unmarshal(event.Body, &data); err != nil {
		return apperrors.NewAppError(400, "malformed statement event body", err)
	}
	if data.JobID == "" {
		return apperrors.NewAppError(400, "statement event missing jobID", apperrors.ErrValidation)
	}
	payload, err := json.Marshal(dto.BankCheckPayload{
		JobID:         data.JobID,
		BankCode:      data.BankCode,
		AccountNumber: data.AccountNumber,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal bank check payload: %w", err)
	}
	_, err = s.queueSvc.Enqueue(ctx, portssvc.EnqueueParams{
		TaskType:  domain.TaskEasyFinBankCheck,
		UniqueKey: "bankcheck:" + data.JobID,
		Payload:   payload,
	})
	return err
}

func (s *webhookService) ProcessPending(ctx context.Context, limit int) (int, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	if limit < 1 {
		limit = 50
	}
	events, err := s.webhookRepo.ListRetryable(ctx, limit)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, event := range events {
		if err := s.Process(ctx, event); err != nil {
			// Already marked FAILED; keep the batch moving.
			logger.Warn("pending webhook event still failing", "eventID", event.EventID, "error", err)
			continue
		}
		processed++
	}
	return processed, nil
}
