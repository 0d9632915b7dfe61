package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/denthub/credit-engine/internal/core/domain"
	portssvc "github.com/denthub/credit-engine/internal/core/ports/services"
	"github.com/denthub/credit-engine/internal/dto"
	"github.com/denthub/credit-engine/internal/middleware"
	"github.com/denthub/credit-engine/internal/platform/metrics"
)

const bankCheckDelay = 60 * time.Second

// TaskExecutor drains the provider-task queue: lease, dispatch per task type,
// then complete or fail. Every handler is safe to re-run because the provider
// side dedupes on management keys and the queue dedupes on unique keys.
type TaskExecutor struct {
	workerID     string
	queueSvc     portssvc.QueueSvcFacade
	chargeSvc    portssvc.ChargeOrderSvcFacade
	matchingSvc  portssvc.MatchingSvcFacade
	provider     portssvc.PopbillClient
	pollInterval time.Duration
	batchSize    int
}

// NewTaskExecutor creates a new TaskExecutor.
func NewTaskExecutor(workerID string, queueSvc portssvc.QueueSvcFacade, chargeSvc portssvc.ChargeOrderSvcFacade, matchingSvc portssvc.MatchingSvcFacade, provider portssvc.PopbillClient, pollInterval time.Duration, batchSize int) *TaskExecutor {
	return &TaskExecutor{
		workerID:     workerID,
		queueSvc:     queueSvc,
		chargeSvc:    chargeSvc,
		matchingSvc:  matchingSvc,
		provider:     provider,
		pollInterval: pollInterval,
		batchSize:    batchSize,
	}
}

// Run polls until ctx is cancelled.
func (e *TaskExecutor) Run(ctx context.Context) {
	logger := middleware.GetLoggerFromCtx(ctx)
	logger.Info("task executor started", "workerID", e.workerID, "pollInterval", e.pollInterval)

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		if err := e.RunOnce(ctx); err != nil {
			logger.Error("task executor pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			logger.Info("task executor stopping", "workerID", e.workerID)
			return
		case <-ticker.C:
		}
	}
}

// RunOnce leases and executes one batch. Returns the first leasing error;
// per-task failures are recorded on the task itself.
func (e *TaskExecutor) RunOnce(ctx context.Context) error {
	tasks, err := e.queueSvc.Lease(ctx, e.workerID, domain.AllTaskTypes(), e.batchSize)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		e.execute(ctx, task)
	}
	return nil
}

func (e *TaskExecutor) execute(ctx context.Context, task domain.QueueTask) {
	logger := middleware.GetLoggerFromCtx(ctx)
	start := time.Now()

	result, err := e.dispatch(ctx, task)
	metrics.TaskDuration.WithLabelValues(string(task.TaskType)).Observe(time.Since(start).Seconds())

	if err != nil {
		taskErr := domain.TaskError{Message: err.Error()}
		retryable := false
		var provErr *portssvc.ProviderError
		if errors.As(err, &provErr) {
			taskErr.Code = provErr.Code
			retryable = provErr.Retryable
		}
		disposition := "terminal"
		if retryable {
			disposition = "retried"
		}
		metrics.TasksFailed.WithLabelValues(string(task.TaskType), disposition).Inc()
		if failErr := e.queueSvc.Fail(ctx, task.TaskID, taskErr, retryable); failErr != nil {
			logger.Error("failed to record task failure", "taskID", task.TaskID, "error", failErr)
		}
		return
	}

	if err := e.queueSvc.Complete(ctx, task.TaskID, e.workerID, result); err != nil {
		// Lease lost between work and completion; the reaper will retry and
		// the provider-side dedup absorbs the duplicate call.
		logger.Warn("failed to complete task", "taskID", task.TaskID, "error", err)
		return
	}
	metrics.TasksProcessed.WithLabelValues(string(task.TaskType)).Inc()
	logger.Info("task completed", "taskID", task.TaskID, "taskType", string(task.TaskType), "attemptCount", task.AttemptCount)
}

func (e *TaskExecutor) dispatch(ctx context.Context, task domain.QueueTask) ([]byte, error) {
	switch task.TaskType {
	case domain.TaskTaxInvoiceIssue:
		return e.issueTaxInvoice(ctx, task)
	case domain.TaskTaxInvoiceCancel:
		return e.cancelTaxInvoice(ctx, task)
	case domain.TaskNotificationKakao:
		return e.sendKakao(ctx, task)
	case domain.TaskNotificationSMS, domain.TaskNotificationLMS:
		return e.sendText(ctx, task)
	case domain.TaskEasyFinBankRequest:
		return e.requestBankStatement(ctx, task)
	case domain.TaskEasyFinBankCheck:
		return e.checkBankStatement(ctx, task)
	default:
		return nil, fmt.Errorf("no handler for task type %s", task.TaskType)
	}
}

func (e *TaskExecutor) issueTaxInvoice(ctx context.Context, task domain.QueueTask) ([]byte, error) {
	var payload dto.TaxInvoiceIssuePayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return nil, fmt.Errorf("malformed invoice payload: %w", err)
	}
	order, err := e.chargeSvc.GetChargeOrder(ctx, payload.ChargeOrderID)
	if err != nil {
		return nil, err
	}

	// The order id doubles as the provider management key, so reissuing after
	// a crashed attempt lands on the same invoice.
	inv := portssvc.TaxInvoice{
		MgtKey:       order.OrderID,
		WriteDate:    time.Now().Format("20060102"),
		Description:  "credit charge",
		SupplyAmount: order.SupplyAmount,
		VatAmount:    order.VatAmount,
		TotalAmount:  order.AmountTotal,
		Buyer: portssvc.TaxInvoiceBuyer{
			CorpName:    order.DepositorName,
			ContactName: order.DepositorName,
		},
	}
	ntsConfirmNum, err := e.provider.IssueTaxInvoice(ctx, inv)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"ntsConfirmNum": ntsConfirmNum})
}

func (e *TaskExecutor) cancelTaxInvoice(ctx context.Context, task domain.QueueTask) ([]byte, error) {
	var payload dto.TaxInvoiceIssuePayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return nil, fmt.Errorf("malformed invoice payload: %w", err)
	}
	if err := e.provider.CancelTaxInvoice(ctx, payload.ChargeOrderID); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"mgtKey": payload.ChargeOrderID})
}

func (e *TaskExecutor) sendKakao(ctx context.Context, task domain.QueueTask) ([]byte, error) {
	var payload dto.NotificationPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return nil, fmt.Errorf("malformed notification payload: %w", err)
	}
	receiptNum, err := e.provider.SendKakao(ctx, portssvc.KakaoMessage{
		TemplateCode: payload.TemplateCode,
		To:           payload.To,
		ReceiverName: payload.ReceiverName,
		Content:      payload.Content,
		AltContent:   payload.AltContent,
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"receiptNum": receiptNum})
}

func (e *TaskExecutor) sendText(ctx context.Context, task domain.QueueTask) ([]byte, error) {
	var payload dto.NotificationPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return nil, fmt.Errorf("malformed notification payload: %w", err)
	}
	msg := portssvc.TextMessage{
		To:           payload.To,
		ReceiverName: payload.ReceiverName,
		Subject:      payload.Subject,
		Content:      payload.Content,
	}
	var receiptNum string
	var err error
	if task.TaskType == domain.TaskNotificationLMS {
		receiptNum, err = e.provider.SendLMS(ctx, msg)
	} else {
		receiptNum, err = e.provider.SendSMS(ctx, msg)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"receiptNum": receiptNum})
}

func (e *TaskExecutor) requestBankStatement(ctx context.Context, task domain.QueueTask) ([]byte, error) {
	var payload dto.BankRequestPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return nil, fmt.Errorf("malformed bank request payload: %w", err)
	}
	jobID, err := e.provider.RequestBankStatement(ctx, payload.BankCode, payload.AccountNumber, payload.StartDate, payload.EndDate)
	if err != nil {
		return nil, err
	}

	// Collection takes the provider a while; the check task starts deferred
	// and then polls through the queue's own backoff.
	checkPayload, err := json.Marshal(dto.BankCheckPayload{
		JobID:         jobID,
		BankCode:      payload.BankCode,
		AccountNumber: payload.AccountNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bank check payload: %w", err)
	}
	_, err = e.queueSvc.Enqueue(ctx, portssvc.EnqueueParams{
		TaskType:     domain.TaskEasyFinBankCheck,
		UniqueKey:    "bankcheck:" + jobID,
		Payload:      checkPayload,
		ScheduledFor: time.Now().Add(bankCheckDelay),
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"jobID": jobID})
}

func (e *TaskExecutor) checkBankStatement(ctx context.Context, task domain.QueueTask) ([]byte, error) {
	var payload dto.BankCheckPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return nil, fmt.Errorf("malformed bank check payload: %w", err)
	}
	entries, err := e.provider.FetchBankStatement(ctx, payload.JobID)
	if err != nil {
		return nil, err
	}

	deposits := 0
	for _, entry := range entries {
		if !entry.DepositAmount.IsPositive() {
			continue
		}
		occurredAt := entry.OccurredAt
		_, err := e.matchingSvc.UpsertBankTransaction(ctx, domain.BankTransaction{
			ExternalID:     entry.ExternalID,
			BankCode:       payload.BankCode,
			AccountNumber:  payload.AccountNumber,
			Amount:         entry.DepositAmount,
			PrintedContent: entry.PrintedContent,
			OccurredAt:     &occurredAt,
		})
		if err != nil {
			return nil, err
		}
		deposits++
	}
	return json.Marshal(map[string]int{"deposits": deposits})
}
