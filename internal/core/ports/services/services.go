package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/denthub/credit-engine/internal/core/domain"
	portsrepo "github.com/denthub/credit-engine/internal/core/ports/repositories"
	"github.com/denthub/credit-engine/internal/dto"
)

// LedgerSvcFacade exposes balance accounting over the append-only credit ledger.
type LedgerSvcFacade interface {
	// AppendEntry appends one entry idempotently: replaying the same
	// (organizationID, uniqueKey) returns the stored entry without a second effect.
	AppendEntry(ctx context.Context, entry domain.LedgerEntry) (*domain.LedgerEntry, error)
	GetBalance(ctx context.Context, organizationID string) (domain.Balance, error)
	ListLedger(ctx context.Context, filter portsrepo.LedgerFilter, page, pageSize int) (*dto.LedgerPage, error)
}

// ChargeOrderSvcFacade exposes deposit-request issuance and admin reconciliation.
type ChargeOrderSvcFacade interface {
	CreateChargeOrder(ctx context.Context, organizationID, userID, depositorName string, supplyAmount decimal.Decimal) (*domain.ChargeOrder, error)
	ListChargeOrders(ctx context.Context, organizationID string) ([]domain.ChargeOrder, error)
	CancelChargeOrder(ctx context.Context, organizationID, orderID string) (*domain.ChargeOrder, error)
	GetChargeOrder(ctx context.Context, orderID string) (*domain.ChargeOrder, error)
	AdminListChargeOrders(ctx context.Context, status domain.ChargeOrderStatus) ([]domain.ChargeOrder, error)
	// AdminMatch pairs an order with a bank transaction under the same conditional
	// guards the sweep uses; force skips the deposit-code equality precheck only.
	AdminMatch(ctx context.Context, orderID, bankTransactionID, adminUserID string, force bool) error
}

// SweepResult summarizes one sweep pass.
type SweepResult struct {
	Scanned int
	Matched int
	Expired int64
}

// MatchingSvcFacade exposes bank-statement ingestion and the periodic match sweep.
type MatchingSvcFacade interface {
	UpsertBankTransaction(ctx context.Context, tx domain.BankTransaction) (*domain.BankTransaction, error)
	// RunSweep reconciles NEW bank transactions against open charge orders and
	// expires overdue orders. Callers serialize it with the job lock.
	RunSweep(ctx context.Context, limit int) (SweepResult, error)
}

// EnqueueParams describes a task to enqueue. Zero ScheduledFor means "now";
// zero MaxAttempts takes the queue default.
type EnqueueParams struct {
	TaskType     domain.TaskType
	UniqueKey    string
	Payload      []byte
	Priority     int
	MaxAttempts  int
	ScheduledFor time.Time
}

// QueueSvcFacade exposes the durable provider-task queue.
type QueueSvcFacade interface {
	// Enqueue is idempotent on uniqueKey: a duplicate returns the existing task.
	Enqueue(ctx context.Context, p EnqueueParams) (*domain.QueueTask, error)
	Lease(ctx context.Context, workerID string, taskTypes []domain.TaskType, batchSize int) ([]domain.QueueTask, error)
	Complete(ctx context.Context, taskID, workerID string, result []byte) error
	// Fail records a failed attempt: reschedule with backoff while attempts and the
	// retry window allow and the error is retryable, terminal FAILED otherwise.
	Fail(ctx context.Context, taskID string, taskErr domain.TaskError, retryable bool) error
	// Reap routes tasks stuck in PROCESSING past their lease through Fail.
	Reap(ctx context.Context) (int, error)
	Cancel(ctx context.Context, taskID string) error
	Retry(ctx context.Context, taskID string) error
	GetTask(ctx context.Context, taskID string) (*domain.QueueTask, error)
	ListTasks(ctx context.Context, status domain.TaskStatus, taskType domain.TaskType, limit int) ([]domain.QueueTask, error)
	Stats(ctx context.Context) ([]domain.QueueStat, error)
}

// WebhookSvcFacade exposes idempotent inbound-event intake.
type WebhookSvcFacade interface {
	// Record stores the event, or returns the previously stored one when the
	// provider retried the same transmissionID.
	Record(ctx context.Context, transmissionID string, eventType domain.WebhookEventType, orderID string, body []byte) (*domain.WebhookEvent, error)
	Process(ctx context.Context, event domain.WebhookEvent) error
	// ProcessPending retries RECEIVED and FAILED events in a bounded batch.
	ProcessPending(ctx context.Context, limit int) (int, error)
}
