package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/denthub/credit-engine/internal/core/domain"
)

// LedgerFilter narrows a ledger listing. Zero values mean "no filter".
type LedgerFilter struct {
	OrganizationID string
	Type           domain.LedgerEntryType
	From           *time.Time
	To             *time.Time
	Query          string // matched against uniqueKey and refType
}

// LedgerRepository persists the append-only credit ledger.
type LedgerRepository interface {
	// AppendEntry inserts one entry. Returns apperrors.ErrDuplicate when the
	// organization already holds an entry with the same uniqueKey.
	AppendEntry(ctx context.Context, entry domain.LedgerEntry) error
	FindEntryByUniqueKey(ctx context.Context, organizationID, uniqueKey string) (*domain.LedgerEntry, error)
	// FindEntriesByOrganization returns all entries in (createdAt, entryID) order.
	FindEntriesByOrganization(ctx context.Context, organizationID string) ([]domain.LedgerEntry, error)
	// ListEntries returns one page in (createdAt, entryID) descending order plus the filtered total.
	ListEntries(ctx context.Context, filter LedgerFilter, offset, limit int) ([]domain.LedgerEntry, int64, error)
	// SumAmounts returns the signed sum of every entry of the organization.
	SumAmounts(ctx context.Context, organizationID string) (decimal.Decimal, error)
	// SumFirst returns the signed sum of the first n filtered rows in descending order.
	SumFirst(ctx context.Context, filter LedgerFilter, n int) (decimal.Decimal, error)
}

// MatchParams describes the atomic deposit-match write: bank transaction claim,
// order transition, ledger credit and the follow-up invoice task, all in one
// database transaction guarded by conditional updates.
type MatchParams struct {
	OrderID           string
	OrganizationID    string
	UserID            string
	BankTransactionID string
	MatchedBy         domain.MatchedBy
	MatchedByUserID   string
	// FromStatuses lists the order states the transition may start from
	// (PENDING for the sweep; PENDING or EXPIRED for admin matches).
	FromStatuses []domain.ChargeOrderStatus

	LedgerUniqueKey string
	SupplyAmount    decimal.Decimal

	TaskType      domain.TaskType
	TaskUniqueKey string
	TaskPayload   []byte
}

// ChargeOrderRepository persists deposit requests and their reconciliation.
type ChargeOrderRepository interface {
	Save(ctx context.Context, order domain.ChargeOrder) error
	FindByID(ctx context.Context, orderID string) (*domain.ChargeOrder, error)
	// FindOpenByOrganization returns the newest PENDING, unexpired, unmatched order, if any.
	FindOpenByOrganization(ctx context.Context, organizationID string, now time.Time) (*domain.ChargeOrder, error)
	ListByOrganization(ctx context.Context, organizationID string, limit int) ([]domain.ChargeOrder, error)
	ListByStatus(ctx context.Context, status domain.ChargeOrderStatus, limit int) ([]domain.ChargeOrder, error)
	// OpenDepositCodes returns the deposit codes of all currently open orders.
	OpenDepositCodes(ctx context.Context, now time.Time) ([]string, error)
	// FindOpenByAmount returns open orders with the given total, newest first.
	FindOpenByAmount(ctx context.Context, amountTotal decimal.Decimal, now time.Time) ([]domain.ChargeOrder, error)
	// Cancel transitions PENDING -> CANCELED; only while no bank transaction is
	// attached. Returns apperrors.ErrConflict when the guard matches zero rows.
	Cancel(ctx context.Context, orderID, organizationID string) error
	// ExpireOverdue transitions unmatched PENDING orders past their deadline to EXPIRED.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	// Match performs the atomic match write. Returns apperrors.ErrConflict when
	// either the bank transaction or the order was already claimed.
	Match(ctx context.Context, p MatchParams, now time.Time) error
}

// BankTransactionRepository persists the deduplicated bank-statement feed.
type BankTransactionRepository interface {
	// Upsert inserts or refreshes a record keyed by externalID and returns the stored row.
	Upsert(ctx context.Context, tx domain.BankTransaction) (*domain.BankTransaction, error)
	FindByID(ctx context.Context, transactionID string) (*domain.BankTransaction, error)
	// ListNew returns unmatched transactions, oldest first.
	ListNew(ctx context.Context, limit int) ([]domain.BankTransaction, error)
}

// QueueRepository persists the durable task queue. Every transition is a
// conditional update on the previous status; zero rows affected surfaces as
// apperrors.ErrConflict.
type QueueRepository interface {
	// Insert adds a PENDING task. Returns apperrors.ErrDuplicate when uniqueKey exists.
	Insert(ctx context.Context, task domain.QueueTask) error
	FindByID(ctx context.Context, taskID string) (*domain.QueueTask, error)
	FindByUniqueKey(ctx context.Context, uniqueKey string) (*domain.QueueTask, error)
	// Lease atomically claims up to batchSize due PENDING tasks for workerID,
	// ordered by priority descending then creation time, incrementing attemptCount.
	Lease(ctx context.Context, workerID string, taskTypes []domain.TaskType, batchSize int, leaseTTL time.Duration, now time.Time) ([]domain.QueueTask, error)
	// Complete transitions PROCESSING -> COMPLETED for the current lock holder.
	Complete(ctx context.Context, taskID, workerID string, result []byte, now time.Time) error
	// Reschedule transitions PROCESSING -> PENDING with a new scheduledFor (retry backoff).
	Reschedule(ctx context.Context, taskID string, taskErr domain.TaskError, scheduledFor time.Time) error
	// MarkFailed transitions PROCESSING -> FAILED terminally.
	MarkFailed(ctx context.Context, taskID string, taskErr domain.TaskError, now time.Time) error
	// FindStuck returns PROCESSING tasks whose lease expired before now.
	FindStuck(ctx context.Context, now time.Time, limit int) ([]domain.QueueTask, error)
	// Cancel transitions PENDING|PROCESSING -> CANCELLED.
	Cancel(ctx context.Context, taskID string, now time.Time) error
	// ResetForRetry transitions FAILED -> PENDING with attemptCount reset to zero.
	ResetForRetry(ctx context.Context, taskID string, now time.Time) error
	Stats(ctx context.Context) ([]domain.QueueStat, error)
	List(ctx context.Context, status domain.TaskStatus, taskType domain.TaskType, limit int) ([]domain.QueueTask, error)
}

// JobLockRepository persists named TTL locks. Acquire is a single conditional
// upsert, never a read-then-insert.
type JobLockRepository interface {
	// Acquire claims the lock when no live row exists for name; an expired row is
	// atomically replaced. Returns apperrors.ErrConflict when another owner holds it.
	Acquire(ctx context.Context, name, ownerID string, ttl time.Duration, now time.Time) (*domain.JobLock, error)
	// Heartbeat extends expiry for the current owner only; apperrors.ErrConflict otherwise.
	Heartbeat(ctx context.Context, name, ownerID string, ttl time.Duration, now time.Time) error
	// Release deletes the row only while still owned by ownerID.
	Release(ctx context.Context, name, ownerID string) error
}

// WebhookRepository persists inbound provider events.
type WebhookRepository interface {
	// Insert records a RECEIVED event. Returns apperrors.ErrDuplicate when the
	// transmissionID was already recorded.
	Insert(ctx context.Context, event domain.WebhookEvent) error
	FindByTransmissionID(ctx context.Context, transmissionID string) (*domain.WebhookEvent, error)
	MarkProcessed(ctx context.Context, eventID string, now time.Time) error
	MarkIgnored(ctx context.Context, eventID string, now time.Time) error
	MarkFailed(ctx context.Context, eventID, errMsg string, now time.Time) error
	// ListRetryable returns RECEIVED and FAILED events for the retry sweep, oldest first.
	ListRetryable(ctx context.Context, limit int) ([]domain.WebhookEvent, error)
}
