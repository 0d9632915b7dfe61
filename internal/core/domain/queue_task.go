package domain

import (
	"encoding/json"
	"time"
)

// TaskType identifies which external-provider call a queue task performs.
type TaskType string

const (
	TaskTaxInvoiceIssue   TaskType = "TAX_INVOICE_ISSUE"
	TaskTaxInvoiceCancel  TaskType = "TAX_INVOICE_CANCEL"
	TaskNotificationKakao TaskType = "NOTIFICATION_KAKAO"
	TaskNotificationSMS   TaskType = "NOTIFICATION_SMS"
	TaskNotificationLMS   TaskType = "NOTIFICATION_LMS"
	TaskEasyFinBankRequest TaskType = "EASYFIN_BANK_REQUEST"
	TaskEasyFinBankCheck   TaskType = "EASYFIN_BANK_CHECK"
)

// AllTaskTypes lists every task type a worker may lease.
func AllTaskTypes() []TaskType {
	return []TaskType{
		TaskTaxInvoiceIssue,
		TaskTaxInvoiceCancel,
		TaskNotificationKakao,
		TaskNotificationSMS,
		TaskNotificationLMS,
		TaskEasyFinBankRequest,
		TaskEasyFinBankCheck,
	}
}

// TaskStatus is the queue task lifecycle state.
// PENDING <-> PROCESSING -> COMPLETED | FAILED -(retry)-> PENDING;
// PENDING|PROCESSING -> CANCELLED (terminal).
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskProcessing TaskStatus = "PROCESSING"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
	TaskCancelled  TaskStatus = "CANCELLED"
)

// TaskError is the recorded failure detail of the most recent attempt.
type TaskError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// QueueTask is one durable unit of asynchronous external-API work.
// The payload is opaque to the queue; workers decode it per TaskType.
type QueueTask struct {
	TaskID    string          `json:"taskID"`
	TaskType  TaskType        `json:"taskType"`
	Status    TaskStatus      `json:"status"`
	Priority  int             `json:"priority"`
	UniqueKey string          `json:"uniqueKey"`
	Payload   json.RawMessage `json:"payload"`

	AttemptCount int `json:"attemptCount"`
	MaxAttempts  int `json:"maxAttempts"`

	ScheduledFor        time.Time  `json:"scheduledFor"`
	LastAttemptAt       *time.Time `json:"lastAttemptAt,omitempty"`
	ProcessingStartedAt *time.Time `json:"processingStartedAt,omitempty"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	FailedAt            *time.Time `json:"failedAt,omitempty"`

	LockedBy    string     `json:"lockedBy,omitempty"`
	LockedUntil *time.Time `json:"lockedUntil,omitempty"`

	Error  *TaskError      `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// QueueStat is one (taskType, status) bucket of the admin stats surface.
type QueueStat struct {
	TaskType TaskType   `json:"taskType"`
	Status   TaskStatus `json:"status"`
	Count    int64      `json:"count"`
}
