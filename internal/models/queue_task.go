package models

import "time"

// QueueTask is the persistence shape of one asynchronous provider task.
// Payload, Error and Result are stored as jsonb and kept opaque here.
type QueueTask struct {
	TaskID              string     `json:"taskID"`
	TaskType            string     `json:"taskType"`
	Status              string     `json:"status"`
	Priority            int        `json:"priority"`
	UniqueKey           string     `json:"uniqueKey"`
	Payload             []byte     `json:"payload"`
	AttemptCount        int        `json:"attemptCount"`
	MaxAttempts         int        `json:"maxAttempts"`
	ScheduledFor        time.Time  `json:"scheduledFor"`
	LastAttemptAt       *time.Time `json:"lastAttemptAt"`
	ProcessingStartedAt *time.Time `json:"processingStartedAt"`
	CompletedAt         *time.Time `json:"completedAt"`
	FailedAt            *time.Time `json:"failedAt"`
	LockedBy            *string    `json:"lockedBy"`
	LockedUntil         *time.Time `json:"lockedUntil"`
	ErrorMessage        *string    `json:"errorMessage"`
	ErrorCode           *string    `json:"errorCode"`
	Result              []byte     `json:"result"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// JobLock is the persistence shape of a named TTL lock row.
type JobLock struct {
	Name        string    `json:"name"`
	OwnerID     string    `json:"ownerID"`
	AcquiredAt  time.Time `json:"acquiredAt"`
	HeartbeatAt time.Time `json:"heartbeatAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// WebhookEvent is the persistence shape of one recorded inbound push.
type WebhookEvent struct {
	EventID        string     `json:"eventID"`
	TransmissionID string     `json:"transmissionID"`
	EventType      string     `json:"eventType"`
	OrderID        string     `json:"orderID"`
	Body           []byte     `json:"body"`
	ProcessStatus  string     `json:"processStatus"`
	Error          *string    `json:"error"`
	CreatedAt      time.Time  `json:"createdAt"`
	ProcessedAt    *time.Time `json:"processedAt"`
}
