package domain

import (
	"encoding/json"
	"time"
)

// WebhookEventType classifies an inbound provider push.
type WebhookEventType string

const (
	WebhookDepositConfirmed WebhookEventType = "DEPOSIT_CONFIRMED"
	WebhookPaymentCanceled  WebhookEventType = "PAYMENT_CANCELED"
	WebhookStatementReady   WebhookEventType = "STATEMENT_READY"
)

// WebhookProcessStatus is the processing state of a recorded webhook event.
type WebhookProcessStatus string

const (
	WebhookReceived  WebhookProcessStatus = "RECEIVED"
	WebhookProcessed WebhookProcessStatus = "PROCESSED"
	WebhookIgnored   WebhookProcessStatus = "IGNORED"
	WebhookFailed    WebhookProcessStatus = "FAILED"
)

// WebhookEvent is an idempotent record of one inbound push notification.
// TransmissionID is the provider-assigned delivery id and the dedup key:
// provider-side retries land on the existing row and are never reprocessed.
type WebhookEvent struct {
	EventID        string               `json:"eventID"`
	TransmissionID string               `json:"transmissionID"`
	EventType      WebhookEventType     `json:"eventType"`
	OrderID        string               `json:"orderID,omitempty"`
	Body           json.RawMessage      `json:"body"`
	ProcessStatus  WebhookProcessStatus `json:"processStatus"`
	Error          string               `json:"error,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
	ProcessedAt    *time.Time           `json:"processedAt,omitempty"`
}
