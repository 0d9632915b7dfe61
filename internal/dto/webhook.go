package dto

import "encoding/json"

// WebhookRequest is the inbound push payload. TransmissionID is the
// provider-assigned delivery id used for deduplication.
type WebhookRequest struct {
	TransmissionID string          `json:"transmissionId" binding:"required"`
	EventType      string          `json:"eventType" binding:"required"`
	OrderID        string          `json:"orderId"`
	Data           json.RawMessage `json:"data"`
}

// WebhookResponse acknowledges intake; Duplicate marks a provider-side retry.
type WebhookResponse struct {
	EventID   string `json:"eventID"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// DepositEventData is the data block of DEPOSIT_CONFIRMED and PAYMENT_CANCELED events.
type DepositEventData struct {
	OrganizationID string `json:"organizationId"`
	UserID         string `json:"userId"`
	Amount         int64  `json:"amount"`
}

// StatementEventData is the data block of STATEMENT_READY events.
type StatementEventData struct {
	JobID         string `json:"jobId"`
	BankCode      string `json:"bankCode"`
	AccountNumber string `json:"accountNumber"`
}
