package dto

import "github.com/denthub/credit-engine/internal/core/domain"

// ListTasksParams filters the admin task listing.
type ListTasksParams struct {
	Status   string `form:"status"`
	TaskType string `form:"taskType"`
	Limit    int    `form:"limit,default=100" binding:"omitempty,min=1,max=500"`
}

// QueueStatsResponse is the (taskType, status) count matrix.
type QueueStatsResponse struct {
	Stats map[string]map[string]int64 `json:"stats"`
}

// ToQueueStatsResponse pivots the flat stat rows into the nested matrix the
// admin panel renders.
func ToQueueStatsResponse(stats []domain.QueueStat) QueueStatsResponse {
	out := QueueStatsResponse{Stats: make(map[string]map[string]int64)}
	for _, s := range stats {
		byStatus, ok := out.Stats[string(s.TaskType)]
		if !ok {
			byStatus = make(map[string]int64)
			out.Stats[string(s.TaskType)] = byStatus
		}
		byStatus[string(s.Status)] = s.Count
	}
	return out
}

// TaskPayloads decoded by the worker, one shape per task type.

// TaxInvoiceIssuePayload drives TAX_INVOICE_ISSUE and TAX_INVOICE_CANCEL.
type TaxInvoiceIssuePayload struct {
	ChargeOrderID  string `json:"chargeOrderId"`
	OrganizationID string `json:"organizationId"`
}

// NotificationPayload drives NOTIFICATION_KAKAO, NOTIFICATION_SMS and NOTIFICATION_LMS.
type NotificationPayload struct {
	TemplateCode string `json:"templateCode,omitempty"`
	To           string `json:"to"`
	ReceiverName string `json:"receiverName,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Content      string `json:"content"`
	AltContent   string `json:"altContent,omitempty"`
}

// BankRequestPayload drives EASYFIN_BANK_REQUEST.
type BankRequestPayload struct {
	BankCode      string `json:"bankCode"`
	AccountNumber string `json:"accountNumber"`
	StartDate     string `json:"startDate"` // yyyyMMdd
	EndDate       string `json:"endDate"`   // yyyyMMdd
}

// BankCheckPayload drives EASYFIN_BANK_CHECK.
type BankCheckPayload struct {
	JobID         string `json:"jobId"`
	BankCode      string `json:"bankCode"`
	AccountNumber string `json:"accountNumber"`
}
