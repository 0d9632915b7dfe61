package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TaxInvoiceBuyer carries the buyer-side fields of a tax invoice.
type TaxInvoiceBuyer struct {
	BizNo        string `json:"bizNo"`
	CorpName     string `json:"corpName"`
	CEOName      string `json:"ceoName"`
	Addr         string `json:"addr"`
	BizType      string `json:"bizType"`
	BizClass     string `json:"bizClass"`
	ContactName  string `json:"contactName"`
	ContactEmail string `json:"contactEmail"`
	ContactTel   string `json:"contactTel"`
}

// TaxInvoice is the provider-facing invoice request. MgtKey is the caller-chosen
// management key and doubles as the provider-side idempotency key.
type TaxInvoice struct {
	MgtKey       string          `json:"mgtKey"`
	WriteDate    string          `json:"writeDate"` // yyyyMMdd
	Description  string          `json:"description"`
	SupplyAmount decimal.Decimal `json:"supplyAmount"`
	VatAmount    decimal.Decimal `json:"vatAmount"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Buyer        TaxInvoiceBuyer `json:"buyer"`
}

// TextMessage is an outbound SMS/LMS request.
type TextMessage struct {
	To           string `json:"to"`
	ReceiverName string `json:"receiverName"`
	Subject      string `json:"subject,omitempty"` // LMS only
	Content      string `json:"content"`
}

// KakaoMessage is an outbound KakaoTalk alim-talk request.
type KakaoMessage struct {
	TemplateCode string `json:"templateCode"`
	To           string `json:"to"`
	ReceiverName string `json:"receiverName"`
	Content      string `json:"content"`
	AltContent   string `json:"altContent"`
}

// BankStatementEntry is one statement row returned by the provider.
type BankStatementEntry struct {
	ExternalID     string
	DepositAmount  decimal.Decimal
	WithdrawAmount decimal.Decimal
	PrintedContent string
	OccurredAt     time.Time
}

// ProviderError is a classified failure from the external provider. Retryable
// errors (rate limits, statement collection still in progress) go back through
// the queue's backoff; others fail the task on first hit.
type ProviderError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %s: %s", e.Code, e.Message)
}

// PopbillClient is the contract this engine expects from the Popbill provider.
// Every call is at-least-once from the queue's perspective; implementations rely
// on the provider's own dedup keys (mgtKey, receipt numbers) for safety.
type PopbillClient interface {
	IssueTaxInvoice(ctx context.Context, inv TaxInvoice) (ntsConfirmNum string, err error)
	CancelTaxInvoice(ctx context.Context, mgtKey string) error
	SendKakao(ctx context.Context, msg KakaoMessage) (receiptNum string, err error)
	SendSMS(ctx context.Context, msg TextMessage) (receiptNum string, err error)
	SendLMS(ctx context.Context, msg TextMessage) (receiptNum string, err error)
	// RequestBankStatement starts statement collection and returns the provider job id.
	RequestBankStatement(ctx context.Context, bankCode, accountNumber, startDate, endDate string) (jobID string, err error)
	// FetchBankStatement returns collected rows; while collection is still running
	// it fails with a retryable ProviderError.
	FetchBankStatement(ctx context.Context, jobID string) ([]BankStatementEntry, error)
}
