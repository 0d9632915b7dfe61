package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChargeOrderStatus is the lifecycle state of a deposit request.
type ChargeOrderStatus string

const (
	ChargeOrderPending  ChargeOrderStatus = "PENDING"
	ChargeOrderMatched  ChargeOrderStatus = "MATCHED"
	ChargeOrderExpired  ChargeOrderStatus = "EXPIRED"
	ChargeOrderCanceled ChargeOrderStatus = "CANCELED"
)

// MatchedBy records whether a match was made by the sweep or an operator.
type MatchedBy string

const (
	MatchedByAuto  MatchedBy = "AUTO"
	MatchedByAdmin MatchedBy = "ADMIN"
)

// ChargeOrder is a request to deposit money, identified by a short numeric code
// written as the bank transfer memo. At most one open (PENDING, unexpired,
// unmatched) order exists per organization; re-requesting returns the open order.
type ChargeOrder struct {
	OrderID        string            `json:"orderID"`
	OrganizationID string            `json:"organizationID"`
	UserID         string            `json:"userID"`
	DepositCode    string            `json:"depositCode"`
	DepositorName  string            `json:"depositorName"`
	Status         ChargeOrderStatus `json:"status"`
	SupplyAmount   decimal.Decimal   `json:"supplyAmount"`
	VatAmount      decimal.Decimal   `json:"vatAmount"`
	AmountTotal    decimal.Decimal   `json:"amountTotal"`
	ExpiresAt      time.Time         `json:"expiresAt"`

	// BankTransactionID is set exactly once, on match; its presence is the match witness.
	BankTransactionID string     `json:"bankTransactionID,omitempty"`
	MatchedAt         *time.Time `json:"matchedAt,omitempty"`
	MatchedBy         MatchedBy  `json:"matchedBy,omitempty"`
	MatchedByUserID   string     `json:"matchedByUserID,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Open reports whether the order can still be matched at instant now.
func (o ChargeOrder) Open(now time.Time) bool {
	return o.Status == ChargeOrderPending && o.BankTransactionID == "" && o.ExpiresAt.After(now)
}

// BankTransactionStatus is the reconciliation state of an incoming deposit.
type BankTransactionStatus string

const (
	BankTransactionNew     BankTransactionStatus = "NEW"
	BankTransactionMatched BankTransactionStatus = "MATCHED"
)

// BankTransaction is one record from the bank-statement feed, deduplicated by
// ExternalID. The matcher treats it as read-mostly input: the only mutation it
// ever receives is the one-shot NEW -> MATCHED transition.
type BankTransaction struct {
	TransactionID  string                `json:"transactionID"`
	ExternalID     string                `json:"externalID"`
	BankCode       string                `json:"bankCode"`
	AccountNumber  string                `json:"accountNumber"`
	Amount         decimal.Decimal       `json:"amount"`
	PrintedContent string                `json:"printedContent"` // statement memo as printed by the depositor
	DepositCode    string                `json:"depositCode"`    // extracted from PrintedContent; empty if ambiguous
	Status         BankTransactionStatus `json:"status"`
	ChargeOrderID  string                `json:"chargeOrderID,omitempty"`
	OccurredAt     *time.Time            `json:"occurredAt,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
}
