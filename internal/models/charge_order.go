package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChargeOrder is the persistence shape of a deposit request.
type ChargeOrder struct {
	OrderID           string          `json:"orderID"`
	OrganizationID    string          `json:"organizationID"`
	UserID            string          `json:"userID"`
	DepositCode       string          `json:"depositCode"`
	DepositorName     string          `json:"depositorName"`
	Status            string          `json:"status"`
	SupplyAmount      decimal.Decimal `json:"supplyAmount"`
	VatAmount         decimal.Decimal `json:"vatAmount"`
	AmountTotal       decimal.Decimal `json:"amountTotal"`
	ExpiresAt         time.Time       `json:"expiresAt"`
	BankTransactionID *string         `json:"bankTransactionID"`
	MatchedAt         *time.Time      `json:"matchedAt"`
	MatchedBy         *string         `json:"matchedBy"`
	MatchedByUserID   *string         `json:"matchedByUserID"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// BankTransaction is the persistence shape of one bank-statement record.
type BankTransaction struct {
	TransactionID  string          `json:"transactionID"`
	ExternalID     string          `json:"externalID"`
	BankCode       string          `json:"bankCode"`
	AccountNumber  string          `json:"accountNumber"`
	Amount         decimal.Decimal `json:"amount"`
	PrintedContent string          `json:"printedContent"`
	DepositCode    string          `json:"depositCode"`
	Status         string          `json:"status"`
	ChargeOrderID  *string         `json:"chargeOrderID"`
	OccurredAt     *time.Time      `json:"occurredAt"`
	CreatedAt      time.Time       `json:"createdAt"`
}
