package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ListLedgerParams are the query parameters of the ledger listing endpoint.
type ListLedgerParams struct {
	Type     string `form:"type"`
	Period   string `form:"period"` // 7d | 30d | 90d | all
	From     string `form:"from"`   // RFC3339
	To       string `form:"to"`     // RFC3339
	Query    string `form:"q"`
	Page     int    `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize int    `form:"pageSize,default=50" binding:"omitempty,min=1,max=200"`
}

// LedgerEntryItem is one ledger row with its running balance.
// BalanceAfter is derived from the precomputed total balance, not a full replay per page.
type LedgerEntryItem struct {
	EntryID      string          `json:"entryID"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	UniqueKey    string          `json:"uniqueKey"`
	RefType      string          `json:"refType,omitempty"`
	RefID        string          `json:"refID,omitempty"`
	UserID       string          `json:"userID"`
	CreatedAt    time.Time       `json:"createdAt"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
}

// LedgerPage is one page of ledger entries, newest first.
type LedgerPage struct {
	Items    []LedgerEntryItem `json:"items"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
}

// BalanceResponse is the two-bucket balance view.
type BalanceResponse struct {
	Balance      decimal.Decimal `json:"balance"`
	PaidBalance  decimal.Decimal `json:"paidBalance"`
	BonusBalance decimal.Decimal `json:"bonusBalance"`
}
