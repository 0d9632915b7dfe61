package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is the persistence shape of one credit ledger row.
// Rows are append-only: there are no updated_at/updated_by columns on purpose.
type LedgerEntry struct {
	EntryID        string          `json:"entryID"`
	OrganizationID string          `json:"organizationID"`
	UserID         string          `json:"userID"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	UniqueKey      string          `json:"uniqueKey"`
	RefType        string          `json:"refType"`
	RefID          string          `json:"refID"`
	CreatedAt      time.Time       `json:"createdAt"`
	CreatedBy      string          `json:"createdBy"`
}
