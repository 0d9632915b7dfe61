package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntryType classifies a ledger entry.
type LedgerEntryType string

const (
	LedgerCharge LedgerEntryType = "CHARGE" // paid credit added after a deposit match
	LedgerBonus  LedgerEntryType = "BONUS"  // promotional credit
	LedgerSpend  LedgerEntryType = "SPEND"  // consumption; stored as a negative amount
	LedgerRefund LedgerEntryType = "REFUND" // paid credit returned
	LedgerAdjust LedgerEntryType = "ADJUST" // signed manual correction to paid credit
)

// ValidLedgerEntryType reports whether t is one of the known entry types.
func ValidLedgerEntryType(t LedgerEntryType) bool {
	switch t {
	case LedgerCharge, LedgerBonus, LedgerSpend, LedgerRefund, LedgerAdjust:
		return true
	}
	return false
}

// LedgerEntry is one immutable row of an organization's credit ledger.
// Entries are never updated or deleted; corrections are new ADJUST/REFUND entries.
// Balance is always derived by replaying entries in (createdAt, entryID) order.
type LedgerEntry struct {
	EntryID        string          `json:"entryID"`
	OrganizationID string          `json:"organizationID"`
	UserID         string          `json:"userID"`
	Type           LedgerEntryType `json:"type"`
	Amount         decimal.Decimal `json:"amount"` // minor currency unit; negative only for SPEND
	UniqueKey      string          `json:"uniqueKey"`
	RefType        string          `json:"refType,omitempty"`
	RefID          string          `json:"refID,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	CreatedBy      string          `json:"createdBy"`
}

// Balance is the derived two-bucket balance of an organization.
// SPEND drains bonus before paid; both buckets are clamped at zero before summing
// so a corrupted ledger never reports a negative displayed balance.
type Balance struct {
	Balance      decimal.Decimal `json:"balance"`
	PaidBalance  decimal.Decimal `json:"paidBalance"`
	BonusBalance decimal.Decimal `json:"bonusBalance"`
}

// Replay computes the balance from entries already ordered by (createdAt, entryID).
func Replay(entries []LedgerEntry) Balance {
	paid := decimal.Zero
	bonus := decimal.Zero

	for _, e := range entries {
		switch e.Type {
		case LedgerCharge, LedgerRefund:
			paid = paid.Add(e.Amount.Abs())
		case LedgerBonus:
			bonus = bonus.Add(e.Amount.Abs())
		case LedgerAdjust:
			paid = paid.Add(e.Amount)
		case LedgerSpend:
			spend := e.Amount.Abs()
			fromBonus := decimal.Min(bonus, spend)
			bonus = bonus.Sub(fromBonus)
			paid = paid.Sub(spend.Sub(fromBonus))
		}
	}

	paidBalance := decimal.Max(decimal.Zero, paid.Round(0))
	bonusBalance := decimal.Max(decimal.Zero, bonus.Round(0))
	return Balance{
		Balance:      paidBalance.Add(bonusBalance),
		PaidBalance:  paidBalance,
		BonusBalance: bonusBalance,
	}
}
