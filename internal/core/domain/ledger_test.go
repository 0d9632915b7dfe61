package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/denthub/credit-engine/internal/core/domain"
)

func TestReplay(t *testing.T) {
	tests := []struct {
		name      string
		entries   []domain.LedgerEntry
		wantPaid  int64
		wantBonus int64
		wantTotal int64
	}{
		{
			name:      "empty ledger",
			entries:   nil,
			wantPaid:  0,
			wantBonus: 0,
			wantTotal: 0,
		},
		{
			name: "charge then spend",
			entries: []domain.LedgerEntry{
				{Type: domain.LedgerCharge, Amount: decimal.NewFromInt(1_000_000)},
				{Type: domain.LedgerSpend, Amount: decimal.NewFromInt(-300_000)},
			},
			wantPaid:  700_000,
			wantBonus: 0,
			wantTotal: 700_000,
		},
		{
			name: "spend drains bonus before paid",
			entries: []domain.LedgerEntry{
				{Type: domain.LedgerCharge, Amount: decimal.NewFromInt(1_000_000)},
				{Type: domain.LedgerBonus, Amount: decimal.NewFromInt(200_000)},
				{Type: domain.LedgerSpend, Amount: decimal.NewFromInt(-300_000)},
			},
			wantPaid:  900_000,
			wantBonus: 0,
			wantTotal: 900_000,
		},
		{
			name: "partial bonus drain",
			entries: []domain.LedgerEntry{
				{Type: domain.LedgerBonus, Amount: decimal.NewFromInt(500_000)},
				{Type: domain.LedgerSpend, Amount: decimal.NewFromInt(-300_000)},
			},
			wantPaid:  0,
			wantBonus: 200_000,
			wantTotal: 200_000,
		},
		{
			name: "overspend clamps paid at zero",
			entries: []domain.LedgerEntry{
				{Type: domain.LedgerBonus, Amount: decimal.NewFromInt(200_000)},
				{Type: domain.LedgerSpend, Amount: decimal.NewFromInt(-300_000)},
			},
			wantPaid:  0,
			wantBonus: 0,
			wantTotal: 0,
		},
		{
			name: "refund restores paid",
			entries: []domain.LedgerEntry{
				{Type: domain.LedgerCharge, Amount: decimal.NewFromInt(1_000_000)},
				{Type: domain.LedgerSpend, Amount: decimal.NewFromInt(-1_000_000)},
				{Type: domain.LedgerRefund, Amount: decimal.NewFromInt(500_000)},
			},
			wantPaid:  500_000,
			wantBonus: 0,
			wantTotal: 500_000,
		},
		{
			name: "negative adjustment",
			entries: []domain.LedgerEntry{
				{Type: domain.LedgerCharge, Amount: decimal.NewFromInt(1_000_000)},
				{Type: domain.LedgerAdjust, Amount: decimal.NewFromInt(-250_000)},
			},
			wantPaid:  750_000,
			wantBonus: 0,
			wantTotal: 750_000,
		},
		{
			name: "adjustment never touches bonus",
			entries: []domain.LedgerEntry{
				{Type: domain.LedgerBonus, Amount: decimal.NewFromInt(100_000)},
				{Type: domain.LedgerAdjust, Amount: decimal.NewFromInt(-100_000)},
			},
			wantPaid:  0,
			wantBonus: 100_000,
			wantTotal: 100_000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.Replay(tt.entries)
			assert.True(t, got.PaidBalance.Equal(decimal.NewFromInt(tt.wantPaid)), "paid = %s", got.PaidBalance)
			assert.True(t, got.BonusBalance.Equal(decimal.NewFromInt(tt.wantBonus)), "bonus = %s", got.BonusBalance)
			assert.True(t, got.Balance.Equal(decimal.NewFromInt(tt.wantTotal)), "balance = %s", got.Balance)
		})
	}
}

func TestReplay_SpendSignIrrelevant(t *testing.T) {
	// Stored SPEND rows are negative, but replay uses the magnitude either way.
	positive := domain.Replay([]domain.LedgerEntry{
		{Type: domain.LedgerCharge, Amount: decimal.NewFromInt(1_000_000)},
		{Type: domain.LedgerSpend, Amount: decimal.NewFromInt(300_000)},
	})
	negative := domain.Replay([]domain.LedgerEntry{
		{Type: domain.LedgerCharge, Amount: decimal.NewFromInt(1_000_000)},
		{Type: domain.LedgerSpend, Amount: decimal.NewFromInt(-300_000)},
	})
	assert.True(t, positive.Balance.Equal(negative.Balance))
}

func TestChargeOrder_Open(t *testing.T) {
	now := time.Now()

	open := domain.ChargeOrder{
		Status:    domain.ChargeOrderPending,
		ExpiresAt: now.Add(time.Hour),
	}
	assert.True(t, open.Open(now))

	expired := open
	expired.ExpiresAt = now
	assert.False(t, expired.Open(now))

	matched := open
	matched.BankTransactionID = "tx-1"
	assert.False(t, matched.Open(now))

	canceled := open
	canceled.Status = domain.ChargeOrderCanceled
	assert.False(t, canceled.Open(now))
}
