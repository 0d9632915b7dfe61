package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/denthub/credit-engine/internal/core/domain"
)

// CreateChargeOrderRequest is the payload for requesting a credit charge.
type CreateChargeOrderRequest struct {
	SupplyAmount  decimal.Decimal `json:"supplyAmount" binding:"required"`
	DepositorName string          `json:"depositorName"`
}

// DepositAccount is the static account the depositor transfers into.
type DepositAccount struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	HolderName    string `json:"holderName"`
}

// ChargeOrderResponse is the public view of a charge order.
type ChargeOrderResponse struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	DepositCode    string          `json:"depositCode"`
	DepositorName  string          `json:"depositorName"`
	SupplyAmount   decimal.Decimal `json:"supplyAmount"`
	VatAmount      decimal.Decimal `json:"vatAmount"`
	AmountTotal    decimal.Decimal `json:"amountTotal"`
	ExpiresAt      time.Time       `json:"expiresAt"`
	MatchedAt      *time.Time      `json:"matchedAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	DepositAccount *DepositAccount `json:"depositAccount,omitempty"`
}

// ToChargeOrderResponse maps a domain order to its public view.
func ToChargeOrderResponse(o *domain.ChargeOrder, account *DepositAccount) ChargeOrderResponse {
	return ChargeOrderResponse{
		ID:             o.OrderID,
		Status:         string(o.Status),
		DepositCode:    o.DepositCode,
		DepositorName:  o.DepositorName,
		SupplyAmount:   o.SupplyAmount,
		VatAmount:      o.VatAmount,
		AmountTotal:    o.AmountTotal,
		ExpiresAt:      o.ExpiresAt,
		MatchedAt:      o.MatchedAt,
		CreatedAt:      o.CreatedAt,
		DepositAccount: account,
	}
}

// ListChargeOrdersResponse wraps an organization's charge order history.
type ListChargeOrdersResponse struct {
	DepositAccount DepositAccount        `json:"depositAccount"`
	Items          []ChargeOrderResponse `json:"items"`
}

// AdminMatchRequest is the operator payload for a manual deposit match.
type AdminMatchRequest struct {
	BankTransactionID string `json:"bankTransactionID" binding:"required"`
	Force             bool   `json:"force"`
}
