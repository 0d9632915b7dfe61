package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/denthub/credit-engine/internal/apperrors"
	"github.com/denthub/credit-engine/internal/core/domain"
	portsrepo "github.com/denthub/credit-engine/internal/core/ports/repositories"
	portssvc "github.com/denthub/credit-engine/internal/core/ports/services"
	"github.com/denthub/credit-engine/internal/dto"
	"github.com/denthub/credit-engine/internal/middleware"
	"github.com/denthub/credit-engine/internal/utils"
)

// matchingService reconciles the bank-statement feed against open charge orders.
type matchingService struct {
	orderRepo portsrepo.ChargeOrderRepository
	bankRepo  portsrepo.BankTransactionRepository
}

// NewMatchingService creates a new MatchingService.
func NewMatchingService(orderRepo portsrepo.ChargeOrderRepository, bankRepo portsrepo.BankTransactionRepository) portssvc.MatchingSvcFacade {
	return &matchingService{
		orderRepo: orderRepo,
		bankRepo:  bankRepo,
	}
}

// Ensure matchingService implements the portssvc.MatchingSvcFacade interface
var _ portssvc.MatchingSvcFacade = (*matchingService)(nil)

func (s *matchingService) UpsertBankTransaction(ctx context.Context, tx domain.BankTransaction) (*domain.BankTransaction, error) {
	if tx.TransactionID == "" {
		tx.TransactionID = uuid.New().String()
	}
	if tx.Status == "" {
		tx.Status = domain.BankTransactionNew
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	tx.DepositCode = utils.ExtractDepositCode(tx.PrintedContent)
	return s.bankRepo.Upsert(ctx, tx)
}

// RunSweep expires overdue orders, then walks NEW bank transactions oldest
// first and matches each against open orders. A transaction matches when
// exactly one open order shares its amount and deposit code; failing that,
// when exactly one open order's depositor name appears in the statement memo.
// Anything ambiguous is left NEW for an operator.
func (s *matchingService) RunSweep(ctx context.Context, limit int) (portssvc.SweepResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()
	result := portssvc.SweepResult{}

	expired, err := s.orderRepo.ExpireOverdue(ctx, now)
	if err != nil {
		return result, err
	}
	result.Expired = expired

	txs, err := s.bankRepo.ListNew(ctx, limit)
	if err != nil {
		return result, err
	}
	result.Scanned = len(txs)

	for _, tx := range txs {
		order, ok, err := s.pickCandidate(ctx, tx, now)
		if err != nil {
			return result, err
		}
		if !ok {
			continue
		}
		if err := s.match(ctx, order, tx, now); err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				// Another sweep or an admin claimed one side first.
				logger.Warn("sweep match lost race", "orderID", order.OrderID, "bankTransactionID", tx.TransactionID)
				continue
			}
			return result, err
		}
		result.Matched++
		logger.Info("deposit matched",
			"orderID", order.OrderID,
			"bankTransactionID", tx.TransactionID,
			"depositCode", order.DepositCode,
			"amountTotal", order.AmountTotal.String(),
		)
	}
	return result, nil
}

func (s *matchingService) pickCandidate(ctx context.Context, tx domain.BankTransaction, now time.Time) (domain.ChargeOrder, bool, error) {
	open, err := s.orderRepo.FindOpenByAmount(ctx, tx.Amount, now)
	if err != nil {
		return domain.ChargeOrder{}, false, err
	}
	if len(open) == 0 {
		return domain.ChargeOrder{}, false, nil
	}

	if tx.DepositCode != "" {
		var byCode []domain.ChargeOrder
		for _, o := range open {
			if o.DepositCode == tx.DepositCode {
				byCode = append(byCode, o)
			}
		}
		if len(byCode) == 1 {
			return byCode[0], true, nil
		}
		if len(byCode) > 1 {
			// Open deposit codes are unique, so this only happens on dirty data.
			return domain.ChargeOrder{}, false, nil
		}
	}

	var byName []domain.ChargeOrder
	for _, o := range open {
		if o.DepositorName != "" && strings.Contains(tx.PrintedContent, o.DepositorName) {
			byName = append(byName, o)
		}
	}
	if len(byName) == 1 {
		return byName[0], true, nil
	}
	return domain.ChargeOrder{}, false, nil
}

func (s *matchingService) match(ctx context.Context, order domain.ChargeOrder, tx domain.BankTransaction, now time.Time) error {
	payload, err := json.Marshal(dto.TaxInvoiceIssuePayload{
		ChargeOrderID:  order.OrderID,
		OrganizationID: order.OrganizationID,
	})
	if err != nil {
		return apperrors.NewAppError(500, "failed to marshal invoice payload", err)
	}
	return s.orderRepo.Match(ctx, portsrepo.MatchParams{
		OrderID:           order.OrderID,
		OrganizationID:    order.OrganizationID,
		UserID:            order.UserID,
		BankTransactionID: tx.TransactionID,
		MatchedBy:         domain.MatchedByAuto,
		MatchedByUserID:   "system",
		FromStatuses:      []domain.ChargeOrderStatus{domain.ChargeOrderPending},
		LedgerUniqueKey:   "chargeorder:" + order.OrderID,
		SupplyAmount:      order.SupplyAmount,
		TaskType:          domain.TaskTaxInvoiceIssue,
		TaskUniqueKey:     "taxinvoice:" + order.OrderID,
		TaskPayload:       payload,
	}, now)
}
