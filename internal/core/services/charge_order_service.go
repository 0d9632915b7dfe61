package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/denthub/credit-engine/internal/apperrors"
	"github.com/denthub/credit-engine/internal/core/domain"
	portsrepo "github.com/denthub/credit-engine/internal/core/ports/repositories"
	portssvc "github.com/denthub/credit-engine/internal/core/ports/services"
	"github.com/denthub/credit-engine/internal/dto"
	"github.com/denthub/credit-engine/internal/middleware"
	"github.com/denthub/credit-engine/internal/utils"
)

var (
	ErrAmountNotInteger  = errors.New("supply amount must be a whole number")
	ErrAmountOutOfRange  = errors.New("supply amount must be between 500,000 and 5,000,000")
	ErrAmountNotMultiple = errors.New("supply amount must be a multiple of 500,000 up to 1,000,000, then a multiple of 1,000,000")
	ErrAmountMismatch    = errors.New("bank transaction amount does not equal the order total")
	ErrCodeMismatch      = errors.New("bank transaction deposit code does not match the order")
	ErrOrderNotOpen      = errors.New("charge order is not matchable")
	ErrTransactionTaken  = errors.New("bank transaction is already matched")
)

var (
	minSupplyAmount = decimal.NewFromInt(500_000)
	maxSupplyAmount = decimal.NewFromInt(5_000_000)
	lowTierCeiling  = decimal.NewFromInt(1_000_000)
	lowTierStep     = decimal.NewFromInt(500_000)
	highTierStep    = decimal.NewFromInt(1_000_000)
	vatRate         = decimal.NewFromFloat(0.10)
)

// chargeOrderService provides deposit-request issuance and admin reconciliation.
type chargeOrderService struct {
	orderRepo portsrepo.ChargeOrderRepository
	bankRepo  portsrepo.BankTransactionRepository
	orderTTL  time.Duration
}

// NewChargeOrderService creates a new ChargeOrderService.
func NewChargeOrderService(orderRepo portsrepo.ChargeOrderRepository, bankRepo portsrepo.BankTransactionRepository, orderTTL time.Duration) portssvc.ChargeOrderSvcFacade {
	return &chargeOrderService{
		orderRepo: orderRepo,
		bankRepo:  bankRepo,
		orderTTL:  orderTTL,
	}
}

// Ensure chargeOrderService implements the portssvc.ChargeOrderSvcFacade interface
var _ portssvc.ChargeOrderSvcFacade = (*chargeOrderService)(nil)

// ValidateSupplyAmount checks the tiered deposit amount rules: whole KRW,
// 500,000 through 5,000,000, in 500,000 steps up to 1,000,000 and 1,000,000
// steps above that.
func ValidateSupplyAmount(supplyAmount decimal.Decimal) error {
	if !supplyAmount.IsInteger() {
		return ErrAmountNotInteger
	}
	if supplyAmount.LessThan(minSupplyAmount) || supplyAmount.GreaterThan(maxSupplyAmount) {
		return ErrAmountOutOfRange
	}
	step := highTierStep
	if supplyAmount.LessThanOrEqual(lowTierCeiling) {
		step = lowTierStep
	}
	if !supplyAmount.Mod(step).IsZero() {
		return ErrAmountNotMultiple
	}
	return nil
}

// VatFor returns the VAT on a supply amount, rounded to whole KRW.
func VatFor(supplyAmount decimal.Decimal) decimal.Decimal {
	return supplyAmount.Mul(vatRate).Round(0)
}

func (s *chargeOrderService) CreateChargeOrder(ctx context.Context, organizationID, userID, depositorName string, supplyAmount decimal.Decimal) (*domain.ChargeOrder, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := ValidateSupplyAmount(supplyAmount); err != nil {
		return nil, apperrors.NewAppError(400, err.Error(), apperrors.ErrValidation)
	}

	now := time.Now()

	// One open order per organization. Re-requesting while one is open hands
	// back the existing order and its deposit code unchanged.
	open, err := s.orderRepo.FindOpenByOrganization(ctx, organizationID, now)
	if err == nil {
		logger.Info("reusing open charge order", "orderID", open.OrderID, "organizationID", organizationID)
		return open, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	inUse, err := s.orderRepo.OpenDepositCodes(ctx, now)
	if err != nil {
		return nil, err
	}
	code, err := utils.GenerateDepositCode(inUse)
	if err != nil {
		return nil, apperrors.NewAppError(409, err.Error(), apperrors.ErrConflict)
	}
	if depositorName == "" {
		// The depositor writes the code as the transfer memo.
		depositorName = code
	}

	vat := VatFor(supplyAmount)
	order := domain.ChargeOrder{
		OrderID:        uuid.New().String(),
		OrganizationID: organizationID,
		UserID:         userID,
		DepositCode:    code,
		DepositorName:  depositorName,
		Status:         domain.ChargeOrderPending,
		SupplyAmount:   supplyAmount,
		VatAmount:      vat,
		AmountTotal:    supplyAmount.Add(vat),
		ExpiresAt:      now.Add(s.orderTTL),
		CreatedAt:      now,
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}
	logger.Info("charge order created",
		"orderID", order.OrderID,
		"organizationID", organizationID,
		"depositCode", code,
		"amountTotal", order.AmountTotal.String(),
	)
	return &order, nil
}

func (s *chargeOrderService) ListChargeOrders(ctx context.Context, organizationID string) ([]domain.ChargeOrder, error) {
	return s.orderRepo.ListByOrganization(ctx, organizationID, 100)
}

func (s *chargeOrderService) GetChargeOrder(ctx context.Context, orderID string) (*domain.ChargeOrder, error) {
	return s.orderRepo.FindByID(ctx, orderID)
}

func (s *chargeOrderService) CancelChargeOrder(ctx context.Context, organizationID, orderID string) (*domain.ChargeOrder, error) {
	err := s.orderRepo.Cancel(ctx, orderID, organizationID)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Distinguish a missing order from one that moved on.
			if _, findErr := s.orderRepo.FindByID(ctx, orderID); errors.Is(findErr, apperrors.ErrNotFound) {
				return nil, apperrors.ErrNotFound
			}
		}
		return nil, err
	}
	return s.orderRepo.FindByID(ctx, orderID)
}

func (s *chargeOrderService) AdminListChargeOrders(ctx context.Context, status domain.ChargeOrderStatus) ([]domain.ChargeOrder, error) {
	return s.orderRepo.ListByStatus(ctx, status, 200)
}

// AdminMatch pairs an order with a bank transaction by hand. The amount must
// always line up; force only waives the deposit-code equality check, for
// statements where the depositor mistyped or omitted the code. EXPIRED orders
// are matchable here because late deposits still arrive after the deadline.
func (s *chargeOrderService) AdminMatch(ctx context.Context, orderID, bankTransactionID, adminUserID string, force bool) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.ChargeOrderPending && order.Status != domain.ChargeOrderExpired {
		return apperrors.NewAppError(409, ErrOrderNotOpen.Error(), apperrors.ErrConflict)
	}
	if order.BankTransactionID != "" {
		return apperrors.NewAppError(409, ErrOrderNotOpen.Error(), apperrors.ErrConflict)
	}

	bankTx, err := s.bankRepo.FindByID(ctx, bankTransactionID)
	if err != nil {
		return err
	}
	if bankTx.Status != domain.BankTransactionNew {
		return apperrors.NewAppError(409, ErrTransactionTaken.Error(), apperrors.ErrConflict)
	}
	if !bankTx.Amount.Equal(order.AmountTotal) {
		return apperrors.NewAppError(400, ErrAmountMismatch.Error(), apperrors.ErrValidation)
	}
	if !force && bankTx.DepositCode != order.DepositCode {
		return apperrors.NewAppError(400, ErrCodeMismatch.Error(), apperrors.ErrValidation)
	}

	payload, err := json.Marshal(dto.TaxInvoiceIssuePayload{
		ChargeOrderID:  order.OrderID,
		OrganizationID: order.OrganizationID,
	})
	if err != nil {
		return apperrors.NewAppError(500, "failed to marshal invoice payload", err)
	}

	err = s.orderRepo.Match(ctx, portsrepo.MatchParams{
		OrderID:           order.OrderID,
		OrganizationID:    order.OrganizationID,
		UserID:            order.UserID,
		BankTransactionID: bankTx.TransactionID,
		MatchedBy:         domain.MatchedByAdmin,
		MatchedByUserID:   adminUserID,
		FromStatuses:      []domain.ChargeOrderStatus{domain.ChargeOrderPending, domain.ChargeOrderExpired},
		LedgerUniqueKey:   "chargeorder:" + order.OrderID,
		SupplyAmount:      order.SupplyAmount,
		TaskType:          domain.TaskTaxInvoiceIssue,
		TaskUniqueKey:     "taxinvoice:" + order.OrderID,
		TaskPayload:       payload,
	}, time.Now())
	if err != nil {
		return err
	}

	logger.Info("charge order matched by admin",
		"orderID", order.OrderID,
		"bankTransactionID", bankTx.TransactionID,
		"adminUserID", adminUserID,
		"force", force,
	)
	return nil
}
