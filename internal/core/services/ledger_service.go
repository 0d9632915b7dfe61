package services

import (
	"context"
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
)

var (
	ErrUnknownEntryType = errors.New("unknown ledger entry type")
	ErrZeroAmount       = errors.New("ledger entry amount must not be zero")
	ErrMissingUniqueKey = errors.New("ledger entry unique key is required")
)

// ledgerService provides balance accounting over the append-only credit ledger.
type ledgerService struct {
	ledgerRepo portsrepo.LedgerRepository
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(ledgerRepo portsrepo.LedgerRepository) portssvc.LedgerSvcFacade {
	return &ledgerService{ledgerRepo: ledgerRepo}
}

// Ensure ledgerService implements the portssvc.LedgerSvcFacade interface
var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// normalizeAmount enforces the sign convention per entry type: SPEND rows are
// stored negative, CHARGE/BONUS/REFUND positive, ADJUST keeps its sign.
func normalizeAmount(entryType domain.LedgerEntryType, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsZero() {
		return decimal.Zero, ErrZeroAmount
	}
	switch entryType {
	case domain.LedgerSpend:
		return amount.Abs().Neg(), nil
	case domain.LedgerCharge, domain.LedgerBonus, domain.LedgerRefund:
		return amount.Abs(), nil
	case domain.LedgerAdjust:
		return amount, nil
	default:
		return decimal.Zero, ErrUnknownEntryType
	}
}

func (s *ledgerService) AppendEntry(ctx context.Context, entry domain.LedgerEntry) (*domain.LedgerEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if entry.OrganizationID == "" {
		return nil, apperrors.NewAppError(400, "organizationID is required", apperrors.ErrValidation)
	}
	if entry.UniqueKey == "" {
		return nil, apperrors.NewAppError(400, ErrMissingUniqueKey.Error(), apperrors.ErrValidation)
	}
	amount, err := normalizeAmount(entry.Type, entry.Amount)
	if err != nil {
		return nil, apperrors.NewAppError(400, err.Error(), apperrors.ErrValidation)
	}
	entry.Amount = amount

	if entry.EntryID == "" {
		entry.EntryID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	err = s.ledgerRepo.AppendEntry(ctx, entry)
	if err == nil {
		return &entry, nil
	}
	if errors.Is(err, apperrors.ErrDuplicate) {
		// Replay of an already applied entry. Return the stored row so the
		// caller observes exactly one effect.
		stored, findErr := s.ledgerRepo.FindEntryByUniqueKey(ctx, entry.OrganizationID, entry.UniqueKey)
		if findErr != nil {
			return nil, findErr
		}
		logger.Info("ledger append replayed", "organizationID", entry.OrganizationID, "uniqueKey", entry.UniqueKey)
		return stored, nil
	}
	return nil, err
}

func (s *ledgerService) GetBalance(ctx context.Context, organizationID string) (domain.Balance, error) {
	entries, err := s.ledgerRepo.FindEntriesByOrganization(ctx, organizationID)
	if err != nil {
		return domain.Balance{}, err
	}
	return domain.Replay(entries), nil
}

func (s *ledgerService) ListLedger(ctx context.Context, filter portsrepo.LedgerFilter, page, pageSize int) (*dto.LedgerPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	entries, total, err := s.ledgerRepo.ListEntries(ctx, filter, offset, pageSize)
	if err != nil {
		return nil, err
	}

	// Anchor the running balance at the current signed total and walk the page
	// downward. Exact when the view is unfiltered; with filters applied it is
	// relative to the rows the filter admits.
	totalSum, err := s.ledgerRepo.SumAmounts(ctx, filter.OrganizationID)
	if err != nil {
		return nil, err
	}
	skipped, err := s.ledgerRepo.SumFirst(ctx, filter, offset)
	if err != nil {
		return nil, err
	}
	running := totalSum.Sub(skipped)

	items := make([]dto.LedgerEntryItem, len(entries))
	for i, e := range entries {
		items[i] = dto.LedgerEntryItem{
			EntryID:      e.EntryID,
			Type:         string(e.Type),
			Amount:       e.Amount,
			UniqueKey:    e.UniqueKey,
			RefType:      e.RefType,
			RefID:        e.RefID,
			UserID:       e.UserID,
			CreatedAt:    e.CreatedAt,
			BalanceAfter: running,
		}
		running = running.Sub(e.Amount)
	}

	return &dto.LedgerPage{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}
