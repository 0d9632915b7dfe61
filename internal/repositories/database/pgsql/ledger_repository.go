package pgsql

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/denthub/credit-engine/internal/apperrors"
	"github.com/denthub/credit-engine/internal/core/domain"
	portsrepo "github.com/denthub/credit-engine/internal/core/ports/repositories"
	"github.com/denthub/credit-engine/internal/models"
	"github.com/denthub/credit-engine/internal/utils/mapping"
)

type PgxLedgerRepository struct {
	BaseRepository
}

func newPgxLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerRepository {
	return &PgxLedgerRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxLedgerRepository implements portsrepo.LedgerRepository
var _ portsrepo.LedgerRepository = (*PgxLedgerRepository)(nil)

const ledgerColumns = `entry_id, organization_id, user_id, entry_type, amount, unique_key, ref_type, ref_id, created_at, created_by`

func scanLedgerEntry(row pgx.Row) (models.LedgerEntry, error) {
	var m models.LedgerEntry
	err := row.Scan(
		&m.EntryID,
		&m.OrganizationID,
		&m.UserID,
		&m.Type,
		&m.Amount,
		&m.UniqueKey,
		&m.RefType,
		&m.RefID,
		&m.CreatedAt,
		&m.CreatedBy,
	)
	return m, err
}

func (r *PgxLedgerRepository) AppendEntry(ctx context.Context, entry domain.LedgerEntry) error {
	m := mapping.ToModelLedgerEntry(entry)
	query := `
		INSERT INTO credit_ledger (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.EntryID,
		m.OrganizationID,
		m.UserID,
		m.Type,
		m.Amount,
		m.UniqueKey,
		m.RefType,
		m.RefID,
		m.CreatedAt,
		m.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicate
		}
		return apperrors.NewAppError(500, "failed to insert ledger entry "+m.EntryID, err)
	}
	return nil
}

func (r *PgxLedgerRepository) FindEntryByUniqueKey(ctx context.Context, organizationID, uniqueKey string) (*domain.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM credit_ledger
		WHERE organization_id = $1 AND unique_key = $2;
	`
	m, err := scanLedgerEntry(r.Pool.QueryRow(ctx, query, organizationID, uniqueKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find ledger entry by unique key", err)
	}
	d := mapping.ToDomainLedgerEntry(m)
	return &d, nil
}

func (r *PgxLedgerRepository) FindEntriesByOrganization(ctx context.Context, organizationID string) ([]domain.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM credit_ledger
		WHERE organization_id = $1
		ORDER BY created_at ASC, entry_id ASC;
	`
	rows, err := r.Pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query ledger entries", err)
	}
	defer rows.Close()

	entries := make([]models.LedgerEntry, 0)
	for rows.Next() {
		m, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan ledger entry", err)
		}
		entries = append(entries, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating ledger entries", err)
	}
	return mapping.ToDomainLedgerEntrySlice(entries), nil
}

// buildLedgerWhere assembles the WHERE clause for a filtered listing. The
// returned args slice is positional starting at $1.
func buildLedgerWhere(filter portsrepo.LedgerFilter) (string, []any) {
	where := ` WHERE organization_id = $1`
	args := []any{filter.OrganizationID}

	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where += ` AND entry_type = $` + strconv.Itoa(len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += ` AND created_at < $` + strconv.Itoa(len(args))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (unique_key ILIKE $` + n + ` OR ref_type ILIKE $` + n + `)`
	}
	return where, args
}

func (r *PgxLedgerRepository) ListEntries(ctx context.Context, filter portsrepo.LedgerFilter, offset, limit int) ([]domain.LedgerEntry, int64, error) {
	where, args := buildLedgerWhere(filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM credit_ledger` + where
	if err := r.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.NewAppError(500, "failed to count ledger entries", err)
	}

	args = append(args, limit, offset)
	query := `
		SELECT ` + ledgerColumns + `
		FROM credit_ledger` + where + `
		ORDER BY created_at DESC, entry_id DESC
		LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args)) + `;
	`
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.NewAppError(500, "failed to list ledger entries", err)
	}
	defer rows.Close()

	entries := make([]models.LedgerEntry, 0, limit)
	for rows.Next() {
		m, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, 0, apperrors.NewAppError(500, "failed to scan ledger entry", err)
		}
		entries = append(entries, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.NewAppError(500, "error iterating ledger entries", err)
	}
	return mapping.ToDomainLedgerEntrySlice(entries), total, nil
}

func (r *PgxLedgerRepository) SumAmounts(ctx context.Context, organizationID string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM credit_ledger WHERE organization_id = $1;`
	var sum decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, organizationID).Scan(&sum); err != nil {
		return decimal.Zero, apperrors.NewAppError(500, "failed to sum ledger amounts", err)
	}
	return sum, nil
}

func (r *PgxLedgerRepository) SumFirst(ctx context.Context, filter portsrepo.LedgerFilter, n int) (decimal.Decimal, error) {
	if n <= 0 {
		return decimal.Zero, nil
	}
	where, args := buildLedgerWhere(filter)
	args = append(args, n)
	query := `
		SELECT COALESCE(SUM(amount), 0) FROM (
			SELECT amount
			FROM credit_ledger` + where + `
			ORDER BY created_at DESC, entry_id DESC
			LIMIT $` + strconv.Itoa(len(args)) + `
		) page;
	`
	var sum decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, args...).Scan(&sum); err != nil {
		return decimal.Zero, apperrors.NewAppError(500, "failed to sum leading ledger amounts", err)
	}
	return sum, nil
}
