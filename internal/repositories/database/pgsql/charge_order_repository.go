package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/denthub/credit-engine/internal/apperrors"
	"github.com/denthub/credit-engine/internal/core/domain"
	portsrepo "github.com/denthub/credit-engine/internal/core/ports/repositories"
	"github.com/denthub/credit-engine/internal/models"
	"github.com/denthub/credit-engine/internal/utils/mapping"
)

type PgxChargeOrderRepository struct {
	BaseRepository
}

func newPgxChargeOrderRepository(pool *pgxpool.Pool) portsrepo.ChargeOrderRepository {
	return &PgxChargeOrderRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxChargeOrderRepository implements portsrepo.ChargeOrderRepository
var _ portsrepo.ChargeOrderRepository = (*PgxChargeOrderRepository)(nil)

const chargeOrderColumns = `order_id, organization_id, user_id, deposit_code, depositor_name, status, supply_amount, vat_amount, amount_total, expires_at, bank_transaction_id, matched_at, matched_by, matched_by_user_id, created_at`

func scanChargeOrder(row pgx.Row) (models.ChargeOrder, error) {
	var m models.ChargeOrder
	err := row.Scan(
		&m.OrderID,
		&m.OrganizationID,
		&m.UserID,
		&m.DepositCode,
		&m.DepositorName,
		&m.Status,
		&m.SupplyAmount,
		&m.VatAmount,
		&m.AmountTotal,
		&m.ExpiresAt,
		&m.BankTransactionID,
		&m.MatchedAt,
		&m.MatchedBy,
		&m.MatchedByUserID,
		&m.CreatedAt,
	)
	return m, err
}

func (r *PgxChargeOrderRepository) Save(ctx context.Context, order domain.ChargeOrder) error {
	m := mapping.ToModelChargeOrder(order)
	query := `
		INSERT INTO charge_orders (` + chargeOrderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.OrderID,
		m.OrganizationID,
		m.UserID,
		m.DepositCode,
		m.DepositorName,
		m.Status,
		m.SupplyAmount,
		m.VatAmount,
		m.AmountTotal,
		m.ExpiresAt,
		m.BankTransactionID,
		m.MatchedAt,
		m.MatchedBy,
		m.MatchedByUserID,
		m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicate
		}
		return apperrors.NewAppError(500, "failed to insert charge order "+m.OrderID, err)
	}
	return nil
}

func (r *PgxChargeOrderRepository) FindByID(ctx context.Context, orderID string) (*domain.ChargeOrder, error) {
	query := `SELECT ` + chargeOrderColumns + ` FROM charge_orders WHERE order_id = $1;`
	m, err := scanChargeOrder(r.Pool.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find charge order "+orderID, err)
	}
	d := mapping.ToDomainChargeOrder(m)
	return &d, nil
}

func (r *PgxChargeOrderRepository) FindOpenByOrganization(ctx context.Context, organizationID string, now time.Time) (*domain.ChargeOrder, error) {
	query := `
		SELECT ` + chargeOrderColumns + `
		FROM charge_orders
		WHERE organization_id = $1
		  AND status = 'PENDING'
		  AND bank_transaction_id IS NULL
		  AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT 1;
	`
	m, err := scanChargeOrder(r.Pool.QueryRow(ctx, query, organizationID, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find open charge order", err)
	}
	d := mapping.ToDomainChargeOrder(m)
	return &d, nil
}

func (r *PgxChargeOrderRepository) ListByOrganization(ctx context.Context, organizationID string, limit int) ([]domain.ChargeOrder, error) {
	query := `
		SELECT ` + chargeOrderColumns + `
		FROM charge_orders
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2;
	`
	return r.queryChargeOrders(ctx, query, organizationID, limit)
}

func (r *PgxChargeOrderRepository) ListByStatus(ctx context.Context, status domain.ChargeOrderStatus, limit int) ([]domain.ChargeOrder, error) {
	query := `
		SELECT ` + chargeOrderColumns + `
		FROM charge_orders
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2;
	`
	return r.queryChargeOrders(ctx, query, string(status), limit)
}

func (r *PgxChargeOrderRepository) OpenDepositCodes(ctx context.Context, now time.Time) ([]string, error) {
	query := `
		SELECT deposit_code
		FROM charge_orders
		WHERE status = 'PENDING'
		  AND bank_transaction_id IS NULL
		  AND expires_at > $1;
	`
	rows, err := r.Pool.Query(ctx, query, now)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query open deposit codes", err)
	}
	defer rows.Close()

	codes := make([]string, 0)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan deposit code", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating deposit codes", err)
	}
	return codes, nil
}

func (r *PgxChargeOrderRepository) FindOpenByAmount(ctx context.Context, amountTotal decimal.Decimal, now time.Time) ([]domain.ChargeOrder, error) {
	query := `
		SELECT ` + chargeOrderColumns + `
		FROM charge_orders
		WHERE status = 'PENDING'
		  AND bank_transaction_id IS NULL
		  AND expires_at > $2
		  AND amount_total = $1
		ORDER BY created_at DESC;
	`
	return r.queryChargeOrders(ctx, query, amountTotal, now)
}

func (r *PgxChargeOrderRepository) queryChargeOrders(ctx context.Context, query string, args ...any) ([]domain.ChargeOrder, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query charge orders", err)
	}
	defer rows.Close()

	orders := make([]models.ChargeOrder, 0)
	for rows.Next() {
		m, err := scanChargeOrder(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan charge order", err)
		}
		orders = append(orders, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating charge orders", err)
	}
	return mapping.ToDomainChargeOrderSlice(orders), nil
}

func (r *PgxChargeOrderRepository) Cancel(ctx context.Context, orderID, organizationID string) error {
	query := `
		UPDATE charge_orders
		SET status = 'CANCELED'
		WHERE order_id = $1
		  AND organization_id = $2
		  AND status = 'PENDING'
		  AND bank_transaction_id IS NULL;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, orderID, organizationID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to cancel charge order "+orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *PgxChargeOrderRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE charge_orders
		SET status = 'EXPIRED'
		WHERE status = 'PENDING'
		  AND bank_transaction_id IS NULL
		  AND expires_at <= $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to expire overdue charge orders", err)
	}
	return cmdTag.RowsAffected(), nil
}

// Match performs the full reconciliation write in one database transaction:
// claim the bank transaction, transition the order, credit the ledger and
// enqueue the follow-up invoice task. The first two writes are conditional;
// zero rows affected means another actor got there first and the whole
// transaction rolls back with ErrConflict. The last two are idempotent
// inserts so an admin re-running a partially observed match never double-credits.
func (r *PgxChargeOrderRepository) Match(ctx context.Context, p portsrepo.MatchParams, now time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	claimQuery := `
		UPDATE bank_transactions
		SET status = 'MATCHED', charge_order_id = $2
		WHERE transaction_id = $1
		  AND status = 'NEW'
		  AND charge_order_id IS NULL;
	`
	cmdTag, err := tx.Exec(ctx, claimQuery, p.BankTransactionID, p.OrderID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to claim bank transaction "+p.BankTransactionID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}

	fromStatuses := make([]string, len(p.FromStatuses))
	for i, s := range p.FromStatuses {
		fromStatuses[i] = string(s)
	}
	orderQuery := `
		UPDATE charge_orders
		SET status = 'MATCHED',
		    bank_transaction_id = $2,
		    matched_at = $3,
		    matched_by = $4,
		    matched_by_user_id = $5
		WHERE order_id = $1
		  AND status = ANY($6)
		  AND bank_transaction_id IS NULL;
	`
	cmdTag, err = tx.Exec(ctx, orderQuery,
		p.OrderID,
		p.BankTransactionID,
		now,
		string(p.MatchedBy),
		p.MatchedByUserID,
		fromStatuses,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to transition charge order "+p.OrderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}

	createdBy := p.MatchedByUserID
	if createdBy == "" {
		createdBy = p.UserID
	}
	ledgerQuery := `
		INSERT INTO credit_ledger (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (organization_id, unique_key) DO NOTHING;
	`
	_, err = tx.Exec(ctx, ledgerQuery,
		uuid.New().String(),
		p.OrganizationID,
		p.UserID,
		string(domain.LedgerCharge),
		p.SupplyAmount,
		p.LedgerUniqueKey,
		"CHARGE_ORDER",
		p.OrderID,
		now,
		createdBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert match ledger entry", err)
	}

	if p.TaskUniqueKey != "" {
		taskQuery := `
			INSERT INTO popbill_queue (task_id, task_type, status, priority, unique_key, payload, attempt_count, max_attempts, scheduled_for, created_at)
			VALUES ($1, $2, 'PENDING', 0, $3, $4, 0, 5, $5, $5)
			ON CONFLICT (unique_key) DO NOTHING;
		`
		_, err = tx.Exec(ctx, taskQuery,
			uuid.New().String(),
			string(p.TaskType),
			p.TaskUniqueKey,
			p.TaskPayload,
			now,
		)
		if err != nil {
			return apperrors.NewAppError(500, "failed to enqueue follow-up task", err)
		}
	}

	return r.Commit(ctx, tx)
}
