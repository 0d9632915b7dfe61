package pgsql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/denthub/credit-engine/internal/apperrors"
	"github.com/denthub/credit-engine/internal/core/domain"
	portsrepo "github.com/denthub/credit-engine/internal/core/ports/repositories"
	"github.com/denthub/credit-engine/internal/models"
	"github.com/denthub/credit-engine/internal/utils/mapping"
)

type PgxBankTransactionRepository struct {
	BaseRepository
}

func newPgxBankTransactionRepository(pool *pgxpool.Pool) portsrepo.BankTransactionRepository {
	return &PgxBankTransactionRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxBankTransactionRepository implements portsrepo.BankTransactionRepository
var _ portsrepo.BankTransactionRepository = (*PgxBankTransactionRepository)(nil)

const bankTransactionColumns = `transaction_id, external_id, bank_code, account_number, amount, printed_content, deposit_code, status, charge_order_id, occurred_at, created_at`

func scanBankTransaction(row pgx.Row) (models.BankTransaction, error) {
	var m models.BankTransaction
	err := row.Scan(
		&m.TransactionID,
		&m.ExternalID,
		&m.BankCode,
		&m.AccountNumber,
		&m.Amount,
		&m.PrintedContent,
		&m.DepositCode,
		&m.Status,
		&m.ChargeOrderID,
		&m.OccurredAt,
		&m.CreatedAt,
	)
	return m, err
}

// Upsert inserts a statement record or refreshes the descriptive fields of an
// existing one. Reconciliation state (status, charge_order_id) is never touched
// on conflict; a re-fetched statement cannot undo a match.
func (r *PgxBankTransactionRepository) Upsert(ctx context.Context, tx domain.BankTransaction) (*domain.BankTransaction, error) {
	m := mapping.ToModelBankTransaction(tx)
	query := `
		INSERT INTO bank_transactions (` + bankTransactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (external_id) DO UPDATE
		SET bank_code = EXCLUDED.bank_code,
		    account_number = EXCLUDED.account_number,
		    amount = EXCLUDED.amount,
		    printed_content = EXCLUDED.printed_content,
		    deposit_code = EXCLUDED.deposit_code,
		    occurred_at = EXCLUDED.occurred_at
		RETURNING ` + bankTransactionColumns + `;
	`
	stored, err := scanBankTransaction(r.Pool.QueryRow(ctx, query,
		m.TransactionID,
		m.ExternalID,
		m.BankCode,
		m.AccountNumber,
		m.Amount,
		m.PrintedContent,
		m.DepositCode,
		m.Status,
		m.ChargeOrderID,
		m.OccurredAt,
		m.CreatedAt,
	))
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to upsert bank transaction "+m.ExternalID, err)
	}
	d := mapping.ToDomainBankTransaction(stored)
	return &d, nil
}

func (r *PgxBankTransactionRepository) FindByID(ctx context.Context, transactionID string) (*domain.BankTransaction, error) {
	query := `SELECT ` + bankTransactionColumns + ` FROM bank_transactions WHERE transaction_id = $1;`
	m, err := scanBankTransaction(r.Pool.QueryRow(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find bank transaction "+transactionID, err)
	}
	d := mapping.ToDomainBankTransaction(m)
	return &d, nil
}

func (r *PgxBankTransactionRepository) ListNew(ctx context.Context, limit int) ([]domain.BankTransaction, error) {
	query := `
		SELECT ` + bankTransactionColumns + `
		FROM bank_transactions
		WHERE status = 'NEW'
		ORDER BY occurred_at ASC NULLS LAST, created_at ASC
		LIMIT $1;
	`
	rows, err := r.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list new bank transactions", err)
	}
	defer rows.Close()

	txs := make([]models.BankTransaction, 0, limit)
	for rows.Next() {
		m, err := scanBankTransaction(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan bank transaction", err)
		}
		txs = append(txs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating bank transactions", err)
	}
	return mapping.ToDomainBankTransactionSlice(txs), nil
}
