package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/denthub/credit-engine/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		LedgerRepo:          newPgxLedgerRepository(dbPool),
		ChargeOrderRepo:     newPgxChargeOrderRepository(dbPool),
		BankTransactionRepo: newPgxBankTransactionRepository(dbPool),
		QueueRepo:           newPgxQueueRepository(dbPool),
		JobLockRepo:         newPgxJobLockRepository(dbPool),
		WebhookRepo:         newPgxWebhookRepository(dbPool),
	}
}
