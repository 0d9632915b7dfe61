package repositories

// RepositoryProvider bundles every repository implementation for injection into
// the service container.
type RepositoryProvider struct {
	LedgerRepo          LedgerRepository
	ChargeOrderRepo     ChargeOrderRepository
	BankTransactionRepo BankTransactionRepository
	QueueRepo           QueueRepository
	JobLockRepo         JobLockRepository
	WebhookRepo         WebhookRepository
}
