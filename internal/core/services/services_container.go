package services

import (
	portsrepo "github.com/denthub/credit-engine/internal/core/ports/repositories"
	portssvc "github.com/denthub/credit-engine/internal/core/ports/services"
	"github.com/denthub/credit-engine/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Ledger = NewLedgerService(repos.LedgerRepo)
	container.Queue = NewQueueService(repos.QueueRepo, cfg.QueueLeaseTTL)
	container.ChargeOrder = NewChargeOrderService(repos.ChargeOrderRepo, repos.BankTransactionRepo, cfg.ChargeOrderTTL)
	container.Matching = NewMatchingService(repos.ChargeOrderRepo, repos.BankTransactionRepo)
	container.Webhook = NewWebhookService(repos.WebhookRepo, container.Ledger, container.Queue)

	return container
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.LedgerSvcFacade      = (*ledgerService)(nil)
	_ portssvc.ChargeOrderSvcFacade = (*chargeOrderService)(nil)
	_ portssvc.MatchingSvcFacade    = (*matchingService)(nil)
	_ portssvc.QueueSvcFacade       = (*queueService)(nil)
	_ portssvc.WebhookSvcFacade     = (*webhookService)(nil)
)
