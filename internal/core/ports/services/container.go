package services

// ServiceContainer holds every service facade for injection into handlers and workers.
type ServiceContainer struct {
	Ledger      LedgerSvcFacade
	ChargeOrder ChargeOrderSvcFacade
	Matching    MatchingSvcFacade
	Queue       QueueSvcFacade
	Webhook     WebhookSvcFacade
}
