package mapping

import (
	"encoding/json"

	"github.com/denthub/credit-engine/internal/core/domain"
	"github.com/denthub/credit-engine/internal/models"
)

// ToModelLedgerEntry converts a domain LedgerEntry to a model LedgerEntry
func ToModelLedgerEntry(d domain.LedgerEntry) models.LedgerEntry {
	return models.LedgerEntry{
		EntryID:        d.EntryID,
		OrganizationID: d.OrganizationID,
		UserID:         d.UserID,
		Type:           string(d.Type),
		Amount:         d.Amount,
		UniqueKey:      d.UniqueKey,
		RefType:        d.RefType,
		RefID:          d.RefID,
		CreatedAt:      d.CreatedAt,
		CreatedBy:      d.CreatedBy,
	}
}

// ToDomainLedgerEntry converts a model LedgerEntry to a domain LedgerEntry
func ToDomainLedgerEntry(m models.LedgerEntry) domain.LedgerEntry {
	return domain.LedgerEntry{
		EntryID:        m.EntryID,
		OrganizationID: m.OrganizationID,
		UserID:         m.UserID,
		Type:           domain.LedgerEntryType(m.Type),
		Amount:         m.Amount,
		UniqueKey:      m.UniqueKey,
		RefType:        m.RefType,
		RefID:          m.RefID,
		CreatedAt:      m.CreatedAt,
		CreatedBy:      m.CreatedBy,
	}
}

// ToDomainLedgerEntrySlice converts a slice of model LedgerEntries to domain LedgerEntries
func ToDomainLedgerEntrySlice(ms []models.LedgerEntry) []domain.LedgerEntry {
	ds := make([]domain.LedgerEntry, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainLedgerEntry(m)
	}
	return ds
}

// ToModelChargeOrder converts a domain ChargeOrder to a model ChargeOrder
func ToModelChargeOrder(d domain.ChargeOrder) models.ChargeOrder {
	m := models.ChargeOrder{
		OrderID:        d.OrderID,
		OrganizationID: d.OrganizationID,
		UserID:         d.UserID,
		DepositCode:    d.DepositCode,
		DepositorName:  d.DepositorName,
		Status:         string(d.Status),
		SupplyAmount:   d.SupplyAmount,
		VatAmount:      d.VatAmount,
		AmountTotal:    d.AmountTotal,
		ExpiresAt:      d.ExpiresAt,
		MatchedAt:      d.MatchedAt,
		CreatedAt:      d.CreatedAt,
	}
	if d.BankTransactionID != "" {
		m.BankTransactionID = &d.BankTransactionID
	}
	if d.MatchedBy != "" {
		by := string(d.MatchedBy)
		m.MatchedBy = &by
	}
	if d.MatchedByUserID != "" {
		m.MatchedByUserID = &d.MatchedByUserID
	}
	return m
}

// ToDomainChargeOrder converts a model ChargeOrder to a domain ChargeOrder
func ToDomainChargeOrder(m models.ChargeOrder) domain.ChargeOrder {
	d := domain.ChargeOrder{
		OrderID:        m.OrderID,
		OrganizationID: m.OrganizationID,
		UserID:         m.UserID,
		DepositCode:    m.DepositCode,
		DepositorName:  m.DepositorName,
		Status:         domain.ChargeOrderStatus(m.Status),
		SupplyAmount:   m.SupplyAmount,
		VatAmount:      m.VatAmount,
		AmountTotal:    m.AmountTotal,
		ExpiresAt:      m.ExpiresAt,
		MatchedAt:      m.MatchedAt,
		CreatedAt:      m.CreatedAt,
	}
	if m.BankTransactionID != nil {
		d.BankTransactionID = *m.BankTransactionID
	}
	if m.MatchedBy != nil {
		d.MatchedBy = domain.MatchedBy(*m.MatchedBy)
	}
	if m.MatchedByUserID != nil {
		d.MatchedByUserID = *m.MatchedByUserID
	}
	return d
}

// ToDomainChargeOrderSlice converts a slice of model ChargeOrders to domain ChargeOrders
func ToDomainChargeOrderSlice(ms []models.ChargeOrder) []domain.ChargeOrder {
	ds := make([]domain.ChargeOrder, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainChargeOrder(m)
	}
	return ds
}

// ToModelBankTransaction converts a domain BankTransaction to a model BankTransaction
func ToModelBankTransaction(d domain.BankTransaction) models.BankTransaction {
	m := models.BankTransaction{
		TransactionID:  d.TransactionID,
		ExternalID:     d.ExternalID,
		BankCode:       d.BankCode,
		AccountNumber:  d.AccountNumber,
		Amount:         d.Amount,
		PrintedContent: d.PrintedContent,
		DepositCode:    d.DepositCode,
		Status:         string(d.Status),
		OccurredAt:     d.OccurredAt,
		CreatedAt:      d.CreatedAt,
	}
	if d.ChargeOrderID != "" {
		m.ChargeOrderID = &d.ChargeOrderID
	}
	return m
}

// ToDomainBankTransaction converts a model BankTransaction to a domain BankTransaction
func ToDomainBankTransaction(m models.BankTransaction) domain.BankTransaction {
	d := domain.BankTransaction{
		TransactionID:  m.TransactionID,
		ExternalID:     m.ExternalID,
		BankCode:       m.BankCode,
		AccountNumber:  m.AccountNumber,
		Amount:         m.Amount,
		PrintedContent: m.PrintedContent,
		DepositCode:    m.DepositCode,
		Status:         domain.BankTransactionStatus(m.Status),
		OccurredAt:     m.OccurredAt,
		CreatedAt:      m.CreatedAt,
	}
	if m.ChargeOrderID != nil {
		d.ChargeOrderID = *m.ChargeOrderID
	}
	return d
}

// ToDomainBankTransactionSlice converts a slice of model BankTransactions to domain BankTransactions
func ToDomainBankTransactionSlice(ms []models.BankTransaction) []domain.BankTransaction {
	ds := make([]domain.BankTransaction, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainBankTransaction(m)
	}
	return ds
}

// ToModelQueueTask converts a domain QueueTask to a model QueueTask
func ToModelQueueTask(d domain.QueueTask) models.QueueTask {
	m := models.QueueTask{
		TaskID:              d.TaskID,
		TaskType:            string(d.TaskType),
		Status:              string(d.Status),
		Priority:            d.Priority,
		UniqueKey:           d.UniqueKey,
		Payload:             d.Payload,
		AttemptCount:        d.AttemptCount,
		MaxAttempts:         d.MaxAttempts,
		ScheduledFor:        d.ScheduledFor,
		LastAttemptAt:       d.LastAttemptAt,
		ProcessingStartedAt: d.ProcessingStartedAt,
		CompletedAt:         d.CompletedAt,
		FailedAt:            d.FailedAt,
		LockedUntil:         d.LockedUntil,
		Result:              d.Result,
		CreatedAt:           d.CreatedAt,
	}
	if d.LockedBy != "" {
		m.LockedBy = &d.LockedBy
	}
	if d.Error != nil {
		m.ErrorMessage = &d.Error.Message
		if d.Error.Code != "" {
			m.ErrorCode = &d.Error.Code
		}
	}
	return m
}

// ToDomainQueueTask converts a model QueueTask to a domain QueueTask
func ToDomainQueueTask(m models.QueueTask) domain.QueueTask {
	d := domain.QueueTask{
		TaskID:              m.TaskID,
		TaskType:            domain.TaskType(m.TaskType),
		Status:              domain.TaskStatus(m.Status),
		Priority:            m.Priority,
		UniqueKey:           m.UniqueKey,
		Payload:             json.RawMessage(m.Payload),
		AttemptCount:        m.AttemptCount,
		MaxAttempts:         m.MaxAttempts,
		ScheduledFor:        m.ScheduledFor,
		LastAttemptAt:       m.LastAttemptAt,
		ProcessingStartedAt: m.ProcessingStartedAt,
		CompletedAt:         m.CompletedAt,
		FailedAt:            m.FailedAt,
		LockedUntil:         m.LockedUntil,
		Result:              json.RawMessage(m.Result),
		CreatedAt:           m.CreatedAt,
	}
	if m.LockedBy != nil {
		d.LockedBy = *m.LockedBy
	}
	if m.ErrorMessage != nil {
		taskErr := domain.TaskError{Message: *m.ErrorMessage}
		if m.ErrorCode != nil {
			taskErr.Code = *m.ErrorCode
		}
		d.Error = &taskErr
	}
	return d
}

// ToDomainQueueTaskSlice converts a slice of model QueueTasks to domain QueueTasks
func ToDomainQueueTaskSlice(ms []models.QueueTask) []domain.QueueTask {
	ds := make([]domain.QueueTask, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainQueueTask(m)
	}
	return ds
}

// ToDomainJobLock converts a model JobLock to a domain JobLock
func ToDomainJobLock(m models.JobLock) domain.JobLock {
	return domain.JobLock{
		Name:        m.Name,
		OwnerID:     m.OwnerID,
		AcquiredAt:  m.AcquiredAt,
		HeartbeatAt: m.HeartbeatAt,
		ExpiresAt:   m.ExpiresAt,
	}
}

// ToModelWebhookEvent converts a domain WebhookEvent to a model WebhookEvent
func ToModelWebhookEvent(d domain.WebhookEvent) models.WebhookEvent {
	m := models.WebhookEvent{
		EventID:        d.EventID,
		TransmissionID: d.TransmissionID,
		EventType:      string(d.EventType),
		OrderID:        d.OrderID,
		Body:           d.Body,
		ProcessStatus:  string(d.ProcessStatus),
		CreatedAt:      d.CreatedAt,
		ProcessedAt:    d.ProcessedAt,
	}
	if d.Error != "" {
		m.Error = &d.Error
	}
	return m
}

// ToDomainWebhookEvent converts a model WebhookEvent to a domain WebhookEvent
func ToDomainWebhookEvent(m models.WebhookEvent) domain.WebhookEvent {
	d := domain.WebhookEvent{
		EventID:        m.EventID,
		TransmissionID: m.TransmissionID,
		EventType:      domain.WebhookEventType(m.EventType),
		OrderID:        m.OrderID,
		Body:           json.RawMessage(m.Body),
		ProcessStatus:  domain.WebhookProcessStatus(m.ProcessStatus),
		CreatedAt:      m.CreatedAt,
		ProcessedAt:    m.ProcessedAt,
	}
	if m.Error != nil {
		d.Error = *m.Error
	}
	return d
}

// ToDomainWebhookEventSlice converts a slice of model WebhookEvents to domain WebhookEvents
func ToDomainWebhookEventSlice(ms []models.WebhookEvent) []domain.WebhookEvent {
	ds := make([]domain.WebhookEvent, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainWebhookEvent(m)
	}
	return ds
}
