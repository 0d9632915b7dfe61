package workers

import (
	"context"
	"time"

	portssvc "github.com/denthub/credit-engine/internal/core/ports/services"

	"github.com/denthub/credit-engine/internal/middleware"
	"github.com/denthub/credit-engine/internal/platform/metrics"
)

const pendingWebhookBatch = 50

// Reaper recovers tasks stranded in PROCESSING by crashed workers and retries
// webhook events that failed downstream.
type Reaper struct {
	queueSvc   portssvc.QueueSvcFacade
	webhookSvc portssvc.WebhookSvcFacade
	interval   time.Duration
}

// NewReaper creates a new Reaper.
func NewReaper(queueSvc portssvc.QueueSvcFacade, webhookSvc portssvc.WebhookSvcFacade, interval time.Duration) *Reaper {
	return &Reaper{
		queueSvc:   queueSvc,
		webhookSvc: webhookSvc,
		interval:   interval,
	}
}

// Run reaps until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	logger := middleware.GetLoggerFromCtx(ctx)
	logger.Info("reaper started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.RunOnce(ctx); err != nil {
			logger.Error("reap pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			logger.Info("reaper stopping")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce recovers expired leases and replays pending webhook events.
func (r *Reaper) RunOnce(ctx context.Context) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	reaped, err := r.queueSvc.Reap(ctx)
	if err != nil {
		return err
	}
	if reaped > 0 {
		metrics.TasksReaped.Add(float64(reaped))
		logger.Info("reaped stuck tasks", "count", reaped)
	}

	if _, err := r.webhookSvc.ProcessPending(ctx, pendingWebhookBatch); err != nil {
		return err
	}
	return nil
}
