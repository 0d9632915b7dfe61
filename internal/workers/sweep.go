package workers

import (
	"context"
	"errors"
	"time"

	portsrepo "github.com/denthub/credit-engine/internal/core/ports/repositories"
	portssvc "github.com/denthub/credit-engine/internal/core/ports/services"

	"github.com/denthub/credit-engine/internal/apperrors"
	"github.com/denthub/credit-engine/internal/middleware"
	"github.com/denthub/credit-engine/internal/platform/metrics"
)

const (
	sweepLockName  = "deposit-sweep"
	sweepBatchSize = 200
)

// SweepRunner runs the deposit-match sweep on an interval, serialized across
// processes by a named TTL lock. Losing the acquire just skips the pass.
type SweepRunner struct {
	ownerID     string
	matchingSvc portssvc.MatchingSvcFacade
	lockRepo    portsrepo.JobLockRepository
	interval    time.Duration
	lockTTL     time.Duration
}

// NewSweepRunner creates a new SweepRunner.
func NewSweepRunner(ownerID string, matchingSvc portssvc.MatchingSvcFacade, lockRepo portsrepo.JobLockRepository, interval, lockTTL time.Duration) *SweepRunner {
	return &SweepRunner{
		ownerID:     ownerID,
		matchingSvc: matchingSvc,
		lockRepo:    lockRepo,
		interval:    interval,
		lockTTL:     lockTTL,
	}
}

// Run sweeps until ctx is cancelled.
func (r *SweepRunner) Run(ctx context.Context) {
	logger := middleware.GetLoggerFromCtx(ctx)
	logger.Info("sweep runner started", "ownerID", r.ownerID, "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.RunOnce(ctx); err != nil {
			logger.Error("sweep pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			logger.Info("sweep runner stopping", "ownerID", r.ownerID)
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs one lock-guarded sweep pass. A held lock is not an error;
// another process is sweeping.
func (r *SweepRunner) RunOnce(ctx context.Context) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	_, err := r.lockRepo.Acquire(ctx, sweepLockName, r.ownerID, r.lockTTL, time.Now())
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil
		}
		return err
	}
	defer func() {
		if err := r.lockRepo.Release(ctx, sweepLockName, r.ownerID); err != nil {
			logger.Warn("failed to release sweep lock", "error", err)
		}
	}()

	// Keep the lock alive while the sweep runs long.
	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go r.heartbeat(heartbeatCtx)

	start := time.Now()
	result, err := r.matchingSvc.RunSweep(ctx, sweepBatchSize)
	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	metrics.SweepMatched.Add(float64(result.Matched))
	metrics.SweepExpired.Add(float64(result.Expired))
	if result.Matched > 0 || result.Expired > 0 {
		logger.Info("sweep pass finished",
			"scanned", result.Scanned,
			"matched", result.Matched,
			"expired", result.Expired,
		)
	}
	return nil
}

func (r *SweepRunner) heartbeat(ctx context.Context) {
	logger := middleware.GetLoggerFromCtx(ctx)
	ticker := time.NewTicker(r.lockTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.lockRepo.Heartbeat(ctx, sweepLockName, r.ownerID, r.lockTTL, time.Now()); err != nil {
				logger.Warn("sweep lock heartbeat failed", "error", err)
				return
			}
		}
	}
}
