package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/denthub/credit-engine/internal/apperrors"
	"github.com/denthub/credit-engine/internal/core/domain"
	portsrepo "github.com/denthub/credit-engine/internal/core/ports/repositories"
	portssvc "github.com/denthub/credit-engine/internal/core/ports/services"
	"github.com/denthub/credit-engine/internal/middleware"
)

const (
	defaultMaxAttempts   = 5
	bankCheckMaxAttempts = 20 // statement collection polls until the provider finishes
	maxBackoff           = 30 * time.Minute
	retryWindow          = 6 * time.Hour
	reapBatchSize        = 100
)

// queueService provides the durable task queue over external-provider calls.
type queueService struct {
	queueRepo portsrepo.QueueRepository
	leaseTTL  time.Duration
}

// NewQueueService creates a new QueueService.
func NewQueueService(queueRepo portsrepo.QueueRepository, leaseTTL time.Duration) portssvc.QueueSvcFacade {
	return &queueService{
		queueRepo: queueRepo,
		leaseTTL:  leaseTTL,
	}
}

// Ensure queueService implements the portssvc.QueueSvcFacade interface
var _ portssvc.QueueSvcFacade = (*queueService)(nil)

// BackoffFor returns the delay before retry n, counting the attempt that just
// failed: 2^n seconds, capped at 30 minutes.
func BackoffFor(attemptCount int) time.Duration {
	if attemptCount < 0 {
		attemptCount = 0
	}
	if attemptCount > 11 { // 2^11s > 30m
		return maxBackoff
	}
	backoff := time.Duration(1<<uint(attemptCount)) * time.Second
	if backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}

func maxAttemptsFor(taskType domain.TaskType) int {
	if taskType == domain.TaskEasyFinBankCheck {
		return bankCheckMaxAttempts
	}
	return defaultMaxAttempts
}

func (s *queueService) Enqueue(ctx context.Context, p portssvc.EnqueueParams) (*domain.QueueTask, error) {
	now := time.Now()

	task := domain.QueueTask{
		TaskID:       uuid.New().String(),
		TaskType:     p.TaskType,
		Status:       domain.TaskPending,
		Priority:     p.Priority,
		UniqueKey:    p.UniqueKey,
		Payload:      p.Payload,
		MaxAttempts:  p.MaxAttempts,
		ScheduledFor: p.ScheduledFor,
		CreatedAt:    now,
	}
	if task.UniqueKey == "" {
		task.UniqueKey = task.TaskID
	}
	if task.MaxAttempts <= 0 {
		task.MaxAttempts = maxAttemptsFor(p.TaskType)
	}
	if task.ScheduledFor.IsZero() {
		task.ScheduledFor = now
	}

	err := s.queueRepo.Insert(ctx, task)
	if err == nil {
		return &task, nil
	}
	if errors.Is(err, apperrors.ErrDuplicate) {
		return s.queueRepo.FindByUniqueKey(ctx, task.UniqueKey)
	}
	return nil, err
}

func (s *queueService) Lease(ctx context.Context, workerID string, taskTypes []domain.TaskType, batchSize int) ([]domain.QueueTask, error) {
	if len(taskTypes) == 0 {
		taskTypes = domain.AllTaskTypes()
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return s.queueRepo.Lease(ctx, workerID, taskTypes, batchSize, s.leaseTTL, time.Now())
}

func (s *queueService) Complete(ctx context.Context, taskID, workerID string, result []byte) error {
	return s.queueRepo.Complete(ctx, taskID, workerID, result, time.Now())
}

// Fail records the failed attempt and decides between retry and terminal
// failure. A task retries while the error is retryable, attempts remain and
// the task is younger than the retry window; otherwise it parks as FAILED for
// an operator.
func (s *queueService) Fail(ctx context.Context, taskID string, taskErr domain.TaskError, retryable bool) error {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	task, err := s.queueRepo.FindByID(ctx, taskID)
	if err != nil {
		return err
	}

	canRetry := retryable &&
		task.AttemptCount < task.MaxAttempts &&
		now.Sub(task.CreatedAt) < retryWindow

	if canRetry {
		scheduledFor := now.Add(BackoffFor(task.AttemptCount))
		if err := s.queueRepo.Reschedule(ctx, taskID, taskErr, scheduledFor); err != nil {
			return err
		}
		logger.Warn("task attempt failed, rescheduled",
			"taskID", taskID,
			"taskType", string(task.TaskType),
			"attemptCount", task.AttemptCount,
			"scheduledFor", scheduledFor,
			"error", taskErr.Message,
		)
		return nil
	}

	if err := s.queueRepo.MarkFailed(ctx, taskID, taskErr, now); err != nil {
		return err
	}
	logger.Error("task failed terminally",
		"taskID", taskID,
		"taskType", string(task.TaskType),
		"attemptCount", task.AttemptCount,
		"error", taskErr.Message,
	)
	return nil
}

// Reap recovers tasks whose holder died mid-attempt: every PROCESSING task
// past its lease goes back through Fail as a retryable lease expiry.
func (s *queueService) Reap(ctx context.Context) (int, error) {
	stuck, err := s.queueRepo.FindStuck(ctx, time.Now(), reapBatchSize)
	if err != nil {
		return 0, err
	}
	reaped := 0
	for _, task := range stuck {
		err := s.Fail(ctx, task.TaskID, domain.TaskError{Message: "lease expired", Code: "LEASE_EXPIRED"}, true)
		if err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				continue
			}
			return reaped, err
		}
		reaped++
	}
	return reaped, nil
}

func (s *queueService) Cancel(ctx context.Context, taskID string) error {
	return s.queueRepo.Cancel(ctx, taskID, time.Now())
}

func (s *queueService) Retry(ctx context.Context, taskID string) error {
	return s.queueRepo.ResetForRetry(ctx, taskID, time.Now())
}

func (s *queueService) GetTask(ctx context.Context, taskID string) (*domain.QueueTask, error) {
	return s.queueRepo.FindByID(ctx, taskID)
}

func (s *queueService) ListTasks(ctx context.Context, status domain.TaskStatus, taskType domain.TaskType, limit int) ([]domain.QueueTask, error) {
	if limit < 1 {
		limit = 100
	}
	return s.queueRepo.List(ctx, status, taskType, limit)
}

func (s *queueService) Stats(ctx context.Context) ([]domain.QueueStat, error) {
	return s.queueRepo.Stats(ctx)
}
