package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/denthub/credit-engine/internal/apperrors"
	"github.com/denthub/credit-engine/internal/core/domain"
	portsrepo "github.com/denthub/credit-engine/internal/core/ports/repositories"
	"github.com/denthub/credit-engine/internal/models"
	"github.com/denthub/credit-engine/internal/utils/mapping"
)

type PgxQueueRepository struct {
	BaseRepository
}

func newPgxQueueRepository(pool *pgxpool.Pool) portsrepo.QueueRepository {
	return &PgxQueueRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxQueueRepository implements portsrepo.QueueRepository
var _ portsrepo.QueueRepository = (*PgxQueueRepository)(nil)

const queueTaskColumns = `task_id, task_type, status, priority, unique_key, payload, attempt_count, max_attempts, scheduled_for, last_attempt_at, processing_started_at, completed_at, failed_at, locked_by, locked_until, error_message, error_code, result, created_at`

func scanQueueTask(row pgx.Row) (models.QueueTask, error) {
	var m models.QueueTask
	err := row.Scan(
		&m.TaskID,
		&m.TaskType,
		&m.Status,
		&m.Priority,
		&m.UniqueKey,
		&m.Payload,
		&m.AttemptCount,
		&m.MaxAttempts,
		&m.ScheduledFor,
		&m.LastAttemptAt,
		&m.ProcessingStartedAt,
		&m.CompletedAt,
		&m.FailedAt,
		&m.LockedBy,
		&m.LockedUntil,
		&m.ErrorMessage,
		&m.ErrorCode,
		&m.Result,
		&m.CreatedAt,
	)
	return m, err
}

func (r *PgxQueueRepository) Insert(ctx context.Context, task domain.QueueTask) error {
	m := mapping.ToModelQueueTask(task)
	query := `
		INSERT INTO popbill_queue (task_id, task_type, status, priority, unique_key, payload, attempt_count, max_attempts, scheduled_for, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.TaskID,
		m.TaskType,
		m.Status,
		m.Priority,
		m.UniqueKey,
		m.Payload,
		m.AttemptCount,
		m.MaxAttempts,
		m.ScheduledFor,
		m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicate
		}
		return apperrors.NewAppError(500, "failed to insert queue task "+m.TaskID, err)
	}
	return nil
}

func (r *PgxQueueRepository) FindByID(ctx context.Context, taskID string) (*domain.QueueTask, error) {
	query := `SELECT ` + queueTaskColumns + ` FROM popbill_queue WHERE task_id = $1;`
	return r.findOne(ctx, query, taskID)
}

func (r *PgxQueueRepository) FindByUniqueKey(ctx context.Context, uniqueKey string) (*domain.QueueTask, error) {
	query := `SELECT ` + queueTaskColumns + ` FROM popbill_queue WHERE unique_key = $1;`
	return r.findOne(ctx, query, uniqueKey)
}

func (r *PgxQueueRepository) findOne(ctx context.Context, query string, arg any) (*domain.QueueTask, error) {
	m, err := scanQueueTask(r.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find queue task", err)
	}
	d := mapping.ToDomainQueueTask(m)
	return &d, nil
}

// Lease claims due PENDING tasks with FOR UPDATE SKIP LOCKED so concurrent
// workers never contend on the same rows. The attempt counter is incremented
// at claim time, so a crash mid-attempt still consumes the attempt once the
// reaper recovers the task.
func (r *PgxQueueRepository) Lease(ctx context.Context, workerID string, taskTypes []domain.TaskType, batchSize int, leaseTTL time.Duration, now time.Time) ([]domain.QueueTask, error) {
	types := make([]string, len(taskTypes))
	for i, t := range taskTypes {
		types[i] = string(t)
	}
	query := `
		UPDATE popbill_queue q
		SET status = 'PROCESSING',
		    locked_by = $1,
		    locked_until = $2,
		    processing_started_at = $3,
		    last_attempt_at = $3,
		    attempt_count = q.attempt_count + 1
		WHERE q.task_id IN (
			SELECT task_id
			FROM popbill_queue
			WHERE status = 'PENDING'
			  AND scheduled_for <= $3
			  AND task_type = ANY($4)
			ORDER BY priority DESC, created_at ASC
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		  AND q.status = 'PENDING'
		RETURNING ` + queueTaskColumns + `;
	`
	rows, err := r.Pool.Query(ctx, query, workerID, now.Add(leaseTTL), now, types, batchSize)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to lease queue tasks", err)
	}
	defer rows.Close()

	tasks := make([]models.QueueTask, 0, batchSize)
	for rows.Next() {
		m, err := scanQueueTask(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan leased task", err)
		}
		tasks = append(tasks, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating leased tasks", err)
	}
	return mapping.ToDomainQueueTaskSlice(tasks), nil
}

func (r *PgxQueueRepository) Complete(ctx context.Context, taskID, workerID string, result []byte, now time.Time) error {
	query := `
		UPDATE popbill_queue
		SET status = 'COMPLETED',
		    completed_at = $3,
		    result = $4,
		    error_message = NULL,
		    error_code = NULL,
		    locked_by = NULL,
		    locked_until = NULL
		WHERE task_id = $1
		  AND status = 'PROCESSING'
		  AND locked_by = $2;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, taskID, workerID, now, result)
	if err != nil {
		return apperrors.NewAppError(500, "failed to complete queue task "+taskID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *PgxQueueRepository) Reschedule(ctx context.Context, taskID string, taskErr domain.TaskError, scheduledFor time.Time) error {
	query := `
		UPDATE popbill_queue
		SET status = 'PENDING',
		    scheduled_for = $2,
		    error_message = $3,
		    error_code = $4,
		    locked_by = NULL,
		    locked_until = NULL
		WHERE task_id = $1
		  AND status = 'PROCESSING';
	`
	cmdTag, err := r.Pool.Exec(ctx, query, taskID, scheduledFor, taskErr.Message, nullIfEmpty(taskErr.Code))
	if err != nil {
		return apperrors.NewAppError(500, "failed to reschedule queue task "+taskID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *PgxQueueRepository) MarkFailed(ctx context.Context, taskID string, taskErr domain.TaskError, now time.Time) error {
	query := `
		UPDATE popbill_queue
		SET status = 'FAILED',
		    failed_at = $2,
		    error_message = $3,
		    error_code = $4,
		    locked_by = NULL,
		    locked_until = NULL
		WHERE task_id = $1
		  AND status = 'PROCESSING';
	`
	cmdTag, err := r.Pool.Exec(ctx, query, taskID, now, taskErr.Message, nullIfEmpty(taskErr.Code))
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark queue task failed "+taskID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *PgxQueueRepository) FindStuck(ctx context.Context, now time.Time, limit int) ([]domain.QueueTask, error) {
	query := `
		SELECT ` + queueTaskColumns + `
		FROM popbill_queue
		WHERE status = 'PROCESSING'
		  AND locked_until < $1
		ORDER BY locked_until ASC
		LIMIT $2;
	`
	rows, err := r.Pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to find stuck tasks", err)
	}
	defer rows.Close()

	tasks := make([]models.QueueTask, 0)
	for rows.Next() {
		m, err := scanQueueTask(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan stuck task", err)
		}
		tasks = append(tasks, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating stuck tasks", err)
	}
	return mapping.ToDomainQueueTaskSlice(tasks), nil
}

func (r *PgxQueueRepository) Cancel(ctx context.Context, taskID string, now time.Time) error {
	query := `
		UPDATE popbill_queue
		SET status = 'CANCELLED',
		    locked_by = NULL,
		    locked_until = NULL
		WHERE task_id = $1
		  AND status IN ('PENDING', 'PROCESSING');
	`
	cmdTag, err := r.Pool.Exec(ctx, query, taskID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to cancel queue task "+taskID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *PgxQueueRepository) ResetForRetry(ctx context.Context, taskID string, now time.Time) error {
	query := `
		UPDATE popbill_queue
		SET status = 'PENDING',
		    attempt_count = 0,
		    scheduled_for = $2,
		    failed_at = NULL,
		    error_message = NULL,
		    error_code = NULL
		WHERE task_id = $1
		  AND status = 'FAILED';
	`
	cmdTag, err := r.Pool.Exec(ctx, query, taskID, now)
	if err != nil {
		return apperrors.NewAppError(500, "failed to reset queue task "+taskID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *PgxQueueRepository) Stats(ctx context.Context) ([]domain.QueueStat, error) {
	query := `
		SELECT task_type, status, COUNT(*)
		FROM popbill_queue
		GROUP BY task_type, status
		ORDER BY task_type, status;
	`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query queue stats", err)
	}
	defer rows.Close()

	stats := make([]domain.QueueStat, 0)
	for rows.Next() {
		var s domain.QueueStat
		if err := rows.Scan(&s.TaskType, &s.Status, &s.Count); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan queue stat", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating queue stats", err)
	}
	return stats, nil
}

func (r *PgxQueueRepository) List(ctx context.Context, status domain.TaskStatus, taskType domain.TaskType, limit int) ([]domain.QueueTask, error) {
	query := `
		SELECT ` + queueTaskColumns + `
		FROM popbill_queue
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR task_type = $2)
		ORDER BY created_at DESC
		LIMIT $3;
	`
	rows, err := r.Pool.Query(ctx, query, string(status), string(taskType), limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list queue tasks", err)
	}
	defer rows.Close()

	tasks := make([]models.QueueTask, 0, limit)
	for rows.Next() {
		m, err := scanQueueTask(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan queue task", err)
		}
		tasks = append(tasks, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating queue tasks", err)
	}
	return mapping.ToDomainQueueTaskSlice(tasks), nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
