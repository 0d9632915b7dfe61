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

type PgxJobLockRepository struct {
	BaseRepository
}

func newPgxJobLockRepository(pool *pgxpool.Pool) portsrepo.JobLockRepository {
	return &PgxJobLockRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxJobLockRepository implements portsrepo.JobLockRepository
var _ portsrepo.JobLockRepository = (*PgxJobLockRepository)(nil)

// Acquire claims the named lock in one conditional upsert. The DO UPDATE arm
// only fires when the existing row has already expired, so a live holder is
// never displaced; no row returned means the lock is held and ErrConflict is
// surfaced without any read-then-write window.
func (r *PgxJobLockRepository) Acquire(ctx context.Context, name, ownerID string, ttl time.Duration, now time.Time) (*domain.JobLock, error) {
	query := `
		INSERT INTO job_locks (name, owner_id, acquired_at, heartbeat_at, expires_at)
		VALUES ($1, $2, $3, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET owner_id = EXCLUDED.owner_id,
		    acquired_at = EXCLUDED.acquired_at,
		    heartbeat_at = EXCLUDED.heartbeat_at,
		    expires_at = EXCLUDED.expires_at
		WHERE job_locks.expires_at <= $3
		RETURNING name, owner_id, acquired_at, heartbeat_at, expires_at;
	`
	var m models.JobLock
	err := r.Pool.QueryRow(ctx, query, name, ownerID, now, now.Add(ttl)).Scan(
		&m.Name,
		&m.OwnerID,
		&m.AcquiredAt,
		&m.HeartbeatAt,
		&m.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConflict
		}
		return nil, apperrors.NewAppError(500, "failed to acquire job lock "+name, err)
	}
	lock := mapping.ToDomainJobLock(m)
	return &lock, nil
}

func (r *PgxJobLockRepository) Heartbeat(ctx context.Context, name, ownerID string, ttl time.Duration, now time.Time) error {
	query := `
		UPDATE job_locks
		SET heartbeat_at = $3, expires_at = $4
		WHERE name = $1
		  AND owner_id = $2
		  AND expires_at > $3;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, name, ownerID, now, now.Add(ttl))
	if err != nil {
		return apperrors.NewAppError(500, "failed to heartbeat job lock "+name, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *PgxJobLockRepository) Release(ctx context.Context, name, ownerID string) error {
	query := `DELETE FROM job_locks WHERE name = $1 AND owner_id = $2;`
	if _, err := r.Pool.Exec(ctx, query, name, ownerID); err != nil {
		return apperrors.NewAppError(500, "failed to release job lock "+name, err)
	}
	return nil
}
