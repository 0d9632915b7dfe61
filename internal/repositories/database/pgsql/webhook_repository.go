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

type PgxWebhookRepository struct {
	BaseRepository
}

func newPgxWebhookRepository(pool *pgxpool.Pool) portsrepo.WebhookRepository {
	return &PgxWebhookRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxWebhookRepository implements portsrepo.WebhookRepository
var _ portsrepo.WebhookRepository = (*PgxWebhookRepository)(nil)

const webhookColumns = `event_id, transmission_id, event_type, order_id, body, process_status, error_message, created_at, processed_at`

func scanWebhookEvent(row pgx.Row) (models.WebhookEvent, error) {
	var m models.WebhookEvent
	err := row.Scan(
		&m.EventID,
		&m.TransmissionID,
		&m.EventType,
		&m.OrderID,
		&m.Body,
		&m.ProcessStatus,
		&m.Error,
		&m.CreatedAt,
		&m.ProcessedAt,
	)
	return m, err
}

func (r *PgxWebhookRepository) Insert(ctx context.Context, event domain.WebhookEvent) error {
	m := mapping.ToModelWebhookEvent(event)
	query := `
		INSERT INTO webhook_events (event_id, transmission_id, event_type, order_id, body, process_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.EventID,
		m.TransmissionID,
		m.EventType,
		m.OrderID,
		m.Body,
		m.ProcessStatus,
		m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicate
		}
		return apperrors.NewAppError(500, "failed to insert webhook event "+m.EventID, err)
	}
	return nil
}

func (r *PgxWebhookRepository) FindByTransmissionID(ctx context.Context, transmissionID string) (*domain.WebhookEvent, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhook_events WHERE transmission_id = $1;`
	m, err := scanWebhookEvent(r.Pool.QueryRow(ctx, query, transmissionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find webhook event", err)
	}
	d := mapping.ToDomainWebhookEvent(m)
	return &d, nil
}

func (r *PgxWebhookRepository) MarkProcessed(ctx context.Context, eventID string, now time.Time) error {
	return r.setStatus(ctx, eventID, string(domain.WebhookProcessed), nil, now)
}

func (r *PgxWebhookRepository) MarkIgnored(ctx context.Context, eventID string, now time.Time) error {
	return r.setStatus(ctx, eventID, string(domain.WebhookIgnored), nil, now)
}

func (r *PgxWebhookRepository) MarkFailed(ctx context.Context, eventID, errMsg string, now time.Time) error {
	return r.setStatus(ctx, eventID, string(domain.WebhookFailed), &errMsg, now)
}

func (r *PgxWebhookRepository) setStatus(ctx context.Context, eventID, status string, errMsg *string, now time.Time) error {
	query := `
		UPDATE webhook_events
		SET process_status = $2, error_message = $3, processed_at = $4
		WHERE event_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, eventID, status, errMsg, now)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update webhook event "+eventID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxWebhookRepository) ListRetryable(ctx context.Context, limit int) ([]domain.WebhookEvent, error) {
	query := `
		SELECT ` + webhookColumns + `
		FROM webhook_events
		WHERE process_status IN ('RECEIVED', 'FAILED')
		ORDER BY created_at ASC
		LIMIT $1;
	`
	rows, err := r.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list retryable webhook events", err)
	}
	defer rows.Close()

	events := make([]models.WebhookEvent, 0, limit)
	for rows.Next() {
		m, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan webhook event", err)
		}
		events = append(events, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating webhook events", err)
	}
	return mapping.ToDomainWebhookEventSlice(events), nil
}
