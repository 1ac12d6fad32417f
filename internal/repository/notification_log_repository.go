package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketshield/citation-intake/internal/domain"
)

// NotificationLogRepository stores delivery attempt outcomes.
type NotificationLogRepository interface {
	Create(ctx context.Context, entry *domain.NotificationLogEntry) error
	ListByCase(ctx context.Context, caseID string, limit int) ([]domain.NotificationLogEntry, error)
}

type notificationLogRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationLogRepository builds repository.
func NewNotificationLogRepository(pool *pgxpool.Pool) NotificationLogRepository {
	return &notificationLogRepository{pool: pool}
}

func (r *notificationLogRepository) Create(ctx context.Context, entry *domain.NotificationLogEntry) error {
	const query = `
        INSERT INTO notification_logs (type, case_id, status, masked_email, outcome)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.Type,
		entry.CaseID,
		entry.Status,
		entry.MaskedEmail,
		entry.Outcome,
	).Scan(&entry.ID, &entry.Timestamp)
}

func (r *notificationLogRepository) ListByCase(ctx context.Context, caseID string, limit int) ([]domain.NotificationLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, type, case_id, status, masked_email, outcome, created_at
        FROM notification_logs WHERE case_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, caseID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.NotificationLogEntry
	for rows.Next() {
		var entry domain.NotificationLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Type,
			&entry.CaseID,
			&entry.Status,
			&entry.MaskedEmail,
			&entry.Outcome,
			&entry.Timestamp,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
