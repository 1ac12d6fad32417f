package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketshield/citation-intake/internal/domain"
)

// ScheduledEmailRepository stores follow-up review requests for a separate
// scheduler to dispatch.
type ScheduledEmailRepository interface {
	Create(ctx context.Context, record *domain.ScheduledReviewEmail) error
	ListDue(ctx context.Context, before time.Time, limit int) ([]domain.ScheduledReviewEmail, error)
}

type scheduledEmailRepository struct {
	pool *pgxpool.Pool
}

// NewScheduledEmailRepository builds repository.
func NewScheduledEmailRepository(pool *pgxpool.Pool) ScheduledEmailRepository {
	return &scheduledEmailRepository{pool: pool}
}

func (r *scheduledEmailRepository) Create(ctx context.Context, record *domain.ScheduledReviewEmail) error {
	const query = `
        INSERT INTO scheduled_review_emails (case_id, email, first_name, scheduled_for, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		record.CaseID,
		record.Email,
		record.FirstName,
		record.ScheduledFor,
		record.Status,
	).Scan(&record.ID, &record.CreatedAt)
}

func (r *scheduledEmailRepository) ListDue(ctx context.Context, before time.Time, limit int) ([]domain.ScheduledReviewEmail, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, case_id, email, first_name, scheduled_for, status, created_at
        FROM scheduled_review_emails
        WHERE status=$1 AND scheduled_for <= $2
        ORDER BY scheduled_for ASC LIMIT $3`
	rows, err := r.pool.Query(ctx, query, domain.ScheduledStatusPending, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ScheduledReviewEmail
	for rows.Next() {
		var record domain.ScheduledReviewEmail
		if err := rows.Scan(
			&record.ID,
			&record.CaseID,
			&record.Email,
			&record.FirstName,
			&record.ScheduledFor,
			&record.Status,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}
