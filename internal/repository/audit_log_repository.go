package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketshield/citation-intake/internal/domain"
)

// AuditLogRepository stores status transition audit entries.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *domain.AuditLogEntry) error
	ListByCase(ctx context.Context, caseID string, limit int) ([]domain.AuditLogEntry, error)
}

type auditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository builds repository.
func NewAuditLogRepository(pool *pgxpool.Pool) AuditLogRepository {
	return &auditLogRepository{pool: pool}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	const query = `
        INSERT INTO audit_logs (type, case_id, old_status, new_status, source)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.Type,
		entry.CaseID,
		entry.OldStatus,
		entry.NewStatus,
		entry.Source,
	).Scan(&entry.ID, &entry.Timestamp)
}

func (r *auditLogRepository) ListByCase(ctx context.Context, caseID string, limit int) ([]domain.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, type, case_id, old_status, new_status, source, created_at
        FROM audit_logs WHERE case_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, caseID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditLogEntry
	for rows.Next() {
		var entry domain.AuditLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Type,
			&entry.CaseID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.Source,
			&entry.Timestamp,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
