package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketshield/citation-intake/internal/domain"
)

// AlertRepository stores operator-facing admin alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *domain.AdminAlert) error
	GetByID(ctx context.Context, id string) (*domain.AdminAlert, error)
	UpdateStatus(ctx context.Context, id string, status domain.AlertStatus) error
	AddNote(ctx context.Context, id string, note domain.AlertNote) error
	List(ctx context.Context, status domain.AlertStatus, limit int) ([]domain.AdminAlert, error)
}

type alertRepository struct {
	pool *pgxpool.Pool
}

// NewAlertRepository builds repository.
func NewAlertRepository(pool *pgxpool.Pool) AlertRepository {
	return &alertRepository{pool: pool}
}

func (r *alertRepository) Create(ctx context.Context, alert *domain.AdminAlert) error {
	clientInfo, err := json.Marshal(alert.ClientInfo)
	if err != nil {
		return err
	}
	caseInfo, err := json.Marshal(alert.CaseInfo)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO admin_alerts (type, case_id, client_info, case_info, error_details, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		alert.Type,
		alert.CaseID,
		clientInfo,
		caseInfo,
		alert.ErrorDetails,
		alert.Status,
	).Scan(&alert.ID, &alert.CreatedAt, &alert.UpdatedAt)
}

func (r *alertRepository) GetByID(ctx context.Context, id string) (*domain.AdminAlert, error) {
	const query = `
        SELECT id, type, case_id, client_info, case_info, error_details, status, notes, created_at, updated_at
        FROM admin_alerts WHERE id=$1`
	return scanAlert(r.pool.QueryRow(ctx, query, id))
}

func (r *alertRepository) UpdateStatus(ctx context.Context, id string, status domain.AlertStatus) error {
	const query = `UPDATE admin_alerts SET status=$2, updated_at=now() WHERE id=$1`
	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert %s not found", id)
	}
	return nil
}

func (r *alertRepository) AddNote(ctx context.Context, id string, note domain.AlertNote) error {
	item, err := json.Marshal(note)
	if err != nil {
		return err
	}
	const query = `
        UPDATE admin_alerts SET notes = notes || $2::jsonb, updated_at=now()
        WHERE id=$1`
	tag, err := r.pool.Exec(ctx, query, id, item)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert %s not found", id)
	}
	return nil
}

func (r *alertRepository) List(ctx context.Context, status domain.AlertStatus, limit int) ([]domain.AdminAlert, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
        SELECT id, type, case_id, client_info, case_info, error_details, status, notes, created_at, updated_at
        FROM admin_alerts`
	args := []any{}
	if status != "" {
		query += ` WHERE status=$1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, status, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AdminAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *alert)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*domain.AdminAlert, error) {
	var (
		alert      domain.AdminAlert
		clientInfo []byte
		caseInfo   []byte
		notes      []byte
	)
	if err := row.Scan(
		&alert.ID,
		&alert.Type,
		&alert.CaseID,
		&clientInfo,
		&caseInfo,
		&alert.ErrorDetails,
		&alert.Status,
		&notes,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(clientInfo, &alert.ClientInfo); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(caseInfo, &alert.CaseInfo); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(notes, &alert.Notes); err != nil {
		return nil, err
	}
	return &alert, nil
}
