package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketshield/citation-intake/internal/domain"
)

// CaseRepository stores case documents keyed by case ID.
type CaseRepository interface {
	GetByID(ctx context.Context, caseID string) (*domain.Case, error)
	Create(ctx context.Context, c *domain.Case) error
	SetFields(ctx context.Context, caseID string, fields map[string]any) error
	UpdateStatus(ctx context.Context, caseID string, fields map[string]any, entry domain.StatusHistoryEntry) error
	AppendPaymentLog(ctx context.Context, caseID string, entry domain.PaymentLogEntry) error
}

type caseRepository struct {
	pool *pgxpool.Pool
}

// NewCaseRepository builds repository.
func NewCaseRepository(pool *pgxpool.Pool) CaseRepository {
	return &caseRepository{pool: pool}
}

func (r *caseRepository) GetByID(ctx context.Context, caseID string) (*domain.Case, error) {
	const query = `SELECT data, created_at, updated_at FROM cases WHERE case_id=$1`
	var (
		data []byte
		c    domain.Case
	)
	if err := r.pool.QueryRow(ctx, query, caseID).Scan(&data, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode case %s: %w", caseID, err)
	}
	c.CaseID = caseID
	return &c, nil
}

func (r *caseRepository) Create(ctx context.Context, c *domain.Case) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode case %s: %w", c.CaseID, err)
	}
	const query = `
        INSERT INTO cases (case_id, data)
        VALUES ($1, $2)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query, c.CaseID, data).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// SetFields merges the given top-level fields into the case document,
// leaving all other fields untouched.
func (r *caseRepository) SetFields(ctx context.Context, caseID string, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode patch for case %s: %w", caseID, err)
	}
	const query = `
        UPDATE cases SET data = data || $2::jsonb, updated_at = now()
        WHERE case_id=$1`
	tag, err := r.pool.Exec(ctx, query, caseID, patch)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("case %s not found", caseID)
	}
	return nil
}

// UpdateStatus merges the given fields and appends the history entry in one
// document update. Status changes must go through here: a two-step write
// would let change-feed consumers observe the new status without its history
// entry.
func (r *caseRepository) UpdateStatus(ctx context.Context, caseID string, fields map[string]any, entry domain.StatusHistoryEntry) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode patch for case %s: %w", caseID, err)
	}
	item, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry for case %s: %w", caseID, err)
	}
	const query = `
        UPDATE cases
        SET data = jsonb_set(data || $2::jsonb, '{statusHistory}',
                COALESCE(data->'statusHistory', '[]'::jsonb) || $3::jsonb),
            updated_at = now()
        WHERE case_id=$1`
	tag, err := r.pool.Exec(ctx, query, caseID, patch, item)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("case %s not found", caseID)
	}
	return nil
}

func (r *caseRepository) AppendPaymentLog(ctx context.Context, caseID string, entry domain.PaymentLogEntry) error {
	return r.appendToArray(ctx, caseID, "paymentLogs", entry)
}

func (r *caseRepository) appendToArray(ctx context.Context, caseID, field string, entry any) error {
	item, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode %s entry for case %s: %w", field, caseID, err)
	}
	const query = `
        UPDATE cases
        SET data = jsonb_set(data, ARRAY[$2],
                COALESCE(data->$2, '[]'::jsonb) || $3::jsonb),
            updated_at = now()
        WHERE case_id=$1`
	tag, err := r.pool.Exec(ctx, query, caseID, field, item)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("case %s not found", caseID)
	}
	return nil
}
