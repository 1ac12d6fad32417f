package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ticketshield/citation-intake/internal/domain"
)

// In-memory repository implementations backing development mode and tests.
// They mirror the Postgres implementations' observable behavior, including
// ID assignment and not-found semantics.

// MemoryAuditLogRepository is the in-memory AuditLogRepository.
type MemoryAuditLogRepository struct {
	mu      sync.Mutex
	entries []domain.AuditLogEntry
}

// NewMemoryAuditLogRepository builds repository.
func NewMemoryAuditLogRepository() *MemoryAuditLogRepository {
	return &MemoryAuditLogRepository{}
}

func (r *MemoryAuditLogRepository) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.Timestamp = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *MemoryAuditLogRepository) ListByCase(ctx context.Context, caseID string, limit int) ([]domain.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.AuditLogEntry
	for i := len(r.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if r.entries[i].CaseID == caseID {
			result = append(result, r.entries[i])
		}
	}
	return result, nil
}

// MemoryAlertRepository is the in-memory AlertRepository.
type MemoryAlertRepository struct {
	mu     sync.Mutex
	alerts map[string]*domain.AdminAlert
	order  []string
}

// NewMemoryAlertRepository builds repository.
func NewMemoryAlertRepository() *MemoryAlertRepository {
	return &MemoryAlertRepository{alerts: make(map[string]*domain.AdminAlert)}
}

func (r *MemoryAlertRepository) Create(ctx context.Context, alert *domain.AdminAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	alert.ID = uuid.NewString()
	alert.CreatedAt = now
	alert.UpdatedAt = now
	copied := *alert
	r.alerts[alert.ID] = &copied
	r.order = append(r.order, alert.ID)
	return nil
}

func (r *MemoryAlertRepository) GetByID(ctx context.Context, id string) (*domain.AdminAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	alert, ok := r.alerts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *alert
	return &copied, nil
}

func (r *MemoryAlertRepository) UpdateStatus(ctx context.Context, id string, status domain.AlertStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	alert, ok := r.alerts[id]
	if !ok {
		return fmt.Errorf("alert %s not found", id)
	}
	alert.Status = status
	alert.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryAlertRepository) AddNote(ctx context.Context, id string, note domain.AlertNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	alert, ok := r.alerts[id]
	if !ok {
		return fmt.Errorf("alert %s not found", id)
	}
	alert.Notes = append(alert.Notes, note)
	alert.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryAlertRepository) List(ctx context.Context, status domain.AlertStatus, limit int) ([]domain.AdminAlert, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.AdminAlert
	for i := len(r.order) - 1; i >= 0 && len(result) < limit; i-- {
		alert := r.alerts[r.order[i]]
		if status != "" && alert.Status != status {
			continue
		}
		result = append(result, *alert)
	}
	return result, nil
}

// MemoryNotificationLogRepository is the in-memory NotificationLogRepository.
type MemoryNotificationLogRepository struct {
	mu      sync.Mutex
	entries []domain.NotificationLogEntry
}

// NewMemoryNotificationLogRepository builds repository.
func NewMemoryNotificationLogRepository() *MemoryNotificationLogRepository {
	return &MemoryNotificationLogRepository{}
}

func (r *MemoryNotificationLogRepository) Create(ctx context.Context, entry *domain.NotificationLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.Timestamp = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *MemoryNotificationLogRepository) ListByCase(ctx context.Context, caseID string, limit int) ([]domain.NotificationLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.NotificationLogEntry
	for i := len(r.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if r.entries[i].CaseID == caseID {
			result = append(result, r.entries[i])
		}
	}
	return result, nil
}

// MemoryScheduledEmailRepository is the in-memory ScheduledEmailRepository.
type MemoryScheduledEmailRepository struct {
	mu      sync.Mutex
	records []domain.ScheduledReviewEmail
}

// NewMemoryScheduledEmailRepository builds repository.
func NewMemoryScheduledEmailRepository() *MemoryScheduledEmailRepository {
	return &MemoryScheduledEmailRepository{}
}

func (r *MemoryScheduledEmailRepository) Create(ctx context.Context, record *domain.ScheduledReviewEmail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record.ID = uuid.NewString()
	record.CreatedAt = time.Now()
	r.records = append(r.records, *record)
	return nil
}

func (r *MemoryScheduledEmailRepository) ListDue(ctx context.Context, before time.Time, limit int) ([]domain.ScheduledReviewEmail, error) {
	if limit <= 0 {
		limit = 100
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.ScheduledReviewEmail
	for _, record := range r.records {
		if len(result) >= limit {
			break
		}
		if record.Status == domain.ScheduledStatusPending && !record.ScheduledFor.After(before) {
			result = append(result, record)
		}
	}
	return result, nil
}
