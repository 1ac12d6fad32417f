package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ticketshield/citation-intake/internal/domain"
)

// MemoryStore is an in-memory case store with a synchronous change feed.
// It backs local development when no Postgres DSN is configured, and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	cases  map[string]*domain.Case
	subs   map[int]memorySubscriber
	nextID int
}

type memorySubscriber struct {
	onChange ChangeHandler
	onError  ErrorHandler
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cases: make(map[string]*domain.Case),
		subs:  make(map[int]memorySubscriber),
	}
}

// Subscribe registers a change handler. The returned function cancels the
// subscription.
func (s *MemoryStore) Subscribe(ctx context.Context, onChange ChangeHandler, onError ErrorHandler) (func(), error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = memorySubscriber{onChange: onChange, onError: onError}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}, nil
}

// SubscriberCount reports how many subscriptions are active.
func (s *MemoryStore) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Fail delivers a feed-transport error to every subscriber. Used by tests to
// exercise the listener restart path.
func (s *MemoryStore) Fail(err error) {
	s.mu.RLock()
	subs := make([]memorySubscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.RUnlock()

	for _, sub := range subs {
		if sub.onError != nil {
			sub.onError(err)
		}
	}
}

func (s *MemoryStore) publish(ctx context.Context, change Change) {
	s.mu.RLock()
	subs := make([]memorySubscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.RUnlock()

	for _, sub := range subs {
		sub.onChange(ctx, []Change{change})
	}
}

// GetByID returns a copy of the stored case.
func (s *MemoryStore) GetByID(ctx context.Context, caseID string) (*domain.Case, error) {
	s.mu.RLock()
	c, ok := s.cases[caseID]
	s.mu.RUnlock()
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *c
	return &copied, nil
}

// Create stores a new case document and emits an added change.
func (s *MemoryStore) Create(ctx context.Context, c *domain.Case) error {
	s.mu.Lock()
	if _, exists := s.cases[c.CaseID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("case %s already exists", c.CaseID)
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	copied := *c
	s.cases[c.CaseID] = &copied
	s.mu.Unlock()

	s.publish(ctx, Change{Type: ChangeAdded, CaseID: c.CaseID, Case: c})
	return nil
}

// SetFields merges top-level fields into the document and emits a modified
// change carrying the updated case.
func (s *MemoryStore) SetFields(ctx context.Context, caseID string, fields map[string]any) error {
	s.mu.Lock()
	c, ok := s.cases[caseID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("case %s not found", caseID)
	}
	applyCaseFields(c, fields)
	c.UpdatedAt = time.Now()
	copied := *c
	s.mu.Unlock()

	s.publish(ctx, Change{Type: ChangeModified, CaseID: caseID, Case: &copied})
	return nil
}

// UpdateStatus applies the field changes and the history entry as a single
// mutation, emitting one modified change carrying the consistent document.
func (s *MemoryStore) UpdateStatus(ctx context.Context, caseID string, fields map[string]any, entry domain.StatusHistoryEntry) error {
	s.mu.Lock()
	c, ok := s.cases[caseID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("case %s not found", caseID)
	}
	applyCaseFields(c, fields)
	c.StatusHistory = append(c.StatusHistory, entry)
	c.UpdatedAt = time.Now()
	copied := *c
	s.mu.Unlock()

	s.publish(ctx, Change{Type: ChangeModified, CaseID: caseID, Case: &copied})
	return nil
}

// AppendPaymentLog appends one payment log entry and emits a modified
// change, mirroring the trigger behavior of the Postgres store. The
// detector's guards absorb the redundant event.
func (s *MemoryStore) AppendPaymentLog(ctx context.Context, caseID string, entry domain.PaymentLogEntry) error {
	s.mu.Lock()
	c, ok := s.cases[caseID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("case %s not found", caseID)
	}
	c.PaymentLogs = append(c.PaymentLogs, entry)
	c.UpdatedAt = time.Now()
	copied := *c
	s.mu.Unlock()

	s.publish(ctx, Change{Type: ChangeModified, CaseID: caseID, Case: &copied})
	return nil
}

func applyCaseFields(c *domain.Case, fields map[string]any) {
	for key, value := range fields {
		switch key {
		case "caseStatus":
			if v, ok := value.(domain.CaseStatus); ok {
				c.CaseStatus = v
			} else if v, ok := value.(string); ok {
				c.CaseStatus = domain.CaseStatus(v)
			}
		case "paymentStatus":
			if v, ok := value.(domain.PaymentStatus); ok {
				c.PaymentStatus = v
			} else if v, ok := value.(string); ok {
				c.PaymentStatus = domain.PaymentStatus(v)
			}
		case "email":
			if v, ok := value.(string); ok {
				c.Email = v
			}
		case "phone":
			if v, ok := value.(string); ok {
				c.Phone = v
			}
		case "firstName":
			if v, ok := value.(string); ok {
				c.FirstName = v
			}
		case "lastName":
			if v, ok := value.(string); ok {
				c.LastName = v
			}
		case "smsOptIn":
			if v, ok := value.(bool); ok {
				c.SMSOptIn = v
			}
		}
	}
}
