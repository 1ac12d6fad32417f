package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ticketshield/citation-intake/internal/config"
	"github.com/ticketshield/citation-intake/internal/domain"
	"github.com/ticketshield/citation-intake/internal/store"
)

func newReconcilerEnv(t *testing.T) (*PaymentReconciler, *store.MemoryStore, *testEnv) {
	t.Helper()
	env := newTestEnv(config.NotificationConfig{MaxAttempts: 3})
	memory := store.NewMemoryStore()
	r := NewPaymentReconciler(memory, env.notifier, env.alerts, zap.NewNop())
	return r, memory, env
}

func pendingCase(t *testing.T, memory *store.MemoryStore) *domain.Case {
	t.Helper()
	kase := &domain.Case{
		CaseID:        "abc123",
		CaseStatus:    domain.StatusCompleted,
		PaymentStatus: domain.PaymentPending,
		Email:         "johndoe@example.com",
		FirstName:     "John",
		StatusHistory: []domain.StatusHistoryEntry{{Status: domain.StatusCompleted}},
	}
	require.NoError(t, memory.Create(context.Background(), kase))
	return kase
}

func TestReconcilerPaymentSuccess(t *testing.T) {
	r, memory, env := newReconcilerEnv(t)
	pendingCase(t, memory)

	err := r.HandleEvent(context.Background(), domain.PaymentEvent{
		Type:        domain.EventCheckoutCompleted,
		CaseID:      "abc123",
		SessionID:   "cs_test_1",
		AmountTotal: 9900,
		Currency:    "usd",
		OccurredAt:  time.Now(),
	})
	require.NoError(t, err)

	kase, err := memory.GetByID(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, kase.PaymentStatus)
	assert.Equal(t, domain.StatusApprovalPending, kase.CaseStatus)
	require.NotEmpty(t, kase.StatusHistory)
	assert.Equal(t, domain.StatusApprovalPending, kase.StatusHistory[len(kase.StatusHistory)-1].Status)

	require.Len(t, kase.PaymentLogs, 1)
	assert.Equal(t, "payment_paid_email", kase.PaymentLogs[0].Type)
	assert.Equal(t, domain.NotificationOutcomeSent, kase.PaymentLogs[0].Outcome)

	emails := env.gateway.sentEmails()
	require.Len(t, emails, 1)
	assert.Contains(t, emails[0].Subject, "Payment received")
}

func TestReconcilerDuplicateSuccessIsNoop(t *testing.T) {
	r, memory, env := newReconcilerEnv(t)
	pendingCase(t, memory)

	event := domain.PaymentEvent{Type: domain.EventCheckoutCompleted, CaseID: "abc123", SessionID: "cs_test_1"}
	require.NoError(t, r.HandleEvent(context.Background(), event))
	require.NoError(t, r.HandleEvent(context.Background(), event))

	kase, err := memory.GetByID(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Len(t, kase.PaymentLogs, 1)
	assert.Len(t, env.gateway.sentEmails(), 1)
}

func TestReconcilerPaymentFailureAlwaysAlerts(t *testing.T) {
	r, memory, env := newReconcilerEnv(t)
	pendingCase(t, memory)

	err := r.HandleEvent(context.Background(), domain.PaymentEvent{
		Type:      domain.EventCheckoutExpired,
		CaseID:    "abc123",
		SessionID: "cs_test_1",
	})
	require.NoError(t, err)

	kase, err := memory.GetByID(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, kase.PaymentStatus)
	assert.Equal(t, domain.StatusCompleted, kase.CaseStatus, "failure must not advance the case")

	alerts, err := env.alertRepo.List(context.Background(), domain.AlertOpen, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertPaymentFailed, alerts[0].Type)
	assert.Equal(t, "abc123", alerts[0].CaseID)

	emails := env.gateway.sentEmails()
	require.Len(t, emails, 1)
	assert.Contains(t, emails[0].Subject, "problem with your payment")
}

func TestReconcilerFailureAlertsEvenWithoutEmail(t *testing.T) {
	r, memory, env := newReconcilerEnv(t)
	kase := &domain.Case{
		CaseID:        "abc123",
		CaseStatus:    domain.StatusExtracted,
		PaymentStatus: domain.PaymentPending,
	}
	require.NoError(t, memory.Create(context.Background(), kase))

	err := r.HandleEvent(context.Background(), domain.PaymentEvent{
		Type:   domain.EventPaymentIntentFailed,
		CaseID: "abc123",
	})
	require.NoError(t, err)

	assert.Empty(t, env.gateway.sentEmails())

	alerts, err := env.alertRepo.List(context.Background(), domain.AlertOpen, 10)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestReconcilerEmailFallbackToProvider(t *testing.T) {
	r, memory, env := newReconcilerEnv(t)
	kase := &domain.Case{
		CaseID:        "abc123",
		CaseStatus:    domain.StatusExtracted,
		PaymentStatus: domain.PaymentPending,
	}
	require.NoError(t, memory.Create(context.Background(), kase))

	err := r.HandleEvent(context.Background(), domain.PaymentEvent{
		Type:          domain.EventCheckoutExpired,
		CaseID:        "abc123",
		CustomerEmail: "recovered@example.com",
	})
	require.NoError(t, err)

	emails := env.gateway.sentEmails()
	require.Len(t, emails, 1)
	assert.Equal(t, "recovered@example.com", emails[0].To)

	stored, err := memory.GetByID(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "recovered@example.com", stored.Email, "provider email is persisted back")
}

func TestReconcilerEmailFallbackToExtraction(t *testing.T) {
	r, memory, env := newReconcilerEnv(t)
	kase := &domain.Case{
		CaseID:        "abc123",
		CaseStatus:    domain.StatusExtracted,
		PaymentStatus: domain.PaymentPending,
		ExtractedData: &domain.ExtractedData{Email: "fromscan@example.com"},
	}
	require.NoError(t, memory.Create(context.Background(), kase))

	err := r.HandleEvent(context.Background(), domain.PaymentEvent{
		Type:          domain.EventCheckoutExpired,
		CaseID:        "abc123",
		CustomerEmail: "recovered@example.com",
	})
	require.NoError(t, err)

	emails := env.gateway.sentEmails()
	require.Len(t, emails, 1)
	assert.Equal(t, "fromscan@example.com", emails[0].To, "extraction email outranks the provider's")

	stored, err := memory.GetByID(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "fromscan@example.com", stored.Email,
		"the recovered address lands on the case record for later notifications")
}

func TestReconcilerUnknownCaseIsNoop(t *testing.T) {
	r, _, env := newReconcilerEnv(t)

	err := r.HandleEvent(context.Background(), domain.PaymentEvent{
		Type:   domain.EventCheckoutCompleted,
		CaseID: "missing",
	})
	require.NoError(t, err)
	assert.Empty(t, env.gateway.sentEmails())

	alerts, err := env.alertRepo.List(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestReconcilerIgnoresUnhandledEventTypes(t *testing.T) {
	r, memory, env := newReconcilerEnv(t)
	pendingCase(t, memory)

	err := r.HandleEvent(context.Background(), domain.PaymentEvent{
		Type:   domain.PaymentEventType("invoice.created"),
		CaseID: "abc123",
	})
	require.NoError(t, err)
	assert.Empty(t, env.gateway.sentEmails())
}
