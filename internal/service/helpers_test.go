package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ticketshield/citation-intake/internal/config"
	"github.com/ticketshield/citation-intake/internal/gateway"
	"github.com/ticketshield/citation-intake/internal/observability"
	"github.com/ticketshield/citation-intake/internal/repository"
	"github.com/ticketshield/citation-intake/internal/templates"
)

// fakeGateway records sends and can be told to fail or block.
type fakeGateway struct {
	mu         sync.Mutex
	emails     []gateway.EmailMessage
	sms        []gateway.SMSMessage
	emailErr   error
	smsErr     error
	disableSMS bool
	block      chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{}
}

func (g *fakeGateway) SendEmail(ctx context.Context, msg gateway.EmailMessage) (gateway.SendResult, error) {
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return gateway.SendResult{}, ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.emailErr != nil {
		return gateway.SendResult{}, g.emailErr
	}
	g.emails = append(g.emails, msg)
	return gateway.SendResult{MessageID: "msg-1"}, nil
}

func (g *fakeGateway) SendSMS(ctx context.Context, msg gateway.SMSMessage) (gateway.SendResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.smsErr != nil {
		return gateway.SendResult{}, g.smsErr
	}
	if g.disableSMS {
		return gateway.SendResult{Disabled: true}, nil
	}
	g.sms = append(g.sms, msg)
	return gateway.SendResult{MessageID: "sms-1"}, nil
}

func (g *fakeGateway) sentEmails() []gateway.EmailMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]gateway.EmailMessage, len(g.emails))
	copy(out, g.emails)
	return out
}

func (g *fakeGateway) sentSMS() []gateway.SMSMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]gateway.SMSMessage, len(g.sms))
	copy(out, g.sms)
	return out
}

var errGatewayDown = errors.New("provider unavailable")

type testEnv struct {
	gateway   *fakeGateway
	notifRepo *repository.MemoryNotificationLogRepository
	schedRepo *repository.MemoryScheduledEmailRepository
	alertRepo *repository.MemoryAlertRepository
	auditRepo *repository.MemoryAuditLogRepository
	metrics   *observability.Metrics
	notifier  *Notifier
	alerts    *AlertService
}

func newTestEnv(cfg config.NotificationConfig) *testEnv {
	env := &testEnv{
		gateway:   newFakeGateway(),
		notifRepo: repository.NewMemoryNotificationLogRepository(),
		schedRepo: repository.NewMemoryScheduledEmailRepository(),
		alertRepo: repository.NewMemoryAlertRepository(),
		auditRepo: repository.NewMemoryAuditLogRepository(),
		metrics:   observability.NewMetrics(),
	}
	logger := zap.NewNop()
	env.notifier = NewNotifier(NotifierDependencies{
		Gateway:          env.gateway,
		Templates:        templates.NewProvider(),
		NotificationRepo: env.notifRepo,
		ScheduledRepo:    env.schedRepo,
		Metrics:          env.metrics,
	}, cfg, logger)
	env.notifier.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	env.alerts = NewAlertService(env.alertRepo, env.metrics, logger)
	return env
}
