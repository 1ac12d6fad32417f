package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ticketshield/citation-intake/internal/domain"
	"github.com/ticketshield/citation-intake/internal/observability"
	"github.com/ticketshield/citation-intake/internal/repository"
)

// AlertService creates and manages operator-facing alerts.
type AlertService struct {
	alerts  repository.AlertRepository
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewAlertService builds the service.
func NewAlertService(alerts repository.AlertRepository, metrics *observability.Metrics, logger *zap.Logger) *AlertService {
	return &AlertService{alerts: alerts, metrics: metrics, logger: logger}
}

// NotificationFailure records a single alert for a notification that could
// not be delivered. The alert carries the masked recipient and enough case
// context for an operator to act without opening the database.
func (s *AlertService) NotificationFailure(ctx context.Context, kase *domain.Case, status domain.CaseStatus, cause error) (*domain.AdminAlert, error) {
	alert := &domain.AdminAlert{
		Type:   domain.AlertNotificationFailed,
		CaseID: kase.CaseID,
		ClientInfo: map[string]string{
			"maskedEmail": domain.MaskEmail(kase.Email),
			"firstName":   kase.FirstName,
			"lastName":    kase.LastName,
		},
		CaseInfo: map[string]string{
			"caseStatus":    string(status),
			"paymentStatus": string(kase.PaymentStatus),
		},
		ErrorDetails: cause.Error(),
		Status:       domain.AlertOpen,
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}
	s.metrics.RecordAlert(string(domain.AlertNotificationFailed))
	s.logger.Error("notification failure alert created",
		zap.String("alert_id", alert.ID),
		zap.String("case_id", kase.CaseID),
		zap.String("status", string(status)))
	return alert, nil
}

// PaymentFailure records an alert for a failed payment event. caseID may
// reference a case without a resolvable email; details carries the raw
// provider context.
func (s *AlertService) PaymentFailure(ctx context.Context, caseID string, details map[string]string, cause string) (*domain.AdminAlert, error) {
	alert := &domain.AdminAlert{
		Type:         domain.AlertPaymentFailed,
		CaseID:       caseID,
		CaseInfo:     details,
		ErrorDetails: cause,
		Status:       domain.AlertOpen,
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}
	s.metrics.RecordAlert(string(domain.AlertPaymentFailed))
	s.logger.Error("payment failure alert created",
		zap.String("alert_id", alert.ID),
		zap.String("case_id", caseID))
	return alert, nil
}

// Resolve marks an alert handled.
func (s *AlertService) Resolve(ctx context.Context, id string) error {
	return s.alerts.UpdateStatus(ctx, id, domain.AlertResolved)
}

// AddNote appends an operator annotation.
func (s *AlertService) AddNote(ctx context.Context, id, author, body string) error {
	return s.alerts.AddNote(ctx, id, domain.AlertNote{
		Author:    author,
		Body:      body,
		CreatedAt: time.Now(),
	})
}

// List returns alerts filtered by status; an empty status returns all.
func (s *AlertService) List(ctx context.Context, status domain.AlertStatus, limit int) ([]domain.AdminAlert, error) {
	return s.alerts.List(ctx, status, limit)
}
