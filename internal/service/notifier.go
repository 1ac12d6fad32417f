package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ticketshield/citation-intake/internal/config"
	"github.com/ticketshield/citation-intake/internal/domain"
	"github.com/ticketshield/citation-intake/internal/gateway"
	"github.com/ticketshield/citation-intake/internal/observability"
	"github.com/ticketshield/citation-intake/internal/repository"
	"github.com/ticketshield/citation-intake/internal/templates"
	apperrors "github.com/ticketshield/citation-intake/pkg/util"
)

// Notifier delivers status-change and payment messages with bounded retries.
// Delivery exhaustion surfaces as a DELIVERY_FAILED error to the caller,
// which owns alerting.
type Notifier struct {
	gateway   gateway.MessagingGateway
	templates templates.TemplateProvider
	notifLogs repository.NotificationLogRepository
	scheduled repository.ScheduledEmailRepository
	metrics   *observability.Metrics
	logger    *zap.Logger
	cfg       config.NotificationConfig
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// NotifierDependencies bundles collaborators for the notifier.
type NotifierDependencies struct {
	Gateway          gateway.MessagingGateway
	Templates        templates.TemplateProvider
	NotificationRepo repository.NotificationLogRepository
	ScheduledRepo    repository.ScheduledEmailRepository
	Metrics          *observability.Metrics
}

// NewNotifier constructs the service.
func NewNotifier(deps NotifierDependencies, cfg config.NotificationConfig, logger *zap.Logger) *Notifier {
	return &Notifier{
		gateway:   deps.Gateway,
		templates: deps.Templates,
		notifLogs: deps.NotificationRepo,
		scheduled: deps.ScheduledRepo,
		metrics:   deps.Metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// Notify validates the transition, renders the status templates and sends
// the email (and SMS when the case opted in). Validation and rendering
// problems are fatal for the invocation with no partial send; SMS,
// follow-up scheduling and logging failures are non-fatal.
func (n *Notifier) Notify(ctx context.Context, status domain.CaseStatus, kase *domain.Case) error {
	if !status.Notifiable() {
		return apperrors.NewValidationError(fmt.Sprintf("status %q is not a recognized case status", status), nil)
	}
	if !domain.ValidEmail(kase.Email) {
		return apperrors.NewValidationError("case has no valid email address", map[string]any{"case_id": kase.CaseID})
	}

	note := statusNote(kase, status)
	data := interpolationData(kase, note)

	tpl, err := n.templates.GetTemplate(status)
	if err != nil {
		return apperrors.NewValidationError("unknown notification template", map[string]any{"status": string(status)})
	}

	result, err := n.sendEmailWithRetry(ctx, gateway.EmailMessage{
		To:          kase.Email,
		ToName:      data["firstName"],
		Subject:     templates.Render(tpl.Subject, data),
		HTMLContent: templates.Render(tpl.HTML, data),
		Params:      data,
	})
	if err != nil {
		n.recordNotification(ctx, domain.NotificationTypeStatusEmail, kase, status, domain.NotificationOutcomeFailed)
		return err
	}
	n.logger.Info("status email sent",
		zap.String("case_id", kase.CaseID),
		zap.String("status", string(status)),
		zap.String("message_id", result.MessageID),
		zap.String("to", domain.MaskEmail(kase.Email)))

	n.sendStatusSMS(ctx, kase, status, tpl, data)

	if status == domain.StatusCaseDismissed {
		n.scheduleReviewRequest(ctx, kase)
	}

	n.recordNotification(ctx, domain.NotificationTypeStatusEmail, kase, status, domain.NotificationOutcomeSent)
	return nil
}

// NotifyPayment sends the payment-outcome message family and reports the
// send outcome as an append-only payment log entry. The recipient address
// must already be resolved on the case.
func (n *Notifier) NotifyPayment(ctx context.Context, outcome domain.PaymentStatus, kase *domain.Case) (domain.PaymentLogEntry, error) {
	entry := domain.PaymentLogEntry{
		Type:      fmt.Sprintf("payment_%s_email", outcome),
		Timestamp: n.now(),
	}

	if !domain.ValidEmail(kase.Email) {
		entry.Outcome = domain.NotificationOutcomeFailed
		return entry, apperrors.NewValidationError("case has no valid email address", map[string]any{"case_id": kase.CaseID})
	}

	tpl, err := n.templates.GetPaymentTemplate(outcome)
	if err != nil {
		entry.Outcome = domain.NotificationOutcomeFailed
		return entry, apperrors.NewValidationError("unknown payment template", map[string]any{"outcome": string(outcome)})
	}

	data := interpolationData(kase, "")
	result, err := n.sendEmailWithRetry(ctx, gateway.EmailMessage{
		To:          kase.Email,
		ToName:      data["firstName"],
		Subject:     templates.Render(tpl.Subject, data),
		HTMLContent: templates.Render(tpl.HTML, data),
		Params:      data,
	})
	if err != nil {
		entry.Outcome = domain.NotificationOutcomeFailed
		n.recordNotification(ctx, domain.NotificationTypePaymentEmail, kase, kase.CaseStatus, domain.NotificationOutcomeFailed)
		return entry, err
	}
	entry.Outcome = domain.NotificationOutcomeSent
	entry.MessageID = result.MessageID

	if kase.SMSOptIn && kase.Phone != "" {
		n.sendSMS(ctx, domain.NotificationTypePaymentSMS, kase, templates.Render(tpl.SMS, data))
	}

	n.recordNotification(ctx, domain.NotificationTypePaymentEmail, kase, kase.CaseStatus, domain.NotificationOutcomeSent)
	return entry, nil
}

// sendEmailWithRetry attempts delivery up to the configured budget with
// exponential backoff. Exhaustion returns a DELIVERY_FAILED error wrapping
// the last attempt's error.
func (n *Notifier) sendEmailWithRetry(ctx context.Context, msg gateway.EmailMessage) (gateway.SendResult, error) {
	attempts := n.cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := n.cfg.RetryBackoff()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := n.gateway.SendEmail(ctx, msg)
		if err == nil {
			return result, nil
		}
		lastErr = err
		n.logger.Warn("email send attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.String("to", domain.MaskEmail(msg.To)),
			zap.Error(err))
		if attempt < attempts {
			if err := n.sleep(ctx, delay); err != nil {
				return gateway.SendResult{}, apperrors.NewDeliveryFailure("send canceled", err)
			}
			delay *= 2
		}
	}
	return gateway.SendResult{}, apperrors.NewDeliveryFailure(
		fmt.Sprintf("email delivery failed after %d attempts", attempts), lastErr)
}

func (n *Notifier) sendStatusSMS(ctx context.Context, kase *domain.Case, status domain.CaseStatus, tpl templates.Template, data map[string]string) {
	if !kase.SMSOptIn || kase.Phone == "" {
		return
	}
	n.sendSMS(ctx, domain.NotificationTypeStatusSMS, kase, templates.Render(tpl.SMS, data))
}

// sendSMS is best effort: failures are logged, never fatal.
func (n *Notifier) sendSMS(ctx context.Context, kind string, kase *domain.Case, content string) {
	result, err := n.gateway.SendSMS(ctx, gateway.SMSMessage{Recipient: kase.Phone, Content: content})
	switch {
	case err != nil:
		n.logger.Warn("sms send failed", zap.String("case_id", kase.CaseID), zap.Error(err))
		n.recordNotification(ctx, kind, kase, kase.CaseStatus, domain.NotificationOutcomeFailed)
	case result.Disabled:
		n.logger.Info("sms sending disabled; skipped", zap.String("case_id", kase.CaseID))
		n.recordNotification(ctx, kind, kase, kase.CaseStatus, domain.NotificationOutcomeSMSDisabled)
	default:
		n.recordNotification(ctx, kind, kase, kase.CaseStatus, domain.NotificationOutcomeSent)
	}
}

func (n *Notifier) scheduleReviewRequest(ctx context.Context, kase *domain.Case) {
	record := &domain.ScheduledReviewEmail{
		CaseID:       kase.CaseID,
		Email:        kase.Email,
		FirstName:    kase.FirstName,
		ScheduledFor: n.now().Add(n.cfg.ReviewDelay()),
		Status:       domain.ScheduledStatusPending,
	}
	if err := n.scheduled.Create(ctx, record); err != nil {
		n.logger.Warn("failed to schedule review request", zap.String("case_id", kase.CaseID), zap.Error(err))
		return
	}
	n.logger.Info("review request scheduled",
		zap.String("case_id", kase.CaseID),
		zap.Time("scheduled_for", record.ScheduledFor))
}

func (n *Notifier) recordNotification(ctx context.Context, kind string, kase *domain.Case, status domain.CaseStatus, outcome string) {
	n.metrics.RecordNotification(kind, outcome)
	entry := &domain.NotificationLogEntry{
		Type:        kind,
		CaseID:      kase.CaseID,
		Status:      status,
		MaskedEmail: domain.MaskEmail(kase.Email),
		Outcome:     outcome,
	}
	if err := n.notifLogs.Create(ctx, entry); err != nil {
		n.logger.Warn("failed to write notification log", zap.String("case_id", kase.CaseID), zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
