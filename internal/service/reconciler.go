package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ticketshield/citation-intake/internal/domain"
	"github.com/ticketshield/citation-intake/internal/repository"
	apperrors "github.com/ticketshield/citation-intake/pkg/util"
)

// PaymentReconciler applies verified payment-provider events to case
// records. Events referencing unknown cases are logged no-ops; the provider
// must never see an error for them, or it will retry forever.
type PaymentReconciler struct {
	cases    repository.CaseRepository
	notifier *Notifier
	alerts   *AlertService
	logger   *zap.Logger
	now      func() time.Time
}

// NewPaymentReconciler builds the reconciler.
func NewPaymentReconciler(cases repository.CaseRepository, notifier *Notifier, alerts *AlertService, logger *zap.Logger) *PaymentReconciler {
	return &PaymentReconciler{
		cases:    cases,
		notifier: notifier,
		alerts:   alerts,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleEvent routes a verified event. Unrecognized event types are ignored.
func (r *PaymentReconciler) HandleEvent(ctx context.Context, event domain.PaymentEvent) error {
	switch {
	case event.Type.Success():
		return r.handleSuccess(ctx, event)
	case event.Type.Failure():
		return r.handleFailure(ctx, event)
	default:
		r.logger.Info("ignoring payment event type", zap.String("type", string(event.Type)))
		return nil
	}
}

// handleSuccess marks the case paid, moves it into review, and confirms to
// the client. A case already marked paid is a duplicate provider delivery
// and is acknowledged without side effects.
func (r *PaymentReconciler) handleSuccess(ctx context.Context, event domain.PaymentEvent) error {
	kase, ok, err := r.loadCase(ctx, event)
	if err != nil || !ok {
		return err
	}

	if kase.PaymentStatus == domain.PaymentPaid {
		r.logger.Info("duplicate payment success event; already paid",
			zap.String("case_id", kase.CaseID),
			zap.String("session_id", event.SessionID))
		return nil
	}

	entry := domain.StatusHistoryEntry{
		Status:    domain.StatusApprovalPending,
		Timestamp: r.now(),
		Note:      "payment received",
		UpdatedBy: "payment_webhook",
	}
	fields := map[string]any{
		"paymentStatus": domain.PaymentPaid,
		"caseStatus":    domain.StatusApprovalPending,
	}
	if err := r.cases.UpdateStatus(ctx, kase.CaseID, fields, entry); err != nil {
		return fmt.Errorf("mark case %s paid: %w", kase.CaseID, err)
	}

	kase.PaymentStatus = domain.PaymentPaid
	kase.CaseStatus = domain.StatusApprovalPending
	kase.StatusHistory = append(kase.StatusHistory, entry)
	r.sendPaymentEmail(ctx, kase, domain.PaymentPaid)

	r.logger.Info("payment reconciled",
		zap.String("case_id", kase.CaseID),
		zap.String("session_id", event.SessionID),
		zap.Int64("amount_total", event.AmountTotal),
		zap.String("currency", event.Currency))
	return nil
}

// handleFailure marks the payment failed, tells the client when an address
// can be resolved, and always raises an operator alert.
func (r *PaymentReconciler) handleFailure(ctx context.Context, event domain.PaymentEvent) error {
	kase, ok, err := r.loadCase(ctx, event)
	if err != nil || !ok {
		return err
	}

	if err := r.cases.SetFields(ctx, kase.CaseID, map[string]any{
		"paymentStatus": domain.PaymentFailed,
	}); err != nil {
		return fmt.Errorf("mark case %s payment failed: %w", kase.CaseID, err)
	}
	kase.PaymentStatus = domain.PaymentFailed

	if email := r.resolveEmail(ctx, kase, event); email != "" {
		kase.Email = email
		r.sendPaymentEmail(ctx, kase, domain.PaymentFailed)
	} else {
		r.logger.Warn("payment failure with no resolvable email",
			zap.String("case_id", kase.CaseID))
	}

	details := map[string]string{
		"eventType": string(event.Type),
		"sessionId": event.SessionID,
	}
	if event.PaymentIntentID != "" {
		details["paymentIntentId"] = event.PaymentIntentID
	}
	if _, err := r.alerts.PaymentFailure(ctx, kase.CaseID, details, "payment failed or session expired"); err != nil {
		r.logger.Error("failed to create payment failure alert",
			zap.String("case_id", kase.CaseID), zap.Error(err))
	}
	return nil
}

// loadCase fetches the referenced case. A missing case is reported as a
// clean no-op so the provider stops redelivering.
func (r *PaymentReconciler) loadCase(ctx context.Context, event domain.PaymentEvent) (*domain.Case, bool, error) {
	if event.CaseID == "" {
		r.logger.Warn("payment event without case reference",
			zap.String("type", string(event.Type)),
			zap.String("session_id", event.SessionID))
		return nil, false, nil
	}
	kase, err := r.cases.GetByID(ctx, event.CaseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("payment event for unknown case",
				zap.String("case_id", event.CaseID),
				zap.String("type", string(event.Type)))
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load case %s: %w", event.CaseID, err)
	}
	return kase, true, nil
}

// resolveEmail finds a usable recipient address: the case record first, the
// extraction second, the provider's customer email last. An address recovered
// from either fallback is persisted back onto the case record so later status
// notifications have a deliverable recipient.
func (r *PaymentReconciler) resolveEmail(ctx context.Context, kase *domain.Case, event domain.PaymentEvent) string {
	if domain.ValidEmail(kase.Email) {
		return kase.Email
	}

	var recovered string
	switch {
	case kase.ExtractedData != nil && domain.ValidEmail(kase.ExtractedData.Email):
		recovered = kase.ExtractedData.Email
	case domain.ValidEmail(event.CustomerEmail):
		recovered = event.CustomerEmail
	default:
		return ""
	}

	if err := r.cases.SetFields(ctx, kase.CaseID, map[string]any{"email": recovered}); err != nil {
		r.logger.Warn("failed to persist recovered email",
			zap.String("case_id", kase.CaseID), zap.Error(err))
	}
	return recovered
}

// sendPaymentEmail is best effort. The outcome lands in the case's payment
// log either way; a delivery failure additionally raises an operator alert.
func (r *PaymentReconciler) sendPaymentEmail(ctx context.Context, kase *domain.Case, outcome domain.PaymentStatus) {
	entry, err := r.notifier.NotifyPayment(ctx, outcome, kase)
	if logErr := r.cases.AppendPaymentLog(ctx, kase.CaseID, entry); logErr != nil {
		r.logger.Warn("failed to append payment log",
			zap.String("case_id", kase.CaseID), zap.Error(logErr))
	}
	if err == nil {
		return
	}
	if apperrors.IsCode(err, apperrors.CodeValidationFailed) {
		r.logger.Warn("payment email dropped",
			zap.String("case_id", kase.CaseID), zap.Error(err))
		return
	}
	if _, alertErr := r.alerts.NotificationFailure(ctx, kase, kase.CaseStatus, err); alertErr != nil {
		r.logger.Error("failed to create notification failure alert",
			zap.String("case_id", kase.CaseID), zap.Error(alertErr))
	}
}
