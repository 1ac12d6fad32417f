package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ticketshield/citation-intake/internal/payment"
	"github.com/ticketshield/citation-intake/internal/service"
	apperrors "github.com/ticketshield/citation-intake/pkg/util"
)

// WebhookHandler receives payment-provider webhook deliveries.
type WebhookHandler struct {
	reconciler *service.PaymentReconciler
	secret     string
	logger     *zap.Logger
}

// NewWebhookHandler returns a new handler instance.
func NewWebhookHandler(reconciler *service.PaymentReconciler, secret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, secret: secret, logger: logger}
}

// HandlePayment verifies and applies one provider event. Events the service
// does not act on, and events for unknown cases, are acknowledged so the
// provider stops retrying; only signature failures and downstream errors
// are surfaced.
func (h *WebhookHandler) HandlePayment(c *fiber.Ctx) error {
	body := c.Body()

	if err := payment.VerifySignature(body, c.Get("Stripe-Signature"), h.secret, time.Now()); err != nil {
		h.logger.Warn("webhook signature verification failed")
		return apperrors.NewUnauthorized("invalid signature")
	}

	event, err := payment.ParseEvent(body)
	if err != nil {
		if errors.Is(err, payment.ErrEventIgnored) {
			return c.JSON(fiber.Map{"received": true, "ignored": true})
		}
		return apperrors.NewValidationError("invalid event payload", nil)
	}

	if err := h.reconciler.HandleEvent(c.UserContext(), event); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"received": true})
}
