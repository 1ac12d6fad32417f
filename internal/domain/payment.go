package domain

import "time"

// PaymentEventType identifies a verified payment-provider event.
type PaymentEventType string

const (
	EventCheckoutCompleted   PaymentEventType = "checkout.session.completed"
	EventCheckoutExpired     PaymentEventType = "checkout.session.expired"
	EventAsyncPaymentFailed  PaymentEventType = "checkout.session.async_payment_failed"
	EventPaymentIntentFailed PaymentEventType = "payment_intent.payment_failed"
)

// Success reports whether the event represents a completed payment.
func (t PaymentEventType) Success() bool {
	return t == EventCheckoutCompleted
}

// Failure reports whether the event represents a failed or abandoned payment.
func (t PaymentEventType) Failure() bool {
	switch t {
	case EventCheckoutExpired, EventAsyncPaymentFailed, EventPaymentIntentFailed:
		return true
	}
	return false
}

// PaymentEvent is a provider event that has already passed signature
// verification. CaseID comes from the session's client_reference_id.
type PaymentEvent struct {
	Type            PaymentEventType `json:"type"`
	CaseID          string           `json:"caseId"`
	SessionID       string           `json:"sessionId,omitempty"`
	PaymentIntentID string           `json:"paymentIntentId,omitempty"`
	CustomerEmail   string           `json:"customerEmail,omitempty"`
	AmountTotal     int64            `json:"amountTotal,omitempty"`
	Currency        string           `json:"currency,omitempty"`
	OccurredAt      time.Time        `json:"occurredAt"`
}
