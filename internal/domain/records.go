package domain

import "time"

// AuditLogEntry records an observed status transition before notification.
type AuditLogEntry struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	CaseID    string     `json:"caseId"`
	OldStatus CaseStatus `json:"oldStatus"`
	NewStatus CaseStatus `json:"newStatus"`
	Source    string     `json:"source"`
	Timestamp time.Time  `json:"timestamp"`
}

// NotificationLogEntry records one delivery attempt outcome. The recipient
// address is stored masked; the raw address is never logged.
type NotificationLogEntry struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	CaseID      string     `json:"caseId"`
	Status      CaseStatus `json:"status"`
	MaskedEmail string     `json:"maskedEmail"`
	Outcome     string     `json:"outcome"`
	Timestamp   time.Time  `json:"timestamp"`
}

// Notification log types.
const (
	NotificationTypeStatusEmail    = "status_email"
	NotificationTypeStatusSMS      = "status_sms"
	NotificationTypePaymentEmail   = "payment_email"
	NotificationTypePaymentSMS     = "payment_sms"
	NotificationOutcomeSent        = "sent"
	NotificationOutcomeFailed      = "failed"
	NotificationOutcomeSMSDisabled = "sms_disabled"
)

// ScheduledReviewEmail is a follow-up request written for a separate
// scheduler to dispatch.
type ScheduledReviewEmail struct {
	ID           string    `json:"id"`
	CaseID       string    `json:"caseId"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName,omitempty"`
	ScheduledFor time.Time `json:"scheduledFor"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ScheduledStatusPending marks a follow-up that has not been dispatched yet.
const ScheduledStatusPending = "pending"
