package domain

import "time"

// CaseStatus enumerates lifecycle states for citation-defense cases.
type CaseStatus string

const (
	StatusApprovalPending   CaseStatus = "approval_pending"
	StatusCaseApproved      CaseStatus = "case_approved"
	StatusCaseInProgress    CaseStatus = "case_in_progress"
	StatusCaseAppealed      CaseStatus = "case_appealed"
	StatusRequiresAttention CaseStatus = "requires_attention"
	StatusCaseDismissed     CaseStatus = "case_dismissed"

	// Intake-time statuses assigned at case creation, before payment.
	StatusExtracted CaseStatus = "extracted"
	StatusCompleted CaseStatus = "completed"
)

// notifiableStatuses are the statuses that trigger client notifications.
var notifiableStatuses = map[CaseStatus]struct{}{
	StatusApprovalPending:   {},
	StatusCaseApproved:      {},
	StatusCaseInProgress:    {},
	StatusCaseAppealed:      {},
	StatusRequiresAttention: {},
	StatusCaseDismissed:     {},
}

// Notifiable reports whether the status is one of the recognized
// client-facing lifecycle states.
func (s CaseStatus) Notifiable() bool {
	_, ok := notifiableStatuses[s]
	return ok
}

// PaymentStatus tracks the payment axis independently of CaseStatus.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// StatusHistoryEntry is an append-only record of a status transition.
// Entries are never mutated in place; CaseStatus always equals the status
// of the last entry.
type StatusHistoryEntry struct {
	Status    CaseStatus `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
	Note      string     `json:"note,omitempty"`
	UpdatedBy string     `json:"updatedBy,omitempty"`
}

// PaymentLogEntry records the outcome of a payment-related send. The log is
// append-only on the case record.
type PaymentLogEntry struct {
	Type      string    `json:"type"`
	Outcome   string    `json:"outcome"`
	MessageID string    `json:"messageId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Case is the aggregate for one ticket-defense submission, stored as a
// single document keyed by CaseID.
type Case struct {
	CaseID         string                `json:"caseId"`
	CaseStatus     CaseStatus            `json:"caseStatus"`
	PaymentStatus  PaymentStatus         `json:"paymentStatus"`
	Email          string                `json:"email"`
	Phone          string                `json:"phone,omitempty"`
	FirstName      string                `json:"firstName,omitempty"`
	LastName       string                `json:"lastName,omitempty"`
	SMSOptIn       bool                  `json:"smsOptIn,omitempty"`
	ExtractedData  *ExtractedData        `json:"extractedData,omitempty"`
	StatusHistory  []StatusHistoryEntry  `json:"statusHistory,omitempty"`
	ClientMessages map[CaseStatus]string `json:"clientMessages,omitempty"`
	PaymentLogs    []PaymentLogEntry     `json:"paymentLogs,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// LastStatusBefore returns the status the case held before its current one.
// It walks the history back to the entry matching CaseStatus and returns the
// entry before it. When no entry matches, the document was observed before
// the history entry for the current status landed, so the last entry itself
// is the prior status. Empty when there is nothing to tell.
func (c *Case) LastStatusBefore() CaseStatus {
	for i := len(c.StatusHistory) - 1; i >= 0; i-- {
		if c.StatusHistory[i].Status == c.CaseStatus {
			if i == 0 {
				return ""
			}
			return c.StatusHistory[i-1].Status
		}
	}
	if n := len(c.StatusHistory); n > 0 {
		return c.StatusHistory[n-1].Status
	}
	return ""
}
