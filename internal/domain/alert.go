package domain

import "time"

// AlertType classifies what went wrong.
type AlertType string

const (
	AlertNotificationFailed AlertType = "notification_failed"
	AlertPaymentFailed      AlertType = "payment_failed"
)

// AlertStatus tracks operator handling of an alert.
type AlertStatus string

const (
	AlertOpen     AlertStatus = "open"
	AlertResolved AlertStatus = "resolved"
)

// AlertNote is an operator annotation on an alert.
type AlertNote struct {
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// AdminAlert is an operator-facing record created when automated handling
// cannot complete successfully.
type AdminAlert struct {
	ID           string            `json:"id"`
	Type         AlertType         `json:"type"`
	CaseID       string            `json:"caseId"`
	ClientInfo   map[string]string `json:"clientInfo,omitempty"`
	CaseInfo     map[string]string `json:"caseInfo,omitempty"`
	ErrorDetails string            `json:"errorDetails"`
	Status       AlertStatus       `json:"status"`
	Notes        []AlertNote       `json:"notes,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}
