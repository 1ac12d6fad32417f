package gateway

import "context"

// EmailMessage is one outbound transactional email.
type EmailMessage struct {
	To          string
	ToName      string
	Subject     string
	HTMLContent string
	Params      map[string]string
}

// SMSMessage is one outbound transactional SMS.
type SMSMessage struct {
	Recipient string
	Content   string
}

// SendResult reports a provider send outcome.
type SendResult struct {
	MessageID string
	Disabled  bool
}

// MessagingGateway sends email and SMS through a transactional messaging
// provider. A Disabled SMS result is a recorded no-op, not a failure.
type MessagingGateway interface {
	SendEmail(ctx context.Context, msg EmailMessage) (SendResult, error)
	SendSMS(ctx context.Context, msg SMSMessage) (SendResult, error)
}
