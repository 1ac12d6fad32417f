package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ticketshield/citation-intake/internal/domain"
)

// Verification and parsing failures surfaced to the webhook endpoint.
var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
	ErrEventIgnored     = errors.New("event type ignored")
)

// signatureTolerance bounds how old a signed timestamp may be before the
// delivery is treated as a replay.
const signatureTolerance = 5 * time.Minute

// VerifySignature checks the provider's signature header against the raw
// payload. The header carries a unix timestamp and one or more hex HMAC
// signatures over "timestamp.payload".
func VerifySignature(payload []byte, header, secret string, now time.Time) error {
	header = strings.TrimSpace(header)
	if header == "" || secret == "" {
		return ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return ErrInvalidSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

func parseSignatureHeader(header string) (string, []string, error) {
	var timestamp string
	signatures := []string{}
	for _, part := range strings.Split(header, ",") {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, ErrInvalidSignature
	}
	return timestamp, signatures, nil
}

type providerEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type checkoutSession struct {
	ID                string `json:"id"`
	ClientReferenceID string `json:"client_reference_id"`
	CustomerEmail     string `json:"customer_email"`
	PaymentIntent     string `json:"payment_intent"`
	AmountTotal       int64  `json:"amount_total"`
	Currency          string `json:"currency"`
	CustomerDetails   struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Metadata map[string]string `json:"metadata"`
}

type paymentIntent struct {
	ID           string            `json:"id"`
	ReceiptEmail string            `json:"receipt_email"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata"`
}

// ParseEvent maps a verified raw payload into a domain payment event.
// Events the service does not act on return ErrEventIgnored.
func ParseEvent(payload []byte) (domain.PaymentEvent, error) {
	var event providerEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return domain.PaymentEvent{}, ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return domain.PaymentEvent{}, ErrInvalidPayload
	}

	eventType := domain.PaymentEventType(strings.TrimSpace(event.Type))
	occurredAt := time.Unix(event.Created, 0)

	switch eventType {
	case domain.EventCheckoutCompleted, domain.EventCheckoutExpired, domain.EventAsyncPaymentFailed:
		var session checkoutSession
		if err := json.Unmarshal(event.Data.Object, &session); err != nil {
			return domain.PaymentEvent{}, ErrInvalidPayload
		}
		email := session.CustomerEmail
		if email == "" {
			email = session.CustomerDetails.Email
		}
		caseID := session.ClientReferenceID
		if caseID == "" {
			caseID = session.Metadata["caseId"]
		}
		return domain.PaymentEvent{
			Type:            eventType,
			CaseID:          caseID,
			SessionID:       session.ID,
			PaymentIntentID: session.PaymentIntent,
			CustomerEmail:   email,
			AmountTotal:     session.AmountTotal,
			Currency:        session.Currency,
			OccurredAt:      occurredAt,
		}, nil
	case domain.EventPaymentIntentFailed:
		var intent paymentIntent
		if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
			return domain.PaymentEvent{}, ErrInvalidPayload
		}
		return domain.PaymentEvent{
			Type:            eventType,
			CaseID:          intent.Metadata["caseId"],
			PaymentIntentID: intent.ID,
			CustomerEmail:   intent.ReceiptEmail,
			AmountTotal:     intent.Amount,
			Currency:        intent.Currency,
			OccurredAt:      occurredAt,
		}, nil
	default:
		return domain.PaymentEvent{}, ErrEventIgnored
	}
}
