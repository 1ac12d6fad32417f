package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketshield/citation-intake/internal/domain"
)

const testSecret = "whsec_test"

func signPayload(t *testing.T, payload []byte, secret string, at time.Time) string {
	t.Helper()
	ts := fmt.Sprintf("%d", at.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "." + string(payload)))
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	header := signPayload(t, payload, testSecret, now)
	assert.NoError(t, VerifySignature(payload, header, testSecret, now))
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	header := signPayload(t, payload, "whsec_other", now)
	assert.ErrorIs(t, VerifySignature(payload, header, testSecret, now), ErrInvalidSignature)
}

func TestVerifySignatureTamperedPayload(t *testing.T) {
	now := time.Now()
	header := signPayload(t, []byte(`{"id":"evt_1"}`), testSecret, now)
	assert.ErrorIs(t, VerifySignature([]byte(`{"id":"evt_2"}`), header, testSecret, now), ErrInvalidSignature)
}

func TestVerifySignatureStaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	header := signPayload(t, payload, testSecret, now.Add(-10*time.Minute))
	assert.ErrorIs(t, VerifySignature(payload, header, testSecret, now), ErrInvalidSignature)
}

func TestVerifySignatureMalformedHeader(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	for _, header := range []string{"", "t=123", "v1=abc", "garbage"} {
		assert.ErrorIs(t, VerifySignature(payload, header, testSecret, time.Now()), ErrInvalidSignature, header)
	}
}

func TestParseEventCheckoutCompleted(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"created": 1756500000,
		"data": {"object": {
			"id": "cs_test_1",
			"client_reference_id": "abc123",
			"customer_email": "johndoe@example.com",
			"payment_intent": "pi_1",
			"amount_total": 9900,
			"currency": "usd"
		}}
	}`)

	event, err := ParseEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, domain.EventCheckoutCompleted, event.Type)
	assert.Equal(t, "abc123", event.CaseID)
	assert.Equal(t, "cs_test_1", event.SessionID)
	assert.Equal(t, "johndoe@example.com", event.CustomerEmail)
	assert.Equal(t, "pi_1", event.PaymentIntentID)
	assert.Equal(t, int64(9900), event.AmountTotal)
	assert.Equal(t, "usd", event.Currency)
}

func TestParseEventCaseIDFromMetadata(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.expired",
		"data": {"object": {"id": "cs_1", "metadata": {"caseId": "abc123"}}}
	}`)

	event, err := ParseEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, "abc123", event.CaseID)
}

func TestParseEventPaymentIntentFailed(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "payment_intent.payment_failed",
		"data": {"object": {
			"id": "pi_1",
			"receipt_email": "johndoe@example.com",
			"metadata": {"caseId": "abc123"}
		}}
	}`)

	event, err := ParseEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, domain.EventPaymentIntentFailed, event.Type)
	assert.Equal(t, "abc123", event.CaseID)
	assert.Equal(t, "pi_1", event.PaymentIntentID)
}

func TestParseEventIgnoredType(t *testing.T) {
	payload := []byte(`{"id": "evt_1", "type": "invoice.created", "data": {"object": {}}}`)
	_, err := ParseEvent(payload)
	assert.ErrorIs(t, err, ErrEventIgnored)
}

func TestParseEventInvalidPayload(t *testing.T) {
	_, err := ParseEvent([]byte("not json"))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = ParseEvent([]byte(`{"type": "checkout.session.completed"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload, "missing event id")
}
