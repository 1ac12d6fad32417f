package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ticketshield/citation-intake/internal/config"
)

// BrevoGateway talks to the Brevo transactional messaging REST API.
type BrevoGateway struct {
	cfg    config.MessagingConfig
	client *http.Client
	logger *zap.Logger
}

// NewBrevoGateway builds the gateway.
func NewBrevoGateway(cfg config.MessagingConfig, logger *zap.Logger) *BrevoGateway {
	return &BrevoGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

type brevoSender struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoEmailRequest struct {
	Sender      brevoSender       `json:"sender"`
	To          []brevoRecipient  `json:"to"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent"`
	Params      map[string]string `json:"params,omitempty"`
}

type brevoEmailResponse struct {
	MessageID string `json:"messageId"`
}

// SendEmail delivers one transactional email.
func (g *BrevoGateway) SendEmail(ctx context.Context, msg EmailMessage) (SendResult, error) {
	payload := brevoEmailRequest{
		Sender:      brevoSender{Name: g.cfg.SenderName, Email: g.cfg.SenderEmail},
		To:          []brevoRecipient{{Email: msg.To, Name: msg.ToName}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTMLContent,
		Params:      msg.Params,
	}

	var resp brevoEmailResponse
	if err := g.post(ctx, "/v3/smtp/email", payload, &resp); err != nil {
		return SendResult{}, err
	}
	return SendResult{MessageID: resp.MessageID}, nil
}

type brevoSMSRequest struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
	Type      string `json:"type"`
}

type brevoSMSResponse struct {
	Reference string `json:"reference"`
}

// SendSMS delivers one transactional SMS. When SMS is feature-flagged off
// the call is a recorded no-op.
func (g *BrevoGateway) SendSMS(ctx context.Context, msg SMSMessage) (SendResult, error) {
	if !g.cfg.SMSEnabled {
		g.logger.Debug("sms disabled; skipping send")
		return SendResult{Disabled: true}, nil
	}

	payload := brevoSMSRequest{
		Sender:    g.cfg.SMSSender,
		Recipient: msg.Recipient,
		Content:   msg.Content,
		Type:      "transactional",
	}

	var resp brevoSMSResponse
	if err := g.post(ctx, "/v3/transactionalSMS/sms", payload, &resp); err != nil {
		return SendResult{}, err
	}
	return SendResult{MessageID: resp.Reference}, nil
}

func (g *BrevoGateway) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("messaging provider %s: status %d: %s", path, resp.StatusCode, string(snippet))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return fmt.Errorf("decode provider response: %w", err)
		}
	}
	return nil
}
