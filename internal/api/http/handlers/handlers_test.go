package handlers_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/ticketshield/citation-intake/internal/api/http"
	"github.com/ticketshield/citation-intake/internal/api/http/handlers"
	"github.com/ticketshield/citation-intake/internal/auth"
	"github.com/ticketshield/citation-intake/internal/config"
	"github.com/ticketshield/citation-intake/internal/domain"
	"github.com/ticketshield/citation-intake/internal/gateway"
	"github.com/ticketshield/citation-intake/internal/observability"
	"github.com/ticketshield/citation-intake/internal/repository"
	"github.com/ticketshield/citation-intake/internal/service"
	"github.com/ticketshield/citation-intake/internal/store"
	"github.com/ticketshield/citation-intake/internal/templates"
)

const webhookSecret = "whsec_test"

const adminPassword = "letmein"

type stubGateway struct {
	mu     sync.Mutex
	emails []gateway.EmailMessage
}

func (g *stubGateway) SendEmail(ctx context.Context, msg gateway.EmailMessage) (gateway.SendResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.emails = append(g.emails, msg)
	return gateway.SendResult{MessageID: "msg-1"}, nil
}

func (g *stubGateway) SendSMS(ctx context.Context, msg gateway.SMSMessage) (gateway.SendResult, error) {
	return gateway.SendResult{Disabled: true}, nil
}

type testApp struct {
	app     *fiber.App
	memory  *store.MemoryStore
	gateway *stubGateway
	alerts  *service.AlertService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	memory := store.NewMemoryStore()
	gw := &stubGateway{}

	notifier := service.NewNotifier(service.NotifierDependencies{
		Gateway:          gw,
		Templates:        templates.NewProvider(),
		NotificationRepo: repository.NewMemoryNotificationLogRepository(),
		ScheduledRepo:    repository.NewMemoryScheduledEmailRepository(),
		Metrics:          metrics,
	}, config.NotificationConfig{MaxAttempts: 1}, logger)

	alerts := service.NewAlertService(repository.NewMemoryAlertRepository(), metrics, logger)
	intake := service.NewIntakeService(memory, logger)
	reconciler := service.NewPaymentReconciler(memory, notifier, alerts, logger)

	tokens := auth.NewTokenManager("test-secret", 60)
	adminPasswordHash, err := auth.HashPassword(adminPassword, 4)
	require.NoError(t, err)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("test", "dev", nil, nil),
		Cases:          handlers.NewCasesHandler(intake, metrics),
		Alerts:         handlers.NewAlertsHandler(alerts),
		Auth:           handlers.NewAuthHandler(tokens, adminPasswordHash),
		Webhooks:       handlers.NewWebhookHandler(reconciler, webhookSecret, logger),
		AuthMiddleware: auth.NewMiddleware(tokens),
	})

	return &testApp{app: app, memory: memory, gateway: gw, alerts: alerts}
}

func (ta *testApp) request(t *testing.T, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (ta *testApp) login(t *testing.T) string {
	t.Helper()
	resp := ta.request(t, http.MethodPost, "/admin/login", fiber.Map{"password": adminPassword}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.AccessToken)
	return out.AccessToken
}

func signWebhook(payload []byte, at time.Time) string {
	ts := fmt.Sprintf("%d", at.Unix())
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(ts + "." + string(payload)))
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestHealthLive(t *testing.T) {
	ta := newTestApp(t)
	resp := ta.request(t, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateCaseFromForm(t *testing.T) {
	ta := newTestApp(t)
	resp := ta.request(t, http.MethodPost, "/cases/form", fiber.Map{
		"firstName":      "John",
		"lastName":       "Doe",
		"email":          "johndoe@example.com",
		"citationNumber": "CT-1",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var kase domain.Case
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&kase))
	assert.NotEmpty(t, kase.CaseID)
	assert.Equal(t, domain.StatusCompleted, kase.CaseStatus)
}

func TestCreateCaseFromFormRejectsBadEmail(t *testing.T) {
	ta := newTestApp(t)
	resp := ta.request(t, http.MethodPost, "/cases/form", fiber.Map{"email": "nope"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateCaseFromExtraction(t *testing.T) {
	ta := newTestApp(t)
	resp := ta.request(t, http.MethodPost, "/cases/extraction", fiber.Map{
		"extraction": fiber.Map{
			"first_name":      "Jane",
			"citation_number": "CT-2",
			"email":           "jane@example.com",
		},
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var kase domain.Case
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&kase))
	assert.Equal(t, domain.StatusExtracted, kase.CaseStatus)
	assert.Equal(t, "jane@example.com", kase.Email)
}

func TestWebhookPaymentSuccess(t *testing.T) {
	ta := newTestApp(t)

	kase := &domain.Case{
		CaseID:        "abc123",
		CaseStatus:    domain.StatusCompleted,
		PaymentStatus: domain.PaymentPending,
		Email:         "johndoe@example.com",
	}
	require.NoError(t, ta.memory.Create(context.Background(), kase))

	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "client_reference_id": "abc123", "amount_total": 9900, "currency": "usd"}}
	}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signWebhook(payload, time.Now()))
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := ta.memory.GetByID(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, domain.StatusApprovalPending, stored.CaseStatus)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	ta := newTestApp(t)
	payload := []byte(`{"id": "evt_1", "type": "checkout.session.completed", "data": {"object": {}}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=123,v1=deadbeef")
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebhookAcknowledgesIgnoredEvents(t *testing.T) {
	ta := newTestApp(t)
	payload := []byte(`{"id": "evt_1", "type": "invoice.created", "data": {"object": {}}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signWebhook(payload, time.Now()))
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	ta := newTestApp(t)
	resp := ta.request(t, http.MethodGet, "/admin/alerts", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminLoginRejectsWrongPassword(t *testing.T) {
	ta := newTestApp(t)
	resp := ta.request(t, http.MethodPost, "/admin/login", fiber.Map{"password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminAlertFlow(t *testing.T) {
	ta := newTestApp(t)
	token := ta.login(t)
	authHeader := map[string]string{"Authorization": "Bearer " + token}

	alert, err := ta.alerts.PaymentFailure(context.Background(), "abc123", map[string]string{"sessionId": "cs_1"}, "payment failed")
	require.NoError(t, err)

	resp := ta.request(t, http.MethodGet, "/admin/alerts?status=open", nil, authHeader)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listOut struct {
		Alerts []domain.AdminAlert `json:"alerts"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listOut))
	require.Len(t, listOut.Alerts, 1)

	resp = ta.request(t, http.MethodPost, "/admin/alerts/"+alert.ID+"/notes", fiber.Map{
		"author": "ops",
		"body":   "called the client",
	}, authHeader)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ta.request(t, http.MethodPost, "/admin/alerts/"+alert.ID+"/resolve", nil, authHeader)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ta.request(t, http.MethodGet, "/admin/alerts?status=open", nil, authHeader)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listOut.Alerts = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listOut))
	assert.Empty(t, listOut.Alerts)
}

func TestAdminStatusOverride(t *testing.T) {
	ta := newTestApp(t)
	token := ta.login(t)
	authHeader := map[string]string{"Authorization": "Bearer " + token}

	kase := &domain.Case{
		CaseID:        "abc123",
		CaseStatus:    domain.StatusApprovalPending,
		PaymentStatus: domain.PaymentPaid,
		Email:         "a@b.com",
		StatusHistory: []domain.StatusHistoryEntry{{Status: domain.StatusApprovalPending}},
	}
	require.NoError(t, ta.memory.Create(context.Background(), kase))

	resp := ta.request(t, http.MethodPost, "/admin/cases/abc123/status", fiber.Map{
		"status": "case_approved",
		"note":   "reviewed",
	}, authHeader)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := ta.memory.GetByID(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCaseApproved, stored.CaseStatus)
}

func TestAdminGetCase(t *testing.T) {
	ta := newTestApp(t)
	token := ta.login(t)
	authHeader := map[string]string{"Authorization": "Bearer " + token}

	require.NoError(t, ta.memory.Create(context.Background(), &domain.Case{
		CaseID:     "abc123",
		CaseStatus: domain.StatusExtracted,
		Email:      "a@b.com",
	}))

	resp := ta.request(t, http.MethodGet, "/admin/cases/abc123", nil, authHeader)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ta.request(t, http.MethodGet, "/admin/cases/missing", nil, authHeader)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
