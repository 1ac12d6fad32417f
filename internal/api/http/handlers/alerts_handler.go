package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ticketshield/citation-intake/internal/domain"
	"github.com/ticketshield/citation-intake/internal/service"
	apperrors "github.com/ticketshield/citation-intake/pkg/util"
)

// AlertsHandler exposes operator alert management.
type AlertsHandler struct {
	alerts *service.AlertService
}

// NewAlertsHandler returns a new handler instance.
func NewAlertsHandler(alerts *service.AlertService) *AlertsHandler {
	return &AlertsHandler{alerts: alerts}
}

// List returns alerts, optionally filtered by ?status=open|resolved.
func (h *AlertsHandler) List(c *fiber.Ctx) error {
	status := domain.AlertStatus(c.Query("status"))
	if status != "" && status != domain.AlertOpen && status != domain.AlertResolved {
		return apperrors.NewValidationError("unknown alert status", map[string]any{"status": string(status)})
	}

	alerts, err := h.alerts.List(c.UserContext(), status, c.QueryInt("limit"))
	if err != nil {
		return apperrors.MapError(err)
	}
	if alerts == nil {
		alerts = []domain.AdminAlert{}
	}
	return c.JSON(fiber.Map{"alerts": alerts})
}

// Resolve marks an alert handled.
func (h *AlertsHandler) Resolve(c *fiber.Ctx) error {
	if err := h.alerts.Resolve(c.UserContext(), c.Params("id")); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"status": "resolved"})
}

type alertNoteRequest struct {
	Author string `json:"author"`
	Body   string `json:"body"`
}

// AddNote appends an operator annotation to an alert.
func (h *AlertsHandler) AddNote(c *fiber.Ctx) error {
	var req alertNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if req.Body == "" {
		return apperrors.NewValidationError("note body is required", nil)
	}
	if err := h.alerts.AddNote(c.UserContext(), c.Params("id"), req.Author, req.Body); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "created"})
}
