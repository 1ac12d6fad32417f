package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ticketshield/citation-intake/internal/domain"
	"github.com/ticketshield/citation-intake/internal/observability"
	"github.com/ticketshield/citation-intake/internal/service"
	apperrors "github.com/ticketshield/citation-intake/pkg/util"
)

// CasesHandler exposes case intake and admin case management.
type CasesHandler struct {
	intake  *service.IntakeService
	metrics *observability.Metrics
}

// NewCasesHandler returns a new handler instance.
func NewCasesHandler(intake *service.IntakeService, metrics *observability.Metrics) *CasesHandler {
	return &CasesHandler{intake: intake, metrics: metrics}
}

type extractionRequest struct {
	Extraction map[string]any `json:"extraction"`
	Email      string         `json:"email"`
	Phone      string         `json:"phone"`
	SMSOptIn   bool           `json:"smsOptIn"`
}

// CreateFromExtraction creates a case from a vision-extraction payload.
func (h *CasesHandler) CreateFromExtraction(c *fiber.Ctx) error {
	var req extractionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if len(req.Extraction) == 0 {
		return apperrors.NewValidationError("extraction payload is required", nil)
	}

	kase, err := h.intake.CreateFromExtraction(c.UserContext(), service.ExtractionInput{
		Raw:      req.Extraction,
		Email:    req.Email,
		Phone:    req.Phone,
		SMSOptIn: req.SMSOptIn,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(kase)
}

type formRequest struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	SMSOptIn       bool   `json:"smsOptIn"`
	CitationNumber string `json:"citationNumber"`
	CourtName      string `json:"courtName"`
	CourtDate      string `json:"courtDate"`
	Violation      string `json:"violation"`
	State          string `json:"state"`
}

// CreateFromForm creates a case from a manually completed intake form.
func (h *CasesHandler) CreateFromForm(c *fiber.Ctx) error {
	var req formRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	kase, err := h.intake.CreateFromForm(c.UserContext(), service.FormInput{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		SMSOptIn:       req.SMSOptIn,
		CitationNumber: req.CitationNumber,
		CourtName:      req.CourtName,
		CourtDate:      req.CourtDate,
		Violation:      req.Violation,
		State:          req.State,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(kase)
}

// Get returns one case record.
func (h *CasesHandler) Get(c *fiber.Ctx) error {
	kase, err := h.intake.GetCase(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(kase)
}

type statusOverrideRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// OverrideStatus moves a case to a new status on behalf of an operator. The
// resulting document change flows through the change feed and triggers the
// client notification from there.
func (h *CasesHandler) OverrideStatus(c *fiber.Ctx) error {
	var req statusOverrideRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	err := h.intake.OverrideStatus(c.UserContext(), c.Params("id"), domain.CaseStatus(req.Status), req.Note, "admin")
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "updated"})
}

// Metrics reports in-memory counters for operator inspection.
func (h *CasesHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.metrics.Snapshot())
}
