package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ticketshield/citation-intake/internal/domain"
	"github.com/ticketshield/citation-intake/internal/repository"
	apperrors "github.com/ticketshield/citation-intake/pkg/util"
)

// IntakeService creates case records from the two intake paths: a vision
// extraction of a citation photo, or a manually completed form.
type IntakeService struct {
	cases  repository.CaseRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewIntakeService builds the service.
func NewIntakeService(cases repository.CaseRepository, logger *zap.Logger) *IntakeService {
	return &IntakeService{cases: cases, logger: logger, now: time.Now}
}

// ExtractionInput is a raw extraction payload plus whatever contact details
// the client supplied alongside the upload.
type ExtractionInput struct {
	Raw      map[string]any
	Email    string
	Phone    string
	SMSOptIn bool
}

// FormInput is a manually completed intake form.
type FormInput struct {
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	SMSOptIn       bool
	CitationNumber string
	CourtName      string
	CourtDate      string
	Violation      string
	State          string
}

// CreateFromExtraction normalizes the extraction payload and creates a case
// in the extracted state. The root email wins over the extracted one; when
// only the extraction carries an address it is promoted to the root so
// later notification paths see it without digging.
func (s *IntakeService) CreateFromExtraction(ctx context.Context, input ExtractionInput) (*domain.Case, error) {
	extracted := domain.NormalizeExtractedData(input.Raw)

	email := strings.TrimSpace(input.Email)
	if email == "" {
		email = extracted.Email
	}
	if email != "" && !domain.ValidEmail(email) {
		return nil, apperrors.NewValidationError("invalid email address", nil)
	}
	if extracted.Email == "" {
		extracted.Email = email
	}

	kase := &domain.Case{
		CaseID:        uuid.NewString(),
		CaseStatus:    domain.StatusExtracted,
		PaymentStatus: domain.PaymentPending,
		Email:         email,
		Phone:         firstNonEmpty(input.Phone, extracted.Phone),
		FirstName:     extracted.FirstName,
		LastName:      extracted.LastName,
		SMSOptIn:      input.SMSOptIn,
		ExtractedData: extracted,
	}
	return s.create(ctx, kase, domain.StatusExtracted)
}

// CreateFromForm creates a case in the completed state from a manual form.
func (s *IntakeService) CreateFromForm(ctx context.Context, input FormInput) (*domain.Case, error) {
	email := strings.TrimSpace(input.Email)
	if !domain.ValidEmail(email) {
		return nil, apperrors.NewValidationError("invalid email address", nil)
	}

	kase := &domain.Case{
		CaseID:        uuid.NewString(),
		CaseStatus:    domain.StatusCompleted,
		PaymentStatus: domain.PaymentPending,
		Email:         email,
		Phone:         strings.TrimSpace(input.Phone),
		FirstName:     strings.TrimSpace(input.FirstName),
		LastName:      strings.TrimSpace(input.LastName),
		SMSOptIn:      input.SMSOptIn,
		ExtractedData: &domain.ExtractedData{
			SchemaVersion:        domain.ExtractedSchemaVersion,
			FirstName:            strings.TrimSpace(input.FirstName),
			LastName:             strings.TrimSpace(input.LastName),
			Email:                email,
			Phone:                strings.TrimSpace(input.Phone),
			CitationNumber:       strings.TrimSpace(input.CitationNumber),
			ViolationDescription: strings.TrimSpace(input.Violation),
			CourtName:            strings.TrimSpace(input.CourtName),
			CourtDate:            strings.TrimSpace(input.CourtDate),
			State:                strings.TrimSpace(input.State),
		},
	}
	return s.create(ctx, kase, domain.StatusCompleted)
}

// OverrideStatus moves a case to the given status on behalf of an operator.
// The change lands in the document store; notification follows from the
// change feed, not from this call.
func (s *IntakeService) OverrideStatus(ctx context.Context, caseID string, status domain.CaseStatus, note, updatedBy string) error {
	if !status.Notifiable() {
		return apperrors.NewValidationError("unknown case status", map[string]any{"status": string(status)})
	}
	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		return apperrors.MapError(err)
	}
	return s.cases.UpdateStatus(ctx, caseID, map[string]any{"caseStatus": status}, domain.StatusHistoryEntry{
		Status:    status,
		Timestamp: s.now(),
		Note:      sanitizeValue(note, maxStatusNoteLength),
		UpdatedBy: updatedBy,
	})
}

// GetCase fetches one case record.
func (s *IntakeService) GetCase(ctx context.Context, caseID string) (*domain.Case, error) {
	kase, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return kase, nil
}

func (s *IntakeService) create(ctx context.Context, kase *domain.Case, initial domain.CaseStatus) (*domain.Case, error) {
	kase.StatusHistory = []domain.StatusHistoryEntry{{
		Status:    initial,
		Timestamp: s.now(),
		UpdatedBy: "intake",
	}}
	kase.ClientMessages = defaultClientMessages()

	if err := s.cases.Create(ctx, kase); err != nil {
		return nil, err
	}
	s.logger.Info("case created",
		zap.String("case_id", kase.CaseID),
		zap.String("status", string(initial)),
		zap.String("email", domain.MaskEmail(kase.Email)))
	return kase, nil
}

// defaultClientMessages seeds the per-status notes shown in notifications.
// Operators can overwrite them per case later.
func defaultClientMessages() map[domain.CaseStatus]string {
	return map[domain.CaseStatus]string{
		domain.StatusApprovalPending:   "Our team will review your citation shortly.",
		domain.StatusRequiresAttention: "Please reply with the requested information so we can continue.",
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
