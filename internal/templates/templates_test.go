package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketshield/citation-intake/internal/domain"
)

func TestGetTemplateCoversNotifiableStatuses(t *testing.T) {
	provider := NewProvider()
	statuses := []domain.CaseStatus{
		domain.StatusApprovalPending,
		domain.StatusCaseApproved,
		domain.StatusCaseInProgress,
		domain.StatusCaseAppealed,
		domain.StatusRequiresAttention,
		domain.StatusCaseDismissed,
	}
	for _, status := range statuses {
		tpl, err := provider.GetTemplate(status)
		require.NoError(t, err, string(status))
		assert.NotEmpty(t, tpl.Subject)
		assert.NotEmpty(t, tpl.HTML)
		assert.NotEmpty(t, tpl.SMS)
	}
}

func TestGetTemplateUnknownStatus(t *testing.T) {
	_, err := NewProvider().GetTemplate(domain.CaseStatus("bogus"))
	assert.Error(t, err)
}

func TestGetPaymentTemplate(t *testing.T) {
	provider := NewProvider()
	for _, outcome := range []domain.PaymentStatus{domain.PaymentPaid, domain.PaymentFailed} {
		tpl, err := provider.GetPaymentTemplate(outcome)
		require.NoError(t, err)
		assert.NotEmpty(t, tpl.Subject)
	}

	_, err := provider.GetPaymentTemplate(domain.PaymentPending)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	out := Render("Hi {{firstName}}, case {{caseId}} update: {{statusNote}}", map[string]string{
		"firstName": "Jane",
		"caseId":    "abc123",
	})
	assert.Equal(t, "Hi Jane, case abc123 update: ", out)
}

func TestRenderLeavesNoPlaceholders(t *testing.T) {
	out := Render("{{a}}{{b}}{{c}}", map[string]string{"b": "x"})
	assert.Equal(t, "x", out)
	assert.NotContains(t, out, "{{")
}
