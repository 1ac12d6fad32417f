package templates

import (
	"fmt"
	"strings"

	"github.com/ticketshield/citation-intake/internal/domain"
)

// Template carries the rendered-source content for one notification.
type Template struct {
	Subject string
	HTML    string
	SMS     string
}

// TemplateProvider maps a case status to its notification content. Unknown
// statuses are an error; a blank template is never returned.
type TemplateProvider interface {
	GetTemplate(status domain.CaseStatus) (Template, error)
	GetPaymentTemplate(outcome domain.PaymentStatus) (Template, error)
}

type statusTemplates struct{}

// NewProvider returns the fixed status-to-template mapping.
func NewProvider() TemplateProvider {
	return statusTemplates{}
}

var byStatus = map[domain.CaseStatus]Template{
	domain.StatusApprovalPending: {
		Subject: "Your case is awaiting review",
		HTML:    "<p>Hi {{firstName}},</p><p>We received your citation and your case {{caseId}} is now awaiting review by our team.</p><p>{{statusNote}}</p>",
		SMS:     "Your case {{caseId}} is awaiting review.",
	},
	domain.StatusCaseApproved: {
		Subject: "Your case has been approved",
		HTML:    "<p>Hi {{firstName}},</p><p>Good news: case {{caseId}} has been approved and assigned to an attorney.</p><p>{{statusNote}}</p>",
		SMS:     "Your case {{caseId}} has been approved.",
	},
	domain.StatusCaseInProgress: {
		Subject: "Your case is in progress",
		HTML:    "<p>Hi {{firstName}},</p><p>Case {{caseId}} is being worked on. We will keep you posted.</p><p>{{statusNote}}</p>",
		SMS:     "Your case {{caseId}} is in progress.",
	},
	domain.StatusCaseAppealed: {
		Subject: "Your case has been appealed",
		HTML:    "<p>Hi {{firstName}},</p><p>We filed an appeal for case {{caseId}}.</p><p>{{statusNote}}</p>",
		SMS:     "An appeal was filed for your case {{caseId}}.",
	},
	domain.StatusRequiresAttention: {
		Subject: "Your case needs attention",
		HTML:    "<p>Hi {{firstName}},</p><p>Case {{caseId}} needs additional information from you. Please reply to this email.</p><p>{{statusNote}}</p>",
		SMS:     "Your case {{caseId}} needs attention. Please check your email.",
	},
	domain.StatusCaseDismissed: {
		Subject: "Your citation was dismissed",
		HTML:    "<p>Hi {{firstName}},</p><p>Great news: your citation in case {{caseId}} was dismissed.</p><p>{{statusNote}}</p>",
		SMS:     "Your citation in case {{caseId}} was dismissed.",
	},
}

var byPaymentOutcome = map[domain.PaymentStatus]Template{
	domain.PaymentPaid: {
		Subject: "Payment received - your case is submitted",
		HTML:    "<p>Hi {{firstName}},</p><p>We received your payment for case {{caseId}}. Your case has been submitted for review.</p>",
		SMS:     "Payment received. Your case {{caseId}} has been submitted for review.",
	},
	domain.PaymentFailed: {
		Subject: "There was a problem with your payment",
		HTML:    "<p>Hi {{firstName}},</p><p>We could not process your payment for case {{caseId}}. Please try again or contact support.</p>",
		SMS:     "Payment for case {{caseId}} failed. Please try again.",
	},
}

func (statusTemplates) GetTemplate(status domain.CaseStatus) (Template, error) {
	tpl, ok := byStatus[status]
	if !ok {
		return Template{}, fmt.Errorf("no template for status %q", status)
	}
	return tpl, nil
}

func (statusTemplates) GetPaymentTemplate(outcome domain.PaymentStatus) (Template, error) {
	tpl, ok := byPaymentOutcome[outcome]
	if !ok {
		return Template{}, fmt.Errorf("no payment template for outcome %q", outcome)
	}
	return tpl, nil
}

// Render substitutes {{key}} placeholders from the given data. Unmatched
// placeholders are replaced with an empty string.
func Render(content string, data map[string]string) string {
	pairs := make([]string, 0, len(data)*2)
	for key, value := range data {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	rendered := strings.NewReplacer(pairs...).Replace(content)

	// Drop any placeholder the data did not cover.
	for {
		start := strings.Index(rendered, "{{")
		if start < 0 {
			return rendered
		}
		end := strings.Index(rendered[start:], "}}")
		if end < 0 {
			return rendered
		}
		rendered = rendered[:start] + rendered[start+end+2:]
	}
}
