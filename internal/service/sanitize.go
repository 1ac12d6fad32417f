package service

import (
	"strings"

	"github.com/ticketshield/citation-intake/internal/domain"
)

const (
	maxStatusNoteLength = 500
	maxFieldLength      = 1000
)

// sensitiveFieldNames is the denylist of field names that must never reach
// outbound message interpolation. Matching is case-insensitive with
// underscores and hyphens ignored.
var sensitiveFieldNames = map[string]struct{}{
	"password":             {},
	"ssn":                  {},
	"socialsecuritynumber": {},
	"cardnumber":           {},
	"creditcardnumber":     {},
	"cvv":                  {},
	"cvc":                  {},
	"pin":                  {},
	"accountnumber":        {},
	"routingnumber":        {},
	"driverslicense":       {},
	"driverslicensenumber": {},
}

func isSensitiveField(name string) bool {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r == '_' || r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	_, ok := sensitiveFieldNames[b.String()]
	return ok
}

// sanitizeValue strips angle brackets so stored HTML or script content never
// surfaces in outbound messages, and caps the length at max characters.
// Truncation counts runes, not bytes; slicing the raw string could split a
// multibyte sequence and send a mangled trailing character.
func sanitizeValue(value string, max int) string {
	value = strings.ReplaceAll(value, "<", "")
	value = strings.ReplaceAll(value, ">", "")
	if len(value) > max {
		if runes := []rune(value); len(runes) > max {
			value = string(runes[:max])
		}
	}
	return value
}

// sanitizeData drops denylisted fields and sanitizes every value.
func sanitizeData(data map[string]string) map[string]string {
	clean := make(map[string]string, len(data))
	for key, value := range data {
		if isSensitiveField(key) {
			continue
		}
		clean[key] = sanitizeValue(value, maxFieldLength)
	}
	return clean
}

// statusNote derives the optional free-text note shown to the client for
// the given status.
func statusNote(kase *domain.Case, status domain.CaseStatus) string {
	if kase.ClientMessages == nil {
		return ""
	}
	return sanitizeValue(kase.ClientMessages[status], maxStatusNoteLength)
}

// interpolationData flattens the case into template parameters.
func interpolationData(kase *domain.Case, note string) map[string]string {
	data := map[string]string{
		"caseId":     kase.CaseID,
		"firstName":  kase.FirstName,
		"lastName":   kase.LastName,
		"statusNote": note,
	}
	if extracted := kase.ExtractedData; extracted != nil {
		if data["firstName"] == "" {
			data["firstName"] = extracted.FirstName
		}
		if data["lastName"] == "" {
			data["lastName"] = extracted.LastName
		}
		data["citationNumber"] = extracted.CitationNumber
		data["courtName"] = extracted.CourtName
		data["courtDate"] = extracted.CourtDate
		data["violationDescription"] = extracted.ViolationDescription
	}
	return sanitizeData(data)
}
