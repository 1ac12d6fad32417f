package domain

import (
	"fmt"
	"strings"
)

// ExtractedSchemaVersion tags the canonical shape produced by the
// normalizer. Raw extraction payloads from older ingestion paths carry no
// version at all.
const ExtractedSchemaVersion = 2

// ExtractedData is the canonical, structured form of a vision-extraction
// result. Historical payloads used inconsistent key casing across versions;
// everything is normalized into this record before reaching business logic.
type ExtractedData struct {
	SchemaVersion        int    `json:"schemaVersion"`
	FirstName            string `json:"firstName,omitempty"`
	LastName             string `json:"lastName,omitempty"`
	Email                string `json:"email,omitempty"`
	Phone                string `json:"phone,omitempty"`
	CitationNumber       string `json:"citationNumber,omitempty"`
	ViolationCode        string `json:"violationCode,omitempty"`
	ViolationDescription string `json:"violationDescription,omitempty"`
	CourtName            string `json:"courtName,omitempty"`
	CourtDate            string `json:"courtDate,omitempty"`
	LicensePlate         string `json:"licensePlate,omitempty"`
	State                string `json:"state,omitempty"`
	FineAmount           string `json:"fineAmount,omitempty"`
	RawText              string `json:"rawText,omitempty"`
}

// NormalizeExtractedData maps any historical extraction payload shape into
// the canonical record. Keys are matched case-insensitively with
// underscores, hyphens and spaces ignored, so "first_name", "FirstName" and
// "firstname" all resolve to the same field.
func NormalizeExtractedData(raw map[string]any) *ExtractedData {
	idx := make(map[string]string, len(raw))
	for key, value := range raw {
		str := stringifyExtractedValue(value)
		if str == "" {
			continue
		}
		idx[foldKey(key)] = str
	}

	pick := func(candidates ...string) string {
		for _, candidate := range candidates {
			if v, ok := idx[candidate]; ok {
				return v
			}
		}
		return ""
	}

	return &ExtractedData{
		SchemaVersion:        ExtractedSchemaVersion,
		FirstName:            pick("firstname", "givenname"),
		LastName:             pick("lastname", "surname", "familyname"),
		Email:                strings.TrimSpace(pick("email", "emailaddress", "contactemail")),
		Phone:                pick("phone", "phonenumber", "mobile", "contactphone"),
		CitationNumber:       pick("citationnumber", "ticketnumber", "citationno", "ticketno"),
		ViolationCode:        pick("violationcode", "offensecode"),
		ViolationDescription: pick("violationdescription", "violation", "offensedescription", "offense"),
		CourtName:            pick("courtname", "court"),
		CourtDate:            pick("courtdate", "hearingdate", "appearancedate"),
		LicensePlate:         pick("licenseplate", "plate", "platenumber"),
		State:                pick("state", "issuingstate"),
		FineAmount:           pick("fineamount", "fine", "amountdue", "totaldue"),
		RawText:              pick("rawtext", "fulltext", "ocrtext"),
	}
}

func foldKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		switch r {
		case '_', '-', ' ':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stringifyExtractedValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v), "0"), ".")
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}
