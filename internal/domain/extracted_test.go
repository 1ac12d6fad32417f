package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeExtractedDataKeyFolding(t *testing.T) {
	raw := map[string]any{
		"First_Name":      "Jane",
		"LASTNAME":        "Roe",
		"ticket number":   "CT-42",
		"Court-Name":      "Springfield Municipal",
		"hearing_date":    "2026-10-01",
		"Email":           " jane@example.com ",
		"fine_amount":     49.5,
		"unrelated_field": "ignored",
	}

	data := NormalizeExtractedData(raw)

	assert.Equal(t, ExtractedSchemaVersion, data.SchemaVersion)
	assert.Equal(t, "Jane", data.FirstName)
	assert.Equal(t, "Roe", data.LastName)
	assert.Equal(t, "CT-42", data.CitationNumber)
	assert.Equal(t, "Springfield Municipal", data.CourtName)
	assert.Equal(t, "2026-10-01", data.CourtDate)
	assert.Equal(t, "jane@example.com", data.Email)
	assert.Equal(t, "49.5", data.FineAmount)
}

func TestNormalizeExtractedDataCandidatePriority(t *testing.T) {
	data := NormalizeExtractedData(map[string]any{
		"citation_number": "CT-1",
		"ticket_number":   "CT-2",
	})
	assert.Equal(t, "CT-1", data.CitationNumber)
}

func TestNormalizeExtractedDataEmptyValues(t *testing.T) {
	data := NormalizeExtractedData(map[string]any{
		"first_name": "  ",
		"last_name":  nil,
	})
	assert.Empty(t, data.FirstName)
	assert.Empty(t, data.LastName)
}

func TestLastStatusBeforeHistory(t *testing.T) {
	c := &Case{StatusHistory: []StatusHistoryEntry{
		{Status: StatusApprovalPending},
		{Status: StatusCaseApproved},
	}}
	assert.Equal(t, StatusApprovalPending, c.LastStatusBefore())

	short := &Case{StatusHistory: []StatusHistoryEntry{{Status: StatusExtracted}}}
	assert.Equal(t, CaseStatus(""), short.LastStatusBefore())
}

func TestNotifiable(t *testing.T) {
	assert.True(t, StatusCaseDismissed.Notifiable())
	assert.True(t, StatusApprovalPending.Notifiable())
	assert.False(t, StatusExtracted.Notifiable())
	assert.False(t, CaseStatus("bogus").Notifiable())
}
