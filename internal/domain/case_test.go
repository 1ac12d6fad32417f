package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLastStatusBefore(t *testing.T) {
	tests := []struct {
		name    string
		current CaseStatus
		history []CaseStatus
		want    CaseStatus
	}{
		{
			name:    "history includes current status",
			current: StatusCaseDismissed,
			history: []CaseStatus{StatusApprovalPending, StatusCaseDismissed},
			want:    StatusApprovalPending,
		},
		{
			name:    "observed before the history entry landed",
			current: StatusCaseDismissed,
			history: []CaseStatus{StatusApprovalPending},
			want:    StatusApprovalPending,
		},
		{
			name:    "first transition",
			current: StatusApprovalPending,
			history: []CaseStatus{StatusApprovalPending},
			want:    "",
		},
		{
			name:    "empty history",
			current: StatusApprovalPending,
			want:    "",
		},
		{
			name:    "matches latest occurrence on revisited status",
			current: StatusApprovalPending,
			history: []CaseStatus{StatusApprovalPending, StatusRequiresAttention, StatusApprovalPending},
			want:    StatusRequiresAttention,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Case{CaseStatus: tt.current}
			for _, status := range tt.history {
				c.StatusHistory = append(c.StatusHistory, StatusHistoryEntry{Status: status})
			}
			assert.Equal(t, tt.want, c.LastStatusBefore())
		})
	}
}
