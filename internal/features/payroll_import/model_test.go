package payroll_import

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name  string
		kinds []IssueKind
		want  RowStatus
	}{
		{"no issues", nil, StatusValid},
		{"soft only", []IssueKind{KindSuspiciousValue}, StatusWarning},
		{"duplicate only", []IssueKind{KindDuplicateValue}, StatusDuplicate},
		{"unmatched only", []IssueKind{KindEmployeeNotFound}, StatusUnmatched},
		{"duplicate beats warning", []IssueKind{KindSuspiciousValue, KindDuplicateValue}, StatusDuplicate},
		{"duplicate beats unmatched", []IssueKind{KindEmployeeNotFound, KindDuplicateValue}, StatusDuplicate},
		{"missing field is fatal", []IssueKind{KindRequiredFieldMissing}, StatusInvalid},
		{"bad number is fatal", []IssueKind{KindInvalidNumber}, StatusInvalid},
		{"business rule is fatal", []IssueKind{KindBusinessRuleViolation}, StatusInvalid},
		{"fatal beats everything", []IssueKind{KindDuplicateValue, KindSuspiciousValue, KindInvalidNumber, KindEmployeeNotFound}, StatusInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var issues []RowIssue
			for _, k := range tt.kinds {
				issues = append(issues, RowIssue{Kind: k})
			}
			assert.Equal(t, tt.want, DeriveStatus(issues))
		})
	}
}

func TestRowStatusCommittable(t *testing.T) {
	assert.True(t, StatusValid.Committable())
	assert.True(t, StatusWarning.Committable())
	assert.False(t, StatusInvalid.Committable())
	assert.False(t, StatusDuplicate.Committable())
	assert.False(t, StatusUnmatched.Committable())

	assert.False(t, RowStatus("pending").Valid())
	assert.Panics(t, func() { RowStatus("pending").Committable() })
}

func TestPeriodValidate(t *testing.T) {
	assert.NoError(t, Period{Year: 2026, Month: 3}.Validate())
	assert.Error(t, Period{Year: 2026, Month: 13}.Validate())
	assert.Error(t, Period{Year: 0, Month: 1}.Validate())
	assert.Equal(t, "2026-03", Period{Year: 2026, Month: 3}.String())
}
