package payroll_import

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	known map[string]bool
	err   error
	calls int
}

func (d *fakeDirectory) Known(_ context.Context, ids []string) (map[string]bool, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		if d.known[id] {
			out[id] = true
		}
	}
	return out, nil
}

func validateAll(t *testing.T, v *RowValidator, s *Sheet) []ImportRow {
	t.Helper()
	rows := make([]ImportRow, 0, len(s.Rows))
	for _, sr := range s.Rows {
		rows = append(rows, v.ValidateRow(sr))
	}
	require.NoError(t, v.Finalize(context.Background(), rows))
	return rows
}

func TestDuplicateAndCurrencyScenario(t *testing.T) {
	s := sheetOf(
		payRow("EMP100", "박지훈", "2800000"),
		payRow("EMP001", "김민수", "3000000"),
		payRow("EMP001", "김민수", "1,200,000원"),
	)

	rows := validateAll(t, NewRowValidator(nil, nil), s)

	assert.Equal(t, []RowStatus{StatusValid, StatusDuplicate, StatusDuplicate}, statuses(rows))
	assert.Equal(t, 1200000.0, rows[2].Amounts[ColBasePay])
	for _, r := range rows[1:] {
		require.Equal(t, []IssueKind{KindDuplicateValue}, kinds(r.Issues))
		assert.Equal(t, "사번 EMP001 appears in rows 2, 3", r.Issues[0].Message)
	}
}

func TestValidateRowFatalIssues(t *testing.T) {
	tests := []struct {
		name  string
		row   []interface{}
		kinds []IssueKind
	}{
		{"missing id", payRow("", "김민수", "100"), []IssueKind{KindRequiredFieldMissing}},
		{"missing id and name", payRow(" ", "", "100"), []IssueKind{KindRequiredFieldMissing, KindRequiredFieldMissing}},
		{"not a number", payRow("E1", "a", "abc"), []IssueKind{KindInvalidNumber, KindInvalidNumber, KindInvalidNumber}},
		{"negative base pay", payRow("E1", "a", "-100"), []IssueKind{KindBusinessRuleViolation}},
	}

	v := NewRowValidator(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := v.ValidateRow(sheetOf(tt.row).Rows[0])
			assert.Equal(t, tt.kinds, kinds(row.Issues))
			assert.Equal(t, StatusInvalid, row.Status)
		})
	}
}

func TestInvalidRowsDoNotBecomeDuplicates(t *testing.T) {
	rows := validateAll(t, NewRowValidator(nil, nil), sheetOf(
		payRow("E1", "a", "100"),
		payRow("E1", "", "100"),
	))

	// the fatal issue dominates the duplicate one
	assert.Equal(t, []RowStatus{StatusDuplicate, StatusInvalid}, statuses(rows))
	assert.Contains(t, kinds(rows[1].Issues), KindDuplicateValue)
}

func TestDirectoryMarksUnknownEmployees(t *testing.T) {
	dir := &fakeDirectory{known: map[string]bool{"E1": true}}
	rows := validateAll(t, NewRowValidator(nil, dir), sheetOf(
		payRow("E1", "a", "100"),
		payRow("E2", "b", "100"),
		payRow("E2", "b", "100"),
	))

	assert.Equal(t, 1, dir.calls)
	assert.Equal(t, []RowStatus{StatusValid, StatusDuplicate, StatusDuplicate}, statuses(rows))
	assert.Contains(t, kinds(rows[1].Issues), KindEmployeeNotFound)

	rows = validateAll(t, NewRowValidator(nil, dir), sheetOf(payRow("E9", "z", "1")))
	assert.Equal(t, []RowStatus{StatusUnmatched}, statuses(rows))
}

func TestDirectoryFailureAbortsFinalize(t *testing.T) {
	v := NewRowValidator(nil, &fakeDirectory{err: errors.New("connection refused")})
	rows := []ImportRow{v.ValidateRow(sheetOf(payRow("E1", "a", "1")).Rows[0])}

	err := v.Finalize(context.Background(), rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMedianWarningRule(t *testing.T) {
	v := NewRowValidator([]WarningRule{&MedianWarningRule{Field: ColGrossPay, MaxRatio: 2}}, nil)
	rows := validateAll(t, v, sheetOf(
		payRow("E1", "a", "3000000"),
		payRow("E2", "b", "3100000"),
		payRow("E3", "c", "9900000"),
		payRow("E4", "d", "x"),
	))

	assert.Equal(t, []RowStatus{StatusValid, StatusValid, StatusWarning, StatusInvalid}, statuses(rows))
	assert.Equal(t, ColGrossPay, rows[2].Issues[0].Field)
	assert.True(t, rows[2].Status.Committable())
}

func TestRatioAndCeilingWarningRules(t *testing.T) {
	rules := []WarningRule{
		&RatioWarningRule{Field: ColBasePay, Reference: map[string]float64{"E1": 1000, "E2": 1000}, MaxRatio: 1.5},
		&CeilingWarningRule{Field: ColNetPay, Max: 5000},
	}
	rows := validateAll(t, NewRowValidator(rules, nil), sheetOf(
		payRow("E1", "a", "1200"),
		payRow("E2", "b", "400"),
		payRow("E3", "c", "9000"),
	))

	assert.Equal(t, []RowStatus{StatusValid, StatusWarning, StatusWarning}, statuses(rows))
	assert.Equal(t, ColBasePay, rows[1].Issues[0].Field)
	assert.Equal(t, ColNetPay, rows[2].Issues[0].Field)
}

func TestScriptWarningRule(t *testing.T) {
	rule, err := NewScriptWarningRule(`
if row.basePay > median.basePay * 2 {
	warning = "base pay far above the batch"
	field = "basePay"
}
`)
	require.NoError(t, err)

	rows := validateAll(t, NewRowValidator([]WarningRule{rule}, nil), sheetOf(
		payRow("E1", "a", "100"),
		payRow("E2", "b", "110"),
		payRow("E3", "c", "900"),
	))

	assert.Equal(t, []RowStatus{StatusValid, StatusValid, StatusWarning}, statuses(rows))
	assert.Equal(t, "base pay far above the batch", rows[2].Issues[0].Message)
	assert.Equal(t, ColBasePay, rows[2].Issues[0].Field)
}

func TestScriptWarningRuleCompileError(t *testing.T) {
	_, err := NewScriptWarningRule(`if {`)
	assert.Error(t, err)
}
