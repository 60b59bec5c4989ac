package payroll_import

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func schemaHeaders() []string {
	headers := make([]string, len(PayrollColumns))
	for i, c := range PayrollColumns {
		headers[i] = c.Header
	}
	return headers
}

// payRow builds a data row in schema order.
func payRow(id, name, base string) []interface{} {
	return []interface{}{id, name, "개발팀", "사원", base, "0", "0", "0", base, base, "0"}
}

func buildWorkbook(t *testing.T, headers []string, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	h := make([]interface{}, len(headers))
	for i, v := range headers {
		h[i] = v
	}
	if len(h) > 0 {
		require.NoError(t, f.SetSheetRow(sheet, "A1", &h))
	}
	for i, r := range rows {
		row := r
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func sheetOf(rows ...[]interface{}) *Sheet {
	s := &Sheet{Name: "Sheet1", Headers: schemaHeaders()}
	for i, r := range rows {
		cells := make(map[string]string, len(PayrollColumns))
		for j, c := range PayrollColumns {
			v := ""
			if j < len(r) && r[j] != nil {
				v, _ = r[j].(string)
			}
			cells[c.Key] = v
		}
		s.Rows = append(s.Rows, SheetRow{Index: i + 1, Cells: cells})
	}
	return s
}

func statuses(rows []ImportRow) []RowStatus {
	out := make([]RowStatus, len(rows))
	for i, r := range rows {
		out[i] = r.Status
	}
	return out
}

func kinds(issues []RowIssue) []IssueKind {
	out := make([]IssueKind, len(issues))
	for i, is := range issues {
		out[i] = is.Kind
	}
	return out
}
