package payroll_import

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileValidator(t *testing.T) {
	v := NewFileValidator(10 << 20)

	tests := []struct {
		name       string
		meta       FileMeta
		wantValid  bool
		wantErrors int
	}{
		{"xlsx", FileMeta{"pay.xlsx", xlsxContentType, 2048}, true, 0},
		{"legacy xls", FileMeta{"PAY.XLS", "application/vnd.ms-excel", 2048}, true, 0},
		{"octet stream", FileMeta{"pay.xlsx", "application/octet-stream", 10}, true, 0},
		{"mime with parameters", FileMeta{"pay.xlsx", "application/octet-stream; charset=binary", 10}, true, 0},
		{"csv", FileMeta{"pay.csv", "text/csv", 10}, false, 2},
		{"too large", FileMeta{"pay.xlsx", xlsxContentType, 10<<20 + 1}, false, 1},
		{"empty", FileMeta{"pay.xlsx", xlsxContentType, 0}, false, 1},
		{"everything wrong", FileMeta{"pay.exe", "application/x-msdownload", 11 << 20}, false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(tt.meta)
			assert.Equal(t, tt.wantValid, got.Valid)
			assert.Len(t, got.Errors, tt.wantErrors)
		})
	}
}
