package payroll_import

import (
	"context"
	"testing"

	"go-payroll/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngineWiresConfiguredRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.ImportConfig)
		want   []RowStatus
	}{
		{"no rules", func(*config.ImportConfig) {}, []RowStatus{StatusValid, StatusValid, StatusValid}},
		{"ceiling", func(c *config.ImportConfig) { c.WarningCeiling = 5000000 }, []RowStatus{StatusValid, StatusValid, StatusWarning}},
		{"median", func(c *config.ImportConfig) { c.WarningMaxRatio = 1.5 }, []RowStatus{StatusValid, StatusValid, StatusWarning}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultImportConfig()
			tt.mutate(&cfg)
			engine, err := NewEngine(cfg, nil)
			require.NoError(t, err)

			res, err := engine.Run(context.Background(), buildWorkbook(t, schemaHeaders(), [][]interface{}{
				payRow("E1", "a", "3000000"),
				payRow("E2", "b", "3100000"),
				payRow("E3", "c", "6000000"),
			}))
			require.NoError(t, err)

			got := make([]RowStatus, len(res.Rows))
			for i, r := range res.Rows {
				got[i] = r.Status
			}
			assert.Equal(t, tt.want, got)
			if tt.want[2] == StatusWarning {
				require.NotEmpty(t, res.Rows[2].Issues)
				assert.Equal(t, KindSuspiciousValue, res.Rows[2].Issues[0].Kind)
				assert.Equal(t, ColGrossPay, res.Rows[2].Issues[0].Field)
			}
		})
	}
}

func TestNewEngineRejectsBrokenScript(t *testing.T) {
	cfg := config.DefaultImportConfig()
	cfg.WarningScript = "warning = ("
	_, err := NewEngine(cfg, nil)
	assert.Error(t, err)
}
