package payroll_import

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"", 0, true},
		{"   ", 0, true},
		{"3500000", 3500000, true},
		{"1,200,000원", 1200000, true},
		{"₩1,200,000", 1200000, true},
		{"￦ 50,000", 50000, true},
		{"\\50,000", 50000, true},
		{"１２３４", 1234, true},
		{" 2 500 000 ", 2500000, true},
		{"-300", -300, true},
		{"12.5", 12.5, true},
		{"abc", 0, false},
		{"1,000 KRW", 0, false},
		{"(1,000)", 0, false},
		{"30만원", 0, false},
		{"-", 0, true},
		{" － ", 0, true},
		{"\u2013", 0, true},
		{"$1,000", 1000, true},
		{"-$250.5", -250.5, true},
		{"1e3", 0, false},
		{"0x10", 0, false},
		{"1.2.3", 0, false},
		{"+", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizeAmount(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFixCell(t *testing.T) {
	tests := []struct {
		raw     string
		fixed   string
		fixType string
		ok      bool
	}{
		{"1,200,000원", "1200000", FixCurrencyWord, true},
		{"1,200,000", "1200000", FixThousandsSeparator, true},
		{"₩5000", "5000", FixCurrencySymbol, true},
		{"１２３", "123", FixFullWidthDigits, true},
		{"1,000 KRW", "1000", FixCurrencyWord, true},
		{"krw 1000", "1000", FixCurrencyWord, true},
		{"500 won", "500", FixCurrencyWord, true},
		{"(1,000)", "-1000", FixAccountingNegative, true},
		{"30만원", "300000", FixTenThousandUnit, true},
		{"-", "0", FixDashZero, true},
		{"$1,000", "1000", FixCurrencySymbol, true},
		{"($1,000)", "-1000", FixAccountingNegative, true},
		{"1000", "", "", false},
		{"", "", "", false},
		{"n/a", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			fix, ok := fixCell(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.fixed, fix.Fixed)
				assert.Equal(t, tt.fixType, fix.FixType)
				assert.Equal(t, tt.raw, fix.Original)
			}
		})
	}
}

func TestNormalizeAmountRejectsSpecialFloats(t *testing.T) {
	for _, raw := range []string{"NaN", "inf", "-Infinity"} {
		_, ok := NormalizeAmount(raw)
		assert.False(t, ok, raw)
	}
}
