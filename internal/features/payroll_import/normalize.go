package payroll_import

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// currency symbols stripped from amounts: won sign, its full-width form, the
// backslash some Korean code pages render the won sign as, and the dollar sign.
var currencyReplacer = strings.NewReplacer("₩", "", "￦", "", "\\", "", "$", "", ",", "", "，", "")

// NormalizeAmount parses a payroll amount cell. Blank cells and a lone dash
// are zero. The second return is false when anything but a plain decimal
// remains after cleanup.
func NormalizeAmount(raw string) (float64, bool) {
	s := cleanAmount(raw)
	switch {
	case s == "", isDashZero(s):
		return 0, true
	case !plainDecimal(s):
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func cleanAmount(raw string) string {
	s := width.Narrow.String(raw)
	s = currencyReplacer.Replace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSuffix(s, "원")
	return s
}

// isDashZero reports whether s is the accounting notation for zero.
func isDashZero(s string) bool {
	switch s {
	case "-", "\u2013", "\u2014":
		return true
	}
	return false
}

// plainDecimal accepts an optional sign, digits and at most one decimal
// point. Exponents, hex and special values are rejected.
func plainDecimal(s string) bool {
	if s != "" && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// repairAmount applies the auto-fix transforms that plain normalization does
// not accept. It returns the repaired value and the kind of fix applied.
func repairAmount(raw string) (float64, string, bool) {
	s := width.Narrow.String(raw)
	fixType := ""

	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") && len(s) > 2 {
		negative = true
		s = s[1 : len(s)-1]
		fixType = FixAccountingNegative
	}

	multiplier := 1.0
	lower := strings.ToLower(s)
	switch {
	case strings.HasSuffix(s, "만원"):
		s = strings.TrimSuffix(s, "만원")
		multiplier = 10000
		fixType = FixTenThousandUnit
	case strings.HasSuffix(lower, "krw"):
		s = s[:len(s)-3]
		fixType = FixCurrencyWord
	case strings.HasSuffix(lower, "won"):
		s = s[:len(s)-3]
		fixType = FixCurrencyWord
	case strings.HasPrefix(lower, "krw"):
		s = s[3:]
		fixType = FixCurrencyWord
	}

	v, ok := NormalizeAmount(s)
	if !ok {
		return 0, "", false
	}
	if negative {
		v = -v
	}
	return v * multiplier, fixType, true
}

// classifyNoise names the cosmetic cleanup NormalizeAmount performed on raw,
// or "" when the cell was already a plain number.
func classifyNoise(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if plainDecimal(trimmed) {
		return ""
	}
	switch {
	case isDashZero(width.Narrow.String(trimmed)):
		return FixDashZero
	case width.Narrow.String(trimmed) != trimmed:
		return FixFullWidthDigits
	case strings.HasSuffix(trimmed, "원"):
		return FixCurrencyWord
	case strings.ContainsAny(trimmed, "₩￦\\$"):
		return FixCurrencySymbol
	case strings.ContainsAny(trimmed, ",，"):
		return FixThousandsSeparator
	}
	return FixWhitespace
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
