package payroll_import

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Auto-fix kinds.
const (
	FixThousandsSeparator = "THOUSANDS_SEPARATOR"
	FixCurrencySymbol     = "CURRENCY_SYMBOL"
	FixCurrencyWord       = "CURRENCY_WORD"
	FixFullWidthDigits    = "FULL_WIDTH_DIGITS"
	FixAccountingNegative = "ACCOUNTING_NEGATIVE"
	FixTenThousandUnit    = "TEN_THOUSAND_UNIT"
	FixWhitespace         = "WHITESPACE"
	FixDashZero           = "DASH_ZERO"
)

const (
	placeholderName     = "미입력"
	placeholderIDPrefix = "UNKNOWN-"
)

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

var priorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

type kindAdvice struct {
	priority Priority
	title    string
	action   string
	// minutes of manual work per affected row
	minutes float64
}

var adviceByKind = map[IssueKind]kindAdvice{
	KindRequiredFieldMissing: {PriorityCritical, "Missing employee identity",
		"Fill in the missing 사번 / 성명 for each listed row", 2},
	KindInvalidNumber: {PriorityHigh, "Non-numeric amounts",
		"Convert the cells to plain numbers: remove currency symbols, units and thousands separators", 1},
	KindDuplicateValue: {PriorityMedium, "Duplicate employee rows",
		"Keep one row per 사번 and merge or delete the others", 1},
	KindEmployeeNotFound: {PriorityMedium, "Unknown employees",
		"Check the 사번 against the employee register or register the employee first", 1},
	KindBusinessRuleViolation: {PriorityLow, "Business rule violations",
		"Correct the amount so it satisfies payroll rules (기본급 must not be negative)", 1},
	KindSuspiciousValue: {PriorityLow, "Suspicious amounts",
		"Double-check the flagged amounts; they are imported unless corrected", 0.5},
}

// ErrorGroup collects every issue of one kind.
type ErrorGroup struct {
	Kind     IssueKind `json:"kind"`
	Title    string    `json:"title"`
	Priority Priority  `json:"priority"`
	Count    int       `json:"count"`
	Rows     []int     `json:"rows"`
	Fields   []string  `json:"fields"`
	Action   string    `json:"action"`
	Examples []string  `json:"examples"`
}

type RecoveryStep struct {
	Order    int       `json:"order"`
	Priority Priority  `json:"priority"`
	Kind     IssueKind `json:"kind"`
	Title    string    `json:"title"`
	Action   string    `json:"action"`
	Rows     []int     `json:"rows"`
}

// AutoFix records one rewritten numeric cell.
type AutoFix struct {
	Row      int    `json:"row"`
	Field    string `json:"field"`
	Original string `json:"original"`
	Fixed    string `json:"fixed"`
	FixType  string `json:"fixType"`
}

// Substitution records one value written into a corrected file that differs
// from the upload.
type Substitution struct {
	Row         int    `json:"row"`
	Field       string `json:"field"`
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
	Reason      string `json:"reason"`
}

type RecoveryGuide struct {
	Groups        []ErrorGroup   `json:"groups"`
	TotalErrors   int            `json:"totalErrors"`
	AffectedRows  int            `json:"affectedRows"`
	AutoFixes     []AutoFix      `json:"autoFixes,omitempty"`
	Steps         []RecoveryStep `json:"steps"`
	EstimatedTime string         `json:"estimatedTime"`
}

// StructuralGuide explains how to repair an upload rejected as a whole.
type StructuralGuide struct {
	ErrorType     string   `json:"errorType"`
	Steps         []string `json:"steps"`
	EstimatedTime string   `json:"estimatedTime"`
}

// RecoveryAdvisor turns validation issues into a remediation plan and can
// repair common formatting noise.
type RecoveryAdvisor struct {
	autoFix bool
}

func NewRecoveryAdvisor(autoFix bool) *RecoveryAdvisor {
	return &RecoveryAdvisor{autoFix: autoFix}
}

// Guide groups every issue of result by kind. Each issue lands in exactly the
// group of its kind.
func (a *RecoveryAdvisor) Guide(result *PreviewResult) *RecoveryGuide {
	type acc struct {
		group  *ErrorGroup
		rows   map[int]bool
		fields map[string]bool
	}
	byKind := make(map[IssueKind]*acc)
	affected := make(map[int]bool)
	total := 0

	for _, row := range result.Rows {
		for _, is := range row.Issues {
			total++
			affected[row.RowIndex] = true
			g, ok := byKind[is.Kind]
			if !ok {
				adv := adviceFor(is.Kind)
				g = &acc{
					group: &ErrorGroup{
						Kind:     is.Kind,
						Title:    adv.title,
						Priority: adv.priority,
						Action:   adv.action,
					},
					rows:   make(map[int]bool),
					fields: make(map[string]bool),
				}
				byKind[is.Kind] = g
			}
			g.group.Count++
			if !g.rows[row.RowIndex] {
				g.rows[row.RowIndex] = true
				g.group.Rows = append(g.group.Rows, row.RowIndex)
			}
			if is.Field != "" && !g.fields[is.Field] {
				g.fields[is.Field] = true
				g.group.Fields = append(g.group.Fields, is.Field)
			}
			if len(g.group.Examples) < 3 {
				g.group.Examples = append(g.group.Examples, fmt.Sprintf("row %d: %s", row.RowIndex, is.Message))
			}
		}
	}

	guide := &RecoveryGuide{TotalErrors: total, AffectedRows: len(affected)}
	for _, g := range byKind {
		sort.Ints(g.group.Rows)
		sort.Strings(g.group.Fields)
		guide.Groups = append(guide.Groups, *g.group)
	}
	sort.Slice(guide.Groups, func(i, j int) bool {
		gi, gj := guide.Groups[i], guide.Groups[j]
		if priorityRank[gi.Priority] != priorityRank[gj.Priority] {
			return priorityRank[gi.Priority] < priorityRank[gj.Priority]
		}
		return gi.Kind < gj.Kind
	})

	if a.autoFix {
		guide.AutoFixes = a.AutoFix(result)
	}
	guide.Steps = PrioritizedSteps(guide.Groups)
	guide.EstimatedTime = estimateTime(guide.Groups)
	return guide
}

func adviceFor(kind IssueKind) kindAdvice {
	if adv, ok := adviceByKind[kind]; ok {
		return adv
	}
	return kindAdvice{PriorityLow, string(kind), "Review the listed rows", 1}
}

// PrioritizedSteps orders groups into a numbered step list, most urgent
// first.
func PrioritizedSteps(groups []ErrorGroup) []RecoveryStep {
	sorted := append([]ErrorGroup(nil), groups...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return priorityRank[sorted[i].Priority] < priorityRank[sorted[j].Priority]
	})
	steps := make([]RecoveryStep, 0, len(sorted))
	for i, g := range sorted {
		steps = append(steps, RecoveryStep{
			Order:    i + 1,
			Priority: g.Priority,
			Kind:     g.Kind,
			Title:    g.Title,
			Action:   g.Action,
			Rows:     g.Rows,
		})
	}
	return steps
}

func estimateTime(groups []ErrorGroup) string {
	minutes := 0.0
	for _, g := range groups {
		minutes += adviceFor(g.Kind).minutes * float64(len(g.Rows))
	}
	return humanMinutes(minutes)
}

func humanMinutes(m float64) string {
	switch {
	case m == 0:
		return "none"
	case m < 1:
		return "less than a minute"
	case m < 60:
		return fmt.Sprintf("about %d minutes", int(m+0.5))
	}
	return fmt.Sprintf("about %.1f hours", m/60)
}

// AutoFix lists every numeric cell whose text differs from a plain number but
// can be read as one, including cells rejected as INVALID_NUMBER that the
// extended repairs recognise.
func (a *RecoveryAdvisor) AutoFix(result *PreviewResult) []AutoFix {
	var fixes []AutoFix
	for _, row := range result.Rows {
		for _, key := range NumericColumns() {
			raw := row.Values[key]
			if fix, ok := fixCell(raw); ok {
				fix.Row = row.RowIndex
				fix.Field = key
				fixes = append(fixes, fix)
			}
		}
	}
	return fixes
}

func fixCell(raw string) (AutoFix, bool) {
	if v, ok := NormalizeAmount(raw); ok {
		kind := classifyNoise(raw)
		if kind == "" {
			return AutoFix{}, false
		}
		return AutoFix{Original: raw, Fixed: formatAmount(v), FixType: kind}, true
	}
	v, kind, ok := repairAmount(raw)
	if !ok {
		return AutoFix{}, false
	}
	if kind == "" {
		kind = classifyNoise(raw)
	}
	return AutoFix{Original: raw, Fixed: formatAmount(v), FixType: kind}, true
}

// CorrectedFile writes a workbook with placeholders for missing identity
// fields and auto-fixed amounts. The second sheet lists every substitution.
func (a *RecoveryAdvisor) CorrectedFile(result *PreviewResult) ([]byte, []Substitution, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Payroll"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, nil, err
	}

	for i, c := range PayrollColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, c.Header); err != nil {
			return nil, nil, err
		}
	}

	var subs []Substitution
	for r, row := range result.Rows {
		for i, c := range PayrollColumns {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			raw := row.Values[c.Key]
			var value interface{} = raw

			switch {
			case c.Key == ColEmployeeID && raw == "":
				value = placeholderIDPrefix + strconv.Itoa(row.RowIndex)
				subs = append(subs, Substitution{Row: row.RowIndex, Field: c.Key, Replacement: value.(string), Reason: "missing 사번"})
			case c.Key == ColName && raw == "":
				value = placeholderName
				subs = append(subs, Substitution{Row: row.RowIndex, Field: c.Key, Replacement: placeholderName, Reason: "missing 성명"})
			case c.Numeric:
				if fix, ok := fixCell(raw); ok {
					v, _ := strconv.ParseFloat(fix.Fixed, 64)
					value = v
					subs = append(subs, Substitution{Row: row.RowIndex, Field: c.Key, Original: raw, Replacement: fix.Fixed, Reason: fix.FixType})
				} else if amt, ok := row.Amounts[c.Key]; ok {
					value = amt
				}
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, nil, err
			}
		}
	}

	if err := writeSubstitutionSheet(f, subs); err != nil {
		return nil, nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to write corrected workbook: %w", err)
	}
	return bytes.Clone(buf.Bytes()), subs, nil
}

func writeSubstitutionSheet(f *excelize.File, subs []Substitution) error {
	const sheet = "Substitutions"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []interface{}{"row", "field", "original", "replacement", "reason"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, s := range subs {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{s.Row, s.Field, s.Original, s.Replacement, s.Reason}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

// StructuralGuideFor explains a whole-file failure.
func StructuralGuideFor(err *StructuralError) StructuralGuide {
	g := StructuralGuide{ErrorType: string(err.Kind)}
	switch err.Kind {
	case StructuralMissingColumns:
		for _, h := range err.Missing {
			g.Steps = append(g.Steps, fmt.Sprintf("Add a column headed %q to row 1 of the first sheet", h))
		}
		g.Steps = append(g.Steps, "Check header spelling and remove extra spaces; column order does not matter")
		g.EstimatedTime = humanMinutes(float64(len(err.Missing)))
	case StructuralEmptySheet:
		g.Steps = []string{
			"Put the payroll table on the first sheet of the workbook",
			"Row 1 must hold the column headers and data must start on row 2",
		}
		g.EstimatedTime = humanMinutes(5)
	case StructuralUnreadableWorkbook:
		g.Steps = []string{
			"Open the file in a spreadsheet program and save it as Excel Workbook (.xlsx)",
			"Remove password protection before uploading",
		}
		g.EstimatedTime = humanMinutes(2)
	case StructuralInvalidFile:
		g.Steps = append(g.Steps, err.Reasons...)
		g.Steps = append(g.Steps, "Upload an .xlsx file no larger than the size limit")
		g.EstimatedTime = humanMinutes(1)
	default:
		g.Steps = []string{err.Message}
	}
	return g
}
