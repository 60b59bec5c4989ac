package payroll_import

import (
	"fmt"
	"time"
)

// Column keys of the fixed payroll schema.
const (
	ColEmployeeID = "employeeId"
	ColName       = "name"
	ColDepartment = "department"
	ColTitle      = "title"
	ColBasePay    = "basePay"
	ColIncentive  = "incentive"
	ColBonus      = "bonus"
	ColAward      = "award"
	ColGrossPay   = "grossPay"
	ColNetPay     = "netPay"
	ColDifference = "difference"
)

// Column describes one column of the payroll sheet. Header is the exact label
// expected in row 1 of the workbook.
type Column struct {
	Key      string
	Header   string
	Numeric  bool
	Required bool
}

// PayrollColumns is the fixed import schema. Headers must all be present;
// their order in the sheet does not matter.
var PayrollColumns = []Column{
	{Key: ColEmployeeID, Header: "사번", Required: true},
	{Key: ColName, Header: "성명", Required: true},
	{Key: ColDepartment, Header: "부서"},
	{Key: ColTitle, Header: "직급"},
	{Key: ColBasePay, Header: "기본급", Numeric: true},
	{Key: ColIncentive, Header: "인센티브", Numeric: true},
	{Key: ColBonus, Header: "상여금", Numeric: true},
	{Key: ColAward, Header: "포상금", Numeric: true},
	{Key: ColGrossPay, Header: "지급총액", Numeric: true},
	{Key: ColNetPay, Header: "실지급액", Numeric: true},
	{Key: ColDifference, Header: "차이", Numeric: true},
}

func columnByKey(key string) (Column, bool) {
	for _, c := range PayrollColumns {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}

// NumericColumns returns the keys of every amount column in schema order.
func NumericColumns() []string {
	keys := make([]string, 0, len(PayrollColumns))
	for _, c := range PayrollColumns {
		if c.Numeric {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

// RowStatus is the closed set of terminal row states.
type RowStatus string

const (
	StatusValid     RowStatus = "valid"
	StatusWarning   RowStatus = "warning"
	StatusInvalid   RowStatus = "invalid"
	StatusDuplicate RowStatus = "duplicate"
	StatusUnmatched RowStatus = "unmatched"
)

// Valid reports whether s is one of the known statuses.
func (s RowStatus) Valid() bool {
	switch s {
	case StatusValid, StatusWarning, StatusInvalid, StatusDuplicate, StatusUnmatched:
		return true
	}
	return false
}

// Committable reports whether rows in this state are written on confirm.
func (s RowStatus) Committable() bool {
	switch s {
	case StatusValid, StatusWarning:
		return true
	case StatusInvalid, StatusDuplicate, StatusUnmatched:
		return false
	}
	panic(fmt.Sprintf("payroll_import: unknown row status %q", string(s)))
}

// IssueKind classifies a row-level problem.
type IssueKind string

const (
	KindRequiredFieldMissing  IssueKind = "REQUIRED_FIELD_MISSING"
	KindInvalidNumber         IssueKind = "INVALID_NUMBER"
	KindBusinessRuleViolation IssueKind = "BUSINESS_RULE_VIOLATION"
	KindDuplicateValue        IssueKind = "DUPLICATE_VALUE"
	KindSuspiciousValue       IssueKind = "SUSPICIOUS_VALUE"
	KindEmployeeNotFound      IssueKind = "EMPLOYEE_NOT_FOUND"
)

// Severity decides how an issue affects the row status.
type Severity int

const (
	SeveritySoft Severity = iota
	SeverityUnmatched
	SeverityDuplicate
	SeverityFatal
)

func (k IssueKind) Severity() Severity {
	switch k {
	case KindRequiredFieldMissing, KindInvalidNumber, KindBusinessRuleViolation:
		return SeverityFatal
	case KindDuplicateValue:
		return SeverityDuplicate
	case KindEmployeeNotFound:
		return SeverityUnmatched
	case KindSuspiciousValue:
		return SeveritySoft
	}
	panic(fmt.Sprintf("payroll_import: unknown issue kind %q", string(k)))
}

// RowIssue is one error or warning attached to a row.
type RowIssue struct {
	Kind    IssueKind `json:"kind"`
	Field   string    `json:"field"`
	Message string    `json:"message"`
	Value   string    `json:"value,omitempty"`
}

// DeriveStatus is the only place a row status is computed.
func DeriveStatus(issues []RowIssue) RowStatus {
	worst := Severity(-1)
	for _, is := range issues {
		if s := is.Kind.Severity(); s > worst {
			worst = s
		}
	}
	switch worst {
	case SeverityFatal:
		return StatusInvalid
	case SeverityDuplicate:
		return StatusDuplicate
	case SeverityUnmatched:
		return StatusUnmatched
	case SeveritySoft:
		return StatusWarning
	}
	return StatusValid
}

// ImportRow is one spreadsheet data line.
type ImportRow struct {
	RowIndex int                `json:"rowIndex"`
	Values   map[string]string  `json:"values"`
	Amounts  map[string]float64 `json:"amounts"`
	Status   RowStatus          `json:"status"`
	Issues   []RowIssue         `json:"issues"`
}

func (r *ImportRow) addIssue(is RowIssue) {
	r.Issues = append(r.Issues, is)
}

// HasFatal reports whether the row carries an issue that makes it invalid.
func (r *ImportRow) HasFatal() bool {
	for _, is := range r.Issues {
		if is.Kind.Severity() == SeverityFatal {
			return true
		}
	}
	return false
}

// Summary counts rows per terminal status.
type Summary struct {
	Total     int `json:"total"`
	Valid     int `json:"valid"`
	Invalid   int `json:"invalid"`
	Warning   int `json:"warning"`
	Duplicate int `json:"duplicate"`
	Unmatched int `json:"unmatched"`
}

func summarize(rows []ImportRow) Summary {
	s := Summary{Total: len(rows)}
	for _, r := range rows {
		switch r.Status {
		case StatusValid:
			s.Valid++
		case StatusInvalid:
			s.Invalid++
		case StatusWarning:
			s.Warning++
		case StatusDuplicate:
			s.Duplicate++
		case StatusUnmatched:
			s.Unmatched++
		}
	}
	return s
}

// PreviewResult is the parsed and validated form of one upload. It is never
// modified once it has been stored in the PreviewCache.
type PreviewResult struct {
	Headers     []string    `json:"headers"`
	Rows        []ImportRow `json:"rows"`
	Summary     Summary     `json:"summary"`
	ContentHash string      `json:"contentHash"`
	GeneratedAt time.Time   `json:"generatedAt"`
	FromCache   bool        `json:"fromCache"`
}

// ProgressUpdate is emitted once per processed chunk.
type ProgressUpdate struct {
	Processed  int     `json:"processed"`
	Total      int     `json:"total"`
	ChunkIndex int     `json:"chunkIndex"`
	ChunkCount int     `json:"chunkCount"`
	Percentage float64 `json:"percentage"`
}

// Period is the pay period an import is written to.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (p Period) Validate() error {
	if p.Year < 2000 || p.Year > 2100 {
		return fmt.Errorf("year %d out of range", p.Year)
	}
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("month %d out of range", p.Month)
	}
	return nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
