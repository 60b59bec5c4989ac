package payroll_import

import (
	"bytes"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"
)

// Sheet is the header row and data rows of the first worksheet.
type Sheet struct {
	Name    string
	Headers []string
	Rows    []SheetRow
}

// SheetRow holds the raw cell text of one data row keyed by column key.
// Index is 1-based relative to the header row.
type SheetRow struct {
	Index int
	Cells map[string]string
}

// SheetParser turns workbook bytes into a Sheet. It only checks structure;
// cell contents are validated by RowValidator.
type SheetParser struct {
	columns []Column
}

func NewSheetParser() *SheetParser {
	return &SheetParser{columns: PayrollColumns}
}

// Parse reads the first sheet of data. It fails with a StructuralError when the
// workbook cannot be read, has no data, or lacks a required header.
func (p *SheetParser) Parse(data []byte) (*Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &StructuralError{
			Kind:    StructuralUnreadableWorkbook,
			Message: "file is not a readable .xlsx workbook",
			Err:     err,
		}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &StructuralError{Kind: StructuralEmptySheet, Message: "workbook has no sheets"}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &StructuralError{
			Kind:    StructuralUnreadableWorkbook,
			Message: "failed to read rows of sheet " + sheets[0],
			Err:     err,
		}
	}
	return p.fromRows(sheets[0], rows)
}

func (p *SheetParser) fromRows(name string, rows [][]string) (*Sheet, error) {
	// trailing blank rows are formatting residue
	for len(rows) > 0 && blankRow(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	if len(rows) == 0 {
		return nil, &StructuralError{Kind: StructuralEmptySheet, Message: "sheet " + name + " is empty"}
	}

	headers := make([]string, len(rows[0]))
	position := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		h = normalizeHeader(h)
		headers[i] = h
		if _, seen := position[h]; !seen && h != "" {
			position[h] = i
		}
	}

	var missing []string
	keyAt := make(map[int]string, len(p.columns))
	for _, c := range p.columns {
		i, ok := position[c.Header]
		if !ok {
			missing = append(missing, c.Header)
			continue
		}
		keyAt[i] = c.Key
	}
	if len(missing) > 0 {
		return nil, missingColumnsError(missing)
	}

	if len(rows) == 1 {
		return nil, &StructuralError{Kind: StructuralEmptySheet, Message: "sheet " + name + " has headers but no data rows"}
	}

	sheet := &Sheet{Name: name, Headers: headers, Rows: make([]SheetRow, 0, len(rows)-1)}
	for i, raw := range rows[1:] {
		if blankRow(raw) {
			continue
		}
		cells := make(map[string]string, len(p.columns))
		for _, c := range p.columns {
			cells[c.Key] = ""
		}
		for col, v := range raw {
			if key, ok := keyAt[col]; ok {
				cells[key] = strings.TrimSpace(v)
			}
		}
		sheet.Rows = append(sheet.Rows, SheetRow{Index: i + 1, Cells: cells})
	}
	return sheet, nil
}

// normalizeHeader trims and composes a header. Files saved on macOS often carry
// decomposed Hangul which would otherwise never match the schema.
func normalizeHeader(h string) string {
	return norm.NFC.String(strings.TrimSpace(h))
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
