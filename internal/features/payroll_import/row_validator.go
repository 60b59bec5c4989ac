package payroll_import

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// EmployeeDirectory reports which employee ids exist. Rows whose id is
// unknown become unmatched.
type EmployeeDirectory interface {
	Known(ctx context.Context, ids []string) (map[string]bool, error)
}

// RowValidator applies the per-row checks and, once every row is known, the
// whole-set checks: duplicates, directory matching and warning rules.
type RowValidator struct {
	rules     []WarningRule
	directory EmployeeDirectory
}

func NewRowValidator(rules []WarningRule, directory EmployeeDirectory) *RowValidator {
	return &RowValidator{rules: rules, directory: directory}
}

// ValidateRow runs the checks that depend on a single row only.
func (v *RowValidator) ValidateRow(sr SheetRow) ImportRow {
	row := ImportRow{
		RowIndex: sr.Index,
		Values:   sr.Cells,
		Amounts:  make(map[string]float64, len(PayrollColumns)),
	}

	for _, c := range PayrollColumns {
		if !c.Required {
			continue
		}
		if strings.TrimSpace(sr.Cells[c.Key]) == "" {
			row.addIssue(RowIssue{
				Kind:    KindRequiredFieldMissing,
				Field:   c.Key,
				Message: c.Header + " is required",
			})
		}
	}

	for _, c := range PayrollColumns {
		if !c.Numeric {
			continue
		}
		raw := sr.Cells[c.Key]
		amount, ok := NormalizeAmount(raw)
		if !ok {
			row.addIssue(RowIssue{
				Kind:    KindInvalidNumber,
				Field:   c.Key,
				Message: fmt.Sprintf("%s %q is not a number", c.Header, raw),
				Value:   raw,
			})
			continue
		}
		row.Amounts[c.Key] = amount
	}

	if base, ok := row.Amounts[ColBasePay]; ok && base < 0 {
		row.addIssue(RowIssue{
			Kind:    KindBusinessRuleViolation,
			Field:   ColBasePay,
			Message: "기본급 must not be negative",
			Value:   sr.Cells[ColBasePay],
		})
	}

	row.Status = DeriveStatus(row.Issues)
	return row
}

// Finalize runs the checks that need the complete row set and derives the
// final status of every row. Rows are modified in place.
func (v *RowValidator) Finalize(ctx context.Context, rows []ImportRow) error {
	markDuplicates(rows)

	if v.directory != nil {
		if err := v.matchDirectory(ctx, rows); err != nil {
			return err
		}
	}

	if len(v.rules) > 0 {
		stats := computeBatchStats(rows)
		for i := range rows {
			if rows[i].HasFatal() {
				continue
			}
			for _, rule := range v.rules {
				issues, err := rule.Check(ctx, rows[i], stats)
				if err != nil {
					return fmt.Errorf("warning rule %s: %w", rule.Name(), err)
				}
				rows[i].Issues = append(rows[i].Issues, issues...)
			}
		}
	}

	for i := range rows {
		rows[i].Status = DeriveStatus(rows[i].Issues)
	}
	return nil
}

// markDuplicates flags every row whose employee id occurs more than once, so
// each member of a group reports the same set of rows.
func markDuplicates(rows []ImportRow) {
	groups := make(map[string][]int)
	var order []string
	for i := range rows {
		id := strings.TrimSpace(rows[i].Values[ColEmployeeID])
		if id == "" {
			continue
		}
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], i)
	}

	for _, id := range order {
		members := groups[id]
		if len(members) < 2 {
			continue
		}
		positions := make([]string, len(members))
		for j, m := range members {
			positions[j] = strconv.Itoa(rows[m].RowIndex)
		}
		msg := fmt.Sprintf("사번 %s appears in rows %s", id, strings.Join(positions, ", "))
		for _, m := range members {
			rows[m].addIssue(RowIssue{Kind: KindDuplicateValue, Field: ColEmployeeID, Message: msg, Value: id})
		}
	}
}

func (v *RowValidator) matchDirectory(ctx context.Context, rows []ImportRow) error {
	seen := make(map[string]bool)
	var ids []string
	for i := range rows {
		id := strings.TrimSpace(rows[i].Values[ColEmployeeID])
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Strings(ids)

	known, err := v.directory.Known(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to look up employees: %w", err)
	}
	for i := range rows {
		id := strings.TrimSpace(rows[i].Values[ColEmployeeID])
		if id == "" || known[id] {
			continue
		}
		rows[i].addIssue(RowIssue{
			Kind:    KindEmployeeNotFound,
			Field:   ColEmployeeID,
			Message: "사번 " + id + " is not a registered employee",
			Value:   id,
		})
	}
	return nil
}
