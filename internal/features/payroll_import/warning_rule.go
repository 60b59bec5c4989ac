package payroll_import

import (
	"context"
	"fmt"
	"sort"

	"github.com/d5/tengo/v2"
)

// BatchStats are computed over every row without a fatal issue and handed to
// warning rules so they can compare a row against its batch.
type BatchStats struct {
	Count  int
	Median map[string]float64
	Mean   map[string]float64
}

func computeBatchStats(rows []ImportRow) BatchStats {
	values := make(map[string][]float64)
	for i := range rows {
		if rows[i].HasFatal() {
			continue
		}
		for k, v := range rows[i].Amounts {
			values[k] = append(values[k], v)
		}
	}

	stats := BatchStats{Median: make(map[string]float64), Mean: make(map[string]float64)}
	for k, vs := range values {
		stats.Count = len(vs)
		sorted := append([]float64(nil), vs...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 0 {
			stats.Median[k] = (sorted[mid-1] + sorted[mid]) / 2
		} else {
			stats.Median[k] = sorted[mid]
		}
		sum := 0.0
		for _, v := range vs {
			sum += v
		}
		stats.Mean[k] = sum / float64(len(vs))
	}
	return stats
}

// WarningRule adds soft SUSPICIOUS_VALUE issues to rows that passed the hard
// checks. Rules never make a row invalid.
type WarningRule interface {
	Name() string
	Check(ctx context.Context, row ImportRow, stats BatchStats) ([]RowIssue, error)
}

func suspicious(field, msg string, v float64) RowIssue {
	return RowIssue{Kind: KindSuspiciousValue, Field: field, Message: msg, Value: formatAmount(v)}
}

// RatioWarningRule compares an amount with a caller-supplied reference, such
// as last month's figure per employee.
type RatioWarningRule struct {
	Field     string
	Reference map[string]float64
	MaxRatio  float64
}

func (r *RatioWarningRule) Name() string { return "ratio:" + r.Field }

func (r *RatioWarningRule) Check(_ context.Context, row ImportRow, _ BatchStats) ([]RowIssue, error) {
	ref, ok := r.Reference[row.Values[ColEmployeeID]]
	if !ok || ref <= 0 || r.MaxRatio <= 1 {
		return nil, nil
	}
	v := row.Amounts[r.Field]
	ratio := v / ref
	if ratio > r.MaxRatio || ratio < 1/r.MaxRatio {
		return []RowIssue{suspicious(r.Field,
			fmt.Sprintf("%s %s deviates from reference %s by a factor of %.2f", r.Field, formatAmount(v), formatAmount(ref), ratio), v)}, nil
	}
	return nil, nil
}

// CeilingWarningRule flags amounts above a fixed ceiling.
type CeilingWarningRule struct {
	Field string
	Max   float64
}

func (r *CeilingWarningRule) Name() string { return "ceiling:" + r.Field }

func (r *CeilingWarningRule) Check(_ context.Context, row ImportRow, _ BatchStats) ([]RowIssue, error) {
	if v := row.Amounts[r.Field]; v > r.Max {
		return []RowIssue{suspicious(r.Field, fmt.Sprintf("%s %s exceeds ceiling %s", r.Field, formatAmount(v), formatAmount(r.Max)), v)}, nil
	}
	return nil, nil
}

// MedianWarningRule flags amounts far above the batch median.
type MedianWarningRule struct {
	Field    string
	MaxRatio float64
}

func (r *MedianWarningRule) Name() string { return "median:" + r.Field }

func (r *MedianWarningRule) Check(_ context.Context, row ImportRow, stats BatchStats) ([]RowIssue, error) {
	median := stats.Median[r.Field]
	if median <= 0 || r.MaxRatio <= 0 {
		return nil, nil
	}
	if v := row.Amounts[r.Field]; v > median*r.MaxRatio {
		return []RowIssue{suspicious(r.Field,
			fmt.Sprintf("%s %s is more than %.1fx the batch median %s", r.Field, formatAmount(v), r.MaxRatio, formatAmount(median)), v)}, nil
	}
	return nil, nil
}

// ScriptWarningRule runs a tengo script per row. The script sees `row` (the
// employee id plus every amount), `median` (batch medians) and may assign a
// message to `warning` and optionally a column key to `field`.
type ScriptWarningRule struct {
	compiled *tengo.Compiled
}

func NewScriptWarningRule(src string) (*ScriptWarningRule, error) {
	script := tengo.NewScript([]byte(src))
	for name, v := range map[string]interface{}{
		"row":     map[string]interface{}{},
		"median":  map[string]interface{}{},
		"warning": "",
		"field":   "",
	} {
		if err := script.Add(name, v); err != nil {
			return nil, fmt.Errorf("failed to declare script variable %s: %w", name, err)
		}
	}
	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile warning script: %w", err)
	}
	return &ScriptWarningRule{compiled: compiled}, nil
}

func (r *ScriptWarningRule) Name() string { return "script" }

func (r *ScriptWarningRule) Check(ctx context.Context, row ImportRow, stats BatchStats) ([]RowIssue, error) {
	c := r.compiled.Clone()

	vars := map[string]interface{}{ColEmployeeID: row.Values[ColEmployeeID]}
	for k, v := range row.Amounts {
		vars[k] = v
	}
	median := make(map[string]interface{}, len(stats.Median))
	for k, v := range stats.Median {
		median[k] = v
	}
	if err := c.Set("row", vars); err != nil {
		return nil, err
	}
	if err := c.Set("median", median); err != nil {
		return nil, err
	}
	if err := c.RunContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to run warning script on row %d: %w", row.RowIndex, err)
	}

	msg := c.Get("warning").String()
	if msg == "" {
		return nil, nil
	}
	field := c.Get("field").String()
	if _, ok := columnByKey(field); !ok {
		field = ""
	}
	return []RowIssue{{Kind: KindSuspiciousValue, Field: field, Message: msg}}, nil
}
