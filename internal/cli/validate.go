package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go-payroll/internal/config"
	"go-payroll/internal/features/payroll_import"

	"github.com/spf13/cobra"
)

var errRowsRejected = errors.New("workbook has rows that would not be imported")

type validateOptions struct {
	fixPath       string
	referencePath string
	maxRatio      float64
	asJSON        bool
	strict        bool
}

func newValidateCommand() *cobra.Command {
	opts := &validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate <file.xlsx>",
		Short: "Validate a payroll workbook without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.fixPath, "fix", "", "write a corrected workbook to this path")
	cmd.Flags().StringVar(&opts.referencePath, "reference", "", "previous period workbook to compare gross pay against")
	cmd.Flags().Float64Var(&opts.maxRatio, "max-ratio", 1.5, "gross pay change versus the reference that triggers a warning")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the result and recovery guide as JSON")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit non-zero when any row would be skipped")
	return cmd
}

func runValidate(ctx context.Context, out io.Writer, path string, opts *validateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	cfg := config.DefaultImportConfig()
	var extra []payroll_import.WarningRule
	if opts.referencePath != "" {
		ref, err := loadReference(ctx, cfg, opts.referencePath)
		if err != nil {
			return fmt.Errorf("reference %s: %w", opts.referencePath, err)
		}
		extra = append(extra, &payroll_import.RatioWarningRule{
			Field:     payroll_import.ColGrossPay,
			Reference: ref,
			MaxRatio:  opts.maxRatio,
		})
	}
	engine, err := payroll_import.NewEngine(cfg, nil, extra...)
	if err != nil {
		return err
	}

	check := engine.Files.Validate(payroll_import.FileMeta{
		Name:     filepath.Base(path),
		MIMEType: "application/octet-stream",
		Size:     int64(len(data)),
	})
	if !check.Valid {
		return fmt.Errorf("file rejected: %s", strings.Join(check.Errors, "; "))
	}

	result, err := engine.Run(ctx, data)
	if err != nil {
		if se, ok := payroll_import.AsStructural(err); ok {
			printStructural(out, se)
		}
		return err
	}
	guide := engine.Advisor.Guide(result)

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			Summary payroll_import.Summary        `json:"summary"`
			Rows    []payroll_import.ImportRow    `json:"rows"`
			Guide   *payroll_import.RecoveryGuide `json:"guide"`
		}{result.Summary, result.Rows, guide}); err != nil {
			return err
		}
	} else {
		printResult(out, result, guide)
	}

	if opts.fixPath != "" {
		fixed, subs, err := engine.Advisor.CorrectedFile(result)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.fixPath, fixed, 0o644); err != nil {
			return err
		}
		if !opts.asJSON {
			green.Fprintf(out, "\nwrote %s with %d substitutions\n", opts.fixPath, len(subs))
		}
	}

	s := result.Summary
	if opts.strict && s.Invalid+s.Duplicate+s.Unmatched > 0 {
		return errRowsRejected
	}
	return nil
}

// loadReference reads gross pay per employee from a previous workbook.
func loadReference(ctx context.Context, cfg config.ImportConfig, path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	engine, err := payroll_import.NewEngine(cfg, nil)
	if err != nil {
		return nil, err
	}
	result, err := engine.Run(ctx, data)
	if err != nil {
		return nil, err
	}
	ref := make(map[string]float64, len(result.Rows))
	for _, row := range result.Rows {
		if !row.Status.Committable() {
			continue
		}
		ref[row.Values[payroll_import.ColEmployeeID]] = row.Amounts[payroll_import.ColGrossPay]
	}
	return ref, nil
}

func printStructural(out io.Writer, se *payroll_import.StructuralError) {
	red.Fprintf(out, "%s: %s\n", se.Kind, se.Message)
	g := payroll_import.StructuralGuideFor(se)
	for i, step := range g.Steps {
		fmt.Fprintf(out, "  %d. %s\n", i+1, step)
	}
}

func printResult(out io.Writer, result *payroll_import.PreviewResult, guide *payroll_import.RecoveryGuide) {
	s := result.Summary
	bold.Fprintf(out, "%d rows: ", s.Total)
	green.Fprintf(out, "%d valid", s.Valid)
	fmt.Fprint(out, ", ")
	yellow.Fprintf(out, "%d warning", s.Warning)
	fmt.Fprint(out, ", ")
	red.Fprintf(out, "%d invalid, %d duplicate, %d unmatched\n", s.Invalid, s.Duplicate, s.Unmatched)

	for _, row := range result.Rows {
		if len(row.Issues) == 0 {
			continue
		}
		c := red
		if row.Status == payroll_import.StatusWarning {
			c = yellow
		}
		c.Fprintf(out, "  row %-5d %-9s", row.RowIndex, row.Status)
		msgs := make([]string, len(row.Issues))
		for i, is := range row.Issues {
			msgs[i] = is.Message
		}
		fmt.Fprintf(out, " %s\n", strings.Join(msgs, "; "))
	}

	if len(guide.Steps) == 0 {
		return
	}
	fmt.Fprintln(out)
	cyan.Fprintf(out, "Recovery (%s):\n", guide.EstimatedTime)
	for _, step := range guide.Steps {
		fmt.Fprintf(out, "  %d. [%s] %s: %s\n", step.Order, step.Priority, step.Title, step.Action)
	}
	for _, fix := range guide.AutoFixes {
		fmt.Fprintf(out, "     auto-fix row %d %s: %q -> %s\n", fix.Row, fix.Field, fix.Original, fix.Fixed)
	}
}
