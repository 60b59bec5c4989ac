package payroll_import

import (
	"context"

	"go-payroll/internal/config"
)

// Engine is the parse and validate pipeline shared by the HTTP service and
// the offline CLI.
type Engine struct {
	Files     *FileValidator
	Parser    *SheetParser
	Processor *ChunkProcessor
	Advisor   *RecoveryAdvisor
}

// NewEngine builds the pipeline from cfg. directory may be nil; extra rules
// run after the configured ones.
func NewEngine(cfg config.ImportConfig, directory EmployeeDirectory, extra ...WarningRule) (*Engine, error) {
	var rules []WarningRule
	if cfg.WarningMaxRatio > 0 {
		rules = append(rules, &MedianWarningRule{Field: ColGrossPay, MaxRatio: cfg.WarningMaxRatio})
	}
	if cfg.WarningCeiling > 0 {
		rules = append(rules, &CeilingWarningRule{Field: ColGrossPay, Max: cfg.WarningCeiling})
	}
	if cfg.WarningScript != "" {
		rule, err := NewScriptWarningRule(cfg.WarningScript)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	rules = append(rules, extra...)

	return &Engine{
		Files:     NewFileValidator(cfg.MaxUploadBytes),
		Parser:    NewSheetParser(),
		Processor: NewChunkProcessor(NewRowValidator(rules, directory), cfg.ChunkSize),
		Advisor:   NewRecoveryAdvisor(cfg.AutoFix),
	}, nil
}

// Start parses data and begins validating it. Structural problems are
// returned immediately.
func (e *Engine) Start(ctx context.Context, data []byte) (*ChunkRun, error) {
	sheet, err := e.Parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return e.Processor.Start(ctx, sheet), nil
}

// Run parses and validates data, discarding progress.
func (e *Engine) Run(ctx context.Context, data []byte) (*PreviewResult, error) {
	run, err := e.Start(ctx, data)
	if err != nil {
		return nil, err
	}
	res, err := run.Wait()
	if err != nil {
		return nil, err
	}
	res.ContentHash = ContentHash(data)
	return res, nil
}
