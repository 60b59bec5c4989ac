// Package cli implements payrollctl, the operator tool for offline workbook
// checks and for inspecting and rolling back imports.
package cli

import (
	"context"
	"fmt"
	"io"

	"go-payroll/internal/config"
	"go-payroll/internal/database"
	"go-payroll/internal/features/audit"
	"go-payroll/internal/features/snapshot"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// backend holds the services the operation commands need.
type backend struct {
	Snapshots snapshot.SnapshotManager
	close     func()
}

func (b *backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// openBackend connects to the configured database. Tests replace it.
var openBackend = func(ctx context.Context, logger *zap.Logger) (*backend, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if forceCompensating {
		cfg.Import.ForceCompensating = true
	}

	store := database.NewMongoStore(db)
	auditService := audit.NewAuditService(audit.NewAuditRepository(store))
	manager := snapshot.NewSnapshotManager(snapshot.NewSnapshotRepository(store), auditService, store, cfg, logger)

	return &backend{
		Snapshots: manager,
		close:     func() { _ = db.Client.Disconnect(context.Background()) },
	}, nil
}

var (
	verbose           bool
	forceCompensating bool
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
)

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// NewRootCommand assembles payrollctl.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "payrollctl",
		Short:         "Payroll import operator tool",
		Long:          `payrollctl validates payroll workbooks offline and inspects, rolls back and cleans up committed imports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log engine activity to stderr")

	root.AddCommand(newValidateCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newRollbackCommand())
	root.AddCommand(newCleanupCommand())
	return root
}

// Execute runs payrollctl and reports errors to stderr.
func Execute(stderr io.Writer) int {
	if err := NewRootCommand().Execute(); err != nil {
		red.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
