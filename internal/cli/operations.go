package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go-payroll/internal/features/snapshot"

	"github.com/spf13/cobra"
)

const operationTimeout = 5 * time.Minute

func withBackend(cmd *cobra.Command, fn func(ctx context.Context, b *backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	b, err := openBackend(ctx, newLogger())
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(ctx, b)
}

func newStatusCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status <operation-id>",
		Short: "Show the snapshot and audit trail of an import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, b *backend) error {
				st, err := b.Snapshots.Status(ctx, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), st)
				}
				printStatus(cmd.OutOrStdout(), st)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newRollbackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback <operation-id>",
		Short: "Restore the state captured before an import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, b *backend) error {
				res, err := b.Snapshots.Rollback(ctx, args[0])
				if err != nil {
					return err
				}
				printRollback(cmd.OutOrStdout(), res)
				if !res.Success {
					return fmt.Errorf("rollback of %s is %s; rerun to retry the failed steps", res.OperationID, res.Status)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&forceCompensating, "force-compensating", false, "roll back collection by collection even if transactions are available")
	return cmd
}

func newCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired snapshots and audit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, b *backend) error {
				res, err := b.Snapshots.CleanupExpiredData(ctx)
				if err != nil {
					return err
				}
				green.Fprintf(cmd.OutOrStdout(), "deleted %d snapshots and %d audit events\n", res.SnapshotsDeleted, res.AuditEventsDeleted)
				return nil
			})
		},
	}
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStatus(out io.Writer, st *snapshot.OperationStatus) {
	bold.Fprintf(out, "operation %s: %s\n", st.OperationID, st.State)
	switch {
	case !st.HasSnapshot:
		yellow.Fprintln(out, "  no snapshot")
	case st.SnapshotExpired:
		yellow.Fprintf(out, "  snapshot taken %s, expired %s\n", st.SnapshotTime.Format(time.RFC3339), st.ExpiresAt.Format(time.RFC3339))
	default:
		fmt.Fprintf(out, "  snapshot taken %s, expires %s\n", st.SnapshotTime.Format(time.RFC3339), st.ExpiresAt.Format(time.RFC3339))
	}
	for _, c := range st.Collections {
		fmt.Fprintf(out, "  %-20s %d documents\n", c.Name, c.DocumentCount)
	}
	for _, e := range st.Timeline {
		fmt.Fprintf(out, "  %s  %-22s %s\n", e.Timestamp.Format(time.RFC3339), e.EventType, e.Actor)
	}
}

func printRollback(out io.Writer, res *snapshot.RollbackResult) {
	c := green
	if !res.Success {
		c = red
	}
	c.Fprintf(out, "rollback %s: %s (%s)\n", res.OperationID, res.Status, res.Strategy)
	for _, col := range res.Collections {
		fmt.Fprintf(out, "  %-20s removed %d new, %d current, restored %d", col.Name, col.NewDeleted, col.CurrentDeleted, col.Restored)
		if col.Error != "" {
			red.Fprintf(out, "  %s", col.Error)
		}
		fmt.Fprintln(out)
	}
}
