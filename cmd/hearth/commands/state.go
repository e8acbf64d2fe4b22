package commands

import (
	"github.com/spf13/cobra"

	"github.com/hearthlab/hearth/cmd/hearth/handlers"
)

// State returns the parent command for run state operations.
func State() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and back up run state",
	}

	cmd.AddCommand(stateBackup())
	cmd.AddCommand(stateRuns())

	return cmd
}

// stateBackup returns the command that uploads the state directory to the
// configured S3-compatible bucket.
func stateBackup() *cobra.Command {
	var opts handlers.StateOptions

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Upload the state directory to the configured bucket",
		Long: `Upload the run log, certificate audit log, and everything else under
the state directory to the S3-compatible bucket configured in
state.backup. Objects are keyed by cluster name and timestamp so backups
from different clusters and points in time never collide.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.StateBackup(cmd.Context(), opts)
		},
	}

	bindStateFlags(cmd, &opts)

	return cmd
}

// stateRuns returns the command that prints recent deployment runs.
//
// Optional flags:
//
//	-n: Number of runs to show (default 10)
func stateRuns() *cobra.Command {
	var opts handlers.StateOptions

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent deployment runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.StateRuns(cmd.Context(), opts)
		},
	}

	bindStateFlags(cmd, &opts)
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "Number of runs to show")

	return cmd
}

func bindStateFlags(cmd *cobra.Command, opts *handlers.StateOptions) {
	cmd.Flags().StringVarP(&opts.ConfigDir, "config", "c", "", "Directory containing hearth.yaml (default: walk up from the current directory)")
	cmd.Flags().StringVarP(&opts.Environment, "environment", "e", "", "Environment overlay to merge")
}
