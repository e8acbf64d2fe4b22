package commands

import (
	"github.com/spf13/cobra"

	"github.com/hearthlab/hearth/cmd/hearth/handlers"
)

// Doctor returns the command that diagnoses the local setup and cluster
// connectivity.
//
// Optional flags:
//
//	--config, -c: Directory containing hearth.yaml
//	--environment, -e: Environment overlay to merge
//	--json: Machine-readable output
func Doctor() *cobra.Command {
	var opts handlers.DoctorOptions

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the local setup and cluster connectivity",
		Long: `Check everything a deploy depends on: required and optional tools,
configuration discovery and validity, privilege posture, cluster
reachability, and the state directory.

Runs every check even when earlier ones fail, so one report shows the
full picture. Exits non-zero when a required check fails.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigDir, "config", "c", "", "Directory containing hearth.yaml (default: walk up from the current directory)")
	cmd.Flags().StringVarP(&opts.Environment, "environment", "e", "", "Environment overlay to merge")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Machine-readable output")

	return cmd
}
