package commands

import (
	"github.com/spf13/cobra"

	"github.com/hearthlab/hearth/cmd/hearth/handlers"
)

// Deploy returns the parent command for deployment operations.
func Deploy() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy cluster components",
	}

	cmd.AddCommand(deployInfrastructure())

	return cmd
}

// deployInfrastructure returns the command that deploys the component plan.
//
// Components deploy in dependency order through their configured tool
// (Helm release, manifest set, or command) and count as deployed only once
// their readiness probe passes.
//
// Optional flags:
//
//	--config, -c: Directory containing hearth.yaml (default: walk up from the current directory)
//	--environment, -e: Environment overlay to merge (hearth.<env>.yaml)
//	--components: Deploy only these components plus their dependencies
//	--dry-run: Resolve and render everything without mutating the cluster
//	--show-manifests: With --dry-run, print every rendered manifest
//	--rollback: Undo the run's deployments when a component fails (default true)
//	--force: Deploy components even when the run log says they are up to date
//	--parallel: Deploy independent components concurrently with this many workers
//	--plain: Line-oriented output instead of the dashboard
func deployInfrastructure() *cobra.Command {
	var opts handlers.DeployOptions

	cmd := &cobra.Command{
		Use:   "infrastructure",
		Short: "Deploy infrastructure components in dependency order",
		Long: `Deploy the configured infrastructure components.

Reads hearth.yaml (plus the environment and private overlays), resolves the
component dependency graph, and deploys each component through its tool:
a Helm release, a manifest file or directory, or an external command.
A component counts as deployed only once its readiness probe passes.

Components already deployed from an identical configuration are skipped;
use --force to redeploy them. When a component fails after its retries,
the run rolls back everything it deployed unless --rollback=false.

Examples:
  # Deploy everything enabled in hearth.yaml
  hearth deploy infrastructure

  # Preview what a deploy would do
  hearth deploy infrastructure --dry-run

  # Deploy one component and whatever it depends on
  hearth deploy infrastructure --components keycloak

  # Deploy the prod overlay with four parallel workers
  hearth deploy infrastructure -e prod --parallel 4`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Deploy(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigDir, "config", "c", "", "Directory containing hearth.yaml (default: walk up from the current directory)")
	cmd.Flags().StringVarP(&opts.Environment, "environment", "e", "", "Environment overlay to merge")
	cmd.Flags().StringSliceVar(&opts.Components, "components", nil, "Deploy only these components plus their dependencies")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Resolve and render everything without mutating the cluster")
	cmd.Flags().BoolVar(&opts.ShowManifests, "show-manifests", false, "With --dry-run, print every rendered manifest")
	cmd.Flags().BoolVar(&opts.Rollback, "rollback", true, "Undo the run's deployments when a component fails")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Deploy components even when the run log says they are up to date")
	cmd.Flags().IntVar(&opts.Parallelism, "parallel", 0, "Deploy independent components concurrently with this many workers")
	cmd.Flags().BoolVar(&opts.Plain, "plain", false, "Line-oriented output instead of the dashboard")

	return cmd
}
