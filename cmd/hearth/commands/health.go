package commands

import (
	"github.com/spf13/cobra"

	"github.com/hearthlab/hearth/cmd/hearth/handlers"
)

// Health returns the parent command for health operations.
func Health() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check and serve cluster health",
	}

	cmd.AddCommand(healthCheck())
	cmd.AddCommand(healthServe())

	return cmd
}

// healthCheck returns the command that runs a health sweep across the
// deployed components and configured service endpoints.
//
// Optional flags:
//
//	--config, -c: Directory containing hearth.yaml
//	--environment, -e: Environment overlay to merge
//	--comprehensive: Also probe Kubernetes workload readiness, not just HTTP endpoints
//	--watch: Refresh the report every few seconds until interrupted
func healthCheck() *cobra.Command {
	var opts handlers.HealthCheckOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a health sweep across components and services",
		Long: `Probe the health of every deployed component and configured service
endpoint, then print a per-component report and the aggregate verdict.

The basic sweep hits HTTP health endpoints. With --comprehensive it also
asks the cluster whether each component's workloads report ready.

Exit codes: 0 healthy, 1 degraded, 2 critical.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.HealthCheck(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigDir, "config", "c", "", "Directory containing hearth.yaml (default: walk up from the current directory)")
	cmd.Flags().StringVarP(&opts.Environment, "environment", "e", "", "Environment overlay to merge")
	cmd.Flags().BoolVar(&opts.Comprehensive, "comprehensive", false, "Also probe Kubernetes workload readiness, not just HTTP endpoints")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Refresh the report every few seconds until interrupted")

	return cmd
}

// healthServe returns the command that runs the long-lived health endpoint.
//
// Optional flags:
//
//	--config, -c: Directory containing hearth.yaml
//	--environment, -e: Environment overlay to merge
//	--listen: Address to serve on (default :8080)
func healthServe() *cobra.Command {
	var opts handlers.HealthServeOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health and metrics over HTTP",
		Long: `Run a long-lived health endpoint that re-checks the cluster on an
interval and serves the latest snapshot.

Endpoints:
  /healthz   liveness (always 200 while the process runs)
  /readyz    503 until the first sweep completes, then mirrors the verdict
  /status    latest report as JSON
  /metrics   Prometheus metrics`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.HealthServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigDir, "config", "c", "", "Directory containing hearth.yaml (default: walk up from the current directory)")
	cmd.Flags().StringVarP(&opts.Environment, "environment", "e", "", "Environment overlay to merge")
	cmd.Flags().StringVar(&opts.Listen, "listen", ":8080", "Address to serve on")

	return cmd
}
