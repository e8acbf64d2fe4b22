package commands

import (
	"github.com/spf13/cobra"

	"github.com/hearthlab/hearth/cmd/hearth/handlers"
)

// Config returns the parent command for configuration operations.
func Config() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate, inspect, and create configuration",
	}

	cmd.AddCommand(configValidate())
	cmd.AddCommand(configShow())
	cmd.AddCommand(configInit())

	return cmd
}

// configValidate returns the command that loads and validates the merged
// configuration without touching the cluster.
func configValidate() *cobra.Command {
	var opts handlers.ConfigOptions

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the merged configuration",
		Long: `Load hearth.yaml with its environment and private overlays, resolve
placeholders from the environment, and run every validation rule.

Prints the layers that were merged and the configuration fingerprint on
success. Exits with code 3 when the configuration is invalid or a
referenced environment variable is unset.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.ConfigValidate(cmd.Context(), opts)
		},
	}

	bindConfigFlags(cmd, &opts)

	return cmd
}

// configShow returns the command that prints the merged configuration.
func configShow() *cobra.Command {
	var opts handlers.ConfigOptions

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration as YAML",
		Long: `Print the configuration after merging the base file with the
environment and private overlays.

Placeholders are printed unresolved so secret values never reach the
terminal or a shell history.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.ConfigShow(cmd.Context(), opts)
		},
	}

	bindConfigFlags(cmd, &opts)

	return cmd
}

// configInit returns the command that creates a starter hearth.yaml.
func configInit() *cobra.Command {
	var opts handlers.ConfigInitOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter hearth.yaml interactively",
		Long: `Walk through the initial cluster settings and write a starter
hearth.yaml to the current directory.

Refuses to overwrite an existing configuration file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.ConfigInit(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Path, "output", "o", "hearth.yaml", "Path to write the configuration file to")

	return cmd
}

func bindConfigFlags(cmd *cobra.Command, opts *handlers.ConfigOptions) {
	cmd.Flags().StringVarP(&opts.ConfigDir, "config", "c", "", "Directory containing hearth.yaml (default: walk up from the current directory)")
	cmd.Flags().StringVarP(&opts.Environment, "environment", "e", "", "Environment overlay to merge")
}
