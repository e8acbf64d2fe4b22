// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the hearth CLI.
//
// The root command serves as the entry point and parent for all subcommands.
// It provides basic CLI metadata and organizes the command hierarchy.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hearth",
		Short: "Deploy and operate a homelab cluster",
	}

	// Core commands
	cmd.AddCommand(Deploy())
	cmd.AddCommand(Certificates())
	cmd.AddCommand(Health())
	cmd.AddCommand(Config())

	// Diagnostics and state
	cmd.AddCommand(Doctor())
	cmd.AddCommand(State())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
