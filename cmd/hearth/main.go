// Package main is the entry point for the hearth CLI.
//
// hearth deploys and operates a self-hosted homelab cluster: infrastructure
// components in dependency order, TLS certificates with issuer fallback,
// and health monitoring, all driven by a layered hearth.yaml.
//
// Commands: deploy, certificates, health, config, doctor, state.
//
// For detailed usage information, run:
//
//	hearth --help
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"k8s.io/klog/v2"

	"github.com/hearthlab/hearth/cmd/hearth/commands"
	"github.com/hearthlab/hearth/cmd/hearth/handlers"
	"github.com/hearthlab/hearth/internal/config"
	"github.com/hearthlab/hearth/internal/engine"
	"github.com/hearthlab/hearth/internal/graph"
	"github.com/hearthlab/hearth/internal/health"
	"github.com/hearthlab/hearth/internal/privilege"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes, stable for scripts and cron wrappers.
const (
	exitFailure       = 1
	exitCritical      = 2
	exitConfiguration = 3
	exitPermission    = 4
)

func main() {
	// client-go logs through klog; route it nowhere so command output
	// stays parseable.
	klog.SetLogger(logr.Discard())

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit code. Permission and
// configuration problems rate their own codes so wrappers can tell "fix
// the file" from "the cluster broke".
func exitCode(err error) int {
	var denied *privilege.DeniedError
	if errors.As(err, &denied) {
		return exitPermission
	}

	if isConfigurationError(err) {
		return exitConfiguration
	}

	var rollbackErr *engine.RollbackError
	if errors.As(err, &rollbackErr) {
		return exitCritical
	}

	var runErr *handlers.RunError
	if errors.As(err, &runErr) {
		if runErr.Status == engine.StatusPartialFailure {
			return exitFailure
		}
		return exitCritical
	}

	var healthErr *handlers.HealthError
	if errors.As(err, &healthErr) {
		if healthErr.Status == health.StatusCritical {
			return exitCritical
		}
		return exitFailure
	}

	return exitFailure
}

// isConfigurationError reports whether the error traces back to the
// configuration rather than the cluster: unloadable or invalid layers,
// unresolved placeholders, or a component graph that cannot be ordered.
func isConfigurationError(err error) bool {
	var loadErr *config.LoadError
	var validationErr *config.ValidationError
	var placeholderErr *config.UnresolvedPlaceholderError
	var cyclicErr *graph.CyclicDependencyError
	var unknownDepErr *graph.UnknownDependencyError
	var disabledErr *graph.DisabledError

	return errors.As(err, &loadErr) ||
		errors.As(err, &validationErr) ||
		errors.As(err, &placeholderErr) ||
		errors.As(err, &cyclicErr) ||
		errors.As(err, &unknownDepErr) ||
		errors.As(err, &disabledErr)
}
