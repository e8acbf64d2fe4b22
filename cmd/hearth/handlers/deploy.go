// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/hearthlab/hearth/internal/component"
	"github.com/hearthlab/hearth/internal/config"
	"github.com/hearthlab/hearth/internal/engine"
	"github.com/hearthlab/hearth/internal/graph"
	"github.com/hearthlab/hearth/internal/helm"
	"github.com/hearthlab/hearth/internal/kube"
	"github.com/hearthlab/hearth/internal/orchestration"
	"github.com/hearthlab/hearth/internal/privilege"
	"github.com/hearthlab/hearth/internal/runlog"
	"github.com/hearthlab/hearth/internal/ui/tui"
	"github.com/hearthlab/hearth/internal/util/prerequisites"
)

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// findConfigFile walks up from the current directory looking for hearth.yaml.
	findConfigFile = config.FindConfigFile

	// loadConfig loads the layered configuration from a directory.
	loadConfig = config.Load

	// resolvePlaceholders substitutes ${VAR} placeholders in a snapshot.
	resolvePlaceholders = config.ResolvePlaceholders

	// envTable captures the process environment for placeholder resolution.
	envTable = config.EnvTable

	// newCluster connects to the cluster named in the configuration.
	newCluster = kube.New

	// newChartSource creates the chart fetcher for helm components.
	newChartSource = func() engine.ChartSource {
		return helm.NewFetcher(helm.DefaultCacheDir())
	}

	// openRunLog opens the append-only run log under the state directory.
	openRunLog = runlog.Open

	// checkDefaultPrereqs runs prerequisite checks.
	checkDefaultPrereqs = prerequisites.CheckDefault

	// runDeployTUI runs the deployment dashboard.
	runDeployTUI = tui.RunDeployTUI

	// isInteractive reports whether stdout is a terminal.
	isInteractive = isInteractiveTTY
)

// RunError reports a deployment run that did not fully succeed. It carries
// the run status so the process exit code can distinguish a partial
// failure from a total one.
type RunError struct {
	Status engine.Status
	Err    error
}

func (e *RunError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("run finished %s: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("run finished %s", e.Status)
}

// Unwrap returns the underlying cause.
func (e *RunError) Unwrap() error {
	return e.Err
}

// DeployOptions carries the deploy command's flags.
type DeployOptions struct {
	ConfigDir   string
	Environment string
	Components  []string
	DryRun      bool
	Rollback    bool
	Force       bool
	Parallelism int
	Plain       bool
	// ShowManifests prints rendered manifests during a dry run.
	ShowManifests bool
}

// Deploy deploys the configured infrastructure components.
//
// This function orchestrates the complete deployment workflow:
//  1. Loads the layered configuration and resolves placeholders
//  2. Verifies required client tools are installed
//  3. Builds the dependency graph and orders the requested components
//  4. Connects to the cluster (optional for dry runs and command-only plans)
//  5. Executes the plan through the engine, respecting the privilege gate
//  6. Prints the per-component summary and records the run in the run log
//
// On an interactive terminal the run renders as a live dashboard unless
// --plain or --dry-run asks for line output. Component failures surface in
// the summary and the returned *RunError; the run itself keeps going so
// independent components still deploy.
func Deploy(ctx context.Context, opts DeployOptions) error {
	snapshot, configDir, err := loadSnapshot(opts.ConfigDir, opts.Environment)
	if err != nil {
		return err
	}
	cfg := snapshot.Config()

	if err := checkPrerequisites(); err != nil {
		return err
	}

	log.Printf("Deploying cluster: %s", cfg.Cluster.Name)

	plan, err := buildPlan(cfg, opts.Components)
	if err != nil {
		return err
	}

	runLog, err := openRunLog(stateDir(cfg, configDir))
	if err != nil {
		return fmt.Errorf("failed to open run log: %w", err)
	}

	mode := engine.ModeApply
	if opts.DryRun {
		mode = engine.ModeDryRun
	}

	cluster, err := connectCluster(cfg, plan, mode)
	if err != nil {
		return err
	}

	eng := newEngine(cfg, cluster, runLog)
	engineOpts := engine.Options{
		Mode:        mode,
		Rollback:    opts.Rollback && cfg.Deploy.RollbackEnabled(),
		Force:       opts.Force,
		Parallelism: parallelism(opts, cfg),
		Environment: opts.Environment,
		// Only a dry run prints manifests; an apply has nothing to
		// preview.
		ShowManifests: opts.ShowManifests && opts.DryRun,
	}

	rc := orchestration.NewContext(ctx, snapshot)

	var result *engine.Result
	if useDashboard(opts) {
		model := tui.NewDeployModel(cfg.Cluster.Name, opts.Environment, string(mode), plan.Names())
		err = runDeployTUI(model, func(observer orchestration.Observer) error {
			result = eng.Execute(rc.WithObserver(observer), plan, engineOpts)
			return nil
		})
		if err != nil {
			return err
		}
	} else {
		result = eng.Execute(rc, plan, engineOpts)
	}

	printRunSummary(result)
	return resultError(result)
}

// loadSnapshot loads and resolves the layered configuration. With an empty
// dir it walks up from the current directory looking for hearth.yaml, the
// way git finds its repository root. Returns the resolved snapshot and the
// directory the configuration was loaded from.
func loadSnapshot(configDir, environment string) (*config.Snapshot, string, error) {
	if configDir == "" {
		path, err := findConfigFile()
		if err != nil {
			return nil, "", &config.LoadError{
				Layer: "base",
				Err:   fmt.Errorf("%v; run 'hearth config init' to create one", err),
			}
		}
		configDir = filepath.Dir(path)
	}

	snapshot, err := loadConfig(configDir, environment)
	if err != nil {
		return nil, "", err
	}

	resolved, err := resolvePlaceholders(snapshot, envTable())
	if err != nil {
		return nil, "", err
	}

	return resolved, configDir, nil
}

// stateDir resolves the state directory: state.dir from the configuration,
// or .hearth next to the configuration file.
func stateDir(cfg *config.Config, configDir string) string {
	if cfg.State.Dir != "" {
		return cfg.State.Dir
	}
	return filepath.Join(configDir, ".hearth")
}

// buildPlan resolves the component set and orders the requested components
// with their transitive dependencies.
func buildPlan(cfg *config.Config, requested []string) (*graph.Plan, error) {
	specs, err := component.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	g, err := graph.Build(specs)
	if err != nil {
		return nil, err
	}

	return g.Order(requested)
}

// connectCluster connects to the configured cluster. Plans that never talk
// to the Kubernetes API, and dry runs, work without a connection; the
// engine then resolves and renders but deploys nothing.
func connectCluster(cfg *config.Config, plan *graph.Plan, mode engine.Mode) (kube.Client, error) {
	cluster, err := newCluster(cfg.Cluster.Kubeconfig, cfg.Cluster.Context)
	if err == nil {
		return cluster, nil
	}

	if mode == engine.ModeApply && planNeedsCluster(plan) {
		return nil, fmt.Errorf("failed to connect to cluster: %w", err)
	}

	log.Printf("No cluster connection (%v), continuing without one", err)
	return nil, nil
}

// planNeedsCluster reports whether any planned component deploys through
// the Kubernetes API. Command-only plans run entirely on the host.
func planNeedsCluster(plan *graph.Plan) bool {
	for _, wave := range plan.Waves() {
		for _, spec := range wave {
			if spec.Tool.Kind() != component.ToolCommand {
				return true
			}
		}
	}
	return false
}

// newEngine assembles the deployment engine with its collaborators.
func newEngine(cfg *config.Config, cluster kube.Client, runLog *runlog.Log) *engine.Engine {
	gate := privilege.NewGate(privilege.CurrentActor(cfg.Security.Rootless))

	engineOpts := []engine.Option{
		engine.WithChartSource(newChartSource()),
		engine.WithGate(gate),
		engine.WithRunLog(runLog),
	}
	if cluster != nil {
		engineOpts = append(engineOpts, engine.WithCluster(cluster))
	}

	return engine.New(engineOpts...)
}

// parallelism resolves the worker count: the flag wins, then the
// configuration, then sequential.
func parallelism(opts DeployOptions, cfg *config.Config) int {
	if opts.Parallelism > 0 {
		return opts.Parallelism
	}
	return cfg.Deploy.Parallelism
}

// useDashboard reports whether the run should render as a live dashboard.
// Dry runs print line output so the rendered plan survives in the
// scrollback.
func useDashboard(opts DeployOptions) bool {
	return !opts.Plain && !opts.DryRun && isInteractive()
}

// checkPrerequisites verifies required client tools are available.
func checkPrerequisites() error {
	log.Println("Checking prerequisites...")
	results := checkDefaultPrereqs()

	for _, r := range results.Results {
		if r.Found {
			version := r.Version
			if version == "" {
				version = "unknown version"
			}
			log.Printf("  Found %s (%s)", r.Tool.Name, version)
		}
	}

	if err := results.Error(); err != nil {
		return fmt.Errorf("prerequisites check failed: %w", err)
	}

	return nil
}

// printRunSummary outputs the per-component outcomes and the run verdict.
func printRunSummary(result *engine.Result) {
	fmt.Println()
	if result.Mode == engine.ModeDryRun {
		printHeader("Dry Run")
	} else {
		printHeader("Deployment")
	}

	for _, c := range result.Components {
		printRow(c.Name, componentOK(c.State), componentDetail(c))
	}

	fmt.Println()
	fmt.Printf("Status: %s\n", result.Status)
	if result.Err != nil {
		fmt.Printf("Error: %v\n", result.Err)
	}
}

// componentOK classifies a component state as good or bad for display.
func componentOK(state engine.ComponentState) bool {
	switch state {
	case engine.StateSuccess, engine.StatePlanned, engine.StateUpToDate:
		return true
	default:
		return false
	}
}

// componentDetail builds the per-component summary column.
func componentDetail(c engine.ComponentOutcome) string {
	detail := string(c.State)
	switch {
	case c.Err != nil:
		detail = fmt.Sprintf("%s: %v", c.State, c.Err)
	case c.Reason != "":
		detail = fmt.Sprintf("%s (%s)", c.State, c.Reason)
	}
	if c.State == engine.StateSuccess && c.Duration >= time.Second {
		detail = fmt.Sprintf("%s in %s", detail, c.Duration.Round(time.Second))
	}
	return detail
}

// resultError converts a run result into the handler's return value.
// Successful runs return nil; everything else carries the run status out
// so the exit code can reflect it.
func resultError(result *engine.Result) error {
	if result.Status == engine.StatusSucceeded {
		return nil
	}
	return &RunError{Status: result.Status, Err: result.Err}
}

// isInteractiveTTY reports whether stdout is connected to a terminal.
func isInteractiveTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
