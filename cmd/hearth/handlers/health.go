package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hearthlab/hearth/internal/component"
	"github.com/hearthlab/hearth/internal/config"
	"github.com/hearthlab/hearth/internal/health"
)

// watchInterval is how often --watch refreshes the report.
const watchInterval = 5 * time.Second

// Factory function variables for health - can be replaced in tests.
var (
	// newMonitor creates the health monitor.
	newMonitor = health.NewMonitor

	// runHealthServer runs the long-lived health endpoint.
	runHealthServer = func(ctx context.Context, monitor *health.Monitor, components []component.Spec, listen string) error {
		return health.NewServer(monitor, components, health.DefaultPollInterval).Run(ctx, listen)
	}
)

// HealthError reports an unhealthy sweep. It carries the aggregate status
// so the process exit code can distinguish degraded from critical.
type HealthError struct {
	Status health.Status
}

func (e *HealthError) Error() string {
	return fmt.Sprintf("cluster health is %s", e.Status)
}

// HealthCheckOptions carries the health check command's flags.
type HealthCheckOptions struct {
	ConfigDir     string
	Environment   string
	Comprehensive bool
	Watch         bool
}

// HealthServeOptions carries the health serve command's flags.
type HealthServeOptions struct {
	ConfigDir   string
	Environment string
	Listen      string
}

// HealthCheck sweeps the enabled components and prints a per-component
// report plus the aggregate verdict.
//
// The basic sweep covers liveness; --comprehensive adds readiness probes,
// configured service endpoints, and integration checks. An unhealthy
// verdict comes back as *HealthError so the exit code can reflect it.
// With --watch the report refreshes until interrupted and the verdict
// never aborts the loop; watching an unhealthy cluster recover is the
// point.
func HealthCheck(ctx context.Context, opts HealthCheckOptions) error {
	snapshot, _, err := loadSnapshot(opts.ConfigDir, opts.Environment)
	if err != nil {
		return err
	}
	cfg := snapshot.Config()

	specs, err := component.FromConfig(cfg)
	if err != nil {
		return err
	}

	monitor := buildMonitor(cfg)

	if opts.Watch {
		return watchHealth(ctx, monitor, specs, opts.Comprehensive, cfg.Cluster.Name)
	}

	return showHealth(ctx, monitor, specs, opts.Comprehensive, cfg.Cluster.Name)
}

// HealthServe runs the long-lived health endpoint until the context is
// cancelled. The server re-checks the cluster on an interval and serves
// the latest snapshot on /healthz, /readyz, /status, and /metrics.
func HealthServe(ctx context.Context, opts HealthServeOptions) error {
	snapshot, _, err := loadSnapshot(opts.ConfigDir, opts.Environment)
	if err != nil {
		return err
	}
	cfg := snapshot.Config()

	specs, err := component.FromConfig(cfg)
	if err != nil {
		return err
	}

	monitor := buildMonitor(cfg)

	log.Printf("Serving health for cluster %s on %s", cfg.Cluster.Name, opts.Listen)
	return runHealthServer(ctx, monitor, specs, opts.Listen)
}

// buildMonitor assembles the monitor from the configuration. A missing
// cluster connection is not fatal: workload checks then read unknown
// while endpoint checks still run.
func buildMonitor(cfg *config.Config) *health.Monitor {
	monitorOpts := []health.MonitorOption{health.WithServices(cfg.Services)}

	cluster, err := newCluster(cfg.Cluster.Kubeconfig, cfg.Cluster.Context)
	if err != nil {
		log.Printf("No cluster connection (%v), workload checks will read unknown", err)
	} else {
		monitorOpts = append(monitorOpts, health.WithCluster(cluster))
	}

	return newMonitor(monitorOpts...)
}

// showHealth runs one sweep and prints the report.
func showHealth(ctx context.Context, monitor *health.Monitor, specs []component.Spec, comprehensive bool, clusterName string) error {
	records := monitor.Check(ctx, specs, comprehensive)
	printHealthReport(clusterName, records)

	verdict := health.Aggregate(records)
	if verdict == health.StatusHealthy {
		return nil
	}
	return &HealthError{Status: verdict}
}

// watchHealth re-renders the report until the context is cancelled.
func watchHealth(ctx context.Context, monitor *health.Monitor, specs []component.Spec, comprehensive bool, clusterName string) error {
	records := monitor.Check(ctx, specs, comprehensive)
	printHealthReport(clusterName, records)

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fmt.Print("\033[H\033[2J")
			records := monitor.Check(ctx, specs, comprehensive)
			printHealthReport(clusterName, records)
		}
	}
}

// printHealthReport outputs the per-component records and the verdict.
func printHealthReport(clusterName string, records []health.Record) {
	fmt.Println()
	printHeader(fmt.Sprintf("Cluster Health: %s", clusterName))

	for _, record := range records {
		detail := string(record.Status)
		if failures := record.Failures(); len(failures) > 0 {
			detail = fmt.Sprintf("%s (%s)", detail, strings.Join(failures, "; "))
		}
		printRow(record.Component, record.Status == health.StatusHealthy, detail)
	}

	fmt.Println()
	fmt.Printf("Overall: %s\n", health.Aggregate(records))
}
