package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hearthlab/hearth/internal/config"
	"github.com/hearthlab/hearth/internal/privilege"
	"github.com/hearthlab/hearth/internal/util/prerequisites"
)

// clusterCheckTimeout bounds the doctor's cluster reachability probe.
const clusterCheckTimeout = 10 * time.Second

// Factory function variables for doctor - can be replaced in tests.
var (
	// checkAllPrereqs checks required and optional tools.
	checkAllPrereqs = prerequisites.CheckAll

	// currentActor inspects the running process identity.
	currentActor = privilege.CurrentActor
)

// DoctorOptions carries the doctor command's flags.
type DoctorOptions struct {
	ConfigDir   string
	Environment string
	JSON        bool
}

// DoctorStatus represents the full diagnostic report for JSON output.
type DoctorStatus struct {
	Tools     []ToolStatus    `json:"tools"`
	Config    ConfigStatus    `json:"config"`
	Privilege PrivilegeStatus `json:"privilege"`
	Cluster   ClusterStatus   `json:"cluster"`
	State     StateStatus     `json:"state"`
	Healthy   bool            `json:"healthy"`
}

// ToolStatus represents one client tool check.
type ToolStatus struct {
	Name     string `json:"name"`
	Found    bool   `json:"found"`
	Version  string `json:"version,omitempty"`
	Required bool   `json:"required"`
}

// ConfigStatus represents configuration discovery and validity.
type ConfigStatus struct {
	Found  bool     `json:"found"`
	Dir    string   `json:"dir,omitempty"`
	Layers []string `json:"layers,omitempty"`
	Valid  bool     `json:"valid"`
	Error  string   `json:"error,omitempty"`
}

// PrivilegeStatus represents the process identity and what it may do.
type PrivilegeStatus struct {
	EUID             int    `json:"euid"`
	Rootless         bool   `json:"rootless"`
	Elevated         bool   `json:"elevated"`
	ClusterBootstrap string `json:"clusterBootstrap"`
	PackageInstall   string `json:"packageInstall"`
}

// ClusterStatus represents cluster reachability.
type ClusterStatus struct {
	Reachable    bool     `json:"reachable"`
	Error        string   `json:"error,omitempty"`
	PodsNotReady []string `json:"podsNotReady,omitempty"`
}

// StateStatus represents the state directory and last recorded run.
type StateStatus struct {
	Dir           string `json:"dir,omitempty"`
	Exists        bool   `json:"exists"`
	LastRun       string `json:"lastRun,omitempty"`
	LastRunStatus string `json:"lastRunStatus,omitempty"`
}

// Doctor diagnoses the local setup and cluster connectivity.
//
// Every check runs even when earlier ones fail, so one report shows the
// full picture: client tools, configuration discovery and validity,
// privilege posture, cluster reachability, and the state directory.
// Missing required tools or an invalid configuration make the report
// unhealthy; an unreachable cluster does not, since doctor is most useful
// before anything is running.
func Doctor(ctx context.Context, opts DoctorOptions) error {
	status := &DoctorStatus{Healthy: true}

	collectTools(status)
	snapshot, configDir := collectConfig(status, opts)
	collectPrivilege(status, snapshot)
	collectCluster(ctx, status, snapshot)
	collectState(status, snapshot, configDir)

	if opts.JSON {
		if err := printDoctorJSON(status); err != nil {
			return err
		}
	} else {
		printDoctorFormatted(status)
	}

	if !status.Healthy {
		return fmt.Errorf("doctor found problems; fix the failed checks and re-run")
	}
	return nil
}

// collectTools checks required and optional client tools.
func collectTools(status *DoctorStatus) {
	results := checkAllPrereqs()
	for _, r := range results.Results {
		status.Tools = append(status.Tools, ToolStatus{
			Name:     r.Tool.Name,
			Found:    r.Found,
			Version:  r.Version,
			Required: r.Tool.Required,
		})
		if !r.Found && r.Tool.Required {
			status.Healthy = false
		}
	}
}

// collectConfig discovers and validates the configuration. Returns the
// resolved snapshot for the later checks, or nil when unavailable.
func collectConfig(status *DoctorStatus, opts DoctorOptions) (*config.Snapshot, string) {
	snapshot, configDir, err := loadSnapshot(opts.ConfigDir, opts.Environment)
	if err != nil {
		status.Config = ConfigStatus{Error: err.Error()}
		status.Healthy = false
		return nil, configDir
	}

	status.Config = ConfigStatus{
		Found:  true,
		Dir:    configDir,
		Layers: snapshot.Layers(),
		Valid:  true,
	}
	return snapshot, configDir
}

// collectPrivilege records the process identity and the gate's verdicts
// for the privileged operations a deploy might need.
func collectPrivilege(status *DoctorStatus, snapshot *config.Snapshot) {
	rootless := false
	if snapshot != nil {
		rootless = snapshot.Config().Security.Rootless
	}

	actor := currentActor(rootless)
	status.Privilege = PrivilegeStatus{
		EUID:             actor.EUID,
		Rootless:         actor.Rootless,
		Elevated:         actor.Elevated(),
		ClusterBootstrap: decisionWord(privilege.Authorize(privilege.ClusterBootstrap, actor)),
		PackageInstall:   decisionWord(privilege.Authorize(privilege.SystemPackageInstall, actor)),
	}
}

// collectCluster probes the cluster through the configured kubeconfig.
// Unreachable is reported, not failed: doctor runs before bootstrap too.
func collectCluster(ctx context.Context, status *DoctorStatus, snapshot *config.Snapshot) {
	if snapshot == nil {
		status.Cluster = ClusterStatus{Error: "no configuration loaded"}
		return
	}
	cfg := snapshot.Config()

	cluster, err := newCluster(cfg.Cluster.Kubeconfig, cfg.Cluster.Context)
	if err != nil {
		status.Cluster = ClusterStatus{Error: err.Error()}
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, clusterCheckTimeout)
	defer cancel()

	notReady, err := cluster.PodsNotReady(probeCtx, "kube-system")
	if err != nil {
		status.Cluster = ClusterStatus{Error: err.Error()}
		return
	}

	status.Cluster = ClusterStatus{Reachable: true, PodsNotReady: notReady}
}

// collectState inspects the state directory and the last recorded run.
func collectState(status *DoctorStatus, snapshot *config.Snapshot, configDir string) {
	if snapshot == nil || configDir == "" {
		return
	}

	dir := stateDir(snapshot.Config(), configDir)
	status.State.Dir = dir

	if _, err := os.Stat(dir); err != nil {
		return
	}
	status.State.Exists = true

	runLog, err := openRunLog(dir)
	if err != nil {
		return
	}
	entries, err := runLog.Last(1)
	if err != nil || len(entries) == 0 {
		return
	}
	status.State.LastRun = entries[0].Time.Format(time.RFC3339)
	status.State.LastRunStatus = entries[0].Status
}

// decisionWord renders an authorization decision for display.
func decisionWord(d privilege.Decision) string {
	if d.Allowed {
		return "allowed"
	}
	return "denied"
}

// printDoctorJSON outputs the report as JSON.
func printDoctorJSON(status *DoctorStatus) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal doctor status: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// printDoctorFormatted outputs the report for humans.
func printDoctorFormatted(status *DoctorStatus) {
	fmt.Println()
	printHeader("hearth doctor")

	fmt.Println("Tools:")
	for _, tool := range status.Tools {
		extra := tool.Version
		if !tool.Found {
			extra = "not found"
			if !tool.Required {
				extra = "not found (optional)"
			}
		}
		fmt.Printf("  %s  %-20s %s\n", toolIndicator(tool.Found, tool.Required), tool.Name, extra)
	}
	fmt.Println()

	fmt.Println("Configuration:")
	if status.Config.Valid {
		printRow("hearth.yaml", true, fmt.Sprintf("%s (%s)", status.Config.Dir, strings.Join(layerNames(status.Config.Layers), ", ")))
	} else {
		printRow("hearth.yaml", false, status.Config.Error)
	}
	fmt.Println()

	fmt.Println("Privilege:")
	printRow(fmt.Sprintf("euid %d", status.Privilege.EUID), true, privilegeSummary(status.Privilege))
	printRow("cluster bootstrap", status.Privilege.ClusterBootstrap == "allowed", status.Privilege.ClusterBootstrap)
	printRow("package install", status.Privilege.PackageInstall == "allowed", status.Privilege.PackageInstall)
	fmt.Println()

	fmt.Println("Cluster:")
	switch {
	case status.Cluster.Reachable && len(status.Cluster.PodsNotReady) > 0:
		printRow("connection", true, fmt.Sprintf("reachable, pods not ready: %s", strings.Join(status.Cluster.PodsNotReady, ", ")))
	case status.Cluster.Reachable:
		printRow("connection", true, "reachable, kube-system pods ready")
	default:
		fmt.Printf("  ⚪  %-20s %s\n", "connection", status.Cluster.Error)
	}
	fmt.Println()

	fmt.Println("State:")
	switch {
	case status.State.LastRun != "":
		printRow(status.State.Dir, true, fmt.Sprintf("last run %s (%s)", status.State.LastRun, status.State.LastRunStatus))
	case status.State.Exists:
		printRow(status.State.Dir, true, "no runs recorded")
	case status.State.Dir != "":
		fmt.Printf("  ⚪  %-20s %s\n", status.State.Dir, "not created yet (first deploy creates it)")
	default:
		fmt.Printf("  ⚪  %s\n", "unknown until a configuration loads")
	}
	fmt.Println()

	if status.Healthy {
		fmt.Println("Status: OK")
	} else {
		fmt.Println("Status: problems found")
	}
}

// toolIndicator picks the marker for a tool row. Missing optional tools
// rate a hollow circle, not a failure cross.
func toolIndicator(found, required bool) string {
	switch {
	case found:
		return "✅" // green check
	case required:
		return "❌" // red X
	default:
		return "⚪" // white circle
	}
}

// layerNames reduces layer paths to their file names for one-line display.
func layerNames(layers []string) []string {
	names := make([]string, len(layers))
	for i, layer := range layers {
		parts := strings.Split(layer, "/")
		names[i] = parts[len(parts)-1]
	}
	return names
}

// privilegeSummary renders the identity line.
func privilegeSummary(p PrivilegeStatus) string {
	switch {
	case p.Rootless:
		return "rootless"
	case p.Elevated:
		return "elevated"
	default:
		return "unprivileged"
	}
}
