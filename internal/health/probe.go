package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/hearthlab/hearth/internal/component"
	"github.com/hearthlab/hearth/internal/invoke"
	"github.com/hearthlab/hearth/internal/kube"
)

// probeAttemptTimeout bounds one command probe attempt. The overall probe
// timeout budgets the whole readiness wait, not a single attempt.
const probeAttemptTimeout = 30 * time.Second

// Prober executes a single readiness probe attempt for a component. The
// deployment engine polls it until the probe's deadline; the monitor runs
// it once per check cycle.
type Prober struct {
	Cluster kube.Client
	Runner  *invoke.Runner
	HTTP    *http.Client
}

// Run executes one attempt of the component's probe.
func (p *Prober) Run(ctx context.Context, spec component.Spec) CheckResult {
	switch spec.Probe.Type {
	case component.ProbeRollout, "":
		return p.rollout(ctx, spec)
	case component.ProbeHTTP:
		return p.httpProbe(ctx, spec.Probe)
	case component.ProbeTCP:
		return p.tcpProbe(ctx, spec.Probe)
	case component.ProbeCommand:
		return p.commandProbe(ctx, spec.Probe)
	default:
		return CheckResult{Name: "probe", Pass: false, Message: fmt.Sprintf("unknown probe type %q", spec.Probe.Type)}
	}
}

func (p *Prober) rollout(ctx context.Context, spec component.Spec) CheckResult {
	if p.Cluster == nil {
		return CheckResult{Name: "rollout", Pass: false, Message: "no cluster connection"}
	}
	namespace := spec.Namespace
	if namespace == "" {
		namespace = "default"
	}
	target := spec.Probe.Target
	if target == "" {
		target = spec.Name
	}
	ready, message, err := p.Cluster.WorkloadReady(ctx, namespace, target)
	if err != nil {
		return CheckResult{Name: "rollout", Pass: false, Message: fmt.Sprintf("failed to query workload %s/%s: %v", namespace, target, err)}
	}
	return CheckResult{Name: "rollout", Pass: ready, Message: message}
}

func (p *Prober) httpProbe(ctx context.Context, probe component.Probe) CheckResult {
	client := p.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probe.Target, nil)
	if err != nil {
		return CheckResult{Name: "http", Pass: false, Message: fmt.Sprintf("invalid probe URL %s: %v", probe.Target, err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return CheckResult{Name: "http", Pass: false, Message: fmt.Sprintf("GET %s: %v", probe.Target, err)}
	}
	_ = resp.Body.Close()

	pass := resp.StatusCode < 400
	if probe.ExpectStatus != 0 {
		pass = resp.StatusCode == probe.ExpectStatus
	}
	return CheckResult{Name: "http", Pass: pass, Message: fmt.Sprintf("GET %s returned %d", probe.Target, resp.StatusCode)}
}

func (p *Prober) tcpProbe(ctx context.Context, probe component.Probe) CheckResult {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", probe.Target)
	if err != nil {
		return CheckResult{Name: "tcp", Pass: false, Message: fmt.Sprintf("dial %s: %v", probe.Target, err)}
	}
	_ = conn.Close()
	return CheckResult{Name: "tcp", Pass: true, Message: fmt.Sprintf("%s accepts connections", probe.Target)}
}

func (p *Prober) commandProbe(ctx context.Context, probe component.Probe) CheckResult {
	if len(probe.Command) == 0 {
		return CheckResult{Name: "command", Pass: false, Message: "command probe has no command"}
	}
	runner := p.Runner
	if runner == nil {
		runner = &invoke.Runner{}
	}
	result := runner.Run(ctx, probeAttemptTimeout, probe.Command...)
	return CheckResult{Name: "command", Pass: result.Succeeded(), Message: result.Summary()}
}
