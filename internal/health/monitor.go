package health

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hearthlab/hearth/internal/component"
	"github.com/hearthlab/hearth/internal/config"
	"github.com/hearthlab/hearth/internal/kube"
)

// Monitor polls cluster and service signals and classifies per-component
// health. Liveness checks (workload and pod state) run on every cycle;
// comprehensive checks add readiness probes, service endpoints, and the
// identity-proxy integration check.
type Monitor struct {
	cluster  kube.Client
	prober   *Prober
	http     *http.Client
	services map[string]config.ServiceEntry
	history  *History
	metrics  *Metrics
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithCluster connects the monitor to a cluster. Without one, workload
// checks report unknown instead of failing.
func WithCluster(cluster kube.Client) MonitorOption {
	return func(m *Monitor) {
		m.cluster = cluster
		m.prober.Cluster = cluster
	}
}

// WithServices registers the service endpoints checked in comprehensive
// mode.
func WithServices(services []config.ServiceEntry) MonitorOption {
	return func(m *Monitor) {
		for _, service := range services {
			m.services[service.Name] = service
		}
	}
}

// WithHTTPClient replaces the HTTP client used for endpoint checks.
func WithHTTPClient(client *http.Client) MonitorOption {
	return func(m *Monitor) {
		m.http = client
		m.prober.HTTP = client
	}
}

func NewMonitor(opts ...MonitorOption) *Monitor {
	m := &Monitor{
		http:     &http.Client{Timeout: 10 * time.Second},
		services: make(map[string]config.ServiceEntry),
		history:  NewHistory(),
		metrics:  NewMetrics(),
	}
	m.prober = &Prober{HTTP: m.http}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// History returns the bounded per-component record history.
func (m *Monitor) History() *History { return m.history }

// Metrics returns the monitor's metrics registry.
func (m *Monitor) Metrics() *Metrics { return m.metrics }

// Prober returns the single-attempt probe executor, shared with the
// deployment engine's readiness waits.
func (m *Monitor) Prober() *Prober { return m.prober }

// Check classifies every enabled component. A non-comprehensive check
// covers liveness only; comprehensive adds readiness probes, service
// endpoints, and integration checks.
func (m *Monitor) Check(ctx context.Context, components []component.Spec, comprehensive bool) []Record {
	records := make([]Record, 0, len(components))
	for _, spec := range components {
		if !spec.Enabled {
			continue
		}
		start := time.Now()
		record := m.checkComponent(ctx, spec, comprehensive)
		m.metrics.observe(record, time.Since(start))
		m.history.Append(record)
		records = append(records, record)
	}
	return records
}

func (m *Monitor) checkComponent(ctx context.Context, spec component.Spec, comprehensive bool) Record {
	builder := newRecord(spec.Name)
	m.liveness(ctx, spec, builder)
	if comprehensive {
		m.readiness(ctx, spec, builder)
		m.integration(ctx, spec, builder)
	}
	return builder.build()
}

// liveness verifies the component's workload exists and its pods run. A
// missing cluster connection or an API error yields unknown, not failure:
// we could not observe, which is different from observing breakage.
func (m *Monitor) liveness(ctx context.Context, spec component.Spec, builder *recordBuilder) {
	if spec.Probe.Type == component.ProbeCommand {
		// Components deployed by arbitrary commands have no workload to
		// inspect; their own probe is the liveness signal.
		result := m.prober.Run(ctx, spec)
		builder.add(result.Name, result.Pass, result.Message, StatusCritical)
		return
	}

	if m.cluster == nil {
		builder.add("cluster-connection", false, "no cluster connection", StatusUnknown)
		return
	}

	namespace := spec.Namespace
	if namespace == "" {
		namespace = "default"
	}
	target := spec.Name
	if spec.Probe.Type == component.ProbeRollout && spec.Probe.Target != "" {
		target = spec.Probe.Target
	}

	ready, message, err := m.cluster.WorkloadReady(ctx, namespace, target)
	switch {
	case err != nil:
		builder.add("workload", false, fmt.Sprintf("failed to query workload %s/%s: %v", namespace, target, err), StatusUnknown)
	case !ready:
		builder.add("workload", false, message, StatusCritical)
	default:
		builder.add("workload", true, message, StatusHealthy)
	}

	notReady, err := m.cluster.PodsNotReady(ctx, namespace)
	switch {
	case err != nil:
		builder.add("pods", false, fmt.Sprintf("failed to list pods in %s: %v", namespace, err), StatusUnknown)
	case len(notReady) > 0:
		builder.add("pods", false, strings.Join(notReady, "; "), StatusDegraded)
	default:
		builder.add("pods", true, fmt.Sprintf("all pods in %s ready", namespace), StatusHealthy)
	}
}

// readiness runs the component's own endpoint probe where it has one
// beyond the rollout state already covered by liveness.
func (m *Monitor) readiness(ctx context.Context, spec component.Spec, builder *recordBuilder) {
	switch spec.Probe.Type {
	case component.ProbeHTTP, component.ProbeTCP:
		result := m.prober.Run(ctx, spec)
		builder.add(result.Name, result.Pass, result.Message, StatusDegraded)
	}
}

// integration checks the component's registered service endpoint. For
// identity-proxied services the check asserts an unauthenticated request
// is actually turned away; a 200 here means the proxy is not guarding the
// service, which is worse than the service being down.
func (m *Monitor) integration(ctx context.Context, spec component.Spec, builder *recordBuilder) {
	service, ok := m.services[spec.Name]
	if !ok {
		return
	}
	if service.Protected {
		m.authRedirect(ctx, service, builder)
		return
	}

	url := service.URL
	if service.HealthPath != "" {
		url = strings.TrimSuffix(service.URL, "/") + service.HealthPath
	}
	resp, err := m.get(ctx, m.http, url)
	if err != nil {
		builder.add("endpoint", false, fmt.Sprintf("GET %s: %v", url, err), StatusDegraded)
		return
	}
	pass := resp.StatusCode >= 200 && resp.StatusCode < 400
	builder.add("endpoint", pass, fmt.Sprintf("GET %s returned %d", url, resp.StatusCode), StatusDegraded)
}

func (m *Monitor) authRedirect(ctx context.Context, service config.ServiceEntry, builder *recordBuilder) {
	// Redirects must not be followed: the redirect itself is the signal.
	client := *m.http
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := m.get(ctx, &client, service.URL)
	if err != nil {
		builder.add("auth-redirect", false, fmt.Sprintf("GET %s: %v", service.URL, err), StatusDegraded)
		return
	}

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		builder.add("auth-redirect", true, fmt.Sprintf("unauthenticated request redirected to %s", resp.Header.Get("Location")), StatusHealthy)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		builder.add("auth-redirect", true, fmt.Sprintf("unauthenticated request rejected with %d", resp.StatusCode), StatusHealthy)
	default:
		builder.add("auth-redirect", false,
			fmt.Sprintf("unauthenticated request to %s returned %d; the identity proxy is not guarding it", service.URL, resp.StatusCode),
			StatusCritical)
	}
}

func (m *Monitor) get(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	_ = resp.Body.Close()
	return resp, nil
}
