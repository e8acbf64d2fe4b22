package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthlab/hearth/internal/component"
	"github.com/hearthlab/hearth/internal/config"
	"github.com/hearthlab/hearth/internal/kube"
)

// fakeCluster stubs the two cluster calls the monitor makes.
type fakeCluster struct {
	kube.Client
	workloadReady func(ctx context.Context, namespace, name string) (bool, string, error)
	podsNotReady  func(ctx context.Context, namespace string) ([]string, error)
}

func (f *fakeCluster) WorkloadReady(ctx context.Context, namespace, name string) (bool, string, error) {
	return f.workloadReady(ctx, namespace, name)
}

func (f *fakeCluster) PodsNotReady(ctx context.Context, namespace string) ([]string, error) {
	if f.podsNotReady == nil {
		return nil, nil
	}
	return f.podsNotReady(ctx, namespace)
}

func readyCluster() *fakeCluster {
	return &fakeCluster{
		workloadReady: func(ctx context.Context, namespace, name string) (bool, string, error) {
			return true, fmt.Sprintf("deployment %s/%s: 1/1 replicas ready", namespace, name), nil
		},
	}
}

func rolloutSpec(name, namespace string) component.Spec {
	return component.Spec{
		Name:      name,
		Namespace: namespace,
		Enabled:   true,
		Probe:     component.Probe{Type: component.ProbeRollout},
	}
}

func TestMonitorCheckHealthy(t *testing.T) {
	monitor := NewMonitor(WithCluster(readyCluster()))

	records := monitor.Check(context.Background(), []component.Spec{rolloutSpec("grafana", "monitoring")}, false)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, StatusHealthy, record.Status)
	require.Len(t, record.Checks, 2)
	assert.Equal(t, "workload", record.Checks[0].Name)
	assert.Equal(t, "pods", record.Checks[1].Name)
	assert.True(t, record.Checks[0].Pass)
}

func TestMonitorWorkloadDownIsCritical(t *testing.T) {
	cluster := &fakeCluster{
		workloadReady: func(ctx context.Context, namespace, name string) (bool, string, error) {
			return false, "deployment monitoring/grafana: 0/1 replicas ready", nil
		},
	}
	monitor := NewMonitor(WithCluster(cluster))

	records := monitor.Check(context.Background(), []component.Spec{rolloutSpec("grafana", "monitoring")}, false)
	require.Len(t, records, 1)
	assert.Equal(t, StatusCritical, records[0].Status)
	assert.Contains(t, records[0].Failures()[0], "0/1 replicas ready")
}

func TestMonitorPendingPodsAreDegraded(t *testing.T) {
	cluster := readyCluster()
	cluster.podsNotReady = func(ctx context.Context, namespace string) ([]string, error) {
		return []string{"pod monitoring/grafana-7d4b9-x2 is Pending (ImagePullBackOff)"}, nil
	}
	monitor := NewMonitor(WithCluster(cluster))

	records := monitor.Check(context.Background(), []component.Spec{rolloutSpec("grafana", "monitoring")}, false)
	require.Len(t, records, 1)
	assert.Equal(t, StatusDegraded, records[0].Status)
}

func TestMonitorNoClusterIsUnknown(t *testing.T) {
	monitor := NewMonitor()

	records := monitor.Check(context.Background(), []component.Spec{rolloutSpec("grafana", "monitoring")}, false)
	require.Len(t, records, 1)
	assert.Equal(t, StatusUnknown, records[0].Status)
	assert.Equal(t, "cluster-connection", records[0].Checks[0].Name)
}

func TestMonitorAPIErrorIsUnknown(t *testing.T) {
	cluster := &fakeCluster{
		workloadReady: func(ctx context.Context, namespace, name string) (bool, string, error) {
			return false, "", errors.New("apiserver timeout")
		},
		podsNotReady: func(ctx context.Context, namespace string) ([]string, error) {
			return nil, errors.New("apiserver timeout")
		},
	}
	monitor := NewMonitor(WithCluster(cluster))

	records := monitor.Check(context.Background(), []component.Spec{rolloutSpec("grafana", "monitoring")}, false)
	require.Len(t, records, 1)
	assert.Equal(t, StatusUnknown, records[0].Status, "not observing is different from observing breakage")
}

func TestMonitorSkipsDisabledComponents(t *testing.T) {
	monitor := NewMonitor(WithCluster(readyCluster()))
	disabled := rolloutSpec("vault", "security")
	disabled.Enabled = false

	records := monitor.Check(context.Background(), []component.Spec{disabled}, false)
	assert.Empty(t, records)
}

func TestMonitorComprehensiveAddsHTTPProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	spec := rolloutSpec("gitea", "dev")
	spec.Probe = component.Probe{Type: component.ProbeHTTP, Target: server.URL}
	monitor := NewMonitor(WithCluster(readyCluster()))

	// Liveness only: the failing endpoint is not consulted.
	records := monitor.Check(context.Background(), []component.Spec{spec}, false)
	require.Len(t, records, 1)
	assert.Equal(t, StatusHealthy, records[0].Status)

	// Comprehensive: the endpoint failure degrades the component.
	records = monitor.Check(context.Background(), []component.Spec{spec}, true)
	require.Len(t, records, 1)
	assert.Equal(t, StatusDegraded, records[0].Status)
}

func TestMonitorIntegrationEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	monitor := NewMonitor(
		WithCluster(readyCluster()),
		WithServices([]config.ServiceEntry{{Name: "grafana", URL: server.URL, HealthPath: "/api/health"}}),
	)

	records := monitor.Check(context.Background(), []component.Spec{rolloutSpec("grafana", "monitoring")}, true)
	require.Len(t, records, 1)
	assert.Equal(t, StatusHealthy, records[0].Status)

	var endpoint *CheckResult
	for i := range records[0].Checks {
		if records[0].Checks[i].Name == "endpoint" {
			endpoint = &records[0].Checks[i]
		}
	}
	require.NotNil(t, endpoint, "comprehensive checks include the registered service endpoint")
	assert.True(t, endpoint.Pass)
}

func TestMonitorAuthRedirect(t *testing.T) {
	protected := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://auth.lab.example.com/login", http.StatusFound)
	}))
	defer protected.Close()

	monitor := NewMonitor(
		WithCluster(readyCluster()),
		WithServices([]config.ServiceEntry{{Name: "gitea", URL: protected.URL, Protected: true}}),
	)

	records := monitor.Check(context.Background(), []component.Spec{rolloutSpec("gitea", "dev")}, true)
	require.Len(t, records, 1)
	assert.Equal(t, StatusHealthy, records[0].Status)

	found := false
	for _, check := range records[0].Checks {
		if check.Name == "auth-redirect" {
			found = true
			assert.True(t, check.Pass)
			assert.Contains(t, check.Message, "auth.lab.example.com")
		}
	}
	assert.True(t, found)
}

func TestMonitorUnguardedServiceIsCritical(t *testing.T) {
	exposed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer exposed.Close()

	monitor := NewMonitor(
		WithCluster(readyCluster()),
		WithServices([]config.ServiceEntry{{Name: "gitea", URL: exposed.URL, Protected: true}}),
	)

	records := monitor.Check(context.Background(), []component.Spec{rolloutSpec("gitea", "dev")}, true)
	require.Len(t, records, 1)
	assert.Equal(t, StatusCritical, records[0].Status,
		"a protected service answering anonymous requests outranks a service being down")
	assert.Contains(t, records[0].Failures()[0], "not guarding")
}

func TestMonitorCommandLiveness(t *testing.T) {
	spec := component.Spec{
		Name:    "offsite-sync",
		Enabled: true,
		Probe:   component.Probe{Type: component.ProbeCommand, Command: []string{"true"}},
	}
	monitor := NewMonitor()

	records := monitor.Check(context.Background(), []component.Spec{spec}, false)
	require.Len(t, records, 1)
	assert.Equal(t, StatusHealthy, records[0].Status)

	spec.Probe.Command = []string{"false"}
	records = monitor.Check(context.Background(), []component.Spec{spec}, false)
	require.Len(t, records, 1)
	assert.Equal(t, StatusCritical, records[0].Status)
}

func TestMonitorRecordsHistoryAndMetrics(t *testing.T) {
	monitor := NewMonitor(WithCluster(readyCluster()))
	spec := rolloutSpec("grafana", "monitoring")

	monitor.Check(context.Background(), []component.Spec{spec}, false)
	monitor.Check(context.Background(), []component.Spec{spec}, false)

	assert.Len(t, monitor.History().For("grafana"), 2)

	gauge := monitor.Metrics().status.WithLabelValues("grafana")
	assert.Equal(t, float64(severity[StatusHealthy]), testutil.ToFloat64(gauge))

	counter := monitor.Metrics().checks.WithLabelValues("grafana", string(StatusHealthy))
	assert.Equal(t, float64(2), testutil.ToFloat64(counter))
}
