package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthlab/hearth/internal/component"
	"github.com/hearthlab/hearth/internal/health"
	"github.com/hearthlab/hearth/internal/kube"
)

func TestHealthCheck_HealthyCommandComponent(t *testing.T) {
	saveAndRestoreFactories(t)

	dir := writeTestConfig(t, minimalConfigYAML+commandComponentYAML)

	newCluster = func(_, _ string) (kube.Client, error) {
		return nil, errors.New("no kubeconfig")
	}

	err := HealthCheck(context.Background(), HealthCheckOptions{ConfigDir: dir})
	require.NoError(t, err)
}

func TestHealthCheck_FailingProbeIsCritical(t *testing.T) {
	saveAndRestoreFactories(t)

	dir := writeTestConfig(t, minimalConfigYAML+`  smoke:
    command:
      apply: ["true"]
    probe:
      type: command
      command: ["false"]
`)

	newCluster = func(_, _ string) (kube.Client, error) {
		return nil, errors.New("no kubeconfig")
	}

	err := HealthCheck(context.Background(), HealthCheckOptions{ConfigDir: dir})
	require.Error(t, err)

	var healthErr *HealthError
	require.True(t, errors.As(err, &healthErr))
	assert.Equal(t, health.StatusCritical, healthErr.Status)
}

func TestHealthCheck_NoClusterReadsUnknown(t *testing.T) {
	saveAndRestoreFactories(t)

	// metallb is a chart component, so without a cluster its workload
	// state cannot be observed.
	dir := writeTestConfig(t, `
cluster:
  name: testlab
network:
  domain: lab.example.net
  address_pool: 192.168.1.240/28
namespaces:
  infra: hearth-system
certificates:
  issuers:
    self_signed:
      kind: self-signed
components:
  cert_manager: {enabled: false}
  ingress_nginx: {enabled: false}
  keycloak: {enabled: false}
  monitoring: {enabled: false}
  longhorn: {enabled: false}
  gitea: {enabled: false}
  registry: {enabled: false}
`)

	newCluster = func(_, _ string) (kube.Client, error) {
		return nil, errors.New("no kubeconfig")
	}

	err := HealthCheck(context.Background(), HealthCheckOptions{ConfigDir: dir})
	require.Error(t, err)

	var healthErr *HealthError
	require.True(t, errors.As(err, &healthErr))
	assert.Equal(t, health.StatusUnknown, healthErr.Status)
}

func TestHealthCheck_WatchStopsWithContext(t *testing.T) {
	saveAndRestoreFactories(t)

	dir := writeTestConfig(t, minimalConfigYAML+commandComponentYAML)

	newCluster = func(_, _ string) (kube.Client, error) {
		return nil, errors.New("no kubeconfig")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := HealthCheck(ctx, HealthCheckOptions{ConfigDir: dir, Watch: true})
	require.ErrorIs(t, err, context.Canceled)
}

func TestHealthServe_PassesListenAddress(t *testing.T) {
	saveAndRestoreFactories(t)

	dir := writeTestConfig(t, minimalConfigYAML+commandComponentYAML)

	newCluster = func(_, _ string) (kube.Client, error) {
		return nil, errors.New("no kubeconfig")
	}

	var gotListen string
	var gotSpecs []component.Spec
	runHealthServer = func(_ context.Context, _ *health.Monitor, specs []component.Spec, listen string) error {
		gotListen = listen
		gotSpecs = specs
		return nil
	}

	err := HealthServe(context.Background(), HealthServeOptions{ConfigDir: dir, Listen: ":9090"})
	require.NoError(t, err)
	assert.Equal(t, ":9090", gotListen)

	names := make([]string, 0, len(gotSpecs))
	for _, spec := range gotSpecs {
		names = append(names, spec.Name)
	}
	assert.Contains(t, names, "smoke")
}
