package kube

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestEnsureNamespace_CreatesWithLabels(t *testing.T) {
	client, clientset, _ := newTestClient(t)

	labels := PodSecurityLabels("baseline")
	require.NoError(t, client.EnsureNamespace(context.Background(), "infra", labels))

	ns, err := clientset.CoreV1().Namespaces().Get(context.Background(), "infra", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "baseline", ns.Labels["pod-security.kubernetes.io/enforce"])
	assert.Equal(t, "baseline", ns.Labels["pod-security.kubernetes.io/warn"])
}

func TestEnsureNamespace_ReconcilesLabels(t *testing.T) {
	client, clientset, _ := newTestClient(t)

	require.NoError(t, client.EnsureNamespace(context.Background(), "infra", map[string]string{"tier": "infra"}))

	// Another controller adds its own label in between.
	ns, err := clientset.CoreV1().Namespaces().Get(context.Background(), "infra", metav1.GetOptions{})
	require.NoError(t, err)
	ns.Labels["external"] = "kept"
	_, err = clientset.CoreV1().Namespaces().Update(context.Background(), ns, metav1.UpdateOptions{})
	require.NoError(t, err)

	require.NoError(t, client.EnsureNamespace(context.Background(), "infra", map[string]string{"tier": "platform"}))

	ns, err = clientset.CoreV1().Namespaces().Get(context.Background(), "infra", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "platform", ns.Labels["tier"])
	assert.Equal(t, "kept", ns.Labels["external"])
}

func TestEnsureNamespace_Idempotent(t *testing.T) {
	client, _, _ := newTestClient(t)
	for range 3 {
		require.NoError(t, client.EnsureNamespace(context.Background(), "infra", map[string]string{"tier": "infra"}))
	}
}

func TestPodSecurityLabels(t *testing.T) {
	assert.Nil(t, PodSecurityLabels(""))
	labels := PodSecurityLabels("restricted")
	assert.Equal(t, "restricted", labels["pod-security.kubernetes.io/enforce"])
}
