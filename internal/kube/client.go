package kube

import (
	"context"
	"fmt"
	"os"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
)

// FieldManager identifies this tool in server-side apply operations.
const FieldManager = "hearth"

// Client is the cluster surface the deployment engine and health checks use.
type Client interface {
	// ApplyManifests server-side applies a multi-document YAML stream.
	// Namespace-scoped objects that do not declare a namespace land in the
	// given one.
	ApplyManifests(ctx context.Context, namespace string, manifests []byte) error

	// DeleteManifests deletes every object in a multi-document YAML stream,
	// in reverse document order. Missing objects are not an error.
	DeleteManifests(ctx context.Context, namespace string, manifests []byte) error

	// EnsureNamespace creates the namespace if absent and reconciles the
	// given labels onto it.
	EnsureNamespace(ctx context.Context, name string, labels map[string]string) error

	// CreateSecret creates or replaces a secret.
	CreateSecret(ctx context.Context, secret *corev1.Secret) error

	// UpsertTLSSecret creates or replaces a kubernetes.io/tls secret from
	// PEM-encoded material.
	UpsertTLSSecret(ctx context.Context, namespace, name string, certPEM, keyPEM []byte) error

	// DeleteSecret removes a secret. Missing secrets are not an error.
	DeleteSecret(ctx context.Context, namespace, name string) error

	// WorkloadReady reports whether the deployment, statefulset, or
	// daemonset with the given name has rolled out completely. The message
	// describes current progress either way.
	WorkloadReady(ctx context.Context, namespace, name string) (bool, string, error)

	// PodsNotReady returns one finding per pod in the namespace that is not
	// running with all containers ready.
	PodsNotReady(ctx context.Context, namespace string) ([]string, error)

	// HasReadyEndpoints reports whether a service has at least one ready
	// endpoint address.
	HasReadyEndpoints(ctx context.Context, namespace, name string) (bool, error)
}

// client implements Client backed by a real or fake clientset.
type client struct {
	clientset     kubernetes.Interface
	dynamicClient dynamic.Interface
	mapper        meta.RESTMapper
}

// New connects to the cluster selected by the given kubeconfig path and
// context name. An empty path falls back to the ambient kubeconfig
// (KUBECONFIG or ~/.kube/config), an empty context to the current one.
func New(kubeconfigPath, contextName string) (Client, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		if _, err := os.Stat(kubeconfigPath); err != nil {
			return nil, fmt.Errorf("kubeconfig %s: %w", kubeconfigPath, err)
		}
		rules.ExplicitPath = kubeconfigPath
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: contextName}
	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	return newFromRESTConfig(restConfig)
}

// NewFromKubeconfig creates a client from raw kubeconfig bytes.
func NewFromKubeconfig(kubeconfig []byte) (Client, error) {
	restConfig, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to parse kubeconfig: %w", err)
	}
	return newFromRESTConfig(restConfig)
}

func newFromRESTConfig(restConfig *rest.Config) (Client, error) {
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	discoveryClient, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}

	groupResources, err := restmapper.GetAPIGroupResources(discoveryClient)
	if err != nil {
		return nil, fmt.Errorf("failed to discover API resources: %w", err)
	}
	mapper := restmapper.NewDiscoveryRESTMapper(groupResources)

	return &client{
		clientset:     clientset,
		dynamicClient: dynamicClient,
		mapper:        mapper,
	}, nil
}

// NewFromClients creates a client from pre-built clients, used in tests with
// fake clientsets.
func NewFromClients(clientset kubernetes.Interface, dynamicClient dynamic.Interface, mapper meta.RESTMapper) Client {
	return &client{
		clientset:     clientset,
		dynamicClient: dynamicClient,
		mapper:        mapper,
	}
}

// HasReadyEndpoints reports whether the named service has ready addresses.
func (c *client) HasReadyEndpoints(ctx context.Context, namespace, name string) (bool, error) {
	endpoints, err := c.clientset.CoreV1().Endpoints(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return false, fmt.Errorf("failed to get endpoints %s/%s: %w", namespace, name, err)
	}
	for _, subset := range endpoints.Subsets {
		if len(subset.Addresses) > 0 {
			return true, nil
		}
	}
	return false, nil
}
