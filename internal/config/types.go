package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the typed view of a merged configuration tree.
type Config struct {
	Cluster      ClusterConfig              `yaml:"cluster"`
	Environment  string                     `yaml:"environment,omitempty"`
	Network      NetworkConfig              `yaml:"network"`
	Namespaces   map[string]string          `yaml:"namespaces"`
	Resources    ResourcesConfig            `yaml:"resources"`
	Security     SecurityConfig             `yaml:"security"`
	Services     []ServiceEntry             `yaml:"services"`
	Certificates CertificatesConfig         `yaml:"certificates"`
	Components   map[string]ComponentConfig `yaml:"components"`
	Deploy       DeployConfig               `yaml:"deploy"`
	State        StateConfig                `yaml:"state,omitempty"`
}

// ClusterConfig identifies the target cluster.
type ClusterConfig struct {
	Name       string `yaml:"name"`
	Kubeconfig string `yaml:"kubeconfig,omitempty"` // empty means ambient kubeconfig resolution
	Context    string `yaml:"context,omitempty"`
}

// NetworkConfig holds cluster networking settings.
type NetworkConfig struct {
	Domain       string `yaml:"domain"`
	AddressPool  string `yaml:"address_pool"` // CIDR handed to the load balancer
	IngressClass string `yaml:"ingress_class,omitempty"`
}

// ResourcesConfig holds default and per-component resource allocations.
type ResourcesConfig struct {
	Defaults  ResourceAllocation            `yaml:"defaults"`
	Overrides map[string]ResourceAllocation `yaml:"overrides,omitempty"`
}

// ResourceAllocation is a CPU/memory request pair in Kubernetes quantity syntax.
type ResourceAllocation struct {
	CPU    string `yaml:"cpu"`
	Memory string `yaml:"memory"`
}

// SecurityConfig holds the cluster security policy.
type SecurityConfig struct {
	Rootless    bool   `yaml:"rootless"`
	PodSecurity string `yaml:"pod_security,omitempty"` // privileged, baseline, restricted
}

// ServiceEntry is one service discovery record used by health checks.
type ServiceEntry struct {
	Name       string `yaml:"name"`
	URL        string `yaml:"url"`
	HealthPath string `yaml:"health_path,omitempty"`
	Protected  bool   `yaml:"protected,omitempty"` // behind the identity proxy
}

// CertificatesConfig holds issuer definitions and standing certificate requests.
type CertificatesConfig struct {
	Email            string                     `yaml:"email,omitempty"`
	RenewalThreshold Duration                   `yaml:"renewal_threshold,omitempty"`
	Issuers          map[string]IssuerConfig    `yaml:"issuers"`
	Requests         []CertificateRequestConfig `yaml:"requests,omitempty"`
}

// Issuer kinds accepted in IssuerConfig.Kind.
const (
	IssuerSelfSigned     = "self-signed"
	IssuerACMEStaging    = "acme-staging"
	IssuerACMEProduction = "acme-production"
	IssuerCustomCA       = "custom-ca"
)

// IssuerConfig describes one certificate issuer.
type IssuerConfig struct {
	Kind         string `yaml:"kind"`
	Enabled      *bool  `yaml:"enabled,omitempty"` // defaults to true
	DirectoryURL string `yaml:"directory_url,omitempty"`
	Email        string `yaml:"email,omitempty"`
	CertPath     string `yaml:"cert_path,omitempty"`
	KeyPath      string `yaml:"key_path,omitempty"`
	HTTP01Listen string `yaml:"http01_listen,omitempty"` // ACME http-01 listener, default ":80"
}

// IsEnabled reports whether the issuer is enabled, defaulting to true.
func (i IssuerConfig) IsEnabled() bool {
	return i.Enabled == nil || *i.Enabled
}

// CertificateRequestConfig is a standing request for one certificate.
type CertificateRequestConfig struct {
	Domains   []string `yaml:"domains"`
	Issuer    string   `yaml:"issuer"`
	Fallback  string   `yaml:"fallback,omitempty"`
	Secret    string   `yaml:"secret"`
	Namespace string   `yaml:"namespace,omitempty"`
}

// ComponentConfig describes one deployable component, either overriding a
// catalog entry or defining a new component entirely.
type ComponentConfig struct {
	Enabled      *bool              `yaml:"enabled,omitempty"`
	Dependencies []string           `yaml:"dependencies,omitempty"`
	Namespace    string             `yaml:"namespace,omitempty"`
	Helm         *HelmToolConfig    `yaml:"helm,omitempty"`
	Manifest     *ManifestToolConfig `yaml:"manifest,omitempty"`
	Command      *CommandToolConfig `yaml:"command,omitempty"`
	Probe        *ProbeConfig       `yaml:"probe,omitempty"`
	Retries      *int               `yaml:"retries,omitempty"`
	Timeout      Duration           `yaml:"timeout,omitempty"`
	Hooks        HooksConfig        `yaml:"hooks,omitempty"`
}

// HelmToolConfig points a component at a chart release.
type HelmToolConfig struct {
	Repository string         `yaml:"repository"`
	Chart      string         `yaml:"chart"`
	Version    string         `yaml:"version,omitempty"`
	Release    string         `yaml:"release,omitempty"`
	Values     map[string]any `yaml:"values,omitempty"`
}

// ManifestToolConfig points a component at a manifest file or directory.
type ManifestToolConfig struct {
	Path string `yaml:"path"`
}

// CommandToolConfig invokes an external command for apply and teardown.
type CommandToolConfig struct {
	Apply      []string `yaml:"apply"`
	Destroy    []string `yaml:"destroy,omitempty"`
	Privileged bool     `yaml:"privileged,omitempty"` // command needs elevated system access
}

// Probe types accepted in ProbeConfig.Type.
const (
	ProbeRollout = "rollout"
	ProbeHTTP    = "http"
	ProbeTCP     = "tcp"
	ProbeCommand = "command"
)

// ProbeConfig describes how readiness of a component is confirmed.
type ProbeConfig struct {
	Type         string   `yaml:"type"`
	Target       string   `yaml:"target,omitempty"` // deployment name, URL, or host:port
	Command      []string `yaml:"command,omitempty"`
	ExpectStatus int      `yaml:"expect_status,omitempty"`
	Timeout      Duration `yaml:"timeout,omitempty"`
	Interval     Duration `yaml:"interval,omitempty"`
}

// HooksConfig holds optional lifecycle commands for a component.
type HooksConfig struct {
	PreDeploy  []string `yaml:"pre_deploy,omitempty"`
	PostDeploy []string `yaml:"post_deploy,omitempty"`
	OnFailure  []string `yaml:"on_failure,omitempty"`
}

// DeployConfig holds deployment engine policy.
type DeployConfig struct {
	Retries     int   `yaml:"retries,omitempty"`
	Rollback    *bool `yaml:"rollback,omitempty"` // defaults to true
	Parallelism int   `yaml:"parallelism,omitempty"`
}

// RollbackEnabled reports whether failed deployments roll back, defaulting to true.
func (d DeployConfig) RollbackEnabled() bool {
	return d.Rollback == nil || *d.Rollback
}

// StateConfig holds run state persistence settings.
type StateConfig struct {
	Dir    string        `yaml:"dir,omitempty"`
	Backup *BackupConfig `yaml:"backup,omitempty"`
}

// BackupConfig points state backup at an S3-compatible bucket.
type BackupConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region,omitempty"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Duration wraps time.Duration with YAML marshaling in Go duration syntax.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"5m\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
