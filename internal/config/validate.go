package config

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"sort"

	"k8s.io/apimachinery/pkg/api/resource"
)

// ValidIssuerKinds contains the accepted certificate issuer kinds.
var ValidIssuerKinds = map[string]bool{
	IssuerSelfSigned:     true,
	IssuerACMEStaging:    true,
	IssuerACMEProduction: true,
	IssuerCustomCA:       true,
}

// ValidPodSecurityLevels contains the accepted pod security standard levels.
var ValidPodSecurityLevels = map[string]bool{
	"privileged": true,
	"baseline":   true,
	"restricted": true,
}

// ValidProbeTypes contains the accepted readiness probe types.
var ValidProbeTypes = map[string]bool{
	ProbeRollout: true,
	ProbeHTTP:    true,
	ProbeTCP:     true,
	ProbeCommand: true,
}

var dns1123Pattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// Validate checks the configuration against the schema and returns a
// *ValidationError listing every violation found.
func (c *Config) Validate() error {
	if findings := c.validate(); len(findings) > 0 {
		return &ValidationError{Findings: findings}
	}
	return nil
}

func (c *Config) validate() []string {
	var findings []string
	findings = append(findings, c.validateCluster()...)
	findings = append(findings, c.validateNetwork()...)
	findings = append(findings, c.validateNamespaces()...)
	findings = append(findings, c.validateResources()...)
	findings = append(findings, c.validateSecurity()...)
	findings = append(findings, c.validateServices()...)
	findings = append(findings, c.validateCertificates()...)
	findings = append(findings, c.validateComponents()...)
	findings = append(findings, c.validateDeploy()...)
	return findings
}

func (c *Config) validateCluster() []string {
	var findings []string
	if c.Cluster.Name == "" {
		findings = append(findings, "cluster.name: required")
	} else if !dns1123Pattern.MatchString(c.Cluster.Name) {
		findings = append(findings, fmt.Sprintf("cluster.name: %q must be a DNS-safe name (lowercase letters, digits, hyphens)", c.Cluster.Name))
	}
	return findings
}

func (c *Config) validateNetwork() []string {
	var findings []string
	if c.Network.Domain == "" {
		findings = append(findings, "network.domain: required")
	}
	if c.Network.AddressPool == "" {
		findings = append(findings, "network.address_pool: required")
	} else if !isPlaceholder(c.Network.AddressPool) {
		if _, _, err := net.ParseCIDR(c.Network.AddressPool); err != nil {
			findings = append(findings, fmt.Sprintf("network.address_pool: invalid CIDR %q", c.Network.AddressPool))
		}
	}
	return findings
}

func (c *Config) validateNamespaces() []string {
	var findings []string
	if len(c.Namespaces) == 0 {
		findings = append(findings, "namespaces: at least one namespace mapping is required")
		return findings
	}
	for role, ns := range c.Namespaces {
		if !dns1123Pattern.MatchString(ns) {
			findings = append(findings, fmt.Sprintf("namespaces.%s: %q is not a valid namespace name", role, ns))
		}
	}
	sort.Strings(findings)
	return findings
}

func (c *Config) validateResources() []string {
	var findings []string
	findings = append(findings, validateAllocation("resources.defaults", c.Resources.Defaults)...)
	names := make([]string, 0, len(c.Resources.Overrides))
	for name := range c.Resources.Overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		findings = append(findings, validateAllocation("resources.overrides."+name, c.Resources.Overrides[name])...)
	}
	return findings
}

func validateAllocation(key string, alloc ResourceAllocation) []string {
	var findings []string
	if alloc.CPU != "" && !isPlaceholder(alloc.CPU) {
		if _, err := resource.ParseQuantity(alloc.CPU); err != nil {
			findings = append(findings, fmt.Sprintf("%s.cpu: invalid quantity %q", key, alloc.CPU))
		}
	}
	if alloc.Memory != "" && !isPlaceholder(alloc.Memory) {
		if _, err := resource.ParseQuantity(alloc.Memory); err != nil {
			findings = append(findings, fmt.Sprintf("%s.memory: invalid quantity %q", key, alloc.Memory))
		}
	}
	return findings
}

func (c *Config) validateSecurity() []string {
	var findings []string
	if c.Security.PodSecurity != "" && !ValidPodSecurityLevels[c.Security.PodSecurity] {
		findings = append(findings, fmt.Sprintf("security.pod_security: %q must be one of %v",
			c.Security.PodSecurity, getMapKeys(ValidPodSecurityLevels)))
	}
	return findings
}

func (c *Config) validateServices() []string {
	var findings []string
	for i, svc := range c.Services {
		if svc.Name == "" {
			findings = append(findings, fmt.Sprintf("services[%d].name: required", i))
		}
		if svc.URL == "" {
			findings = append(findings, fmt.Sprintf("services[%d].url: required", i))
			continue
		}
		if isPlaceholder(svc.URL) {
			continue
		}
		parsed, err := url.Parse(svc.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			findings = append(findings, fmt.Sprintf("services[%d].url: %q is not an absolute URL", i, svc.URL))
		}
	}
	return findings
}

func (c *Config) validateCertificates() []string {
	var findings []string

	if len(c.Certificates.Issuers) == 0 {
		findings = append(findings, "certificates.issuers: at least one issuer is required")
	}

	enabled := 0
	names := make([]string, 0, len(c.Certificates.Issuers))
	for name := range c.Certificates.Issuers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		issuer := c.Certificates.Issuers[name]
		key := "certificates.issuers." + name
		if issuer.IsEnabled() {
			enabled++
		}
		if !ValidIssuerKinds[issuer.Kind] {
			findings = append(findings, fmt.Sprintf("%s.kind: %q must be one of %v", key, issuer.Kind, getMapKeys(ValidIssuerKinds)))
			continue
		}
		switch issuer.Kind {
		case IssuerACMEStaging, IssuerACMEProduction:
			if issuer.DirectoryURL == "" {
				findings = append(findings, key+".directory_url: required for ACME issuers")
			}
			if issuer.Email == "" && c.Certificates.Email == "" {
				findings = append(findings, key+".email: required for ACME issuers (or set certificates.email)")
			}
		case IssuerCustomCA:
			if issuer.CertPath == "" || issuer.KeyPath == "" {
				findings = append(findings, key+": cert_path and key_path are required for custom-ca issuers")
			}
		}
	}
	if len(c.Certificates.Issuers) > 0 && enabled == 0 {
		findings = append(findings, "certificates.issuers: at least one issuer must be enabled")
	}

	for i, req := range c.Certificates.Requests {
		key := fmt.Sprintf("certificates.requests[%d]", i)
		if len(req.Domains) == 0 {
			findings = append(findings, key+".domains: at least one domain is required")
		}
		if req.Secret == "" {
			findings = append(findings, key+".secret: required")
		}
		if req.Issuer == "" {
			findings = append(findings, key+".issuer: required")
		} else if _, ok := c.Certificates.Issuers[req.Issuer]; !ok {
			findings = append(findings, fmt.Sprintf("%s.issuer: unknown issuer %q", key, req.Issuer))
		}
		if req.Fallback != "" {
			if _, ok := c.Certificates.Issuers[req.Fallback]; !ok {
				findings = append(findings, fmt.Sprintf("%s.fallback: unknown issuer %q", key, req.Fallback))
			}
		}
	}

	return findings
}

func (c *Config) validateComponents() []string {
	var findings []string
	names := make([]string, 0, len(c.Components))
	for name := range c.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		comp := c.Components[name]
		key := "components." + name
		if comp.Retries != nil && *comp.Retries < 0 {
			findings = append(findings, key+".retries: must not be negative")
		}
		if comp.Probe != nil {
			if !ValidProbeTypes[comp.Probe.Type] {
				findings = append(findings, fmt.Sprintf("%s.probe.type: %q must be one of %v", key, comp.Probe.Type, getMapKeys(ValidProbeTypes)))
			} else if comp.Probe.Type == ProbeCommand {
				if len(comp.Probe.Command) == 0 {
					findings = append(findings, key+".probe.command: required for command probes")
				}
			} else if comp.Probe.Target == "" {
				findings = append(findings, key+".probe.target: required")
			}
		}
		if comp.Helm != nil {
			if comp.Helm.Repository == "" {
				findings = append(findings, key+".helm.repository: required")
			}
			if comp.Helm.Chart == "" {
				findings = append(findings, key+".helm.chart: required")
			}
		}
		if comp.Manifest != nil && comp.Manifest.Path == "" {
			findings = append(findings, key+".manifest.path: required")
		}
		if comp.Command != nil && len(comp.Command.Apply) == 0 {
			findings = append(findings, key+".command.apply: required")
		}
	}
	return findings
}

func (c *Config) validateDeploy() []string {
	var findings []string
	if c.Deploy.Retries < 0 {
		findings = append(findings, "deploy.retries: must not be negative")
	}
	if c.Deploy.Parallelism < 0 {
		findings = append(findings, "deploy.parallelism: must not be negative")
	}
	return findings
}

// getMapKeys returns the keys of a map as a sorted slice for error messages.
func getMapKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
