package config

import "time"

// Defaults applied by ApplyDefaults.
const (
	DefaultRenewalThreshold = 30 * 24 * time.Hour
	DefaultProbeTimeout     = 5 * time.Minute
	DefaultProbeInterval    = 10 * time.Second
	DefaultDeployRetries    = 3
	DefaultStateDir         = ".hearth"
)

// ApplyDefaults fills unset optional fields with their defaults. It is
// called after layer merging and before validation, so required-field
// checks only fire for values that have no default.
func (c *Config) ApplyDefaults() {
	if c.Security.PodSecurity == "" {
		c.Security.PodSecurity = "baseline"
	}
	if c.Network.IngressClass == "" {
		c.Network.IngressClass = "nginx"
	}
	if c.Resources.Defaults.CPU == "" {
		c.Resources.Defaults.CPU = "100m"
	}
	if c.Resources.Defaults.Memory == "" {
		c.Resources.Defaults.Memory = "128Mi"
	}
	if c.Certificates.RenewalThreshold == 0 {
		c.Certificates.RenewalThreshold = Duration(DefaultRenewalThreshold)
	}
	if c.Deploy.Retries == 0 {
		c.Deploy.Retries = DefaultDeployRetries
	}
	if c.Deploy.Parallelism == 0 {
		c.Deploy.Parallelism = 1
	}
	if c.State.Dir == "" {
		c.State.Dir = DefaultStateDir
	}

	for name, comp := range c.Components {
		if comp.Probe != nil {
			if comp.Probe.Timeout == 0 {
				comp.Probe.Timeout = Duration(DefaultProbeTimeout)
			}
			if comp.Probe.Interval == 0 {
				comp.Probe.Interval = Duration(DefaultProbeInterval)
			}
		}
		c.Components[name] = comp
	}
}
