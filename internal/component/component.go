// Package component defines the deployable unit model: what a component
// is, which tool deploys it, how readiness is confirmed, and how the
// built-in catalog combines with user configuration.
package component

import (
	"fmt"
	"sort"
	"time"

	"github.com/hearthlab/hearth/internal/config"
)

// ToolKind discriminates the invocation template variants.
type ToolKind string

// Tool kinds.
const (
	ToolHelm     ToolKind = "helm"
	ToolManifest ToolKind = "manifest"
	ToolCommand  ToolKind = "command"
)

// Tool is the tagged invocation template for a component. Exactly one
// variant is set.
type Tool struct {
	Helm     *HelmRelease
	Manifest *ManifestSet
	Command  *CommandTool
}

// Kind returns the set variant's kind.
func (t Tool) Kind() ToolKind {
	switch {
	case t.Helm != nil:
		return ToolHelm
	case t.Manifest != nil:
		return ToolManifest
	default:
		return ToolCommand
	}
}

// HelmRelease deploys a component as a chart release.
type HelmRelease struct {
	RepoURL string
	Chart   string
	Version string
	Release string
	Values  map[string]any
}

// ManifestSet deploys a component by applying a manifest file or directory.
type ManifestSet struct {
	Path string
}

// CommandTool deploys a component through an external command.
type CommandTool struct {
	Apply      []string
	Destroy    []string
	Privileged bool
}

// ProbeType discriminates readiness probe variants.
type ProbeType string

// Probe types.
const (
	ProbeRollout ProbeType = "rollout"
	ProbeHTTP    ProbeType = "http"
	ProbeTCP     ProbeType = "tcp"
	ProbeCommand ProbeType = "command"
)

// Probe describes how to confirm a component is actually serving, distinct
// from its deployment invocation returning.
type Probe struct {
	Type         ProbeType
	Target       string // deployment name, URL, or host:port depending on Type
	Command      []string
	ExpectStatus int
	Timeout      time.Duration
	Interval     time.Duration
}

// CommandHooks are optional lifecycle commands run around a component's
// deployment.
type CommandHooks struct {
	PreDeploy  []string
	PostDeploy []string
	OnFailure  []string
}

// Spec is one deployable unit.
type Spec struct {
	Name         string
	Dependencies []string
	Namespace    string // resource namespace the component owns
	Enabled      bool
	Tool         Tool
	Probe        Probe
	Retries      int
	Timeout      time.Duration
	Hooks        CommandHooks
}

// Privileged reports whether deploying this component needs elevated
// system access. Only command components can be privileged; helm and
// manifest deployments go through the Kubernetes API.
func (s Spec) Privileged() bool {
	return s.Tool.Command != nil && s.Tool.Command.Privileged
}

// FromConfig builds the component set by overlaying user configuration on
// the built-in catalog. Catalog components keep their declaration order;
// configuration-only components follow in name order, so the same
// configuration always yields the same sequence.
func FromConfig(cfg *config.Config) ([]Spec, error) {
	catalog := Catalog()
	specs := make([]Spec, 0, len(catalog)+len(cfg.Components))
	seen := make(map[string]bool, len(catalog))

	for _, spec := range catalog {
		spec.Retries = cfg.Deploy.Retries
		if override, ok := cfg.Components[spec.Name]; ok {
			applyOverride(&spec, override)
		}
		seen[spec.Name] = true
		specs = append(specs, spec)
	}

	extras := make([]string, 0, len(cfg.Components))
	for name := range cfg.Components {
		if !seen[name] {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)

	for _, name := range extras {
		spec, err := specFromConfig(name, cfg.Components[name], cfg.Deploy.Retries)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	return specs, nil
}

// applyOverride folds a configuration entry into a catalog spec.
func applyOverride(spec *Spec, override config.ComponentConfig) {
	if override.Enabled != nil {
		spec.Enabled = *override.Enabled
	}
	if len(override.Dependencies) > 0 {
		spec.Dependencies = append([]string(nil), override.Dependencies...)
	}
	if override.Namespace != "" {
		spec.Namespace = override.Namespace
	}
	switch {
	case override.Helm != nil:
		helm := helmFromConfig(override.Helm, spec.Name)
		if spec.Tool.Helm != nil {
			helm.Values = mergeValues(spec.Tool.Helm.Values, override.Helm.Values)
		}
		spec.Tool = Tool{Helm: helm}
	case override.Manifest != nil:
		spec.Tool = Tool{Manifest: &ManifestSet{Path: override.Manifest.Path}}
	case override.Command != nil:
		spec.Tool = Tool{Command: commandFromConfig(override.Command)}
	}
	if override.Probe != nil {
		spec.Probe = probeFromConfig(override.Probe)
	}
	if override.Retries != nil {
		spec.Retries = *override.Retries
	}
	if override.Timeout != 0 {
		spec.Timeout = override.Timeout.Std()
	}
	spec.Hooks = CommandHooks{
		PreDeploy:  override.Hooks.PreDeploy,
		PostDeploy: override.Hooks.PostDeploy,
		OnFailure:  override.Hooks.OnFailure,
	}
}

// specFromConfig builds a spec for a component that exists only in
// configuration. Such a component must carry its own tool.
func specFromConfig(name string, cc config.ComponentConfig, defaultRetries int) (Spec, error) {
	spec := Spec{
		Name:         name,
		Dependencies: append([]string(nil), cc.Dependencies...),
		Namespace:    cc.Namespace,
		Enabled:      cc.Enabled == nil || *cc.Enabled,
		Retries:      defaultRetries,
	}

	switch {
	case cc.Helm != nil:
		spec.Tool = Tool{Helm: helmFromConfig(cc.Helm, name)}
	case cc.Manifest != nil:
		spec.Tool = Tool{Manifest: &ManifestSet{Path: cc.Manifest.Path}}
	case cc.Command != nil:
		spec.Tool = Tool{Command: commandFromConfig(cc.Command)}
	default:
		return Spec{}, fmt.Errorf("component %q is not in the catalog and has no helm, manifest, or command tool configured", name)
	}

	if spec.Namespace == "" {
		spec.Namespace = "default"
	}
	if cc.Probe != nil {
		spec.Probe = probeFromConfig(cc.Probe)
	} else {
		spec.Probe = Probe{
			Type:     ProbeRollout,
			Target:   name,
			Timeout:  config.DefaultProbeTimeout,
			Interval: config.DefaultProbeInterval,
		}
	}
	if cc.Retries != nil {
		spec.Retries = *cc.Retries
	}
	if cc.Timeout != 0 {
		spec.Timeout = cc.Timeout.Std()
	}
	spec.Hooks = CommandHooks{
		PreDeploy:  cc.Hooks.PreDeploy,
		PostDeploy: cc.Hooks.PostDeploy,
		OnFailure:  cc.Hooks.OnFailure,
	}

	return spec, nil
}

func commandFromConfig(cc *config.CommandToolConfig) *CommandTool {
	return &CommandTool{
		Apply:      append([]string(nil), cc.Apply...),
		Destroy:    append([]string(nil), cc.Destroy...),
		Privileged: cc.Privileged,
	}
}

func helmFromConfig(hc *config.HelmToolConfig, componentName string) *HelmRelease {
	release := hc.Release
	if release == "" {
		release = componentName
	}
	return &HelmRelease{
		RepoURL: hc.Repository,
		Chart:   hc.Chart,
		Version: hc.Version,
		Release: release,
		Values:  hc.Values,
	}
}

func probeFromConfig(pc *config.ProbeConfig) Probe {
	probe := Probe{
		Type:         ProbeType(pc.Type),
		Target:       pc.Target,
		Command:      append([]string(nil), pc.Command...),
		ExpectStatus: pc.ExpectStatus,
		Timeout:      pc.Timeout.Std(),
		Interval:     pc.Interval.Std(),
	}
	if probe.Timeout == 0 {
		probe.Timeout = config.DefaultProbeTimeout
	}
	if probe.Interval == 0 {
		probe.Interval = config.DefaultProbeInterval
	}
	return probe
}

// mergeValues deep-merges override values onto base values, returning a
// fresh map. Nested maps merge; everything else is replaced by override.
func mergeValues(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if existing, ok := out[k]; ok {
			existingMap, existingIsMap := existing.(map[string]any)
			overrideMap, overrideIsMap := v.(map[string]any)
			if existingIsMap && overrideIsMap {
				out[k] = mergeValues(existingMap, overrideMap)
				continue
			}
		}
		out[k] = v
	}
	return out
}
