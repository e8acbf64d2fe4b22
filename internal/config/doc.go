// Package config loads and merges the layered hearth configuration.
//
// Configuration is assembled from up to three YAML layers in increasing
// priority: base defaults (hearth.yaml), an optional per-environment
// overlay (hearth.<env>.yaml), and an optional private overlay
// (hearth.private.yaml) for machine-local secrets. Layers deep-merge at
// the mapping level; scalars and lists from a higher layer replace lower
// ones wholesale. The result is an immutable [Snapshot] that the rest of
// the system reads for the duration of one invocation.
//
// Values may reference environment variables with ${VAR} placeholders.
// Placeholder resolution is a separate step from loading so that configs
// can be validated and displayed without secrets present; see
// [ResolvePlaceholders].
package config
