package config

import (
	"fmt"
	"strings"
)

// LoadError reports a configuration layer that could not be read or parsed.
type LoadError struct {
	Layer string
	Path  string
	Err   error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to load config layer %s (%s): %v", e.Layer, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to load config layer %s: %v", e.Layer, e.Err)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// ValidationError reports every schema violation found in a merged
// configuration, not just the first.
type ValidationError struct {
	Findings []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed: %s", strings.Join(e.Findings, "; "))
}

// UnresolvedPlaceholderError names every ${VAR} placeholder that could not
// be resolved from the environment table, so all missing variables surface
// in one pass.
type UnresolvedPlaceholderError struct {
	Variables []string
}

// Error implements the error interface.
func (e *UnresolvedPlaceholderError) Error() string {
	return fmt.Sprintf("unresolved configuration placeholders: ${%s} (set the missing environment variables and retry)",
		strings.Join(e.Variables, "}, ${"))
}
