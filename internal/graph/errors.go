package graph

import (
	"fmt"
	"strings"
)

// CyclicDependencyError reports a dependency cycle. Cycle holds every
// node on the cycle path, each exactly once.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	path := append(append([]string(nil), e.Cycle...), e.Cycle[0])
	return "dependency cycle detected: " + strings.Join(path, " -> ")
}

// UnknownDependencyError reports a component depending on a component
// that does not exist.
type UnknownDependencyError struct {
	Component  string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("component %q depends on unknown component %q", e.Component, e.Dependency)
}

// DisabledError reports a deployment that would include a component
// disabled in configuration, either requested directly or pulled in as a
// dependency.
type DisabledError struct {
	Name       string
	RequiredBy string
}

func (e *DisabledError) Error() string {
	if e.RequiredBy == "" {
		return fmt.Sprintf("component %q is disabled in configuration", e.Name)
	}
	return fmt.Sprintf("component %q requires %q, which is disabled in configuration", e.RequiredBy, e.Name)
}
