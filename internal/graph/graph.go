// Package graph validates component dependencies and produces
// deterministic deployment plans.
package graph

import (
	"fmt"

	"github.com/hearthlab/hearth/internal/component"
)

// Graph is a validated component dependency graph. Build rejects unknown
// dependencies and cycles, so a Graph always admits a topological order.
type Graph struct {
	specs []component.Spec
	index map[string]int
	deps  map[string][]string // direct dependencies, declared order, deduplicated
}

// Build constructs the graph from components in declaration order. It
// fails with UnknownDependencyError when a component names a dependency
// that does not exist, and with CyclicDependencyError when the
// dependencies form a cycle.
func Build(specs []component.Spec) (*Graph, error) {
	g := &Graph{
		specs: specs,
		index: make(map[string]int, len(specs)),
		deps:  make(map[string][]string, len(specs)),
	}

	for i, spec := range specs {
		if _, exists := g.index[spec.Name]; exists {
			return nil, fmt.Errorf("duplicate component %q", spec.Name)
		}
		g.index[spec.Name] = i
	}

	for _, spec := range specs {
		seen := make(map[string]bool, len(spec.Dependencies))
		for _, dep := range spec.Dependencies {
			if _, known := g.index[dep]; !known {
				return nil, &UnknownDependencyError{Component: spec.Name, Dependency: dep}
			}
			if seen[dep] {
				continue
			}
			seen[dep] = true
			g.deps[spec.Name] = append(g.deps[spec.Name], dep)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, &CyclicDependencyError{Cycle: cycle}
	}

	return g, nil
}

// findCycle runs a tricolor depth-first search over declaration order and
// returns the first cycle found as a node path, or nil.
func (g *Graph) findCycle() []string {
	const (
		white = iota // unvisited
		gray         // on the current path
		black        // fully explored
	)
	color := make(map[string]int, len(g.specs))
	stack := make([]string, 0, len(g.specs))
	var cycle []string

	var visit func(name string) bool
	visit = func(name string) bool {
		color[name] = gray
		stack = append(stack, name)
		for _, dep := range g.deps[name] {
			if color[dep] == gray {
				start := 0
				for i := range stack {
					if stack[i] == dep {
						start = i
						break
					}
				}
				cycle = append([]string(nil), stack[start:]...)
				return true
			}
			if color[dep] == white && visit(dep) {
				return true
			}
		}
		color[name] = black
		stack = stack[:len(stack)-1]
		return false
	}

	for _, spec := range g.specs {
		if color[spec.Name] == white && visit(spec.Name) {
			return cycle
		}
	}
	return nil
}

// Spec returns the named component.
func (g *Graph) Spec(name string) (component.Spec, bool) {
	i, ok := g.index[name]
	if !ok {
		return component.Spec{}, false
	}
	return g.specs[i], true
}

// Names returns all component names in declaration order.
func (g *Graph) Names() []string {
	names := make([]string, len(g.specs))
	for i, spec := range g.specs {
		names[i] = spec.Name
	}
	return names
}

// Order produces the deployment plan for the requested components plus
// their transitive dependencies. An empty request means every enabled
// component. Ties between unordered components always resolve by
// declaration order, so the same request yields the same plan.
func (g *Graph) Order(requested []string) (*Plan, error) {
	needed, err := g.expand(requested)
	if err != nil {
		return nil, err
	}

	// Kahn's algorithm restricted to the needed set. The next component is
	// always the first in declaration order whose dependencies are all
	// placed, which makes the plan reproducible without a priority queue.
	placed := make(map[string]bool, len(needed))
	ordered := make([]component.Spec, 0, len(needed))

	for len(ordered) < len(needed) {
		advanced := false
		for _, spec := range g.specs {
			if !needed[spec.Name] || placed[spec.Name] {
				continue
			}
			ready := true
			for _, dep := range g.deps[spec.Name] {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				placed[spec.Name] = true
				ordered = append(ordered, spec)
				advanced = true
				break
			}
		}
		if !advanced {
			// Unreachable: Build rejected cycles.
			return nil, fmt.Errorf("no progress ordering components")
		}
	}

	deps := make(map[string][]string, len(ordered))
	for _, spec := range ordered {
		deps[spec.Name] = append([]string(nil), g.deps[spec.Name]...)
	}

	return &Plan{Components: ordered, deps: deps}, nil
}

// expand resolves the requested names to the closed set of components to
// deploy, pulling in transitive dependencies and rejecting anything
// disabled.
func (g *Graph) expand(requested []string) (map[string]bool, error) {
	needed := make(map[string]bool)

	if len(requested) == 0 {
		for _, spec := range g.specs {
			if spec.Enabled {
				needed[spec.Name] = true
			}
		}
		// Dependencies of enabled components must themselves be enabled.
		for _, spec := range g.specs {
			if !needed[spec.Name] {
				continue
			}
			for _, dep := range g.deps[spec.Name] {
				if !needed[dep] {
					return nil, &DisabledError{Name: dep, RequiredBy: spec.Name}
				}
			}
		}
		return needed, nil
	}

	var pending []string
	for _, name := range requested {
		spec, ok := g.Spec(name)
		if !ok {
			return nil, fmt.Errorf("unknown component %q", name)
		}
		if !spec.Enabled {
			return nil, &DisabledError{Name: name}
		}
		if !needed[name] {
			needed[name] = true
			pending = append(pending, name)
		}
	}

	for len(pending) > 0 {
		name := pending[0]
		pending = pending[1:]
		for _, dep := range g.deps[name] {
			depSpec, _ := g.Spec(dep)
			if !depSpec.Enabled {
				return nil, &DisabledError{Name: dep, RequiredBy: name}
			}
			if !needed[dep] {
				needed[dep] = true
				pending = append(pending, dep)
			}
		}
	}

	return needed, nil
}
