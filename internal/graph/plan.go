package graph

import "github.com/hearthlab/hearth/internal/component"

// Plan is an ordered deployment sequence. It is built once per invocation
// and read-only afterwards.
type Plan struct {
	Components []component.Spec
	deps       map[string][]string
}

// Names returns the component names in execution order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Components))
	for i, spec := range p.Components {
		names[i] = spec.Name
	}
	return names
}

// Dependencies returns the direct dependencies of a planned component.
func (p *Plan) Dependencies(name string) []string {
	return append([]string(nil), p.deps[name]...)
}

// Waves groups the plan into dependency levels: every component's
// dependencies live in strictly earlier waves, so members of one wave
// share no dependency edge and may run concurrently. Plan order is kept
// within each wave.
func (p *Plan) Waves() [][]component.Spec {
	level := make(map[string]int, len(p.Components))
	maxLevel := 0

	for _, spec := range p.Components {
		l := 0
		for _, dep := range p.deps[spec.Name] {
			if depLevel := level[dep]; depLevel+1 > l {
				l = depLevel + 1
			}
		}
		level[spec.Name] = l
		if l > maxLevel {
			maxLevel = l
		}
	}

	waves := make([][]component.Spec, maxLevel+1)
	for _, spec := range p.Components {
		l := level[spec.Name]
		waves[l] = append(waves[l], spec)
	}
	return waves
}
