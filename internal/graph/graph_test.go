package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthlab/hearth/internal/component"
)

func spec(name string, deps ...string) component.Spec {
	return component.Spec{Name: name, Dependencies: deps, Enabled: true, Namespace: name}
}

func homelabSpecs() []component.Spec {
	return []component.Spec{
		spec("metallb"),
		spec("cert_manager"),
		spec("ingress_nginx", "metallb"),
		spec("keycloak", "metallb", "cert_manager", "ingress_nginx"),
	}
}

func TestBuildRejectsUnknownDependency(t *testing.T) {
	_, err := Build([]component.Spec{
		spec("keycloak", "certmanager"),
	})
	require.Error(t, err)

	var unknown *UnknownDependencyError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "keycloak", unknown.Component)
	assert.Equal(t, "certmanager", unknown.Dependency)
	assert.Contains(t, err.Error(), `"keycloak"`)
	assert.Contains(t, err.Error(), `"certmanager"`)
}

func TestBuildRejectsCycle(t *testing.T) {
	_, err := Build([]component.Spec{
		spec("a", "b"),
		spec("b", "c"),
		spec("c", "a"),
	})
	require.Error(t, err)

	var cyclic *CyclicDependencyError
	require.True(t, errors.As(err, &cyclic))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, cyclic.Cycle)
	assert.Equal(t, "dependency cycle detected: a -> b -> c -> a", err.Error())
}

func TestBuildRejectsSelfCycle(t *testing.T) {
	_, err := Build([]component.Spec{spec("a", "a")})

	var cyclic *CyclicDependencyError
	require.True(t, errors.As(err, &cyclic))
	assert.Equal(t, []string{"a"}, cyclic.Cycle)
}

func TestBuildNamesInnerCycleOnly(t *testing.T) {
	// The entry point sits outside the cycle and must not be reported.
	_, err := Build([]component.Spec{
		spec("entry", "b"),
		spec("b", "c"),
		spec("c", "b"),
	})

	var cyclic *CyclicDependencyError
	require.True(t, errors.As(err, &cyclic))
	assert.ElementsMatch(t, []string{"b", "c"}, cyclic.Cycle)
}

func TestBuildRejectsDuplicateComponents(t *testing.T) {
	_, err := Build([]component.Spec{spec("a"), spec("a")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate component "a"`)
}

func TestBuildDeduplicatesDependencyEdges(t *testing.T) {
	g, err := Build([]component.Spec{
		spec("a"),
		spec("b", "a", "a"),
	})
	require.NoError(t, err)

	plan, err := g.Order(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, plan.Names())
	assert.Equal(t, []string{"a"}, plan.Dependencies("b"))
}

func TestOrderRequestingLeafPullsPrerequisites(t *testing.T) {
	g, err := Build(homelabSpecs())
	require.NoError(t, err)

	plan, err := g.Order([]string{"keycloak"})
	require.NoError(t, err)
	assert.Equal(t, []string{"metallb", "cert_manager", "ingress_nginx", "keycloak"}, plan.Names())
}

func TestOrderRestrictsToSubset(t *testing.T) {
	g, err := Build(homelabSpecs())
	require.NoError(t, err)

	plan, err := g.Order([]string{"ingress_nginx"})
	require.NoError(t, err)
	assert.Equal(t, []string{"metallb", "ingress_nginx"}, plan.Names())
}

func TestOrderIsDeterministic(t *testing.T) {
	g, err := Build(homelabSpecs())
	require.NoError(t, err)

	first, err := g.Order([]string{"keycloak", "ingress_nginx"})
	require.NoError(t, err)
	for range 10 {
		again, err := g.Order([]string{"keycloak", "ingress_nginx"})
		require.NoError(t, err)
		assert.Equal(t, first.Names(), again.Names())
	}
}

func TestOrderBreaksTiesByDeclarationOrder(t *testing.T) {
	g, err := Build([]component.Spec{
		spec("z"),
		spec("m"),
		spec("a"),
	})
	require.NoError(t, err)

	plan, err := g.Order(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "m", "a"}, plan.Names())
}

func TestOrderDefaultsToEnabledComponents(t *testing.T) {
	specs := homelabSpecs()
	disabled := spec("monitoring", "ingress_nginx")
	disabled.Enabled = false
	specs = append(specs, disabled)

	g, err := Build(specs)
	require.NoError(t, err)

	plan, err := g.Order(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"metallb", "cert_manager", "ingress_nginx", "keycloak"}, plan.Names())
}

func TestOrderRejectsUnknownRequest(t *testing.T) {
	g, err := Build(homelabSpecs())
	require.NoError(t, err)

	_, err = g.Order([]string{"wireguard"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown component "wireguard"`)
}

func TestOrderRejectsDisabledRequest(t *testing.T) {
	specs := homelabSpecs()
	specs[3].Enabled = false

	g, err := Build(specs)
	require.NoError(t, err)

	_, err = g.Order([]string{"keycloak"})
	var disabled *DisabledError
	require.True(t, errors.As(err, &disabled))
	assert.Equal(t, "keycloak", disabled.Name)
	assert.Empty(t, disabled.RequiredBy)
}

func TestOrderRejectsDisabledDependency(t *testing.T) {
	specs := homelabSpecs()
	specs[1].Enabled = false // cert_manager

	g, err := Build(specs)
	require.NoError(t, err)

	_, err = g.Order([]string{"keycloak"})
	var disabled *DisabledError
	require.True(t, errors.As(err, &disabled))
	assert.Equal(t, "cert_manager", disabled.Name)
	assert.Equal(t, "keycloak", disabled.RequiredBy)
	assert.Contains(t, err.Error(), "disabled in configuration")

	// The full-deployment default trips over the same mismatch.
	_, err = g.Order(nil)
	require.True(t, errors.As(err, &disabled))
}

func TestPlanWaves(t *testing.T) {
	g, err := Build(homelabSpecs())
	require.NoError(t, err)

	plan, err := g.Order(nil)
	require.NoError(t, err)

	waves := plan.Waves()
	require.Len(t, waves, 3)

	names := func(wave []component.Spec) []string {
		out := make([]string, len(wave))
		for i, spec := range wave {
			out[i] = spec.Name
		}
		return out
	}

	assert.Equal(t, []string{"metallb", "cert_manager"}, names(waves[0]))
	assert.Equal(t, []string{"ingress_nginx"}, names(waves[1]))
	assert.Equal(t, []string{"keycloak"}, names(waves[2]))
}

func TestGraphSpecAndNames(t *testing.T) {
	g, err := Build(homelabSpecs())
	require.NoError(t, err)

	assert.Equal(t, []string{"metallb", "cert_manager", "ingress_nginx", "keycloak"}, g.Names())

	ingress, ok := g.Spec("ingress_nginx")
	require.True(t, ok)
	assert.Equal(t, []string{"metallb"}, ingress.Dependencies)

	_, ok = g.Spec("nope")
	assert.False(t, ok)
}
