// Package benchmarks provides timing estimates for component deployments.
package benchmarks

import "time"

// DefaultTimings are median deploy durations for the built-in components
// (seconds), measured from chart apply to rollout complete on a three-node
// homelab cluster.
var DefaultTimings = map[string]int{
	"metallb":       20,
	"cert_manager":  45,
	"ingress_nginx": 30,
	"keycloak":      120,
	"monitoring":    180,
	"longhorn":      150,
	"gitea":         45,
	"registry":      20,
}

// fallbackSeconds covers components without a benchmark entry, such as
// configuration-defined extras.
const fallbackSeconds = 60

// Sample is one observed component deployment.
type Sample struct {
	Component string
	Duration  time.Duration
}

// ExpectedDuration returns the benchmark duration for a component.
func ExpectedDuration(component string) (time.Duration, bool) {
	secs, ok := DefaultTimings[component]
	if !ok {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func expectedDuration(component string) time.Duration {
	if d, ok := ExpectedDuration(component); ok {
		return d
	}
	return fallbackSeconds * time.Second
}

// PerformanceScale derives a speed multiplier from observed-vs-expected
// durations. Example: expected 60s, observed 90s => scale=1.5 (future
// estimates are stretched by 50%). Overrunning active components fold in
// immediately so the ETA adapts before they finish.
func PerformanceScale(active map[string]time.Duration, completed []Sample) float64 {
	var expectedTotal time.Duration
	var actualTotal time.Duration

	for _, sample := range completed {
		expectedTotal += expectedDuration(sample.Component)
		actualTotal += sample.Duration
	}
	for component, elapsed := range active {
		expected := expectedDuration(component)
		if elapsed > expected {
			expectedTotal += expected
			actualTotal += elapsed
		}
	}

	if expectedTotal == 0 || actualTotal == 0 {
		return 1.0
	}

	scale := float64(actualTotal) / float64(expectedTotal)
	if scale < 0.6 {
		return 0.6
	}
	if scale > 3.0 {
		return 3.0
	}
	return scale
}

// EstimateRemaining calculates the estimated time remaining for a run:
// the unspent budget of every active component plus the scaled expectation
// of every pending one.
func EstimateRemaining(active map[string]time.Duration, pending []string, completed []Sample) time.Duration {
	scale := PerformanceScale(active, completed)
	var remaining time.Duration

	for component, elapsed := range active {
		budget := time.Duration(float64(expectedDuration(component)) * scale)
		if budget > elapsed {
			remaining += budget - elapsed
		}
	}
	for _, component := range pending {
		remaining += time.Duration(float64(expectedDuration(component)) * scale)
	}

	return remaining
}

// TotalEstimate returns the estimated duration of deploying the given
// components sequentially.
func TotalEstimate(components []string) time.Duration {
	var total time.Duration
	for _, component := range components {
		total += expectedDuration(component)
	}
	return total
}
