package engine

import "time"

// Mode selects whether a run mutates the cluster.
type Mode string

const (
	// ModeApply performs the deployment.
	ModeApply Mode = "apply"
	// ModeDryRun resolves, renders, and authorizes everything the run
	// would do without mutating the cluster or the host.
	ModeDryRun Mode = "dry-run"
)

// Status summarizes a whole run.
type Status string

const (
	// StatusSucceeded means every planned component ended well.
	StatusSucceeded Status = "success"
	// StatusPartialFailure means some components ended well and some did
	// not, or the run was cancelled part way through.
	StatusPartialFailure Status = "partial-failure"
	// StatusFailed means nothing was deployed.
	StatusFailed Status = "failed"
	// StatusRolledBack means a failure undid what the run had deployed.
	StatusRolledBack Status = "rolled-back"
)

// ComponentState tags one component's outcome within a run.
type ComponentState string

const (
	// StateSuccess means the component deployed and its probe passed.
	StateSuccess ComponentState = "success"
	// StatePlanned means a dry run resolved the component successfully.
	StatePlanned ComponentState = "planned"
	// StateUpToDate means the component was already deployed from an
	// identical snapshot and still passes its probe, so it was skipped.
	StateUpToDate ComponentState = "up-to-date"
	// StateSkipped means a dependency of the component was not deployed.
	StateSkipped ComponentState = "skipped"
	// StateSkippedByHook means a pre-deploy hook failed, so the component
	// was never attempted.
	StateSkippedByHook ComponentState = "skipped-by-hook"
	// StateBlocked means the privilege gate refused the component before
	// anything was mutated.
	StateBlocked ComponentState = "blocked"
	// StateFailed means deployment or readiness confirmation failed after
	// all retries.
	StateFailed ComponentState = "failed"
	// StateRolledBack means the component was undone after a failure
	// elsewhere in the run, or after its own.
	StateRolledBack ComponentState = "rolled-back"
	// StateNotAttempted means the run ended before reaching the component.
	StateNotAttempted ComponentState = "not-attempted"
)

// ComponentOutcome records what happened to one component.
type ComponentOutcome struct {
	Name     string
	State    ComponentState
	Attempts int
	Duration time.Duration
	Reason   string // explanation for skips, blocks, and dry-run summaries
	Err      error
}

// Result is the full account of one run. Components appear in plan order,
// one entry per planned component regardless of how far the run got.
type Result struct {
	Mode        Mode
	Status      Status
	Started     time.Time
	Finished    time.Time
	Fingerprint string
	Components  []ComponentOutcome
	Err         error
}

// Component returns the recorded outcome for the named component.
func (r *Result) Component(name string) (ComponentOutcome, bool) {
	for _, c := range r.Components {
		if c.Name == name {
			return c, true
		}
	}
	return ComponentOutcome{}, false
}

// deriveStatus classifies a run from its component outcomes. A rollback
// dominates; cancellation always reads as partial; otherwise the mix of
// good and bad outcomes decides.
func deriveStatus(components []ComponentOutcome, cancelled bool) Status {
	var good, bad, rolledBack, unfinished bool
	for _, c := range components {
		switch c.State {
		case StateSuccess, StatePlanned, StateUpToDate:
			good = true
		case StateFailed, StateBlocked, StateSkippedByHook:
			bad = true
		case StateRolledBack:
			rolledBack = true
		case StateSkipped, StateNotAttempted:
			unfinished = true
		}
	}

	switch {
	case rolledBack:
		return StatusRolledBack
	case cancelled:
		return StatusPartialFailure
	case !bad && !unfinished:
		return StatusSucceeded
	case bad && !good:
		return StatusFailed
	default:
		return StatusPartialFailure
	}
}
