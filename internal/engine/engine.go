// Package engine executes deployment plans against a cluster. Components
// deploy in dependency order through their configured tool and count as
// deployed only once their readiness probe passes. Transient failures
// retry with backoff; when a component fails for good, the engine can
// undo everything the run deployed.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"helm.sh/helm/v3/pkg/chart"

	"github.com/hearthlab/hearth/internal/component"
	"github.com/hearthlab/hearth/internal/config"
	"github.com/hearthlab/hearth/internal/graph"
	"github.com/hearthlab/hearth/internal/health"
	"github.com/hearthlab/hearth/internal/helm"
	"github.com/hearthlab/hearth/internal/invoke"
	"github.com/hearthlab/hearth/internal/kube"
	"github.com/hearthlab/hearth/internal/orchestration"
	"github.com/hearthlab/hearth/internal/privilege"
	"github.com/hearthlab/hearth/internal/runlog"
	"github.com/hearthlab/hearth/internal/util/retry"
)

// ChartSource resolves chart references to loaded charts. *helm.Fetcher
// satisfies it.
type ChartSource interface {
	Fetch(ctx context.Context, ref helm.ChartRef) (*chart.Chart, error)
}

// Engine deploys component plans. Collaborators it was not given disable
// their feature: without a run log there is no idempotence skip, without
// a cluster client every helm and manifest component fails.
type Engine struct {
	cluster kube.Client
	charts  ChartSource
	runner  *invoke.Runner
	prober  *health.Prober
	gate    *privilege.Gate
	log     *runlog.Log
}

// Option configures an Engine.
type Option func(*Engine)

// WithCluster sets the cluster client used for helm and manifest
// components and for rollout probes.
func WithCluster(cluster kube.Client) Option {
	return func(e *Engine) { e.cluster = cluster }
}

// WithChartSource sets the chart resolver for helm components.
func WithChartSource(charts ChartSource) Option {
	return func(e *Engine) { e.charts = charts }
}

// WithRunner sets the external command runner for command components and
// lifecycle hooks.
func WithRunner(runner *invoke.Runner) Option {
	return func(e *Engine) { e.runner = runner }
}

// WithProber sets the readiness prober.
func WithProber(prober *health.Prober) Option {
	return func(e *Engine) { e.prober = prober }
}

// WithGate sets the privilege gate consulted before each component.
func WithGate(gate *privilege.Gate) Option {
	return func(e *Engine) { e.gate = gate }
}

// WithRunLog sets the run log used for recording runs and for the
// idempotence skip.
func WithRunLog(log *runlog.Log) Option {
	return func(e *Engine) { e.log = log }
}

// New builds an engine. The default gate decides for the current process
// identity; the default prober shares the engine's cluster and runner.
func New(opts ...Option) *Engine {
	e := &Engine{runner: &invoke.Runner{}}
	for _, opt := range opts {
		opt(e)
	}
	if e.runner == nil {
		e.runner = &invoke.Runner{}
	}
	if e.prober == nil {
		e.prober = &health.Prober{Cluster: e.cluster, Runner: e.runner}
	}
	if e.gate == nil {
		e.gate = privilege.NewGate(privilege.CurrentActor(false))
	}
	return e
}

// Options select how one run executes.
type Options struct {
	// Mode defaults to ModeApply.
	Mode Mode
	// Rollback undoes everything the run deployed when a component fails.
	Rollback bool
	// Force deploys components even when the run log says they are
	// up to date.
	Force bool
	// Parallelism above one deploys independent components concurrently.
	Parallelism int
	// Environment is recorded with the run.
	Environment string
	// ShowManifests prints every rendered manifest during a dry run,
	// re-encoded canonically so repeat runs diff cleanly.
	ShowManifests bool
}

// Execute runs the plan and returns a full account of it. Component
// failures never abort Execute; they are reported through the Result,
// with Result.Err joining every component error.
func (e *Engine) Execute(rc *orchestration.Context, plan *graph.Plan, opts Options) *Result {
	if plan == nil {
		plan = &graph.Plan{}
	}
	if opts.Mode == "" {
		opts.Mode = ModeApply
	}

	result := &Result{
		Mode:        opts.Mode,
		Started:     time.Now(),
		Fingerprint: rc.Snapshot.Fingerprint(),
	}

	r := &run{
		engine:      e,
		rc:          rc,
		opts:        opts,
		phase:       "deploy",
		total:       len(plan.Components),
		fingerprint: result.Fingerprint,
		outcomes:    make(map[string]*ComponentOutcome, len(plan.Components)),
		ok:          make(map[string]bool, len(plan.Components)),
		manifests:   make(map[string][]byte),
	}
	if opts.Mode == ModeDryRun {
		r.phase = "dry-run"
	}

	rc.Observer.Event(orchestration.Event{
		Type:    orchestration.EventRunStarted,
		Phase:   r.phase,
		Message: fmt.Sprintf("run %s: %d components", rc.RunID, len(plan.Components)),
	})

	if opts.Parallelism > 1 {
		r.executeWaves(plan)
	} else {
		r.executeSequential(plan)
	}

	r.finish(plan, result)
	return result
}

// run is the mutable state of one Execute call.
type run struct {
	engine      *Engine
	rc          *orchestration.Context
	opts        Options
	phase       string
	total       int
	fingerprint string

	mu        sync.Mutex
	outcomes  map[string]*ComponentOutcome
	ok        map[string]bool   // satisfied dependencies
	deployed  []string          // applied this run, in completion order
	manifests map[string][]byte // rendered manifests kept for rollback
}

func (r *run) executeSequential(plan *graph.Plan) {
	for _, spec := range plan.Components {
		if r.rc.Err() != nil {
			r.markRemaining(plan, "run cancelled")
			return
		}

		outcome := r.deployOne(spec)
		r.record(outcome)

		if outcome.State != StateFailed {
			continue
		}
		if r.rc.Err() != nil {
			// The failure came from cancellation; completed components stay.
			r.markRemaining(plan, "run cancelled")
			return
		}
		if r.rollbackEnabled() {
			r.rollBack(plan, []*ComponentOutcome{outcome})
			r.markRemaining(plan, "aborted after rollback")
			return
		}
		// Without rollback the run continues: independent components still
		// deploy, dependents of the failure are skipped by the gate below.
	}
}

// executeWaves deploys dependency levels concurrently. Within a wave,
// components sharing a target namespace never run in the same batch, so
// two releases cannot race on one namespace's objects.
func (r *run) executeWaves(plan *graph.Plan) {
	for _, wave := range plan.Waves() {
		if r.rc.Err() != nil {
			r.markRemaining(plan, "run cancelled")
			return
		}

		for _, batch := range splitByNamespace(wave) {
			tasks := make([]orchestration.Task, len(batch))
			for i, spec := range batch {
				tasks[i] = orchestration.Task{
					Name: spec.Name,
					Func: func(context.Context) error {
						outcome := r.deployOne(spec)
						r.record(outcome)
						return outcome.Err
					},
				}
			}
			orchestration.RunLimited(r.rc, tasks, r.opts.Parallelism)
		}

		failures := r.failuresIn(wave)
		if len(failures) == 0 {
			continue
		}
		if r.rc.Err() != nil {
			r.markRemaining(plan, "run cancelled")
			return
		}
		if r.rollbackEnabled() {
			r.rollBack(plan, failures)
			r.markRemaining(plan, "aborted after rollback")
			return
		}
	}
}

// deployOne takes a component through gates, hooks, deployment, and
// readiness. It returns the outcome and never panics the run.
func (r *run) deployOne(spec component.Spec) *ComponentOutcome {
	outcome := &ComponentOutcome{Name: spec.Name}
	start := time.Now()
	defer func() { outcome.Duration = time.Since(start) }()

	if missing := r.missingDependency(spec); missing != "" {
		outcome.State = StateSkipped
		outcome.Reason = fmt.Sprintf("dependency %s was not deployed", missing)
		orchestration.LogComponentSkipped(r.rc.Observer, r.phase, spec.Name, outcome.Reason)
		return outcome
	}

	// The gate runs in dry-run mode too, so a dry run predicts the refusal
	// instead of promising an apply that would be denied.
	if err := r.engine.gate.Check(privilege.ComponentDeploy(spec.Name, spec.Privileged())); err != nil {
		outcome.State = StateBlocked
		outcome.Err = err
		var denied *privilege.DeniedError
		if errors.As(err, &denied) {
			outcome.Reason = denied.Reason
		}
		orchestration.LogComponentBlocked(r.rc.Observer, r.phase, spec.Name, outcome.Reason)
		return outcome
	}

	if r.opts.Mode == ModeDryRun {
		return r.planOne(spec, outcome)
	}

	if reason, ok := r.upToDate(spec); ok {
		outcome.State = StateUpToDate
		outcome.Reason = reason
		r.markOK(spec.Name)
		orchestration.LogComponentSkipped(r.rc.Observer, r.phase, spec.Name, reason)
		return outcome
	}

	orchestration.LogComponentStart(r.rc.Observer, r.phase, spec.Name)

	if err := r.runHooks(spec, spec.Hooks.PreDeploy, "pre-deploy"); err != nil {
		outcome.State = StateSkippedByHook
		outcome.Reason = "pre-deploy hook failed"
		outcome.Err = err
		orchestration.LogComponentSkipped(r.rc.Observer, r.phase, spec.Name, outcome.Reason)
		return outcome
	}

	if err := r.applyWithRetries(spec, outcome); err != nil {
		outcome.State = StateFailed
		outcome.Err = err
		orchestration.LogComponentFailed(r.rc.Observer, r.phase, spec.Name, err)
		r.runFailureHooks(spec)
		return outcome
	}

	// A post-deploy hook failure is reported but does not undo a component
	// that deployed and confirmed ready.
	if err := r.runHooks(spec, spec.Hooks.PostDeploy, "post-deploy"); err != nil {
		r.rc.Observer.Printf("[%s] post-deploy hook failed: %v", spec.Name, err)
	}

	outcome.State = StateSuccess
	r.markOK(spec.Name)
	r.markDeployed(spec.Name)
	orchestration.LogComponentReady(r.rc.Observer, r.phase, spec.Name, time.Since(start))
	return outcome
}

// planOne resolves what an apply would do without mutating anything.
func (r *run) planOne(spec component.Spec, outcome *ComponentOutcome) *ComponentOutcome {
	summary, err := r.renderSummary(spec)
	if err != nil {
		outcome.State = StateFailed
		outcome.Err = err
		orchestration.LogComponentFailed(r.rc.Observer, r.phase, spec.Name, err)
		return outcome
	}
	outcome.State = StatePlanned
	outcome.Reason = summary
	r.markOK(spec.Name)
	r.rc.Observer.Printf("[%s] %s", spec.Name, summary)
	return outcome
}

func (r *run) renderSummary(spec component.Spec) (string, error) {
	switch spec.Tool.Kind() {
	case component.ToolHelm:
		manifests, err := r.renderHelm(r.rc, spec)
		if err != nil {
			return "", err
		}
		return r.applySummary(spec, manifests)
	case component.ToolManifest:
		manifests, err := loadManifests(spec.Tool.Manifest.Path)
		if err != nil {
			return "", err
		}
		return r.applySummary(spec, manifests)
	default:
		return "would run: " + strings.Join(spec.Tool.Command.Apply, " "), nil
	}
}

func (r *run) applySummary(spec component.Spec, manifests []byte) (string, error) {
	objects, err := kube.DecodeManifests(manifests)
	if err != nil {
		return "", err
	}
	if r.opts.ShowManifests {
		out, err := kube.CanonicalYAML(manifests)
		if err != nil {
			return "", err
		}
		r.rc.Observer.Printf("[%s] rendered manifests:\n%s", spec.Name, out)
	}
	return fmt.Sprintf("would apply %d objects to namespace %s", len(objects), r.namespace(spec)), nil
}

// applyWithRetries runs deploy-then-probe attempts under the component's
// overall deadline. Retries re-apply before re-waiting, which server-side
// apply makes idempotent.
func (r *run) applyWithRetries(spec component.Spec, outcome *ComponentOutcome) error {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = r.rc.Timeouts.Deploy
	}
	ctx, cancel := context.WithTimeout(r.rc, timeout)
	defer cancel()

	retries := spec.Retries
	if retries < 0 {
		retries = 0
	}

	return retry.WithExponentialBackoff(ctx, func() error {
		outcome.Attempts++
		if err := r.applyTool(ctx, spec); err != nil {
			return err
		}
		return r.awaitReady(ctx, spec)
	},
		retry.WithMaxRetries(retries),
		retry.WithInitialDelay(r.rc.Timeouts.RetryInitialDelay),
		retry.WithNotify(func(attempt int, err error, delay time.Duration) {
			r.rc.Observer.Printf("[%s] attempt %d failed: %v (retrying in %v)", spec.Name, attempt, err, delay)
		}),
	)
}

func (r *run) applyTool(ctx context.Context, spec component.Spec) error {
	switch spec.Tool.Kind() {
	case component.ToolHelm:
		return r.applyHelm(ctx, spec)
	case component.ToolManifest:
		return r.applyManifest(ctx, spec)
	default:
		return r.applyCommand(ctx, spec)
	}
}

func (r *run) applyHelm(ctx context.Context, spec component.Spec) error {
	if r.engine.cluster == nil {
		return retry.Fatal(errors.New("no cluster connection configured"))
	}
	manifests, err := r.renderHelm(ctx, spec)
	if err != nil {
		return err
	}
	r.storeManifests(spec.Name, manifests)
	if err := r.ensureNamespace(ctx, spec); err != nil {
		return err
	}
	return r.engine.cluster.ApplyManifests(ctx, r.namespace(spec), manifests)
}

// renderHelm fetches the component's chart and renders it with the
// configured overrides. A chart that does not render will not render on a
// later attempt either, so render errors are fatal.
func (r *run) renderHelm(ctx context.Context, spec component.Spec) ([]byte, error) {
	if r.engine.charts == nil {
		return nil, retry.Fatal(errors.New("no chart source configured"))
	}
	rel := spec.Tool.Helm
	ref := helm.ChartRef{Repository: rel.RepoURL, Name: rel.Chart, Version: rel.Version}
	ch, err := r.engine.charts.Fetch(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart %s: %w", ref, err)
	}
	manifests, err := helm.Render(ch, rel.Release, r.namespace(spec), helm.Values(rel.Values))
	if err != nil {
		return nil, retry.Fatal(err)
	}
	return manifests, nil
}

func (r *run) applyManifest(ctx context.Context, spec component.Spec) error {
	if r.engine.cluster == nil {
		return retry.Fatal(errors.New("no cluster connection configured"))
	}
	manifests, err := loadManifests(spec.Tool.Manifest.Path)
	if err != nil {
		return retry.Fatal(err)
	}
	r.storeManifests(spec.Name, manifests)
	if err := r.ensureNamespace(ctx, spec); err != nil {
		return err
	}
	return r.engine.cluster.ApplyManifests(ctx, r.namespace(spec), manifests)
}

func (r *run) applyCommand(ctx context.Context, spec component.Spec) error {
	res := r.engine.runner.Run(ctx, r.rc.Timeouts.ToolInvoke, spec.Tool.Command.Apply...)
	if res.Succeeded() {
		return nil
	}
	err := &InvocationError{Component: spec.Name, Err: errors.New(res.Summary())}
	if res.Retryable() {
		return err
	}
	return retry.Fatal(err)
}

// awaitReady polls the component's probe until it passes or the probe
// budget runs out. A probe timeout is retryable: re-applying is idempotent
// and the workload may only need another cycle.
func (r *run) awaitReady(ctx context.Context, spec component.Spec) error {
	timeout := spec.Probe.Timeout
	if timeout <= 0 {
		timeout = r.rc.Timeouts.Probe
	}
	interval := spec.Probe.Interval
	if interval <= 0 {
		interval = config.DefaultProbeInterval
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var last string
	for {
		check := r.engine.prober.Run(probeCtx, spec)
		if check.Pass {
			return nil
		}
		last = check.Message

		select {
		case <-probeCtx.Done():
			return &TimeoutError{Component: spec.Name, Timeout: timeout, LastState: last}
		case <-time.After(interval):
		}
	}
}

// upToDate reports whether the component can be skipped: deployed by an
// earlier run from an identical snapshot and still passing its probe. An
// unreadable run log means deploy, not skip.
func (r *run) upToDate(spec component.Spec) (string, bool) {
	if r.opts.Force || r.engine.log == nil {
		return "", false
	}
	done, err := r.engine.log.UpToDate(spec.Name, r.fingerprint)
	if err != nil || !done {
		return "", false
	}

	ctx, cancel := context.WithTimeout(r.rc, r.rc.Timeouts.HealthCheck)
	defer cancel()
	if check := r.engine.prober.Run(ctx, spec); !check.Pass {
		return "", false
	}
	return "unchanged since last deploy and passing its probe", true
}

// runHooks executes hook command lines in order, stopping at the first
// failure.
func (r *run) runHooks(spec component.Spec, lines []string, kind string) error {
	for _, line := range lines {
		r.rc.Observer.Event(orchestration.Event{
			Type:      orchestration.EventHookStarted,
			Phase:     r.phase,
			Component: spec.Name,
			Message:   fmt.Sprintf("%s hook: %s", kind, line),
		})
		res := r.engine.runner.RunShell(r.rc, r.rc.Timeouts.ToolInvoke, line)
		if !res.Succeeded() {
			r.rc.Observer.Event(orchestration.Event{
				Type:      orchestration.EventHookFailed,
				Phase:     r.phase,
				Component: spec.Name,
				Message:   fmt.Sprintf("%s hook failed: %s", kind, res.Summary()),
			})
			return fmt.Errorf("%s hook %q: %s", kind, line, res.Summary())
		}
	}
	return nil
}

// runFailureHooks runs on-failure hooks best-effort.
func (r *run) runFailureHooks(spec component.Spec) {
	for _, line := range spec.Hooks.OnFailure {
		res := r.engine.runner.RunShell(r.rc, r.rc.Timeouts.ToolInvoke, line)
		if !res.Succeeded() {
			r.rc.Observer.Printf("[%s] on-failure hook failed: %s", spec.Name, res.Summary())
		}
	}
}

// rollBack undoes the failed components and then everything this run
// deployed, in reverse completion order. Components skipped as up to date
// were deployed by an earlier run and are left alone.
func (r *run) rollBack(plan *graph.Plan, failures []*ComponentOutcome) {
	r.rc.Observer.Printf("rolling back: %s failed", failures[0].Name)
	cause := failures[0].Err

	var targets []component.Spec
	for _, f := range failures {
		if spec, ok := specFor(plan, f.Name); ok {
			targets = append(targets, spec)
		}
	}
	deployed := r.deployedNames()
	for i := len(deployed) - 1; i >= 0; i-- {
		if spec, ok := specFor(plan, deployed[i]); ok {
			targets = append(targets, spec)
		}
	}

	for _, spec := range targets {
		if err := r.undo(spec); err != nil {
			r.rc.Observer.Printf("[%s] rollback failed: %v", spec.Name, err)
			r.setState(spec.Name, StateFailed, &RollbackError{Component: spec.Name, Err: err, Cause: cause})
			continue
		}
		r.setState(spec.Name, StateRolledBack, nil)
		orchestration.LogComponentRolledBack(r.rc.Observer, r.phase, spec.Name)
	}
}

// undo reverses one component's deployment. Rollback must go on even when
// the run context is cancelled, so the cluster calls detach from it.
func (r *run) undo(spec component.Spec) error {
	if spec.Tool.Kind() == component.ToolCommand {
		cmd := spec.Tool.Command
		if len(cmd.Destroy) == 0 {
			return fmt.Errorf("component %s has no destroy command", spec.Name)
		}
		res := r.engine.runner.Run(r.rc, r.rc.Timeouts.ToolInvoke, cmd.Destroy...)
		if !res.Succeeded() {
			return errors.New(res.Summary())
		}
		return nil
	}

	manifests := r.storedManifests(spec.Name)
	if len(manifests) == 0 {
		// Nothing was rendered before the failure, so nothing was applied.
		return nil
	}
	if r.engine.cluster == nil {
		return errors.New("no cluster connection configured")
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.rc), r.rc.Timeouts.Deploy)
	defer cancel()
	return r.engine.cluster.DeleteManifests(ctx, r.namespace(spec), manifests)
}

// finish derives the run status, assembles the result in plan order, and
// records the run.
func (r *run) finish(plan *graph.Plan, result *Result) {
	result.Finished = time.Now()
	cancelled := r.rc.Err() != nil

	r.mu.Lock()
	var errs []error
	for _, spec := range plan.Components {
		outcome := r.outcomes[spec.Name]
		if outcome == nil {
			outcome = &ComponentOutcome{Name: spec.Name, State: StateNotAttempted, Reason: "run cancelled"}
		}
		result.Components = append(result.Components, *outcome)
		if outcome.Err != nil {
			errs = append(errs, outcome.Err)
		}
	}
	r.mu.Unlock()

	if cancelled {
		errs = append(errs, r.rc.Err())
	}
	result.Err = errors.Join(errs...)
	result.Status = deriveStatus(result.Components, cancelled)

	r.rc.Observer.Event(orchestration.Event{
		Type:    orchestration.EventRunCompleted,
		Phase:   r.phase,
		Message: fmt.Sprintf("run %s: %s in %v", r.rc.RunID, result.Status, result.Finished.Sub(result.Started).Round(time.Millisecond)),
	})

	r.appendRunLog(result)
}

// appendRunLog records the run. Dry runs are recorded for the audit trail
// but never count toward idempotence.
func (r *run) appendRunLog(result *Result) {
	if r.engine.log == nil {
		return
	}

	entry := runlog.Entry{
		Time:        result.Started,
		Mode:        string(result.Mode),
		Environment: r.opts.Environment,
		Fingerprint: result.Fingerprint,
		Status:      string(result.Status),
		Components:  make([]runlog.Component, 0, len(result.Components)),
	}
	if result.Err != nil {
		entry.Error = result.Err.Error()
	}
	for _, c := range result.Components {
		logged := runlog.Component{
			Name:     c.Name,
			State:    string(c.State),
			Attempts: c.Attempts,
			Seconds:  c.Duration.Seconds(),
		}
		if c.Err != nil {
			logged.Error = c.Err.Error()
		}
		entry.Components = append(entry.Components, logged)
	}

	if err := r.engine.log.Append(entry); err != nil {
		r.rc.Observer.Printf("failed to record run: %v", err)
	}
}

func (r *run) rollbackEnabled() bool {
	return r.opts.Mode == ModeApply && r.opts.Rollback
}

func (r *run) namespace(spec component.Spec) string {
	if spec.Namespace != "" {
		return spec.Namespace
	}
	return "default"
}

func (r *run) ensureNamespace(ctx context.Context, spec component.Spec) error {
	labels := kube.PodSecurityLabels(r.rc.Config().Security.PodSecurity)
	return r.engine.cluster.EnsureNamespace(ctx, r.namespace(spec), labels)
}

func (r *run) missingDependency(spec component.Spec) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, dep := range spec.Dependencies {
		if !r.ok[dep] {
			return dep
		}
	}
	return ""
}

func (r *run) record(outcome *ComponentOutcome) {
	r.mu.Lock()
	r.outcomes[outcome.Name] = outcome
	recorded := len(r.outcomes)
	r.mu.Unlock()
	r.rc.Observer.Progress(r.phase, recorded, r.total)
}

func (r *run) markOK(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ok[name] = true
}

func (r *run) markDeployed(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deployed = append(r.deployed, name)
}

// markRemaining records a not-attempted outcome for every planned
// component the run never reached.
func (r *run) markRemaining(plan *graph.Plan, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, spec := range plan.Components {
		if _, done := r.outcomes[spec.Name]; !done {
			r.outcomes[spec.Name] = &ComponentOutcome{Name: spec.Name, State: StateNotAttempted, Reason: reason}
		}
	}
}

func (r *run) setState(name string, state ComponentState, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	outcome, ok := r.outcomes[name]
	if !ok {
		return
	}
	outcome.State = state
	if err != nil {
		outcome.Err = err
	}
}

func (r *run) storeManifests(name string, manifests []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifests[name] = manifests
}

func (r *run) storedManifests(name string) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.manifests[name]
}

func (r *run) deployedNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.deployed...)
}

// failuresIn returns the failed outcomes of a wave, in wave order.
func (r *run) failuresIn(wave []component.Spec) []*ComponentOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	var failures []*ComponentOutcome
	for _, spec := range wave {
		if outcome, ok := r.outcomes[spec.Name]; ok && outcome.State == StateFailed {
			failures = append(failures, outcome)
		}
	}
	return failures
}

func specFor(plan *graph.Plan, name string) (component.Spec, bool) {
	for _, spec := range plan.Components {
		if spec.Name == name {
			return spec, true
		}
	}
	return component.Spec{}, false
}

// splitByNamespace partitions a wave into batches in which no two
// components share a target namespace. Wave order is kept within each
// batch.
func splitByNamespace(wave []component.Spec) [][]component.Spec {
	var batches [][]component.Spec
	assigned := make([]bool, len(wave))
	for remaining := len(wave); remaining > 0; {
		var batch []component.Spec
		used := make(map[string]bool)
		for i, spec := range wave {
			if assigned[i] {
				continue
			}
			ns := spec.Namespace
			if ns == "" {
				ns = "default"
			}
			if used[ns] {
				continue
			}
			used[ns] = true
			assigned[i] = true
			batch = append(batch, spec)
			remaining--
		}
		batches = append(batches, batch)
	}
	return batches
}

// loadManifests reads a manifest file, or every .yaml and .yml file of a
// directory in name order joined into one stream.
func loadManifests(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifests at %s: %w", path, err)
	}
	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
		}
		return data, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest directory %s: %w", path, err)
	}
	var buf bytes.Buffer
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest %s: %w", entry.Name(), err)
		}
		if buf.Len() > 0 {
			buf.WriteString("\n---\n")
		}
		buf.Write(data)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("no manifests found in %s", path)
	}
	return buf.Bytes(), nil
}
