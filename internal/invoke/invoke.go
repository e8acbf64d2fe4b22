// Package invoke runs external tools with bounded timeouts and reports
// tagged outcomes instead of raw exit errors.
package invoke

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds invocations whose caller supplied none. No
// invocation ever runs unbounded.
const DefaultTimeout = 5 * time.Minute

// Outcome tags how an invocation ended.
type Outcome string

const (
	// OutcomeSuccess means the command exited zero.
	OutcomeSuccess Outcome = "success"
	// OutcomeError means the command exited non-zero or could not start.
	OutcomeError Outcome = "error"
	// OutcomeTimeout means the command was killed at its deadline.
	OutcomeTimeout Outcome = "timeout"
)

// Result is the tagged outcome of one invocation.
type Result struct {
	Outcome  Outcome
	Command  string
	ExitCode int
	Output   string // combined stdout and stderr, trimmed
	Duration time.Duration
	Err      error
}

// Succeeded reports whether the invocation exited zero.
func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// Retryable reports whether the failure looks transient: a timeout or
// output showing a dropped connection.
func (r Result) Retryable() bool {
	if r.Outcome == OutcomeTimeout {
		return true
	}
	return r.Outcome == OutcomeError && RetryableOutput(r.Output)
}

// Summary renders the result as an error message suitable for wrapping.
func (r Result) Summary() string {
	switch r.Outcome {
	case OutcomeSuccess:
		return fmt.Sprintf("%s succeeded in %v", r.Command, r.Duration.Round(time.Millisecond))
	case OutcomeTimeout:
		return fmt.Sprintf("%s timed out after %v", r.Command, r.Duration.Round(time.Millisecond))
	default:
		msg := fmt.Sprintf("%s failed (exit %d)", r.Command, r.ExitCode)
		if r.Output != "" {
			msg += ": " + lastLines(r.Output, 5)
		}
		return msg
	}
}

// Runner executes external commands. The zero value is usable.
type Runner struct {
	// Env holds extra KEY=VALUE entries appended to the parent environment.
	Env []string
	// Dir is the working directory; empty means inherit.
	Dir string
}

// Run executes argv and waits for it to finish. The invocation is bounded
// by timeout but deliberately detached from the parent's cancellation:
// external tools are not safely interruptible mid-flight, so callers
// cancel between invocations, not during one. The parent context's values
// still apply.
func (r *Runner) Run(parent context.Context, timeout time.Duration, argv ...string) Result {
	if len(argv) == 0 {
		return Result{Outcome: OutcomeError, ExitCode: -1, Err: errors.New("empty command")}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), timeout)
	defer cancel()

	// #nosec G204 - argv comes from validated configuration, not remote input
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	start := time.Now()
	output, err := cmd.CombinedOutput()

	result := Result{
		Command:  strings.Join(argv, " "),
		Output:   strings.TrimSpace(string(output)),
		Duration: time.Since(start),
	}

	switch {
	case err == nil:
		result.Outcome = OutcomeSuccess
	case ctx.Err() == context.DeadlineExceeded:
		result.Outcome = OutcomeTimeout
		result.ExitCode = -1
		result.Err = fmt.Errorf("timed out after %v", timeout)
	default:
		result.Outcome = OutcomeError
		result.Err = err
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
	}

	return result
}

// RunShell executes a shell command line through sh -c. Lifecycle hooks
// are configured as single strings, not argv lists.
func (r *Runner) RunShell(parent context.Context, timeout time.Duration, commandLine string) Result {
	return r.Run(parent, timeout, "sh", "-c", commandLine)
}

// RetryableOutput reports whether command output indicates a transient
// connection failure worth retrying.
func RetryableOutput(output string) bool {
	return strings.Contains(output, "EOF") ||
		strings.Contains(output, "connection refused") ||
		strings.Contains(output, "Unable to connect") ||
		strings.Contains(output, "connection reset")
}

// lastLines returns at most n trailing lines of s.
func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
