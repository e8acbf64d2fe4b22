package invoke

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSuccess(t *testing.T) {
	var runner Runner

	result := runner.Run(context.Background(), time.Minute, "sh", "-c", "echo hello")

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.True(t, result.Succeeded())
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "hello", result.Output)
	assert.NoError(t, result.Err)
}

func TestRunNonZeroExit(t *testing.T) {
	var runner Runner

	result := runner.Run(context.Background(), time.Minute, "sh", "-c", "echo oops >&2; exit 3")

	assert.Equal(t, OutcomeError, result.Outcome)
	assert.False(t, result.Succeeded())
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "oops", result.Output)
	require.Error(t, result.Err)
}

func TestRunMissingBinary(t *testing.T) {
	var runner Runner

	result := runner.Run(context.Background(), time.Minute, "definitely-not-a-binary-xyz123")

	assert.Equal(t, OutcomeError, result.Outcome)
	assert.Equal(t, -1, result.ExitCode)
	require.Error(t, result.Err)
}

func TestRunTimeout(t *testing.T) {
	var runner Runner

	start := time.Now()
	result := runner.Run(context.Background(), 100*time.Millisecond, "sleep", "5")

	assert.Equal(t, OutcomeTimeout, result.Outcome)
	assert.True(t, result.Retryable())
	assert.Less(t, time.Since(start), 3*time.Second)
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "timed out")
}

func TestRunDetachedFromParentCancellation(t *testing.T) {
	var runner Runner

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled parent must not abort the invocation itself.
	result := runner.Run(ctx, time.Minute, "sh", "-c", "echo still-ran")

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Equal(t, "still-ran", result.Output)
}

func TestRunEmptyArgv(t *testing.T) {
	var runner Runner

	result := runner.Run(context.Background(), time.Minute)

	assert.Equal(t, OutcomeError, result.Outcome)
	require.Error(t, result.Err)
}

func TestRunExtraEnv(t *testing.T) {
	runner := Runner{Env: []string{"HEARTH_TEST_VALUE=42"}}

	result := runner.Run(context.Background(), time.Minute, "sh", "-c", "echo $HEARTH_TEST_VALUE")

	require.True(t, result.Succeeded())
	assert.Equal(t, "42", result.Output)
}

func TestRunShell(t *testing.T) {
	var runner Runner

	result := runner.RunShell(context.Background(), time.Minute, "echo a && echo b")

	require.True(t, result.Succeeded())
	assert.Equal(t, "a\nb", result.Output)
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name      string
		result    Result
		retryable bool
	}{
		{"timeout", Result{Outcome: OutcomeTimeout}, true},
		{"connection refused", Result{Outcome: OutcomeError, Output: "dial tcp: connection refused"}, true},
		{"eof", Result{Outcome: OutcomeError, Output: "unexpected EOF"}, true},
		{"connection reset", Result{Outcome: OutcomeError, Output: "read: connection reset by peer"}, true},
		{"unable to connect", Result{Outcome: OutcomeError, Output: "Unable to connect to the server"}, true},
		{"plain failure", Result{Outcome: OutcomeError, Output: "chart not found"}, false},
		{"success", Result{Outcome: OutcomeSuccess, Output: "EOF"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.retryable, tc.result.Retryable())
		})
	}
}

func TestSummary(t *testing.T) {
	ok := Result{Outcome: OutcomeSuccess, Command: "helm upgrade", Duration: 1200 * time.Millisecond}
	assert.Contains(t, ok.Summary(), "helm upgrade succeeded")

	timedOut := Result{Outcome: OutcomeTimeout, Command: "kubectl apply", Duration: time.Minute}
	assert.Contains(t, timedOut.Summary(), "timed out")

	failed := Result{
		Outcome:  OutcomeError,
		Command:  "kubectl apply",
		ExitCode: 1,
		Output:   "line1\nline2\nline3\nline4\nline5\nline6\nthe actual error",
	}
	summary := failed.Summary()
	assert.Contains(t, summary, "exit 1")
	assert.Contains(t, summary, "the actual error")
	assert.NotContains(t, summary, "line1")
}
