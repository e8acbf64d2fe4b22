package engine

import (
	"fmt"
	"time"
)

// TimeoutError reports a component whose deployment invocation succeeded
// but whose readiness probe never passed within its budget.
type TimeoutError struct {
	Component string
	Timeout   time.Duration
	LastState string // last probe message before the deadline
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("component %s did not become ready within %v", e.Component, e.Timeout)
	if e.LastState != "" {
		msg += ": " + e.LastState
	}
	return msg
}

// InvocationError reports a component whose deployment command failed.
type InvocationError struct {
	Component string
	Err       error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("component %s deployment failed: %v", e.Component, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// RollbackError reports a rollback that itself failed, leaving cluster or
// host state that needs manual attention. Cause is the deployment failure
// that triggered the rollback.
type RollbackError struct {
	Component string
	Err       error
	Cause     error
}

func (e *RollbackError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rollback of component %s failed: %v (after deployment failure: %v)", e.Component, e.Err, e.Cause)
	}
	return fmt.Sprintf("rollback of component %s failed: %v", e.Component, e.Err)
}

func (e *RollbackError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}
