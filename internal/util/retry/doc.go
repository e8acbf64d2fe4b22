// Package retry provides exponential backoff retry logic for transient failures.
//
// [WithExponentialBackoff] retries an operation with configurable max attempts,
// initial delay, and maximum delay. It is used for external tool invocations,
// readiness polling, and certificate issuance attempts that may fail transiently.
package retry
