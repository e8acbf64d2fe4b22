package certs

import (
	"fmt"
	"strings"
)

// AttemptError records one failed issuer attempt.
type AttemptError struct {
	Issuer string
	Err    error
}

// IssuanceError reports that every configured issuer failed for a request.
// It carries the per-issuer failures in attempt order.
type IssuanceError struct {
	Domains  []string
	Attempts []AttemptError
}

func (e *IssuanceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "certificate issuance failed for %s", strings.Join(e.Domains, ", "))
	for _, attempt := range e.Attempts {
		fmt.Fprintf(&b, "; %s: %v", attempt.Issuer, attempt.Err)
	}
	return b.String()
}

// Unwrap exposes the underlying attempt errors for errors.Is / errors.As.
func (e *IssuanceError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		errs = append(errs, attempt.Err)
	}
	return errs
}

// ValidationError reports failed validation checks for a certificate.
type ValidationError struct {
	Domains  []string
	Failures []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("certificate validation failed for %s: %s",
		strings.Join(e.Domains, ", "), strings.Join(e.Failures, "; "))
}
