// Package certs issues, renews, and validates TLS certificates for cluster
// services.
//
// Issuance follows a fixed request lifecycle: a request tries its primary
// issuer, falls back to its configured fallback issuer when the primary
// fails, and only reports failure once both are exhausted. Concurrent
// requests for the same domain set share a single in-flight issuance.
// Every lifecycle transition is recorded on an audit trail.
package certs
