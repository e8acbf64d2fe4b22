// Package kube wraps client-go for the operations components need:
// server-side apply of rendered manifests, namespace and secret
// management, and workload readiness checks.
package kube
