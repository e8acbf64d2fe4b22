// Package helm fetches charts from their repositories and renders them to
// plain Kubernetes manifests.
//
// Releases are not managed through the Helm storage backend: rendered
// manifests are applied with server-side apply under a single field
// manager, which keeps install, upgrade, and removal in one code path.
// Downloaded chart archives are cached locally to avoid repeated fetches.
package helm
