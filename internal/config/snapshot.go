package config

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"gopkg.in/yaml.v3"
)

// Snapshot is an immutable resolved configuration. It is created fresh per
// invocation and never mutated; placeholder resolution produces a new
// snapshot rather than patching this one.
type Snapshot struct {
	tree   map[string]any
	cfg    *Config
	layers []string
}

// Config returns the typed view of the snapshot.
func (s *Snapshot) Config() *Config {
	return s.cfg
}

// Layers returns the names of the layers that produced this snapshot, in
// merge order.
func (s *Snapshot) Layers() []string {
	out := make([]string, len(s.layers))
	copy(out, s.layers)
	return out
}

// Get looks up a value by dotted key path, e.g. "network.domain".
func (s *Snapshot) Get(path string) (any, bool) {
	var current any = s.tree
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// GetString looks up a string value by dotted key path. Missing keys and
// non-string values return the empty string.
func (s *Snapshot) GetString(path string) string {
	v, ok := s.Get(path)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

// Encode renders the snapshot tree as canonical YAML. Mapping keys are
// emitted in sorted order, so identical snapshots encode identically.
func (s *Snapshot) Encode() ([]byte, error) {
	return yaml.Marshal(s.tree)
}

// Fingerprint returns a stable content hash of the snapshot, used by the
// run log to decide whether a re-run would be a no-op.
func (s *Snapshot) Fingerprint() string {
	data, err := s.Encode()
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
