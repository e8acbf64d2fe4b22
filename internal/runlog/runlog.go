// Package runlog persists deployment outcomes as append-only JSONL files
// under the state directory. The log serves two purposes: an audit trail
// of what each run did, and the idempotence check that lets a re-run skip
// components already deployed from an identical configuration snapshot.
package runlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File names under the state directory.
const (
	RunsFile             = "runs.jsonl"
	CertificateAuditFile = "certificate-audit.jsonl"
)

// StateSuccess is the one component state the log itself interprets:
// only successful outcomes participate in idempotence decisions.
const StateSuccess = "success"

// ModeApply marks entries produced by real deployments. Dry runs are
// recorded for audit but never count toward idempotence.
const ModeApply = "apply"

// Entry is one recorded deployment run.
type Entry struct {
	Time        time.Time   `json:"time"`
	Mode        string      `json:"mode"`
	Environment string      `json:"environment,omitempty"`
	Fingerprint string      `json:"fingerprint,omitempty"`
	Status      string      `json:"status"`
	Components  []Component `json:"components"`
	Error       string      `json:"error,omitempty"`
}

// Component is one component's outcome within a run.
type Component struct {
	Name     string  `json:"name"`
	State    string  `json:"state"`
	Attempts int     `json:"attempts,omitempty"`
	Seconds  float64 `json:"seconds,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Log is the append-only run history.
type Log struct {
	mu   sync.Mutex
	path string
}

// Open prepares the run log under the state directory, creating the
// directory if needed.
func Open(stateDir string) (*Log, error) {
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}
	return &Log{path: filepath.Join(stateDir, RunsFile)}, nil
}

// Path returns the backing file path.
func (l *Log) Path() string {
	return l.path
}

// Append records one run as a single JSON line. The file is opened for
// append per call, so an interrupted process loses at most the entry
// being written.
func (l *Log) Append(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return appendLine(l.path, entry)
}

// Entries returns all recorded runs, oldest first. Unparseable lines are
// skipped so a torn final write does not poison every later read.
func (l *Log) Entries() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run log: %w", err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run log: %w", err)
	}
	return entries, nil
}

// Last returns the most recent n runs, newest first.
func (l *Log) Last(n int) ([]Entry, error) {
	entries, err := l.Entries()
	if err != nil {
		return nil, err
	}
	if n > len(entries) {
		n = len(entries)
	}
	out := make([]Entry, 0, n)
	for i := len(entries) - 1; i >= len(entries)-n; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

// Deployment is the most recent applied outcome recorded for one
// component, together with the snapshot it was deployed from.
type Deployment struct {
	Component   Component
	Fingerprint string
	Time        time.Time
}

// LastDeploy returns the newest apply-mode outcome recorded for the
// component, or nil when the component has never been applied.
func (l *Log) LastDeploy(name string) (*Deployment, error) {
	entries, err := l.Entries()
	if err != nil {
		return nil, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if entry.Mode != ModeApply {
			continue
		}
		for _, comp := range entry.Components {
			if comp.Name == name {
				return &Deployment{
					Component:   comp,
					Fingerprint: entry.Fingerprint,
					Time:        entry.Time,
				}, nil
			}
		}
	}
	return nil, nil
}

// UpToDate reports whether the component's latest applied outcome
// succeeded under the given snapshot fingerprint. The deployment engine
// additionally requires a passing liveness probe before skipping the
// component on this basis.
func (l *Log) UpToDate(name, fingerprint string) (bool, error) {
	if fingerprint == "" {
		return false, nil
	}
	dep, err := l.LastDeploy(name)
	if err != nil || dep == nil {
		return false, err
	}
	return dep.Component.State == StateSuccess && dep.Fingerprint == fingerprint, nil
}

// appendLine writes v as one JSON line at the end of path.
func appendLine(path string, v any) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(v); err != nil {
		return fmt.Errorf("failed to append to %s: %w", filepath.Base(path), err)
	}
	return nil
}
