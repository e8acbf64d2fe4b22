package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hearthlab/hearth/internal/certs"
)

// CertificateAudit appends certificate lifecycle transitions to their own
// JSONL file. Append errors are returned to the caller; the wiring site
// decides whether a failed audit write is worth more than a warning.
type CertificateAudit struct {
	mu   sync.Mutex
	path string
}

// OpenCertificateAudit prepares the certificate audit file under the
// state directory, creating the directory if needed.
func OpenCertificateAudit(stateDir string) (*CertificateAudit, error) {
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}
	return &CertificateAudit{path: filepath.Join(stateDir, CertificateAuditFile)}, nil
}

// Path returns the backing file path.
func (a *CertificateAudit) Path() string {
	return a.path
}

// Append records one transition as a single JSON line.
func (a *CertificateAudit) Append(record certs.AuditRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return appendLine(a.path, record)
}
