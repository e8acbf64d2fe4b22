package runlog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthlab/hearth/internal/certs"
)

func entryAt(t time.Time, mode, fingerprint, status string, components ...Component) Entry {
	return Entry{
		Time:        t,
		Mode:        mode,
		Environment: "prod",
		Fingerprint: fingerprint,
		Status:      status,
		Components:  components,
	}
}

func TestAppendAndEntries(t *testing.T) {
	log, err := Open(t.TempDir())
	require.NoError(t, err)

	first := entryAt(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), ModeApply, "aaa", "success",
		Component{Name: "metallb", State: StateSuccess, Attempts: 1, Seconds: 12.5})
	second := entryAt(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), ModeApply, "bbb", "partial-failure",
		Component{Name: "metallb", State: StateSuccess},
		Component{Name: "gitea", State: "failed", Error: "probe timed out"})

	require.NoError(t, log.Append(first))
	require.NoError(t, log.Append(second))

	entries, err := log.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "aaa", entries[0].Fingerprint)
	assert.Equal(t, "prod", entries[0].Environment)
	assert.True(t, first.Time.Equal(entries[0].Time))
	require.Len(t, entries[1].Components, 2)
	assert.Equal(t, "probe timed out", entries[1].Components[1].Error)
}

func TestEntriesMissingFile(t *testing.T) {
	log, err := Open(t.TempDir())
	require.NoError(t, err)

	entries, err := log.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEntriesSkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, log.Append(entryAt(time.Now(), ModeApply, "aaa", "success")))

	// Simulate a torn write from a crashed process.
	file, err := os.OpenFile(log.Path(), os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = file.WriteString(`{"time":"2026-03-01T10:`)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	require.NoError(t, log.Append(entryAt(time.Now(), ModeApply, "bbb", "success")))

	entries, err := log.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "aaa", entries[0].Fingerprint)
	assert.Equal(t, "bbb", entries[1].Fingerprint)
}

func TestLastReturnsNewestFirst(t *testing.T) {
	log, err := Open(t.TempDir())
	require.NoError(t, err)

	for _, fp := range []string{"aaa", "bbb", "ccc"} {
		require.NoError(t, log.Append(entryAt(time.Now(), ModeApply, fp, "success")))
	}

	last, err := log.Last(2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "ccc", last[0].Fingerprint)
	assert.Equal(t, "bbb", last[1].Fingerprint)

	all, err := log.Last(10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLastDeployIgnoresDryRuns(t *testing.T) {
	log, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, log.Append(entryAt(time.Now(), ModeApply, "aaa", "success",
		Component{Name: "gitea", State: StateSuccess, Attempts: 1})))
	require.NoError(t, log.Append(entryAt(time.Now(), "dry-run", "bbb", "success",
		Component{Name: "gitea", State: StateSuccess})))

	dep, err := log.LastDeploy("gitea")
	require.NoError(t, err)
	require.NotNil(t, dep)
	assert.Equal(t, "aaa", dep.Fingerprint)
	assert.Equal(t, 1, dep.Component.Attempts)

	missing, err := log.LastDeploy("keycloak")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpToDate(t *testing.T) {
	log, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, log.Append(entryAt(time.Now(), ModeApply, "aaa", "partial-failure",
		Component{Name: "gitea", State: StateSuccess},
		Component{Name: "keycloak", State: "failed"})))

	tests := []struct {
		name        string
		component   string
		fingerprint string
		want        bool
	}{
		{"matching successful deploy", "gitea", "aaa", true},
		{"changed snapshot", "gitea", "zzz", false},
		{"failed component", "keycloak", "aaa", false},
		{"never deployed", "monitoring", "aaa", false},
		{"empty fingerprint never matches", "gitea", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := log.UpToDate(tt.component, tt.fingerprint)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestUpToDateUsesNewestApply(t *testing.T) {
	log, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, log.Append(entryAt(time.Now(), ModeApply, "aaa", "success",
		Component{Name: "gitea", State: StateSuccess})))
	require.NoError(t, log.Append(entryAt(time.Now(), ModeApply, "bbb", "failed",
		Component{Name: "gitea", State: "failed"})))

	ok, err := log.UpToDate("gitea", "aaa")
	require.NoError(t, err)
	assert.False(t, ok, "a later failed deploy invalidates the earlier success")
}

func TestOpenCreatesNestedStateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "deep", ".hearth")

	log, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, log.Append(entryAt(time.Now(), ModeApply, "aaa", "success")))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCertificateAuditAppend(t *testing.T) {
	dir := t.TempDir()
	audit, err := OpenCertificateAudit(dir)
	require.NoError(t, err)

	records := []certs.AuditRecord{
		{Time: time.Now().UTC(), Domains: []string{"*.lab.example.com"}, To: certs.StateRequested},
		{Time: time.Now().UTC(), Domains: []string{"*.lab.example.com"}, From: certs.StateRequested, To: certs.StateIssuerAttempt, Issuer: "letsencrypt"},
	}
	for _, record := range records {
		require.NoError(t, audit.Append(record))
	}

	data, err := os.ReadFile(filepath.Join(dir, CertificateAuditFile))
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 2)

	var got certs.AuditRecord
	require.NoError(t, json.Unmarshal(lines[1], &got))
	assert.Equal(t, certs.StateIssuerAttempt, got.To)
	assert.Equal(t, "letsencrypt", got.Issuer)
}
