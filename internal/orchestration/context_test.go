package orchestration

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthlab/hearth/internal/config"
)

func TestNewContext(t *testing.T) {
	snapshot := loadTestSnapshot(t)

	ctx := NewContext(context.Background(), snapshot)

	require.NotNil(t, ctx.Observer)
	require.NotNil(t, ctx.Timeouts)
	assert.Same(t, snapshot, ctx.Snapshot)
	assert.Equal(t, "homelab", ctx.Config().Cluster.Name)
	assert.NotEmpty(t, ctx.RunID)
}

func TestContextCarriesCancellation(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	ctx := NewContext(base, loadTestSnapshot(t))

	select {
	case <-ctx.Done():
		t.Fatal("context should not be done yet")
	default:
	}

	cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestWithObserver(t *testing.T) {
	ctx := NewContext(context.Background(), loadTestSnapshot(t))
	recorder := newRecordingObserver()

	scoped := ctx.WithObserver(recorder)

	assert.Same(t, recorder, scoped.Observer.(*recordingObserver))
	assert.Equal(t, ctx.RunID, scoped.RunID)
	// The original keeps its console observer.
	_, isConsole := ctx.Observer.(*ConsoleObserver)
	assert.True(t, isConsole)
}

func TestNewRunIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{8}-\d{6}-[0-9a-f]{6}$`)

	seen := make(map[string]bool)
	for range 20 {
		id := NewRunID()
		assert.Regexp(t, pattern, id)
		seen[id] = true
	}
	// Random suffixes keep IDs unique even within one second.
	assert.Greater(t, len(seen), 1)
}

func loadTestSnapshot(t *testing.T) *config.Snapshot {
	t.Helper()
	snapshot, err := config.LoadLayers([]config.Layer{{
		Name: "base",
		Data: []byte(`
cluster:
  name: homelab
network:
  domain: lab.example
  address_pool: 192.168.1.240/28
namespaces:
  infra: hearth-system
certificates:
  issuers:
    self_signed:
      kind: self-signed
`),
	}})
	require.NoError(t, err)
	return snapshot
}
