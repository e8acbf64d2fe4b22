package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_Get(t *testing.T) {
	t.Parallel()
	snapshot, err := LoadLayers([]Layer{{Name: "base", Data: []byte(minimalBaseYAML)}})
	require.NoError(t, err)

	v, ok := snapshot.Get("cluster.name")
	require.True(t, ok)
	assert.Equal(t, "homelab", v)

	v, ok = snapshot.Get("certificates.issuers.self_signed.kind")
	require.True(t, ok)
	assert.Equal(t, "self-signed", v)

	_, ok = snapshot.Get("cluster.missing")
	assert.False(t, ok)

	// Descending through a scalar is not an error, just a miss.
	_, ok = snapshot.Get("cluster.name.deeper")
	assert.False(t, ok)
}

func TestSnapshot_GetString(t *testing.T) {
	t.Parallel()
	snapshot, err := LoadLayers([]Layer{{Name: "base", Data: []byte(minimalBaseYAML + "\ndeploy:\n  retries: 4\n")}})
	require.NoError(t, err)

	assert.Equal(t, "home.example.net", snapshot.GetString("network.domain"))
	assert.Equal(t, "", snapshot.GetString("network.missing"))
	// Non-string values read as empty rather than panicking.
	assert.Equal(t, "", snapshot.GetString("deploy.retries"))
}

func TestSnapshot_FingerprintChangesWithContent(t *testing.T) {
	t.Parallel()
	base, err := LoadLayers([]Layer{{Name: "base", Data: []byte(minimalBaseYAML)}})
	require.NoError(t, err)

	changed, err := LoadLayers([]Layer{
		{Name: "base", Data: []byte(minimalBaseYAML)},
		{Name: "env:prod", Data: []byte("deploy:\n  retries: 9\n")},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, base.Fingerprint())
	assert.NotEqual(t, base.Fingerprint(), changed.Fingerprint())
}

func TestSnapshot_LayersReturnsCopy(t *testing.T) {
	t.Parallel()
	snapshot, err := LoadLayers([]Layer{{Name: "base", Data: []byte(minimalBaseYAML)}})
	require.NoError(t, err)

	layers := snapshot.Layers()
	layers[0] = "tampered"
	assert.Equal(t, []string{"base"}, snapshot.Layers())
}
