package helm

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeChartArchive builds a minimal chart .tgz the way a repository would
// serve it, so cache hits can be tested without network access.
func writeChartArchive(t *testing.T, dir, name, version string) string {
	t.Helper()

	files := []struct {
		path    string
		content string
	}{
		{name + "/Chart.yaml", fmt.Sprintf("apiVersion: v2\nname: %s\nversion: %s\n", name, version)},
		{name + "/values.yaml", "replicas: 1\n"},
		{name + "/templates/configmap.yaml", "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: {{ .Release.Name }}\n"},
	}

	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)
	for _, file := range files {
		header := &tar.Header{Name: file.path, Mode: 0o644, Size: int64(len(file.content))}
		require.NoError(t, tw.WriteHeader(header))
		_, err := tw.Write([]byte(file.content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.tgz", name, version))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestChartRefValidate(t *testing.T) {
	t.Parallel()
	valid := ChartRef{Repository: "https://charts.example.com", Name: "app", Version: "1.0.0"}
	assert.NoError(t, valid.Validate())

	assert.ErrorContains(t, ChartRef{Name: "app", Version: "1.0.0"}.Validate(), "repository")
	assert.ErrorContains(t, ChartRef{Repository: "https://charts.example.com", Version: "1.0.0"}.Validate(), "chart name")
	assert.ErrorContains(t, ChartRef{Repository: "https://charts.example.com", Name: "app"}.Validate(), "version")
}

func TestChartRefString(t *testing.T) {
	t.Parallel()
	ref := ChartRef{Repository: "https://charts.example.com", Name: "ingress-nginx", Version: "4.11.3"}
	assert.Equal(t, "ingress-nginx@4.11.3", ref.String())
}

func TestFetch_CacheHit(t *testing.T) {
	t.Parallel()
	cacheDir := t.TempDir()
	writeChartArchive(t, cacheDir, "demo", "0.1.0")

	fetcher := NewFetcher(cacheDir)
	ref := ChartRef{Repository: "https://unreachable.invalid", Name: "demo", Version: "0.1.0"}

	ch, err := fetcher.Fetch(context.Background(), ref)
	require.NoError(t, err, "a cached archive must never hit the network")
	assert.Equal(t, "demo", ch.Metadata.Name)
	assert.Equal(t, "0.1.0", ch.Metadata.Version)
	require.Len(t, ch.Templates, 1)
}

func TestFetch_CachedChartRenders(t *testing.T) {
	t.Parallel()
	cacheDir := t.TempDir()
	writeChartArchive(t, cacheDir, "demo", "0.1.0")

	fetcher := NewFetcher(cacheDir)
	ch, err := fetcher.Fetch(context.Background(), ChartRef{
		Repository: "https://unreachable.invalid",
		Name:       "demo",
		Version:    "0.1.0",
	})
	require.NoError(t, err)

	manifests, err := Render(ch, "demo-release", "default", Values{})
	require.NoError(t, err)
	assert.Contains(t, string(manifests), "name: demo-release")
}

func TestFetch_InvalidRef(t *testing.T) {
	t.Parallel()
	fetcher := NewFetcher(t.TempDir())
	_, err := fetcher.Fetch(context.Background(), ChartRef{})
	require.Error(t, err)
}

func TestFetch_CancelledContext(t *testing.T) {
	t.Parallel()
	fetcher := NewFetcher(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetcher.Fetch(ctx, ChartRef{Repository: "https://charts.example.com", Name: "app", Version: "1.0.0"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/test-cache")
	assert.Equal(t, "/tmp/test-cache/hearth/charts", DefaultCacheDir())
}
