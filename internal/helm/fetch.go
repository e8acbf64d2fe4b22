package helm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/downloader"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/repo"
)

// ChartRef identifies one chart version in a repository.
type ChartRef struct {
	Repository string
	Name       string
	Version    string
}

// Validate reports the first missing field of the reference.
func (r ChartRef) Validate() error {
	if r.Repository == "" {
		return errors.New("chart reference is missing a repository URL")
	}
	if r.Name == "" {
		return errors.New("chart reference is missing a chart name")
	}
	if r.Version == "" {
		return errors.New("chart reference is missing a version")
	}
	return nil
}

func (r ChartRef) String() string {
	return fmt.Sprintf("%s@%s", r.Name, r.Version)
}

// DefaultCacheDir returns the chart archive cache location, following the
// platform cache conventions.
func DefaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "hearth", "charts")
}

// Fetcher downloads chart archives and caches them on disk. Versions are
// immutable in chart repositories, so a cached archive is never re-fetched.
type Fetcher struct {
	cacheDir string
	settings *cli.EnvSettings
}

// NewFetcher creates a fetcher caching archives under cacheDir, or under
// DefaultCacheDir when empty.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}
	return &Fetcher{
		cacheDir: cacheDir,
		settings: cli.New(),
	}
}

// Fetch returns the chart for ref, downloading it on a cache miss.
func (f *Fetcher) Fetch(ctx context.Context, ref ChartRef) (*chart.Chart, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	archive := f.archivePath(ref)
	if _, err := os.Stat(archive); err == nil {
		loaded, err := loader.Load(archive)
		if err != nil {
			return nil, fmt.Errorf("failed to load cached chart %s: %w", archive, err)
		}
		return loaded, nil
	}

	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chart cache: %w", err)
	}

	chartURL, err := repo.FindChartInRepoURL(ref.Repository, ref.Name, ref.Version, "", "", "", getter.All(f.settings))
	if err != nil {
		return nil, fmt.Errorf("failed to locate chart %s in %s: %w", ref, ref.Repository, err)
	}

	dl := downloader.ChartDownloader{
		Out:              io.Discard,
		Getters:          getter.All(f.settings),
		RepositoryConfig: f.settings.RepositoryConfig,
		RepositoryCache:  f.settings.RepositoryCache,
	}
	saved, _, err := dl.DownloadTo(chartURL, ref.Version, f.cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to download chart %s: %w", ref, err)
	}

	// Normalize the archive name so the cache lookup finds it next time.
	if saved != archive {
		if err := os.Rename(saved, archive); err == nil {
			saved = archive
		}
	}

	loaded, err := loader.Load(saved)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart archive %s: %w", saved, err)
	}
	return loaded, nil
}

func (f *Fetcher) archivePath(ref ChartRef) string {
	return filepath.Join(f.cacheDir, fmt.Sprintf("%s-%s.tgz", ref.Name, ref.Version))
}
