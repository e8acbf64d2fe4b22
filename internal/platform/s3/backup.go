package s3

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// backupStamp is the layout for the per-backup key segment.
const backupStamp = "20060102T150405Z"

// BackupState uploads every file under stateDir to the bucket beneath
// cluster/<timestamp>/, preserving relative paths. It returns the keys
// written, in upload order.
func (c *Client) BackupState(ctx context.Context, stateDir, cluster string) ([]string, error) {
	if cluster == "" {
		return nil, fmt.Errorf("state backup needs a cluster name for the key prefix")
	}
	if _, err := os.Stat(stateDir); err != nil {
		return nil, fmt.Errorf("state directory %s is not readable: %w", stateDir, err)
	}

	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	prefix := cluster + "/" + time.Now().UTC().Format(backupStamp)

	var keys []string
	err := filepath.WalkDir(stateDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(stateDir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		key := prefix + "/" + filepath.ToSlash(rel)
		if err := c.Upload(ctx, key, data); err != nil {
			return err
		}
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Backups returns the cluster's existing backup prefixes, newest first.
func (c *Client) Backups(ctx context.Context, cluster string) ([]string, error) {
	keys, err := c.List(ctx, cluster+"/")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var prefixes []string
	for _, key := range keys {
		parts := strings.SplitN(key, "/", 3)
		if len(parts) < 3 {
			continue
		}
		prefix := parts[0] + "/" + parts[1]
		if !seen[prefix] {
			seen[prefix] = true
			prefixes = append(prefixes, prefix)
		}
	}

	// The timestamp segment sorts lexically, so reverse order is
	// newest first.
	slices.Sort(prefixes)
	slices.Reverse(prefixes)
	return prefixes, nil
}
