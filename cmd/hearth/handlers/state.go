package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/hearthlab/hearth/internal/config"
	"github.com/hearthlab/hearth/internal/platform/s3"
	"github.com/hearthlab/hearth/internal/runlog"
)

// BackupStore uploads state files to a remote bucket.
type BackupStore interface {
	EnsureBucket(ctx context.Context) error
	BackupState(ctx context.Context, stateDir, cluster string) ([]string, error)
}

// Factory function variables for state - can be replaced in tests.
var (
	// newBackupStore creates the S3-compatible backup client.
	newBackupStore = func(bc config.BackupConfig) (BackupStore, error) {
		return s3.NewClient(bc)
	}
)

// StateOptions carries the state commands' flags.
type StateOptions struct {
	ConfigDir   string
	Environment string
	Limit       int
}

// StateBackup uploads the state directory to the configured S3-compatible
// bucket. Objects are keyed by cluster name and timestamp so backups from
// different clusters and points in time never collide.
func StateBackup(ctx context.Context, opts StateOptions) error {
	snapshot, configDir, err := loadSnapshot(opts.ConfigDir, opts.Environment)
	if err != nil {
		return err
	}
	cfg := snapshot.Config()

	if cfg.State.Backup == nil {
		return fmt.Errorf("state backup is not configured; add state.backup to hearth.yaml")
	}

	store, err := newBackupStore(*cfg.State.Backup)
	if err != nil {
		return fmt.Errorf("failed to initialize backup store: %w", err)
	}

	if err := store.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to prepare backup bucket: %w", err)
	}

	log.Printf("Backing up state for cluster: %s", cfg.Cluster.Name)

	keys, err := store.BackupState(ctx, stateDir(cfg, configDir), cfg.Cluster.Name)
	if err != nil {
		return fmt.Errorf("state backup failed: %w", err)
	}

	if len(keys) == 0 {
		fmt.Println("Nothing to back up: the state directory is empty.")
		return nil
	}

	fmt.Printf("Uploaded %d objects:\n", len(keys))
	for _, key := range keys {
		fmt.Printf("  %s\n", key)
	}
	return nil
}

// StateRuns prints the most recent deployment runs, newest first.
func StateRuns(ctx context.Context, opts StateOptions) error {
	snapshot, configDir, err := loadSnapshot(opts.ConfigDir, opts.Environment)
	if err != nil {
		return err
	}
	cfg := snapshot.Config()

	runLog, err := openRunLog(stateDir(cfg, configDir))
	if err != nil {
		return fmt.Errorf("failed to open run log: %w", err)
	}

	entries, err := runLog.Last(opts.Limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("  %-20s %-8s %-10s %-16s %s\n", "TIME", "MODE", "ENV", "STATUS", "COMPONENTS")
	for _, entry := range entries {
		env := entry.Environment
		if env == "" {
			env = "-"
		}
		fmt.Printf("  %-20s %-8s %-10s %-16s %s\n",
			entry.Time.Format("2006-01-02 15:04:05"), entry.Mode, env, entry.Status, componentTally(entry))
	}
	return nil
}

// componentTally summarizes a run's component outcomes as "good/total".
func componentTally(entry runlog.Entry) string {
	good := 0
	for _, c := range entry.Components {
		switch c.State {
		case "success", "planned", "up-to-date":
			good++
		}
	}
	return fmt.Sprintf("%d/%d", good, len(entry.Components))
}
