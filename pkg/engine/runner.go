package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/paulschiretz/pgl-wp-restore/pkg/buildinfo"
	"github.com/paulschiretz/pgl-wp-restore/pkg/hints"
	"github.com/paulschiretz/pgl-wp-restore/pkg/lockfile"
	"github.com/paulschiretz/pgl-wp-restore/pkg/metafile"
	"github.com/paulschiretz/pgl-wp-restore/pkg/planner"
	"github.com/paulschiretz/pgl-wp-restore/pkg/plog"
	"github.com/paulschiretz/pgl-wp-restore/pkg/sitearchive"
	"github.com/paulschiretz/pgl-wp-restore/pkg/sqldump"
	"github.com/paulschiretz/pgl-wp-restore/pkg/util"
	"github.com/paulschiretz/pgl-wp-restore/pkg/wpconfig"
)

// configFileName is the WordPress configuration file in the site root.
const configFileName = "wp-config.php"

// ExecuteRestore runs the full restore pipeline for one site. Every step up
// to and including the database import is fail-fast: a half-restored site
// must never be silently accepted. Cleanup failures after a successful
// import are reported but do not fail the run.
func (r *Runner) ExecuteRestore(ctx context.Context, p *planner.RestorePlan) error {
	// Check for cancellation at the very beginning.
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// save the execution timestamp
	timestampUTC := time.Now().UTC()

	// Run Preflight Validation
	if err := r.validator.Run(ctx, p.Preflight); err != nil {
		return fmt.Errorf("preflight failed: %w", err)
	}

	// Acquire Lock on the site directory. A second restore into the same
	// directory would interleave extraction and imports, so an active lock
	// is fatal rather than a graceful skip.
	lock, err := lockfile.Acquire(p.WorkDir, fmt.Sprintf("pgl-wp-restore:%s", p.Project))
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.Release()

	plog.Info("Starting restore", "project", p.Project, "dir", p.WorkDir)

	// Preserve the live wp-config.php before extraction overwrites it. The
	// backup holds the host's database credentials, which are pushed back
	// into the imported config later.
	if err := r.backupLiveConfig(p); err != nil {
		return err
	}

	// Locate the archive. The format tag determined here drives the
	// extractor dispatch, it is never re-probed.
	archive, err := sitearchive.Locate(p.WorkDir, p.Project)
	if err != nil {
		return err
	}
	plog.Info("Located site archive", "archive", filepath.Base(archive.Path), "format", archive.Format)

	p.Extract.Format = archive.Format
	p.Extract.Metrics = p.Metrics
	p.Cleanup.AbsArchivePath = archive.Path

	if err := r.extractor.Extract(ctx, archive.Path, p.WorkDir, p.Extract); err != nil {
		return fmt.Errorf("error during extraction: %w", err)
	}

	// Rewire the imported config to the host database.
	if _, err := r.restoreCredentials(ctx, p); err != nil {
		return err
	}

	// Import the newest SQL dump shipped with the archive.
	dumpPath, err := r.importDatabase(ctx, p)
	if err != nil {
		return err
	}

	// Optional domain rewrite, including the cache flush afterwards.
	oldURL, newURL, err := r.rewriteDomain(ctx, p)
	if err != nil {
		return err
	}

	if err := r.writeReceipt(p, archive, dumpPath, oldURL, newURL, timestampUTC); err != nil {
		return err
	}

	if err := r.cleaner.Run(ctx, p.Cleanup); err != nil {
		if hints.IsHint(err) {
			plog.Notice("Cleanup skipped", "reason", err)
		} else {
			plog.Warn("Cleanup failed", "error", err)
		}
	}

	plog.Info("Restore completed", "project", p.Project)
	return nil
}

// backupLiveConfig copies wp-config.php to the configured backup name. An
// existing backup is never overwritten, it still holds the host credentials
// from before the first attempt of this restore.
func (r *Runner) backupLiveConfig(p *planner.RestorePlan) error {
	livePath := filepath.Join(p.WorkDir, configFileName)
	backupPath := filepath.Join(p.WorkDir, p.ConfigBackupFile)

	if _, err := os.Stat(backupPath); err == nil {
		plog.Notice("Config backup already exists, keeping it", "backup", p.ConfigBackupFile)
		return nil
	}
	if _, err := os.Stat(livePath); err != nil {
		if os.IsNotExist(err) {
			plog.Warn("No live wp-config.php found, credentials cannot be preserved", "dir", p.WorkDir)
			return nil
		}
		return fmt.Errorf("cannot access %s: %w", livePath, err)
	}

	if p.DryRun {
		plog.Info("[DRY RUN] Would back up wp-config.php", "backup", p.ConfigBackupFile)
		return nil
	}
	plog.Info("Backing up wp-config.php", "backup", p.ConfigBackupFile)
	if err := util.CopyFile(livePath, backupPath); err != nil {
		return fmt.Errorf("failed to back up wp-config.php: %w", err)
	}
	return nil
}

// restoreCredentials parses the config backup and writes the host database
// credentials into the imported wp-config.php. Without a backup there is
// nothing to restore, the imported config is used as-is.
func (r *Runner) restoreCredentials(ctx context.Context, p *planner.RestorePlan) (*wpconfig.Credentials, error) {
	backupPath := filepath.Join(p.WorkDir, p.ConfigBackupFile)
	if _, err := os.Stat(backupPath); err != nil {
		if os.IsNotExist(err) {
			plog.Warn("No config backup found, keeping the imported credentials")
			return nil, nil
		}
		return nil, fmt.Errorf("cannot access config backup: %w", err)
	}

	creds, err := wpconfig.ParseBackup(backupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read host credentials: %w", err)
	}

	for _, kv := range []struct{ name, value string }{
		{"DB_NAME", creds.DBName},
		{"DB_USER", creds.DBUser},
		{"DB_PASSWORD", creds.DBPassword},
	} {
		if err := r.site.ConfigSet(ctx, kv.name, kv.value); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", kv.name, err)
		}
	}
	return creds, nil
}

// importDatabase finds the newest SQL dump in the site root, resets the
// database and imports the dump. It returns the dump path for the receipt.
func (r *Runner) importDatabase(ctx context.Context, p *planner.RestorePlan) (string, error) {
	dumpPath, err := sqldump.FindLatest(p.WorkDir)
	if err != nil {
		var notFound *sqldump.NotFoundError
		if p.DryRun && errors.As(err, &notFound) {
			// Nothing was extracted in a dry run, so the dump is not on
			// disk yet.
			plog.Info("[DRY RUN] No SQL dump present, would import the newest dump after extraction")
			return "", nil
		}
		return "", err
	}
	plog.Info("Found SQL dump", "dump", filepath.Base(dumpPath))

	if err := r.site.DBReset(ctx); err != nil {
		return "", fmt.Errorf("failed to reset database: %w", err)
	}
	if err := r.site.DBImport(ctx, dumpPath); err != nil {
		return "", fmt.Errorf("failed to import database: %w", err)
	}
	return dumpPath, nil
}

// rewriteDomain replaces the imported site's URL with the new domain across
// all tables and flushes the cache afterwards, so no stale entries serve the
// old URL. The new URL is always https. Returns the old and new URL for the
// receipt, both empty when no rewrite was requested. Without a new domain
// neither the rewrite nor the cache flush runs.
func (r *Runner) rewriteDomain(ctx context.Context, p *planner.RestorePlan) (string, string, error) {
	if p.NewDomain == "" {
		return "", "", nil
	}

	oldURL, err := r.site.SiteURL(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to read siteurl: %w", err)
	}
	newURL := "https://" + p.NewDomain

	if oldURL == "" {
		if p.DryRun {
			plog.Info("[DRY RUN] Would rewrite siteurl", "new", newURL)
			return "", newURL, nil
		}
		return "", "", fmt.Errorf("siteurl of the imported site is empty, cannot rewrite domain")
	}
	if oldURL == newURL {
		plog.Notice("Site already uses the requested domain", "url", newURL)
		return oldURL, newURL, nil
	}

	if err := r.site.SearchReplace(ctx, oldURL, newURL); err != nil {
		return "", "", fmt.Errorf("failed to rewrite domain: %w", err)
	}
	if err := r.site.CacheFlush(ctx); err != nil {
		return "", "", fmt.Errorf("failed to flush cache after domain rewrite: %w", err)
	}
	return oldURL, newURL, nil
}

// writeReceipt drops the restore receipt into the site directory.
func (r *Runner) writeReceipt(p *planner.RestorePlan, archive sitearchive.Archive, dumpPath, oldURL, newURL string, timestampUTC time.Time) error {
	if p.DryRun {
		plog.Info("[DRY RUN] Would write restore receipt", "dir", p.WorkDir)
		return nil
	}
	content := &metafile.MetafileContent{
		Version:       buildinfo.Version,
		TimestampUTC:  timestampUTC,
		Project:       p.Project,
		ArchiveFormat: archive.Format.String(),
		SQLDump:       filepath.Base(dumpPath),
		OldDomain:     oldURL,
		NewDomain:     newURL,
	}
	if err := metafile.Write(p.WorkDir, content); err != nil {
		return fmt.Errorf("failed to write restore receipt: %w", err)
	}
	return nil
}
