// Package cleanup removes the restore artifacts left behind in the site
// directory after a successful import.
package cleanup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/paulschiretz/pgl-wp-restore/pkg/confirm"
	"github.com/paulschiretz/pgl-wp-restore/pkg/hints"
	"github.com/paulschiretz/pgl-wp-restore/pkg/plog"
)

var ErrDisabled = hints.New("cleanup is disabled")
var ErrNothingToClean = hints.New("nothing to clean up")

// Cleaner defines the interface for removing restore artifacts.
type Cleaner interface {
	Run(ctx context.Context, p *Plan) error
}

// PathCleaner removes restore artifacts from a site directory on the local
// filesystem. Destructive steps go through the injected confirmer.
type PathCleaner struct {
	confirmer confirm.Confirmer
}

// Statically assert that *PathCleaner implements the Cleaner interface.
var _ Cleaner = (*PathCleaner)(nil)

// NewPathCleaner creates a PathCleaner asking the given confirmer before
// deleting anything.
func NewPathCleaner(c confirm.Confirmer) *PathCleaner {
	return &PathCleaner{confirmer: c}
}

// Run deletes the restore artifacts named by the plan. The artifacts and the
// archive are gated by separate prompts, declining one does not skip the
// other. Individual delete failures are logged and do not abort the run,
// leftover files are a nuisance, not a broken site.
func (c *PathCleaner) Run(ctx context.Context, p *Plan) error {
	if !p.Enabled {
		return ErrDisabled
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	artifacts, err := c.collectArtifacts(p)
	if err != nil {
		return err
	}

	archiveExists := false
	if p.AbsArchivePath != "" {
		if _, err := os.Stat(p.AbsArchivePath); err == nil {
			archiveExists = true
		}
	}

	if len(artifacts) == 0 && !archiveExists {
		return ErrNothingToClean
	}

	if len(artifacts) > 0 {
		names := make([]string, len(artifacts))
		for i, a := range artifacts {
			names[i] = filepath.Base(a)
		}
		prompt := fmt.Sprintf("Delete restore artifacts (%s) from %s?", strings.Join(names, ", "), p.AbsWorkDirPath)

		ok, err := c.confirmer.Confirm(prompt)
		if err != nil {
			return fmt.Errorf("failed to confirm artifact cleanup: %w", err)
		}
		if ok {
			if err := c.deleteArtifacts(ctx, p, artifacts); err != nil {
				return err
			}
		} else {
			plog.Notice("Keeping restore artifacts", "count", len(artifacts))
		}
	}

	if archiveExists {
		if p.KeepArchive {
			plog.Notice("Keeping site archive", "path", p.AbsArchivePath)
			return nil
		}
		ok, err := c.confirmer.Confirm(fmt.Sprintf("Delete the site archive %s?", p.AbsArchivePath))
		if err != nil {
			return fmt.Errorf("failed to confirm archive cleanup: %w", err)
		}
		if !ok {
			plog.Notice("Keeping site archive", "path", p.AbsArchivePath)
			return nil
		}
		if p.DryRun {
			plog.Notice("[DRY RUN] DELETE", "path", p.AbsArchivePath)
			return nil
		}
		plog.Notice("DELETE", "path", p.AbsArchivePath)
		if err := os.Remove(p.AbsArchivePath); err != nil {
			plog.Warn("Failed to delete site archive", "path", p.AbsArchivePath, "error", err)
		}
	}

	return nil
}

// collectArtifacts returns the absolute paths of the restore artifacts that
// actually exist in the site directory. SQL dumps are matched in the root
// only, the site's own files are never touched.
func (c *PathCleaner) collectArtifacts(p *Plan) ([]string, error) {
	var artifacts []string

	for _, name := range []string{p.ConfigBackupFile, p.MarkerFile, p.HelperScript} {
		if name == "" {
			continue
		}
		path := filepath.Join(p.AbsWorkDirPath, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			artifacts = append(artifacts, path)
		}
	}

	entries, err := os.ReadDir(p.AbsWorkDirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read site directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".sql") {
			artifacts = append(artifacts, filepath.Join(p.AbsWorkDirPath, entry.Name()))
		}
	}

	return artifacts, nil
}

// deleteArtifacts removes the given files in parallel. Deleting a handful of
// small files barely needs workers on local disks, but site directories on
// network mounts benefit from the overlap.
func (c *PathCleaner) deleteArtifacts(ctx context.Context, p *Plan, artifacts []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.DeleteWorkers)

	for _, artifact := range artifacts {
		artifact := artifact
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if p.DryRun {
				plog.Notice("[DRY RUN] DELETE", "path", artifact)
				return nil
			}
			plog.Notice("DELETE", "path", artifact)
			if err := os.Remove(artifact); err != nil {
				plog.Warn("Failed to delete restore artifact", "path", artifact, "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}
