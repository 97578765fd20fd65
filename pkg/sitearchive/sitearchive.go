// Package sitearchive implements locating, extracting and flattening of
// WordPress site archives. An archive is located by probing a fixed suffix
// list, extracted natively (no external unzip/tar binaries) into the working
// directory, and a single wrapping top-level directory is then collapsed so
// the site contents end up directly in the document root.
package sitearchive

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/paulschiretz/pgl-wp-restore/pkg/extractmetrics"
	"github.com/paulschiretz/pgl-wp-restore/pkg/plog"
)

// Plan carries the per-run extraction settings resolved by the planner.
type Plan struct {
	Format        Format
	FlattenPolicy FlattenPolicy

	// Global Flags
	DryRun  bool
	Metrics bool
}

// PathExtractor extracts site archives into a working directory.
type PathExtractor struct {
	ioBufferPool *sync.Pool
}

// NewPathExtractor creates a new PathExtractor with the given configuration.
func NewPathExtractor(bufferSizeKB int) *PathExtractor {
	bufferSize := bufferSizeKB * 1024
	return &PathExtractor{
		ioBufferPool: &sync.Pool{
			New: func() interface{} {
				b := make([]byte, bufferSize)
				return &b
			},
		},
	}
}

// Extract decompresses the archive into the working directory and flattens a
// single wrapping top-level directory afterwards. Decompression errors are
// fatal and abort before any flatten attempt; flatten move failures follow
// the plan's FlattenPolicy.
func (x *PathExtractor) Extract(ctx context.Context, absArchivePath, absWorkDirPath string, p *Plan) error {
	// Check for cancellation
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	ex, err := newExtractor(p.Format)
	if err != nil {
		return err
	}

	if p.DryRun {
		plog.Info("[DRY RUN] Would extract archive", "archive", filepath.Base(absArchivePath), "format", p.Format)
		return nil
	}

	var m extractmetrics.Metrics
	if p.Metrics {
		m = &extractmetrics.ExtractionMetrics{}
	} else {
		// Use the No-op implementation if metrics are disabled.
		m = &extractmetrics.NoopMetrics{}
	}

	plog.Info("Extracting archive", "archive", filepath.Base(absArchivePath), "format", p.Format)

	m.StartProgress("Extraction progress", 10*time.Second)
	err = ex.Extract(ctx, absArchivePath, absWorkDirPath, x.ioBufferPool, m)
	m.StopProgress()
	if err != nil {
		return err
	}
	m.LogSummary("Extraction finished")

	flattened, err := Flatten(absWorkDirPath, p.FlattenPolicy)
	if err != nil {
		return err
	}
	if flattened {
		plog.Info("Archive contents flattened into working directory")
	}
	return nil
}
