// Package engine orchestrates the restore pipeline. The Runner owns the
// sequencing and the fail-fast rules, the leaf workers behind its interfaces
// do the actual work.
package engine

import (
	"context"

	"github.com/paulschiretz/pgl-wp-restore/pkg/cleanup"
	"github.com/paulschiretz/pgl-wp-restore/pkg/preflight"
	"github.com/paulschiretz/pgl-wp-restore/pkg/sitearchive"
	"github.com/paulschiretz/pgl-wp-restore/pkg/sitemanager"
)

// Validator runs the preflight checks before anything destructive happens.
type Validator interface {
	Run(ctx context.Context, p *preflight.Plan) error
}

// Extractor extracts a located site archive into the working directory.
type Extractor interface {
	Extract(ctx context.Context, absArchivePath, absWorkDirPath string, p *sitearchive.Plan) error
}

// Cleaner removes the restore artifacts after a successful import.
type Cleaner interface {
	Run(ctx context.Context, p *cleanup.Plan) error
}

// Runner executes restore plans with injected leaf workers.
type Runner struct {
	validator Validator
	extractor Extractor
	site      sitemanager.SiteManager
	cleaner   Cleaner
}

// NewRunner creates a Runner from its leaf workers.
func NewRunner(validator Validator, extractor Extractor, site sitemanager.SiteManager, cleaner Cleaner) *Runner {
	return &Runner{
		validator: validator,
		extractor: extractor,
		site:      site,
		cleaner:   cleaner,
	}
}
