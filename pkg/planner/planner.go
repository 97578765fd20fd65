// Package planner turns a validated configuration into the per-step plans
// the engine executes. All parsing of string-typed config values happens
// here, the engine only ever sees typed plans.
package planner

import (
	"github.com/paulschiretz/pgl-wp-restore/pkg/cleanup"
	"github.com/paulschiretz/pgl-wp-restore/pkg/config"
	"github.com/paulschiretz/pgl-wp-restore/pkg/preflight"
	"github.com/paulschiretz/pgl-wp-restore/pkg/sitearchive"
	"github.com/paulschiretz/pgl-wp-restore/pkg/sitemanager"
)

type RestorePlan struct {
	Project   string
	NewDomain string
	WorkDir   string
	DryRun    bool
	Metrics   bool

	ConfigBackupFile string
	BufferSizeKB     int

	Preflight   *preflight.Plan
	Extract     *sitearchive.Plan
	SiteManager *sitemanager.Plan
	Cleanup     *cleanup.Plan
}

// GenerateRestorePlan builds the full plan for one restore run. The archive
// path of the cleanup plan is filled in by the engine once the archive has
// been located.
func GenerateRestorePlan(cfg config.Config) (*RestorePlan, error) {
	dryRun := cfg.Runtime.DryRun

	flattenPolicy, err := sitearchive.ParseFlattenPolicy(cfg.Extract.FlattenPolicy)
	if err != nil {
		return nil, err
	}

	return &RestorePlan{
		Project:          cfg.Runtime.Project,
		NewDomain:        cfg.Runtime.NewDomain,
		WorkDir:          cfg.WorkDir,
		DryRun:           dryRun,
		Metrics:          cfg.Extract.Metrics,
		ConfigBackupFile: cfg.Cleanup.ConfigBackupFile,
		BufferSizeKB:     cfg.Extract.BufferSizeKB,
		Preflight: &preflight.Plan{
			AbsWorkDirPath:   cfg.WorkDir,
			RequiredCommands: []string{cfg.WPCLI.Bin},
			DryRun:           dryRun,
		},
		Extract: &sitearchive.Plan{
			FlattenPolicy: flattenPolicy,
			DryRun:        dryRun,
		},
		SiteManager: &sitemanager.Plan{
			Bin:            cfg.WPCLI.Bin,
			AbsWorkDirPath: cfg.WorkDir,
			DryRun:         dryRun,
		},
		Cleanup: &cleanup.Plan{
			Enabled:          cfg.Cleanup.Enabled,
			AbsWorkDirPath:   cfg.WorkDir,
			ConfigBackupFile: cfg.Cleanup.ConfigBackupFile,
			MarkerFile:       cfg.Cleanup.MarkerFile,
			HelperScript:     cfg.Cleanup.HelperScript,
			KeepArchive:      cfg.Runtime.KeepArchive,
			DeleteWorkers:    cfg.Cleanup.DeleteWorkers,
			DryRun:           dryRun,
		},
	}, nil
}
