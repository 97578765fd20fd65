package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/paulschiretz/pgl-wp-restore/pkg/buildinfo"
	"github.com/paulschiretz/pgl-wp-restore/pkg/cleanup"
	"github.com/paulschiretz/pgl-wp-restore/pkg/config"
	"github.com/paulschiretz/pgl-wp-restore/pkg/confirm"
	"github.com/paulschiretz/pgl-wp-restore/pkg/engine"
	"github.com/paulschiretz/pgl-wp-restore/pkg/planner"
	"github.com/paulschiretz/pgl-wp-restore/pkg/plog"
	"github.com/paulschiretz/pgl-wp-restore/pkg/preflight"
	"github.com/paulschiretz/pgl-wp-restore/pkg/sitearchive"
	"github.com/paulschiretz/pgl-wp-restore/pkg/sitemanager"
)

// RunRestore handles the logic for the main restore execution.
func RunRestore(ctx context.Context, flagMap map[string]interface{}) error {
	workDir, ok := flagMap["workdir"].(string)
	if !ok || workDir == "" {
		return fmt.Errorf("the -workdir flag is required to run a restore")
	}

	project, ok := flagMap["project"].(string)
	if !ok || project == "" {
		return fmt.Errorf("a project name is required: pgl-wp-restore [flags] <project> [new_domain]")
	}

	// Load config from the site directory, or use defaults if not found.
	loadedConfig, err := config.Load(workDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration from site directory: %w", err)
	}

	// Merge the flag values over the loaded config to get the final run config.
	runConfig := config.MergeConfigWithFlags(loadedConfig, flagMap)
	runConfig.Runtime.Project = project
	if newDomain, ok := flagMap["new-domain"].(string); ok {
		runConfig.Runtime.NewDomain = newDomain
	}

	// CRITICAL: Validate the config for the run
	if err := runConfig.Validate(); err != nil {
		return err
	}

	// Set the global log level based on the final configuration.
	plog.SetLevel(plog.LevelFromString(runConfig.LogLevel))

	// Log the Summary
	runConfig.LogSummary()

	// Get the Plan
	restorePlan, err := planner.GenerateRestorePlan(runConfig)
	if err != nil {
		return err
	}

	// Destructive steps ask on the terminal unless -yes was given.
	var confirmer confirm.Confirmer
	if runConfig.Runtime.AssumeYes {
		confirmer = confirm.AssumeYes
	} else {
		confirmer = confirm.NewInteractive(os.Stdin, os.Stdout)
	}

	// Create the runner and feed it with our leaf workers
	runner := engine.NewRunner(
		preflight.NewValidator(),
		sitearchive.NewPathExtractor(runConfig.Extract.BufferSizeKB),
		sitemanager.NewWPCLI(restorePlan.SiteManager, exec.CommandContext),
		cleanup.NewPathCleaner(confirmer),
	)

	// Execute the plan
	startTime := time.Now()
	err = runner.ExecuteRestore(ctx, restorePlan)
	duration := time.Since(startTime).Round(time.Millisecond)
	if err != nil {
		return err // The error will be logged with full details by main()
	}
	plog.Info(buildinfo.Name+" finished successfully.", "duration", duration)
	return nil
}
