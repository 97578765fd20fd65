package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/paulschiretz/pgl-wp-restore/cmd"
	"github.com/paulschiretz/pgl-wp-restore/pkg/buildinfo"
	"github.com/paulschiretz/pgl-wp-restore/pkg/plog"
)

// action defines a special command to execute instead of a restore.
type action int

const (
	actionRunRestore action = iota // The default action is to run a restore.
	actionShowVersion
	actionInitConfig
)

// init is called before main. We use it to set up a custom, more descriptive
// help message for the command-line flags.
func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s (version %s):\n", buildinfo.Name, buildinfo.Version)
		fmt.Fprintf(flag.CommandLine.Output(), "Restores a WordPress site from a hosting panel archive export.\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  pgl-wp-restore [flags] <project> [new_domain]\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "The project name selects the archive (<project>.zip, <project>.tar.gz, ...)\n")
		fmt.Fprintf(flag.CommandLine.Output(), "inside the site directory. An optional new domain rewrites the imported\n")
		fmt.Fprintf(flag.CommandLine.Output(), "site's URLs after the database import.\n\n")
		flag.PrintDefaults()
	}
}

// parseFlagConfig defines and parses command-line flags, and constructs a
// map containing only the values provided by those flags plus the
// positional arguments.
func parseFlagConfig() (action, map[string]interface{}, error) {
	// Flags cover single-run overrides. Settings that define the long-term
	// behavior of a site (marker files, helper scripts) belong in the
	// pgl-wp-restore.config.json file written by -init.
	workDirFlag := flag.String("workdir", ".", "Site directory to restore into. This is where the archive is expected.")
	logLevelFlag := flag.String("log-level", "info", "Set the logging level: 'debug', 'notice', 'info', 'warn', 'error'.")
	dryRunFlag := flag.Bool("dry-run", false, "Show what would be done without making any changes.")
	yesFlag := flag.Bool("yes", false, "Answer all prompts with yes (unattended mode).")
	keepArchiveFlag := flag.Bool("keep-archive", false, "Never delete the site archive during cleanup.")
	wpBinFlag := flag.String("wp-bin", "wp", "The wp-cli binary used to manage the site.")
	flattenPolicyFlag := flag.String("flatten-policy", "lenient", "How to handle move failures when collapsing a wrapping directory: 'lenient' or 'strict'.")
	bufferSizeKBFlag := flag.Int("buffer-size-kb", 0, "Size of the I/O buffer in kilobytes for archive extraction.")
	metricsFlag := flag.Bool("metrics", false, "Enable detailed extraction metrics.")
	cleanupFlag := flag.Bool("cleanup", true, "Offer to delete restore artifacts after the import.")
	deleteWorkersFlag := flag.Int("delete-workers", 0, "Number of worker goroutines for deleting restore artifacts.")
	initFlag := flag.Bool("init", false, "Generate a default pgl-wp-restore.config.json file and exit.")
	versionFlag := flag.Bool("version", false, "Print the application version and exit.")

	flag.Parse()

	// Create a map of the flags that were explicitly set by the user, along
	// with their values. This map is used to selectively override the base
	// configuration.
	usedFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { usedFlags[f.Name] = true })

	flagMap := make(map[string]interface{})

	// Helper to add a value to the map only if the corresponding flag was set.
	addIfUsed := func(name string, value interface{}) {
		if usedFlags[name] {
			flagMap[name] = value
		}
	}

	// The work directory always has a value, its default is the current
	// directory.
	flagMap["workdir"] = *workDirFlag

	addIfUsed("log-level", *logLevelFlag)
	addIfUsed("dry-run", *dryRunFlag)
	addIfUsed("yes", *yesFlag)
	addIfUsed("keep-archive", *keepArchiveFlag)
	addIfUsed("wp-bin", *wpBinFlag)
	addIfUsed("flatten-policy", *flattenPolicyFlag)
	addIfUsed("buffer-size-kb", *bufferSizeKBFlag)
	addIfUsed("metrics", *metricsFlag)
	addIfUsed("cleanup", *cleanupFlag)
	addIfUsed("delete-workers", *deleteWorkersFlag)

	// Positional arguments: <project> [new_domain]
	args := flag.Args()
	if len(args) > 0 {
		flagMap["project"] = args[0]
	}
	if len(args) > 1 {
		flagMap["new-domain"] = args[1]
	}
	if len(args) > 2 {
		return actionRunRestore, nil, fmt.Errorf("too many arguments: expected <project> [new_domain], got %v", args)
	}

	// Determine which action to take based on flags.
	if *versionFlag {
		return actionShowVersion, flagMap, nil
	}
	if *initFlag {
		return actionInitConfig, flagMap, nil
	}
	return actionRunRestore, flagMap, nil
}

// run encapsulates the main application logic and returns an error if
// something goes wrong, allowing the main function to handle exit codes.
func run(ctx context.Context) error {
	action, flagMap, err := parseFlagConfig()
	if err != nil {
		return err
	}

	switch action {
	case actionShowVersion:
		return cmd.RunVersion(buildinfo.Name, buildinfo.Version)
	case actionInitConfig:
		return cmd.RunInit(flagMap)
	case actionRunRestore:
		plog.Info("Starting "+buildinfo.Name, "version", buildinfo.Version, "pid", os.Getpid())
		return cmd.RunRestore(ctx, flagMap)
	default:
		return fmt.Errorf("internal error: unknown action %d", action)
	}
}

func main() {
	// Set up a context that is canceled when an interrupt signal is received.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Listen for interrupt signals (like Ctrl+C) in a separate goroutine.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := run(ctx); err != nil {
		plog.Error(buildinfo.Name+" exited with error", "error", err)
		os.Exit(1)
	}
}
