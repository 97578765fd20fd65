package preflight

// Plan holds the resolved settings for one preflight run.
type Plan struct {
	// AbsWorkDirPath is the site directory the restore will operate on.
	AbsWorkDirPath string
	// RequiredCommands are external binaries that must be on the PATH.
	RequiredCommands []string

	// Global Flags
	DryRun bool
}
