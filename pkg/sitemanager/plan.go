package sitemanager

// Plan holds the resolved settings for driving the management CLI of a
// single site.
type Plan struct {
	// Bin is the management CLI binary, usually "wp" on the PATH.
	Bin string
	// AbsWorkDirPath is the WordPress root the CLI operates on.
	AbsWorkDirPath string
	// DryRun logs every invocation instead of executing it.
	DryRun bool
}
