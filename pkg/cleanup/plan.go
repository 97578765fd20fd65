package cleanup

// Plan holds the resolved settings for one cleanup run.
type Plan struct {
	// Enabled gates the whole cleanup phase.
	Enabled bool
	// AbsWorkDirPath is the site directory holding the artifacts.
	AbsWorkDirPath string
	// AbsArchivePath is the imported site archive. Empty means there is no
	// archive to offer for deletion.
	AbsArchivePath string
	// ConfigBackupFile is the wp-config.php backup left by the credential
	// swap, relative to the site directory.
	ConfigBackupFile string
	// MarkerFile is the hosting panel's import marker, relative to the site
	// directory.
	MarkerFile string
	// HelperScript is the one-shot restore helper some panels drop next to
	// the site files, relative to the site directory.
	HelperScript string
	// KeepArchive skips the archive prompt and always keeps the archive.
	KeepArchive bool
	// DeleteWorkers bounds the parallel artifact deletion.
	DeleteWorkers int
	// DryRun logs every deletion instead of executing it.
	DryRun bool
}
