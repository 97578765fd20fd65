// Package sitemanager talks to an installed WordPress site through its
// management CLI.
//
// All database and option mutations of the restore pipeline go through the
// SiteManager interface, so the engine never shells out directly and tests
// can substitute a fake.
package sitemanager

import (
	"context"
	"fmt"
)

// SiteManager is the capability surface the restore pipeline needs from a
// WordPress installation.
type SiteManager interface {
	// ConfigSet writes a single wp-config.php parameter.
	ConfigSet(ctx context.Context, name, value string) error
	// DBReset drops and recreates all tables in the configured database.
	DBReset(ctx context.Context) error
	// DBImport imports the SQL dump at absDumpPath into the database.
	DBImport(ctx context.Context, absDumpPath string) error
	// SiteURL returns the siteurl option of the installation.
	SiteURL(ctx context.Context) (string, error)
	// SearchReplace rewrites oldValue to newValue across all tables.
	SearchReplace(ctx context.Context, oldValue, newValue string) error
	// CacheFlush clears the object cache.
	CacheFlush(ctx context.Context) error
}

// CommandError is returned when a management CLI invocation exits non-zero.
// It carries the tail of stderr so the failure is diagnosable without
// re-running the command by hand.
type CommandError struct {
	Bin      string
	Args     []string
	ExitCode int
	Stderr   string
}

// Error implements the error interface for CommandError.
func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s %v exited with code %d", e.Bin, e.Args, e.ExitCode)
	}
	return fmt.Sprintf("%s %v exited with code %d: %s", e.Bin, e.Args, e.ExitCode, e.Stderr)
}
