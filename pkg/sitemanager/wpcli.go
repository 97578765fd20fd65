package sitemanager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/paulschiretz/pgl-wp-restore/pkg/plog"
)

// stderrTailLimit bounds how much stderr a CommandError carries.
const stderrTailLimit = 2048

// WPCLI drives a WordPress installation through the wp-cli binary.
type WPCLI struct {
	plan *Plan
	// commandContext allows mocking os/exec for testing.
	commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

// Compile time interface check.
var _ SiteManager = (*WPCLI)(nil)

// NewWPCLI creates a WPCLI bound to the given plan.
func NewWPCLI(p *Plan, commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd) *WPCLI {
	return &WPCLI{
		plan:           p,
		commandContext: commandContext,
	}
}

// ConfigSet writes a wp-config.php parameter via "wp config set". Values of
// DB_PASSWORD are redacted in log output.
func (w *WPCLI) ConfigSet(ctx context.Context, name, value string) error {
	logged := value
	if name == "DB_PASSWORD" {
		logged = "[redacted]"
	}
	plog.Info("Setting config parameter", "name", name, "value", logged)
	_, err := w.run(ctx, "config", "set", name, value)
	return err
}

// DBReset drops and recreates all tables via "wp db reset".
func (w *WPCLI) DBReset(ctx context.Context) error {
	plog.Notice("Resetting database")
	_, err := w.run(ctx, "db", "reset", "--yes")
	return err
}

// DBImport imports the SQL dump at absDumpPath via "wp db import".
func (w *WPCLI) DBImport(ctx context.Context, absDumpPath string) error {
	plog.Notice("Importing database dump", "dump", absDumpPath)
	_, err := w.run(ctx, "db", "import", absDumpPath)
	return err
}

// SiteURL returns the siteurl option of the installation.
func (w *WPCLI) SiteURL(ctx context.Context) (string, error) {
	out, err := w.run(ctx, "option", "get", "siteurl")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// SearchReplace rewrites oldValue to newValue across all tables via
// "wp search-replace".
func (w *WPCLI) SearchReplace(ctx context.Context, oldValue, newValue string) error {
	plog.Notice("Rewriting database values", "old", oldValue, "new", newValue)
	_, err := w.run(ctx, "search-replace", oldValue, newValue, "--all-tables")
	return err
}

// CacheFlush clears the object cache via "wp cache flush".
func (w *WPCLI) CacheFlush(ctx context.Context) error {
	plog.Info("Flushing object cache")
	_, err := w.run(ctx, "cache", "flush")
	return err
}

// run executes the management CLI with the given arguments and returns its
// stdout. A non-zero exit is reported as a CommandError carrying the tail of
// stderr.
func (w *WPCLI) run(ctx context.Context, args ...string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	if w.plan.DryRun {
		plog.Info("[DRY RUN] Executing command", "bin", w.plan.Bin, "args", strings.Join(args, " "))
		return "", nil
	}
	plog.Debug("Executing command", "bin", w.plan.Bin, "args", strings.Join(args, " "))

	cmd := w.createCommand(ctx, args...)
	cmd.Dir = w.plan.AbsWorkDirPath

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// Check if the context was canceled, which can cause cmd.Wait() to return an error.
		// If so, we should return the context's error to be more specific.
		if ctx.Err() == context.Canceled {
			return "", context.Canceled
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &CommandError{
				Bin:      w.plan.Bin,
				Args:     args,
				ExitCode: exitErr.ExitCode(),
				Stderr:   stderrTail(&stderr),
			}
		}
		return "", fmt.Errorf("failed to run %s: %w", w.plan.Bin, err)
	}
	return stdout.String(), nil
}

// stderrTail returns the trailing portion of the captured stderr, trimmed to
// stderrTailLimit bytes.
func stderrTail(buf *bytes.Buffer) string {
	s := strings.TrimSpace(buf.String())
	if len(s) > stderrTailLimit {
		s = s[len(s)-stderrTailLimit:]
	}
	return s
}
