// Package preflight provides validation checks that run before a restore
// begins. The checks are designed to be stateless and idempotent, ensuring
// the system is in a suitable state before anything destructive happens.
package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/paulschiretz/pgl-wp-restore/pkg/plog"
)

// MissingCommandError is returned when a required external command is not
// found on the PATH.
type MissingCommandError struct {
	Command string
}

// Error implements the error interface for MissingCommandError.
func (e *MissingCommandError) Error() string {
	return fmt.Sprintf("required command not found on PATH: %s", e.Command)
}

// Validator runs the preflight checks of a restore.
type Validator struct {
	// lookPath allows mocking exec.LookPath for testing.
	lookPath func(file string) (string, error)
}

// NewValidator creates a Validator resolving commands via exec.LookPath.
func NewValidator() *Validator {
	return &Validator{lookPath: exec.LookPath}
}

// Run executes all checks of the plan. The first failing check aborts, a
// broken environment must be reported before the site directory is touched.
func (v *Validator) Run(ctx context.Context, p *Plan) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	plog.Debug("Running preflight checks", "dir", p.AbsWorkDirPath)

	for _, command := range p.RequiredCommands {
		resolved, err := v.lookPath(command)
		if err != nil {
			return &MissingCommandError{Command: command}
		}
		plog.Debug("Found required command", "command", command, "path", resolved)
	}

	if err := CheckSiteDirAccessible(p.AbsWorkDirPath); err != nil {
		return err
	}
	if !p.DryRun {
		if err := CheckSiteDirWritable(p.AbsWorkDirPath); err != nil {
			return err
		}
	}

	return nil
}

// CheckSiteDirAccessible validates that the site directory exists and is a
// directory. It provides more user-friendly errors than letting the first
// extraction write fail.
func CheckSiteDirAccessible(dirPath string) error {
	info, err := os.Stat(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("site directory %s does not exist", dirPath)
		}
		return fmt.Errorf("cannot access site directory %s: %w", dirPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("site path %s is not a directory", dirPath)
	}
	return nil
}

// CheckSiteDirWritable ensures the site directory is writable by performing
// an actual filesystem modification.
func CheckSiteDirWritable(dirPath string) error {
	tempFile := filepath.Join(dirPath, ".pgl-wp-restore-writetest.tmp")
	f, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("site directory %s is not writable: %w", dirPath, err)
	}
	f.Close()
	_ = os.Remove(tempFile)
	return nil
}
