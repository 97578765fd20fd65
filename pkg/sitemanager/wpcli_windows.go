//go:build windows

package sitemanager

import (
	"context"
	"os/exec"

	"golang.org/x/sys/windows"
)

// createCommand creates an exec.Cmd for the management CLI on Windows.
func (w *WPCLI) createCommand(ctx context.Context, args ...string) *exec.Cmd {
	cmd := w.commandContext(ctx, w.plan.Bin, args...)
	// On Windows, create a new process group to ensure that when the context is
	// canceled, the entire process tree is terminated, not just the parent
	// process. This is crucial for killing child processes spawned by the CLI.
	cmd.SysProcAttr = &windows.SysProcAttr{CreationFlags: windows.CREATE_NEW_PROCESS_GROUP}
	return cmd
}
