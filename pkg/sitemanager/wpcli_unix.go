//go:build !windows

package sitemanager

import (
	"context"
	"os/exec"

	"golang.org/x/sys/unix"
)

// createCommand creates an exec.Cmd for the management CLI on Unix-like systems.
func (w *WPCLI) createCommand(ctx context.Context, args ...string) *exec.Cmd {
	cmd := w.commandContext(ctx, w.plan.Bin, args...)
	// On Unix-like systems, create a new process group (PGRP) and make the command
	// the session leader. This allows sending signals to the entire process group
	// when the context is canceled, ensuring all child processes are terminated.
	cmd.SysProcAttr = &unix.SysProcAttr{Setpgid: true}
	return cmd
}
