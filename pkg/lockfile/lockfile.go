// Package lockfile guards a site directory against concurrent restore runs.
//
// A restore is a single-shot operation, so the lock is a simple O_EXCL
// marker file with a staleness window instead of a heartbeat. Two restores
// into the same directory at the same time would interleave extraction and
// database imports, so acquisition failure is fatal for the run.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/paulschiretz/pgl-wp-restore/pkg/plog"
	"github.com/paulschiretz/pgl-wp-restore/pkg/util"
)

// LockFileName is the name of the lock file created in the site directory.
// The '~' prefix marks it as temporary.
const LockFileName = ".~pgl-wp-restore.lock"

// staleTimeout is how old a lock may be before it is considered abandoned.
// Var to allow modification during testing.
var staleTimeout = 2 * time.Hour

// LockContent defines the structure of the data written to the lock file.
type LockContent struct {
	PID        int64     `json:"pid"`
	Hostname   string    `json:"hostname"`
	StartedUTC time.Time `json:"startedUTC"`
	AppID      string    `json:"appID"`
}

// ErrLockActive is a structured error returned when another restore is
// already running in the directory.
type ErrLockActive struct {
	PID       int64
	Hostname  string
	AppID     string
	TimeSince time.Duration
}

// Error implements the error interface for ErrLockActive.
func (e *ErrLockActive) Error() string {
	// Truncate for cleaner output, e.g., "3m2s" instead of "3m2.123456789s".
	return fmt.Sprintf("restore already running, lock held by PID %d on host '%s' (App: %s), started %s ago", e.PID, e.Hostname, e.AppID, e.TimeSince.Truncate(time.Second))
}

// ErrCorruptLockFile indicates that the lock file on disk is unreadable, either empty or containing invalid JSON.
var ErrCorruptLockFile = errors.New("lock file is corrupt or empty")

// Lock represents a held restore lock.
type Lock struct {
	path string
	held bool
}

// Acquire attempts to create the lock file in dirPath. A lock older than the
// staleness window or with unreadable content is taken over.
func Acquire(dirPath string, appID string) (*Lock, error) {
	absLockFilePath := filepath.Join(dirPath, LockFileName)

	lock, err := tryAcquire(absLockFilePath, appID)
	if err == nil {
		return lock, nil
	}
	if !os.IsExist(err) {
		return nil, fmt.Errorf("failed to access lock file: %w", err)
	}

	content, readErr := readLockContent(absLockFilePath)
	if readErr != nil {
		if !errors.Is(readErr, ErrCorruptLockFile) {
			return nil, fmt.Errorf("failed to inspect existing lock file: %w", readErr)
		}
		plog.Warn("Found corrupt lock file, treating as stale", "path", absLockFilePath)
	} else {
		elapsed := time.Since(content.StartedUTC)
		if elapsed < staleTimeout {
			return nil, &ErrLockActive{
				PID:       content.PID,
				Hostname:  content.Hostname,
				AppID:     content.AppID,
				TimeSince: elapsed,
			}
		}
		plog.Warn("Found stale lock, taking over", "pid", content.PID, "age", elapsed.Truncate(time.Second))
	}

	if err := os.Remove(absLockFilePath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove stale lock file: %w", err)
	}
	lock, err = tryAcquire(absLockFilePath, appID)
	if err != nil {
		if os.IsExist(err) {
			// Another process grabbed the lock between removal and creation.
			return nil, fmt.Errorf("lost race during stale lock takeover")
		}
		return nil, fmt.Errorf("failed to access lock file: %w", err)
	}
	return lock, nil
}

// tryAcquire attempts atomic creation using O_EXCL to guarantee "I created this file first".
func tryAcquire(absLockFilePath string, appID string) (*Lock, error) {
	f, err := os.OpenFile(absLockFilePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, util.UserWritableFilePerms)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	content := LockContent{
		PID:        int64(os.Getpid()),
		Hostname:   hostname,
		StartedUTC: time.Now().UTC(),
		AppID:      appID,
	}
	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(content); err != nil {
		os.Remove(absLockFilePath)
		return nil, fmt.Errorf("failed to write lock content: %w", err)
	}

	return &Lock{path: absLockFilePath, held: true}, nil
}

// readLockContent reads and parses an existing lock file.
func readLockContent(absLockFilePath string) (*LockContent, error) {
	data, err := os.ReadFile(absLockFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCorruptLockFile
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrCorruptLockFile
	}
	var content LockContent
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, ErrCorruptLockFile
	}
	return &content, nil
}

// Release removes the lock file. Safe to call more than once.
func (l *Lock) Release() {
	if !l.held {
		return
	}
	l.held = false
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		plog.Warn("Failed to remove lock file", "path", l.path, "error", err)
	}
}
