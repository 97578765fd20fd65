// Package sqldump locates the SQL dump that ships inside an extracted site
// archive.
package sqldump

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// NotFoundError is returned when a directory contains no SQL dump file.
type NotFoundError struct {
	Dir string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no .sql dump file found in %s", e.Dir)
}

// FindLatest returns the absolute path of the newest SQL dump in the root of
// absDirPath. Dumps are compared by file name using natural ordering, so
// numbered exports sort the way a human expects (db-10.sql after db-9.sql).
// Subdirectories are not searched, panel exports place the dump next to the
// site files.
func FindLatest(absDirPath string) (string, error) {
	entries, err := os.ReadDir(absDirPath)
	if err != nil {
		return "", fmt.Errorf("failed to read directory: %w", err)
	}

	var dumps []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".sql") {
			dumps = append(dumps, entry.Name())
		}
	}
	if len(dumps) == 0 {
		return "", &NotFoundError{Dir: absDirPath}
	}

	sort.Sort(natural.StringSlice(dumps))

	return filepath.Join(absDirPath, dumps[len(dumps)-1]), nil
}
