package sitearchive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Archive identifies a located site archive on disk together with its format
// tag. The tag is derived from the suffix that matched during probing.
type Archive struct {
	Path   string
	Format Format
}

// NotFoundError is returned when no archive exists for a project under any of
// the supported suffixes.
type NotFoundError struct {
	Project string
	Dir     string
	Tried   []string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no archive found for project %q in %s (tried suffixes: %s)",
		e.Project, e.Dir, strings.Join(e.Tried, ", "))
}

// Locate probes the working directory for "<project><suffix>" in the fixed
// probe order and returns the first existing regular file. The returned
// Archive carries the format tag; callers never inspect the suffix again.
func Locate(absWorkDirPath, project string) (Archive, error) {
	tried := make([]string, 0, len(probeOrder))
	for _, format := range probeOrder {
		tried = append(tried, format.Suffix())

		candidate := filepath.Join(absWorkDirPath, project+format.Suffix())
		info, err := os.Stat(candidate)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Archive{}, fmt.Errorf("could not stat archive candidate %s: %w", candidate, err)
		}
		if info.IsDir() {
			continue // A directory named like an archive is not an archive.
		}
		return Archive{Path: candidate, Format: format}, nil
	}
	return Archive{}, &NotFoundError{Project: project, Dir: absWorkDirPath, Tried: tried}
}
