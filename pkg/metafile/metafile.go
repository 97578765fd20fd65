// Package metafile writes the restore receipt left in the site directory
// after a successful run.
package metafile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/paulschiretz/pgl-wp-restore/pkg/util"
)

// MetaFileName is the name of the restore receipt file.
const MetaFileName = ".pgl-wp-restore.meta.json"

// MetafileContent holds the contents of the restore receipt.
type MetafileContent struct {
	Version       string    `json:"version"`
	TimestampUTC  time.Time `json:"timestampUTC"`
	Project       string    `json:"project"`
	ArchiveFormat string    `json:"archiveFormat"`
	SQLDump       string    `json:"sqlDump,omitempty"`
	OldDomain     string    `json:"oldDomain,omitempty"`
	NewDomain     string    `json:"newDomain,omitempty"`
}

// Write creates the .pgl-wp-restore.meta.json file in the given directory,
// replacing any receipt from a previous run.
func Write(dirPath string, content *MetafileContent) error {
	metaFilePath := filepath.Join(dirPath, MetaFileName)
	jsonData, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal meta data: %w", err)
	}

	if err := os.WriteFile(metaFilePath, jsonData, util.UserWritableFilePerms); err != nil {
		return fmt.Errorf("could not write meta file %s: %w", metaFilePath, err)
	}

	return nil
}

// Read opens and parses the restore receipt in a given directory.
func Read(dirPath string) (MetafileContent, error) {
	metaFilePath := filepath.Join(dirPath, MetaFileName)
	metaFile, err := os.Open(metaFilePath)
	if err != nil {
		// Note: os.IsNotExist errors are handled by the caller.
		return MetafileContent{}, err // Return the original error so os.IsNotExist works.
	}
	defer metaFile.Close()

	var content MetafileContent
	decoder := json.NewDecoder(metaFile)
	if err := decoder.Decode(&content); err != nil {
		return MetafileContent{}, fmt.Errorf("could not parse metafile %s: %w. It may be corrupt", metaFilePath, err)
	}

	return content, nil
}
