package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/paulschiretz/pgl-wp-restore/pkg/config"
)

// RunInit generates a default config file in the site directory so the
// settings can be adjusted before the first restore.
func RunInit(flagMap map[string]interface{}) error {
	workDir, ok := flagMap["workdir"].(string)
	if !ok || workDir == "" {
		return fmt.Errorf("the -workdir flag is required for the init operation")
	}

	absWorkDirPath, err := filepath.Abs(workDir)
	if err != nil {
		return fmt.Errorf("could not determine absolute path for %s: %w", workDir, err)
	}

	// Create a config from defaults merged with user flags.
	runConfig := config.MergeConfigWithFlags(config.NewDefault(), flagMap)
	runConfig.WorkDir = absWorkDirPath

	return config.Generate(runConfig)
}
