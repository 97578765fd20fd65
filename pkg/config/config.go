package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-wp-restore/pkg/buildinfo"
	"github.com/paulschiretz/pgl-wp-restore/pkg/plog"
	"github.com/paulschiretz/pgl-wp-restore/pkg/sitearchive"
	"github.com/paulschiretz/pgl-wp-restore/pkg/util"
)

// ConfigFileName is the name of the configuration file.
const ConfigFileName = "pgl-wp-restore.config.json"

type WPCLIConfig struct {
	// Bin is the wp-cli binary to invoke. Resolved on the PATH unless an
	// absolute path is given.
	Bin string `json:"bin"`
}

type ExtractConfig struct {
	// FlattenPolicy controls how wrapper directory move failures are
	// handled, "lenient" or "strict".
	FlattenPolicy string `json:"flattenPolicy"`
	BufferSizeKB  int    `json:"bufferSizeKB" comment:"Size of the I/O buffer in kilobytes for archive extraction. Default is 256 (256KB)."`
	Metrics       bool   `json:"metrics"`
}

type CleanupConfig struct {
	Enabled bool `json:"enabled"`
	// ConfigBackupFile is where the live wp-config.php is preserved before
	// extraction overwrites it, relative to the site directory.
	ConfigBackupFile string `json:"configBackupFile"`
	// MarkerFile and HelperScript are leftovers some hosting panels place
	// next to the imported site. Empty disables the respective cleanup.
	MarkerFile    string `json:"markerFile"`
	HelperScript  string `json:"helperScript"`
	DeleteWorkers int    `json:"deleteWorkers"`
}

type RuntimeConfig struct {
	Project     string
	NewDomain   string
	DryRun      bool
	AssumeYes   bool
	KeepArchive bool
}

type Config struct {
	Version  string        `json:"version"`
	WorkDir  string        `json:"-"` // Never added to config file
	Runtime  RuntimeConfig `json:"-"` // Never added to config file
	LogLevel string        `json:"logLevel"`
	WPCLI    WPCLIConfig   `json:"wpcli"`
	Extract  ExtractConfig `json:"extract"`
	Cleanup  CleanupConfig `json:"cleanup"`
}

// NewDefault creates and returns a Config struct with sensible default
// values.
func NewDefault() Config {
	return Config{
		Version:  buildinfo.Version,
		WorkDir:  "",     // Intentionally empty to force user configuration.
		LogLevel: "info", // Default log level.
		WPCLI: WPCLIConfig{
			Bin: "wp",
		},
		Extract: ExtractConfig{
			FlattenPolicy: "lenient",
			BufferSizeKB:  256, // Default to 256KB buffer. Keep it between 64KB-4MB
			Metrics:       true,
		},
		Cleanup: CleanupConfig{
			Enabled:          true,
			ConfigBackupFile: "wp-config.php.bak",
			MarkerFile:       "",
			HelperScript:     "",
			DeleteWorkers:    4,
		},
	}
}

// Load attempts to load a configuration from "pgl-wp-restore.config.json" in
// the site directory. If the file doesn't exist, it returns the default
// config without an error. If the file exists but fails to parse, it returns
// an error and a zero-value config.
func Load(workDir string) (Config, error) {
	absWorkDirPath, err := filepath.Abs(workDir)
	if err != nil {
		return Config{}, fmt.Errorf("could not determine absolute path for load directory %s: %w", workDir, err)
	}

	configPath := filepath.Join(absWorkDirPath, ConfigFileName)

	file, err := os.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := NewDefault()
			cfg.WorkDir = absWorkDirPath
			return cfg, nil // Config file doesn't exist, which is a normal case.
		}
		return Config{}, fmt.Errorf("error opening config file %s: %w", configPath, err)
	}
	defer file.Close()

	plog.Info("Loading configuration", "path", configPath)
	// Start with default values, then overwrite with the file's content.
	// This makes the config loading resilient to missing fields in the JSON file.
	config := NewDefault()
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return Config{}, fmt.Errorf("error parsing config file %s: %w", configPath, err)
	}

	config.WorkDir = absWorkDirPath

	if config.Version != buildinfo.Version {
		config.Version = buildinfo.Version
	}
	return config, nil
}

// Generate creates or overwrites a default pgl-wp-restore.config.json file
// in the site directory.
func Generate(configToGenerate Config) error {
	configPath := filepath.Join(configToGenerate.WorkDir, ConfigFileName)
	jsonData, err := json.MarshalIndent(configToGenerate, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal default config to JSON: %w", err)
	}

	if err := os.WriteFile(configPath, jsonData, util.UserWritableFilePerms); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	plog.Info("Successfully saved config file", "path", configPath)
	return nil
}

// Validate checks the configuration for logical errors and inconsistencies.
// It also canonicalizes the work directory and the new domain.
func (c *Config) Validate() error {
	if c.WorkDir == "" {
		return fmt.Errorf("work directory cannot be empty")
	}

	var err error
	c.WorkDir, err = util.ExpandPath(c.WorkDir)
	if err != nil {
		return fmt.Errorf("could not expand work directory: %w", err)
	}
	c.WorkDir = filepath.Clean(c.WorkDir)

	if c.Runtime.Project == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	if strings.ContainsAny(c.Runtime.Project, `\/`) {
		return fmt.Errorf("project name cannot contain path separators ('/' or '\\')")
	}

	// The new domain is stored as a bare host. A pasted URL is accepted and
	// reduced to its host part, the scheme is always https on rewrite.
	if c.Runtime.NewDomain != "" {
		domain := c.Runtime.NewDomain
		domain = strings.TrimPrefix(domain, "https://")
		domain = strings.TrimPrefix(domain, "http://")
		domain = strings.TrimSuffix(domain, "/")
		if domain == "" || strings.ContainsAny(domain, " \t") {
			return fmt.Errorf("invalid new domain: %q", c.Runtime.NewDomain)
		}
		c.Runtime.NewDomain = domain
	}

	if c.WPCLI.Bin == "" {
		return fmt.Errorf("wpcli.bin cannot be empty")
	}

	if _, err := sitearchive.ParseFlattenPolicy(c.Extract.FlattenPolicy); err != nil {
		return fmt.Errorf("extract.flattenPolicy is invalid: %w", err)
	}
	if c.Extract.BufferSizeKB <= 0 {
		return fmt.Errorf("extract.bufferSizeKB must be greater than 0")
	}

	if c.Cleanup.DeleteWorkers < 1 {
		return fmt.Errorf("cleanup.deleteWorkers must be at least 1")
	}

	return nil
}

// LogSummary prints a user-friendly summary of the configuration to the log.
func (c *Config) LogSummary() {
	logArgs := []interface{}{
		"project", c.Runtime.Project,
		"work_dir", c.WorkDir,
		"log_level", c.LogLevel,
		"dry_run", c.Runtime.DryRun,
		"wpcli_bin", c.WPCLI.Bin,
		"flatten_policy", c.Extract.FlattenPolicy,
		"buffer_size_kb", c.Extract.BufferSizeKB,
		"metrics", c.Extract.Metrics,
	}
	if c.Runtime.NewDomain != "" {
		logArgs = append(logArgs, "new_domain", c.Runtime.NewDomain)
	}
	if c.Cleanup.Enabled {
		cleanupSummary := fmt.Sprintf("enabled (w:%d)", c.Cleanup.DeleteWorkers)
		logArgs = append(logArgs, "cleanup", cleanupSummary)
	}
	if c.Runtime.KeepArchive {
		logArgs = append(logArgs, "keep_archive", true)
	}
	if c.Runtime.AssumeYes {
		logArgs = append(logArgs, "assume_yes", true)
	}
	plog.Info("Configuration loaded", logArgs...)
}

// MergeConfigWithFlags overlays the configuration values from flags on top
// of a base configuration. It iterates over the setFlags map, which contains
// only the flags explicitly provided by the user on the command line.
func MergeConfigWithFlags(base Config, setFlags map[string]any) Config {
	merged := base

	for name, value := range setFlags {
		switch name {
		case "workdir":
			merged.WorkDir = value.(string)
		case "log-level":
			merged.LogLevel = value.(string)
		case "dry-run":
			merged.Runtime.DryRun = value.(bool)
		case "yes":
			merged.Runtime.AssumeYes = value.(bool)
		case "keep-archive":
			merged.Runtime.KeepArchive = value.(bool)
		case "wp-bin":
			merged.WPCLI.Bin = value.(string)
		case "flatten-policy":
			merged.Extract.FlattenPolicy = value.(string)
		case "buffer-size-kb":
			merged.Extract.BufferSizeKB = value.(int)
		case "metrics":
			merged.Extract.Metrics = value.(bool)
		case "cleanup":
			merged.Cleanup.Enabled = value.(bool)
		case "delete-workers":
			merged.Cleanup.DeleteWorkers = value.(int)
		default:
			plog.Debug("unhandled flag in MergeConfigWithFlags", "flag", name)
		}
	}
	return merged
}
