// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for relman configuration.
	DefaultConfigDir = ".relman"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultProjectsFile is the default projects file name.
	DefaultProjectsFile = "projects.yaml"
	// DefaultDatabaseFile is the file name of a project database.
	DefaultDatabaseFile = "project.db"
)

var (
	// reNonAlphanumeric matches characters that aren't alphanumeric or underscore.
	reNonAlphanumeric = regexp.MustCompile(`[^a-z0-9_]`)
	// reMultipleUnderscores matches consecutive underscores.
	reMultipleUnderscores = regexp.MustCompile(`_+`)
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	Log    LogConfig    `yaml:"log,omitempty"`
	Import ImportConfig `yaml:"import,omitempty"`
	Export ExportConfig `yaml:"export,omitempty"`
	SQLite SQLiteConfig `yaml:"sqlite,omitempty"`
}

// LogConfig holds configuration for the application logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level,omitempty"`
	// Encoding is console or json.
	Encoding string `yaml:"encoding,omitempty"`
	// File receives log output instead of stderr when set.
	File string `yaml:"file,omitempty"`
}

// ImportConfig holds defaults for relation imports.
type ImportConfig struct {
	// OnConflict is skip or overwrite.
	OnConflict string `yaml:"on_conflict,omitempty"`
}

// ExportConfig holds defaults for relation exports.
type ExportConfig struct {
	// Indent is the number of spaces used to indent JSON output.
	Indent int `yaml:"indent,omitempty"`
	// Compress gzips exports written to a file.
	Compress bool `yaml:"compress,omitempty"`
}

// SQLiteConfig holds configuration for the SQLite relational database.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database.
	// For per-project databases, this is computed dynamically using SQLitePathForProject.
	Path string `yaml:"path,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:    "warn",
			Encoding: "console",
		},
		Import: ImportConfig{
			OnConflict: "skip",
		},
		Export: ExportConfig{
			Indent: 4,
		},
	}
}

// Load loads configuration from the .relman directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'relman init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("RELMAN_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if encoding := os.Getenv("RELMAN_LOG_ENCODING"); encoding != "" {
		c.Log.Encoding = encoding
	}
	if file := os.Getenv("RELMAN_LOG_FILE"); file != "" {
		c.Log.File = file
	}
	if indent := os.Getenv("RELMAN_EXPORT_INDENT"); indent != "" {
		if n, err := strconv.Atoi(indent); err == nil && n > 0 {
			c.Export.Indent = n
		}
	}
}

// ConfigDir returns the path to the .relman config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// ProjectsFilePath returns the path to the projects file.
func ProjectsFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultProjectsFile)
}

// Exists checks if a relman config exists in the given path.
func Exists(basePath string) bool {
	_, err := os.Stat(ConfigFilePath(basePath))
	return err == nil
}

// SanitizeProjectName converts a project name to a valid directory name.
func SanitizeProjectName(name string) string {
	// Convert to lowercase
	name = strings.ToLower(name)

	// Replace spaces and hyphens with underscores
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")

	// Remove any characters that aren't alphanumeric or underscore
	name = reNonAlphanumeric.ReplaceAllString(name, "")

	// Remove consecutive underscores
	name = reMultipleUnderscores.ReplaceAllString(name, "_")

	// Trim leading/trailing underscores
	name = strings.Trim(name, "_")

	if name == "" {
		return "default"
	}

	return name
}

// ProjectDir returns the directory path for a given project.
func ProjectDir(basePath, projectName string) string {
	return filepath.Join(basePath, DefaultConfigDir, "projects", SanitizeProjectName(projectName))
}

// SQLitePathForProject returns the SQLite database path for a given project.
func SQLitePathForProject(basePath, projectName string) string {
	return filepath.Join(ProjectDir(basePath, projectName), DefaultDatabaseFile)
}
