// Package config provides configuration loading and structs for the folio server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Reader  ReaderConfig  `yaml:"reader"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the cursor database and the book library.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	LibraryPath  string `yaml:"library_path"`
}

// ReaderConfig holds pagination settings.
type ReaderConfig struct {
	// PageBudget is the maximum characters per page.
	PageBudget int `yaml:"page_budget"`
	// ParagraphsPerPage is a paragraph grouping hint carried alongside the
	// budget; the budget alone decides page splits.
	ParagraphsPerPage int `yaml:"paragraphs_per_page"`
}

// WatchConfig holds inbox-directory settings. Files named "<user>.epub"
// dropped into the directory are treated as uploads for that user.
type WatchConfig struct {
	Directory  string   `yaml:"directory"`
	Extensions []string `yaml:"extensions"`
}

// Load reads and parses the config file at path, applies defaults, and
// expands paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.LibraryPath = expandPath(cfg.Storage.LibraryPath, configDir)
	if cfg.Watch.Directory != "" {
		cfg.Watch.Directory = expandPath(cfg.Watch.Directory, configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
