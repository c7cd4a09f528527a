// Package config loads scraper configuration from a YAML file and provides
// the logger constructor shared by the CLI commands.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the structure of ~/.confcast/config.yaml. The file is
// unmarshalled over the defaults, so a partial file only overrides the keys
// it names.
type Config struct {
	// Language is the three-letter content language code, e.g. "eng".
	Language string `yaml:"language"`
	// SessionAudio includes full-session audio in archives and feeds.
	SessionAudio bool `yaml:"session_audio"`
	// TalkAudio includes per-talk audio in archives and feeds.
	TalkAudio bool `yaml:"talk_audio"`
	// DelayMs is the minimum delay between upstream requests.
	DelayMs int `yaml:"delay_ms"`
	// CacheDir holds fetched pages keyed by URL.
	CacheDir string `yaml:"cache_dir"`
	// UseCache enables the page cache.
	UseCache bool `yaml:"use_cache"`
	// OutputDir receives conference archive JSON files.
	OutputDir string `yaml:"output_dir"`
	// BaseURL overrides the upstream site, mainly for tests.
	BaseURL string `yaml:"base_url"`
	// RunsDB is the path of the scrape run history database.
	RunsDB string `yaml:"runs_db"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Language:     "eng",
		SessionAudio: true,
		TalkAudio:    true,
		DelayMs:      1000,
		CacheDir:     ".confcast-cache",
		UseCache:     true,
		OutputDir:    "archives",
		RunsDB:       "confcast.db",
	}
}

// DefaultPath returns ~/.confcast/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".confcast", "config.yaml"), nil
}

// Load reads configuration from the given path. A missing file is not an
// error; defaults are returned. A file that exists but cannot be parsed is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "archives"
	}
	if cfg.RunsDB == "" {
		cfg.RunsDB = "confcast.db"
	}

	return cfg, nil
}

// Delay returns DelayMs as a duration.
func (c *Config) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}
