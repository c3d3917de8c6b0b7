// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/user/rewind/pkg/engine"
	"github.com/user/rewind/pkg/ports"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when a configuration value is out of range.
var ErrInvalid = errors.New("config: invalid value")

// Config represents the full configuration for rewind.
type Config struct {
	// Playback policy
	CacheSize     int     `yaml:"cache_size"`
	SyncTolerance float64 `yaml:"sync_tolerance"`
	TickRate      int     `yaml:"tick_rate"`

	// Decoding
	FFmpegPath string `yaml:"ffmpeg_path"`

	// Index cache and resume positions
	IndexCache IndexCacheConfig `yaml:"index_cache"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// IndexCacheConfig configures the on-disk timeline cache.
type IndexCacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		CacheSize:     engine.DefaultOptions().CacheSize,
		SyncTolerance: engine.DefaultSyncTolerance,
		TickRate:      60,

		IndexCache: IndexCacheConfig{
			Enabled: true,
			Path:    DefaultIndexCachePath(),
		},

		LogLevel: "info",
	}
}

// DefaultIndexCachePath returns the index database location under the user
// cache directory, falling back to the working directory.
func DefaultIndexCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "rewind.db"
	}
	return filepath.Join(dir, "rewind", "index.db")
}

// DefaultPath returns the config file location under the user config
// directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "rewind.yaml"
	}
	return filepath.Join(dir, "rewind", "config.yaml")
}

// LoadDefault loads DefaultPath when it exists and returns the defaults
// otherwise.
func LoadDefault(fs ports.FileSystem) (Config, error) {
	path := DefaultPath()
	exists, err := fs.Exists(path)
	if err != nil {
		return Defaults(), fmt.Errorf("check config: %w", err)
	}
	if !exists {
		return Defaults(), nil
	}
	return Load(fs, path)
}

// Load reads a YAML file through fs on top of the defaults.
func Load(fs ports.FileSystem, path string) (Config, error) {
	cfg := Defaults()

	data, err := fs.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.CacheSize < 2 {
		return fmt.Errorf("%w: cache_size must be at least 2, got %d", ErrInvalid, c.CacheSize)
	}
	if c.SyncTolerance <= 0 {
		return fmt.Errorf("%w: sync_tolerance must be positive, got %v", ErrInvalid, c.SyncTolerance)
	}
	if c.TickRate < 1 || c.TickRate > 1000 {
		return fmt.Errorf("%w: tick_rate must be in [1, 1000], got %d", ErrInvalid, c.TickRate)
	}
	if c.IndexCache.Enabled && c.IndexCache.Path == "" {
		return fmt.Errorf("%w: index_cache.path is required when the cache is enabled", ErrInvalid)
	}
	return nil
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Level returns the configured log level.
func (c Config) Level() ports.LogLevel {
	return ports.ParseLogLevel(c.LogLevel)
}

// ToEngineOptions converts Config to engine.Options.
func (c Config) ToEngineOptions() engine.Options {
	return engine.Options{
		CacheSize:     c.CacheSize,
		SyncTolerance: c.SyncTolerance,
	}
}
