// Package config loads the canto client environment: where the catalog
// lives, which zone and identity to operate as, and session tuning. The
// environment file is TOML, found at $CANTO_ENV or ~/.canto/config; missing
// files fall back to defaults so ad hoc local use needs no setup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// EnvVar names the environment variable overriding the config location.
const EnvVar = "CANTO_ENV"

const defaultDir = ".canto"
const defaultFile = "config"

// Catalog locates the catalog store and the identity used against it.
type Catalog struct {
	// Path is the embedded catalog database file. A remote driver would
	// carry its address here instead.
	Path string `toml:"path"`
	Zone string `toml:"zone"`
	User string `toml:"user"`
	// ChunkSize caps rows per query chunk.
	ChunkSize int `toml:"chunk_size"`
}

// Session tunes the shared-connection lifecycle.
type Session struct {
	// IdleTimeout is a duration string; the connection is closed after
	// this long without a work item needing it.
	IdleTimeout string `toml:"idle_timeout"`
}

// Config is the loaded client environment.
type Config struct {
	Catalog Catalog `toml:"catalog"`
	Session Session `toml:"session"`
}

// Default returns the built-in environment.
func Default() *Config {
	return &Config{
		Catalog: Catalog{Zone: "tempZone"},
	}
}

// Load reads the environment file at path, or at $CANTO_ENV, or at
// ~/.canto/config, in that order of preference. A missing file yields the
// defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Default(), nil
		}
		path = filepath.Join(home, defaultDir, defaultFile)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	return cfg, nil
}

// IdleTimeout parses the configured idle timeout. Zero means "use the
// pipeline default"; the pipeline enforces the minimum.
func (c *Config) IdleTimeout() (time.Duration, error) {
	if c.Session.IdleTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Session.IdleTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid idle_timeout %q: %w", c.Session.IdleTimeout, err)
	}
	return d, nil
}

// Save writes the environment file, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
