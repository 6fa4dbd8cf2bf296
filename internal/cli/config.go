package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// appName is the application name used for directories and display.
const appName = "onionscope"

// Config holds settings read from the onionscope config file. Flags
// override whatever the file sets.
type Config struct {
	// Addr is the HTTP listen address for serve.
	Addr string `toml:"addr"`

	// Cache selects the cache backend: "file", "memory", "redis", or "none".
	Cache string `toml:"cache"`

	// RedisURL is the connection URL when Cache is "redis".
	RedisURL string `toml:"redis_url"`

	// MongoURI enables MongoDB-backed saved views when set.
	MongoURI string `toml:"mongo_uri"`

	// CacheTTLMinutes is the cache entry lifetime. Zero means the
	// default.
	CacheTTLMinutes int `toml:"cache_ttl_minutes"`
}

// LoadConfig reads the config file at path. An empty path falls back to
// the default location; a missing file at the default location is not an
// error and yields a zero config.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	explicit := path != ""
	if !explicit {
		dir, err := configDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, "config.toml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// configDir returns the config directory using the XDG standard
// (~/.config/onionscope/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// cacheDir returns the cache directory using the XDG standard
// (~/.cache/onionscope/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
