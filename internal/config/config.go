// Package config defines the typed configuration surface bound from CLI
// flags, environment variables, and an optional config file, following the
// teacher's viper/cobra/mapstructure pattern generalized to this project's
// smaller configuration surface.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maric-labs/registrytools/internal/model"
	"github.com/maric-labs/registrytools/internal/registryerr"
)

// Config is the full runtime configuration, bound via viper with
// mapstructure tags mirroring the CLI flag / env var table in spec §6.
type Config struct {
	DataPath  string `mapstructure:"data_path"`
	Transport string `mapstructure:"transport"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Path      string `mapstructure:"path"`

	LogLevel string `mapstructure:"log_level"`

	EnableAuth   bool   `mapstructure:"enable_auth"`
	SearchMethod string `mapstructure:"search_method"`
	Description  string `mapstructure:"description"`
	Device       string `mapstructure:"device"`

	HotUseFrequency  int           `mapstructure:"hot_use_frequency"`
	WarmUseFrequency int           `mapstructure:"warm_use_frequency"`
	HotInactive      time.Duration `mapstructure:"hot_inactive"`
	WarmInactive     time.Duration `mapstructure:"warm_inactive"`

	StorageBackend string `mapstructure:"storage_backend"`
}

const defaultDescription = "Tool registry and discovery service"

// Default returns a Config matching every default in spec §6's CLI table.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataPath:         filepath.Join(home, ".registrytools"),
		Transport:        "stdio",
		Host:             "127.0.0.1",
		Port:             8000,
		Path:             "/",
		LogLevel:         "INFO",
		EnableAuth:       false,
		SearchMethod:     "bm25",
		Description:      defaultDescription,
		Device:           "cpu",
		HotUseFrequency:  10,
		WarmUseFrequency: 3,
		HotInactive:      30 * 24 * time.Hour,
		WarmInactive:     60 * 24 * time.Hour,
		StorageBackend:   "json",
	}
}

// Thresholds derives the registry's tier thresholds from this config.
func (c Config) Thresholds() model.Thresholds {
	return model.Thresholds{
		HotUseFrequency:  c.HotUseFrequency,
		WarmUseFrequency: c.WarmUseFrequency,
		HotInactive:      c.HotInactive,
		WarmInactive:     c.WarmInactive,
	}
}

// ToolStorePath returns the path to the tool store file for the configured
// backend, under DataPath.
func (c Config) ToolStorePath() string {
	if c.StorageBackend == "sql" {
		return filepath.Join(c.DataPath, "tools.db")
	}
	return filepath.Join(c.DataPath, "tools.json")
}

// AuthStorePath returns the path to the API-key bbolt database.
func (c Config) AuthStorePath() string {
	return filepath.Join(c.DataPath, "apikeys.db")
}

// Validate rejects a configuration that would fail before the event loop
// starts, per spec §7's "configuration" error kind.
func (c Config) Validate() error {
	if c.Transport != "stdio" && c.Transport != "http" {
		return fmt.Errorf("unknown transport %q, must be stdio or http: %w", c.Transport, registryerr.ErrConfiguration)
	}
	if _, ok := model.ParseSearchMethod(c.SearchMethod); !ok {
		return fmt.Errorf("unknown default search method %q: %w", c.SearchMethod, registryerr.ErrConfiguration)
	}
	if c.StorageBackend != "json" && c.StorageBackend != "sql" {
		return fmt.Errorf("unknown storage backend %q, must be json or sql: %w", c.StorageBackend, registryerr.ErrConfiguration)
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARNING", "WARN", "ERROR":
	default:
		return fmt.Errorf("unknown log level %q: %w", c.LogLevel, registryerr.ErrConfiguration)
	}
	if c.Transport == "http" && (c.Port <= 0 || c.Port > 65535) {
		return fmt.Errorf("invalid http port %d: %w", c.Port, registryerr.ErrConfiguration)
	}
	return nil
}

// ExpandDataPath expands a leading "~" the way the original Python
// implementation's __main__.py resolves its data path, applied after any
// environment-variable expansion.
func ExpandDataPath(raw string) string {
	expanded := os.ExpandEnv(raw)
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			expanded = filepath.Join(home, strings.TrimPrefix(expanded, "~"))
		}
	}
	return expanded
}
