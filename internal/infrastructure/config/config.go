package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Paths     PathsConfig
	Python    PythonConfig
	Installer InstallerConfig
	API       APIConfig
	Logging   LogConfig
}

// PathsConfig holds filesystem layout configuration.
type PathsConfig struct {
	// InstallRoot overrides the platform-specific install root.
	InstallRoot string `envconfig:"GENNAKER_INSTALL_ROOT" default:""`
	// CatalogFile points at a YAML area/project catalog. Empty means
	// the built-in catalog.
	CatalogFile string `envconfig:"GENNAKER_CATALOG" default:""`
}

// PythonConfig holds settings for the bundled Python distribution.
type PythonConfig struct {
	// Home is the base interpreter installation directory.
	Home string `envconfig:"GENNAKER_PYTHON_HOME" default:""`
	// Version is the pinned interpreter minor version, e.g. "3.11".
	Version string `envconfig:"GENNAKER_PYTHON_VERSION" default:"3.11"`
	// ServerModule is the module started with `python -m`.
	ServerModule string `envconfig:"GENNAKER_SERVER_MODULE" default:"jupyterlab"`
}

// InstallerConfig holds installer subprocess configuration.
type InstallerConfig struct {
	// Path is the installer executable invoked with the install root
	// as its single argument.
	Path string `envconfig:"GENNAKER_INSTALLER" default:"gennaker-setup"`
	// Timeout bounds a single installer run. Zero leaves it
	// unbounded, matching the historical behavior.
	Timeout time.Duration `envconfig:"GENNAKER_INSTALL_TIMEOUT" default:"0"`
}

// APIConfig holds control API configuration.
type APIConfig struct {
	Host string `envconfig:"GENNAKER_API_HOST" default:"127.0.0.1"`
	Port string `envconfig:"GENNAKER_API_PORT" default:"5175"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Python: PythonConfig{
			Version:      "3.11",
			ServerModule: "jupyterlab",
		},
		Installer: InstallerConfig{
			Path: "gennaker-setup",
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: "5175",
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}
