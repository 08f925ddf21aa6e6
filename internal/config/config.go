package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"gobfda/domain/bfda"
	"gobfda/domain/core"
	"gobfda/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Storage    StorageConfig
	Simulation SimulationConfig
	LogLevel   string `env:"LOG_LEVEL" envDefault:"INFO"`
}

// DatabaseConfig holds database connection settings. An empty URL selects the
// file store.
type DatabaseConfig struct {
	URL string `env:"BFDA_DATABASE_URL"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `env:"PORT" envDefault:"8080"`
	GinMode string `env:"GIN_MODE" envDefault:"release"`
}

// StorageConfig holds file system paths
type StorageConfig struct {
	ResultsDir string `env:"BFDA_RESULTS_DIR" envDefault:"./results"`
}

// SimulationConfig bounds simulation work per process
type SimulationConfig struct {
	Workers           int `env:"BFDA_WORKERS"`
	MaxConcurrentRuns int `env:"BFDA_MAX_CONCURRENT_RUNS" envDefault:"2"`
	CacheEntries      int `env:"BFDA_ANALYSIS_CACHE" envDefault:"256"`
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("parse env: %w", err))
	}
	if cfg.Simulation.Workers == 0 {
		cfg.Simulation.Workers = runtime.NumCPU()
	}
	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

// UsesDatabase reports whether results go to SQL rather than files.
func (c *Config) UsesDatabase() bool {
	return strings.TrimSpace(c.Database.URL) != ""
}

func validateConfig(cfg *Config) error {
	if cfg.Simulation.Workers < 0 {
		return errors.ConfigInvalid("BFDA_WORKERS must not be negative")
	}
	if cfg.Simulation.MaxConcurrentRuns <= 0 {
		return errors.ConfigInvalid("BFDA_MAX_CONCURRENT_RUNS must be positive")
	}
	if cfg.Simulation.CacheEntries < 0 {
		return errors.ConfigInvalid("BFDA_ANALYSIS_CACHE must not be negative")
	}
	if !cfg.UsesDatabase() && strings.TrimSpace(cfg.Storage.ResultsDir) == "" {
		return errors.ConfigInvalid("BFDA_RESULTS_DIR is required without BFDA_DATABASE_URL")
	}
	switch cfg.Server.GinMode {
	case "debug", "release", "test":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("GIN_MODE must be debug, release or test, got %q", cfg.Server.GinMode))
	}
	return nil
}

// LoadSimulationFile reads a simulation config from YAML (.yaml, .yml) or JSON.
// Unknown keys are rejected so that typos do not silently fall back to defaults.
func LoadSimulationFile(path string) (bfda.SimulationConfig, error) {
	var cfg bfda.SimulationConfig
	if err := LoadFile(path, &cfg); err != nil {
		return bfda.SimulationConfig{}, err
	}
	return cfg, nil
}

// LoadFile decodes a YAML or JSON file into v, picking the format from the
// extension.
func LoadFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidConfig, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("%w: %s: %v", core.ErrInvalidConfig, filepath.Base(path), err)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("%w: %s: %v", core.ErrInvalidConfig, filepath.Base(path), err)
		}
	default:
		return core.NewConfigError("file", fmt.Sprintf("%s: expected .yaml, .yml or .json", filepath.Base(path)))
	}
	return nil
}
