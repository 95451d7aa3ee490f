package config

import (
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
)

// Loader handles loading the configuration file.
type Loader struct {
	path string
}

// NewLoader creates a loader for the config file at path.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the config file path.
func (l *Loader) Path() string { return l.path }

// LoadFile loads a configuration from a specific file path.
// Environment variables in the config are expanded before parsing.
// Supports ${VAR} and ${VAR:-default} syntax. Omitted fields keep
// their defaults.
func (l *Loader) LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	data = ExpandEnvVarsJSON(data)

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config JSON")
	}

	return cfg, nil
}

// Load reads the loader's file. A missing file yields the defaults.
func (l *Loader) Load() (*Config, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		return Default(), nil
	}
	return l.LoadFile(l.path)
}

// LoadAndValidate loads and validates the loader's file.
func (l *Loader) LoadAndValidate() (*Config, error) {
	cfg, err := l.Load()
	if err != nil {
		return nil, err
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, errors.Wrapf(err, "config validation failed for %s", l.path)
	}

	return cfg, nil
}
