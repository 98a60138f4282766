// Package config loads the optional stubdoc.yaml run configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up next to the run root
const FileName = "stubdoc.yaml"

// Harness configures the external test harness invocation
type Harness struct {
	Executable string   `yaml:"executable"` // defaults to pytest
	Args       []string `yaml:"args"`       // extra arguments appended to the invocation
}

// Config is the run configuration
type Config struct {
	Tags    []string `yaml:"tags"`    // executable fence tags; empty keeps the defaults
	Harness Harness  `yaml:"harness"`
	TempDir string   `yaml:"tempDir"` // parent of the artifact directory
	Retain  bool     `yaml:"retain"`  // keep artifacts after the run
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{}
}

// Load reads an explicit config file path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadIfPresent looks for stubdoc.yaml in dir; a missing file is not an
// error, it just yields the defaults
func LoadIfPresent(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}
	return Load(path)
}
