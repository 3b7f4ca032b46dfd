package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/clitmpl/pkg/telemetry"
)

// DefaultToolConfigFile is read by LoadToolConfig when no path is given.
// DefaultToolConfigTOML is tried when it does not exist.
const (
	DefaultToolConfigFile = ".clitmpl.yaml"
	DefaultToolConfigTOML = ".clitmpl.toml"
)

// ToolConfig is the configuration of the clitmpl tool itself.
type ToolConfig struct {
	Telemetry telemetry.Config `yaml:"telemetry" toml:"telemetry"`
	Store     StoreConfig      `yaml:"store" toml:"store"`
	Policy    PolicyConfig     `yaml:"policy" toml:"policy"`
	Check     CheckConfig      `yaml:"check" toml:"check"`
}

// StoreConfig configures the check run history.
type StoreConfig struct {
	// Enabled records every check run.
	Enabled bool `yaml:"enabled" toml:"enabled"`

	// Path is the SQLite database file.
	Path string `yaml:"path" toml:"path" validate:"required_if=Enabled true"`

	// Keep is the number of runs kept after pruning; 0 keeps everything.
	Keep int `yaml:"keep" toml:"keep" validate:"gte=0"`
}

// PolicyConfig configures naming policies.
type PolicyConfig struct {
	// Enabled evaluates policies against every template that parses.
	Enabled bool `yaml:"enabled" toml:"enabled"`

	// Paths lists .rego and .json policy files or directories.
	Paths []string `yaml:"paths" toml:"paths"`

	// Disabled lists policies, built-in or loaded, to skip.
	Disabled []string `yaml:"disabled" toml:"disabled"`
}

// CheckConfig holds the defaults of the check command.
type CheckConfig struct {
	// Workers bounds the files checked concurrently; 0 uses GOMAXPROCS.
	Workers int `yaml:"workers" toml:"workers" validate:"gte=0"`

	// Strict makes any finding fail the check.
	Strict bool `yaml:"strict" toml:"strict"`

	// Exclude lists directory names that are never walked.
	Exclude []string `yaml:"exclude" toml:"exclude"`

	// Manifests also checks CUE and YAML command manifests.
	Manifests bool `yaml:"manifests" toml:"manifests"`
}

// DefaultToolConfig returns the configuration used without a config file.
func DefaultToolConfig() *ToolConfig {
	return &ToolConfig{
		Telemetry: *telemetry.DefaultConfig(),
		Store: StoreConfig{
			Path: ".clitmpl/history.db",
			Keep: 100,
		},
		Check: CheckConfig{
			Exclude:   []string{".git", "vendor", "node_modules", "testdata"},
			Manifests: true,
		},
	}
}

// LoadToolConfig reads path over the defaults. The format follows the
// extension: .toml files are TOML, anything else YAML. An empty path reads
// DefaultToolConfigFile or DefaultToolConfigTOML if either exists.
func LoadToolConfig(path string) (*ToolConfig, error) {
	cfg := DefaultToolConfig()

	if path == "" {
		for _, name := range []string{DefaultToolConfigFile, DefaultToolConfigTOML} {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

var toolValidator = validator.New()

// Validate checks the configuration.
func (c *ToolConfig) Validate() error {
	if err := toolValidator.Struct(c); err != nil {
		return err
	}
	return c.Telemetry.Validate()
}
