package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mesonlint/mesonlint/pkg/analyzer"
	"github.com/mesonlint/mesonlint/pkg/telemetry"
)

// Config is the mesonlint configuration.
type Config struct {
	// Analysis toggles lint categories.
	Analysis analyzer.AnalysisOptions `yaml:"analysis" json:"analysis"`

	// Registry is an optional builtin data file replacing the embedded one.
	Registry string `yaml:"registry" json:"registry"`

	Subprojects SubprojectsConfig `yaml:"subprojects" json:"subprojects"`
	Store       StoreConfig       `yaml:"store" json:"store"`
	Telemetry   telemetry.Config  `yaml:"telemetry" json:"telemetry"`
}

// SubprojectsConfig tunes subproject resolution.
type SubprojectsConfig struct {
	// Concurrency bounds parallel subproject analyses; 0 means unbounded.
	Concurrency int `yaml:"concurrency" json:"concurrency" validate:"gte=0"`
}

// StoreConfig configures the run history database.
type StoreConfig struct {
	// Path of the SQLite database. Empty disables history.
	Path string `yaml:"path" json:"path"`

	// HistoryLimit is the default number of runs `history` lists.
	HistoryLimit int `yaml:"history_limit" json:"history_limit" validate:"gte=1"`
}

// Default returns the configuration used without a file.
func Default() *Config {
	return &Config{
		Store:     StoreConfig{HistoryLimit: 20},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

var configValidator = validator.New()

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Parse decodes data over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the file at path. An empty path yields Default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
