package db

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/stratadb/strata/core"
)

// Limits caps the hardened input surfaces. Zero values fall back to the
// defaults below.
type Limits struct {
	MaxCommandLen    int   `yaml:"maxCommandLen"`
	MaxBatchCommands int   `yaml:"maxBatchCommands"`
	MaxIngestBytes   int   `yaml:"maxIngestBytes"`
	MaxImportBytes   int64 `yaml:"maxImportBytes"`
	MaxImportLines   int   `yaml:"maxImportLines"`
}

const (
	DefaultMaxCommandLen    = 4096
	DefaultMaxBatchCommands = 512
	DefaultMaxIngestBytes   = 2 << 20
	DefaultMaxImportBytes   = 10 << 20
	DefaultMaxImportLines   = 100_000
)

// Config carries everything an Engine needs besides its state store. Mode
// is a presentation hint for front ends; the engine only stores and echoes
// it.
type Config struct {
	Mode     string             `yaml:"mode"`
	Identity core.Identity      `yaml:"identity"`
	Limits   Limits             `yaml:"limits"`
	Logger   *zap.SugaredLogger `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		Mode: "standard",
		Identity: core.Identity{
			Name:  "strata",
			Email: "strata@localhost",
		},
		Limits: Limits{
			MaxCommandLen:    DefaultMaxCommandLen,
			MaxBatchCommands: DefaultMaxBatchCommands,
			MaxIngestBytes:   DefaultMaxIngestBytes,
			MaxImportBytes:   DefaultMaxImportBytes,
			MaxImportLines:   DefaultMaxImportLines,
		},
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Mode == "" {
		c.Mode = defaults.Mode
	}
	if c.Identity.Name == "" {
		c.Identity.Name = defaults.Identity.Name
	}
	if c.Identity.Email == "" {
		c.Identity.Email = defaults.Identity.Email
	}
	if c.Limits.MaxCommandLen <= 0 {
		c.Limits.MaxCommandLen = defaults.Limits.MaxCommandLen
	}
	if c.Limits.MaxBatchCommands <= 0 {
		c.Limits.MaxBatchCommands = defaults.Limits.MaxBatchCommands
	}
	if c.Limits.MaxIngestBytes <= 0 {
		c.Limits.MaxIngestBytes = defaults.Limits.MaxIngestBytes
	}
	if c.Limits.MaxImportBytes <= 0 {
		c.Limits.MaxImportBytes = defaults.Limits.MaxImportBytes
	}
	if c.Limits.MaxImportLines <= 0 {
		c.Limits.MaxImportLines = defaults.Limits.MaxImportLines
	}
	return c
}

func (c Config) logger() *zap.SugaredLogger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop().Sugar()
}
