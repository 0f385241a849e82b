// Package config loads apparatus configuration from TOML files and
// APPARATUS_* environment variables via Viper.
package config

import (
	"github.com/veritext/apparatus/build"
)

// Config is the root apparatus configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Packs    PacksConfig    `mapstructure:"packs"`
	Build    BuildConfig    `mapstructure:"build"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DatabaseConfig configures the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// PacksConfig configures where source packs and the spine text live.
type PacksConfig struct {
	Dir      string `mapstructure:"dir"`       // directory holding one subdirectory per pack
	SpineDir string `mapstructure:"spine_dir"` // directory holding the spine text
}

// BuildConfig configures aggregation passes.
type BuildConfig struct {
	Workers int `mapstructure:"workers"` // locations processed concurrently
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	JSON bool `mapstructure:"json"` // JSON lines instead of console output
}

// EffectiveWorkers returns the configured worker count, falling back
// to the engine default for zero or negative values.
func (c BuildConfig) EffectiveWorkers() int {
	if c.Workers < 1 {
		return build.DefaultWorkers
	}
	return c.Workers
}
