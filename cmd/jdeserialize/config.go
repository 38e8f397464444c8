// Package main implements the jdeserialize command line tool.
package main

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the tool configuration, loadable from a YAML file. Command line
// flags override whatever the file sets.
type Config struct {
	// Log holds logging configuration.
	Log LogConfig `mapstructure:"log"`

	// Dump holds default output switches.
	Dump DumpConfig `mapstructure:"dump"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`
	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool `mapstructure:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// DumpConfig holds the default dump switches.
type DumpConfig struct {
	NoContent   bool   `mapstructure:"no_content"`
	NoClasses   bool   `mapstructure:"no_classes"`
	NoInstances bool   `mapstructure:"no_instances"`
	ShowArrays  bool   `mapstructure:"show_arrays"`
	FixNames    bool   `mapstructure:"fix_names"`
	NoConnect   bool   `mapstructure:"no_connect"`
	Filter      string `mapstructure:"filter"`
}

// LoadConfig returns the configuration from the given YAML file, or the
// defaults when path is empty.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.outputs", []string{"stderr"})

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
