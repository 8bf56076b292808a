// Package config loads duelcore settings from an optional YAML file
// overlaid by DUELCORE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DUELCORE_"

// Config holds runtime settings. Nothing here affects game semantics, so a
// replay stays valid under any configuration.
type Config struct {
	LogLevel     string `yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat    string `yaml:"log_format" validate:"oneof=text json"`
	MaxSteps     int    `yaml:"max_steps" validate:"gte=1"`
	CycleHistory int    `yaml:"cycle_history" validate:"gte=1"`
	ReplayDir    string `yaml:"replay_dir" validate:"required"`
	MetricsAddr  string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
}

var validate = validator.New()

// Default returns the built-in settings.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		LogLevel:     "info",
		LogFormat:    "text",
		MaxSteps:     1000,
		CycleHistory: 256,
		ReplayDir:    filepath.Join(home, ".duelcore", "replays"),
	}
}

// Load reads path (if non-empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			f := fields[0]
			return fmt.Errorf("invalid config: %s fails %q (value %v)", f.Field(), f.Tag(), f.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.ReplayDir = getEnv("REPLAY_DIR", c.ReplayDir)
	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)

	var err error
	if c.MaxSteps, err = getEnvInt("MAX_STEPS", c.MaxSteps); err != nil {
		return err
	}
	if c.CycleHistory, err = getEnvInt("CYCLE_HISTORY", c.CycleHistory); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(EnvPrefix + key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return n, nil
}
