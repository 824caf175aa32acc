// Package config holds runtime configuration for bucketctl.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for a generation run
type Config struct {
	Token       string        `mapstructure:"token"`
	APIBaseURL  string        `mapstructure:"api_base_url"`
	Workers     int           `mapstructure:"workers"`
	Timeout     time.Duration `mapstructure:"timeout"`
	DefaultArch string        `mapstructure:"default_arch"`
}

var defaultConfig = Config{
	APIBaseURL:  "https://api.github.com",
	Workers:     4,
	Timeout:     10 * time.Minute,
	DefaultArch: "x86_64",
}

// Load builds the run configuration from defaults and environment.
// Environment variables use the BUCKETCTL_ prefix (BUCKETCTL_TOKEN,
// BUCKETCTL_WORKERS, ...); GITHUB_TOKEN is honored as a fallback for the
// API token since that is what CI environments conventionally export.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("api_base_url", defaultConfig.APIBaseURL)
	v.SetDefault("workers", defaultConfig.Workers)
	v.SetDefault("timeout", defaultConfig.Timeout)
	v.SetDefault("default_arch", defaultConfig.DefaultArch)

	v.SetEnvPrefix("BUCKETCTL")
	v.AutomaticEnv()
	if err := v.BindEnv("token", "BUCKETCTL_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind token env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &cfg, nil
}
