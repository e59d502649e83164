package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all tensorbridge configuration.
type Config struct {
	Engine    EngineConfig
	Dashboard DashboardConfig
	Logging   LogConfig
}

// EngineConfig holds engine daemon connection settings.
type EngineConfig struct {
	Address string        `envconfig:"ENGINE_ADDR" default:"http://localhost:18515"`
	Timeout time.Duration `envconfig:"ENGINE_TIMEOUT" default:"30s"`
}

// DashboardConfig holds diagnostic dashboard settings.
type DashboardConfig struct {
	Host    string `envconfig:"DASHBOARD_HOST" default:"127.0.0.1"`
	Port    int    `envconfig:"DASHBOARD_PORT" default:"0"`
	Enabled bool   `envconfig:"DASHBOARD_ENABLED" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Address: "http://localhost:18515",
			Timeout: 30 * time.Second,
		},
		Dashboard: DashboardConfig{
			Host:    "127.0.0.1",
			Port:    0,
			Enabled: true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
