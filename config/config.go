package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration settings.
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	Session       SessionConfig       `yaml:"session"`
	Broadcast     BroadcastConfig     `yaml:"broadcast"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// HTTPConfig holds the HTTP listener configuration.
type HTTPConfig struct {
	Address        string   `yaml:"address"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// RateLimitPerSecond and RateLimitBurst bound mutating requests per IP.
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`
}

// SessionConfig holds admin session settings.
type SessionConfig struct {
	Secret string `yaml:"secret"`
	// TTL is the sliding session window. Requests past it are rejected.
	TTL time.Duration `yaml:"ttl"`
	// RefreshAfter is how far into a session's life a request triggers
	// re-issue of a fresh token.
	RefreshAfter time.Duration `yaml:"refresh_after"`
}

// BroadcastConfig holds broadcast dispatcher settings.
type BroadcastConfig struct {
	BufferSize int `yaml:"buffer_size"`
}

// ObservabilityConfig holds configuration for observability components.
type ObservabilityConfig struct {
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`
	MetricsAddress string `yaml:"metrics_address"`
}

// LoadConfig loads the configuration from a YAML file, then applies
// environment overrides and defaults.
func LoadConfig(filename string) (*Config, error) {
	cfg := &Config{}

	if data, err := os.ReadFile(filename); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required (config postgres.dsn or POSTGRES_DSN)")
	}
	if cfg.Session.Secret == "" {
		return nil, fmt.Errorf("session secret is required (config session.secret or SESSION_SECRET)")
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.Session.Secret = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}
	if cfg.HTTP.RateLimitPerSecond == 0 {
		cfg.HTTP.RateLimitPerSecond = 5
	}
	if cfg.HTTP.RateLimitBurst == 0 {
		cfg.HTTP.RateLimitBurst = 10
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 4 * time.Hour
	}
	if cfg.Session.RefreshAfter == 0 {
		cfg.Session.RefreshAfter = 5 * time.Minute
	}
	if cfg.Broadcast.BufferSize == 0 {
		cfg.Broadcast.BufferSize = 256
	}
	if cfg.Observability.Environment == "" {
		cfg.Observability.Environment = "development"
	}
}
