// Package server provides configuration helpers that define runtime
// defaults, sanitization, and rate-limiting parameters for the roomcast
// service.
package server

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envPrefix is the prefix applied to every configuration variable, e.g.
// ROOMCAST_PORT.
const envPrefix = "roomcast"

// RateLimitConfig defines the parameters for per-connection message rate
// limiting.
type RateLimitConfig struct {
	Burst          int           `envconfig:"BURST" default:"5"`
	RefillInterval time.Duration `envconfig:"REFILL_INTERVAL" default:"1s"`
}

// Config holds the server configuration, including the declared namespace
// set and the security controls applied at the transport edge.
type Config struct {
	Port            string          `envconfig:"PORT" default:":8080"`
	AllowedOrigins  []string        `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	MaxMessageSize  int64           `envconfig:"MAX_MESSAGE_SIZE" default:"4096"`
	RateLimit       RateLimitConfig `envconfig:"RATE_LIMIT"`
	Namespaces      []string        `envconfig:"NAMESPACES" default:"general,tech,random"`
	ShutdownTimeout time.Duration   `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        string          `envconfig:"LOG_LEVEL" default:"info"`
}

// NewConfig returns a Config populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// LoadConfig builds a Config from ROOMCAST_-prefixed environment variables,
// falling back to defaults for anything unset.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.sanitize()
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Port:           ":8080",
		AllowedOrigins: []string{"http://localhost:8080"},
		MaxMessageSize: 4096,
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
		Namespaces:      []string{"general", "tech", "random"},
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
	}
}

// sanitize clamps invalid values back to defaults so a bad environment
// never produces an inoperable server.
func (c *Config) sanitize() {
	defaults := defaultConfig()

	if c.Port == "" {
		c.Port = defaults.Port
	}
	if !strings.HasPrefix(c.Port, ":") {
		c.Port = ":" + c.Port
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaults.MaxMessageSize
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = defaults.RateLimit.Burst
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = defaults.RateLimit.RefillInterval
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaults.ShutdownTimeout
	}

	namespaces := make([]string, 0, len(c.Namespaces))
	for _, name := range c.Namespaces {
		trimmed := strings.TrimSpace(name)
		if trimmed != "" {
			namespaces = append(namespaces, trimmed)
		}
	}
	if len(namespaces) == 0 {
		namespaces = defaults.Namespaces
	}
	c.Namespaces = namespaces
}

// SlogLevel maps the configured log level string onto a slog.Level,
// defaulting to info for unrecognized values.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
