// Package config implements the gold-monitor daemon configuration.
//
// Process-level settings come from the environment; the monitor
// definitions live in a YAML file pointed to by MONITORS_PATH.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all daemon configuration.
type Config struct {
	Port         int    `env:"PORT" env-default:"10000"`
	LogLevel     string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat    string `env:"LOG_FORMAT" env-default:"text"`
	MonitorsPath string `env:"MONITORS_PATH" env-default:"config/monitors.yaml"`

	Storage   StorageConfig
	Alerts    AlertsConfig
	RateLimit RateLimitConfig
}

// StorageConfig selects and configures the observation store backend.
type StorageConfig struct {
	Backend       string        `env:"STORAGE_BACKEND" env-default:"memory"`
	RedisAddr     string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int           `env:"REDIS_DB" env-default:"0"`
	RedisTTL      time.Duration `env:"REDIS_TTL" env-default:"48h"`
}

// AlertsConfig configures the optional alert sinks. The log sink is
// always active; webhook and Kafka sinks are enabled by setting their
// respective addresses.
type AlertsConfig struct {
	WebhookURL     string        `env:"ALERT_WEBHOOK_URL" env-default:""`
	WebhookTimeout time.Duration `env:"ALERT_WEBHOOK_TIMEOUT" env-default:"10s"`
	KafkaBrokers   []string      `env:"ALERT_KAFKA_BROKERS" env-default:""`
	KafkaTopic     string        `env:"ALERT_KAFKA_TOPIC" env-default:"gold-monitor.alerts"`
}

// RateLimitConfig bounds request rates on the public status routes.
type RateLimitConfig struct {
	Window time.Duration `env:"RATE_LIMIT_WINDOW" env-default:"60s"`
	Max    int           `env:"RATE_LIMIT_MAX" env-default:"60"`
}

// Load reads the daemon configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints not expressible as tags.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Storage.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown storage backend %q (want memory or redis)", c.Storage.Backend)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", c.LogFormat)
	}
	if c.RateLimit.Max < 1 {
		return fmt.Errorf("rate limit max must be positive, got %d", c.RateLimit.Max)
	}
	return nil
}

// KafkaEnabled reports whether a Kafka alert sink should be created.
func (a AlertsConfig) KafkaEnabled() bool {
	return len(a.KafkaBrokers) > 0 && a.KafkaBrokers[0] != ""
}
