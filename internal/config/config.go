package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "HH_"

// Config carries all process-level settings. Values come from an optional
// config.yaml plus HH_* environment variables, env winning on conflict.
type Config struct {
	Environment string `koanf:"environment"`
	ServiceName string `koanf:"service_name"`
	HTTPAddr    string `koanf:"http_addr"`

	DatabaseDSN string `koanf:"database_dsn"`
	RedisURL    string `koanf:"redis_url"`

	// StripeWebhookSecret enables signature verification on inbound webhooks.
	// When empty the reconciler runs in unauthenticated development mode.
	StripeWebhookSecret string `koanf:"stripe_webhook_secret"`

	ProgressCacheTTLSeconds int `koanf:"progress_cache_ttl_seconds"`
	NotifyTimeoutMillis     int `koanf:"notify_timeout_millis"`

	SeedDemoData bool `koanf:"seed_demo_data"`

	TracingEnabled       bool    `koanf:"tracing_enabled"`
	TracingEndpoint      string  `koanf:"tracing_endpoint"`
	TracingProtocol      string  `koanf:"tracing_protocol"`
	TracingSamplingRatio float64 `koanf:"tracing_sampling_ratio"`
}

// ProgressCacheTTL is the backstop expiry for cached campaign progress.
func (c Config) ProgressCacheTTL() time.Duration {
	if c.ProgressCacheTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ProgressCacheTTLSeconds) * time.Second
}

// NotifyTimeout bounds realtime publishes so a slow subscriber transport
// cannot stall a webhook response.
func (c Config) NotifyTimeout() time.Duration {
	if c.NotifyTimeoutMillis <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.NotifyTimeoutMillis) * time.Millisecond
}

func defaults() Config {
	return Config{
		Environment:             "development",
		ServiceName:             "helpinghands",
		HTTPAddr:                ":8080",
		ProgressCacheTTLSeconds: 30,
		NotifyTimeoutMillis:     2000,
		TracingProtocol:         "http",
		TracingSamplingRatio:    0.1,
	}
}

// Load reads configuration from config.yaml (if present) and the environment.
func Load() (Config, error) {
	cfg := defaults()
	k := koanf.New(".")

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := k.Load(file.Provider("config.yaml"), yaml.Parser()); err != nil {
			return cfg, err
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return cfg, err
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	return cfg, nil
}
