// Package config provides environment configuration for the bot.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// ErrMissingToken is returned by Load when no bot credential is configured.
var ErrMissingToken = errors.New("TELEGRAMTOKEN is not set")

// Config holds all configuration for the application.
type Config struct {
	// Telegram settings
	Token        string        `env:"TELEGRAMTOKEN"`
	APIURL       string        `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
	PollTimeout  time.Duration `env:"POLL_TIMEOUT" envDefault:"30s"`
	AdminChatID  int64         `env:"ADMINID"`
	AppURL       string        `env:"APPURL"`
	WebhookPort  string        `env:"PORT"`
	WebhookToken string        `env:"WEBHOOK_SECRET"`

	// Redis settings
	RedisURL       string `env:"REDIS_URL" envDefault:"127.0.0.1:6379"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX"`

	// Command behaviour
	FreshnessWindow     time.Duration `env:"FRESHNESS_WINDOW" envDefault:"20s"`
	AckTTL              time.Duration `env:"ACK_TTL" envDefault:"5s"`
	RejectOverlongNotes bool          `env:"REJECT_OVERLONG_NOTES" envDefault:"false"`

	// Ops server used in polling mode
	MetricsPort string `env:"METRICS_PORT"`

	// Rate limiting of the webhook endpoint
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"120"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	// NATS settings; empty URL disables the note-event feed
	NATSURL   string `env:"NATS_URL"`
	NATSToken string `env:"NATS_TOKEN"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Tracing
	TracingEndpoint string `env:"TRACING_ENDPOINT" envDefault:"localhost:4318"`
	TracingEnabled  bool   `env:"TRACING_ENABLED" envDefault:"false"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// A missing .env is the normal case in production.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Token == "" {
		return ErrMissingToken
	}
	if c.FreshnessWindow <= 0 {
		return fmt.Errorf("FRESHNESS_WINDOW must be positive, got %s", c.FreshnessWindow)
	}
	if c.WebhookMode() && c.AppURL == "" {
		return errors.New("APPURL is required when PORT is set")
	}
	return nil
}

// WebhookMode reports whether updates are pushed to us instead of polled.
func (c *Config) WebhookMode() bool {
	return c.WebhookPort != ""
}

// WebhookPath is the route Telegram posts updates to.
func (c *Config) WebhookPath() string {
	return "/bot" + c.Token
}
