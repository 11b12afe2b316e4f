package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the gateway.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// Empty address selects the in-process counter backend.
	RedisAddr      string        `envconfig:"REDIS_ADDR" default:""`
	CounterTimeout time.Duration `envconfig:"COUNTER_TIMEOUT" default:"250ms"`

	SessionSecret      string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL         time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	SessionRememberTTL time.Duration `envconfig:"SESSION_REMEMBER_TTL" default:"720h"`
	SessionFreshTTL    time.Duration `envconfig:"SESSION_FRESH_TTL" default:"12h"`

	RateAPIWindow      time.Duration `envconfig:"RATE_API_WINDOW" default:"1m"`
	RateAPIMax         int           `envconfig:"RATE_API_MAX" default:"100"`
	RateMutationWindow time.Duration `envconfig:"RATE_MUTATION_WINDOW" default:"1m"`
	RateMutationMax    int           `envconfig:"RATE_MUTATION_MAX" default:"20"`
	RateExportWindow   time.Duration `envconfig:"RATE_EXPORT_WINDOW" default:"5m"`
	RateExportMax      int           `envconfig:"RATE_EXPORT_MAX" default:"5"`

	// Comma-separated username:role:bcrypt-hash entries.
	SeedUsers string `envconfig:"SEED_USERS" default:""`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// IsDevelopment reports whether Secure cookies and CSP are relaxed.
func (c *Config) IsDevelopment() bool {
	return c == nil || c.AppEnv == "development"
}
