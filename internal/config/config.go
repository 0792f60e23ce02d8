package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/multierr"
)

// Config is the server configuration, read from SWEEPY_* environment variables.
type Config struct {
	Port            string        `env:"SWEEPY_PORT" envDefault:"3001"`
	DBPath          string        `env:"SWEEPY_DB_PATH" envDefault:"sweepy.db"`
	LogLevel        string        `env:"SWEEPY_LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"SWEEPY_LOG_FORMAT" envDefault:"text"`
	JWTSecret       string        `env:"SWEEPY_JWT_SECRET,required,notEmpty"`
	TokenTTL        time.Duration `env:"SWEEPY_TOKEN_TTL" envDefault:"720h"`
	RefreshInterval time.Duration `env:"SWEEPY_REFRESH_INTERVAL" envDefault:"6h"`
	LoginRateLimit  int           `env:"SWEEPY_LOGIN_RATE_LIMIT" envDefault:"10"`
	AllowedOrigins  []string      `env:"SWEEPY_ALLOWED_ORIGINS" envSeparator:","`
	ShutdownTimeout time.Duration `env:"SWEEPY_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs error
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = multierr.Append(errs, fmt.Errorf("SWEEPY_LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	if c.TokenTTL <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("SWEEPY_TOKEN_TTL must be positive, got %s", c.TokenTTL))
	}
	if c.RefreshInterval < 0 {
		errs = multierr.Append(errs, fmt.Errorf("SWEEPY_REFRESH_INTERVAL must not be negative, got %s", c.RefreshInterval))
	}
	if c.LoginRateLimit < 1 {
		errs = multierr.Append(errs, fmt.Errorf("SWEEPY_LOGIN_RATE_LIMIT must be at least 1, got %d", c.LoginRateLimit))
	}
	return errs
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}
