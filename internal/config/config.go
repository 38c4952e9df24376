// Package config reads the service configuration from the environment.
// A .env file in the working directory is loaded first when present.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port          int    `env:"PORT" envDefault:"8080"`
	DBString      string `env:"DB_STRING"`
	StoreDriver   string `env:"STORE_DRIVER" envDefault:"postgres"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	JWTSecret     string        `env:"JWT_SECRET"`
	JWTTTL        time.Duration `env:"JWT_TTL" envDefault:"24h"`
	SessionSecret string        `env:"SESSION_SECRET"`

	FrontendURL        string   `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	S3Bucket              string `env:"AWS_S3_BUCKET"`
	AWSRegion             string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL        string `env:"AWS_ENDPOINT_URL"`
	DocumentEncryptionKey string `env:"DOCUMENT_ENCRYPTION_KEY"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	NotifyWorkers    int           `env:"NOTIFY_WORKERS" envDefault:"4"`
	ReminderSchedule string        `env:"REMINDER_SCHEDULE" envDefault:"@every 1h"`
	ReminderAfter    time.Duration `env:"REMINDER_AFTER" envDefault:"72h"`

	ApplicationCooldown time.Duration `env:"APPLICATION_COOLDOWN" envDefault:"2160h"`
	ReferenceTxTimeout  time.Duration `env:"REFERENCE_TX_TIMEOUT" envDefault:"30s"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	OAuthCallbackURL   string `env:"OAUTH_CALLBACK_URL" envDefault:"http://localhost:8080/auth/google/callback"`
}

// Load parses the environment into a Config and checks the settings the
// selected store driver depends on.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DBString == "" {
			return fmt.Errorf("DB_STRING is required when STORE_DRIVER=%s", DriverPostgres)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.SessionSecret == "" {
		c.SessionSecret = c.JWTSecret
	}
	if c.NotifyWorkers <= 0 {
		return fmt.Errorf("NOTIFY_WORKERS must be positive, got %d", c.NotifyWorkers)
	}
	return nil
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// GoogleEnabled reports whether Google OAuth credentials are configured
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}
