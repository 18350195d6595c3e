// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	Port            string        `env:"PORT,default=8080"`
	AppURL          string        `env:"NEXT_PUBLIC_APP_URL,default=http://localhost:3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=15s"`

	Log      LogConfig
	DB       DBConfig
	Clerk    ClerkConfig
	Stripe   StripeConfig
	OpenAI   OpenAIConfig
	Delivery DeliveryConfig
	Events   EventsConfig
	Limits   LimitsConfig
}

type LogConfig struct {
	Format string `env:"LOG_FORMAT,default=auto"`
	Level  string `env:"LOG_LEVEL,default=info"`
}

type DBConfig struct {
	URL          string `env:"DATABASE_URL,required"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS,default=10"`
	MaxIdleConns int    `env:"DB_MAX_IDLE_CONNS,default=5"`
	AutoMigrate  bool   `env:"DB_AUTO_MIGRATE,default=false"`
}

type ClerkConfig struct {
	WebhookSecret string `env:"CLERK_WEBHOOK_SECRET"`
	JWKSURL       string `env:"CLERK_JWKS_URL"`
	Issuer        string `env:"CLERK_ISSUER"`
}

type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	PriceID       string `env:"STRIPE_PRICE_ID"`
}

type OpenAIConfig struct {
	APIKey      string        `env:"OPENAI_API_KEY"`
	Model       string        `env:"OPENAI_MODEL,default=gpt-4o-mini"`
	BaseURL     string        `env:"OPENAI_BASE_URL"`
	MaxTokens   int           `env:"OPENAI_MAX_TOKENS,default=1200"`
	Temperature float64       `env:"OPENAI_TEMPERATURE,default=0.7"`
	Timeout     time.Duration `env:"OPENAI_TIMEOUT,default=120s"`
}

type DeliveryConfig struct {
	WebhookURL string `env:"N8N_WEBHOOK_URL"`
}

type EventsConfig struct {
	AMQPURL  string `env:"AMQP_URL"`
	Exchange string `env:"AMQP_EXCHANGE,default=helpflow.events"`
}

type LimitsConfig struct {
	GeneratePerMinute int `env:"GENERATE_RATE_PER_MINUTE,default=10"`
	GenerateBurst     int `env:"GENERATE_RATE_BURST,default=3"`
}

// Load reads .env (when present) and decodes the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv decodes the process environment without touching .env.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DB.URL) == "" {
		return errors.New("DATABASE_URL must be set")
	}
	if c.Limits.GeneratePerMinute < 0 || c.Limits.GenerateBurst < 0 {
		return errors.New("generation rate limits must not be negative")
	}
	if c.OpenAI.MaxTokens <= 0 {
		return errors.New("OPENAI_MAX_TOKENS must be positive")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// DashboardURL is where hosted billing pages send the user back to.
func (c *Config) DashboardURL() string {
	return c.AppURL + "/dashboard"
}
