package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/helpflow-backend/internal/config"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/helpflow")
	t.Setenv("NEXT_PUBLIC_APP_URL", "https://app.example.com/")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "https://app.example.com", cfg.AppURL)
	assert.Equal(t, "https://app.example.com/dashboard", cfg.DashboardURL())
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, 1200, cfg.OpenAI.MaxTokens)
	assert.InDelta(t, 0.7, cfg.OpenAI.Temperature, 1e-9)
	assert.Equal(t, 120*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, "helpflow.events", cfg.Events.Exchange)
	assert.Equal(t, 10, cfg.Limits.GeneratePerMinute)
	assert.Empty(t, cfg.Delivery.WebhookURL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/helpflow")
	t.Setenv("PORT", "9090")
	t.Setenv("STRIPE_PRICE_ID", "price_123")
	t.Setenv("N8N_WEBHOOK_URL", "https://n8n.example.com/hook")
	t.Setenv("GENERATE_RATE_PER_MINUTE", "30")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, "price_123", cfg.Stripe.PriceID)
	assert.Equal(t, "https://n8n.example.com/hook", cfg.Delivery.WebhookURL)
	assert.Equal(t, 30, cfg.Limits.GeneratePerMinute)
}

func TestFromEnvRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := config.FromEnv()
	assert.Error(t, err)
}
