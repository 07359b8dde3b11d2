package internal

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("NATS_URL", "")

	cfg, err := configFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, uint16(3000), cfg.Port)
	assert.Equal(t, "mad", cfg.Stripe.Currency)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Empty(t, cfg.NatsURL)
	assert.False(t, cfg.Assistant.Enabled())
}

func TestConfigFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("ENV", "staging")
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("PORT", "not-a-number")

	cfg, err := configFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, uint16(3000), cfg.Port)
}

func TestConfigFromEnv_ProdRequiresSecrets(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("SESSION_SECRET", "")

	_, err := configFromEnv()
	assert.Error(t, err)

	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("STRIPE_SECRET_KEY", "sk_live_x")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	_, err = configFromEnv()
	assert.Error(t, err)
}

func TestNewLogger_ProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "prod", "info")

	logger.Debug("hidden")
	logger.Info("checkout applied", "points_earned", 500)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "checkout applied", line["msg"])
	assert.EqualValues(t, 500, line["points_earned"])
}
