package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_CLAIMS_POLICY", "")
	t.Setenv("EVENTS_BACKEND", "")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("AUTH_PASSWORD_RESET_TTL_MINUTES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ClaimsPolicyToken, cfg.Auth.ClaimsPolicy)
	assert.Equal(t, "memory", cfg.Events.Backend)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL())
	assert.Equal(t, 30*time.Minute, cfg.Auth.PasswordResetTTL())
	assert.False(t, cfg.App.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_CLAIMS_POLICY", "Strict")
	t.Setenv("EVENTS_BACKEND", "kafka")
	t.Setenv("EVENTS_KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.App.IsProduction())
	assert.Equal(t, ClaimsPolicyStrict, cfg.Auth.ClaimsPolicy)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
}

func TestLoad_RejectsUnknownPolicy(t *testing.T) {
	t.Setenv("AUTH_CLAIMS_POLICY", "sometimes")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("EVENTS_BACKEND", "carrier-pigeon")

	_, err := Load()
	require.Error(t, err)
}
