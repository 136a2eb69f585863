package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "http://localhost:8000", cfg.Server.BaseURL)

	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/currex.sqlite", cfg.Database.Path)

	require.Equal(t, "currex", cfg.Auth.JWT.Issuer)
	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, time.Hour, cfg.Auth.Verification.TTL)
	require.Equal(t, 168*time.Hour, cfg.Auth.Verification.PruneAfter)

	require.False(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, 587, cfg.Email.SMTP.Port)
	require.True(t, cfg.Email.SMTP.UseTLS)
	require.Equal(t, 10*time.Second, cfg.Email.SMTP.Timeout)

	require.Equal(t, "https://api.apilayer.com/currency_data", cfg.Currency.BaseURL)
	require.Equal(t, 15*time.Second, cfg.Currency.Timeout)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("CURREX_SERVER_PORT", "9001")
	t.Setenv("CURREX_AUTH_JWT_SECRET", "from-env")
	t.Setenv("CURREX_AUTH_JWT_ACCESS_TOKEN_TTL", "30m")
	t.Setenv("CURREX_CURRENCY_API_KEY", "env-api-key")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 9001, cfg.Server.Port)
	require.Equal(t, "from-env", cfg.Auth.JWT.Secret)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, "env-api-key", cfg.Currency.APIKey)
}

func TestConfigServiceConversions(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Auth.JWT.Secret = "shared-secret"

	jwtCfg := cfg.Auth.JWTServiceConfig()
	require.Equal(t, "shared-secret", jwtCfg.Secret)
	require.Equal(t, "currex", jwtCfg.Issuer)
	require.Equal(t, 15*time.Minute, jwtCfg.AccessTokenTTL)

	verifCfg := cfg.Auth.VerificationServiceConfig()
	require.Equal(t, "shared-secret", verifCfg.Secret)
	require.Equal(t, time.Hour, verifCfg.TTL)

	smtp := cfg.Email.SMTPSettings()
	require.False(t, smtp.Enabled)
	require.Equal(t, 587, smtp.Port)
}
