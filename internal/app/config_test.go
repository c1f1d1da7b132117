package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/endorhq/endor/internal/auth"
	"github.com/endorhq/endor/internal/integrations"
	"github.com/endorhq/endor/internal/vault"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "json", cfg.Server.LogFormat)
	require.True(t, cfg.Server.HSTS)
	require.Equal(t, "database", cfg.Server.RateLimit.Store)
	require.Equal(t, 5, cfg.Server.RateLimit.Requests)
	require.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5432, cfg.Database.Postgres.Port)
	require.Equal(t, 20, cfg.Database.MaxOpenConns)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 2*time.Hour, cfg.Auth.JWT.TTL)

	require.Equal(t, vault.KDFParams{Time: 3, Memory: 32768, Threads: 2}, cfg.Vault.KDFParams())

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)
	require.Equal(t, "https://endor.dev", cfg.Invites.BaseURL)

	require.Equal(t, []string{"read:user", "repo"}, cfg.Integrations.GitHub.Scopes)
	require.False(t, cfg.Integrations.Heroku.Enabled)

	require.False(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@hourly", cfg.Maintenance.InviteSchedule)
	require.Equal(t, 7, cfg.Maintenance.ProjectRetentionDays)

	require.Equal(t, "/internal/metrics", cfg.Monitoring.MetricsPath())
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "memory", cfg.Server.RateLimit.Store)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 24*time.Hour, cfg.Auth.JWT.TTL)
	require.Empty(t, cfg.Auth.JWT.Secret)
	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, 30, cfg.Maintenance.ProjectRetentionDays)
	require.Equal(t, "/metrics", cfg.Monitoring.MetricsPath())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("ENDOR_SERVER_PORT", "7070")
	t.Setenv("ENDOR_AUTH_JWT_SECRET", "from-env")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "from-env", cfg.Auth.JWT.Secret)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{JWT: JWTSettings{Secret: "s", Issuer: "endor"}}
	jwtCfg := cfg.JWTServiceConfig()
	require.Equal(t, auth.DefaultAccessTokenTTL, jwtCfg.AccessTokenTTL)
	require.Equal(t, "endor", jwtCfg.Issuer)

	require.Equal(t, vault.DefaultKDFParams(), VaultConfig{}.KDFParams())
}

func TestIntegrationsRegistry(t *testing.T) {
	cfg := IntegrationsConfig{
		GitHub: ProviderConfig{Enabled: true, ClientID: "id"},
		Travis: ProviderConfig{Enabled: true},
	}
	require.Equal(t, []string{integrations.GitHub, integrations.Travis}, cfg.Registry().Names())
	require.Equal(t, integrations.DefaultBreakerSettings(), cfg.BreakerSettings())

	cfg.Breaker = BreakerConfig{FailureThreshold: 2}
	settings := cfg.BreakerSettings()
	require.EqualValues(t, 2, settings.FailureThreshold)
	require.Equal(t, integrations.DefaultBreakerSettings().OpenTimeout, settings.OpenTimeout)
}

func TestMetricsPathDisabled(t *testing.T) {
	require.Empty(t, MonitoringConfig{}.MetricsPath())
}
