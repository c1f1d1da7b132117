package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the Endor backend.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Vault        VaultConfig        `mapstructure:"vault"`
	Email        EmailConfig        `mapstructure:"email"`
	Invites      InviteConfig       `mapstructure:"invites"`
	Integrations IntegrationsConfig `mapstructure:"integrations"`
	Maintenance  MaintenanceConfig  `mapstructure:"maintenance"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int             `mapstructure:"port"`
	LogLevel  string          `mapstructure:"log_level"`
	LogFormat string          `mapstructure:"log_format"`
	HSTS      bool            `mapstructure:"hsts"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig throttles the public auth routes. Store is "memory" or "database";
// the database store shares counters between instances.
type RateLimitConfig struct {
	Store    string        `mapstructure:"store"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	Postgres        DBAuthConfig  `mapstructure:"postgres"`
	MySQL           DBAuthConfig  `mapstructure:"mysql"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogQueries      bool          `mapstructure:"log_queries"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuthConfig captures authentication settings.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures JWT access tokens. An empty secret is generated on first boot
// and persisted.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// VaultConfig controls encryption of integration tokens at rest.
type VaultConfig struct {
	MasterKey string    `mapstructure:"master_key"`
	KDF       KDFConfig `mapstructure:"kdf"`
}

// KDFConfig holds the Argon2id cost parameters.
type KDFConfig struct {
	Time      uint32 `mapstructure:"time"`
	MemoryKiB uint32 `mapstructure:"memory_kib"`
	Threads   uint8  `mapstructure:"threads"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	SMTP SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// InviteConfig configures invite notifications.
type InviteConfig struct {
	Notify  bool   `mapstructure:"notify"`
	BaseURL string `mapstructure:"base_url"`
}

// IntegrationsConfig configures the third-party providers.
type IntegrationsConfig struct {
	Timeout time.Duration  `mapstructure:"timeout"`
	Breaker BreakerConfig  `mapstructure:"breaker"`
	GitHub  ProviderConfig `mapstructure:"github"`
	Heroku  ProviderConfig `mapstructure:"heroku"`
	Travis  ProviderConfig `mapstructure:"travis"`
}

// BreakerConfig tunes the circuit breaker around provider calls.
type BreakerConfig struct {
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
	Interval         time.Duration `mapstructure:"interval"`
}

// ProviderConfig holds one provider's OAuth client.
type ProviderConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	Scopes       []string `mapstructure:"scopes"`
	APIBaseURL   string   `mapstructure:"api_base_url"`
}

// MaintenanceConfig schedules the background jobs. Empty schedules keep the defaults.
type MaintenanceConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	InviteSchedule       string `mapstructure:"invite_schedule"`
	ProjectSchedule      string `mapstructure:"project_schedule"`
	RateCounterSchedule  string `mapstructure:"rate_counter_schedule"`
	ProjectRetentionDays int    `mapstructure:"project_retention_days"`
}

// MonitoringConfig toggles the Prometheus endpoint.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// MetricsPath returns the path the metrics handler is mounted on, or "" when disabled.
func (c MonitoringConfig) MetricsPath() string {
	if !c.Prometheus.Enabled {
		return ""
	}
	path := strings.TrimSpace(c.Prometheus.Endpoint)
	if path == "" {
		return "/metrics"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("ENDOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.hsts", false)
	v.SetDefault("server.rate_limit.store", "memory")
	v.SetDefault("server.rate_limit.requests", 20)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/endor.sqlite")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.mysql.port", 3306)

	v.SetDefault("auth.jwt.issuer", "endor")
	v.SetDefault("auth.jwt.access_token_ttl", "24h")

	v.SetDefault("vault.kdf.time", 2)
	v.SetDefault("vault.kdf.memory_kib", 64*1024)
	v.SetDefault("vault.kdf.threads", 4)

	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("invites.notify", true)

	v.SetDefault("integrations.timeout", "10s")
	v.SetDefault("integrations.breaker.failure_threshold", 5)
	v.SetDefault("integrations.breaker.open_timeout", "30s")
	v.SetDefault("integrations.breaker.interval", "60s")

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.invite_schedule", "@hourly")
	v.SetDefault("maintenance.project_schedule", "@daily")
	v.SetDefault("maintenance.rate_counter_schedule", "@every 10m")
	v.SetDefault("maintenance.project_retention_days", 30)

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
