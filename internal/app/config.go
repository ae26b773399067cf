package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	envPrefix = "TEAMDASH"

	// EnvironmentDevelopment and EnvironmentProduction are the supported values of app.environment.
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)

// Config represents the runtime configuration for the teamdash backend.
type Config struct {
	App         AppSettings       `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Encryption  EncryptionConfig  `mapstructure:"encryption"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Email       EmailConfig       `mapstructure:"email"`
	Invitations InvitationConfig  `mapstructure:"invitations"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
}

// AppSettings holds deployment-wide settings.
type AppSettings struct {
	Environment string `mapstructure:"environment"`
	BaseURL     string `mapstructure:"base_url"`
}

// IsProduction reports whether the deployment runs in production mode.
func (a AppSettings) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(a.Environment), EnvironmentProduction)
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	LogLevel       string   `mapstructure:"log_level"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Database string            `mapstructure:"database"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	Options  map[string]string `mapstructure:"options"`
}

// CacheConfig describes cache backends.
type CacheConfig struct {
	Redis RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TLS      bool          `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// EncryptionConfig configures the cipher protecting encrypted columns.
type EncryptionConfig struct {
	Secret          string   `mapstructure:"secret"`
	Salt            string   `mapstructure:"salt"`
	PreviousSecrets []string `mapstructure:"previous_secrets"`
	Iterations      int      `mapstructure:"iterations"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// AuthConfig captures authentication settings.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	Provider string         `mapstructure:"provider"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	SendGrid SendGridConfig `mapstructure:"sendgrid"`
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

// SendGridConfig defines SendGrid API settings.
type SendGridConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	APIKey   string `mapstructure:"api_key"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

// InvitationConfig tunes the invitation flow.
type InvitationConfig struct {
	AcceptPath string `mapstructure:"accept_path"`
}

// MaintenanceConfig schedules background jobs.
type MaintenanceConfig struct {
	ReencryptSchedule string `mapstructure:"reencrypt_schedule"`
	BatchSize         int    `mapstructure:"batch_size"`
}

// RateLimitConfig bounds how often invitations can be sent.
type RateLimitConfig struct {
	InviteRequests int           `mapstructure:"invite_requests"`
	InviteWindow   time.Duration `mapstructure:"invite_window"`
}

// LoadConfig initialises application configuration. Dotenv files found in
// the working directory and in paths are loaded first; variables already
// present in the process environment take precedence over them.
func LoadConfig(paths ...string) (*Config, error) {
	dirs := append([]string{"."}, paths...)
	if err := loadDotEnv(dirs...); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

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

	config.App.Environment = strings.ToLower(strings.TrimSpace(config.App.Environment))
	switch config.App.Environment {
	case EnvironmentDevelopment, EnvironmentProduction:
	default:
		return nil, fmt.Errorf("config: unsupported app.environment %q", config.App.Environment)
	}

	return &config, nil
}

// loadDotEnv loads `.env.<environment>` and then `.env` from each directory.
// godotenv never overrides a variable that is already set, so the
// environment specific file wins over the shared one.
func loadDotEnv(dirs ...string) error {
	environment := resolveEnvironment(dirs)

	for _, dir := range dirs {
		for _, name := range []string{".env." + environment, ".env"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := godotenv.Load(path); err != nil {
				return fmt.Errorf("config: load %s: %w", path, err)
			}
		}
	}
	return nil
}

func resolveEnvironment(dirs []string) string {
	key := envPrefix + "_APP_ENVIRONMENT"
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return strings.ToLower(value)
	}
	for _, dir := range dirs {
		values, err := godotenv.Read(filepath.Join(dir, ".env"))
		if err != nil {
			continue
		}
		if value := strings.TrimSpace(values[key]); value != "" {
			return strings.ToLower(value)
		}
	}
	return EnvironmentDevelopment
}

// bindEnvKeys registers keys that have no default so AutomaticEnv can see them
// during Unmarshal.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"encryption.secret",
		"encryption.previous_secrets",
		"auth.jwt.secret",
		"database.dsn",
		"database.postgres.host",
		"database.postgres.port",
		"database.postgres.database",
		"database.postgres.username",
		"database.postgres.password",
		"database.mysql.host",
		"database.mysql.port",
		"database.mysql.database",
		"database.mysql.username",
		"database.mysql.password",
		"email.smtp.username",
		"email.smtp.password",
		"email.smtp.from",
		"email.sendgrid.api_key",
		"email.sendgrid.from",
		"email.sendgrid.from_name",
	} {
		_ = v.BindEnv(key)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", EnvironmentDevelopment)
	v.SetDefault("app.base_url", "http://localhost:8000")

	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/teamdash.sqlite")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")

	v.SetDefault("encryption.salt", "10")
	v.SetDefault("encryption.iterations", 100_000)

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")

	v.SetDefault("auth.jwt.issuer", "teamdash")
	v.SetDefault("auth.jwt.access_token_ttl", "1h")

	v.SetDefault("email.provider", "smtp")
	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")
	v.SetDefault("email.sendgrid.enabled", false)

	v.SetDefault("invitations.accept_path", "/invitations/accept")

	v.SetDefault("maintenance.reencrypt_schedule", "@hourly")
	v.SetDefault("maintenance.batch_size", 200)

	v.SetDefault("rate_limit.invite_requests", 20)
	v.SetDefault("rate_limit.invite_window", "1m")
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
