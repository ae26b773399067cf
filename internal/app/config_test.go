package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/teamdash/internal/auth"
)

// isolateEnv makes sure variables written by godotenv during a test are
// removed again afterwards.
func isolateEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	isolateEnv(t, "TEAMDASH_APP_ENVIRONMENT")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, EnvironmentDevelopment, cfg.App.Environment)
	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "10", cfg.Encryption.Salt)
	require.Equal(t, 100_000, cfg.Encryption.Iterations)
	require.Equal(t, "@hourly", cfg.Maintenance.ReencryptSchedule)
	require.Equal(t, 200, cfg.Maintenance.BatchSize)
	require.Equal(t, time.Minute, cfg.RateLimit.InviteWindow)
	require.Equal(t, time.Hour, cfg.Auth.JWT.TTL)
	require.Equal(t, 5*time.Second, cfg.Cache.Redis.Timeout)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
}

func TestLoadConfigFromFile(t *testing.T) {
	isolateEnv(t, "TEAMDASH_APP_ENVIRONMENT")

	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.True(t, cfg.App.IsProduction())
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, []string{"https://dash.example.com"}, cfg.Server.AllowedOrigins)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, "from-file", cfg.Encryption.Secret)
	require.Equal(t, []string{"retired-one", "retired-two"}, cfg.Encryption.PreviousSecrets)
	require.Equal(t, "sendgrid", cfg.Email.Provider)
	require.Equal(t, "@every 30m", cfg.Maintenance.ReencryptSchedule)
	require.Equal(t, 50, cfg.Maintenance.BatchSize)

	dbCfg := cfg.Database.ConnectionConfig()
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, 6543, dbCfg.Port)
	require.Equal(t, "teamdash", dbCfg.User)
	require.Equal(t, "require", dbCfg.Options["sslmode"])
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("TEAMDASH_ENCRYPTION_SECRET", "from-env")
	t.Setenv("TEAMDASH_ENCRYPTION_PREVIOUS_SECRETS", "old-a,old-b")
	t.Setenv("TEAMDASH_SERVER_PORT", "7070")
	isolateEnv(t, "TEAMDASH_APP_ENVIRONMENT")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "from-env", cfg.Encryption.Secret)
	require.Equal(t, []string{"old-a", "old-b"}, cfg.Encryption.PreviousSecrets)
	require.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadConfigDotEnvPerEnvironment(t *testing.T) {
	isolateEnv(t, "TEAMDASH_APP_ENVIRONMENT", "TEAMDASH_ENCRYPTION_SECRET", "TEAMDASH_AUTH_JWT_SECRET")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("TEAMDASH_APP_ENVIRONMENT=production\nTEAMDASH_ENCRYPTION_SECRET=shared\nTEAMDASH_AUTH_JWT_SECRET=jwt-shared\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.production"),
		[]byte("TEAMDASH_ENCRYPTION_SECRET=prod-secret\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.development"),
		[]byte("TEAMDASH_ENCRYPTION_SECRET=dev-secret\n"), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Equal(t, EnvironmentProduction, cfg.App.Environment)
	require.Equal(t, "prod-secret", cfg.Encryption.Secret)
	require.Equal(t, "jwt-shared", cfg.Auth.JWT.Secret)
}

func TestLoadConfigRejectsUnknownEnvironment(t *testing.T) {
	t.Setenv("TEAMDASH_APP_ENVIRONMENT", "staging")

	_, err := LoadConfig(t.TempDir())
	require.ErrorContains(t, err, "unsupported app.environment")
}

func TestAuthConfigAdapter(t *testing.T) {
	cfg := AuthConfig{JWT: JWTSettings{Secret: "s", Issuer: "teamdash"}}

	jwtCfg := cfg.JWTServiceConfig()
	require.Equal(t, "s", jwtCfg.Secret)
	require.Equal(t, "teamdash", jwtCfg.Issuer)
	require.Equal(t, auth.DefaultAccessTokenTTL, jwtCfg.AccessTokenTTL)
}

func TestEmailConfigAdapter(t *testing.T) {
	cfg := EmailConfig{
		Provider: "smtp",
		SMTP: SMTPConfig{
			Enabled:  true,
			Host:     "smtp.example.com",
			Port:     2525,
			Username: "user",
			Password: "pass",
			From:     "no-reply@example.com",
			UseTLS:   true,
			Timeout:  10 * time.Second,
		},
		SendGrid: SendGridConfig{APIKey: "SG.key"},
	}

	settings := cfg.MailSettings()
	require.Equal(t, "smtp", settings.Provider)
	require.True(t, settings.SMTP.Enabled)
	require.Equal(t, "smtp.example.com", settings.SMTP.Host)
	require.Equal(t, 2525, settings.SMTP.Port)
	require.Equal(t, 10*time.Second, settings.SMTP.Timeout)
	require.Equal(t, "SG.key", settings.SendGrid.APIKey)
}

func TestEncryptionConfigBuildsRotatingCipher(t *testing.T) {
	old := EncryptionConfig{Secret: "old", Salt: "10", Iterations: 1000}
	oldCipher, err := old.NewFieldCipher()
	require.NoError(t, err)

	sealed, err := oldCipher.Seal("alice@example.com")
	require.NoError(t, err)

	rotated := EncryptionConfig{Secret: "new", Salt: "10", Iterations: 1000, PreviousSecrets: []string{" old ", ""}}
	cipher, err := rotated.NewFieldCipher()
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", cipher.Open(sealed))

	_, err = EncryptionConfig{}.NewFieldCipher()
	require.Error(t, err)
}

func TestDatabaseConnectionConfig(t *testing.T) {
	require.Equal(t, "sqlite", DatabaseConfig{}.ConnectionConfig().Driver)

	mysqlCfg := DatabaseConfig{Driver: "MySQL", MySQL: DBAuthConfig{Host: "db", Username: "u", Database: "d"}}.ConnectionConfig()
	require.Equal(t, "mysql", mysqlCfg.Driver)
	require.Equal(t, "db", mysqlCfg.Host)
	require.Equal(t, "u", mysqlCfg.User)
}
