package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/teamdash/internal/app"
	"github.com/charlesng35/teamdash/internal/cache"
	"github.com/charlesng35/teamdash/internal/database"
	testutil "github.com/charlesng35/teamdash/internal/database/testutil"
	"github.com/charlesng35/teamdash/internal/models"
)

func testConfig(dsn string) *app.Config {
	return &app.Config{
		App:      app.AppSettings{Environment: app.EnvironmentDevelopment, BaseURL: "http://localhost:8000"},
		Database: app.DatabaseConfig{Driver: "sqlite", DSN: dsn},
		Encryption: app.EncryptionConfig{
			Secret:     "s3cr3t",
			Salt:       "10",
			Iterations: 1000,
		},
		Auth:        app.AuthConfig{JWT: app.JWTSettings{Secret: "jwt-secret", Issuer: "teamdash", TTL: time.Hour}},
		Email:       app.EmailConfig{Provider: "smtp"},
		Maintenance: app.MaintenanceConfig{ReencryptSchedule: "@hourly", BatchSize: 50},
		RateLimit:   app.RateLimitConfig{InviteRequests: 10, InviteWindow: time.Minute},
	}
}

func TestBootstrapRuntimeWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig(testutil.MemoryDSN())
	cfg.Cache.Redis = app.RedisCacheConfig{Enabled: true, Address: mr.Addr(), Timeout: time.Second}

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.IsType(t, &cache.RedisStore{}, stack.Cache)

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	canary, err := database.GetSystemSetting(context.Background(), stack.DB, database.FieldKeyCanarySetting)
	require.NoError(t, err)
	require.NotEmpty(t, canary)

	stack.Shutdown(context.Background(), zap.NewNop())
}

func TestBootstrapRuntimeFallsBackToMemoryCache(t *testing.T) {
	cfg := testConfig(testutil.MemoryDSN())
	cfg.Cache.Redis = app.RedisCacheConfig{Enabled: true, Address: "127.0.0.1:1", Timeout: 100 * time.Millisecond}

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.IsType(t, &cache.MemoryStore{}, stack.Cache)
}

func TestBootstrapRuntimeMigratesLegacyRowsOnShutdown(t *testing.T) {
	dsn := testutil.MemoryDSN()

	// Keep one connection open so the in-memory database outlives the stack.
	keeper, err := database.Open(database.Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	keeperSQL, err := keeper.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = keeperSQL.Close() })
	require.NoError(t, database.AutoMigrate(keeper))

	owner := models.User{Email: "owner@example.com", Password: "hash"}
	require.NoError(t, keeper.Create(&owner).Error)
	team := models.Team{Name: "Platform"}
	require.NoError(t, keeper.Create(&team).Error)
	legacy := models.TeamInvitation{UserID: owner.ID, TeamID: team.ID, Token: "legacy", StoredEmail: "legacy@example.com"}
	require.NoError(t, keeper.Create(&legacy).Error)

	stack, err := bootstrapRuntime(context.Background(), testConfig(dsn), zap.NewNop())
	require.NoError(t, err)
	cipher := stack.Cipher
	stack.Shutdown(context.Background(), zap.NewNop())

	var reloaded models.TeamInvitation
	require.NoError(t, keeper.First(&reloaded, legacy.ID).Error)
	require.NotEqual(t, "legacy@example.com", reloaded.StoredEmail)
	require.Equal(t, "legacy@example.com", reloaded.GetEmail(cipher))
}

func TestBootstrapRuntimeRejectsBadDriver(t *testing.T) {
	cfg := testConfig("")
	cfg.Database.Driver = "oracle"

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestLoadApplicationConfig(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "missing"))
	require.ErrorContains(t, err, "does not exist")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0o600))

	cfg, err := loadApplicationConfig(path)
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)
}
