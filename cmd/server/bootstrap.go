package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/teamdash/internal/api"
	"github.com/charlesng35/teamdash/internal/app"
	"github.com/charlesng35/teamdash/internal/app/maintenance"
	iauth "github.com/charlesng35/teamdash/internal/auth"
	"github.com/charlesng35/teamdash/internal/cache"
	"github.com/charlesng35/teamdash/internal/database"
	"github.com/charlesng35/teamdash/internal/fieldcrypt"
	"github.com/charlesng35/teamdash/internal/middleware"
	"github.com/charlesng35/teamdash/internal/services"
	"github.com/charlesng35/teamdash/pkg/mail"
)

const maintenanceDrainTimeout = 30 * time.Second

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Cache     cache.Store
	Cipher    *fieldcrypt.Cipher
	Scheduler *maintenance.Scheduler
	Router    *gin.Engine

	redis *cache.RedisStore
}

// bootstrapRuntime initialises the database, cipher, cache, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	stack.Cipher, err = cfg.Encryption.NewFieldCipher()
	if err != nil {
		return nil, fmt.Errorf("initialise field cipher: %w", err)
	}

	state, err := database.EnsureFieldKeyCanary(ctx, stack.DB, stack.Cipher)
	switch {
	case errors.Is(err, database.ErrFieldKeyMismatch):
		// Stored values still read back raw through the fallback path.
		log.Error("encryption.secret does not match the key stored data was sealed with; add the old secret to encryption.previous_secrets")
	case err != nil:
		return nil, fmt.Errorf("verify field encryption key: %w", err)
	case state == fieldcrypt.StateRetired:
		log.Info("field encryption key rotated; retired values will be re-sealed by the maintenance sweep")
	}

	stack.Cache = cache.NewMemoryStore()
	if cfg.Cache.Redis.Enabled {
		if stack.redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to in-process cache", zap.Error(err))
		} else {
			stack.Cache = stack.redis
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	mailer, err := mail.New(cfg.Email.MailSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}

	deps, err := buildDependencies(cfg, stack.DB, jwtSvc, stack.Cipher, mailer)
	if err != nil {
		return nil, err
	}
	deps.RateStore = middleware.NewRateStore(stack.Cache)

	stack.Scheduler = maintenance.NewScheduler(stack.DB, stack.Cipher,
		maintenance.WithReencryptSchedule(cfg.Maintenance.ReencryptSchedule),
		maintenance.WithBatchSize(cfg.Maintenance.BatchSize),
	)
	if err := stack.Scheduler.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func buildDependencies(cfg *app.Config, db *gorm.DB, jwtSvc *iauth.JWTService, cipher *fieldcrypt.Cipher, mailer mail.Mailer) (api.Dependencies, error) {
	users, err := services.NewUserService(db, jwtSvc)
	if err != nil {
		return api.Dependencies{}, fmt.Errorf("initialise user service: %w", err)
	}
	teams, err := services.NewTeamService(db)
	if err != nil {
		return api.Dependencies{}, fmt.Errorf("initialise team service: %w", err)
	}
	projects, err := services.NewProjectService(db)
	if err != nil {
		return api.Dependencies{}, fmt.Errorf("initialise project service: %w", err)
	}
	invitations, err := services.NewInvitationService(db, cipher, mailer,
		services.WithInvitationBaseURL(cfg.App.BaseURL),
		services.WithInvitationAcceptPath(cfg.Invitations.AcceptPath),
	)
	if err != nil {
		return api.Dependencies{}, fmt.Errorf("initialise invitation service: %w", err)
	}

	return api.Dependencies{
		DB:          db,
		Tokens:      jwtSvc,
		Users:       users,
		Teams:       teams,
		Projects:    projects,
		Invitations: invitations,
	}, nil
}

// Shutdown stops background jobs, runs a final sweep, and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Scheduler != nil {
		select {
		case <-s.Scheduler.Stop().Done():
		case <-time.After(maintenanceDrainTimeout):
			log.Warn("maintenance jobs still running at shutdown")
		}
		if err := s.Scheduler.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown sweep failed", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config, log *zap.Logger) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		closeDatabase(db, log)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log.Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
