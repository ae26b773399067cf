package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/teamdash/internal/app"
	"github.com/charlesng35/teamdash/internal/handlers"
	"github.com/charlesng35/teamdash/internal/middleware"
	"github.com/charlesng35/teamdash/internal/services"
)

// Dependencies groups the services the HTTP layer is built on.
type Dependencies struct {
	DB          *gorm.DB
	Tokens      middleware.TokenValidator
	Users       *services.UserService
	Teams       *services.TeamService
	Projects    *services.ProjectService
	Invitations *services.InvitationService
	// RateStore backs invitation rate limiting; nil disables it.
	RateStore middleware.RateStore
}

func (d Dependencies) validate() error {
	switch {
	case d.DB == nil:
		return errors.New("database handle must be provided")
	case d.Tokens == nil:
		return errors.New("token validator must be provided")
	case d.Users == nil, d.Teams == nil, d.Projects == nil, d.Invitations == nil:
		return errors.New("all services must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(cfg *app.Config, deps Dependencies) (*gin.Engine, error) {
	if cfg == nil {
		return nil, errors.New("config must be provided")
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(cfg.App.IsProduction()))
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins...))

	registerHealthRoutes(r, deps.DB)
	registerMonitoringRoutes(r, cfg.Monitoring.Prometheus)

	requireAuth := middleware.Auth(deps.Tokens)
	api := r.Group("/api")

	registerAuthRoutes(api, handlers.NewAuthHandler(deps.Users), requireAuth)

	protected := api.Group("")
	protected.Use(requireAuth)

	inviteLimit := middleware.RateLimit(deps.RateStore, cfg.RateLimit.InviteRequests, cfg.RateLimit.InviteWindow)
	registerTeamRoutes(protected,
		handlers.NewTeamHandler(deps.Teams, deps.Projects),
		handlers.NewInvitationHandler(deps.Invitations),
		inviteLimit,
	)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
