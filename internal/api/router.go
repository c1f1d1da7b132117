package api

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	iauth "github.com/endorhq/endor/internal/auth"
	"github.com/endorhq/endor/internal/handlers"
	"github.com/endorhq/endor/internal/middleware"
	"github.com/endorhq/endor/internal/monitoring"
	"github.com/endorhq/endor/internal/monitoring/checks"
	"github.com/endorhq/endor/internal/services"
)

const (
	defaultAuthRateLimit  = 20
	defaultAuthRateWindow = time.Minute
)

// Services bundles the application services the router delegates to.
type Services struct {
	Users       *services.UserService
	Projects    *services.ProjectService
	Invites     *services.InviteService
	Tools       *services.ToolService
	Credentials *services.CredentialService
}

// Options carries the non-service dependencies of the router.
type Options struct {
	JWT  *iauth.JWTService
	Ping func(ctx context.Context) error

	// Probes are evaluated by /health after the database ping.
	Probes []monitoring.Probe

	// RateStore backs the limiter on the public auth routes. Nil uses an in-memory store.
	RateStore      middleware.RateStore
	AuthRateLimit  int
	AuthRateWindow time.Duration

	// MetricsPath mounts the Prometheus handler. Empty disables it.
	MetricsPath string

	HSTS bool
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(svc Services, opts Options) (*gin.Engine, error) {
	switch {
	case svc.Users == nil, svc.Projects == nil, svc.Invites == nil, svc.Tools == nil, svc.Credentials == nil:
		return nil, errors.New("router: all services must be provided")
	case opts.JWT == nil:
		return nil, errors.New("router: jwt service must be provided")
	case opts.Ping == nil:
		return nil, errors.New("router: database ping must be provided")
	}

	authHandler, err := handlers.NewAuthHandler(svc.Users, opts.JWT)
	if err != nil {
		return nil, err
	}
	userHandler, err := handlers.NewUserHandler(svc.Users, svc.Invites)
	if err != nil {
		return nil, err
	}
	projectHandler, err := handlers.NewProjectHandler(svc.Projects, svc.Invites)
	if err != nil {
		return nil, err
	}
	inviteHandler, err := handlers.NewInviteHandler(svc.Invites, svc.Projects)
	if err != nil {
		return nil, err
	}
	toolHandler, err := handlers.NewToolHandler(svc.Tools)
	if err != nil {
		return nil, err
	}
	integrationHandler, err := handlers.NewIntegrationHandler(svc.Credentials)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(opts.HSTS))

	health := monitoring.NewManager(checks.Database(opts.Ping, 0))
	for _, probe := range opts.Probes {
		health.Register(probe)
	}
	r.GET("/health", handlers.Health(health))
	if opts.MetricsPath != "" {
		r.GET(opts.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")

	registerAuthRoutes(api, authHandler, opts)

	protected := api.Group("")
	protected.Use(middleware.Auth(opts.JWT))
	protected.GET("/auth/me", authHandler.Me)

	registerUserRoutes(protected, userHandler)
	registerProjectRoutes(protected, projectHandler, svc.Projects)
	registerInviteRoutes(protected, inviteHandler)
	registerToolRoutes(protected, toolHandler)
	registerIntegrationRoutes(protected, integrationHandler)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
