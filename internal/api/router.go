package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/meetkit/meetkit/internal/api/handler"
	"github.com/meetkit/meetkit/internal/api/metrics"
	"github.com/meetkit/meetkit/internal/api/middleware"
	"github.com/meetkit/meetkit/internal/core/domain"
	"github.com/meetkit/meetkit/internal/core/ports"
	"github.com/meetkit/meetkit/internal/core/service"
)

// Dependencies carries everything the router wires into handlers. All
// construction happens in main; the router only binds routes.
type Dependencies struct {
	Tokens   ports.TokenService
	Auth     ports.AuthService
	Projects ports.ProjectService
	Sessions ports.SessionService
	Broker   handler.BrokerAuthorizer

	ProjectRepo ports.ProjectRepository
	Watchers    *service.WatcherRegistry

	Mongo *mongo.Database
	Redis *redis.Client
	Log   zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("meetkit"))

	metrics.RegisterWatcherGauge(func() float64 {
		return float64(deps.Watchers.Active())
	})

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	projectHandler := handler.NewProjectHandler(deps.Projects)
	sessionHandler := handler.NewSessionHandler(deps.Sessions)
	brokerHandler := handler.NewBrokerHandler(deps.Broker)

	authMW := middleware.Auth(deps.Tokens)
	ownershipMW := middleware.Ownership(deps.ProjectRepo)
	userOnly := middleware.RequireRole(domain.RoleAdmin, domain.RoleMember)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/refresh", authHandler.Refresh)
	e.POST("/auth/logout", authHandler.Logout, authMW)

	// --- Broker auth-backend callbacks ---
	e.GET("/auth/user", brokerHandler.User)
	e.GET("/auth/vhost", brokerHandler.Vhost)
	e.GET("/auth/resource", brokerHandler.Resource)
	e.GET("/auth/topic", brokerHandler.Topic)

	// --- Project routes (human principals only) ---
	v1 := e.Group("/v1", authMW)
	v1.POST("/projects", projectHandler.Create, userOnly)
	v1.GET("/projects", projectHandler.List, userOnly)

	projects := v1.Group("/projects/:project_id", ownershipMW)
	projects.GET("", projectHandler.Get)
	projects.POST("/device-groups", projectHandler.AddDeviceGroup, userOnly)
	projects.POST("/devices", projectHandler.RegisterDevice, userOnly)
	projects.GET("/devices", projectHandler.ListDevices, userOnly)
	projects.POST("/keys", projectHandler.IssueKey, userOnly)

	// --- Session routes (human or project principals) ---
	projects.POST("/sessions", sessionHandler.Create)
	projects.GET("/sessions", sessionHandler.List)
	projects.GET("/sessions/:session_id", sessionHandler.Get)
	projects.POST("/sessions/:session_id/stop", sessionHandler.Stop)
	projects.DELETE("/sessions/:session_id", sessionHandler.Delete)
	projects.POST("/sessions/:session_id/token", sessionHandler.Token)
	projects.GET("/sessions/:session_id/egresses", sessionHandler.Egresses)

	// --- Observability ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)

	return e
}
