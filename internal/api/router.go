package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/accounts-service/docs"
	"github.com/99minutos/accounts-service/internal/api/handler"
	"github.com/99minutos/accounts-service/internal/api/metrics"
	"github.com/99minutos/accounts-service/internal/api/middleware"
	"github.com/99minutos/accounts-service/internal/core/ports"
)

const (
	metricsSubsystem = "http"
	bodyLimit        = "1M"
)

// Deps is everything the HTTP layer needs; main wires the concrete types.
type Deps struct {
	Log             zerolog.Logger
	AuthService     ports.AuthService
	AccountService  ports.AccountService
	LiveValidator   ports.LiveValidator
	Tokens          ports.TokenIssuer
	HealthChecks    map[string]ports.Pinger
	RequireVerified bool
	DocsEnabled     bool
}

// NewRouter builds and returns the Echo instance with all routes registered.
// Each router owns its Prometheus registry, so building several (as tests
// do) never collides on registration.
func NewRouter(deps Deps) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metrics.Register(reg); err != nil {
		return nil, err
	}

	// --- Pre-routing: /auth/login and /auth/login/ are the same route ---
	e.Pre(echomiddleware.AddTrailingSlashWithConfig(echomiddleware.TrailingSlashConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return !strings.HasPrefix(p, "/auth/") && !strings.HasPrefix(p, "/validate-")
		},
	}))

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  metricsSubsystem,
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.AuthService)
	profileHandler := handler.NewProfileHandler(deps.AccountService)
	validationHandler := handler.NewValidationHandler(deps.LiveValidator)
	healthHandler := handler.NewHealthHandler(deps.HealthChecks)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/register/", authHandler.Register)
	auth.POST("/login/", authHandler.Login)
	auth.POST("/token/refresh/", authHandler.Refresh)
	auth.POST("/logout/", authHandler.Logout)

	// --- Profile (bearer access token required) ---
	profile := auth.Group("/profile",
		middleware.Auth(deps.Tokens),
		middleware.LoadAccount(deps.AccountService, deps.RequireVerified),
	)
	profile.GET("/", profileHandler.Get)
	profile.PUT("/", profileHandler.Put)
	profile.PATCH("/", profileHandler.Patch)

	// --- Live validation ---
	e.POST("/validate-username/", validationHandler.ValidateUsername)
	e.POST("/validate-email/", validationHandler.ValidateEmail)
	e.POST("/validate-password/", validationHandler.ValidatePassword)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg}))
	if deps.DocsEnabled {
		e.GET("/docs/*", echoSwagger.WrapHandler)
	}

	return e, nil
}
