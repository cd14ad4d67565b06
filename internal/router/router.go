package router // package router defines how HTTP routes are registered for the API

import (
	"log/slog"

	"github.com/google/uuid"      // uuid generates request ids
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/patient-records/internal/config"
	"github.com/iliyamo/patient-records/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/patient-records/internal/metrics"
	"github.com/iliyamo/patient-records/internal/middleware" // rate limiting, request logging and metrics
)

// Deps collects what Setup needs to build the HTTP surface.  Redis may be nil,
// in which case rate limiting is a pass-through.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
	Patients  *handler.PatientHandler
}

// Setup installs the error handler and global middleware on e and registers
// every route.
func Setup(e *echo.Echo, d Deps) {
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(d.Logger)

	// Order matters: recover first so panics still produce a logged 500,
	// then assign the request id that the logger and events pick up.
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(middleware.Metrics(d.Metrics))

	RegisterRoutes(e)
	RegisterMetrics(e, d.Metrics)
	RegisterPatients(e, d.Patients, middleware.NewRateLimiter(d.RateLimit, d.Redis, d.Logger))
}

// RegisterRoutes registers the operational routes that never touch the
// patient store: the health check used by load balancers plus the greeting
// and about endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/", handler.Root)
	e.GET("/about", handler.About)
}

// RegisterMetrics exposes the Prometheus registry at /metrics.
func RegisterMetrics(e *echo.Echo, m *metrics.Metrics) {
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
}

// RegisterPatients registers the patient CRUD endpoints.  Lookups draw from
// the limiter's read bucket and mutations from its write bucket; a nil
// limiter leaves both unlimited.
func RegisterPatients(e *echo.Echo, p *handler.PatientHandler, limiter *middleware.RateLimiter) {
	reads := e.Group("", limiter.Reads())
	reads.GET("/view", p.ListPatients)
	reads.GET("/view/:id", p.GetPatient)
	reads.GET("/sort", p.SortPatients)

	writes := e.Group("", limiter.Writes())
	writes.POST("/create", p.CreatePatient)
	writes.PUT("/edit/:id", p.UpdatePatient)
	writes.DELETE("/delete/:id", p.DeletePatient)
}
