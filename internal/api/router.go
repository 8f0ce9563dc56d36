package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/ant-retail/attendance-bot/docs"
	"github.com/ant-retail/attendance-bot/internal/api/handler"
	"github.com/ant-retail/attendance-bot/internal/api/middleware"
)

// RouterDeps groups what the HTTP surface needs.
type RouterDeps struct {
	Dispatcher handler.ActionDispatcher
	// Readiness lists the dependencies pinged by GET /health/ready.
	Readiness map[string]handler.Pinger
	// IngestSecret enables bearer auth on /v1 when non-empty.
	IngestSecret string
	// Registerer receives the HTTP metrics. Defaults to the global registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps, log zerolog.Logger) *echo.Echo {
	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:                 "attendance",
		Subsystem:                 "http",
		Registerer:                deps.Registerer,
		DoNotUseRequestPathFor404: true,
	}))

	// --- Ops endpoints (no auth required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness)                      // liveness  – is the process alive?
	e.GET("/health/ready", handler.NewReadinessHandler(deps.Readiness).Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Action ingest ---
	v1 := e.Group("/v1")
	if deps.IngestSecret != "" {
		v1.Use(middleware.IngestAuth(deps.IngestSecret))
	} else {
		log.Warn().Msg("INGEST_SECRET not set, action ingest is unauthenticated")
	}
	actions := handler.NewActionHandler(deps.Dispatcher)
	v1.POST("/actions", actions.Receive)
	v1.POST("/actions/batch", actions.ReceiveBatch)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	})
}
