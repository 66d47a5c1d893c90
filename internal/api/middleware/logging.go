// Package middleware provides HTTP middleware for the orchestrator's API
// boundary.
package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vabforge/vab-orchestrator/internal/logging"
)

// NewRequestLogger logs every request's method/URI/status/latency through
// the shared structured logger, replacing Echo's deprecated Logger().
func NewRequestLogger() echo.MiddlewareFunc {
	return NewRequestLoggerWithSkipper(nil)
}

// NewRequestLoggerWithSkipper is NewRequestLogger with a custom skipper
// (used to exclude health/status polling from per-request logging).
func NewRequestLoggerWithSkipper(skipper middleware.Skipper) echo.MiddlewareFunc {
	log := logging.ForComponent("http")
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper:     skipper,
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				log.Error("request",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"ip", v.RemoteIP,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error)
			} else {
				log.Info("request",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"ip", v.RemoteIP,
					"latency_ms", v.Latency.Milliseconds())
			}
			return nil
		},
	})
}
