// Package http provides the HTTP servers for the job search service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/gethired/jobagents/internal/health"
)

// NewServer creates and configures the task-facing HTTP server. This server
// handles A2A task calls, approval decisions and the live event feed.
func NewServer(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	h.RegisterRoutes(e)

	return e
}

// NewHealthServer creates the operational server exposing liveness and
// readiness probes on a separate port.
func NewHealthServer(checker *health.Checker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		report := checker.Report()
		if !checker.Healthy() {
			return c.JSON(503, report)
		}
		return c.JSON(200, report)
	})
	e.GET("/ready", func(c echo.Context) error {
		if !checker.Ready() {
			return c.JSON(503, map[string]string{"status": "not ready"})
		}
		return c.JSON(200, map[string]string{"status": "ready"})
	})

	return e
}
