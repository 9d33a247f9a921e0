// Package http assembles the public HTTP server of the intake service.
package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/autonomia2025/autonomia-suite-landing/internal/config"
	"github.com/autonomia2025/autonomia-suite-landing/internal/hub"
	"github.com/autonomia2025/autonomia-suite-landing/internal/service"
	v1 "github.com/autonomia2025/autonomia-suite-landing/internal/transport/http/v1"
	"github.com/autonomia2025/autonomia-suite-landing/internal/ws"
)

// NewServer creates and configures the HTTP server: the v1 API, the push
// channel, health, metrics and the optional static site.
func NewServer(cfg *config.Config, svc *service.Service, connHub *hub.Hub) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = v1.NewValidator()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("64K"))
	if cfg.RateLimitRPS > 0 {
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Skipper: func(c echo.Context) bool {
				return c.Request().Method != http.MethodPost || !strings.HasPrefix(c.Path(), "/v1/")
			},
			Store: middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimitRPS)),
		}))
	}

	// Handlers
	v1Handler := v1.NewHandler(svc)
	wsServer := ws.NewServer(cfg, connHub, svc)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	wsServer.RegisterRoutes(e)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":      "healthy",
			"sessions":    svc.ActiveSessions(),
			"connections": connHub.ConnectionCount(),
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if cfg.StaticDir != "" {
		e.Static("/", cfg.StaticDir)
	}

	return e
}
