package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/campusdesk/reception-service/internal/api/http/handlers"
	"github.com/campusdesk/reception-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Reception      *handlers.ReceptionHandler
	WS             *handlers.WSHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        nethttp.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(otelhttp.NewHandler(cfg.Metrics, "metrics")))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/staff/login", cfg.Auth.StaffLogin)
	authGroup.Post("/visitor", cfg.Auth.Visitor)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)
	api.Get("/presence", auth.RequireAnyRole(), cfg.Reception.Presence)
	api.Get("/calls", auth.RequireStaff(), cfg.Reception.Calls)

	app.Get("/ws", cfg.AuthMiddleware.Optional, cfg.WS.Upgrade, cfg.WS.Serve())
}
