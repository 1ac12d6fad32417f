package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ticketshield/citation-intake/internal/api/http/handlers"
	"github.com/ticketshield/citation-intake/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Cases          *handlers.CasesHandler
	Alerts         *handlers.AlertsHandler
	Auth           *handlers.AuthHandler
	Webhooks       *handlers.WebhookHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/cases/extraction", cfg.Cases.CreateFromExtraction)
	app.Post("/cases/form", cfg.Cases.CreateFromForm)

	app.Post("/webhooks/payment", cfg.Webhooks.HandlePayment)

	app.Post("/admin/login", cfg.Auth.Login)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle)
	admin.Get("/cases/:id", cfg.Cases.Get)
	admin.Post("/cases/:id/status", cfg.Cases.OverrideStatus)
	admin.Get("/alerts", cfg.Alerts.List)
	admin.Post("/alerts/:id/resolve", cfg.Alerts.Resolve)
	admin.Post("/alerts/:id/notes", cfg.Alerts.AddNote)
	admin.Get("/metrics", cfg.Cases.Metrics)
}
