package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/intake-service/internal/api/http/handlers"
	"github.com/spec-kit/intake-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Applications   *handlers.ApplicationsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Paths match the legacy frontend contract
// and must not change without coordinating a frontend release.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Health.Home)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/signup", cfg.Auth.Signup)
	app.Post("/login", cfg.Auth.Login)
	app.Get("/profile", cfg.AuthMiddleware.Handle, cfg.Auth.Profile)

	app.Post("/applicationForm", cfg.Applications.Submit)

	app.Get("/adminPg", cfg.Admin.List)
	app.Put("/adminPg/:id", cfg.Admin.UpdateStatus)
}
