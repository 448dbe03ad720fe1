package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/workorder-service/internal/api/http/handlers"
	"github.com/fieldops/workorder-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	session := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	session.Post("/logout", cfg.Users.Logout)
	session.Get("/me", cfg.Users.Me)
	session.Patch("/me", cfg.Users.UpdateProfile)
	session.Post("/password/change", cfg.Users.ChangePassword)
	session.Post("/two-factor", cfg.Users.SetTwoFactor)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	tickets.Get("/", cfg.Tickets.List)
	tickets.Post("/", cfg.Tickets.Create)
	// Static segments before the :id wildcard.
	tickets.Get("/stats", cfg.Tickets.Stats)
	tickets.Get("/expiring", cfg.Tickets.Expiring)
	tickets.Get("/reports", cfg.Tickets.Reports)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id", cfg.Tickets.Update)
	tickets.Post("/:id/close", cfg.Tickets.Close)
	tickets.Post("/:id/renew", cfg.Tickets.Renew)
	tickets.Post("/:id/assign", cfg.Tickets.Assign)
	tickets.Get("/:id/logs", cfg.Tickets.AuditTrail)

	app.Get("/dashboard", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Dashboard.Get)

	users := app.Group("/users", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	users.Get("/contractors", cfg.Users.ListContractors)
	users.Patch("/:id", cfg.Users.AdminUpdateUser)
}
