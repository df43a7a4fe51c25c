package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tarothouse/backend/internal/api/http/handlers"
	"github.com/tarothouse/backend/internal/auth"
	"github.com/tarothouse/backend/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Users     *handlers.UsersHandler
	Admin     *handlers.AdminHandler
	UserGate  *auth.Gate
	AdminGate *auth.Gate
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	user := app.Group("/user")
	user.Post("/ping", cfg.Users.Ping)
	user.Post("/reg", cfg.Users.Register)
	user.Post("/login", cfg.Users.Login)
	requireUser := auth.RequireClass(domain.SubjectClassUser)
	user.Post("/act", cfg.UserGate.Handle, requireUser, cfg.Users.Act)
	user.Post("/logout", cfg.UserGate.Handle, requireUser, cfg.Users.Logout)

	admin := app.Group("/private/admin")
	admin.Post("/ping", cfg.Admin.Ping)
	admin.Post("/login", cfg.Admin.Login)
	requireAdmin := auth.RequireClass(domain.SubjectClassAdmin)
	admin.Post("/action", cfg.AdminGate.Handle, requireAdmin, cfg.Admin.Action)
	admin.Post("/logout", cfg.AdminGate.Handle, requireAdmin, cfg.Admin.Logout)
}
