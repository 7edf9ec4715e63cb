package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chatdesk-admin/internal/api/http/handlers"
	"github.com/spec-kit/chatdesk-admin/internal/auth"
	"github.com/spec-kit/chatdesk-admin/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Admins         *handlers.AccountsHandler
	Agents         *handlers.AccountsHandler
	Teams          *handlers.TeamsHandler
	Flows          *handlers.FlowsHandler
	Channels       *handlers.ChannelsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// crudHandler is the route surface shared by every administered resource.
type crudHandler interface {
	List(c *fiber.Ctx) error
	Get(c *fiber.Ctx) error
	Create(c *fiber.Ctx) error
	Update(c *fiber.Ctx) error
	Delete(c *fiber.Ctx) error
	BulkDelete(c *fiber.Ctx) error
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	health := app.Group("/health")
	health.Get("/live", cfg.Health.Live)
	health.Get("/ready", cfg.Health.Ready)
	health.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api")
	api.Post("/auth/login", cfg.Auth.Login)
	api.Get("/auth/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)
	api.Get("/public/channels/:id", cfg.Channels.PublicInfo)

	requireAdmin := cfg.AuthMiddleware.Require(domain.RoleAdmin)
	registerCRUD(api, "/admins", cfg.Admins, requireAdmin)
	registerCRUD(api, "/agents", cfg.Agents, requireAdmin)
	registerCRUD(api, "/teams", cfg.Teams, requireAdmin)

	flows := registerCRUD(api, "/flows", cfg.Flows, requireAdmin)
	flows.Post("/import", cfg.Flows.Import)
	flows.Post("/:id/duplicate", cfg.Flows.Duplicate)
	flows.Get("/:id/export", cfg.Flows.Export)

	channels := registerCRUD(api, "/channels", cfg.Channels, requireAdmin)
	channels.Patch("/:id/toggle-active", cfg.Channels.ToggleActive)
}

func registerCRUD(router fiber.Router, prefix string, h crudHandler, guard fiber.Handler) fiber.Router {
	group := router.Group(prefix, guard)
	group.Get("", h.List)
	group.Post("", h.Create)
	group.Post("/bulk-delete", h.BulkDelete)
	group.Get("/:id", h.Get)
	group.Put("/:id", h.Update)
	group.Delete("/:id", h.Delete)
	return group
}
