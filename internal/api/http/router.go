package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Issues         *handlers.IssuesHandler
	Upload         *handlers.UploadHandler
	Analytics      *handlers.AnalyticsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        http.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	protect := cfg.AuthMiddleware.Handle

	issues := api.Group("/issues", protect)
	issues.Post("/", auth.RequireRoles(domain.RoleStudent), cfg.Issues.CreateIssue)
	issues.Get("/", auth.RequireAnyRole(), cfg.Issues.ListIssues)
	issues.Get("/forward-candidates", auth.RequireAnyRole(), cfg.Issues.ForwardCandidates)
	issues.Get("/:id", auth.RequireAnyRole(), cfg.Issues.GetIssue)
	issues.Put("/:id/status", auth.RequireRoles(append([]domain.Role{domain.RoleStudent}, domain.AuthorityRoles...)...), cfg.Issues.UpdateStatus)
	issues.Post("/:id/reopen", auth.RequireRoles(domain.RoleStudent), cfg.Issues.ReopenIssue)

	api.Post("/upload", protect, auth.RequireAuthority(), cfg.Upload.Upload)
	api.Get("/uploads/*", cfg.Upload.Serve)

	api.Get("/analytics", protect, auth.RequireRoles(domain.RoleDean, domain.RolePrincipal, domain.RoleAdmin), cfg.Analytics.Summary)
	api.Get("/admin/data", protect, auth.RequireRoles(domain.RoleAdmin), cfg.Analytics.AdminData)
}
