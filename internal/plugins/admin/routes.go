package admin

import (
	"github.com/labstack/echo/v4"

	"github.com/chimibusiness/crm/internal/middleware"
	"github.com/chimibusiness/crm/internal/plugins/audit"
	"github.com/chimibusiness/crm/internal/plugins/auth"
	"github.com/chimibusiness/crm/internal/ratelimit"
)

// RegisterRoutes mounts the /admin group. requireAuth is the middleware
// returned by auth.RegisterRoutes. Role guards are per route; the admin
// password gate is additionally rate-limited per client IP.
func RegisterRoutes(e *echo.Echo, h *Handler, events *audit.Handler, requireAuth echo.MiddlewareFunc, limiter *ratelimit.Limiter) {
	g := e.Group("/admin", requireAuth)

	g.POST("/verify-password", h.VerifyPassword,
		auth.RequireRole(auth.RoleCurator),
		middleware.RateLimit(limiter, ratelimit.ActionAdminVerify),
	)

	g.GET("/users", h.Users, auth.RequireRole(auth.RoleAdmin))
	g.PUT("/users/:id/role", h.ChangeRole, auth.RequireRole(auth.RoleOwner))
	g.PUT("/users/:id/active", h.SetActive, auth.RequireRole(auth.RoleAdmin))

	audit.RegisterRoutes(g, events, auth.RequireRole(auth.RoleAdmin))
}
