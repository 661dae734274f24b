package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/chimibusiness/crm/internal/middleware"
	"github.com/chimibusiness/crm/internal/plugins/audit"
	"github.com/chimibusiness/crm/internal/ratelimit"
)

// RegisterRoutes sets up all auth-related routes on the given Echo instance.
// Login and registration are public and rate-limited per client IP; the
// limiter runs before the handler so rejected attempts never reach password
// hashing. A login flood is recorded once per client and window. Returns
// the RequireAuth middleware for other plugins to use.
func RegisterRoutes(e *echo.Echo, h *Handler, limiter *ratelimit.Limiter) echo.MiddlewareFunc {
	e.POST("/login", h.Login, middleware.RateLimit(limiter, ratelimit.ActionLogin,
		func(c echo.Context) {
			_ = h.events.LogEvent(c.Request().Context(),
				audit.NewRequestEvent(c, audit.EventLoginRateLimited, 0, 0, nil))
		}))
	e.POST("/register", h.Register, middleware.RateLimit(limiter, ratelimit.ActionRegister))
	e.POST("/logout", h.Logout)

	requireAuth := RequireAuth(h.service, h.cookie)

	users := e.Group("/users", requireAuth)
	users.GET("/me", h.Me)

	return requireAuth
}
