package audit

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the security event endpoints on g behind mw. The
// caller supplies the guards (authentication plus admin role or above).
func RegisterRoutes(g *echo.Group, h *Handler, mw ...echo.MiddlewareFunc) {
	g.GET("/security-events", h.Events, mw...)
	g.GET("/security-events/stats", h.Stats, mw...)
}
