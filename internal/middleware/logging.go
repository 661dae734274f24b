// Package middleware provides HTTP middleware for the CRM API. Middleware is
// applied globally (all routes) or per route depending on the type. See
// internal/app for registration order.
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// ContextKeyUserID is the Echo context key under which the auth plugin
// stores the authenticated user's ID. Read here so request logs carry it
// without this package importing the auth plugin.
const ContextKeyUserID = "auth_user_id"

// RequestLogger returns middleware that logs every HTTP request with
// structured fields: method, path, status, latency, remote IP and, once the
// session is resolved, the user ID.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Run the error handler now so the logged status is final.
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Duration("latency", time.Since(start)),
				slog.String("remote_ip", c.RealIP()),
			}
			if id, ok := c.Get(ContextKeyUserID).(string); ok && id != "" {
				attrs = append(attrs, slog.String("user_id", id))
			}

			level := slog.LevelInfo
			if res.Status >= 500 {
				level = slog.LevelError
			} else if res.Status >= 400 {
				level = slog.LevelWarn
			}

			slog.LogAttrs(req.Context(), level, "request", attrs...)

			return nil
		}
	}
}
