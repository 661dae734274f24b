// Package middleware provides HTTP middleware for the CRM API.
// ratelimit.go adapts the ratelimit.Limiter to Echo. It must run before the
// handler so rejected requests never reach password hashing.
package middleware

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/chimibusiness/crm/internal/apperror"
	"github.com/chimibusiness/crm/internal/ratelimit"
)

// RejectHook is called when a client first goes over its budget in a
// window, before the 429 is returned. Later rejections in the same window
// skip the hooks so a flood costs no more than the counter update.
type RejectHook func(c echo.Context)

// RateLimit returns middleware that charges every request against the given
// action's budget for the caller's real IP. Over-budget requests get a 429
// AppError and the handler is skipped.
func RateLimit(limiter *ratelimit.Limiter, action ratelimit.Action, onReject ...RejectHook) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			client := c.RealIP()
			d := limiter.Take(action, client)
			if !d.Allowed {
				if d.FirstRejection {
					slog.Warn("rate limit exceeded",
						slog.String("action", string(action)),
						slog.String("client", client),
					)
					for _, hook := range onReject {
						hook(c)
					}
				}
				return apperror.NewRateLimited()
			}
			return next(c)
		}
	}
}
