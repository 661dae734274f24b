package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chimibusiness/crm/internal/plugins/admin"
	"github.com/chimibusiness/crm/internal/plugins/audit"
	"github.com/chimibusiness/crm/internal/plugins/auth"
)

// RegisterRoutes sets up all application routes. It registers public routes
// directly and delegates to each plugin's route registration function.
//
// This is the single place where all routes are aggregated and where the
// plugins' dependencies are constructed.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// --- Public Routes (no auth required) ---

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Welcome to Chimi Business CRM API"})
	})

	// Health check endpoint for container health monitoring.
	e.GET("/healthz", a.healthz)

	// --- Plugin Wiring ---

	// audit plugin: security event log, written by auth and admin.
	auditService := audit.NewService(audit.NewEventRepository(a.DB))

	// auth plugin: register, login, logout, /users/me.
	var users auth.UserRepository = auth.NewUserRepository(a.DB)
	var sessions auth.SessionUsers
	if a.Redis != nil {
		cached := auth.NewCachedUserRepository(users, a.Redis, a.Config.Redis.CacheTTL)
		// Writes go through the cache so they invalidate it.
		users, sessions = cached, cached
	}

	hasher := auth.NewPasswordHasher(auth.HashParams{
		MemoryKiB:  a.Config.Auth.HashMemoryKiB,
		Iterations: a.Config.Auth.HashIterations,
		Threads:    a.Config.Auth.HashThreads,
	})
	tokens := auth.NewTokenService(a.Config.Auth.SecretKey, a.Config.Auth.TokenTTL)
	authService := auth.NewAuthService(users, sessions, hasher, tokens)
	cookie := auth.SessionCookie{Secure: a.Config.SecureCookies(), TTL: a.Config.Auth.TokenTTL}

	requireAuth := auth.RegisterRoutes(e, auth.NewHandler(authService, cookie, auditService), a.Limiter)

	// admin plugin: admin password gate, user administration, security log.
	adminService := admin.NewAdminService(users, admin.NewGate(users, hasher))
	admin.RegisterRoutes(e,
		admin.NewHandler(adminService, auditService),
		audit.NewHandler(auditService),
		requireAuth,
		a.Limiter,
	)
}

// healthz reports whether MariaDB (and Redis, when configured) answer.
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok", "database": "ok"}
	healthy := true

	if err := a.DB.PingContext(ctx); err != nil {
		status["database"] = "unavailable"
		healthy = false
	}
	if a.Redis != nil {
		status["redis"] = "ok"
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			// The cache falls back to MariaDB, so Redis being down degrades
			// but does not fail the service.
			status["redis"] = "unavailable"
		}
	}

	if !healthy {
		status["status"] = "unavailable"
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	return c.JSON(http.StatusOK, status)
}
