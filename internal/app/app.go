// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (DB pool, Redis client,
// rate limiter, Echo instance) and wires together the auth, admin and audit
// plugins.
package app

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/chimibusiness/crm/internal/config"
	"github.com/chimibusiness/crm/internal/middleware"
	"github.com/chimibusiness/crm/internal/ratelimit"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool shared by all plugins.
	DB *sql.DB

	// Redis backs the session user cache. Nil when REDIS_URL is unset.
	Redis *redis.Client

	// Limiter holds the per-IP counters for login, registration and the
	// admin password gate. main runs its sweeper.
	Limiter *ratelimit.Limiter

	// Echo is the HTTP server instance.
	Echo *echo.Echo
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling. rdb may be nil.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) *App {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// Only believe forwarding headers from our own proxies, so c.RealIP()
	// can't be spoofed to dodge the rate limiter.
	middleware.TrustedProxies(e, cfg.TrustedProxies)

	app := &App{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Limiter: newLimiter(cfg.RateLimit),
		Echo:    e,
	}

	app.setupMiddleware()

	// Every error leaves as {"error","detail"} JSON.
	e.HTTPErrorHandler = middleware.ErrorHandler

	return app
}

// newLimiter builds the limiter from the configured per-action budgets.
func newLimiter(cfg config.RateLimitConfig) *ratelimit.Limiter {
	return ratelimit.New(map[ratelimit.Action]ratelimit.Rule{
		ratelimit.ActionLogin:       {Limit: cfg.LoginLimit, Window: cfg.LoginWindow},
		ratelimit.ActionRegister:    {Limit: cfg.RegisterLimit, Window: cfg.RegisterWindow},
		ratelimit.ActionAdminVerify: {Limit: cfg.AdminVerifyLimit, Window: cfg.AdminVerifyWindow},
	})
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Request logging -- log every request with method, path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	// Security headers; HSTS only when served over TLS in production.
	a.Echo.Use(middleware.SecurityHeaders(a.Config.IsProduction()))

	// CORS -- the SPA calls the API cross-origin with the session cookie.
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   a.Config.CORSOrigins,
		AllowCredentials: true,
	}))
}

// SweepInterval is how often expired rate-limit counters are dropped.
const SweepInterval = time.Minute

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting CRM API server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
