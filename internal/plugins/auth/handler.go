package auth

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chimibusiness/crm/internal/apperror"
	"github.com/chimibusiness/crm/internal/plugins/audit"
)

// Handler handles HTTP requests for authentication. Handlers are thin:
// bind request, call service, set cookie, render JSON.
type Handler struct {
	service AuthService
	cookie  SessionCookie
	events  audit.Logger
}

// NewHandler creates a new auth handler. events may be audit.Discard.
func NewHandler(service AuthService, cookie SessionCookie, events audit.Logger) *Handler {
	return &Handler{service: service, cookie: cookie, events: events}
}

// Register creates an account, signs the new user in, and returns the
// created user (POST /register).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	user, token, err := h.service.Register(c.Request().Context(), RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		return err
	}

	h.cookie.Set(c, token)

	_ = h.events.LogEvent(c.Request().Context(),
		audit.NewRequestEvent(c, audit.EventUserRegistered, user.ID, 0, nil))

	return c.JSON(http.StatusOK, user)
}

// Login checks credentials, sets the session cookie, and returns a token
// descriptor for API clients (POST /login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	ctx := c.Request().Context()

	token, user, err := h.service.Login(ctx, LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if apperror.IsType(err, "unauthorized") {
			// The attempted email is kept for correlation; it is input, not
			// a confirmed account.
			_ = h.events.LogEvent(ctx, audit.NewRequestEvent(c, audit.EventLoginFailed, 0, 0,
				map[string]any{"email": normalizeEmail(req.Email)}))
		}
		return err
	}

	h.cookie.Set(c, token)

	_ = h.events.LogEvent(ctx, audit.NewRequestEvent(c, audit.EventLoginSuccess, user.ID, 0, nil))

	return c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.service.TokenTTL().Seconds()),
	})
}

// Logout clears the session cookie (POST /logout). It always succeeds; the
// token itself stays valid until expiry because there is no revocation list.
func (h *Handler) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	if token := sessionToken(c); token != "" {
		if user, err := h.service.Authenticate(ctx, token); err == nil {
			_ = h.events.LogEvent(ctx, audit.NewRequestEvent(c, audit.EventLogout, user.ID, 0, nil))
			slog.Info("user logged out", slog.Int64("user_id", user.ID))
		}
	}

	h.cookie.Clear(c)

	return c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// Me returns the authenticated user (GET /users/me).
func (h *Handler) Me(c echo.Context) error {
	user := GetUser(c)
	if user == nil {
		return apperror.NewUnauthorized(msgUnauthenticated)
	}
	return c.JSON(http.StatusOK, user)
}
