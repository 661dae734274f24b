package admin

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/chimibusiness/crm/internal/apperror"
	"github.com/chimibusiness/crm/internal/plugins/audit"
	"github.com/chimibusiness/crm/internal/plugins/auth"
)

// Handler serves the admin endpoints. Every route is mounted behind
// RequireAuth and a role guard, so the acting user is always present.
type Handler struct {
	service AdminService
	events  audit.Logger
}

// NewHandler creates a new admin handler. events may be audit.Discard.
func NewHandler(service AdminService, events audit.Logger) *Handler {
	return &Handler{service: service, events: events}
}

// VerifyPassword re-verifies the caller's admin password
// (POST /admin/verify-password).
func (h *Handler) VerifyPassword(c echo.Context) error {
	actor := auth.GetUser(c)
	if actor == nil {
		return apperror.NewUnauthorized("could not validate credentials")
	}

	var req VerifyPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	ctx := c.Request().Context()

	res, err := h.service.VerifyAdminPassword(ctx, actor, req.Password)
	if err != nil {
		if apperror.IsType(err, "unauthorized") {
			_ = h.events.LogEvent(ctx, audit.NewRequestEvent(c, audit.EventAdminPasswordFailed, actor.ID, 0, nil))
		}
		return err
	}

	if res.Migrated {
		_ = h.events.LogEvent(ctx, audit.NewRequestEvent(c, audit.EventAdminPasswordMigrated, actor.ID, 0, nil))
	}
	_ = h.events.LogEvent(ctx, audit.NewRequestEvent(c, audit.EventAdminPasswordVerified, actor.ID, 0, nil))

	return c.JSON(http.StatusOK, StatusResponse{
		Status:  "success",
		Message: "admin password confirmed",
	})
}

// Users lists accounts (GET /admin/users?offset=&limit=).
func (h *Handler) Users(c echo.Context) error {
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	page, err := h.service.ListUsers(c.Request().Context(), offset, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// ChangeRole sets a user's role (PUT /admin/users/:id/role).
func (h *Handler) ChangeRole(c echo.Context) error {
	actor := auth.GetUser(c)
	if actor == nil {
		return apperror.NewUnauthorized("could not validate credentials")
	}

	targetID, err := parseUserID(c)
	if err != nil {
		return err
	}

	var req ChangeRoleRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	ctx := c.Request().Context()

	user, changed, err := h.service.ChangeRole(ctx, actor, targetID, req.Role)
	if err != nil {
		return err
	}

	if changed {
		_ = h.events.LogEvent(ctx, audit.NewRequestEvent(c, audit.EventRoleChanged, targetID, actor.ID,
			map[string]any{"role": req.Role.String()}))
	}

	return c.JSON(http.StatusOK, user)
}

// SetActive enables or disables a user (PUT /admin/users/:id/active).
func (h *Handler) SetActive(c echo.Context) error {
	actor := auth.GetUser(c)
	if actor == nil {
		return apperror.NewUnauthorized("could not validate credentials")
	}

	targetID, err := parseUserID(c)
	if err != nil {
		return err
	}

	var req SetActiveRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.IsActive == nil {
		return apperror.NewValidation("invalid request",
			apperror.FieldError{Field: "is_active", Message: "is_active is required"})
	}

	ctx := c.Request().Context()

	user, err := h.service.SetActive(ctx, actor, targetID, *req.IsActive)
	if err != nil {
		return err
	}

	eventType := audit.EventUserDisabled
	if *req.IsActive {
		eventType = audit.EventUserEnabled
	}
	_ = h.events.LogEvent(ctx, audit.NewRequestEvent(c, eventType, targetID, actor.ID, nil))

	return c.JSON(http.StatusOK, user)
}

// parseUserID reads the :id path parameter.
func parseUserID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewNotFound("user not found")
	}
	return id, nil
}
