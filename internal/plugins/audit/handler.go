package audit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for the security event log. Handlers are
// thin: bind request, call service, render response.
type Handler struct {
	service Service
}

// NewHandler creates a new audit handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Events lists security events, newest first
// (GET /admin/security-events?type=&page=).
func (h *Handler) Events(c echo.Context) error {
	eventType := c.QueryParam("type")
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}

	events, total, err := h.service.ListEvents(c.Request().Context(), eventType, page)
	if err != nil {
		return err
	}
	if events == nil {
		events = []Event{}
	}

	return c.JSON(http.StatusOK, EventPage{
		Events:  events,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

// Stats returns aggregate security counters (GET /admin/security-events/stats).
func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.service.GetStats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// NewRequestEvent builds an event of eventType stamped with the client IP
// and user agent of the request in c.
func NewRequestEvent(c echo.Context, eventType string, userID, actorID int64, details map[string]any) *Event {
	return &Event{
		Type:      eventType,
		UserID:    userID,
		ActorID:   actorID,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		Details:   details,
	}
}
