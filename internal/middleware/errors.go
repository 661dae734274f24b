package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chimibusiness/crm/internal/apperror"
)

// ErrorHandler is the Echo HTTPErrorHandler. It maps domain errors
// (AppError) to their status and renders
//
//	{"error": <type>, "detail": <message>, "fields": [...]}
//
// Internal causes are logged and never rendered.
func ErrorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = fromUnknown(err)
	}

	if appErr.Internal != nil {
		slog.Error("internal error",
			slog.String("type", appErr.Type),
			slog.String("message", appErr.Message),
			slog.Any("internal", appErr.Internal),
			slog.String("path", c.Request().URL.Path),
		)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(appErr.Code)
		return
	}
	_ = c.JSON(appErr.Code, appErr)
}

// fromUnknown converts Echo's own errors (404 from the router, 405, bind
// failures) and anything unexpected into an AppError.
func fromUnknown(err error) *apperror.AppError {
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		msg, ok := echoErr.Message.(string)
		if !ok {
			msg = http.StatusText(echoErr.Code)
		}
		return &apperror.AppError{
			Code:    echoErr.Code,
			Type:    errorType(echoErr.Code),
			Message: msg,
		}
	}

	return apperror.NewInternal(err)
}

// errorType names the AppError type for a bare HTTP status.
func errorType(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "too_large"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		if code >= 500 {
			return "internal_error"
		}
		return "error"
	}
}
