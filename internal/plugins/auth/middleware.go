package auth

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/chimibusiness/crm/internal/apperror"
	"github.com/chimibusiness/crm/internal/middleware"
)

// contextKeyUser is the Echo context key for the authenticated *User. Other
// plugins read it through GetUser.
const contextKeyUser = "auth_user"

// RequireAuth returns middleware that authenticates the request's session
// token and stores the current user in the context. Failures are returned as
// AppErrors; an unusable token also clears the cookie.
func RequireAuth(service AuthService, cookie SessionCookie) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := service.Authenticate(c.Request().Context(), sessionToken(c))
			if err != nil {
				if apperror.IsType(err, "unauthorized") {
					cookie.Clear(c)
				}
				return err
			}

			c.Set(contextKeyUser, user)
			c.Set(middleware.ContextKeyUserID, strconv.FormatInt(user.ID, 10))

			return next(c)
		}
	}
}

// RequireRole returns middleware that rejects users ranked below minRole
// with Forbidden. Must be applied AFTER RequireAuth. Panics at setup if
// minRole is not a known role.
func RequireRole(minRole Role) echo.MiddlewareFunc {
	if !minRole.IsValid() {
		panic(fmt.Sprintf("auth.RequireRole: unknown role %q", minRole))
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetUser(c)
			if user == nil {
				return apperror.NewInternal(
					fmt.Errorf("RequireRole used without RequireAuth"),
				)
			}

			if err := Require(user, minRole); err != nil {
				return err
			}

			return next(c)
		}
	}
}

// --- Exported getters for other plugins ---

// GetUser retrieves the authenticated user from the Echo context. Returns
// nil if the request is not authenticated (middleware not applied).
func GetUser(c echo.Context) *User {
	user, ok := c.Get(contextKeyUser).(*User)
	if !ok {
		return nil
	}
	return user
}
