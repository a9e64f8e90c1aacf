package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-admin/internal/rbac"
)

// RequirePermission lets the request through when the caller may perform
// action on module. It must run after Authenticate.
func RequirePermission(module string, action rbac.Action) echo.MiddlewareFunc {
	if !rbac.IsModule(module) {
		panic("require permission: unknown module " + module)
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := CurrentIdentity(c)
			if id == nil {
				return deny(c, http.StatusUnauthorized, "Authentication required")
			}
			if !id.Can(module, action) {
				return deny(c, http.StatusForbidden, "You do not have permission to "+string(action)+" "+module)
			}
			return next(c)
		}
	}
}
