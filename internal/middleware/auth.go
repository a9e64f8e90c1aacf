package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-admin/internal/service"
)

// IdentityResolver turns a bearer token into the caller's identity.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (*service.Identity, error)
}

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

// Authenticate requires a valid bearer token. Permissions are read from the
// store on every request, so role changes apply to tokens already issued.
func Authenticate(r IdentityResolver) echo.MiddlewareFunc {
	if r == nil {
		panic("authenticate: nil resolver")
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentIdentity(c) != nil {
				return next(c)
			}
			raw, ok := bearer(c)
			if !ok {
				return deny(c, http.StatusUnauthorized, "Missing bearer token")
			}
			id, err := r.ResolveIdentity(c.Request().Context(), raw)
			if err != nil {
				return denyErr(c, err)
			}
			SetIdentity(c, id)
			return next(c)
		}
	}
}

// OptionalAuth resolves the caller when a usable token is sent and lets
// everything else through anonymously. Routes that need a caller add
// Authenticate.
func OptionalAuth(r IdentityResolver) echo.MiddlewareFunc {
	if r == nil {
		panic("optional auth: nil resolver")
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearer(c); ok {
				if id, err := r.ResolveIdentity(c.Request().Context(), raw); err == nil {
					SetIdentity(c, id)
				}
			}
			return next(c)
		}
	}
}
