package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/hotel-admin/internal/service"
)

const (
	identityKey  = "identity"
	RequestIDKey = "request_id"
)

func SetIdentity(c echo.Context, id *service.Identity) { c.Set(identityKey, id) }

// CurrentIdentity returns the caller resolved for this request, or nil for
// anonymous requests.
func CurrentIdentity(c echo.Context) *service.Identity {
	id, _ := c.Get(identityKey).(*service.Identity)
	return id
}

// ActorID is the caller's admin id, 0 when anonymous.
func ActorID(c echo.Context) uint64 {
	if id := CurrentIdentity(c); id != nil {
		return id.Admin.ID
	}
	return 0
}

// adminKey identifies the caller in rate-limit and cache keys.
func adminKey(c echo.Context) string {
	if id := CurrentIdentity(c); id != nil {
		return strconv.FormatUint(id.Admin.ID, 10)
	}
	return "anon"
}

// deny writes the error envelope and stops the chain.
func deny(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"status": status, "message": msg})
}

func denyErr(c echo.Context, err error) error {
	var se *service.Error
	if errors.As(err, &se) && se.Kind != service.KindInternal {
		return deny(c, se.Status(), se.Message)
	}
	log.Error().Err(err).Str("request_id", requestID(c)).Str("path", c.Path()).Msg("identity resolution failed")
	return deny(c, http.StatusInternalServerError, "Internal server error")
}

func requestID(c echo.Context) string {
	s, _ := c.Get(RequestIDKey).(string)
	return s
}
