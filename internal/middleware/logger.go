package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// RequestID reuses the caller's X-Request-ID or assigns a fresh one, and
// echoes it back on the response.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if rid == "" || len(rid) > 128 {
				rid = uuid.NewString()
			}
			c.Set(RequestIDKey, rid)
			c.Response().Header().Set(echo.HeaderXRequestID, rid)
			return next(c)
		}
	}
}

// Logger logs each request with method, path, status, latency and request_id.
func Logger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			ev := log.Info()
			if status := c.Response().Status; status >= http.StatusInternalServerError {
				ev = log.Error()
			}
			ev.Str("request_id", requestID(c)).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Uint64("admin_id", ActorID(c)).
				Dur("latency", time.Since(start)).
				Msg("request")
			return nil
		}
	}
}

// Recovery turns a panic into a 500 envelope. The stack goes to the log only.
func Recovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Str("request_id", requestID(c)).
						Str("panic", fmt.Sprint(r)).
						Bytes("stack", debug.Stack()).
						Msg("panic recovered")
					if c.Response().Committed {
						err = nil
						return
					}
					err = deny(c, http.StatusInternalServerError, "Internal server error")
				}
			}()
			return next(c)
		}
	}
}
