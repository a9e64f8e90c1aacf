package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-admin/internal/metrics"
)

// Metrics records request counts and latency per route template, so ids in
// the path do not explode label cardinality.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			done := metrics.RequestStarted()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			done(c.Request().Method, route, c.Response().Status)
			return nil
		}
	}
}
