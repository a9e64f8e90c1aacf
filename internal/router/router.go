// Package router wires handlers, permission gates and middleware onto Echo.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-admin/internal/handler"
	"github.com/iliyamo/hotel-admin/internal/metrics"
	"github.com/iliyamo/hotel-admin/internal/middleware"
	"github.com/iliyamo/hotel-admin/internal/rbac"
)

// BasePath prefixes every API route.
const BasePath = "/crm/api"

// Handlers groups everything the API routes need.
type Handlers struct {
	Health      *handler.HealthHandler
	Auth        *handler.AuthHandler
	Roles       *handler.RoleHandler
	Rooms       *handler.RoomHandler
	Bookings    *handler.BookingHandler
	Collections *handler.CollectionHandler
	Records     *handler.RecordHandler

	Resolver middleware.IdentityResolver
	// Cache wraps the report-style GETs; nil means no caching.
	Cache echo.MiddlewareFunc
	// UploadDir is served under /uploads when files are stored locally.
	UploadDir string
}

// RegisterRoutes registers the unauthenticated endpoints: health, metrics and
// locally stored uploads.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", h.Health.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	if h.UploadDir != "" {
		e.Static("/uploads", h.UploadDir)
	}
}

// RegisterAPI registers every /crm/api route. Callers must have installed
// OptionalAuth globally or each group's Authenticate resolves the token.
func RegisterAPI(e *echo.Echo, h Handlers) {
	if h.Resolver == nil {
		panic("router: nil identity resolver")
	}
	api := e.Group(BasePath)
	api.POST("/admin-register", h.Auth.Register)
	api.POST("/admin-login", h.Auth.Login)

	g := api.Group("", middleware.Authenticate(h.Resolver))
	registerAdmin(g, h)
	registerRooms(g, h)
	registerBookings(g, h)
	registerCollections(g, h)
	registerRecords(g, h)
}

// gate is shorthand for the permission middleware.
func gate(module string, action rbac.Action) echo.MiddlewareFunc {
	return middleware.RequirePermission(module, action)
}

// cached returns the cache middleware, or a pass-through when disabled.
func cached(h Handlers) echo.MiddlewareFunc {
	if h.Cache == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return h.Cache
}

// NotFound is installed as Echo's route-not-found handler.
func NotFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, echo.Map{"status": http.StatusNotFound, "message": "Route not found"})
}
