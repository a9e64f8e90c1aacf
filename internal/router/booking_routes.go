package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-admin/internal/rbac"
)

func registerRooms(g *echo.Group, h Handlers) {
	g.POST("/create-room", h.Rooms.Create, gate("rooms", rbac.Create))
	g.GET("/get-rooms", h.Rooms.List, gate("rooms", rbac.View))
	g.GET("/room/:id", h.Rooms.Get, gate("rooms", rbac.View))
	g.PUT("/update-room/:id", h.Rooms.Update, gate("rooms", rbac.Edit))
	g.PUT("/room-status/:id", h.Rooms.UpdateStatus, gate("rooms", rbac.Edit))
	g.DELETE("/delete-room/:id", h.Rooms.Delete, gate("rooms", rbac.Delete))
}

func registerBookings(g *echo.Group, h Handlers) {
	b := h.Bookings
	g.POST("/create-booking", b.Create, gate("bookings", rbac.Create))
	g.GET("/get-bookings", b.List, gate("bookings", rbac.View))
	g.GET("/bookings/calendar", b.Calendar, gate("bookings", rbac.View), cached(h))
	g.GET("/booking/:id", b.Get, gate("bookings", rbac.View))
	g.PUT("/update-booking/:id", b.Update, gate("bookings", rbac.Edit))

	// lifecycle transitions
	g.POST("/confirm/:id", b.Confirm(), gate("bookings", rbac.Edit))
	g.POST("/checkin/:id", b.CheckIn(), gate("bookings", rbac.Edit))
	g.POST("/checkout/:id", b.CheckOut(), gate("bookings", rbac.Edit))
	g.POST("/no-show/:id", b.NoShow(), gate("bookings", rbac.Edit))
	g.POST("/cancel-booking/:id", b.Cancel, gate("bookings", rbac.Edit))
}
