package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-admin/internal/rbac"
)

func registerAdmin(g *echo.Group, h Handlers) {
	// own profile; no module permission needed
	g.GET("/admin-profile", h.Auth.Profile)
	g.PUT("/admin-profile", h.Auth.UpdateProfile)

	g.GET("/admin-list", h.Auth.ListAdmins, gate("admins", rbac.View))
	g.PUT("/admin-role/:id", h.Auth.AssignRole, gate("admins", rbac.Edit))
	g.DELETE("/admin-delete/:id", h.Auth.DeleteAdmin, gate("admins", rbac.Delete))

	g.POST("/create-role", h.Roles.Create, gate("roles", rbac.Create))
	g.GET("/get-roles", h.Roles.List, gate("roles", rbac.View))
	g.GET("/role/:id", h.Roles.Get, gate("roles", rbac.View))
	g.PUT("/update-role/:id", h.Roles.Update, gate("roles", rbac.Edit))
	g.DELETE("/delete-role/:id", h.Roles.Delete, gate("roles", rbac.Delete))
}
