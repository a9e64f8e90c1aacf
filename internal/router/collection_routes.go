package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-admin/internal/rbac"
)

func registerCollections(g *echo.Group, h Handlers) {
	c := h.Collections
	g.POST("/create-collection", c.Create, gate("collections", rbac.Create))
	g.GET("/get-collections", c.List, gate("collections", rbac.View))
	g.GET("/collection/:id", c.Get, gate("collections", rbac.View))
	g.PUT("/update-collection/:id", c.Update, gate("collections", rbac.Edit))
	g.PUT("/update-collection-installment/:id", c.RecordInstallment, gate("collections", rbac.Edit))
	g.GET("/collection-installments/:id", c.Installments, gate("collections", rbac.View))
	g.DELETE("/delete-collection/:id", c.Delete, gate("collections", rbac.Delete))

	g.GET("/collection-dashboard", c.Dashboard, gate("collections", rbac.View), cached(h))
	g.GET("/collection-yearly-amount", c.YearlyAmount, gate("collections", rbac.View), cached(h))
	g.GET("/collection-yearly-status", c.YearlyStatus, gate("collections", rbac.View), cached(h))
}
