package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-admin/internal/handler"
	"github.com/iliyamo/hotel-admin/internal/rbac"
	"github.com/iliyamo/hotel-admin/internal/service"
)

// registerRecords mounts CRUD for every ancillary resource at /<path> and
// /<path>/:id, then the module-specific actions.
func registerRecords(g *echo.Group, h Handlers) {
	r := h.Records
	g.GET("/financial-report", r.FinancialReport, gate("finance", rbac.View), cached(h))
	g.GET("/invoices/:id/pdf", r.InvoicePDF, gate("finance", rbac.View))
	g.POST("/housekeeping/:id/verify", r.VerifyHousekeeping, gate("housekeeping", rbac.Edit))
	g.POST("/guests/:id/document", r.UploadGuestDocument, gate("guests", rbac.Edit))
	g.PUT("/inventory-items/:id/stock", r.AdjustStock, gate("inventory", rbac.Edit))
	g.POST("/purchase-orders/:id/receive", r.ReceivePurchaseOrder, gate("inventory", rbac.Edit))
	g.PUT("/valet/:id/status", r.SetValetStatus, gate("valet_parking", rbac.Edit))

	for _, res := range r.Records.Resources() {
		mountResource(g, r, res)
	}
}

func mountResource(g *echo.Group, r *handler.RecordHandler, res *service.Resource) {
	base := "/" + res.Path
	g.POST(base, r.Create(res), gate(res.Module, rbac.Create))
	g.GET(base, r.List(res), gate(res.Module, rbac.View))
	g.GET(base+"/:id", r.Get(res), gate(res.Module, rbac.View))
	g.PUT(base+"/:id", r.Update(res), gate(res.Module, rbac.Edit))
	g.DELETE(base+"/:id", r.Delete(res), gate(res.Module, rbac.Delete))
}
