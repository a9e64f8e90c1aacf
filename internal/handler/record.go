package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hotel-admin/internal/middleware"
	"github.com/iliyamo/hotel-admin/internal/model"
	"github.com/iliyamo/hotel-admin/internal/report"
	"github.com/iliyamo/hotel-admin/internal/service"
)

// RecordHandler serves the ancillary modules. Each route is built for one
// resource, so the handlers below return echo.HandlerFunc closures.
type RecordHandler struct {
	Records   *service.RecordService
	HotelName string
	Timeout   time.Duration
}

func NewRecordHandler(records *service.RecordService, hotelName string, timeout time.Duration) *RecordHandler {
	if records == nil {
		panic("nil record service passed to NewRecordHandler")
	}
	return &RecordHandler{Records: records, HotelName: hotelName, Timeout: timeout}
}

func flatten(list []model.Document) []map[string]any {
	out := make([]map[string]any, len(list))
	for i, d := range list {
		out[i] = d.Flatten()
	}
	return out
}

func (h *RecordHandler) Create(r *service.Resource) echo.HandlerFunc {
	return func(c echo.Context) error {
		in, err := decodeObject(c)
		if err != nil {
			return fail(c, err)
		}
		ctx, cancel := storeCtx(c, h.Timeout)
		defer cancel()

		d, err := h.Records.Create(ctx, middleware.ActorID(c), r.Kind, in)
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusCreated, r.Label+" created successfully", d.Flatten())
	}
}

// List accepts the resource's filter fields as query parameters plus search,
// startDate, endDate, page and limit.
func (h *RecordHandler) List(r *service.Resource) echo.HandlerFunc {
	return func(c echo.Context) error {
		from, err := queryTime(c, "startDate", false)
		if err != nil {
			return fail(c, err)
		}
		to, err := queryTime(c, "endDate", true)
		if err != nil {
			return fail(c, err)
		}
		lq := service.ListQuery{
			Filters: map[string]string{},
			Search:  strings.TrimSpace(c.QueryParam("search")),
			From:    from,
			To:      to,
			Page:    queryInt(c, "page", 1),
			Limit:   queryInt(c, "limit", 50),
		}
		for _, f := range r.Filters {
			if v := c.QueryParam(f); v != "" {
				lq.Filters[f] = v
			}
		}
		ctx, cancel := storeCtx(c, h.Timeout)
		defer cancel()

		list, total, err := h.Records.List(ctx, r.Kind, lq)
		if err != nil {
			return fail(c, err)
		}
		return respondList(c, r.Label+" list fetched successfully", flatten(list), total)
	}
}

func (h *RecordHandler) Get(r *service.Resource) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := storeCtx(c, h.Timeout)
		defer cancel()

		d, err := h.Records.Get(ctx, r.Kind, c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusOK, r.Label+" fetched successfully", d.Flatten())
	}
}

func (h *RecordHandler) Update(r *service.Resource) echo.HandlerFunc {
	return func(c echo.Context) error {
		patch, err := decodeObject(c)
		if err != nil {
			return fail(c, err)
		}
		ctx, cancel := storeCtx(c, h.Timeout)
		defer cancel()

		d, err := h.Records.Update(ctx, r.Kind, c.Param("id"), patch)
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusOK, r.Label+" updated successfully", d.Flatten())
	}
}

func (h *RecordHandler) Delete(r *service.Resource) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := storeCtx(c, h.Timeout)
		defer cancel()

		if err := h.Records.Delete(ctx, r.Kind, c.Param("id")); err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusOK, r.Label+" deleted successfully", nil)
	}
}

func (h *RecordHandler) VerifyHousekeeping(c echo.Context) error {
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	d, err := h.Records.VerifyHousekeeping(ctx, middleware.ActorID(c), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Housekeeping task verified successfully", d.Flatten())
}

// UploadGuestDocument takes the ID document in the "document" form field.
func (h *RecordHandler) UploadGuestDocument(c echo.Context) error {
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, maxUpload)
	up, err := formFile(c, "document")
	if err != nil {
		return fail(c, err)
	}
	if up == nil {
		return fail(c, service.ValidationFields("Invalid upload", map[string]string{"document": "required"}))
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	d, err := h.Records.UploadGuestDocument(ctx, c.Param("id"), *up)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Document uploaded successfully", d.Flatten())
}

type stockReq struct {
	Delta decimal.Decimal `json:"delta"`
}

// AdjustStock adds delta (negative to consume) to an inventory item.
func (h *RecordHandler) AdjustStock(c echo.Context) error {
	var req stockReq
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	d, err := h.Records.AdjustStock(ctx, c.Param("id"), req.Delta)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Stock updated successfully", d.Flatten())
}

func (h *RecordHandler) ReceivePurchaseOrder(c echo.Context) error {
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	d, err := h.Records.ReceivePurchaseOrder(ctx, middleware.ActorID(c), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Purchase order received successfully", d.Flatten())
}

type valetStatusReq struct {
	Status string `json:"status" validate:"required"`
}

func (h *RecordHandler) SetValetStatus(c echo.Context) error {
	var req valetStatusReq
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	d, err := h.Records.SetValetStatus(ctx, c.Param("id"), req.Status)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Valet status updated successfully", d.Flatten())
}

// FinancialReport totals revenue and expenses between startDate and endDate.
func (h *RecordHandler) FinancialReport(c echo.Context) error {
	from, err := queryTime(c, "startDate", false)
	if err != nil {
		return fail(c, err)
	}
	to, err := queryTime(c, "endDate", true)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	rep, err := h.Records.FinancialReport(ctx, from, to)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Financial report generated successfully", rep)
}

// InvoicePDF streams the invoice as a PDF attachment.
func (h *RecordHandler) InvoicePDF(c echo.Context) error {
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	inv, err := h.Records.Invoice(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	pdf, err := report.InvoicePDF(h.HotelName, inv)
	if err != nil {
		return fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+inv.Number+`.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
