package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hotel-admin/internal/middleware"
	"github.com/iliyamo/hotel-admin/internal/repository"
	"github.com/iliyamo/hotel-admin/internal/service"
)

// CollectionHandler serves the loan collection ledger.
type CollectionHandler struct {
	Collections *service.CollectionService
	Timeout     time.Duration
}

func NewCollectionHandler(collections *service.CollectionService, timeout time.Duration) *CollectionHandler {
	if collections == nil {
		panic("nil collection service passed to NewCollectionHandler")
	}
	return &CollectionHandler{Collections: collections, Timeout: timeout}
}

// installmentReq also takes the amount as installment_amount.
type installmentReq struct {
	Amount            decimal.Decimal  `json:"amount" validate:"gt=0"`
	InstallmentAmount *decimal.Decimal `json:"installment_amount"`
}

func bindInstallment(c echo.Context) (decimal.Decimal, error) {
	var req installmentReq
	if err := c.Bind(&req); err != nil {
		return decimal.Zero, service.Validation("Invalid request body")
	}
	if req.Amount.IsZero() && req.InstallmentAmount != nil {
		req.Amount = *req.InstallmentAmount
	}
	if err := c.Validate(&req); err != nil {
		return decimal.Zero, err
	}
	return req.Amount, nil
}

func (h *CollectionHandler) Create(c echo.Context) error {
	var in service.CollectionInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	col, err := h.Collections.CreateCollection(ctx, middleware.ActorID(c), in)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusCreated, "Collection created successfully", col)
}

// List filters by status (open|closed) and a startDate/endDate creation range.
func (h *CollectionHandler) List(c echo.Context) error {
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

	list, err := h.Collections.ListCollections(ctx, repository.CollectionFilter{
		Status: c.QueryParam("status"), From: from, To: to,
	})
	if err != nil {
		return fail(c, err)
	}
	return respondList(c, "Collections fetched successfully", list, len(list))
}

func (h *CollectionHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	col, err := h.Collections.GetCollection(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Collection fetched successfully", col)
}

func (h *CollectionHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var in service.CollectionInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	col, err := h.Collections.UpdateCollection(ctx, id, in)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Collection updated successfully", col)
}

func (h *CollectionHandler) RecordInstallment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	amount, err := bindInstallment(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	col, err := h.Collections.RecordInstallment(ctx, id, amount)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Installment recorded successfully", col)
}

func (h *CollectionHandler) Installments(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	list, err := h.Collections.InstallmentHistory(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return respondList(c, "Installments fetched successfully", list, len(list))
}

func (h *CollectionHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	if err := h.Collections.DeleteCollection(ctx, id); err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Collection deleted successfully", nil)
}

func (h *CollectionHandler) Dashboard(c echo.Context) error {
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	d, err := h.Collections.Dashboard(ctx)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Dashboard fetched successfully", d)
}

// YearlyAmount and YearlyStatus take ?year=, defaulting to the current year.
func (h *CollectionHandler) YearlyAmount(c echo.Context) error {
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	out, err := h.Collections.YearlyLoanAmount(ctx, queryInt(c, "year", time.Now().Year()))
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Yearly loan amount fetched successfully", out)
}

func (h *CollectionHandler) YearlyStatus(c echo.Context) error {
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	out, err := h.Collections.YearlyStatusCounts(ctx, queryInt(c, "year", time.Now().Year()))
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Yearly status fetched successfully", out)
}
