package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-admin/internal/middleware"
	"github.com/iliyamo/hotel-admin/internal/model"
	"github.com/iliyamo/hotel-admin/internal/repository"
	"github.com/iliyamo/hotel-admin/internal/service"
)

type BookingHandler struct {
	Bookings *service.BookingService
	Timeout  time.Duration
}

func NewBookingHandler(bookings *service.BookingService, timeout time.Duration) *BookingHandler {
	if bookings == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings, Timeout: timeout}
}

type cancelReq struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *BookingHandler) Create(c echo.Context) error {
	var in service.BookingInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	b, err := h.Bookings.CreateBooking(ctx, middleware.ActorID(c), in)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusCreated, "Booking created successfully", b)
}

// List filters by status, source, guest_name, room_number and a
// startDate/endDate stay range, paged with page and limit.
func (h *BookingHandler) List(c echo.Context) error {
	start, err := queryTime(c, "startDate", false)
	if err != nil {
		return fail(c, err)
	}
	end, err := queryTime(c, "endDate", true)
	if err != nil {
		return fail(c, err)
	}
	f := repository.BookingFilter{
		Status:     c.QueryParam("status"),
		Source:     c.QueryParam("source"),
		GuestName:  c.QueryParam("guest_name"),
		RoomNumber: c.QueryParam("room_number"),
		Start:      start,
		End:        end,
		Page:       queryInt(c, "page", 1),
		Limit:      queryInt(c, "limit", 50),
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	list, total, err := h.Bookings.ListBookings(ctx, f)
	if err != nil {
		return fail(c, err)
	}
	return respondList(c, "Bookings fetched successfully", list, total)
}

func (h *BookingHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	b, err := h.Bookings.GetBooking(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Booking fetched successfully", b)
}

func (h *BookingHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var p service.BookingPatch
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "Invalid request body")
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	b, err := h.Bookings.UpdateBooking(ctx, id, p)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Booking updated successfully", b)
}

// Calendar takes start and end as YYYY-MM-DD; end covers its whole day.
func (h *BookingHandler) Calendar(c echo.Context) error {
	start, err := queryTime(c, "start", false)
	if err != nil {
		return fail(c, err)
	}
	end, err := queryTime(c, "end", true)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	list, err := h.Bookings.Calendar(ctx, start, end)
	if err != nil {
		return fail(c, err)
	}
	return respondList(c, "Calendar fetched successfully", list, len(list))
}

type transitionFunc func(ctx context.Context, actor, id uint64) (model.Booking, error)

// transition adapts one lifecycle operation to a handler.
func (h *BookingHandler) transition(op transitionFunc, msg string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return fail(c, err)
		}
		ctx, cancel := storeCtx(c, h.Timeout)
		defer cancel()

		b, err := op(ctx, middleware.ActorID(c), id)
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusOK, msg, b)
	}
}

func (h *BookingHandler) Confirm() echo.HandlerFunc {
	return h.transition(h.Bookings.ConfirmBooking, "Booking confirmed successfully")
}

func (h *BookingHandler) CheckIn() echo.HandlerFunc {
	return h.transition(h.Bookings.CheckIn, "Checked in successfully")
}

func (h *BookingHandler) CheckOut() echo.HandlerFunc {
	return h.transition(h.Bookings.CheckOut, "Checked out successfully")
}

func (h *BookingHandler) NoShow() echo.HandlerFunc {
	return h.transition(h.Bookings.MarkNoShow, "Booking marked as no-show")
}

// Cancel accepts an optional {"reason": "..."} body.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var req cancelReq
	if c.Request().ContentLength != 0 {
		if err := bindJSON(c, &req); err != nil {
			return fail(c, err)
		}
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	b, err := h.Bookings.CancelBooking(ctx, middleware.ActorID(c), id, req.Reason)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Booking cancelled successfully", b)
}
