package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-admin/internal/middleware"
	"github.com/iliyamo/hotel-admin/internal/repository"
	"github.com/iliyamo/hotel-admin/internal/service"
)

type RoomHandler struct {
	Rooms   *service.RoomService
	Timeout time.Duration
}

func NewRoomHandler(rooms *service.RoomService, timeout time.Duration) *RoomHandler {
	if rooms == nil {
		panic("nil room service passed to NewRoomHandler")
	}
	return &RoomHandler{Rooms: rooms, Timeout: timeout}
}

type roomStatusReq struct {
	IsAvailable        *bool   `json:"is_available"`
	HousekeepingStatus *string `json:"housekeeping_status"`
}

func (h *RoomHandler) Create(c echo.Context) error {
	var in service.RoomInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	r, err := h.Rooms.CreateRoom(ctx, middleware.ActorID(c), in)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusCreated, "Room created successfully", r)
}

// List filters by room_type, is_available and housekeeping_status.
func (h *RoomHandler) List(c echo.Context) error {
	f := repository.RoomFilter{
		RoomType:     c.QueryParam("room_type"),
		Housekeeping: c.QueryParam("housekeeping_status"),
	}
	if v := c.QueryParam("is_available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "is_available must be true or false")
		}
		f.Available = &b
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	list, err := h.Rooms.ListRooms(ctx, f)
	if err != nil {
		return fail(c, err)
	}
	return respondList(c, "Rooms fetched successfully", list, len(list))
}

func (h *RoomHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	r, err := h.Rooms.GetRoom(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Room fetched successfully", r)
}

func (h *RoomHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var p service.RoomPatch
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "Invalid request body")
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	r, err := h.Rooms.UpdateRoom(ctx, id, p)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Room updated successfully", r)
}

func (h *RoomHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var req roomStatusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	r, err := h.Rooms.UpdateRoomStatus(ctx, id, req.IsAvailable, req.HousekeepingStatus)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Room status updated successfully", r)
}

func (h *RoomHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	if err := h.Rooms.DeleteRoom(ctx, id); err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Room deleted successfully", nil)
}
