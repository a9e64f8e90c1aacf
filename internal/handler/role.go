package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-admin/internal/middleware"
	"github.com/iliyamo/hotel-admin/internal/service"
)

type RoleHandler struct {
	Roles   *service.RoleService
	Timeout time.Duration
}

func NewRoleHandler(roles *service.RoleService, timeout time.Duration) *RoleHandler {
	if roles == nil {
		panic("nil role service passed to NewRoleHandler")
	}
	return &RoleHandler{Roles: roles, Timeout: timeout}
}

func (h *RoleHandler) Create(c echo.Context) error {
	var in service.RoleInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	r, err := h.Roles.CreateRole(ctx, middleware.ActorID(c), in)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusCreated, "Role created successfully", r)
}

func (h *RoleHandler) List(c echo.Context) error {
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	list, err := h.Roles.ListRoles(ctx)
	if err != nil {
		return fail(c, err)
	}
	return respondList(c, "Roles fetched successfully", list, len(list))
}

func (h *RoleHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	r, err := h.Roles.GetRole(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Role fetched successfully", r)
}

func (h *RoleHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var p service.RolePatch
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "Invalid request body")
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	r, err := h.Roles.UpdateRole(ctx, id, p)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Role updated successfully", r)
}

func (h *RoleHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	if err := h.Roles.DeleteRole(ctx, id); err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Role deleted successfully", nil)
}
