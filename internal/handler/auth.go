package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-admin/internal/middleware"
	"github.com/iliyamo/hotel-admin/internal/service"
)

// maxUpload bounds multipart bodies; the store applies its own per-file limit.
const maxUpload = 10 << 20

// AuthHandler serves admin registration, login, profile and admin management.
type AuthHandler struct {
	Identity *service.IdentityService
	Timeout  time.Duration
}

func NewAuthHandler(identity *service.IdentityService, timeout time.Duration) *AuthHandler {
	if identity == nil {
		panic("nil identity service passed to NewAuthHandler")
	}
	return &AuthHandler{Identity: identity, Timeout: timeout}
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type assignRoleReq struct {
	RoleID *uint64 `json:"role_id"`
}

// Register creates an admin. The very first admin needs no token and becomes
// super-admin; later ones must be created by a super-admin.
func (h *AuthHandler) Register(c echo.Context) error {
	var in service.RegisterInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	a, err := h.Identity.Register(ctx, middleware.CurrentIdentity(c), in)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusCreated, "Admin registered successfully", a)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	res, err := h.Identity.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Login successful", res)
}

func (h *AuthHandler) Profile(c echo.Context) error {
	id := middleware.CurrentIdentity(c)
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	a, err := h.Identity.GetProfile(ctx, id.Admin.ID)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Profile fetched successfully", echo.Map{
		"admin":       a,
		"authority":   id.Authority.String(),
		"permissions": id.Permissions.List(),
	})
}

// UpdateProfile accepts JSON or a multipart form. In a form, extra is a JSON
// object string and the image comes in the profile_image file field.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	up, err := profileUpdate(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	a, err := h.Identity.UpdateProfile(ctx, middleware.ActorID(c), up)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Profile updated successfully", a)
}

func profileUpdate(c echo.Context) (service.ProfileUpdate, error) {
	var up service.ProfileUpdate
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		var body struct {
			Name     *string        `json:"name"`
			Password *string        `json:"password"`
			Extra    map[string]any `json:"extra"`
		}
		if err := c.Bind(&body); err != nil {
			return up, service.Validation("Invalid request body")
		}
		up.Name, up.Password, up.Extra = body.Name, body.Password, body.Extra
		return up, nil
	}

	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, maxUpload)
	form, err := c.MultipartForm()
	if err != nil {
		return up, service.Validation("Invalid multipart form")
	}
	if v, ok := form.Value["name"]; ok && len(v) > 0 {
		up.Name = &v[0]
	}
	if v, ok := form.Value["password"]; ok && len(v) > 0 {
		up.Password = &v[0]
	}
	if v, ok := form.Value["extra"]; ok && len(v) > 0 && v[0] != "" {
		if err := json.Unmarshal([]byte(v[0]), &up.Extra); err != nil {
			return up, service.ValidationFields("Invalid profile", map[string]string{"extra": "json"})
		}
	}
	upload, err := formFile(c, "profile_image")
	if err != nil {
		return up, err
	}
	up.Image = upload
	return up, nil
}

// formFile reads an optional file field into memory.
func formFile(c echo.Context, field string) (*service.Upload, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, service.Validation("Invalid " + field)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, service.Internal("Upload failed", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, service.Internal("Upload failed", err)
	}
	return &service.Upload{Filename: fh.Filename, Body: bytes.NewReader(data)}, nil
}

func (h *AuthHandler) ListAdmins(c echo.Context) error {
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	list, err := h.Identity.ListAdmins(ctx)
	if err != nil {
		return fail(c, err)
	}
	return respondList(c, "Admins fetched successfully", list, len(list))
}

func (h *AuthHandler) AssignRole(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var req assignRoleReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	a, err := h.Identity.AssignRole(ctx, id, req.RoleID)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Role assigned successfully", a)
}

func (h *AuthHandler) DeleteAdmin(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	if err := h.Identity.DeleteAdmin(ctx, id); err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Admin deleted successfully", nil)
}
