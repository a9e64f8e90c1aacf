package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-admin/internal/middleware"
	"github.com/iliyamo/hotel-admin/internal/model"
	"github.com/iliyamo/hotel-admin/internal/rbac"
	"github.com/iliyamo/hotel-admin/internal/repository"
	"github.com/iliyamo/hotel-admin/internal/service"
)

type memRooms struct {
	mu   sync.Mutex
	next uint64
	rows map[uint64]model.Room
}

func newMemRooms() *memRooms { return &memRooms{rows: map[uint64]model.Room{}} }

func (m *memRooms) Create(_ context.Context, r *model.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.rows {
		if x.RoomNumber == r.RoomNumber {
			return repository.ErrDuplicate
		}
	}
	m.next++
	r.ID = m.next
	m.rows[r.ID] = *r
	return nil
}

func (m *memRooms) Get(_ context.Context, id uint64) (model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return model.Room{}, repository.ErrNotFound
	}
	return r, nil
}

func (m *memRooms) List(context.Context, repository.RoomFilter) ([]model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Room{}
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRooms) Update(_ context.Context, r *model.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[r.ID] = *r
	return nil
}

func (m *memRooms) SetStatus(_ context.Context, id uint64, available *bool, housekeeping *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if available != nil {
		r.IsAvailable = *available
	}
	if housekeeping != nil {
		r.HousekeepingStatus = *housekeeping
	}
	m.rows[id] = r
	return nil
}

func (m *memRooms) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memDocs struct {
	mu   sync.Mutex
	rows map[string]model.Document
}

func (m *memDocs) Insert(_ context.Context, d *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.UniqueKey != nil {
		for _, x := range m.rows {
			if x.Kind == d.Kind && x.UniqueKey != nil && *x.UniqueKey == *d.UniqueKey {
				return repository.ErrDuplicate
			}
		}
	}
	d.ID = uuid.NewString()
	m.rows[d.ID] = *d
	return nil
}

func (m *memDocs) Get(_ context.Context, kind, id string) (model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok || d.Kind != kind {
		return model.Document{}, repository.ErrNotFound
	}
	return d, nil
}

func (m *memDocs) Update(_ context.Context, d *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[d.ID] = *d
	return nil
}

func (m *memDocs) Delete(_ context.Context, kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.rows[id]; !ok || d.Kind != kind {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memDocs) Find(_ context.Context, q repository.DocQuery) ([]model.Document, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Document{}
	for _, d := range m.rows {
		if d.Kind == q.Kind {
			out = append(out, d)
		}
	}
	return out, len(out), nil
}

func (m *memDocs) Sum(context.Context, repository.DocQuery, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type memBookings struct {
	mu   sync.Mutex
	next uint64
	rows map[uint64]model.Booking
}

func (m *memBookings) Create(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	b.ID = m.next
	m.rows[b.ID] = *b
	return nil
}

func (m *memBookings) Get(_ context.Context, id uint64) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	return b, nil
}

func (m *memBookings) List(context.Context, repository.BookingFilter) ([]model.Booking, int, error) {
	return nil, 0, nil
}

func (m *memBookings) Calendar(context.Context, time.Time, time.Time) ([]model.Booking, error) {
	return nil, nil
}

func (m *memBookings) Update(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[b.ID] = *b
	return nil
}

func (m *memBookings) Transition(context.Context, model.BookingTransition) error { return nil }

type tokens map[string]*service.Identity

func (t tokens) ResolveIdentity(_ context.Context, token string) (*service.Identity, error) {
	if id, ok := t[token]; ok {
		return id, nil
	}
	return nil, service.Unauthorized("Invalid or expired token")
}

var testTokens = tokens{
	"owner": {Admin: model.Admin{ID: 1}, Authority: rbac.Authority{Kind: rbac.SuperAdmin}, Permissions: rbac.All()},
	"viewer": {
		Admin:       model.Admin{ID: 2},
		Authority:   rbac.Authority{Kind: rbac.RoleRef, RoleID: 3},
		Permissions: rbac.Flatten([]rbac.Grant{{Module: "rooms", Actions: []rbac.Action{rbac.View}}}),
	},
}

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	rooms := newMemRooms()
	records := service.NewRecordService(&memDocs{rows: map[string]model.Document{}}, rooms, nil, nil, nil)
	rh := NewRoomHandler(service.NewRoomService(rooms), 0)
	bh := NewBookingHandler(service.NewBookingService(&memBookings{rows: map[uint64]model.Booking{}}, rooms, nil), 0)
	dh := NewRecordHandler(records, "Test Hotel", 0)

	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Validator = NewValidator()
	g := e.Group("/crm/api", middleware.Authenticate(testTokens))
	g.POST("/create-room", rh.Create, middleware.RequirePermission("rooms", rbac.Create))
	g.GET("/room/:id", rh.Get, middleware.RequirePermission("rooms", rbac.View))
	g.GET("/get-rooms", rh.List, middleware.RequirePermission("rooms", rbac.View))
	g.PUT("/room-status/:id", rh.UpdateStatus, middleware.RequirePermission("rooms", rbac.Edit))
	g.POST("/create-booking", bh.Create)
	g.PUT("/update-booking/:id", bh.Update)
	for _, res := range records.Resources() {
		if res.Kind == service.KindCategories {
			g.POST("/"+res.Path, dh.Create(res))
			g.GET("/"+res.Path, dh.List(res))
			g.GET("/"+res.Path+"/:id", dh.Get(res))
		}
	}
	return e
}

func call(e *echo.Echo, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestRoomLifecycleOverHTTP(t *testing.T) {
	e := newServer(t)

	rec, env := call(e, http.MethodPost, "/crm/api/create-room", "owner",
		`{"room_number":"101","room_type":"Deluxe","base_rate":"2500.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, float64(201), env["status"])
	data := env["data"].(map[string]any)
	assert.Equal(t, "101", data["room_number"])
	assert.Equal(t, "Clean", data["housekeeping_status"])
	assert.Equal(t, true, data["is_available"])

	rec, env = call(e, http.MethodPost, "/crm/api/create-room", "owner", `{"room_number":"101","room_type":"Deluxe"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, float64(409), env["status"])

	rec, _ = call(e, http.MethodPut, "/crm/api/room-status/1", "owner", `{"is_available":false,"housekeeping_status":"Dirty"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = call(e, http.MethodGet, "/crm/api/room/1", "viewer", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data = env["data"].(map[string]any)
	assert.Equal(t, false, data["is_available"])
	assert.Equal(t, "Dirty", data["housekeeping_status"])

	rec, env = call(e, http.MethodGet, "/crm/api/get-rooms", "viewer", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), env["total"])
}

func TestRoomValidationEnvelope(t *testing.T) {
	e := newServer(t)

	rec, env := call(e, http.MethodPost, "/crm/api/create-room", "owner", `{"room_number":" ","room_type":"Cabin"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid room", env["message"])
	fields := env["data"].(map[string]any)
	assert.Equal(t, "required", fields["room_number"])
	assert.Equal(t, "oneof", fields["room_type"])

	rec, env = call(e, http.MethodPost, "/crm/api/create-room", "owner", `{"room_number":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", env["message"])

	rec, env = call(e, http.MethodGet, "/crm/api/room/abc", "owner", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid id", env["message"])

	rec, env = call(e, http.MethodGet, "/crm/api/room/99", "owner", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Room not found", env["message"])
}

func TestPermissionGateOverHTTP(t *testing.T) {
	e := newServer(t)

	rec, env := call(e, http.MethodPost, "/crm/api/create-room", "viewer", `{"room_number":"7","room_type":"Suite"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, float64(403), env["status"])

	rec, _ = call(e, http.MethodGet, "/crm/api/get-rooms", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGenericRecordRoutes(t *testing.T) {
	e := newServer(t)

	rec, env := call(e, http.MethodPost, "/crm/api/categories", "owner", `{"name":"Wedding","id":"forged"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := env["data"].(map[string]any)
	id := data["id"].(string)
	assert.NotEqual(t, "forged", id)
	assert.Equal(t, "Wedding", data["name"])

	rec, _ = call(e, http.MethodPost, "/crm/api/categories", "owner", `{"name":"Wedding"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, env = call(e, http.MethodPost, "/crm/api/categories", "owner", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "required", env["data"].(map[string]any)["name"])

	rec, env = call(e, http.MethodPost, "/crm/api/categories", "owner", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Request body must be a JSON object", env["message"])

	rec, env = call(e, http.MethodGet, "/crm/api/categories", "owner", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), env["total"])

	rec, env = call(e, http.MethodGet, "/crm/api/categories/"+id, "owner", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, env["data"].(map[string]any)["id"])

	rec, _ = call(e, http.MethodGet, "/crm/api/categories/nope", "owner", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = call(e, http.MethodGet, "/crm/api/categories?startDate=yesterday", "owner", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "startDate must be YYYY-MM-DD or RFC 3339", env["message"])
}

func TestFailHidesInternalErrors(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	rec := c.Response().Writer.(*httptest.ResponseRecorder)

	require.NoError(t, fail(c, errors.New("dial tcp 10.0.0.5:3306: connection refused")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "3306")
	assert.Contains(t, rec.Body.String(), "Internal server error")

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	rec = c.Response().Writer.(*httptest.ResponseRecorder)
	require.NoError(t, fail(c, service.Internal("Internal server error", errors.New("secret detail"))))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret detail")

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	rec = c.Response().Writer.(*httptest.ResponseRecorder)
	require.NoError(t, fail(c, service.InvalidTransition("Cannot check out a confirmed booking")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPErrorHandlerUsesEnvelope(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var env map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, float64(404), env["status"])
	assert.NotEmpty(t, env["message"])
}

func TestValidatorHandlesDecimals(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&installmentReq{Amount: decimal.Zero})
	require.Error(t, err)

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	rec := c.Response().Writer.(*httptest.ResponseRecorder)
	require.NoError(t, fail(c, err))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"amount":"gt"`)

	assert.NoError(t, v.Validate(&installmentReq{Amount: decimal.RequireFromString("50")}))
	assert.Error(t, v.Validate(&loginReq{Email: "not-an-email", Password: "x"}))
}

func TestInstallmentAcceptsEitherAmountField(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	bind := func(body string) (decimal.Decimal, error) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return bindInstallment(e.NewContext(req, httptest.NewRecorder()))
	}

	got, err := bind(`{"amount":"25.50"}`)
	require.NoError(t, err)
	assert.Equal(t, "25.5", got.String())

	got, err = bind(`{"installment_amount":40}`)
	require.NoError(t, err)
	assert.Equal(t, "40", got.String())

	got, err = bind(`{"amount":10,"installment_amount":40}`)
	require.NoError(t, err)
	assert.Equal(t, "10", got.String())

	_, err = bind(`{"installment_amount":0}`)
	assert.Error(t, err)
	_, err = bind(`{}`)
	assert.Error(t, err)
}

func TestQueryTimeBounds(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?from=2024-05-01&to=2024-05-31&at=2024-05-02T10:00:00Z", nil), httptest.NewRecorder())

	from, err := queryTime(c, "from", false)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T00:00:00Z", from.Format("2006-01-02T15:04:05Z07:00"))

	to, err := queryTime(c, "to", true)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-31T23:59:59Z", to.Format("2006-01-02T15:04:05Z07:00"))

	at, err := queryTime(c, "at", true)
	require.NoError(t, err)
	assert.Equal(t, 10, at.Hour())

	missing, err := queryTime(c, "none", false)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestBookingDatesAcceptDayAndTimestamp(t *testing.T) {
	e := newServer(t)
	rec, _ := call(e, http.MethodPost, "/crm/api/create-room", "owner", `{"room_number":"101","room_type":"Deluxe","base_rate":"100"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := call(e, http.MethodPost, "/crm/api/create-booking", "owner",
		`{"guest_name":"Ada","rooms":[{"room_id":1}],"check_in":"2024-05-01","check_out":"2024-05-05"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := env["data"].(map[string]any)
	assert.Equal(t, "2024-05-01T00:00:00Z", data["check_in"])
	assert.Equal(t, "400", data["total_amount"])

	rec, env = call(e, http.MethodPost, "/crm/api/create-booking", "owner",
		`{"guest_name":"Bob","rooms":[{"room_id":1}],"check_in":"2024-05-01T14:00:00Z","check_out":"2024-05-03T11:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "2024-05-01T14:00:00Z", env["data"].(map[string]any)["check_in"])

	rec, env = call(e, http.MethodPut, "/crm/api/update-booking/1", "owner", `{"check_out":"2024-05-07"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2024-05-07T00:00:00Z", env["data"].(map[string]any)["check_out"])

	rec, env = call(e, http.MethodPost, "/crm/api/create-booking", "owner",
		`{"guest_name":"Cy","rooms":[{"room_id":1}],"check_in":"01/05/2024","check_out":"2024-05-05"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", env["message"])
}

func TestSeasonalRateDatesAcceptDay(t *testing.T) {
	e := newServer(t)
	rec, env := call(e, http.MethodPost, "/crm/api/create-room", "owner",
		`{"room_number":"201","room_type":"Suite","base_rate":"100",
		  "seasonal_rates":[{"season_name":"peak","start_date":"2024-12-20","end_date":"2024-12-31T00:00:00Z","price":"250"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rates := env["data"].(map[string]any)["seasonal_rates"].([]any)
	require.Len(t, rates, 1)
	assert.Equal(t, "2024-12-20T00:00:00Z", rates[0].(map[string]any)["start_date"])
}
