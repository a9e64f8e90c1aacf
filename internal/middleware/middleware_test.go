package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-admin/internal/config"
	"github.com/iliyamo/hotel-admin/internal/model"
	"github.com/iliyamo/hotel-admin/internal/rbac"
	"github.com/iliyamo/hotel-admin/internal/service"
)

type stubResolver map[string]*service.Identity

func (s stubResolver) ResolveIdentity(_ context.Context, token string) (*service.Identity, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return nil, service.Unauthorized("Invalid or expired token")
}

func roleIdentity(adminID uint64, grants ...rbac.Grant) *service.Identity {
	return &service.Identity{
		Admin:       model.Admin{ID: adminID},
		Authority:   rbac.Authority{Kind: rbac.RoleRef, RoleID: 1},
		Permissions: rbac.Flatten(grants),
	}
}

var resolver = stubResolver{
	"clerk": roleIdentity(2, rbac.Grant{Module: "rooms", Actions: []rbac.Action{rbac.View}}),
	"owner": {Admin: model.Admin{ID: 1, IsSuperAdmin: true}, Authority: rbac.Authority{Kind: rbac.SuperAdmin}, Permissions: rbac.All()},
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func do(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestAuthenticate(t *testing.T) {
	e := echo.New()
	e.GET("/rooms", ok, Authenticate(resolver), RequirePermission("rooms", rbac.View))
	e.DELETE("/rooms", ok, Authenticate(resolver), RequirePermission("rooms", rbac.Delete))

	rec := do(e, http.MethodGet, "/rooms", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, float64(401), envelope(t, rec)["status"])

	rec = do(e, http.MethodGet, "/rooms", "forged")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", envelope(t, rec)["message"])

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/rooms", "clerk").Code)

	rec = do(e, http.MethodDelete, "/rooms", "clerk")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You do not have permission to delete rooms", envelope(t, rec)["message"])

	assert.Equal(t, http.StatusOK, do(e, http.MethodDelete, "/rooms", "owner").Code)
}

func TestOptionalAuthFeedsAuthenticate(t *testing.T) {
	e := echo.New()
	e.Use(OptionalAuth(resolver))
	e.GET("/who", func(c echo.Context) error {
		return c.String(http.StatusOK, adminKey(c))
	})
	e.GET("/private", ok, Authenticate(stubResolver{}))

	assert.Equal(t, "anon", do(e, http.MethodGet, "/who", "").Body.String())
	assert.Equal(t, "anon", do(e, http.MethodGet, "/who", "forged").Body.String())
	assert.Equal(t, "2", do(e, http.MethodGet, "/who", "clerk").Body.String())
	// the identity resolved globally satisfies a route-level Authenticate
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/private", "clerk").Code)
}

func TestRequirePermissionRejectsUnknownModule(t *testing.T) {
	assert.Panics(t, func() { RequirePermission("casino", rbac.View) })
	assert.Panics(t, func() { Authenticate(nil) })
}

func TestTokenBucketInProcess(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: time.Hour, KeyStrategy: "ip_admin", Prefix: "rl",
	}
	e := echo.New()
	e.Use(OptionalAuth(resolver), NewTokenBucket(cfg, nil))
	e.GET("/x", ok)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/x", "clerk").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/x", "clerk").Code)
	rec := do(e, http.MethodGet, "/x", "clerk")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, float64(429), envelope(t, rec)["status"])

	// another admin from the same address has its own bucket
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/x", "owner").Code)
}

func TestTokenBucketDisabled(t *testing.T) {
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{Capacity: 1}, nil))
	e.GET("/x", ok)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/x", "").Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/crm/api/rooms/7", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/crm/api/rooms/:id")
	SetIdentity(c, roleIdentity(4))

	cases := map[string]string{
		"ip":             "rl:ip:10.0.0.9",
		"admin":          "rl:admin:4",
		"route":          "rl:route:GET /crm/api/rooms/:id",
		"ip_admin":       "rl:ip:10.0.0.9:admin:4",
		"admin_route":    "rl:admin:4:route:GET /crm/api/rooms/:id",
		"ip_admin_route": "rl:ip:10.0.0.9:admin:4:route:GET /crm/api/rooms/:id",
	}
	for strategy, want := range cases {
		assert.Equal(t, want, buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c), strategy)
	}
}

func TestCacheKeyIsPerAdmin(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache"}
	ctx := func(id *service.Identity) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/crm/api/reports?from=2024-01-01", nil), httptest.NewRecorder())
		c.SetPath("/crm/api/reports")
		if id != nil {
			SetIdentity(c, id)
		}
		return c
	}
	a := cacheKey(cfg, ctx(roleIdentity(1)))
	b := cacheKey(cfg, ctx(roleIdentity(2)))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, cacheKey(cfg, ctx(roleIdentity(1))))
	assert.Contains(t, a, "cache:")
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"status":200}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"status":200}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0})
	assert.False(t, ok)
}

func TestCaptureWriterStopsAtLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	_, _ = cw.Write([]byte("def"))
	assert.True(t, cw.truncated)
	assert.Equal(t, "abc", cw.buf.String())
	assert.Equal(t, "abcdef", rec.Body.String())
}

func TestRecoveryAndRequestID(t *testing.T) {
	e := echo.New()
	e.Use(Recovery(), RequestID(), Logger())
	e.GET("/boom", func(echo.Context) error { panic("kaboom") })
	e.GET("/id", func(c echo.Context) error { return c.String(http.StatusOK, requestID(c)) })

	rec := do(e, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", envelope(t, rec)["message"])

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Body.String())
	assert.Equal(t, "req-42", rec.Header().Get(echo.HeaderXRequestID))

	rec = do(e, http.MethodGet, "/id", "")
	assert.Len(t, rec.Body.String(), 36)
}

func TestMetricsPassesErrorsToEcho(t *testing.T) {
	e := echo.New()
	e.Use(Metrics())
	e.GET("/missing", func(echo.Context) error { return echo.NewHTTPError(http.StatusNotFound, "nope") })
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/missing", "").Code)
}
