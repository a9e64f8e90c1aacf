package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hotel-admin/internal/middleware"
	"github.com/iliyamo/hotel-admin/internal/service"
)

const defaultTimeout = 5 * time.Second

// respond writes the success envelope. data is omitted when nil.
func respond(c echo.Context, status int, msg string, data any) error {
	body := echo.Map{"status": status, "message": msg}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(status, body)
}

func respondList(c echo.Context, msg string, data any, total int) error {
	return c.JSON(http.StatusOK, echo.Map{"status": http.StatusOK, "message": msg, "data": data, "total": total})
}

// fail writes the error envelope for err. Only service errors reach the
// client verbatim; anything else is logged and reported as a 500.
func fail(c echo.Context, err error) error {
	var (
		se *service.Error
		ve validator.ValidationErrors
	)
	switch {
	case errors.As(err, &ve):
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"status": http.StatusBadRequest, "message": "Validation failed", "data": fields})
	case errors.As(err, &se) && se.Kind != service.KindInternal:
		body := echo.Map{"status": se.Status(), "message": se.Message}
		if len(se.Fields) > 0 {
			body["data"] = se.Fields
		}
		return c.JSON(se.Status(), body)
	}
	log.Error().Err(err).
		Str("request_id", requestID(c)).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"status": http.StatusInternalServerError, "message": "Internal server error"})
}

func requestID(c echo.Context) string {
	s, _ := c.Get(middleware.RequestIDKey).(string)
	return s
}

// badRequest is the 400 envelope for malformed input.
func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"status": http.StatusBadRequest, "message": msg})
}

// storeCtx bounds the store calls of one request.
func storeCtx(c echo.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(c.Request().Context(), timeout)
}

// bindJSON decodes the body into v and runs the struct validator.
func bindJSON(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return service.Validation("Invalid request body")
	}
	return c.Validate(v)
}

// decodeObject reads a JSON object body keeping numbers exact.
func decodeObject(c echo.Context) (map[string]any, error) {
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, service.Validation("Request body must be a JSON object")
	}
	return m, nil
}

func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, service.Validation("Invalid id")
	}
	return id, nil
}

// queryTime parses YYYY-MM-DD or RFC 3339. A bare date used as an upper
// bound covers the whole day.
func queryTime(c echo.Context, name string, upper bool) (*time.Time, error) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, service.Validation(name + " must be YYYY-MM-DD or RFC 3339")
	}
	if upper {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t, nil
}

func queryInt(c echo.Context, name string, def int) int {
	if n, err := strconv.Atoi(c.QueryParam(name)); err == nil {
		return n
	}
	return def
}

// Validator adapts go-playground/validator to Echo. Decimals validate as
// their float value, so tags like gt=0 work on money fields.
type Validator struct{ v *validator.Validate }

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return &Validator{v: v}
}

func (v *Validator) Validate(i any) error { return v.v.Struct(i) }

// HTTPErrorHandler renders framework errors (unknown route, wrong method,
// oversized body) in the same envelope as everything else.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		_ = c.JSON(he.Code, echo.Map{"status": he.Code, "message": msg})
		return
	}
	_ = fail(c, err)
}
