package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports whether the process and its backing stores answer.
// Redis is optional: a missing client is reported, not failed.
type HealthHandler struct {
	DB    *sql.DB
	Redis *redis.Client
}

func NewHealthHandler(db *sql.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{DB: db, Redis: rdb}
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := echo.Map{"database": "ok", "redis": "disabled"}
	status := http.StatusOK
	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	if h.Redis != nil {
		checks["redis"] = "ok"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
		}
	}
	msg := "ok"
	if status != http.StatusOK {
		msg = "unavailable"
	}
	return c.JSON(status, echo.Map{"status": status, "message": msg, "data": checks})
}
