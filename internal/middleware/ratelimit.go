package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/iliyamo/hotel-admin/internal/config"
	"github.com/iliyamo/hotel-admin/internal/metrics"
)

var limiterScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 and refill_tokens > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + (intervals * refill_tokens))
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		local until_next = interval_ms - (now_ms - last_refill)
		if until_next < 0 then until_next = 0 end
		retry_after_ms = until_next
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill, 'capacity', capacity)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// decision is the outcome of one bucket check.
type decision struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

// NewTokenBucket limits requests per key. Buckets live in Redis when rdb is
// set, so every instance shares them; without Redis each process keeps its
// own. A Redis failure lets the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	take := redisBucket(cfg, rdb)
	if rdb == nil {
		take = newLocalBuckets(cfg).take
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			d, err := take(c, key)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
				return next(c)
			}
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
			if !d.allowed {
				secs := int(math.Ceil(d.retry.Seconds()))
				if secs < 0 {
					secs = 0
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				metrics.RateLimited()
				return deny(c, http.StatusTooManyRequests, "Rate limit exceeded, retry in "+strconv.Itoa(secs)+"s")
			}
			return next(c)
		}
	}
}

func redisBucket(cfg config.RateLimitConfig, rdb *redis.Client) func(echo.Context, string) (decision, error) {
	return func(c echo.Context, key string) (decision, error) {
		vals, err := limiterScript.Run(c.Request().Context(), rdb, []string{key},
			time.Now().UnixMilli(),
			cfg.Capacity,
			cfg.RefillTokens,
			cfg.RefillInterval.Milliseconds(),
			int64(cfg.TTL/time.Second),
		).Result()
		if err != nil {
			return decision{}, err
		}
		arr, ok := vals.([]interface{})
		if !ok || len(arr) != 3 {
			return decision{}, fmt.Errorf("unexpected script result %#v", vals)
		}
		return decision{
			allowed:   asInt64(arr[0]) == 1,
			remaining: asInt64(arr[1]),
			retry:     time.Duration(asInt64(arr[2])) * time.Millisecond,
		}, nil
	}
}

// localBuckets is the in-process fallback: one rate.Limiter per key, idle
// ones dropped after the configured TTL.
type localBuckets struct {
	mu       sync.Mutex
	cfg      config.RateLimitConfig
	limiters map[string]*localEntry
	swept    time.Time
}

type localEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLocalBuckets(cfg config.RateLimitConfig) *localBuckets {
	return &localBuckets{cfg: cfg, limiters: map[string]*localEntry{}, swept: time.Now()}
}

func (b *localBuckets) take(_ echo.Context, key string) (decision, error) {
	now := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.Sub(b.swept) > b.cfg.TTL {
		for k, e := range b.limiters {
			if now.Sub(e.seen) > b.cfg.TTL {
				delete(b.limiters, k)
			}
		}
		b.swept = now
	}
	e, ok := b.limiters[key]
	if !ok {
		e = &localEntry{lim: rate.NewLimiter(rate.Limit(b.cfg.PerSecond()), b.cfg.Capacity)}
		b.limiters[key] = e
	}
	e.seen = now
	r := e.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return decision{retry: delay}, nil
	}
	return decision{allowed: true, remaining: int64(e.lim.TokensAt(now))}, nil
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	admin := adminKey(c)
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "admin":
		parts = append(parts, "admin", admin)
	case "route":
		parts = append(parts, "route", route)
	case "ip_admin":
		parts = append(parts, "ip", ip, "admin", admin)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "admin_route":
		parts = append(parts, "admin", admin, "route", route)
	default:
		parts = append(parts, "ip", ip, "admin", admin, "route", route)
	}
	return strings.Join(parts, ":")
}
