package config

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisOptions builds client options from the environment.
//
//	REDIS_ADDR                host:port shorthand
//	REDIS_HOST / REDIS_PORT   take precedence over REDIS_ADDR when both are set
//	REDIS_PASSWORD            optional
//	REDIS_DB                  database number (default 0)
//	REDIS_TLS                 "true" or "1" enables TLS
func RedisOptions() *redis.Options {
	addr := os.Getenv("REDIS_ADDR")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	dbNum := 0
	if n, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		dbNum = n
	}
	var tlsConf *tls.Config
	if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &redis.Options{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        dbNum,
		TLSConfig: tlsConf,
	}
}

// NewRedisClient connects to Redis and pings it. It returns nil when the
// server is unreachable; the rate limiter and the report cache both run
// without Redis.
func NewRedisClient() *redis.Client {
	opts := RedisOptions()
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", opts.Addr).Msg("redis unavailable, continuing without it")
		_ = client.Close()
		return nil
	}
	return client
}
