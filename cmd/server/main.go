package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/hotel-admin/internal/config"
	"github.com/iliyamo/hotel-admin/internal/database"
	"github.com/iliyamo/hotel-admin/internal/handler"
	"github.com/iliyamo/hotel-admin/internal/middleware"
	"github.com/iliyamo/hotel-admin/internal/queue"
	"github.com/iliyamo/hotel-admin/internal/repository"
	"github.com/iliyamo/hotel-admin/internal/router"
	"github.com/iliyamo/hotel-admin/internal/scheduler"
	"github.com/iliyamo/hotel-admin/internal/service"
	"github.com/iliyamo/hotel-admin/internal/storage"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	files, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("upload storage")
	}

	events := queue.NewPublisher(cfg.RabbitURL)
	defer events.Close()
	if events.Enabled() {
		go func() {
			if err := (queue.Consumer{URL: cfg.RabbitURL}).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("event consumer stopped")
			}
		}()
	}

	reminders := scheduler.New()
	defer reminders.Stop()

	admins := repository.NewAdminRepo(db)
	roles := repository.NewRoleRepo(db)
	rooms := repository.NewRoomRepo(db)

	identity := service.NewIdentityService(admins, roles, files, cfg.JWTSecret, cfg.BcryptCost)
	records := service.NewRecordService(repository.NewDocumentRepo(db), rooms, files, reminders, events)
	if n, err := records.RestoreReminders(ctx); err != nil {
		log.Warn().Err(err).Msg("restore reminders")
	} else if n > 0 {
		log.Info().Int("count", n).Msg("inquiry reminders rescheduled")
	}

	h := router.Handlers{
		Health:      handler.NewHealthHandler(db, rdb),
		Auth:        handler.NewAuthHandler(identity, cfg.DBTimeout),
		Roles:       handler.NewRoleHandler(service.NewRoleService(roles), cfg.DBTimeout),
		Rooms:       handler.NewRoomHandler(service.NewRoomService(rooms), cfg.DBTimeout),
		Bookings:    handler.NewBookingHandler(service.NewBookingService(repository.NewBookingRepo(db), rooms, events), cfg.DBTimeout),
		Collections: handler.NewCollectionHandler(service.NewCollectionService(repository.NewCollectionRepo(db)), cfg.DBTimeout),
		Records:     handler.NewRecordHandler(records, cfg.HotelName, cfg.DBTimeout),
		Resolver:    identity,
		Cache:       middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	}
	if cfg.Storage.Driver == "" || cfg.Storage.Driver == "local" {
		h.UploadDir = cfg.Storage.UploadDir
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Validator = handler.NewValidator()
	e.RouteNotFound("/*", router.NotFound)
	e.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Metrics(),
		middleware.OptionalAuth(identity),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	)
	router.RegisterRoutes(e, h)
	router.RegisterAPI(e, h)

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

// setupLogger writes human-readable logs in development and JSON otherwise.
func setupLogger(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}
