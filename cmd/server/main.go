package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/draft"
	"github.com/iliyamo/hotel-reservation/internal/feed"
	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/notification"
	"github.com/iliyamo/hotel-reservation/internal/pricing"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/repository"
	"github.com/iliyamo/hotel-reservation/internal/router"
	"github.com/iliyamo/hotel-reservation/internal/ticket"
)

func main() {
	cfg := config.Load()
	log := config.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.WithError(err).Fatal("database migration failed")
	}

	users := repository.NewUserRepo(db)
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		created, err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost)
		if err != nil {
			log.WithError(err).Fatal("admin bootstrap failed")
		}
		if created {
			log.WithField("email", cfg.AdminEmail).Info("bootstrap admin created")
		}
	}

	// Redis is optional: drafts and the live feed fall back to process
	// memory, cache and rate limiting switch off.
	rdb := config.NewRedisClient(ctx)
	var (
		drafts draft.Store
		broker feed.Broker
	)
	if rdb != nil {
		defer rdb.Close()
		drafts = draft.NewRedisStore(rdb, "hotel:draft", cfg.DraftTTL, nil)
		broker = feed.NewRedisBroker(rdb, "hotel:feed")
	} else {
		log.Warn("redis unavailable; using in-memory drafts and feed")
		drafts = draft.NewMemoryStore(cfg.DraftTTL, nil)
		broker = feed.NewLocalBroker()
	}

	notes := notification.NewService(repository.NewNotificationRepo(db), broker, cfg.NotificationLimit, log)
	tickets := ticket.NewService(repository.NewTicketRepo(db), broker, notes, log)
	catalog := pricing.DefaultCatalog()
	bookings := booking.NewService(
		pricing.NewBuilder(catalog, cfg.TaxRate),
		drafts,
		repository.NewBookingRepo(db),
		queue.NewPublisher(cfg.AMQPURL, log),
		log,
	)

	go func() {
		consumer := queue.NewConsumer(cfg.AMQPURL, cfg.LogDir, notes, log)
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("booking consumer stopped")
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e, handler.NewHealthHandler(db, rdb))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db)), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewRoomsHandler(catalog), cache, limiter)
	router.RegisterGuest(e, handler.NewBookingHandler(bookings, cfg.MyBookingsPerPage, log), cfg.JWTSecret, limiter)
	router.RegisterAdmin(e, handler.NewTicketHandler(tickets, log), handler.NewNotificationHandler(notes, log), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("server stopped")
}
