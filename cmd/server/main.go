package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/film-festival/internal/config"
	"github.com/iliyamo/film-festival/internal/database"
	"github.com/iliyamo/film-festival/internal/handler"
	"github.com/iliyamo/film-festival/internal/logging"
	"github.com/iliyamo/film-festival/internal/middleware"
	"github.com/iliyamo/film-festival/internal/queue"
	"github.com/iliyamo/film-festival/internal/repository"
	"github.com/iliyamo/film-festival/internal/router"
	"github.com/iliyamo/film-festival/internal/service"
)

func main() {
	configPath := flag.String("config", "", "optional YAML file overriding the environment")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// slog is not configured yet
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	logger.Info("starting", "env", cfg.Env, "port", cfg.Port, "store", cfg.StoreDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	store, checks, closeStore := setupStore(ctx, cfg, clock, logger)
	defer closeStore()

	rdb := setupRedis(ctx, logger)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		checks = append(checks, handler.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	opts := service.Options{Clock: clock, Logger: logger}
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL, queue.ActivityQueue, logger)
		defer func() { _ = pub.Close() }()
		opts.Activity = pub

		consumer := queue.NewConsumer(cfg.AMQPURL, queue.ActivityQueue, cfg.ActivityLog, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("activity consumer stopped", "error", err)
			}
		}()
	} else {
		logger.Info("AMQP_URL not set; activity events disabled")
	}

	svc := handler.Services{
		Accounts: service.NewAccounts(store, service.AccountConfig{
			JWTSecret:   cfg.Auth.JWTSecret,
			AccessTTL:   cfg.Auth.AccessTTL,
			RefreshTTL:  cfg.Auth.RefreshTTL,
			BcryptCost:  cfg.Auth.BcryptCost,
			AdminEmails: cfg.Auth.AdminEmails,
		}, opts),
		Ledger:    service.NewLedger(store, opts),
		Proposals: service.NewProposals(store, opts),
		Ratings:   service.NewRatings(store, opts),
		Events:    service.NewEvents(store, opts),
		Catalog:   service.NewCatalog(store, opts),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(logger)
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.Recover())
	e.Use(middleware.Metrics())

	router.Register(e, router.Deps{
		Auth:      handler.NewAuthHandler(svc.Accounts, cfg.RequestTimeout, logger),
		Films:     handler.NewFilmHandler(svc, cfg.RequestTimeout, logger),
		Events:    handler.NewEventHandler(svc, cfg.RequestTimeout, logger),
		JWTSecret: cfg.Auth.JWTSecret,
		Clock:     clock,
		Cache:     setupCache(rdb, logger),
		RateLimit: setupRateLimit(rdb, logger),
		Checks:    checks,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()
	logger.Info("listening", "addr", ":"+cfg.Port)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
}

// setupStore opens the configured store. The returned checks probe it
// for /readyz and close releases it.
func setupStore(ctx context.Context, cfg *config.Config, clock clockwork.Clock, logger *slog.Logger) (repository.Store, []handler.HealthCheck, func()) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(clock), nil, func() {}
	}

	dbCfg := cfg.DB.Database()
	if cfg.AutoMigrate {
		if err := database.Migrate(dbCfg.DSN()); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := database.Open(openCtx, dbCfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	checks := []handler.HealthCheck{{Name: "mysql", Check: db.PingContext}}
	return repository.NewMySQLStore(db), checks, func() { closeDB(db, logger) }
}

func closeDB(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
}

func setupRedis(ctx context.Context, logger *slog.Logger) *redis.Client {
	rcfg, err := config.LoadRedisConfig()
	if err != nil {
		logger.Error("invalid redis config", "error", err)
		os.Exit(1)
	}
	rdb := config.NewRedisClient(ctx, rcfg)
	if rdb == nil && !rcfg.Disabled {
		logger.Warn("redis unavailable; response cache and rate limiting disabled", "addr", rcfg.Address())
	}
	return rdb
}

func setupCache(rdb *redis.Client, logger *slog.Logger) *middleware.ResponseCache {
	ccfg, err := config.LoadCacheConfig()
	if err != nil {
		logger.Error("invalid cache config", "error", err)
		os.Exit(1)
	}
	return middleware.NewResponseCache(ccfg, rdb, logger)
}

func setupRateLimit(rdb *redis.Client, logger *slog.Logger) echo.MiddlewareFunc {
	rl, err := config.LoadRateLimitConfig()
	if err != nil {
		logger.Error("invalid rate limit config", "error", err)
		os.Exit(1)
	}
	return middleware.NewTokenBucket(rl, rdb, logger)
}
