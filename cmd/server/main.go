package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	billingapp "github.com/zoravo/oms/internal/application/billing"
	identityapp "github.com/zoravo/oms/internal/application/identity"
	notificationapp "github.com/zoravo/oms/internal/application/notification"
	"github.com/zoravo/oms/internal/infrastructure/auth"
	"github.com/zoravo/oms/internal/infrastructure/cache"
	"github.com/zoravo/oms/internal/infrastructure/config"
	"github.com/zoravo/oms/internal/infrastructure/logger"
	"github.com/zoravo/oms/internal/infrastructure/persistence"
	"github.com/zoravo/oms/internal/interfaces/http/handler"
	"github.com/zoravo/oms/internal/interfaces/http/router"
)

func main() {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.NewFromSettings(cfg.App.Env, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port))

	gormLog := logger.NewDBLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	// Repositories
	txRunner := persistence.NewGormTxRunner(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepositoryWithBatchSize(db.DB, cfg.Sweep.BatchSize)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	inwardRepo := persistence.NewGormVehicleInwardRepository(db.DB)
	queueRepo := persistence.NewGormNotificationQueueRepository(db.DB)
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)

	// Payment idempotency wants redis; a single-node deployment without it
	// still gets in-process dedupe.
	var idempotency billingapp.IdempotencyStore
	if redisStore, err := cache.NewRedisIdempotencyStore(cfg.Redis); err != nil {
		log.Warn("Redis unavailable, falling back to in-memory idempotency store", zap.Error(err))
		idempotency = cache.NewInMemoryIdempotencyStore()
	} else {
		idempotency = redisStore
	}

	tokens := auth.NewTokenService(cfg.JWT)
	producer := notificationapp.NewEnqueuer(queueRepo, inwardRepo, log)

	// Application services
	invoiceService := billingapp.NewInvoiceService(
		txRunner, invoiceRepo, paymentRepo, tenantRepo, inwardRepo, producer, log)
	paymentService := billingapp.NewPaymentService(
		txRunner, paymentRepo, idempotency, producer, log)
	sweeper := billingapp.NewOverdueSweeper(invoiceRepo, inwardRepo, producer, log)
	authService := identityapp.NewAuthService(userRepo, tokens, log)
	resolver := identityapp.NewTenantResolver(userRepo, tenantRepo, log)
	subscriptionService := identityapp.NewSubscriptionService(tenantRepo, log)
	tenantService := identityapp.NewTenantService(tenantRepo, log)
	userService := identityapp.NewUserService(userRepo, tenantRepo, log)

	r := router.New(router.Config{
		Logger:       log,
		TokenService: tokens,
		Resolver:     resolver,
		CronSecret:   cfg.Cron.Secret,
		HTTP:         cfg.HTTP,
		Env:          cfg.App.Env,
	})
	r.RegisterPublic(
		handler.NewSystemHandler(db),
		handler.NewAuthHandler(authService),
	)
	r.RegisterTenantScoped(
		handler.NewInvoiceHandler(invoiceService, paymentService),
		handler.NewPaymentHandler(paymentService),
		handler.NewUserHandler(userService),
		handler.NewTenantHandler(tenantService),
	)
	r.RegisterCron(
		handler.NewCronHandler(sweeper, subscriptionService),
	)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        r.Build(),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}
