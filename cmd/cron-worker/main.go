package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gamevault/gamevault-backend/internal/cart"
	"github.com/gamevault/gamevault-backend/internal/checkout"
	"github.com/gamevault/gamevault-backend/internal/cron"
	"github.com/gamevault/gamevault-backend/internal/invoices"
	"github.com/gamevault/gamevault-backend/internal/listings"
	"github.com/gamevault/gamevault-backend/internal/orders"
	"github.com/gamevault/gamevault-backend/internal/users"
	"github.com/gamevault/gamevault-backend/pkg/config"
	"github.com/gamevault/gamevault-backend/pkg/db"
	"github.com/gamevault/gamevault-backend/pkg/env"
	"github.com/gamevault/gamevault-backend/pkg/logger"
	"github.com/gamevault/gamevault-backend/pkg/metrics"
	"github.com/gamevault/gamevault-backend/pkg/migrate"
	"github.com/gamevault/gamevault-backend/pkg/outbox"
	"github.com/gamevault/gamevault-backend/pkg/redis"
	"github.com/gamevault/gamevault-backend/pkg/square"
)

const lockKeyFormat = "gv:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	checkoutService, err := buildCheckoutService(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	reconcileJob, err := cron.NewCheckoutReconcileJob(cron.CheckoutReconcileJobParams{
		Logger:     logg,
		Reconciler: checkoutService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout reconcile job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outbox.NewRepository(dbClient.DB()),
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(reconcileJob, retentionJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	go serveMetrics(ctx, logg)

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildCheckoutService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*checkout.Service, error) {
	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		return nil, err
	}
	gateway, err := checkout.NewSquareGateway(squareClient)
	if err != nil {
		return nil, err
	}

	gormDB := dbClient.DB()
	listingRepo := listings.NewRepository(gormDB)
	events := outbox.NewService(outbox.NewRepository(gormDB), logg)

	cartService, err := cart.NewService(cart.NewRepository(gormDB), dbClient, listingRepo, redisClient, logg)
	if err != nil {
		return nil, err
	}
	invoiceService, err := invoices.NewService(invoices.NewRepository(gormDB), dbClient, users.NewRepository(gormDB), listingRepo, events, logg)
	if err != nil {
		return nil, err
	}
	return checkout.NewService(
		cartService,
		listingRepo,
		orders.NewRepository(gormDB),
		checkout.NewIntentRepository(gormDB),
		invoiceService,
		dbClient,
		gateway,
		redisClient,
		events,
		logg,
		cfg.Checkout,
	)
}

func serveMetrics(ctx context.Context, logg *logger.Logger) {
	addr := ":" + env.Get("METRICS_PORT", "9100")
	server := &http.Server{Addr: addr, Handler: promhttp.Handler()}

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}

func lockKey(envName string) string {
	if envName == "" {
		envName = "local"
	}
	return fmt.Sprintf(lockKeyFormat, envName)
}
