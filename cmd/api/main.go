package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/gamevault/gamevault-backend/api/routes"
	"github.com/gamevault/gamevault-backend/internal/auth"
	"github.com/gamevault/gamevault-backend/internal/cart"
	"github.com/gamevault/gamevault-backend/internal/checkout"
	"github.com/gamevault/gamevault-backend/internal/invoices"
	"github.com/gamevault/gamevault-backend/internal/listings"
	"github.com/gamevault/gamevault-backend/internal/orders"
	"github.com/gamevault/gamevault-backend/internal/users"
	"github.com/gamevault/gamevault-backend/pkg/config"
	"github.com/gamevault/gamevault-backend/pkg/db"
	"github.com/gamevault/gamevault-backend/pkg/instance"
	"github.com/gamevault/gamevault-backend/pkg/logger"
	"github.com/gamevault/gamevault-backend/pkg/migrate"
	"github.com/gamevault/gamevault-backend/pkg/outbox"
	"github.com/gamevault/gamevault-backend/pkg/redis"
	"github.com/gamevault/gamevault-backend/pkg/square"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square", err)
		os.Exit(1)
	}
	gateway, err := checkout.NewSquareGateway(squareClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)
	listingRepo := listings.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)
	events := outbox.NewService(outbox.NewRepository(gormDB), logg)

	cartService, err := cart.NewService(cart.NewRepository(gormDB), dbClient, listingRepo, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}
	invoiceService, err := invoices.NewService(invoices.NewRepository(gormDB), dbClient, userRepo, listingRepo, events, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create invoice service", err)
		os.Exit(1)
	}
	checkoutService, err := checkout.NewService(
		cartService,
		listingRepo,
		orderRepo,
		checkout.NewIntentRepository(gormDB),
		invoiceService,
		dbClient,
		gateway,
		redisClient,
		events,
		logg,
		cfg.Checkout,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}
	authService, err := auth.NewService(userRepo, cfg.JWT, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Idempotency: redisClient,
			Auth:        authService,
			Cart:        cartService,
			Checkout:    checkoutService,
			Invoices:    invoiceService,
			Listings:    listingRepo,
			Orders:      orderRepo,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shutting down gracefully")
	}
}
