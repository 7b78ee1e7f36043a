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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seoulmarket/marketplace-backend/api/routes"
	"github.com/seoulmarket/marketplace-backend/internal/address"
	"github.com/seoulmarket/marketplace-backend/internal/cart"
	"github.com/seoulmarket/marketplace-backend/internal/catalog"
	"github.com/seoulmarket/marketplace-backend/internal/checkout"
	"github.com/seoulmarket/marketplace-backend/internal/inventory"
	"github.com/seoulmarket/marketplace-backend/internal/orders"
	"github.com/seoulmarket/marketplace-backend/internal/payments"
	"github.com/seoulmarket/marketplace-backend/pkg/config"
	"github.com/seoulmarket/marketplace-backend/pkg/db"
	"github.com/seoulmarket/marketplace-backend/pkg/env"
	"github.com/seoulmarket/marketplace-backend/pkg/instance"
	"github.com/seoulmarket/marketplace-backend/pkg/logger"
	"github.com/seoulmarket/marketplace-backend/pkg/metrics"
	"github.com/seoulmarket/marketplace-backend/pkg/migrate"
	"github.com/seoulmarket/marketplace-backend/pkg/outbox"
	"github.com/seoulmarket/marketplace-backend/pkg/redis"
)

const shutdownTimeout = 20 * time.Second

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
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Env:         cfg.App.Env,
		Instance:    instance.GetID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
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

	params, err := buildRouterParams(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "addr", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(params),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "api server shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

func buildRouterParams(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.RouterParams, error) {
	conn := dbClient.DB()
	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)

	ordersRepo := orders.NewRepository(conn)
	catalogReader := catalog.NewReader(conn)
	ledger := inventory.NewLedger(conn)
	publisher := outbox.NewService(outbox.NewRepository(conn), logg)

	addresses, err := address.NewService(address.NewRepository(conn))
	if err != nil {
		return routes.RouterParams{}, err
	}

	checkoutSvc, err := checkout.NewService(dbClient, ordersRepo, catalogReader, cart.NewCartItemRepository(conn),
		addresses, publisher, logg, checkout.Options{Config: cfg.Checkout, Metrics: orderMetrics})
	if err != nil {
		return routes.RouterParams{}, err
	}

	ordersSvc, err := orders.NewService(ordersRepo, dbClient, publisher, ledger, addresses, logg, orders.Options{
		OverrideReasonMinLength: cfg.Checkout.AdminOverrideReasonMinLength,
		Metrics:                 orderMetrics,
	})
	if err != nil {
		return routes.RouterParams{}, err
	}

	expirer, err := orders.NewExpirer(ordersRepo, publisher, logg, orderMetrics)
	if err != nil {
		return routes.RouterParams{}, err
	}
	// TODO: swap the simulated gateway for the PG client once merchant credentials are provisioned.
	paymentsSvc, err := payments.NewService(dbClient, ordersRepo, catalogReader, ledger, expirer, publisher,
		payments.NewSimulatedGateway(logg), logg, payments.Options{Metrics: orderMetrics})
	if err != nil {
		return routes.RouterParams{}, err
	}

	return routes.RouterParams{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		Gatherer: prometheus.DefaultGatherer,
		Checkout: checkoutSvc,
		Orders:   ordersSvc,
		Payments: paymentsSvc,
	}, nil
}
