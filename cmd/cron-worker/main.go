package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seoulmarket/marketplace-backend/internal/cron"
	"github.com/seoulmarket/marketplace-backend/internal/orders"
	"github.com/seoulmarket/marketplace-backend/pkg/config"
	"github.com/seoulmarket/marketplace-backend/pkg/db"
	"github.com/seoulmarket/marketplace-backend/pkg/instance"
	"github.com/seoulmarket/marketplace-backend/pkg/logger"
	"github.com/seoulmarket/marketplace-backend/pkg/metrics"
	"github.com/seoulmarket/marketplace-backend/pkg/migrate"
	"github.com/seoulmarket/marketplace-backend/pkg/outbox"
	"github.com/seoulmarket/marketplace-backend/pkg/redis"
)

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

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+envName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	expirer, err := orders.NewExpirer(
		orders.NewRepository(dbClient.DB()),
		outbox.NewService(outboxRepo, logg),
		logg,
		orderMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order expirer", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, cronMetrics, dbClient, expirer, outboxRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "service_kind", cfg.Service.Kind)
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, cronMetrics *metrics.CronJobMetrics, dbClient *db.Client, expirer *orders.Expirer, outboxRepo *outbox.Repository) (*cron.Registry, error) {
	registry, err := cron.NewRegistry()
	if err != nil {
		return nil, err
	}

	if cfg.Cron.ExpirySweepEnable {
		sweep, err := cron.NewExpirySweepJob(cron.ExpirySweepJobParams{
			Logger:  logg,
			DB:      dbClient,
			Expirer: expirer,
			Metrics: cronMetrics,
			Batch:   cfg.Cron.ExpirySweepBatch,
		})
		if err != nil {
			return nil, err
		}
		if err := registry.Register(sweep); err != nil {
			return nil, err
		}
	}

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outboxRepo,
		Metrics:     cronMetrics,
		Retention:   cfg.Outbox.RetentionDays,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	if err := registry.Register(retention); err != nil {
		return nil, err
	}
	return registry, nil
}

func envName(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
