package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/plateora/plateora-backend/internal/bids"
	"github.com/plateora/plateora-backend/internal/cron"
	"github.com/plateora/plateora-backend/internal/lifecycle"
	"github.com/plateora/plateora-backend/internal/listings"
	"github.com/plateora/plateora-backend/internal/settlement"
	"github.com/plateora/plateora-backend/pkg/config"
	"github.com/plateora/plateora-backend/pkg/db"
	"github.com/plateora/plateora-backend/pkg/logger"
	"github.com/plateora/plateora-backend/pkg/metrics"
	"github.com/plateora/plateora-backend/pkg/migrate"
	"github.com/plateora/plateora-backend/pkg/pubsub"
	"github.com/plateora/plateora-backend/pkg/redis"
	"github.com/plateora/plateora-backend/pkg/square"
)

const lockKeyFormat = "plt:cron-worker:lock:%s"

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

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square", err)
		os.Exit(1)
	}

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)

	listingRepo := listings.NewRepository(dbClient.DB())

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		Logger:           logg,
		DB:               dbClient,
		Listings:         listingRepo,
		Bids:             bids.NewRepository(dbClient.DB()),
		Transactions:     settlement.NewRepository(dbClient.DB()),
		Gateway:          squareClient,
		Notifier:         settlement.NewPubSubNotifier(pubsubClient),
		Metrics:          settlementMetrics,
		Currency:         cfg.Auction.Currency,
		TransferFeePence: cfg.Auction.TransferFeePence,
		ListingFeePence:  cfg.Auction.ListingFeePence,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	scheduler, err := lifecycle.NewScheduler(lifecycle.SchedulerParams{
		Logger:   logg,
		Listings: listingRepo,
		Settler:  settlementService,
		Metrics:  settlementMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create lifecycle scheduler", err)
		os.Exit(1)
	}

	lifecycleJob, err := cron.NewLifecycleJob(cron.LifecycleJobParams{
		Logger:    logg,
		Scheduler: scheduler,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create lifecycle job", err)
		os.Exit(1)
	}

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Scheduler.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(lifecycleJob),
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Scheduler.Interval,
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

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
