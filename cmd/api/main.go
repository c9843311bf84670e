package main

import (
	"context"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/plateora/plateora-backend/api/routes"
	"github.com/plateora/plateora-backend/internal/bids"
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
	bidRepo := bids.NewRepository(dbClient.DB())
	transactionRepo := settlement.NewRepository(dbClient.DB())

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		Logger:           logg,
		DB:               dbClient,
		Listings:         listingRepo,
		Bids:             bidRepo,
		Transactions:     transactionRepo,
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

	listingsService, err := listings.NewService(listings.ServiceParams{
		Logger: logg,
		Repo:   listingRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create listings service", err)
		os.Exit(1)
	}

	bidService, err := bids.NewService(bids.ServiceParams{
		Logger:   logg,
		DB:       dbClient,
		Listings: listingRepo,
		Repo:     bidRepo,
		Settler:  settlementErrOnly(settlementService),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create bid service", err)
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

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, listingRepo, listingsService, bidService, scheduler),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// settlementErrOnly narrows the settlement service to the error-only shape
// the bid engine's buy-now path depends on.
func settlementErrOnly(svc *settlement.Service) bids.Settler {
	return bids.SettlerFunc(func(ctx context.Context, listingID uuid.UUID) error {
		_, err := svc.Settle(ctx, listingID)
		return err
	})
}
