package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plateora/plateora-backend/api/controllers"
	"github.com/plateora/plateora-backend/api/middleware"
	"github.com/plateora/plateora-backend/pkg/config"
	"github.com/plateora/plateora-backend/pkg/db"
	"github.com/plateora/plateora-backend/pkg/logger"
	"github.com/plateora/plateora-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	listingReader controllers.ListingReader,
	listingsService controllers.ListingsService,
	bidService controllers.BidService,
	schedulerService controllers.SchedulerService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbClient, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/listings", func(r chi.Router) {
		r.Get("/{listingID}", controllers.GetListing(listingReader, logg))
		r.Get("/{listingID}/bids", controllers.BidHistory(bidService, logg))
		r.Post("/{listingID}/bids", controllers.PlaceBid(bidService, logg))
		r.Post("/{listingID}/buy-now", controllers.BuyNow(bidService, logg))
		r.Post("/{listingID}/withdraw", controllers.WithdrawListing(listingsService, logg))
		r.Post("/{listingID}/relist", controllers.RelistListing(listingsService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Post("/listings/{listingID}/approve", controllers.ApproveListing(listingsService, logg))
		r.Post("/listings/{listingID}/reject", controllers.RejectListing(listingsService, logg))
		r.Post("/scheduler/run", controllers.TriggerScheduler(schedulerService, logg))
	})

	return r
}
