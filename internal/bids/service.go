package bids

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plateora/plateora-backend/internal/listings"
	"github.com/plateora/plateora-backend/pkg/db/models"
	"github.com/plateora/plateora-backend/pkg/enums"
	pkgerrors "github.com/plateora/plateora-backend/pkg/errors"
	"github.com/plateora/plateora-backend/pkg/logger"
	"github.com/plateora/plateora-backend/pkg/pagination"
)

// maxAcceptAttempts bounds the optimistic retry loop when concurrent bids
// race on the same listing. Each lost race re-reads the listing and
// re-validates against the fresh minimum, so a retry only proceeds when the
// caller's amount still clears it.
const maxAcceptAttempts = 3

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Settler finalizes a listing that has left the live state. Implemented by
// the settlement service; buy-now invokes it directly instead of waiting for
// the next scheduler pass.
type Settler interface {
	Settle(ctx context.Context, listingID uuid.UUID) error
}

// SettlerFunc adapts a function to the Settler interface.
type SettlerFunc func(ctx context.Context, listingID uuid.UUID) error

func (f SettlerFunc) Settle(ctx context.Context, listingID uuid.UUID) error {
	return f(ctx, listingID)
}

// ServiceParams groups dependencies for the bid engine.
type ServiceParams struct {
	Logger   *logger.Logger
	DB       TxRunner
	Listings listings.Repository
	Repo     Repository
	Settler  Settler
	Now      func() time.Time
}

// Service is the bid engine: the only writer of bid rows and of a listing's
// current bid.
type Service struct {
	logg     *logger.Logger
	db       TxRunner
	listings listings.Repository
	repo     Repository
	settler  Settler
	now      func() time.Time
}

// NewService builds a bid engine.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("db is required")
	}
	if params.Listings == nil {
		return nil, errors.New("listings repo is required")
	}
	if params.Repo == nil {
		return nil, errors.New("bids repo is required")
	}
	if params.Settler == nil {
		return nil, errors.New("settler is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:     params.Logger,
		db:       params.DB,
		listings: params.Listings,
		repo:     params.Repo,
		settler:  params.Settler,
		now:      now,
	}, nil
}

// PlaceBid validates and records a single bid. Acceptance is a
// compare-and-swap against the listing's current bid inside a transaction
// that also appends the bid row, so two concurrent bids over the same base
// produce exactly one acceptance; the loser re-reads and fails the minimum
// check against the new base.
func (s *Service) PlaceBid(ctx context.Context, listingID uuid.UUID, bidderEmail string, amountPence int64) (*models.Listing, error) {
	ctx = s.logg.WithListingID(ctx, listingID.String())

	for attempt := 0; attempt < maxAcceptAttempts; attempt++ {
		listing, err := s.listings.FindByID(ctx, listingID)
		if err != nil {
			return nil, err
		}
		if listing.Status != enums.ListingStatusLive {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "auction is not live for this listing")
		}
		if amountPence <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid amount must be a positive number of pence")
		}
		minimum := MinimumNextBid(listing.BidBase())
		if amountPence < minimum {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid is below the required minimum").
				WithDetails(map[string]int64{"minimum_pence": minimum})
		}

		accepted := false
		err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
			ok, err := s.listings.WithTx(tx).CompareAndSetBid(ctx, listingID, listing.CurrentBidPence, amountPence)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			accepted = true
			return s.repo.WithTx(tx).Create(ctx, &models.Bid{
				ID:          uuid.New(),
				ListingID:   listingID,
				BidderEmail: bidderEmail,
				AmountPence: amountPence,
				PlacedAt:    s.now().UTC(),
			})
		})
		if err != nil {
			return nil, err
		}
		if accepted {
			s.logg.Info(s.logg.WithBidder(ctx, bidderEmail), "bid accepted")
			return s.listings.FindByID(ctx, listingID)
		}
		// Lost the race. Loop back for a fresh read of the listing.
	}

	return nil, pkgerrors.New(pkgerrors.CodeConflict, "listing is receiving heavy bidding, retry shortly")
}

// BuyNow closes a live auction immediately at the listing's buy-now price,
// records the buyer as the final bid, and settles straight away rather than
// waiting for the scheduler to observe the window end.
func (s *Service) BuyNow(ctx context.Context, listingID uuid.UUID, buyerEmail string) (*models.Listing, error) {
	ctx = s.logg.WithListingID(ctx, listingID.String())

	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != enums.ListingStatusLive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "auction is not live for this listing")
	}
	if listing.BuyNowPricePence == nil || *listing.BuyNowPricePence <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "listing has no buy-now price")
	}
	price := *listing.BuyNowPricePence
	if listing.CurrentBidPence != nil && *listing.CurrentBidPence >= price {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "bidding has already reached the buy-now price")
	}

	closedAt := s.now().UTC()
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.listings.WithTx(tx).CompleteAtBuyNow(ctx, listingID, price, closedAt)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "listing is no longer available at buy-now")
		}
		return s.repo.WithTx(tx).Create(ctx, &models.Bid{
			ID:          uuid.New(),
			ListingID:   listingID,
			BidderEmail: buyerEmail,
			AmountPence: price,
			PlacedAt:    closedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithBidder(ctx, buyerEmail), "listing bought at buy-now price")

	// The listing is completed either way; a settlement error is surfaced to
	// the operator through logs and retried by the next manual run.
	if err := s.settler.Settle(ctx, listingID); err != nil {
		s.logg.Error(ctx, "buy-now settlement failed", err)
	}
	return s.listings.FindByID(ctx, listingID)
}

// HistoryParams configures pagination over a listing's bid history.
type HistoryParams struct {
	Limit  int
	Cursor string
}

// History returns one page of a listing's bids, newest first.
func (s *Service) History(ctx context.Context, listingID uuid.UUID, params HistoryParams) ([]models.Bid, string, error) {
	if _, err := s.listings.FindByID(ctx, listingID); err != nil {
		return nil, "", err
	}

	query := ListPageParams{ListingID: listingID, Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListPage(ctx, query)
	if err != nil {
		return nil, "", err
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return rows, cursor, nil
}
