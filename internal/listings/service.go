package listings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/plateora/plateora-backend/internal/auction"
	"github.com/plateora/plateora-backend/pkg/db/models"
	"github.com/plateora/plateora-backend/pkg/enums"
	pkgerrors "github.com/plateora/plateora-backend/pkg/errors"
	"github.com/plateora/plateora-backend/pkg/logger"
)

// ServiceParams groups dependencies for the listings service.
type ServiceParams struct {
	Logger *logger.Logger
	Repo   Repository
	Now    func() time.Time
}

// Service owns the listing admin operations that sit outside the scheduler:
// approval, rejection, withdrawal, and relisting.
type Service struct {
	logg *logger.Logger
	repo Repository
	now  func() time.Time
}

// NewService builds a listings service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{logg: params.Logger, repo: params.Repo, now: now}, nil
}

// Approve moves a pending listing into the queue for the next auction
// window. The stored boundaries may later be overwritten if the scheduler
// promotes against a newer window.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	w := auction.ComputeWindow(s.now().UTC())
	ok, err := s.repo.Queue(ctx, id, w.NextStart, w.NextEnd)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "listing is not awaiting approval")
	}
	s.logg.Info(s.logg.WithListingID(ctx, id.String()), "listing approved")
	return s.repo.FindByID(ctx, id)
}

// Reject terminates a pending listing.
func (s *Service) Reject(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	ok, err := s.repo.Reject(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "listing is not awaiting approval")
	}
	return s.repo.FindByID(ctx, id)
}

// Withdraw pulls a queued or live listing out of the auction. A withdrawn
// listing never re-enters a window.
func (s *Service) Withdraw(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	ok, err := s.repo.Withdraw(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "listing cannot be withdrawn in its current state")
	}
	s.logg.Info(s.logg.WithListingID(ctx, id.String()), "listing withdrawn")
	return s.repo.FindByID(ctx, id)
}

// Relist opens a fresh lifecycle for a completed-but-unsold mark. The
// original row and its bid history are left untouched; the new row starts
// queued against the next window with no bids.
func (s *Service) Relist(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	source, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if source.Status != enums.ListingStatusCompleted && source.Status != enums.ListingStatusNotSold {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only completed unsold listings can be relisted")
	}

	w := auction.ComputeWindow(s.now().UTC())
	relisted := &models.Listing{
		ID:                 uuid.New(),
		Registration:       source.Registration,
		Status:             enums.ListingStatusQueued,
		ReservePricePence:  source.ReservePricePence,
		StartingPricePence: source.StartingPricePence,
		BuyNowPricePence:   source.BuyNowPricePence,
		AuctionStart:       &w.NextStart,
		AuctionEnd:         &w.NextEnd,
		SellerID:           source.SellerID,
		RelistedFrom:       &source.ID,
	}
	if err := s.repo.Create(ctx, relisted); err != nil {
		return nil, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"listing_id":  relisted.ID.String(),
		"relist_from": source.ID.String(),
	})
	s.logg.Info(ctx, "listing relisted")
	return relisted, nil
}
