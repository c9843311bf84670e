package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/plateora/plateora-backend/internal/auction"
	"github.com/plateora/plateora-backend/internal/listings"
	"github.com/plateora/plateora-backend/internal/settlement"
	"github.com/plateora/plateora-backend/pkg/db/models"
	"github.com/plateora/plateora-backend/pkg/enums"
	"github.com/plateora/plateora-backend/pkg/logger"
	"github.com/plateora/plateora-backend/pkg/metrics"
)

// Settler finalizes a listing that has just completed its auction.
type Settler interface {
	Settle(ctx context.Context, listingID uuid.UUID) (*settlement.Outcome, error)
}

// RunOptions narrow a pass. A nil ListingID means every eligible listing.
type RunOptions struct {
	ListingID *uuid.UUID
}

// PassSummary reports what one scheduler pass did. Settlement entries carry
// the per-listing outcome so the trigger caller can see skips and failures
// without digging through logs.
type PassSummary struct {
	Processed   int                  `json:"processed"`
	Promoted    int                  `json:"promoted"`
	Completed   int                  `json:"completed"`
	Settlements []settlement.Outcome `json:"settlements"`
}

// SchedulerParams groups dependencies for the lifecycle scheduler.
type SchedulerParams struct {
	Logger   *logger.Logger
	Listings listings.Repository
	Settler  Settler
	Metrics  *metrics.SettlementMetrics
	Now      func() time.Time
}

// Scheduler drives listings through the auction state machine. It holds no
// state between passes; every transition is a status-guarded write, so
// overlapping or retried passes cannot double-promote or double-settle.
type Scheduler struct {
	logg     *logger.Logger
	listings listings.Repository
	settler  Settler
	metrics  *metrics.SettlementMetrics
	now      func() time.Time
}

// NewScheduler builds a lifecycle scheduler.
func NewScheduler(params SchedulerParams) (*Scheduler, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Listings == nil {
		return nil, errors.New("listings repo is required")
	}
	if params.Settler == nil {
		return nil, errors.New("settler is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		logg:     params.Logger,
		listings: params.Listings,
		settler:  params.Settler,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

// RunPass promotes every queued listing whose start has passed and completes
// every live listing whose end has passed, settling each completion. A
// failure on one listing is collected and the pass moves on; the returned
// error is the aggregate of per-listing failures.
func (s *Scheduler) RunPass(ctx context.Context, opts RunOptions) (*PassSummary, error) {
	now := s.now().UTC()
	window := auction.ComputeWindow(now)
	summary := &PassSummary{Settlements: []settlement.Outcome{}}

	if opts.ListingID != nil {
		err := s.runSingle(ctx, *opts.ListingID, now, window, summary)
		return summary, err
	}

	var errs error

	queued, err := s.listings.ListQueuedDue(ctx, now, window.CurrentStart)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("list queued listings: %w", err))
	}
	for _, listing := range queued {
		summary.Processed++
		if err := s.promote(ctx, listing, window, summary); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("promote %s: %w", listing.ID, err))
		}
	}

	live, err := s.listings.ListLiveDue(ctx, now, window.CurrentEnd)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("list live listings: %w", err))
	}
	for _, listing := range live {
		summary.Processed++
		if err := s.complete(ctx, listing, now, window, summary); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("complete %s: %w", listing.ID, err))
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"processed": summary.Processed,
		"promoted":  summary.Promoted,
		"completed": summary.Completed,
	})
	s.logg.Info(logCtx, "lifecycle pass complete")
	return summary, errs
}

// runSingle handles the trigger's single-listing form. A completed listing
// is settled directly, which is the manual retry path after a failed charge.
func (s *Scheduler) runSingle(ctx context.Context, id uuid.UUID, now time.Time, window auction.Window, summary *PassSummary) error {
	listing, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return err
	}
	summary.Processed++

	switch listing.Status {
	case enums.ListingStatusQueued:
		if now.Before(effectiveStart(listing, window)) {
			return nil
		}
		return s.promote(ctx, *listing, window, summary)
	case enums.ListingStatusLive:
		if now.Before(effectiveEnd(listing, window)) {
			return nil
		}
		return s.complete(ctx, *listing, now, window, summary)
	case enums.ListingStatusCompleted:
		return s.settle(ctx, listing.ID, summary)
	default:
		return nil
	}
}

func (s *Scheduler) promote(ctx context.Context, listing models.Listing, window auction.Window, summary *PassSummary) error {
	start := effectiveStart(&listing, window)
	end := effectiveEnd(&listing, window)
	ok, err := s.listings.PromoteToLive(ctx, listing.ID, start, end)
	if err != nil {
		return err
	}
	if !ok {
		// Another pass got here first.
		return nil
	}
	summary.Promoted++
	if s.metrics != nil {
		s.metrics.IncTransition("promoted")
	}
	s.logg.Info(s.logg.WithListingID(ctx, listing.ID.String()), "listing promoted to live")
	return nil
}

func (s *Scheduler) complete(ctx context.Context, listing models.Listing, now time.Time, window auction.Window, summary *PassSummary) error {
	closedAt := effectiveEnd(&listing, window)
	if closedAt.After(now) {
		closedAt = now
	}
	ok, err := s.listings.CompleteLive(ctx, listing.ID, closedAt)
	if err != nil {
		return err
	}
	if !ok {
		// Another pass completed it and owns the settlement call.
		return nil
	}
	summary.Completed++
	if s.metrics != nil {
		s.metrics.IncTransition("completed")
	}
	s.logg.Info(s.logg.WithListingID(ctx, listing.ID.String()), "listing auction completed")
	return s.settle(ctx, listing.ID, summary)
}

func (s *Scheduler) settle(ctx context.Context, id uuid.UUID, summary *PassSummary) error {
	outcome, err := s.settler.Settle(ctx, id)
	if err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	summary.Settlements = append(summary.Settlements, *outcome)
	return nil
}

func effectiveStart(listing *models.Listing, window auction.Window) time.Time {
	if listing.AuctionStart != nil {
		return *listing.AuctionStart
	}
	return window.CurrentStart
}

func effectiveEnd(listing *models.Listing, window auction.Window) time.Time {
	if listing.AuctionEnd != nil {
		return *listing.AuctionEnd
	}
	return window.CurrentEnd
}
