package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/plateora/plateora-backend/api/responses"
	"github.com/plateora/plateora-backend/internal/bids"
	"github.com/plateora/plateora-backend/pkg/db/models"
	pkgerrors "github.com/plateora/plateora-backend/pkg/errors"
	"github.com/plateora/plateora-backend/pkg/logger"
)

// ListingsService is the slice of the listings service the API exposes.
type ListingsService interface {
	Approve(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	Reject(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	Withdraw(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	Relist(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// ListingReader fetches a single listing for display.
type ListingReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type listingResponse struct {
	ID                  string     `json:"id"`
	Registration        string     `json:"registration"`
	Status              string     `json:"status"`
	StartingPricePence  *int64     `json:"starting_price_pence,omitempty"`
	BuyNowPricePence    *int64     `json:"buy_now_price_pence,omitempty"`
	CurrentBidPence     *int64     `json:"current_bid_pence,omitempty"`
	MinimumNextBidPence int64      `json:"minimum_next_bid_pence"`
	BidCount            int        `json:"bid_count"`
	AuctionStart        *time.Time `json:"auction_start,omitempty"`
	AuctionEnd          *time.Time `json:"auction_end,omitempty"`
	RelistedFrom        *uuid.UUID `json:"relisted_from,omitempty"`
}

func toListingResponse(listing *models.Listing) listingResponse {
	return listingResponse{
		ID:                  listing.ID.String(),
		Registration:        listing.Registration,
		Status:              listing.Status.String(),
		StartingPricePence:  listing.StartingPricePence,
		BuyNowPricePence:    listing.BuyNowPricePence,
		CurrentBidPence:     listing.CurrentBidPence,
		MinimumNextBidPence: bids.MinimumNextBid(listing.BidBase()),
		BidCount:            listing.BidCount,
		AuctionStart:        listing.AuctionStart,
		AuctionEnd:          listing.AuctionEnd,
		RelistedFrom:        listing.RelistedFrom,
	}
}

func listingIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "listingID"))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id must be a valid uuid")
	}
	return id, nil
}

func GetListing(reader ListingReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := listingIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listing, err := reader.FindByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toListingResponse(listing))
	}
}

func ApproveListing(svc ListingsService, logg *logger.Logger) http.HandlerFunc {
	return listingTransition(svc.Approve, logg)
}

func RejectListing(svc ListingsService, logg *logger.Logger) http.HandlerFunc {
	return listingTransition(svc.Reject, logg)
}

func WithdrawListing(svc ListingsService, logg *logger.Logger) http.HandlerFunc {
	return listingTransition(svc.Withdraw, logg)
}

func RelistListing(svc ListingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := listingIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listing, err := svc.Relist(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toListingResponse(listing))
	}
}

func listingTransition(op func(ctx context.Context, id uuid.UUID) (*models.Listing, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := listingIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listing, err := op(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toListingResponse(listing))
	}
}
