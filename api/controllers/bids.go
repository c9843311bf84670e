package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/plateora/plateora-backend/api/responses"
	"github.com/plateora/plateora-backend/api/validators"
	"github.com/plateora/plateora-backend/internal/bids"
	"github.com/plateora/plateora-backend/pkg/db/models"
	pkgerrors "github.com/plateora/plateora-backend/pkg/errors"
	"github.com/plateora/plateora-backend/pkg/logger"
)

// BidService is the slice of the bid engine the API exposes.
type BidService interface {
	PlaceBid(ctx context.Context, listingID uuid.UUID, bidderEmail string, amountPence int64) (*models.Listing, error)
	BuyNow(ctx context.Context, listingID uuid.UUID, buyerEmail string) (*models.Listing, error)
	History(ctx context.Context, listingID uuid.UUID, params bids.HistoryParams) ([]models.Bid, string, error)
}

type placeBidRequest struct {
	BidderEmail string `json:"bidder_email" validate:"required,email"`
	AmountPence int64  `json:"amount_pence" validate:"required,gt=0"`
}

type buyNowRequest struct {
	BuyerEmail string `json:"buyer_email" validate:"required,email"`
}

func PlaceBid(svc BidService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := listingIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req placeBidRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listing, err := svc.PlaceBid(r.Context(), id, req.BidderEmail, req.AmountPence)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toListingResponse(listing))
	}
}

func BuyNow(svc BidService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := listingIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req buyNowRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listing, err := svc.BuyNow(r.Context(), id, req.BuyerEmail)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toListingResponse(listing))
	}
}

type bidResponse struct {
	ID          uuid.UUID `json:"id"`
	BidderEmail string    `json:"bidder_email"`
	AmountPence int64     `json:"amount_pence"`
	PlacedAt    time.Time `json:"placed_at"`
}

type bidHistoryResponse struct {
	Bids   []bidResponse `json:"bids"`
	Cursor string        `json:"cursor"`
}

// BidHistory returns a paginated page of a listing's bids, newest first.
func BidHistory(svc BidService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := listingIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := bids.HistoryParams{}
		if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
			value, err := strconv.Atoi(limitStr)
			if err != nil || value <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			params.Limit = value
		}
		if cursor := strings.TrimSpace(r.URL.Query().Get("cursor")); cursor != "" {
			params.Cursor = cursor
		}

		rows, cursor, err := svc.History(r.Context(), id, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := bidHistoryResponse{Bids: make([]bidResponse, 0, len(rows)), Cursor: cursor}
		for _, row := range rows {
			resp.Bids = append(resp.Bids, bidResponse{
				ID:          row.ID,
				BidderEmail: row.BidderEmail,
				AmountPence: row.AmountPence,
				PlacedAt:    row.PlacedAt,
			})
		}
		responses.WriteSuccess(w, resp)
	}
}
