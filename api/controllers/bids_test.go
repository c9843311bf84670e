package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/plateora/plateora-backend/internal/bids"
	"github.com/plateora/plateora-backend/pkg/db/models"
	"github.com/plateora/plateora-backend/pkg/enums"
	pkgerrors "github.com/plateora/plateora-backend/pkg/errors"
	"github.com/plateora/plateora-backend/pkg/logger"
)

type fakeBidService struct {
	listing *models.Listing
	err     error

	placeCalls  int
	buyNowCalls int
	lastAmount  int64
	lastEmail   string

	history       []models.Bid
	nextCursor    string
	historyParams *bids.HistoryParams
}

func (f *fakeBidService) PlaceBid(ctx context.Context, listingID uuid.UUID, bidderEmail string, amountPence int64) (*models.Listing, error) {
	f.placeCalls++
	f.lastEmail = bidderEmail
	f.lastAmount = amountPence
	return f.listing, f.err
}

func (f *fakeBidService) BuyNow(ctx context.Context, listingID uuid.UUID, buyerEmail string) (*models.Listing, error) {
	f.buyNowCalls++
	f.lastEmail = buyerEmail
	return f.listing, f.err
}

func (f *fakeBidService) History(ctx context.Context, listingID uuid.UUID, params bids.HistoryParams) ([]models.Bid, string, error) {
	f.historyParams = &params
	return f.history, f.nextCursor, f.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "api-test", Output: io.Discard})
}

func bidRouter(svc *fakeBidService) http.Handler {
	r := chi.NewRouter()
	r.Get("/listings/{listingID}/bids", BidHistory(svc, testLogger()))
	r.Post("/listings/{listingID}/bids", PlaceBid(svc, testLogger()))
	r.Post("/listings/{listingID}/buy-now", BuyNow(svc, testLogger()))
	return r
}

func TestPlaceBidHandlerAcceptsValidRequest(t *testing.T) {
	amount := int64(110_000)
	svc := &fakeBidService{listing: &models.Listing{
		ID:              uuid.New(),
		Registration:    "PL4 TES",
		Status:          enums.ListingStatusLive,
		CurrentBidPence: &amount,
		BidCount:        1,
	}}
	body := `{"bidder_email":"bidder@example.com","amount_pence":110000}`
	req := httptest.NewRequest(http.MethodPost, "/listings/"+svc.listing.ID.String()+"/bids", strings.NewReader(body))
	w := httptest.NewRecorder()

	bidRouter(svc).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if svc.placeCalls != 1 || svc.lastAmount != 110_000 || svc.lastEmail != "bidder@example.com" {
		t.Fatalf("service not invoked as expected: %+v", svc)
	}
}

func TestPlaceBidHandlerRejectsBadBody(t *testing.T) {
	svc := &fakeBidService{}
	cases := []string{
		`{"bidder_email":"not-an-email","amount_pence":110000}`,
		`{"bidder_email":"bidder@example.com","amount_pence":-5}`,
		`{"bidder_email":"bidder@example.com"}`,
		`{"unknown":"field"}`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/listings/"+uuid.NewString()+"/bids", strings.NewReader(body))
		w := httptest.NewRecorder()
		bidRouter(svc).ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, w.Code)
		}
	}
	if svc.placeCalls != 0 {
		t.Fatalf("invalid bodies must not reach the service, got %d calls", svc.placeCalls)
	}
}

func TestPlaceBidHandlerRejectsBadListingID(t *testing.T) {
	svc := &fakeBidService{}
	body := `{"bidder_email":"bidder@example.com","amount_pence":110000}`
	req := httptest.NewRequest(http.MethodPost, "/listings/not-a-uuid/bids", strings.NewReader(body))
	w := httptest.NewRecorder()

	bidRouter(svc).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPlaceBidHandlerSurfacesBidTooLow(t *testing.T) {
	svc := &fakeBidService{err: pkgerrors.New(pkgerrors.CodeValidation, "bid is below the required minimum").
		WithDetails(map[string]int64{"minimum_pence": 120_000})}
	body := `{"bidder_email":"bidder@example.com","amount_pence":110000}`
	req := httptest.NewRequest(http.MethodPost, "/listings/"+uuid.NewString()+"/bids", strings.NewReader(body))
	w := httptest.NewRecorder()

	bidRouter(svc).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "minimum_pence") {
		t.Fatalf("expected computed minimum in payload, got %s", w.Body.String())
	}
}

func TestBuyNowHandler(t *testing.T) {
	price := int64(900_000)
	svc := &fakeBidService{listing: &models.Listing{
		ID:              uuid.New(),
		Status:          enums.ListingStatusCompleted,
		CurrentBidPence: &price,
	}}
	body := `{"buyer_email":"buyer@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/listings/"+svc.listing.ID.String()+"/buy-now", strings.NewReader(body))
	w := httptest.NewRecorder()

	bidRouter(svc).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.buyNowCalls != 1 || svc.lastEmail != "buyer@example.com" {
		t.Fatalf("service not invoked as expected: %+v", svc)
	}
}

func TestBidHistoryHandlerReturnsPage(t *testing.T) {
	svc := &fakeBidService{
		history: []models.Bid{
			{ID: uuid.New(), BidderEmail: "high@example.com", AmountPence: 120_000},
			{ID: uuid.New(), BidderEmail: "low@example.com", AmountPence: 110_000},
		},
		nextCursor: "next-page",
	}
	req := httptest.NewRequest(http.MethodGet, "/listings/"+uuid.NewString()+"/bids?limit=2", nil)
	rec := httptest.NewRecorder()
	bidRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.historyParams == nil || svc.historyParams.Limit != 2 {
		t.Fatalf("limit not forwarded: %+v", svc.historyParams)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"cursor":"next-page"`) || !strings.Contains(body, `"amount_pence":120000`) {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestBidHistoryHandlerRejectsBadLimit(t *testing.T) {
	svc := &fakeBidService{}
	req := httptest.NewRequest(http.MethodGet, "/listings/"+uuid.NewString()+"/bids?limit=zero", nil)
	rec := httptest.NewRecorder()
	bidRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.historyParams != nil {
		t.Fatal("service should not be called with an invalid limit")
	}
}
