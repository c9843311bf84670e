package bids

import (
	"context"
	"io"
	"testing"
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

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeListings struct {
	listings.Repository

	findByID         func(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	compareAndSet    func(ctx context.Context, id uuid.UUID, expectedBase *int64, amount int64) (bool, error)
	completeAtBuyNow func(ctx context.Context, id uuid.UUID, price int64, closedAt time.Time) (bool, error)
}

func (f *fakeListings) WithTx(tx *gorm.DB) listings.Repository { return f }

func (f *fakeListings) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return f.findByID(ctx, id)
}

func (f *fakeListings) CompareAndSetBid(ctx context.Context, id uuid.UUID, expectedBase *int64, amount int64) (bool, error) {
	return f.compareAndSet(ctx, id, expectedBase, amount)
}

func (f *fakeListings) CompleteAtBuyNow(ctx context.Context, id uuid.UUID, price int64, closedAt time.Time) (bool, error) {
	return f.completeAtBuyNow(ctx, id, price, closedAt)
}

type fakeBidRepo struct {
	created []models.Bid
}

func (f *fakeBidRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeBidRepo) Create(ctx context.Context, bid *models.Bid) error {
	f.created = append(f.created, *bid)
	return nil
}

func (f *fakeBidRepo) ListForListing(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error) {
	return f.created, nil
}

func (f *fakeBidRepo) ListPage(ctx context.Context, params ListPageParams) ([]models.Bid, *pagination.Cursor, error) {
	rows := f.created
	if limit := pagination.NormalizeLimit(params.Limit); len(rows) > limit {
		next := rows[limit]
		return rows[:limit], &pagination.Cursor{CreatedAt: next.PlacedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

type fakeSettler struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeSettler) Settle(ctx context.Context, listingID uuid.UUID) error {
	f.calls = append(f.calls, listingID)
	return f.err
}

func pence(v int64) *int64 { return &v }

func newTestService(t *testing.T, lr *fakeListings, br *fakeBidRepo, settler *fakeSettler) *Service {
	t.Helper()
	if br == nil {
		br = &fakeBidRepo{}
	}
	if settler == nil {
		settler = &fakeSettler{}
	}
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "bids-test", Output: io.Discard}),
		DB:       fakeTxRunner{},
		Listings: lr,
		Repo:     br,
		Settler:  settler,
		Now:      func() time.Time { return time.Date(2026, time.August, 26, 14, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func liveListing(id uuid.UUID) *models.Listing {
	return &models.Listing{
		ID:                 id,
		Registration:       "PL4 TES",
		Status:             enums.ListingStatusLive,
		StartingPricePence: pence(100_000),
	}
}

func TestPlaceBidRejectsWhenNotLive(t *testing.T) {
	id := uuid.New()
	lr := &fakeListings{
		findByID: func(ctx context.Context, _ uuid.UUID) (*models.Listing, error) {
			l := liveListing(id)
			l.Status = enums.ListingStatusQueued
			return l, nil
		},
	}
	svc := newTestService(t, lr, nil, nil)

	_, err := svc.PlaceBid(context.Background(), id, "bidder@example.com", 150_000)
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestPlaceBidRejectsNonPositiveAmount(t *testing.T) {
	id := uuid.New()
	lr := &fakeListings{
		findByID: func(ctx context.Context, _ uuid.UUID) (*models.Listing, error) {
			return liveListing(id), nil
		},
	}
	svc := newTestService(t, lr, nil, nil)

	for _, amount := range []int64{0, -500} {
		_, err := svc.PlaceBid(context.Background(), id, "bidder@example.com", amount)
		if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
			t.Fatalf("amount %d: expected validation error, got %v", amount, err)
		}
	}
}

func TestPlaceBidRejectsBelowMinimumWithComputedMinimum(t *testing.T) {
	id := uuid.New()
	lr := &fakeListings{
		findByID: func(ctx context.Context, _ uuid.UUID) (*models.Listing, error) {
			l := liveListing(id)
			l.CurrentBidPence = pence(750_000)
			return l, nil
		},
	}
	svc := newTestService(t, lr, nil, nil)

	// Base £7,500 requires a £250 increment.
	_, err := svc.PlaceBid(context.Background(), id, "bidder@example.com", 760_000)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := appErr.Details().(map[string]int64)
	if !ok || details["minimum_pence"] != 775_000 {
		t.Fatalf("expected minimum_pence detail 775000, got %#v", appErr.Details())
	}
}

func TestPlaceBidAcceptsAndAppendsBidRow(t *testing.T) {
	id := uuid.New()
	state := liveListing(id)
	lr := &fakeListings{
		findByID: func(ctx context.Context, _ uuid.UUID) (*models.Listing, error) {
			cp := *state
			return &cp, nil
		},
		compareAndSet: func(ctx context.Context, _ uuid.UUID, expectedBase *int64, amount int64) (bool, error) {
			if expectedBase != nil {
				t.Fatalf("first bid should swap against a null current bid, got %d", *expectedBase)
			}
			state.CurrentBidPence = pence(amount)
			state.BidCount++
			return true, nil
		},
	}
	br := &fakeBidRepo{}
	svc := newTestService(t, lr, br, nil)

	updated, err := svc.PlaceBid(context.Background(), id, "bidder@example.com", 110_000)
	if err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	if updated.CurrentBidPence == nil || *updated.CurrentBidPence != 110_000 {
		t.Fatalf("expected current bid 110000, got %v", updated.CurrentBidPence)
	}
	if len(br.created) != 1 {
		t.Fatalf("expected one bid row, got %d", len(br.created))
	}
	if br.created[0].BidderEmail != "bidder@example.com" || br.created[0].AmountPence != 110_000 {
		t.Fatalf("unexpected bid row %+v", br.created[0])
	}
}

// Two bids race over the same base: the swap for the second caller misses,
// it re-reads the listing with the winner's bid applied, and the fresh
// minimum now exceeds its amount.
func TestPlaceBidConcurrentRaceOneAcceptance(t *testing.T) {
	id := uuid.New()
	reads := 0
	lr := &fakeListings{
		findByID: func(ctx context.Context, _ uuid.UUID) (*models.Listing, error) {
			reads++
			l := liveListing(id)
			if reads > 1 {
				l.CurrentBidPence = pence(110_000)
				l.BidCount = 1
			}
			return l, nil
		},
		compareAndSet: func(ctx context.Context, _ uuid.UUID, expectedBase *int64, amount int64) (bool, error) {
			// The other bidder won the swap first.
			return false, nil
		},
	}
	br := &fakeBidRepo{}
	svc := newTestService(t, lr, br, nil)

	_, err := svc.PlaceBid(context.Background(), id, "late@example.com", 110_000)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation rejection against the new base, got %v", err)
	}
	details := appErr.Details().(map[string]int64)
	if details["minimum_pence"] != 120_000 {
		t.Fatalf("expected fresh minimum 120000, got %d", details["minimum_pence"])
	}
	if len(br.created) != 0 {
		t.Fatalf("losing bid must not persist a row, got %d", len(br.created))
	}
}

func TestPlaceBidGivesUpAfterRepeatedRaces(t *testing.T) {
	id := uuid.New()
	lr := &fakeListings{
		findByID: func(ctx context.Context, _ uuid.UUID) (*models.Listing, error) {
			return liveListing(id), nil
		},
		compareAndSet: func(ctx context.Context, _ uuid.UUID, _ *int64, _ int64) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(t, lr, nil, nil)

	_, err := svc.PlaceBid(context.Background(), id, "bidder@example.com", 110_000)
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict after exhausted retries, got %v", err)
	}
}

func TestBuyNowCompletesAndSettlesOnce(t *testing.T) {
	id := uuid.New()
	state := liveListing(id)
	state.BuyNowPricePence = pence(900_000)
	lr := &fakeListings{
		findByID: func(ctx context.Context, _ uuid.UUID) (*models.Listing, error) {
			cp := *state
			return &cp, nil
		},
		completeAtBuyNow: func(ctx context.Context, _ uuid.UUID, price int64, closedAt time.Time) (bool, error) {
			state.Status = enums.ListingStatusCompleted
			state.CurrentBidPence = pence(price)
			state.AuctionEnd = &closedAt
			return true, nil
		},
	}
	br := &fakeBidRepo{}
	settler := &fakeSettler{}
	svc := newTestService(t, lr, br, settler)

	updated, err := svc.BuyNow(context.Background(), id, "buyer@example.com")
	if err != nil {
		t.Fatalf("BuyNow: %v", err)
	}
	if updated.Status != enums.ListingStatusCompleted {
		t.Fatalf("expected completed listing, got %s", updated.Status)
	}
	if len(settler.calls) != 1 || settler.calls[0] != id {
		t.Fatalf("expected exactly one settlement call for %s, got %v", id, settler.calls)
	}
	if len(br.created) != 1 || br.created[0].AmountPence != 900_000 {
		t.Fatalf("expected buy-now recorded as the final bid, got %+v", br.created)
	}
}

func TestBuyNowUnavailableWhenBiddingPassedPrice(t *testing.T) {
	id := uuid.New()
	lr := &fakeListings{
		findByID: func(ctx context.Context, _ uuid.UUID) (*models.Listing, error) {
			l := liveListing(id)
			l.BuyNowPricePence = pence(200_000)
			l.CurrentBidPence = pence(210_000)
			return l, nil
		},
	}
	svc := newTestService(t, lr, nil, nil)

	_, err := svc.BuyNow(context.Background(), id, "buyer@example.com")
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestHistoryPaginates(t *testing.T) {
	listingID := uuid.New()
	lr := &fakeListings{findByID: func(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
		return &models.Listing{ID: listingID, Status: enums.ListingStatusLive}, nil
	}}
	br := &fakeBidRepo{}
	base := time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		br.created = append(br.created, models.Bid{
			ID:          uuid.New(),
			ListingID:   listingID,
			AmountPence: int64(110_000 + i*10_000),
			PlacedAt:    base.Add(time.Duration(i) * time.Minute),
		})
	}
	svc := newTestService(t, lr, br, &fakeSettler{})

	rows, cursor, err := svc.History(context.Background(), listingID, HistoryParams{Limit: 2})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if cursor == "" {
		t.Fatal("expected a next-page cursor")
	}
	parsed, err := pagination.ParseCursor(cursor)
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if parsed.ID != br.created[2].ID {
		t.Fatalf("cursor points at %s, want %s", parsed.ID, br.created[2].ID)
	}
}

func TestHistoryRejectsMalformedCursor(t *testing.T) {
	listingID := uuid.New()
	lr := &fakeListings{findByID: func(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
		return &models.Listing{ID: listingID, Status: enums.ListingStatusLive}, nil
	}}
	svc := newTestService(t, lr, nil, &fakeSettler{})

	_, _, err := svc.History(context.Background(), listingID, HistoryParams{Cursor: "not-base64"})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
