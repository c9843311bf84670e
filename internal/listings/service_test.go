package listings

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/plateora/plateora-backend/pkg/db/models"
	"github.com/plateora/plateora-backend/pkg/enums"
	pkgerrors "github.com/plateora/plateora-backend/pkg/errors"
	"github.com/plateora/plateora-backend/pkg/logger"
)

type fakeRepo struct {
	Repository

	findByID func(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	queue    func(ctx context.Context, id uuid.UUID, start, end time.Time) (bool, error)
	withdraw func(ctx context.Context, id uuid.UUID) (bool, error)
	created  []*models.Listing
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return f.findByID(ctx, id)
}

func (f *fakeRepo) Queue(ctx context.Context, id uuid.UUID, start, end time.Time) (bool, error) {
	return f.queue(ctx, id, start, end)
}

func (f *fakeRepo) Withdraw(ctx context.Context, id uuid.UUID) (bool, error) {
	return f.withdraw(ctx, id)
}

func (f *fakeRepo) Create(ctx context.Context, listing *models.Listing) error {
	f.created = append(f.created, listing)
	return nil
}

func newTestService(t *testing.T, repo Repository, now time.Time) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger: logger.New(logger.Options{ServiceName: "listings-test", Output: io.Discard}),
		Repo:   repo,
		Now:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestApproveQueuesForNextWindow(t *testing.T) {
	id := uuid.New()
	// Wednesday inside the window opening Monday 24 Aug 09:00 UTC.
	now := time.Date(2026, time.August, 26, 14, 0, 0, 0, time.UTC)
	wantStart := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)

	var gotStart, gotEnd time.Time
	repo := &fakeRepo{
		queue: func(ctx context.Context, qid uuid.UUID, start, end time.Time) (bool, error) {
			gotStart, gotEnd = start, end
			return true, nil
		},
		findByID: func(ctx context.Context, qid uuid.UUID) (*models.Listing, error) {
			return &models.Listing{ID: qid, Status: enums.ListingStatusQueued}, nil
		},
	}
	svc := newTestService(t, repo, now)

	listing, err := svc.Approve(context.Background(), id)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if listing.Status != enums.ListingStatusQueued {
		t.Fatalf("expected queued, got %s", listing.Status)
	}
	if !gotStart.Equal(wantStart) {
		t.Fatalf("queued for %s, want %s", gotStart, wantStart)
	}
	if want := wantStart.Add(6*24*time.Hour + 12*time.Hour); !gotEnd.Equal(want) {
		t.Fatalf("window end %s, want %s", gotEnd, want)
	}
}

func TestApproveNonPendingConflicts(t *testing.T) {
	repo := &fakeRepo{
		queue: func(ctx context.Context, id uuid.UUID, start, end time.Time) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(t, repo, time.Now().UTC())

	_, err := svc.Approve(context.Background(), uuid.New())
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRelistClonesUnsoldListing(t *testing.T) {
	reserve := int64(500_000)
	buyNow := int64(950_000)
	bid := int64(400_000)
	sourceID := uuid.New()
	sellerID := uuid.New()
	now := time.Date(2026, time.August, 26, 14, 0, 0, 0, time.UTC)

	repo := &fakeRepo{
		findByID: func(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
			return &models.Listing{
				ID:                sourceID,
				Registration:      "P14 TEU",
				Status:            enums.ListingStatusNotSold,
				ReservePricePence: &reserve,
				BuyNowPricePence:  &buyNow,
				CurrentBidPence:   &bid,
				BidCount:          4,
				SellerID:          sellerID,
			}, nil
		},
	}
	svc := newTestService(t, repo, now)

	relisted, err := svc.Relist(context.Background(), sourceID)
	if err != nil {
		t.Fatalf("Relist: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one created row, got %d", len(repo.created))
	}
	if relisted.ID == sourceID {
		t.Fatal("relist must mint a fresh listing id")
	}
	if relisted.Status != enums.ListingStatusQueued {
		t.Fatalf("expected queued, got %s", relisted.Status)
	}
	if relisted.CurrentBidPence != nil || relisted.BidCount != 0 {
		t.Fatal("bid state must not carry over to the relisted row")
	}
	if relisted.RelistedFrom == nil || *relisted.RelistedFrom != sourceID {
		t.Fatal("relisted row must reference its source listing")
	}
	if relisted.ReservePricePence == nil || *relisted.ReservePricePence != reserve {
		t.Fatal("reserve must carry over")
	}
	wantStart := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)
	if relisted.AuctionStart == nil || !relisted.AuctionStart.Equal(wantStart) {
		t.Fatalf("relisted start %v, want %s", relisted.AuctionStart, wantStart)
	}
}

func TestRelistRejectsSoldListing(t *testing.T) {
	repo := &fakeRepo{
		findByID: func(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
			return &models.Listing{ID: id, Status: enums.ListingStatusSold}, nil
		},
	}
	svc := newTestService(t, repo, time.Now().UTC())

	_, err := svc.Relist(context.Background(), uuid.New())
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatal("no row should be created for a sold listing")
	}
}
