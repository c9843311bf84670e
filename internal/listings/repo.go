package listings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plateora/plateora-backend/pkg/db/models"
	"github.com/plateora/plateora-backend/pkg/enums"
	pkgerrors "github.com/plateora/plateora-backend/pkg/errors"
)

// Repository is the persistence surface for listings. Every transition is a
// guarded UPDATE keyed on the current status, so a retried scheduler pass
// that lost the race observes zero rows affected and moves on.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	ListByStatus(ctx context.Context, status enums.ListingStatus) ([]models.Listing, error)
	ListQueuedDue(ctx context.Context, now, windowStart time.Time) ([]models.Listing, error)
	ListLiveDue(ctx context.Context, now, windowEnd time.Time) ([]models.Listing, error)

	Queue(ctx context.Context, id uuid.UUID, start, end time.Time) (bool, error)
	Reject(ctx context.Context, id uuid.UUID) (bool, error)
	PromoteToLive(ctx context.Context, id uuid.UUID, start, end time.Time) (bool, error)
	CompleteLive(ctx context.Context, id uuid.UUID, closedAt time.Time) (bool, error)
	MarkSold(ctx context.Context, id uuid.UUID) (bool, error)
	MarkNotSold(ctx context.Context, id uuid.UUID) (bool, error)
	Withdraw(ctx context.Context, id uuid.UUID) (bool, error)

	CompareAndSetBid(ctx context.Context, id uuid.UUID, expectedBase *int64, amount int64) (bool, error)
	CompleteAtBuyNow(ctx context.Context, id uuid.UUID, price int64, closedAt time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a listings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "listing not found")
		}
		return nil, err
	}
	return &listing, nil
}

func (r *repository) ListByStatus(ctx context.Context, status enums.ListingStatus) ([]models.Listing, error) {
	var listings []models.Listing
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *repository) ListQueuedDue(ctx context.Context, now, windowStart time.Time) ([]models.Listing, error) {
	var listings []models.Listing
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.ListingStatusQueued).
		Where("(auction_start IS NOT NULL AND auction_start <= ?) OR (auction_start IS NULL AND ? >= ?)",
			now, now, windowStart).
		Order("created_at ASC").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *repository) ListLiveDue(ctx context.Context, now, windowEnd time.Time) ([]models.Listing, error) {
	var listings []models.Listing
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.ListingStatusLive).
		Where("(auction_end IS NOT NULL AND auction_end <= ?) OR (auction_end IS NULL AND ? >= ?)",
			now, now, windowEnd).
		Order("created_at ASC").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *repository) Queue(ctx context.Context, id uuid.UUID, start, end time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status = ?", id, enums.ListingStatusPending).
		Updates(map[string]any{
			"status":        enums.ListingStatusQueued,
			"auction_start": start,
			"auction_end":   end,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Reject(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status = ?", id, enums.ListingStatusPending).
		Update("status", enums.ListingStatusRejected)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) PromoteToLive(ctx context.Context, id uuid.UUID, start, end time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status = ?", id, enums.ListingStatusQueued).
		Updates(map[string]any{
			"status":        enums.ListingStatusLive,
			"auction_start": start,
			"auction_end":   end,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CompleteLive(ctx context.Context, id uuid.UUID, closedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status = ?", id, enums.ListingStatusLive).
		Updates(map[string]any{
			"status":      enums.ListingStatusCompleted,
			"auction_end": closedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) MarkSold(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status = ?", id, enums.ListingStatusCompleted).
		Update("status", enums.ListingStatusSold)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) MarkNotSold(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status = ?", id, enums.ListingStatusCompleted).
		Update("status", enums.ListingStatusNotSold)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Withdraw(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status IN ?", id, []enums.ListingStatus{
			enums.ListingStatusQueued,
			enums.ListingStatusLive,
		}).
		Update("status", enums.ListingStatusWithdrawn)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CompareAndSetBid accepts a bid only when the listing is still live and its
// current bid matches the base the caller validated against. A nil base
// matches only a listing that has never taken a bid.
func (r *repository) CompareAndSetBid(ctx context.Context, id uuid.UUID, expectedBase *int64, amount int64) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status = ?", id, enums.ListingStatusLive)
	if expectedBase == nil {
		query = query.Where("current_bid_pence IS NULL")
	} else {
		query = query.Where("current_bid_pence = ?", *expectedBase)
	}
	res := query.
		Updates(map[string]any{
			"current_bid_pence": amount,
			"bid_count":         gorm.Expr("bid_count + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CompleteAtBuyNow(ctx context.Context, id uuid.UUID, price int64, closedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status = ? AND buy_now_price_pence = ?", id, enums.ListingStatusLive, price).
		Updates(map[string]any{
			"status":            enums.ListingStatusCompleted,
			"current_bid_pence": price,
			"bid_count":         gorm.Expr("bid_count + 1"),
			"auction_end":       closedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
