package bids

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plateora/plateora-backend/pkg/db/models"
	"github.com/plateora/plateora-backend/pkg/pagination"
)

// Repository persists accepted bids. Rows are append-only; nothing in the
// system updates or deletes a bid once written.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, bid *models.Bid) error
	ListForListing(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error)
	ListPage(ctx context.Context, params ListPageParams) ([]models.Bid, *pagination.Cursor, error)
}

// ListPageParams holds cursor pagination inputs for a listing's bid history.
type ListPageParams struct {
	ListingID uuid.UUID
	Limit     int
	Cursor    *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a bids repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, bid *models.Bid) error {
	return r.db.WithContext(ctx).Create(bid).Error
}

// ListForListing returns the full bid history for a listing, highest amount
// first with placement time as the tiebreak.
func (r *repository) ListForListing(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error) {
	var rows []models.Bid
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("amount_pence DESC, placed_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListPage returns one page of a listing's bid history, newest placement
// first, keyed on (placed_at, id).
func (r *repository) ListPage(ctx context.Context, params ListPageParams) ([]models.Bid, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Bid{}).Where("listing_id = ?", params.ListingID)
	if params.Cursor != nil {
		query = query.Where("(placed_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Bid
	if err := query.Order("placed_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: next.PlacedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}
