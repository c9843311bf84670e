package settlement

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plateora/plateora-backend/pkg/db/models"
	pkgerrors "github.com/plateora/plateora-backend/pkg/errors"
)

// Repository persists transaction records. One row per sold listing,
// enforced by the unique listing_id constraint.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, record *models.Transaction) error
	FindByListingID(ctx context.Context, listingID uuid.UUID) (*models.Transaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a transactions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.Transaction) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) FindByListingID(ctx context.Context, listingID uuid.UUID) (*models.Transaction, error) {
	var record models.Transaction
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no transaction for listing")
		}
		return nil, err
	}
	return &record, nil
}
