package models

import (
	"time"

	"github.com/google/uuid"
)

// Bid is an accepted offer against a listing. Rows are immutable once
// written; only the bid engine creates them.
type Bid struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID   uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index"`
	BidderEmail string    `gorm:"column:bidder_email;not null"`
	AmountPence int64     `gorm:"column:amount_pence;not null"`
	PlacedAt    time.Time `gorm:"column:placed_at;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
