package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/plateora/plateora-backend/pkg/enums"
)

// Listing is a sellable registration mark moving through the auction
// lifecycle. All monetary fields are pence. AuctionStart/AuctionEnd are nil
// for listings that ride the recurring weekly window.
type Listing struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Registration       string              `gorm:"column:registration;not null;index"`
	Status             enums.ListingStatus `gorm:"column:status;not null;default:'pending';index"`
	ReservePricePence  *int64              `gorm:"column:reserve_price_pence"`
	StartingPricePence *int64              `gorm:"column:starting_price_pence"`
	BuyNowPricePence   *int64              `gorm:"column:buy_now_price_pence"`
	CurrentBidPence    *int64              `gorm:"column:current_bid_pence"`
	BidCount           int                 `gorm:"column:bid_count;not null;default:0"`
	AuctionStart       *time.Time          `gorm:"column:auction_start"`
	AuctionEnd         *time.Time          `gorm:"column:auction_end"`
	SellerID           uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	RelistedFrom       *uuid.UUID          `gorm:"column:relisted_from;type:uuid"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// ReserveMet reports whether the current bid clears the seller's reserve.
// A missing or zero reserve always passes.
func (l Listing) ReserveMet() bool {
	if l.ReservePricePence == nil || *l.ReservePricePence <= 0 {
		return true
	}
	if l.CurrentBidPence == nil {
		return false
	}
	return *l.CurrentBidPence >= *l.ReservePricePence
}

// BidBase returns the amount the next bid increment is computed from: the
// current bid when one exists, else the starting price, else zero.
func (l Listing) BidBase() int64 {
	if l.CurrentBidPence != nil {
		return *l.CurrentBidPence
	}
	if l.StartingPricePence != nil {
		return *l.StartingPricePence
	}
	return 0
}
