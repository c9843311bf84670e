package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/plateora/plateora-backend/pkg/enums"
)

// Transaction records the financial terms of a completed sale. The unique
// listing_id constraint is the persistence-side guarantee that a listing is
// settled at most once; the gateway idempotency key is the other half.
type Transaction struct {
	ID                 uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID          uuid.UUID          `gorm:"column:listing_id;type:uuid;not null;unique"`
	BuyerEmail         string             `gorm:"column:buyer_email;not null"`
	SellerID           uuid.UUID          `gorm:"column:seller_id;type:uuid;not null;index"`
	WinningAmountPence int64              `gorm:"column:winning_amount_pence;not null"`
	TransferFeePence   int64              `gorm:"column:transfer_fee_pence;not null"`
	CommissionRate     string             `gorm:"column:commission_rate;not null"`
	CommissionPence    int64              `gorm:"column:commission_pence;not null"`
	SellerPayoutPence  int64              `gorm:"column:seller_payout_pence;not null"`
	Currency           string             `gorm:"column:currency;not null;default:'GBP'"`
	ChargeReference    string             `gorm:"column:charge_reference;not null"`
	ChargeStatus       enums.ChargeStatus `gorm:"column:charge_status;not null;default:'pending'"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
