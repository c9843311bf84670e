package settlement

import "github.com/shopspring/decimal"

// Commission tier boundaries in pence. Higher winning amounts attract a
// lower percentage, so tier maths must agree exactly with what sellers are
// quoted on the fees page.
var (
	rateTierOne   = decimal.RequireFromString("0.10") // under £1,000
	rateTierTwo   = decimal.RequireFromString("0.09") // under £5,000
	rateTierThree = decimal.RequireFromString("0.08") // under £10,000
	rateTierFour  = decimal.RequireFromString("0.07") // £10,000 and up
)

// CommissionRate returns the percentage applied to a winning amount.
func CommissionRate(winningPence int64) decimal.Decimal {
	switch {
	case winningPence < 100_000:
		return rateTierOne
	case winningPence < 500_000:
		return rateTierTwo
	case winningPence < 1_000_000:
		return rateTierThree
	default:
		return rateTierFour
	}
}

// Fees is the full money breakdown for one settled listing. All amounts are
// pence; the rate is kept as a decimal for the transaction record.
type Fees struct {
	WinningAmountPence int64
	TransferFeePence   int64
	ListingFeePence    int64
	CommissionRate     decimal.Decimal
	CommissionPence    int64
	SellerPayoutPence  int64
	TotalChargePence   int64
}

// ComputeFees derives every settlement amount from the winning bid. The
// buyer pays winning amount plus the flat transfer fee; the seller receives
// the winning amount less commission and any flat listing fee.
func ComputeFees(winningPence, transferFeePence, listingFeePence int64) Fees {
	rate := CommissionRate(winningPence)
	commission := decimal.NewFromInt(winningPence).Mul(rate).Round(0).IntPart()
	return Fees{
		WinningAmountPence: winningPence,
		TransferFeePence:   transferFeePence,
		ListingFeePence:    listingFeePence,
		CommissionRate:     rate,
		CommissionPence:    commission,
		SellerPayoutPence:  winningPence - commission - listingFeePence,
		TotalChargePence:   winningPence + transferFeePence,
	}
}
