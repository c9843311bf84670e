package settlement

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCommissionRateTiers(t *testing.T) {
	cases := []struct {
		winning int64
		want    string
	}{
		{50_000, "0.1"},
		{99_999, "0.1"},
		{100_000, "0.09"},
		{499_999, "0.09"},
		{500_000, "0.08"},
		{999_999, "0.08"},
		{1_000_000, "0.07"},
		{2_500_000, "0.07"},
	}
	for _, tc := range cases {
		if got := CommissionRate(tc.winning); !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("winning %d: expected rate %s, got %s", tc.winning, tc.want, got)
		}
	}
}

// A £7,500 win sits in the 8% tier: £600 commission, £6,900 seller payout,
// and £7,580 charged to the buyer once the £80 transfer fee is added.
func TestComputeFeesQuotedExample(t *testing.T) {
	fees := ComputeFees(750_000, 8_000, 0)

	if fees.CommissionPence != 60_000 {
		t.Fatalf("expected commission 60000, got %d", fees.CommissionPence)
	}
	if fees.SellerPayoutPence != 690_000 {
		t.Fatalf("expected payout 690000, got %d", fees.SellerPayoutPence)
	}
	if fees.TotalChargePence != 758_000 {
		t.Fatalf("expected total charge 758000, got %d", fees.TotalChargePence)
	}
	if !fees.CommissionRate.Equal(decimal.RequireFromString("0.08")) {
		t.Fatalf("expected 8%% tier, got %s", fees.CommissionRate)
	}
}

func TestComputeFeesListingFeeComesOutOfPayout(t *testing.T) {
	fees := ComputeFees(50_000, 8_000, 2_500)

	if fees.CommissionPence != 5_000 {
		t.Fatalf("expected commission 5000, got %d", fees.CommissionPence)
	}
	if fees.SellerPayoutPence != 42_500 {
		t.Fatalf("expected payout 42500, got %d", fees.SellerPayoutPence)
	}
	// The listing fee never touches what the buyer pays.
	if fees.TotalChargePence != 58_000 {
		t.Fatalf("expected total charge 58000, got %d", fees.TotalChargePence)
	}
}
