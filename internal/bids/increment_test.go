package bids

import "testing"

func TestMinimumIncrementBands(t *testing.T) {
	cases := []struct {
		base int64
		want int64
	}{
		{0, 1_000},
		{9_999, 1_000},
		{10_000, 2_500},
		{49_999, 2_500},
		{50_000, 5_000},
		{99_999, 5_000},
		{100_000, 10_000},
		{499_999, 10_000},
		{500_000, 25_000},
		{999_999, 25_000},
		{1_000_000, 50_000},
		{10_000_000, 50_000},
	}
	for _, tc := range cases {
		if got := MinimumIncrement(tc.base); got != tc.want {
			t.Fatalf("base %d: expected increment %d, got %d", tc.base, tc.want, got)
		}
	}
}

func TestMinimumIncrementMonotone(t *testing.T) {
	prev := int64(0)
	for _, base := range []int64{0, 5_000, 10_000, 50_000, 100_000, 500_000, 1_000_000, 5_000_000} {
		inc := MinimumIncrement(base)
		if inc < prev {
			t.Fatalf("increment regressed at base %d: %d < %d", base, inc, prev)
		}
		prev = inc
	}
}

func TestMinimumNextBid(t *testing.T) {
	if got := MinimumNextBid(750_000); got != 775_000 {
		t.Fatalf("expected 775000, got %d", got)
	}
}
