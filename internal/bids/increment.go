package bids

// MinimumIncrement returns the required bid step for a given base amount in
// pence. Steps widen as the price climbs, mirroring the increments bidders
// see on the listing page.
func MinimumIncrement(basePence int64) int64 {
	switch {
	case basePence < 10_000: // under £100
		return 1_000 // £10
	case basePence < 50_000: // under £500
		return 2_500 // £25
	case basePence < 100_000: // under £1,000
		return 5_000 // £50
	case basePence < 500_000: // under £5,000
		return 10_000 // £100
	case basePence < 1_000_000: // under £10,000
		return 25_000 // £250
	default:
		return 50_000 // £500
	}
}

// MinimumNextBid is the smallest acceptable bid over the given base.
func MinimumNextBid(basePence int64) int64 {
	return basePence + MinimumIncrement(basePence)
}
