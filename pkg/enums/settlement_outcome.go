package enums

import "fmt"

// SettlementOutcome classifies the result of settling one completed listing.
type SettlementOutcome string

const (
	SettlementOutcomeCharged SettlementOutcome = "charged"
	SettlementOutcomeFailed  SettlementOutcome = "failed"
	SettlementOutcomeSkipped SettlementOutcome = "skipped"
)

var validSettlementOutcomes = []SettlementOutcome{
	SettlementOutcomeCharged,
	SettlementOutcomeFailed,
	SettlementOutcomeSkipped,
}

// SettlementReason qualifies skipped and failed outcomes so audits can tell
// a quiet week from a broken card.
type SettlementReason string

const (
	SettlementReasonNoBids          SettlementReason = "no-bids"
	SettlementReasonReserveNotMet   SettlementReason = "reserve-not-met"
	SettlementReasonNoPaymentMethod SettlementReason = "no-payment-method"
	SettlementReasonAlreadySettled  SettlementReason = "already-settled"
	SettlementReasonCardDeclined    SettlementReason = "card-declined"
	SettlementReasonAuthRequired    SettlementReason = "authentication-required"
	SettlementReasonCustomerMissing SettlementReason = "customer-missing"
	SettlementReasonGatewayError    SettlementReason = "gateway-error"
)

// String implements fmt.Stringer.
func (o SettlementOutcome) String() string {
	return string(o)
}

// IsValid reports whether the value is known.
func (o SettlementOutcome) IsValid() bool {
	for _, candidate := range validSettlementOutcomes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseSettlementOutcome converts raw input into a SettlementOutcome.
func ParseSettlementOutcome(value string) (SettlementOutcome, error) {
	for _, candidate := range validSettlementOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement outcome %q", value)
}
