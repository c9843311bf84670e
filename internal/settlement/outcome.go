package settlement

import (
	"github.com/google/uuid"

	"github.com/plateora/plateora-backend/pkg/enums"
)

// Outcome is the result of settling one completed listing. Skips and
// failures carry a reason; charged outcomes carry the amount taken and the
// gateway's payment reference.
type Outcome struct {
	ListingID       uuid.UUID               `json:"listing_id"`
	Result          enums.SettlementOutcome `json:"outcome"`
	Reason          enums.SettlementReason  `json:"reason,omitempty"`
	ChargedPence    int64                   `json:"charged_pence,omitempty"`
	ChargeReference string                  `json:"charge_reference,omitempty"`
}

// Charged reports whether the buyer was billed on this attempt.
func (o *Outcome) Charged() bool {
	return o != nil && o.Result == enums.SettlementOutcomeCharged
}
