package square

import (
	"encoding/json"
	"errors"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"

	pkgerrors "github.com/plateora/plateora-backend/pkg/errors"
)

// ChargeParams encapsulates the inputs for charging a stored card. The
// idempotency key is mandatory and must be deterministic for the logical
// operation so retries collapse into one gateway-side charge.
type ChargeParams struct {
	CustomerID     string
	CardID         string
	AmountPence    int64
	Currency       string
	IdempotencyKey string
	Note           string
	ReferenceID    string
}

func (p ChargeParams) validate() error {
	if strings.TrimSpace(p.CustomerID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if strings.TrimSpace(p.CardID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "card id is required")
	}
	if p.AmountPence <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}
	if strings.TrimSpace(p.IdempotencyKey) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	return nil
}

func (p ChargeParams) toSquareRequest(locationID string) *sq.CreatePaymentRequest {
	req := &sq.CreatePaymentRequest{
		IdempotencyKey: p.IdempotencyKey,
		LocationID:     ptrString(locationID),
		CustomerID:     ptrString(p.CustomerID),
		SourceID:       p.CardID,
		AmountMoney:    moneyPtr(p.AmountPence, p.Currency),
	}
	if trimmed := strings.TrimSpace(p.Note); trimmed != "" {
		req.Note = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.ReferenceID); trimmed != "" {
		req.ReferenceID = ptrString(trimmed)
	}
	return req
}

// ChargeResult is the settled view of a gateway payment.
type ChargeResult struct {
	Reference string
	Status    string
}

// Failure classification strings surfaced to settlement outcomes.
const (
	FailureCardDeclined    = "card-declined"
	FailureAuthRequired    = "authentication-required"
	FailureCustomerMissing = "customer-missing"
	FailureGatewayError    = "gateway-error"
)

// ClassifyFailure maps a charge error onto the settlement failure taxonomy.
func ClassifyFailure(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *sqcore.APIError
	if errors.As(err, &apiErr) {
		var payload struct {
			Errors []*sq.Error `json:"errors"`
		}
		if inner := apiErr.Unwrap(); inner != nil {
			_ = json.Unmarshal([]byte(inner.Error()), &payload)
		}
		for _, sqErr := range payload.Errors {
			if sqErr == nil {
				continue
			}
			if sqErr.Code == sq.ErrorCodeCardDeclined {
				return FailureCardDeclined
			}
			if strings.Contains(string(sqErr.Code), "VERIFICATION") {
				return FailureAuthRequired
			}
		}
	}

	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodePayment:
			return FailureCardDeclined
		case pkgerrors.CodeUnauthorized:
			return FailureAuthRequired
		case pkgerrors.CodeNotFound:
			return FailureCustomerMissing
		}
	}
	return FailureGatewayError
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "GBP"
	}
	c := sq.Currency(trimmed)
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
