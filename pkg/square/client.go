package square

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/plateora/plateora-backend/pkg/config"
	pkgerrors "github.com/plateora/plateora-backend/pkg/errors"
	"github.com/plateora/plateora-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"
)

var (
	errAccessTokenRequired = errors.New("square access token is required")
	errLocationRequired    = errors.New("square location id is required")
	errInvalidSquareEnv    = fmt.Errorf("square environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired      = errors.New("square logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

// Client exposes the Square primitives the settlement engine needs, with
// centralized auth, logging, idempotency, and error mapping.
type Client struct {
	sdk         *sqclient.Client
	accessToken string
	environment string
	locationID  string
	baseURL     string
	logger      *logger.Logger
}

// NewClient initializes the Square wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}

	locationID := strings.TrimSpace(cfg.LocationID)
	if locationID == "" {
		return nil, errLocationRequired
	}

	baseURL := baseURLs[env]
	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURL),
		sqoption.WithToken(accessToken),
	)

	c := &Client{
		sdk:         sdk,
		accessToken: accessToken,
		environment: env,
		locationID:  locationID,
		baseURL:     baseURL,
		logger:      logg,
	}

	logg.Info(ctx, "square client initialized")
	return c, nil
}

// Environment reports the normalized Square environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// FindOrCreateCustomer resolves the Square customer for a bidder email,
// creating one when no match exists. Creation uses the email as the
// idempotency key so a retried lookup cannot mint duplicate customers.
func (c *Client) FindOrCreateCustomer(ctx context.Context, email string) (string, error) {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}

	existing, err := c.searchCustomerByEmail(ctx, trimmed)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return existing, nil
	}

	req := &sq.CreateCustomerRequest{
		IdempotencyKey: ptrString("customer-" + trimmed),
		EmailAddress:   ptrString(trimmed),
	}
	c.log(ctx, "request", "create_customer", map[string]any{"email": trimmed})

	resp, err := c.sdk.Customers.Create(ctx, req)
	if err != nil {
		c.log(ctx, "error", "create_customer", map[string]any{"error": err.Error()})
		return "", c.mapSquareError(err, "create customer")
	}

	cust := resp.GetCustomer()
	customerID := stringValue(cust.GetID())
	c.log(ctx, "response", "create_customer", map[string]any{"customer_id": customerID})
	return customerID, nil
}

func (c *Client) searchCustomerByEmail(ctx context.Context, email string) (string, error) {
	req := &sq.SearchCustomersRequest{
		Query: &sq.CustomerQuery{
			Filter: &sq.CustomerFilter{
				EmailAddress: &sq.CustomerTextFilter{Exact: ptrString(email)},
			},
		},
		Limit: int64Ptr(1),
	}
	c.log(ctx, "request", "search_customer", map[string]any{"email": email})

	resp, err := c.sdk.Customers.Search(ctx, req)
	if err != nil {
		c.log(ctx, "error", "search_customer", map[string]any{"error": err.Error()})
		return "", c.mapSquareError(err, "search customer")
	}

	customers := resp.GetCustomers()
	if len(customers) == 0 {
		c.log(ctx, "response", "search_customer", map[string]any{"found": false})
		return "", nil
	}
	customerID := stringValue(customers[0].GetID())
	c.log(ctx, "response", "search_customer", map[string]any{"customer_id": customerID})
	return customerID, nil
}

// ListEnabledCardIDs returns the usable stored card ids for a customer, in
// the order Square returns them.
func (c *Client) ListEnabledCardIDs(ctx context.Context, customerID string) ([]string, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	req := &sq.ListCardsRequest{CustomerID: ptrString(customerID)}
	c.log(ctx, "request", "get_customer_cards", map[string]any{"customer_id": customerID})

	resp, err := c.sdk.Cards.List(ctx, req)
	if err != nil {
		c.log(ctx, "error", "get_customer_cards", map[string]any{"error": err.Error()})
		return nil, c.mapSquareError(err, "get customer")
	}

	var cardIDs []string
	for _, card := range resp.Results {
		if card == nil {
			continue
		}
		if card.Enabled != nil && !*card.Enabled {
			continue
		}
		if id := stringValue(card.GetID()); id != "" {
			cardIDs = append(cardIDs, id)
		}
	}
	c.log(ctx, "response", "get_customer_cards", map[string]any{"count": len(cardIDs)})
	return cardIDs, nil
}

// ChargeStoredCard executes a payment against a vaulted card. The caller
// supplies the idempotency key; Square deduplicates retried charges with the
// same key, so a timed-out call is safe to replay.
func (c *Client) ChargeStoredCard(ctx context.Context, params ChargeParams) (*ChargeResult, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	req := params.toSquareRequest(c.locationID)
	c.log(ctx, "request", "create_payment", map[string]any{
		"customer_id":     params.CustomerID,
		"amount":          params.AmountPence,
		"idempotency_key": params.IdempotencyKey,
	})

	resp, err := c.sdk.Payments.Create(ctx, req)
	if err != nil {
		c.log(ctx, "error", "create_payment", map[string]any{"error": err.Error()})
		return nil, c.mapSquareError(err, "create payment")
	}

	payment := resp.GetPayment()
	result := &ChargeResult{
		Reference: stringValue(payment.GetID()),
		Status:    stringValue(payment.GetStatus()),
	}
	c.log(ctx, "response", "create_payment", map[string]any{
		"payment_id": result.Reference,
		"status":     result.Status,
	})
	return result, nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("square %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("square %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "nonce", "token", "cvv", "cvc", "secret", "email", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func (c *Client) mapSquareError(err error, op string) error {
	if err == nil {
		return nil
	}
	var apiErr *sqcore.APIError
	if errors.As(err, &apiErr) {
		code := domainCodeForStatus(apiErr.StatusCode)
		for _, sqErr := range c.extractSquareErrors(apiErr) {
			if sqErr == nil {
				continue
			}
			if sqErr.Code == sq.ErrorCodeIdempotencyKeyReused {
				code = pkgerrors.CodeIdempotency
				break
			}
			if sqErr.Code == sq.ErrorCodeCardDeclined {
				code = pkgerrors.CodePayment
				break
			}
			if sqErr.Category == sq.ErrorCategoryPaymentMethodError {
				code = pkgerrors.CodePayment
				break
			}
			if sqErr.Category == sq.ErrorCategoryAuthenticationError {
				code = pkgerrors.CodeUnauthorized
				break
			}
		}
		return pkgerrors.Wrap(code, err, fmt.Sprintf("square %s failed", op))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("square %s failed", op))
}

func (c *Client) extractSquareErrors(apiErr *sqcore.APIError) []*sq.Error {
	if apiErr == nil {
		return nil
	}
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	raw := strings.TrimSpace(inner.Error())
	if raw == "" {
		return nil
	}
	var payload struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	return payload.Errors
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	switch env {
	case sandboxEnv, productionEnv:
		return env, nil
	default:
		return "", errInvalidSquareEnv
	}
}
