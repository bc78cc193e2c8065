package subscription

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// InitializeRequest asks the gateway to open a hosted checkout.
type InitializeRequest struct {
	Reference   string
	Amount      decimal.Decimal
	Currency    string
	Email       string
	CallbackURL string
	Metadata    map[string]string
}

// InitializeResponse carries the redirect target for the customer.
type InitializeResponse struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifyResponse is the gateway's view of a transaction.
type VerifyResponse struct {
	Reference string
	Success   bool
	Amount    decimal.Decimal
	Currency  string
	PaidAt    *time.Time

	// Authorization is the opaque token usable for later recurring charges.
	Authorization *string
}

// Gateway talks to the external payment provider. Implementations carry a
// deadline shorter than the enclosing request; a timeout surfaces as a
// gateway-unavailable error and leaves the transaction pending and
// retryable.
type Gateway interface {
	InitializeTransaction(ctx context.Context, req InitializeRequest) (InitializeResponse, error)
	VerifyTransaction(ctx context.Context, reference string) (VerifyResponse, error)

	// CreateRecurringPlan registers an auto-renewal plan against a stored
	// authorization token; DisableAuthorization revokes it.
	CreateRecurringPlan(ctx context.Context, tenantID string, cycle Cycle, amount decimal.Decimal, authorization string) error
	DisableAuthorization(ctx context.Context, authorization string) error
}
