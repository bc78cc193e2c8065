package subscription

import (
	"errors"
	"net/http"
	"time"
)

// InitializePayload is the request body for subscription initialization.
type InitializePayload struct {
	Cycle     Cycle    `json:"cycle"`
	BranchIDs []string `json:"branch_ids"`
}

// Bind validates the request payload.
func (s *InitializePayload) Bind(r *http.Request) error {
	if !ValidCycle(s.Cycle) {
		return errors.New("cycle: must be one of monthly, semi_annual, annual")
	}
	return nil
}

// AddBranchPayload requests a pro-rata mid-cycle branch addition.
type AddBranchPayload struct {
	BranchID string `json:"branch_id"`
}

func (s *AddBranchPayload) Bind(r *http.Request) error {
	if s.BranchID == "" {
		return errors.New("branch_id: cannot be blank")
	}
	return nil
}

// InitializeResult is returned to the client for redirecting to checkout.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
}

// VerifyResult is the outcome of a (possibly repeated) verification.
type VerifyResult struct {
	Reference       string     `json:"reference"`
	Status          Status     `json:"status"`
	SubscriptionEnd *time.Time `json:"subscription_end,omitempty"`
	BranchesEnabled []string   `json:"branches_enabled,omitempty"`
}

// StatusResult is the subscription snapshot for the current tenant.
type StatusResult struct {
	SubscriptionStatus string     `json:"subscription_status"`
	BillingCycle       *string    `json:"billing_cycle,omitempty"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
	NextBillingDate    *time.Time `json:"next_billing_date,omitempty"`
	AutoRenewalEnabled bool       `json:"auto_renewal_enabled"`
	BranchCount        int        `json:"branch_count"`

	// Stored configuration, not enforced by the core.
	MaxUsers    int `json:"max_users"`
	MaxProducts int `json:"max_products"`
}

// TransactionResponse is a transaction in listings.
type TransactionResponse struct {
	ID              string     `json:"id"`
	Reference       string     `json:"reference"`
	Amount          string     `json:"amount"`
	Currency        string     `json:"currency"`
	BillingCycle    Cycle      `json:"billing_cycle"`
	Status          Status     `json:"status"`
	ProRata         bool       `json:"pro_rata"`
	SubscriptionEnd *time.Time `json:"subscription_end,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ParseTransaction converts a transaction entity to a response payload.
func ParseTransaction(data Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              data.ID,
		Reference:       data.Reference,
		Amount:          data.Amount.StringFixed(2),
		Currency:        data.Currency,
		BillingCycle:    data.BillingCycle,
		Status:          data.Status,
		ProRata:         data.ProRata,
		SubscriptionEnd: data.SubscriptionEnd,
		CreatedAt:       data.CreatedAt,
	}
}

// ParseTransactions converts transaction entities to response payloads.
func ParseTransactions(data []Transaction) []TransactionResponse {
	res := make([]TransactionResponse, len(data))
	for i, entity := range data {
		res[i] = ParseTransaction(entity)
	}
	return res
}
