package tenant

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,61}[a-z0-9]$`)

// RegisterRequest is the self-service organization registration payload.
type RegisterRequest struct {
	Subdomain  string `json:"subdomain"`
	Name       string `json:"name"`
	OwnerEmail string `json:"owner_email"`
	OwnerName  string `json:"owner_name"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Currency   string `json:"currency"`
	TaxRate    string `json:"tax_rate"`
	Timezone   string `json:"timezone"`
}

// Bind validates the request payload.
func (s *RegisterRequest) Bind(r *http.Request) error {
	if !subdomainPattern.MatchString(s.Subdomain) {
		return errors.New("subdomain: must be 3-63 lowercase alphanumeric characters or hyphens")
	}
	if s.Name == "" {
		return errors.New("name: cannot be blank")
	}
	if s.OwnerEmail == "" {
		return errors.New("owner_email: cannot be blank")
	}
	if len(s.Password) < 8 {
		return errors.New("password: must be at least 8 characters")
	}
	if s.TaxRate != "" {
		rate, err := decimal.NewFromString(s.TaxRate)
		if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return errors.New("tax_rate: must be a decimal fraction between 0 and 1")
		}
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return errors.New("timezone: unknown IANA timezone")
		}
	}
	return nil
}

// BranchRequest creates a branch under the caller's organization.
type BranchRequest struct {
	Subdomain string `json:"subdomain"`
	Name      string `json:"name"`
}

func (s *BranchRequest) Bind(r *http.Request) error {
	if !subdomainPattern.MatchString(s.Subdomain) {
		return errors.New("subdomain: must be 3-63 lowercase alphanumeric characters or hyphens")
	}
	if s.Name == "" {
		return errors.New("name: cannot be blank")
	}
	return nil
}

// Response represents the tenant payload exposed to clients.
type Response struct {
	ID                 string     `json:"id"`
	Subdomain          string     `json:"subdomain"`
	Name               string     `json:"name"`
	Currency           string     `json:"currency"`
	TaxRate            string     `json:"tax_rate"`
	Timezone           string     `json:"timezone"`
	ParentID           *string    `json:"parent_id,omitempty"`
	SubscriptionStatus Status     `json:"subscription_status"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
	NextBillingDate    *time.Time `json:"next_billing_date,omitempty"`
	AutoRenewalEnabled bool       `json:"auto_renewal_enabled"`
	IsActive           bool       `json:"is_active"`
}

// ParseFromEntity converts a tenant entity to a response payload.
func ParseFromEntity(data Tenant) Response {
	return Response{
		ID:                 data.ID,
		Subdomain:          data.Subdomain,
		Name:               data.Name,
		Currency:           data.Currency,
		TaxRate:            data.TaxRate.String(),
		Timezone:           data.Timezone,
		ParentID:           data.ParentID,
		SubscriptionStatus: data.SubscriptionStatus,
		TrialEndsAt:        data.TrialEndsAt,
		NextBillingDate:    data.NextBillingDate,
		AutoRenewalEnabled: data.AutoRenewalEnabled,
		IsActive:           data.IsActive,
	}
}

// ParseFromEntities converts a list of tenant entities to response payloads.
func ParseFromEntities(data []Tenant) []Response {
	res := make([]Response, len(data))
	for i, entity := range data {
		res[i] = ParseFromEntity(entity)
	}
	return res
}
