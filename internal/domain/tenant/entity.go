package tenant

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Status represents a tenant's subscription state.
// State transitions: trial → active → cancelled → expired,
// with reactivation from cancelled back to trial or active.
type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Tenant is either an organization (ParentID nil) or one of its branches.
// Branches nest exactly one level deep; the hierarchy is stored as an
// adjacency (ParentID) and resolved with explicit lookups, never as a
// pointer graph.
type Tenant struct {
	ID         string `db:"id"`
	Subdomain  string `db:"subdomain"`
	Name       string `db:"name"`
	OwnerEmail string `db:"owner_email"`

	Currency string          `db:"currency"`
	TaxRate  decimal.Decimal `db:"tax_rate"`
	Timezone string          `db:"timezone"`

	ParentID *string `db:"parent_id"`

	SubscriptionStatus   Status         `db:"subscription_status"`
	TrialEndsAt          *time.Time     `db:"trial_ends_at"`
	NextBillingDate      *time.Time     `db:"next_billing_date"`
	LastPaymentDate      *time.Time     `db:"last_payment_date"`
	AutoRenewalEnabled   bool           `db:"auto_renewal_enabled"`
	GatewayAuthorization *string        `db:"gateway_authorization"`
	SavedBranchSelection pq.StringArray `db:"saved_branch_selection"`
	BillingCycle         *string        `db:"billing_cycle"`

	// MaxUsers and MaxProducts are stored configuration; they are not
	// enforced anywhere in the core.
	MaxUsers    int `db:"max_users"`
	MaxProducts int `db:"max_products"`

	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsOrganization reports whether this tenant is a root organization.
func (t Tenant) IsOrganization() bool {
	return t.ParentID == nil
}

// IsBranch reports whether this tenant belongs to a parent organization.
func (t Tenant) IsBranch() bool {
	return t.ParentID != nil
}

// OrganizationID returns the owning organization's id: the tenant's own id
// for organizations, the parent id for branches.
func (t Tenant) OrganizationID() string {
	if t.ParentID != nil {
		return *t.ParentID
	}
	return t.ID
}

// EffectiveEndDate is the instant the current entitlement period runs out:
// the trial clock while on trial, the next billing date otherwise.
func (t Tenant) EffectiveEndDate() *time.Time {
	if t.SubscriptionStatus == StatusTrial {
		return t.TrialEndsAt
	}
	return t.NextBillingDate
}

// SubscriptionAllowsMutation reports whether mutating operations are
// permitted under the tenant's subscription state at the given instant.
// Cancelled tenants retain full capability until their billing date passes;
// expired tenants degrade to read-only.
func (t Tenant) SubscriptionAllowsMutation(now time.Time) bool {
	switch t.SubscriptionStatus {
	case StatusTrial, StatusActive:
		return true
	case StatusCancelled:
		return t.NextBillingDate != nil && now.Before(*t.NextBillingDate)
	default:
		return false
	}
}
