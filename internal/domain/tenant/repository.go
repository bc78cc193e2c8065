package tenant

import (
	"context"
	"time"
)

// SubscriptionUpdate carries the billing-plane fields written together when
// subscription state changes. Nil pointers leave columns untouched.
type SubscriptionUpdate struct {
	Status               *Status
	NextBillingDate      *time.Time
	LastPaymentDate      *time.Time
	GatewayAuthorization *string
	AutoRenewalEnabled   *bool
	SavedBranchSelection []string
	BillingCycle         *string
}

// Repository defines the interface for tenant persistence.
type Repository interface {
	// Add inserts a new tenant and returns its ID.
	Add(ctx context.Context, data Tenant) (string, error)

	// Get retrieves a tenant by its ID.
	Get(ctx context.Context, id string) (Tenant, error)

	// GetBySubdomain retrieves a tenant by its addressable subdomain.
	GetBySubdomain(ctx context.Context, subdomain string) (Tenant, error)

	// ListChildren retrieves the branches of an organization.
	ListChildren(ctx context.Context, orgID string) ([]Tenant, error)

	// ListByStatus retrieves tenants in any of the given subscription states.
	ListByStatus(ctx context.Context, statuses ...Status) ([]Tenant, error)

	// Update modifies business settings of an existing tenant.
	Update(ctx context.Context, id string, data Tenant) error

	// UpdateSubscription applies billing-plane changes to one tenant.
	UpdateSubscription(ctx context.Context, id string, upd SubscriptionUpdate) error

	// SetActive flips the administrative suspension flag.
	SetActive(ctx context.Context, id string, active bool) error

	// Count returns the number of tenants; used by the demo seeder to
	// detect an empty datastore.
	Count(ctx context.Context) (int64, error)
}
