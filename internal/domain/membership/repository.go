package membership

import "context"

// Repository defines the interface for membership persistence.
type Repository interface {
	// Add inserts a new membership and returns its ID.
	// (tenant_id, user_id) is unique; duplicates surface as a conflict.
	Add(ctx context.Context, data Membership) (string, error)

	// Get retrieves a membership by ID.
	Get(ctx context.Context, id string) (Membership, error)

	// GetByUserAndTenant retrieves the membership linking a user to a tenant.
	GetByUserAndTenant(ctx context.Context, userID, tenantID string) (Membership, error)

	// ListByTenant retrieves all memberships of a tenant.
	ListByTenant(ctx context.Context, tenantID string) ([]Membership, error)

	// ListByUser retrieves all memberships a user holds.
	ListByUser(ctx context.Context, userID string) ([]Membership, error)

	// Update modifies role, branch pin, and active flag.
	Update(ctx context.Context, id string, data Membership) error

	// Deactivate soft-removes a membership.
	Deactivate(ctx context.Context, id string) error

	// CountByTenant returns the number of active memberships in a tenant.
	CountByTenant(ctx context.Context, tenantID string) (int64, error)
}
