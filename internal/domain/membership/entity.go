// Package membership models a user's relationship to one tenant and the
// role type derived from it. The derivation is the authorization bedrock:
// it is pure, recomputed on every request, and never stored.
package membership

import "time"

// Role is the stored membership role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Membership links a user to a tenant.
//
// BranchID is meaningful only on organization memberships: when set, it pins
// the member to operate on exactly one branch. The invariant that matters is
// asymmetric — a pinned branch RESTRICTS staff but never admins. Admins on a
// parent organization are super-users across every child branch regardless
// of their own BranchID.
type Membership struct {
	ID       string  `db:"id"`
	UserID   string  `db:"user_id"`
	TenantID string  `db:"tenant_id"`
	Role     Role    `db:"role"`
	BranchID *string `db:"branch_id"`
	IsOwner  bool    `db:"is_owner"`
	IsActive bool    `db:"is_active"`

	JoinedAt  time.Time `db:"joined_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
