package membership

import "retail-service/internal/domain/tenant"

// RoleType is the effective role of a user within one tenant context.
// Derived, never persisted.
type RoleType string

const (
	// RoleTypeOwner has full capability across the organization and every
	// branch under it.
	RoleTypeOwner RoleType = "owner"

	// RoleTypeBranchAdmin administers exactly one branch.
	RoleTypeBranchAdmin RoleType = "branch_admin"

	// RoleTypeStaff can sell and view their own sales in their branch.
	RoleTypeStaff RoleType = "staff"
)

// DeriveRoleType computes the effective role type for a membership viewed
// against the tenant it belongs to. The function is pure: the same
// membership and tenant rows produce the same value across processes and
// time.
//
//   - admin on an organization with no branch pin, or flagged is_owner → owner
//   - admin on an organization with a branch pin, or admin on a branch → branch_admin
//   - anything else → staff
func DeriveRoleType(m Membership, t tenant.Tenant) RoleType {
	if m.Role != RoleAdmin {
		return RoleTypeStaff
	}
	if t.IsOrganization() && (m.BranchID == nil || m.IsOwner) {
		return RoleTypeOwner
	}
	return RoleTypeBranchAdmin
}

// Principal is the authenticated (user, tenant) pair for one request, with
// the role type already derived. It is passed explicitly down the call
// chain as a plain value so business functions remain directly testable.
type Principal struct {
	UserID   string
	TenantID string
	RoleType RoleType

	// PinnedBranchID is the single branch a non-owner may operate on.
	// For a branch_admin on a branch tenant it is that tenant's id; for a
	// pinned organization member it is the membership's branch pin.
	PinnedBranchID *string
}

// OperatesOn reports whether the principal may act on the given branch.
// Owners operate anywhere in their organization; everyone else only on
// their pinned branch.
func (p Principal) OperatesOn(branchID string) bool {
	if p.RoleType == RoleTypeOwner {
		return true
	}
	return p.PinnedBranchID != nil && *p.PinnedBranchID == branchID
}
