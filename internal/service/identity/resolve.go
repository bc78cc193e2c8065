package identity

import (
	"context"

	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/tenant"
	"retail-service/internal/infrastructure/store"
	"retail-service/pkg/errors"
)

// effectiveMembership finds the membership that grants userID access to
// tenant t, directly or through the parent organization, and derives the
// principal's role within t's context.
//
// The access rule, in order:
//  1. An active direct membership on t wins; role type derives from it.
//  2. Otherwise, if t is a branch and the user holds an active membership
//     on the parent organization:
//     - role=admin grants access regardless of the membership's branch pin
//       (the super-user rule; a pin restricts staff, never admins),
//     - role=staff grants access only when pinned to exactly t.
//  3. Otherwise access is denied.
func (s *Service) effectiveMembership(ctx context.Context, userID string, t tenant.Tenant) (membership.Principal, error) {
	direct, err := s.memberships.GetByUserAndTenant(ctx, userID, t.ID)
	switch {
	case err == nil:
		if !direct.IsActive {
			return membership.Principal{}, ErrInactive
		}
		return s.principalFrom(direct, t), nil
	case !errors.Is(err, store.ErrorNotFound):
		return membership.Principal{}, errors.ErrInternal.Wrap(err)
	}

	if t.ParentID == nil {
		return membership.Principal{}, errors.ErrForbidden
	}

	parentMembership, err := s.memberships.GetByUserAndTenant(ctx, userID, *t.ParentID)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return membership.Principal{}, errors.ErrForbidden
		}
		return membership.Principal{}, errors.ErrInternal.Wrap(err)
	}
	if !parentMembership.IsActive {
		return membership.Principal{}, ErrInactive
	}

	parent, err := s.tenants.Get(ctx, *t.ParentID)
	if err != nil {
		return membership.Principal{}, errors.ErrInternal.Wrap(err)
	}

	switch parentMembership.Role {
	case membership.RoleAdmin:
		// Super-user path. A branch-pinned organization admin may still
		// enter any branch; capabilities stay scoped by the pin.
		p := s.principalFrom(parentMembership, parent)
		p.TenantID = t.ID
		return p, nil
	default:
		if parentMembership.BranchID != nil && *parentMembership.BranchID == t.ID {
			p := s.principalFrom(parentMembership, parent)
			p.TenantID = t.ID
			return p, nil
		}
		return membership.Principal{}, errors.ErrForbidden
	}
}

// principalFrom derives the principal for a membership viewed against the
// tenant the membership belongs to.
func (s *Service) principalFrom(m membership.Membership, t tenant.Tenant) membership.Principal {
	roleType := membership.DeriveRoleType(m, t)

	var pinned *string
	switch {
	case roleType == membership.RoleTypeOwner:
		pinned = nil
	case m.BranchID != nil:
		pinned = m.BranchID
	default:
		// Unpinned non-owners operate on the tenant they belong to.
		id := t.ID
		pinned = &id
	}

	return membership.Principal{
		UserID:         m.UserID,
		TenantID:       t.ID,
		RoleType:       roleType,
		PinnedBranchID: pinned,
	}
}

// Resolve recomputes the principal for a validated session token's
// (user, tenant) pair. Role and branch changes take effect on the next
// request without token reissue because nothing derived is cached in the
// token.
func (s *Service) Resolve(ctx context.Context, userID, tenantID string) (membership.Principal, tenant.Tenant, error) {
	t, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return membership.Principal{}, tenant.Tenant{}, errors.ErrUnauthenticated
		}
		return membership.Principal{}, tenant.Tenant{}, errors.ErrInternal.Wrap(err)
	}

	if err := s.checkTenantActive(ctx, t); err != nil {
		return membership.Principal{}, tenant.Tenant{}, err
	}

	userData, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return membership.Principal{}, tenant.Tenant{}, errors.ErrUnauthenticated
		}
		return membership.Principal{}, tenant.Tenant{}, errors.ErrInternal.Wrap(err)
	}
	if !userData.IsActive {
		return membership.Principal{}, tenant.Tenant{}, ErrInactive
	}

	p, err := s.effectiveMembership(ctx, userID, t)
	if err != nil {
		return membership.Principal{}, tenant.Tenant{}, err
	}
	return p, t, nil
}

// checkTenantActive enforces administrative suspension; suspending a parent
// transitively denies its branches.
func (s *Service) checkTenantActive(ctx context.Context, t tenant.Tenant) error {
	if !t.IsActive {
		return ErrInactive
	}
	if t.ParentID != nil {
		parent, err := s.tenants.Get(ctx, *t.ParentID)
		if err != nil {
			return errors.ErrInternal.Wrap(err)
		}
		if !parent.IsActive {
			return ErrInactive
		}
	}
	return nil
}
