package identity

import (
	"context"

	"go.uber.org/zap"

	"retail-service/internal/domain/membership"
	"retail-service/internal/infrastructure/log"
	"retail-service/internal/infrastructure/store"
	"retail-service/pkg/errors"
)

// SwitchTenant moves an authenticated user's session to another tenant.
//
// Given a session on tenant S requesting tenant T:
//   - T = S is always allowed.
//   - An active direct membership on T allows; role comes from it.
//   - If T has a parent P and the user holds an active membership on P:
//     role=admin allows regardless of the membership's branch pin (the
//     super-user rule); role=staff allows only when pinned to exactly T.
//   - Everything else is forbidden.
func (s *Service) SwitchTenant(ctx context.Context, userID, targetTenantID string) (Session, error) {
	logger := log.FromContext(ctx).Named("switch_tenant").With(
		zap.String("user_id", userID),
		zap.String("target_tenant_id", targetTenantID),
	)

	target, err := s.tenants.Get(ctx, targetTenantID)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			// Cross-tenant existence is never revealed.
			return Session{}, errors.ErrForbidden
		}
		logger.Error("failed to load tenant", zap.Error(err))
		return Session{}, errors.ErrInternal.Wrap(err)
	}

	if err := s.checkTenantActive(ctx, target); err != nil {
		return Session{}, err
	}

	userData, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return Session{}, errors.ErrUnauthenticated
		}
		return Session{}, errors.ErrInternal.Wrap(err)
	}
	if !userData.IsActive {
		return Session{}, ErrInactive
	}

	p, err := s.effectiveMembership(ctx, userID, target)
	if err != nil {
		return Session{}, err
	}

	logger.Info("switched tenant", zap.String("role_type", string(p.RoleType)))
	return s.session(userData, target, p)
}

// ListMemberships returns the tenants a user may switch to directly: every
// tenant of an active membership plus, for organization admins, every
// branch of that organization.
func (s *Service) ListMemberships(ctx context.Context, userID string) ([]SwitchTarget, error) {
	rows, err := s.memberships.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.ErrInternal.Wrap(err)
	}

	seen := make(map[string]bool)
	var targets []SwitchTarget

	add := func(tenantID string, roleType membership.RoleType) error {
		if seen[tenantID] {
			return nil
		}
		t, err := s.tenants.Get(ctx, tenantID)
		if err != nil {
			return err
		}
		if !t.IsActive {
			return nil
		}
		seen[tenantID] = true
		targets = append(targets, SwitchTarget{
			TenantID:  t.ID,
			Subdomain: t.Subdomain,
			Name:      t.Name,
			IsBranch:  t.IsBranch(),
			RoleType:  roleType,
		})
		return nil
	}

	for _, m := range rows {
		if !m.IsActive {
			continue
		}
		t, err := s.tenants.Get(ctx, m.TenantID)
		if err != nil {
			if errors.Is(err, store.ErrorNotFound) {
				continue
			}
			return nil, errors.ErrInternal.Wrap(err)
		}
		roleType := membership.DeriveRoleType(m, t)
		if err := add(t.ID, roleType); err != nil {
			return nil, errors.ErrInternal.Wrap(err)
		}

		// Organization admins reach every child branch.
		if t.IsOrganization() && m.Role == membership.RoleAdmin {
			children, err := s.tenants.ListChildren(ctx, t.ID)
			if err != nil {
				return nil, errors.ErrInternal.Wrap(err)
			}
			for _, child := range children {
				if err := add(child.ID, roleType); err != nil {
					return nil, errors.ErrInternal.Wrap(err)
				}
			}
		}
	}

	return targets, nil
}

// SwitchTarget is one tenant a user may switch into.
type SwitchTarget struct {
	TenantID  string              `json:"tenant_id"`
	Subdomain string              `json:"subdomain"`
	Name      string              `json:"name"`
	IsBranch  bool                `json:"is_branch"`
	RoleType  membership.RoleType `json:"role_type"`
}
