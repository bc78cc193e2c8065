package identity

import (
	"context"

	"go.uber.org/zap"

	"retail-service/internal/infrastructure/log"
	"retail-service/internal/infrastructure/store"
	"retail-service/pkg/crypto"
	"retail-service/pkg/errors"
)

// Authenticate verifies (credential, password) against a tenant addressed by
// subdomain and issues a session bound to that tenant.
//
// Apart from the public subdomain lookup and an inactive tenant, user or
// membership (ErrInactive), every failure collapses into the same opaque
// invalid-credentials error so callers cannot probe for accounts or
// memberships.
func (s *Service) Authenticate(ctx context.Context, credential, password, subdomain string) (Session, error) {
	logger := log.FromContext(ctx).Named("authenticate").With(zap.String("subdomain", subdomain))

	t, err := s.tenants.GetBySubdomain(ctx, subdomain)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			logger.Warn("unknown tenant")
			return Session{}, ErrUnknownTenant
		}
		logger.Error("failed to load tenant", zap.Error(err))
		return Session{}, errors.ErrInternal.Wrap(err)
	}

	if err := s.checkTenantActive(ctx, t); err != nil {
		return Session{}, err
	}

	userData, err := s.users.GetByCredential(ctx, credential)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			// Burn a hash comparison anyway so the miss costs the same as
			// a wrong password.
			crypto.CheckPasswordHash(password, "$2a$10$0000000000000000000000000000000000000000000000000000")
			return Session{}, errors.ErrInvalidCredentials
		}
		logger.Error("failed to load user", zap.Error(err))
		return Session{}, errors.ErrInternal.Wrap(err)
	}

	if !crypto.CheckPasswordHash(password, userData.PasswordHash) {
		return Session{}, errors.ErrInvalidCredentials
	}
	if !userData.IsActive {
		return Session{}, ErrInactive
	}

	p, err := s.effectiveMembership(ctx, userData.ID, t)
	if err != nil {
		if errors.Is(err, errors.ErrForbidden) {
			return Session{}, errors.ErrInvalidCredentials
		}
		return Session{}, err
	}

	if err := s.users.UpdateLastLogin(ctx, userData.ID, s.now()); err != nil {
		logger.Warn("failed to record last login", zap.Error(err))
	}

	logger.Info("authenticated", zap.String("user_id", userData.ID), zap.String("role_type", string(p.RoleType)))
	return s.session(userData, t, p)
}
