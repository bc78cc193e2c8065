package identity

import (
	"context"

	"go.uber.org/zap"

	"retail-service/internal/infrastructure/log"
	"retail-service/pkg/errors"
)

// RefreshToken reissues a session for the authenticated (user, tenant)
// pair before the current token runs out. The membership is re-resolved
// from storage, so a member whose role changed, whose membership was
// deactivated, or whose tenant was suspended cannot extend a session past
// those changes.
func (s *Service) RefreshToken(ctx context.Context, userID, tenantID string) (Session, error) {
	logger := log.FromContext(ctx).Named("refresh_token").With(
		zap.String("user_id", userID),
		zap.String("tenant_id", tenantID),
	)

	p, t, err := s.Resolve(ctx, userID, tenantID)
	if err != nil {
		logger.Warn("refresh denied", zap.Error(err))
		return Session{}, err
	}

	userData, err := s.users.Get(ctx, userID)
	if err != nil {
		return Session{}, errors.ErrInternal.Wrap(err)
	}

	logger.Info("session refreshed", zap.String("role_type", string(p.RoleType)))
	return s.session(userData, t, p)
}
