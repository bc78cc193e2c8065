package identity

import (
	"context"

	"go.uber.org/zap"

	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/user"
	"retail-service/internal/infrastructure/log"
	"retail-service/internal/infrastructure/store"
	"retail-service/pkg/crypto"
	"retail-service/pkg/errors"
)

// MemberRequest invites or creates a member within the caller's tenant.
type MemberRequest struct {
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	FullName string          `json:"full_name"`
	Role     membership.Role `json:"role"`
	BranchID *string         `json:"branch_id,omitempty"`
}

// MemberResponse is one member of a tenant.
type MemberResponse struct {
	MembershipID string          `json:"membership_id"`
	UserID       string          `json:"user_id"`
	Username     string          `json:"username"`
	Email        string          `json:"email"`
	FullName     string          `json:"full_name"`
	Role         membership.Role `json:"role"`
	BranchID     *string         `json:"branch_id,omitempty"`
	IsActive     bool            `json:"is_active"`
}

// AddMember creates a user (or reuses an existing one by credential) and
// links it to the principal's tenant. Branch admins may only place members
// into their own branch; that restriction is enforced by the authorization
// gate before this call, and re-checked here for the branch pin.
func (s *Service) AddMember(ctx context.Context, p membership.Principal, req MemberRequest) (MemberResponse, error) {
	logger := log.FromContext(ctx).Named("add_member").With(zap.String("tenant_id", p.TenantID))

	if req.Role != membership.RoleAdmin && req.Role != membership.RoleStaff {
		return MemberResponse{}, errors.ErrInvalidArgument.WithMessage("role: must be admin or staff")
	}

	// A branch pin must reference a branch of this organization.
	if req.BranchID != nil {
		branch, err := s.tenants.Get(ctx, *req.BranchID)
		if err != nil {
			if errors.Is(err, store.ErrorNotFound) {
				return MemberResponse{}, errors.ErrNotFound
			}
			return MemberResponse{}, errors.ErrInternal.Wrap(err)
		}
		if branch.ParentID == nil || *branch.ParentID != p.TenantID {
			return MemberResponse{}, errors.ErrNotFound
		}
	}

	// Non-owners pin new members to their own branch.
	if p.RoleType != membership.RoleTypeOwner {
		req.BranchID = p.PinnedBranchID
	}

	userData, err := s.users.GetByCredential(ctx, req.Email)
	switch {
	case err == nil:
		// existing platform user joining another tenant
	case errors.Is(err, store.ErrorNotFound):
		if len(req.Password) < 8 {
			return MemberResponse{}, errors.ErrInvalidArgument.WithMessage("password: must be at least 8 characters")
		}
		hash, hashErr := crypto.HashPassword(req.Password)
		if hashErr != nil {
			return MemberResponse{}, errors.ErrInternal.Wrap(hashErr)
		}
		now := s.now()
		newUser := user.User{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: hash,
			FullName:     req.FullName,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		id, addErr := s.users.Add(ctx, newUser)
		if addErr != nil {
			logger.Error("failed to create user", zap.Error(addErr))
			return MemberResponse{}, errors.ErrInternal.Wrap(addErr)
		}
		newUser.ID = id
		userData = newUser
	default:
		return MemberResponse{}, errors.ErrInternal.Wrap(err)
	}

	m := membership.Membership{
		UserID:   userData.ID,
		TenantID: p.TenantID,
		Role:     req.Role,
		BranchID: req.BranchID,
		IsActive: true,
		JoinedAt: s.now(),
	}
	membershipID, err := s.memberships.Add(ctx, m)
	if err != nil {
		if errors.Is(err, errors.ErrConflict) {
			return MemberResponse{}, errors.ErrConflict.WithMessage("user is already a member of this tenant")
		}
		logger.Error("failed to create membership", zap.Error(err))
		return MemberResponse{}, errors.ErrInternal.Wrap(err)
	}

	logger.Info("member added", zap.String("membership_id", membershipID), zap.String("role", string(req.Role)))
	return MemberResponse{
		MembershipID: membershipID,
		UserID:       userData.ID,
		Username:     userData.Username,
		Email:        userData.Email,
		FullName:     userData.FullName,
		Role:         req.Role,
		BranchID:     req.BranchID,
		IsActive:     true,
	}, nil
}

// ListMembers returns the members of the principal's tenant. Branch admins
// see only members pinned to their branch.
func (s *Service) ListMembers(ctx context.Context, p membership.Principal) ([]MemberResponse, error) {
	rows, err := s.memberships.ListByTenant(ctx, p.TenantID)
	if err != nil {
		return nil, errors.ErrInternal.Wrap(err)
	}

	res := make([]MemberResponse, 0, len(rows))
	for _, m := range rows {
		if p.RoleType != membership.RoleTypeOwner {
			if m.BranchID == nil || p.PinnedBranchID == nil || *m.BranchID != *p.PinnedBranchID {
				continue
			}
		}
		userData, err := s.users.Get(ctx, m.UserID)
		if err != nil {
			if errors.Is(err, store.ErrorNotFound) {
				continue
			}
			return nil, errors.ErrInternal.Wrap(err)
		}
		res = append(res, MemberResponse{
			MembershipID: m.ID,
			UserID:       m.UserID,
			Username:     userData.Username,
			Email:        userData.Email,
			FullName:     userData.FullName,
			Role:         m.Role,
			BranchID:     m.BranchID,
			IsActive:     m.IsActive,
		})
	}
	return res, nil
}

// RemoveMember deactivates a membership in the principal's tenant.
func (s *Service) RemoveMember(ctx context.Context, p membership.Principal, membershipID string) error {
	m, err := s.memberships.Get(ctx, membershipID)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return errors.ErrNotFound
		}
		return errors.ErrInternal.Wrap(err)
	}
	if m.TenantID != p.TenantID {
		return errors.ErrNotFound
	}
	if m.IsOwner {
		return errors.ErrInvalidArgument.WithMessage("the organization owner cannot be removed")
	}
	if p.RoleType != membership.RoleTypeOwner {
		if m.BranchID == nil || p.PinnedBranchID == nil || *m.BranchID != *p.PinnedBranchID {
			return errors.ErrForbidden
		}
	}
	return s.memberships.Deactivate(ctx, membershipID)
}
