package identity

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/tenant"
	"retail-service/internal/domain/user"
	"retail-service/internal/infrastructure/log"
	"retail-service/internal/infrastructure/store"
	"retail-service/pkg/crypto"
	"retail-service/pkg/errors"
)

// Register creates an organization with its owner account in one flow:
// tenant on trial, user, and an owner membership. The trial clock starts at
// registration.
func (s *Service) Register(ctx context.Context, req tenant.RegisterRequest) (Session, error) {
	logger := log.FromContext(ctx).Named("register").With(zap.String("subdomain", req.Subdomain))

	if _, err := s.tenants.GetBySubdomain(ctx, req.Subdomain); err == nil {
		return Session{}, errors.ErrConflict.WithMessage("subdomain is already taken")
	} else if !errors.Is(err, store.ErrorNotFound) {
		return Session{}, errors.ErrInternal.Wrap(err)
	}

	taken, err := s.users.CredentialExists(ctx, req.Username, req.OwnerEmail)
	if err != nil {
		return Session{}, errors.ErrInternal.Wrap(err)
	}
	if taken {
		return Session{}, errors.ErrConflict.WithMessage("username or email is already taken")
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return Session{}, errors.ErrInternal.Wrap(err)
	}

	now := s.now()
	trialEnds := now.Add(time.Duration(s.defaults.TrialPeriodDays) * 24 * time.Hour)

	taxRate, currency, timezone := s.defaults.TaxRate, s.defaults.Currency, s.defaults.Timezone
	if req.TaxRate != "" {
		taxRate = req.TaxRate
	}
	if req.Currency != "" {
		currency = req.Currency
	}
	if req.Timezone != "" {
		timezone = req.Timezone
	}
	rate, err := decimal.NewFromString(taxRate)
	if err != nil {
		return Session{}, errors.ErrInvalidArgument.WithMessage("tax_rate: must be a decimal fraction")
	}

	t := tenant.Tenant{
		Subdomain:          req.Subdomain,
		Name:               req.Name,
		OwnerEmail:         req.OwnerEmail,
		Currency:           currency,
		TaxRate:            rate,
		Timezone:           timezone,
		SubscriptionStatus: tenant.StatusTrial,
		TrialEndsAt:        &trialEnds,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	tenantID, err := s.tenants.Add(ctx, t)
	if err != nil {
		if errors.Is(err, errors.ErrConflict) {
			return Session{}, errors.ErrConflict.WithMessage("subdomain is already taken")
		}
		logger.Error("failed to create tenant", zap.Error(err))
		return Session{}, errors.ErrInternal.Wrap(err)
	}
	t.ID = tenantID

	u := user.User{
		Username:     req.Username,
		Email:        req.OwnerEmail,
		PasswordHash: hash,
		FullName:     req.OwnerName,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	userID, err := s.users.Add(ctx, u)
	if err != nil {
		logger.Error("failed to create owner user", zap.Error(err))
		return Session{}, errors.ErrInternal.Wrap(err)
	}
	u.ID = userID

	m := membership.Membership{
		UserID:   userID,
		TenantID: tenantID,
		Role:     membership.RoleAdmin,
		IsOwner:  true,
		IsActive: true,
		JoinedAt: now,
	}
	if _, err := s.memberships.Add(ctx, m); err != nil {
		logger.Error("failed to create owner membership", zap.Error(err))
		return Session{}, errors.ErrInternal.Wrap(err)
	}

	logger.Info("organization registered", zap.String("tenant_id", tenantID))
	return s.session(u, t, s.principalFrom(m, t))
}

// CreateBranch adds a branch tenant under the caller's organization,
// inheriting the parent's business settings. Branches start on the parent's
// subscription state so a trialing organization can trial its branches.
func (s *Service) CreateBranch(ctx context.Context, p membership.Principal, req tenant.BranchRequest) (tenant.Response, error) {
	logger := log.FromContext(ctx).Named("create_branch").With(zap.String("tenant_id", p.TenantID))

	org, err := s.tenants.Get(ctx, p.TenantID)
	if err != nil {
		return tenant.Response{}, errors.ErrInternal.Wrap(err)
	}
	if org.IsBranch() {
		return tenant.Response{}, errors.ErrInvalidArgument.WithMessage("branches cannot own branches")
	}

	if _, err := s.tenants.GetBySubdomain(ctx, req.Subdomain); err == nil {
		return tenant.Response{}, errors.ErrConflict.WithMessage("subdomain is already taken")
	} else if !errors.Is(err, store.ErrorNotFound) {
		return tenant.Response{}, errors.ErrInternal.Wrap(err)
	}

	now := s.now()
	branch := tenant.Tenant{
		Subdomain:          req.Subdomain,
		Name:               req.Name,
		OwnerEmail:         org.OwnerEmail,
		Currency:           org.Currency,
		TaxRate:            org.TaxRate,
		Timezone:           org.Timezone,
		ParentID:           &org.ID,
		SubscriptionStatus: org.SubscriptionStatus,
		TrialEndsAt:        org.TrialEndsAt,
		NextBillingDate:    org.NextBillingDate,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	id, err := s.tenants.Add(ctx, branch)
	if err != nil {
		if errors.Is(err, errors.ErrConflict) {
			return tenant.Response{}, errors.ErrConflict.WithMessage("subdomain is already taken")
		}
		logger.Error("failed to create branch", zap.Error(err))
		return tenant.Response{}, errors.ErrInternal.Wrap(err)
	}
	branch.ID = id

	logger.Info("branch created", zap.String("branch_id", id))
	return tenant.ParseFromEntity(branch), nil
}
