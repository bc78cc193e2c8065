package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/subscription"
	"retail-service/internal/domain/tenant"
	"retail-service/internal/infrastructure/log"
	"retail-service/pkg/errors"
)

// Initialize opens a checkout for a full billing cycle covering the main
// location plus the selected branches. It creates a pending transaction,
// prices the selection, and returns the gateway's redirect URL. Nothing is
// entitled until verification succeeds.
func (s *Service) Initialize(ctx context.Context, p membership.Principal, payload subscription.InitializePayload) (subscription.InitializeResult, error) {
	logger := log.FromContext(ctx).Named("initialize_subscription").With(
		zap.String("tenant_id", p.TenantID),
		zap.String("cycle", string(payload.Cycle)),
	)

	org, err := s.organizationOf(ctx, p)
	if err != nil {
		return subscription.InitializeResult{}, err
	}

	branchIDs, err := s.validateSelection(ctx, org, payload.BranchIDs)
	if err != nil {
		return subscription.InitializeResult{}, err
	}

	// The main location (the organization root) is always covered; the
	// selection adds branches at the discounted rate.
	covered := append([]string{org.ID}, branchIDs...)
	amount := s.pricing.TotalPrice(payload.Cycle, len(covered))

	now := s.now()
	reference := uuid.New().String()
	txn := subscription.Transaction{
		TenantID:          org.ID,
		Reference:         reference,
		Amount:            amount,
		Currency:          org.Currency,
		BillingCycle:      payload.Cycle,
		Status:            subscription.StatusPending,
		SubscriptionStart: now,
		BranchIDs:         pq.StringArray(covered),
	}
	if _, err := s.subs.CreateTransaction(ctx, txn); err != nil {
		logger.Error("failed to create transaction", zap.Error(err))
		return subscription.InitializeResult{}, errors.ErrInternal.Wrap(err)
	}

	res, err := s.gateway.InitializeTransaction(ctx, subscription.InitializeRequest{
		Reference: reference,
		Amount:    amount,
		Currency:  org.Currency,
		Email:     org.OwnerEmail,
		Metadata: map[string]string{
			"tenant_id": org.ID,
			"cycle":     string(payload.Cycle),
		},
	})
	if err != nil {
		// The pending transaction stays behind; a later initialize simply
		// supersedes it.
		logger.Error("gateway initialize failed", zap.Error(err))
		return subscription.InitializeResult{}, errors.ErrGatewayUnavailable.Wrap(err)
	}

	cycle := string(payload.Cycle)
	if err := s.tenants.UpdateSubscription(ctx, org.ID, tenant.SubscriptionUpdate{
		SavedBranchSelection: branchIDs,
		BillingCycle:         &cycle,
	}); err != nil {
		return subscription.InitializeResult{}, errors.ErrInternal.Wrap(err)
	}

	logger.Info("subscription initialized",
		zap.String("reference", reference),
		zap.String("amount", amount.StringFixed(2)),
		zap.Int("branch_count", len(covered)),
	)
	return subscription.InitializeResult{
		AuthorizationURL: res.AuthorizationURL,
		Reference:        reference,
		Amount:           amount.StringFixed(2),
		Currency:         org.Currency,
	}, nil
}

// AddBranch opens a checkout for a pro-rata mid-cycle branch addition: the
// per-branch cycle price scaled by the remaining days of the period already
// paid for. On verification the branch's entitlement ends at the current
// billing date, keeping all branches on one renewal clock.
func (s *Service) AddBranch(ctx context.Context, p membership.Principal, payload subscription.AddBranchPayload) (subscription.InitializeResult, error) {
	logger := log.FromContext(ctx).Named("add_branch_subscription").With(
		zap.String("branch_id", payload.BranchID),
	)

	org, err := s.organizationOf(ctx, p)
	if err != nil {
		return subscription.InitializeResult{}, err
	}
	if org.SubscriptionStatus != tenant.StatusActive || org.NextBillingDate == nil || org.BillingCycle == nil {
		return subscription.InitializeResult{}, errors.ErrPreconditionFailed.
			WithMessage("mid-cycle additions require an active subscription")
	}

	branchIDs, err := s.validateSelection(ctx, org, []string{payload.BranchID})
	if err != nil {
		return subscription.InitializeResult{}, err
	}
	for _, existing := range org.SavedBranchSelection {
		if existing == payload.BranchID {
			return subscription.InitializeResult{}, errors.ErrConflict.
				WithMessage("branch is already covered by the subscription")
		}
	}

	cycle := subscription.Cycle(*org.BillingCycle)
	now := s.now()
	periodEnd := *org.NextBillingDate
	periodStart := periodEnd.AddDate(0, -cycle.Months(), 0)

	periodDays := int(periodEnd.Sub(periodStart).Hours() / 24)
	remainingDays := int(periodEnd.Sub(now).Hours() / 24)
	amount := s.pricing.ProRata(cycle, remainingDays, periodDays)
	if !amount.IsPositive() {
		return subscription.InitializeResult{}, errors.ErrPreconditionFailed.
			WithMessage("billing period has already ended; renew instead")
	}

	reference := uuid.New().String()
	txn := subscription.Transaction{
		TenantID:          org.ID,
		Reference:         reference,
		Amount:            amount,
		Currency:          org.Currency,
		BillingCycle:      cycle,
		Status:            subscription.StatusPending,
		SubscriptionStart: now,
		SubscriptionEnd:   &periodEnd,
		BranchIDs:         pq.StringArray(branchIDs),
		ProRata:           true,
	}
	if _, err := s.subs.CreateTransaction(ctx, txn); err != nil {
		logger.Error("failed to create pro-rata transaction", zap.Error(err))
		return subscription.InitializeResult{}, errors.ErrInternal.Wrap(err)
	}

	res, err := s.gateway.InitializeTransaction(ctx, subscription.InitializeRequest{
		Reference: reference,
		Amount:    amount,
		Currency:  org.Currency,
		Email:     org.OwnerEmail,
		Metadata: map[string]string{
			"tenant_id": org.ID,
			"branch_id": payload.BranchID,
			"pro_rata":  "true",
		},
	})
	if err != nil {
		logger.Error("gateway initialize failed", zap.Error(err))
		return subscription.InitializeResult{}, errors.ErrGatewayUnavailable.Wrap(err)
	}

	logger.Info("pro-rata branch addition initialized",
		zap.String("reference", reference),
		zap.String("amount", amount.StringFixed(2)),
	)
	return subscription.InitializeResult{
		AuthorizationURL: res.AuthorizationURL,
		Reference:        reference,
		Amount:           amount.StringFixed(2),
		Currency:         org.Currency,
	}, nil
}

// validateSelection confirms every requested branch is an active child of
// the organization, dropping duplicates and the root itself.
func (s *Service) validateSelection(ctx context.Context, org tenant.Tenant, branchIDs []string) ([]string, error) {
	children, err := s.tenants.ListChildren(ctx, org.ID)
	if err != nil {
		return nil, errors.ErrInternal.Wrap(err)
	}

	byID := make(map[string]tenant.Tenant, len(children))
	for _, child := range children {
		byID[child.ID] = child
	}

	seen := make(map[string]bool, len(branchIDs))
	valid := make([]string, 0, len(branchIDs))
	for _, id := range branchIDs {
		if id == org.ID || seen[id] {
			continue
		}
		child, ok := byID[id]
		if !ok {
			return nil, errors.ErrNotFound.WithMessage("unknown branch").WithDetails("branch_id", id)
		}
		if !child.IsActive {
			return nil, errors.ErrInvalidArgument.
				WithMessage("branch is suspended").
				WithDetails("branch_id", id)
		}
		seen[id] = true
		valid = append(valid, id)
	}
	return valid, nil
}
