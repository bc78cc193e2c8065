// Package billing implements the subscription ledger: entitlement state,
// cycle pricing, pro-rata mid-cycle additions, payment transactions against
// the gateway, and the idempotent verification protocol.
package billing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/subscription"
	"retail-service/internal/domain/tenant"
	"retail-service/internal/infrastructure/log"
	"retail-service/internal/infrastructure/store"
	"retail-service/pkg/errors"
)

type Service struct {
	tenants  tenant.Repository
	subs     subscription.Repository
	gateway  subscription.Gateway
	notifier subscription.Notifier
	pricing  subscription.Pricing
}

func New(
	tenants tenant.Repository,
	subs subscription.Repository,
	gateway subscription.Gateway,
	notifier subscription.Notifier,
	pricing subscription.Pricing,
) *Service {
	if notifier == nil {
		notifier = subscription.NopNotifier{}
	}
	return &Service{
		tenants:  tenants,
		subs:     subs,
		gateway:  gateway,
		notifier: notifier,
		pricing:  pricing,
	}
}

func (s *Service) now() time.Time {
	return time.Now().UTC()
}

// organizationOf loads the billing-owning organization for a principal.
func (s *Service) organizationOf(ctx context.Context, p membership.Principal) (tenant.Tenant, error) {
	t, err := s.tenants.Get(ctx, p.TenantID)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return tenant.Tenant{}, errors.ErrNotFound
		}
		return tenant.Tenant{}, errors.ErrInternal.Wrap(err)
	}
	if t.IsOrganization() {
		return t, nil
	}
	org, err := s.tenants.Get(ctx, *t.ParentID)
	if err != nil {
		return tenant.Tenant{}, errors.ErrInternal.Wrap(err)
	}
	return org, nil
}

// Status returns the subscription snapshot for the principal's
// organization. Limits are reported but not enforced.
func (s *Service) Status(ctx context.Context, p membership.Principal) (subscription.StatusResult, error) {
	org, err := s.organizationOf(ctx, p)
	if err != nil {
		return subscription.StatusResult{}, err
	}

	return subscription.StatusResult{
		SubscriptionStatus: string(org.SubscriptionStatus),
		BillingCycle:       org.BillingCycle,
		TrialEndsAt:        org.TrialEndsAt,
		NextBillingDate:    org.NextBillingDate,
		AutoRenewalEnabled: org.AutoRenewalEnabled,
		BranchCount:        len(org.SavedBranchSelection) + 1,
		MaxUsers:           org.MaxUsers,
		MaxProducts:        org.MaxProducts,
	}, nil
}

// ListTransactions returns the organization's payment history.
func (s *Service) ListTransactions(ctx context.Context, p membership.Principal, limit, offset int) ([]subscription.TransactionResponse, error) {
	org, err := s.organizationOf(ctx, p)
	if err != nil {
		return nil, err
	}
	rows, err := s.subs.ListTransactions(ctx, org.ID, limit, offset)
	if err != nil {
		return nil, errors.ErrInternal.Wrap(err)
	}
	return subscription.ParseTransactions(rows), nil
}

// Cancel stops auto-renewal intent: the subscription stays fully usable
// until the already-paid billing date, at which point the scheduler expires
// it.
func (s *Service) Cancel(ctx context.Context, p membership.Principal) error {
	logger := log.FromContext(ctx).Named("cancel_subscription")

	org, err := s.organizationOf(ctx, p)
	if err != nil {
		return err
	}
	if org.SubscriptionStatus != tenant.StatusActive {
		return errors.ErrPreconditionFailed.
			WithMessage("only an active subscription can be cancelled").
			WithDetails("subscription_status", string(org.SubscriptionStatus))
	}

	status := tenant.StatusCancelled
	if err := s.tenants.UpdateSubscription(ctx, org.ID, tenant.SubscriptionUpdate{Status: &status}); err != nil {
		return errors.ErrInternal.Wrap(err)
	}

	logger.Info("subscription cancelled", zap.String("tenant_id", org.ID))
	return nil
}

// Reactivate undoes a cancellation before the billing date passes. The
// target state depends on the trial clock: still-trialing tenants return to
// trial, everyone else to active.
func (s *Service) Reactivate(ctx context.Context, p membership.Principal) error {
	logger := log.FromContext(ctx).Named("reactivate_subscription")

	org, err := s.organizationOf(ctx, p)
	if err != nil {
		return err
	}
	if org.SubscriptionStatus != tenant.StatusCancelled {
		return errors.ErrPreconditionFailed.
			WithMessage("only a cancelled subscription can be reactivated").
			WithDetails("subscription_status", string(org.SubscriptionStatus))
	}

	now := s.now()
	status := tenant.StatusActive
	if org.TrialEndsAt != nil && org.TrialEndsAt.After(now) {
		status = tenant.StatusTrial
	}

	if err := s.tenants.UpdateSubscription(ctx, org.ID, tenant.SubscriptionUpdate{Status: &status}); err != nil {
		return errors.ErrInternal.Wrap(err)
	}

	logger.Info("subscription reactivated",
		zap.String("tenant_id", org.ID),
		zap.String("status", string(status)),
	)
	return nil
}

// EnableAutoRenewal registers a recurring plan against the stored gateway
// authorization.
func (s *Service) EnableAutoRenewal(ctx context.Context, p membership.Principal) error {
	org, err := s.organizationOf(ctx, p)
	if err != nil {
		return err
	}
	if org.GatewayAuthorization == nil {
		return errors.ErrPreconditionFailed.WithMessage("no stored payment authorization; complete a payment first")
	}
	if org.BillingCycle == nil {
		return errors.ErrPreconditionFailed.WithMessage("no billing cycle on record")
	}

	cycle := subscription.Cycle(*org.BillingCycle)
	amount := s.pricing.TotalPrice(cycle, len(org.SavedBranchSelection)+1)
	if err := s.gateway.CreateRecurringPlan(ctx, org.ID, cycle, amount, *org.GatewayAuthorization); err != nil {
		return errors.ErrGatewayUnavailable.Wrap(err)
	}

	enabled := true
	if err := s.tenants.UpdateSubscription(ctx, org.ID, tenant.SubscriptionUpdate{AutoRenewalEnabled: &enabled}); err != nil {
		return errors.ErrInternal.Wrap(err)
	}
	return nil
}

// DisableAutoRenewal revokes the recurring authorization.
func (s *Service) DisableAutoRenewal(ctx context.Context, p membership.Principal) error {
	org, err := s.organizationOf(ctx, p)
	if err != nil {
		return err
	}

	if org.GatewayAuthorization != nil {
		if err := s.gateway.DisableAuthorization(ctx, *org.GatewayAuthorization); err != nil {
			return errors.ErrGatewayUnavailable.Wrap(err)
		}
	}

	disabled := false
	if err := s.tenants.UpdateSubscription(ctx, org.ID, tenant.SubscriptionUpdate{AutoRenewalEnabled: &disabled}); err != nil {
		return errors.ErrInternal.Wrap(err)
	}
	return nil
}
