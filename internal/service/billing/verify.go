package billing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"retail-service/internal/domain/subscription"
	"retail-service/internal/domain/tenant"
	"retail-service/internal/infrastructure/log"
	"retail-service/internal/infrastructure/store"
	"retail-service/pkg/errors"
)

// verifyAttempts bounds the retry loop for racing verifications: the loser
// of a uniqueness race re-reads the transaction and is caught by the
// already-success early return.
const verifyAttempts = 3

// Verify settles a transaction by reference. Safe under arbitrary
// repetition — page refreshes, webhook retries, and client retries all land
// here:
//
//  1. Unknown references fail without touching the gateway.
//  2. An already-successful transaction returns its cached outcome and
//     writes nothing. This early return is what makes repetition free.
//  3. Otherwise the gateway is queried; a non-success verdict marks the
//     transaction failed.
//  4. On success the entitlement rows are upserted — the
//     (transaction, branch) uniqueness constraint is the concurrency
//     primitive, no application lock exists — tenants flip to active, and
//     the transaction is marked successful.
//
// A gateway timeout leaves the transaction pending; the next verify
// completes it.
func (s *Service) Verify(ctx context.Context, reference string) (subscription.VerifyResult, error) {
	logger := log.FromContext(ctx).Named("verify_subscription").With(zap.String("reference", reference))

	var lastErr error
	for attempt := 0; attempt < verifyAttempts; attempt++ {
		res, err := s.verifyOnce(ctx, logger, reference)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, errors.ErrConflict) {
			return subscription.VerifyResult{}, err
		}
		// Lost a race against a concurrent verify; re-read and return the
		// winner's outcome.
		lastErr = err
	}
	return subscription.VerifyResult{}, lastErr
}

func (s *Service) verifyOnce(ctx context.Context, logger *zap.Logger, reference string) (subscription.VerifyResult, error) {
	txn, err := s.subs.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return subscription.VerifyResult{}, errors.ErrNotFound.WithMessage("invalid reference")
		}
		return subscription.VerifyResult{}, errors.ErrInternal.Wrap(err)
	}

	// Mandatory early return: repeat verifications never talk to the
	// gateway and never write.
	if txn.Status == subscription.StatusSuccess {
		return subscription.VerifyResult{
			Reference:       reference,
			Status:          subscription.StatusSuccess,
			SubscriptionEnd: txn.SubscriptionEnd,
			BranchesEnabled: []string(txn.BranchIDs),
		}, nil
	}
	if txn.Status == subscription.StatusFailed {
		return subscription.VerifyResult{Reference: reference, Status: subscription.StatusFailed}, nil
	}

	verdict, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		logger.Warn("gateway verify unavailable; transaction stays pending", zap.Error(err))
		return subscription.VerifyResult{}, errors.ErrGatewayUnavailable.Wrap(err)
	}

	if !verdict.Success {
		if err := s.subs.MarkFailed(ctx, txn.ID); err != nil {
			return subscription.VerifyResult{}, errors.ErrInternal.Wrap(err)
		}
		logger.Info("transaction failed at gateway")
		return subscription.VerifyResult{Reference: reference, Status: subscription.StatusFailed}, nil
	}

	end := s.subscriptionEnd(txn)

	// Entitlement rows first: the uniqueness constraint on
	// (transaction_id, tenant_id) guarantees a racing duplicate cannot
	// produce a second row.
	for _, branchID := range txn.BranchIDs {
		err := s.subs.UpsertBranchSubscription(ctx, subscription.BranchSubscription{
			TransactionID:  txn.ID,
			TenantID:       branchID,
			IsMainLocation: branchID == txn.TenantID,
			IsActive:       true,
		})
		if err != nil {
			return subscription.VerifyResult{}, err
		}
	}

	if err := s.activateTenants(ctx, txn, end, verdict.Authorization); err != nil {
		return subscription.VerifyResult{}, err
	}

	if err := s.subs.MarkSuccess(ctx, txn.ID, end, verdict.Authorization); err != nil {
		if errors.Is(err, errors.ErrConflict) {
			return subscription.VerifyResult{}, err
		}
		return subscription.VerifyResult{}, errors.ErrInternal.Wrap(err)
	}

	org, err := s.tenants.Get(ctx, txn.TenantID)
	if err == nil {
		s.publish(ctx, subscription.Event{
			Type:      subscription.EventActivated,
			TenantID:  org.ID,
			Subdomain: org.Subdomain,
			Email:     org.OwnerEmail,
			PeriodEnd: end.Format(time.RFC3339),
		})
	}

	logger.Info("transaction verified",
		zap.Time("subscription_end", end),
		zap.Int("branches_enabled", len(txn.BranchIDs)),
	)
	return subscription.VerifyResult{
		Reference:       reference,
		Status:          subscription.StatusSuccess,
		SubscriptionEnd: &end,
		BranchesEnabled: []string(txn.BranchIDs),
	}, nil
}

// subscriptionEnd computes the entitlement end for a transaction: pro-rata
// additions are pinned to the period already paid for, full-cycle payments
// run a fresh cycle from the transaction start.
func (s *Service) subscriptionEnd(txn subscription.Transaction) time.Time {
	if txn.ProRata && txn.SubscriptionEnd != nil {
		return *txn.SubscriptionEnd
	}
	return txn.SubscriptionStart.AddDate(0, txn.BillingCycle.Months(), 0)
}

// activateTenants flips the organization and every covered branch to
// active with the new billing date. The organization additionally records
// the payment and the recurring-charge authorization.
func (s *Service) activateTenants(ctx context.Context, txn subscription.Transaction, end time.Time, authorization *string) error {
	now := s.now()
	active := tenant.StatusActive
	cycle := string(txn.BillingCycle)

	orgUpdate := tenant.SubscriptionUpdate{
		Status:          &active,
		NextBillingDate: &end,
		LastPaymentDate: &now,
		BillingCycle:    &cycle,
	}
	if authorization != nil {
		orgUpdate.GatewayAuthorization = authorization
	}
	if txn.ProRata {
		// A pro-rata addition must not move the organization's billing
		// clock; only the branch entitlements change.
		org, err := s.tenants.Get(ctx, txn.TenantID)
		if err != nil {
			return errors.ErrInternal.Wrap(err)
		}
		selection := append([]string{}, org.SavedBranchSelection...)
		for _, branchID := range txn.BranchIDs {
			if branchID != org.ID && !containsString(selection, branchID) {
				selection = append(selection, branchID)
			}
		}
		orgUpdate.NextBillingDate = org.NextBillingDate
		orgUpdate.SavedBranchSelection = selection
	}
	if err := s.tenants.UpdateSubscription(ctx, txn.TenantID, orgUpdate); err != nil {
		return errors.ErrInternal.Wrap(err)
	}

	for _, branchID := range txn.BranchIDs {
		if branchID == txn.TenantID {
			continue
		}
		branchUpdate := tenant.SubscriptionUpdate{
			Status:          &active,
			NextBillingDate: &end,
		}
		if err := s.tenants.UpdateSubscription(ctx, branchID, branchUpdate); err != nil {
			return errors.ErrInternal.Wrap(err)
		}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event subscription.Event) {
	if err := s.notifier.Publish(ctx, event); err != nil {
		log.FromContext(ctx).Warn("failed to publish billing event",
			zap.String("type", event.Type),
			zap.Error(err),
		)
	}
}

func containsString(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
