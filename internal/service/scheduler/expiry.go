package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"retail-service/internal/domain/subscription"
	"retail-service/internal/domain/tenant"
	"retail-service/pkg/timeutil"
)

// sendWarnings notifies tenants whose entitlement ends in exactly 7, 3, or
// 1 day(s). A per-(tenant, threshold, period-end) marker makes each warning
// fire once even across restarts and catch-up runs.
func (s *Scheduler) sendWarnings(ctx context.Context, now time.Time) error {
	tenants, err := s.tenants.ListByStatus(ctx, tenant.StatusTrial, tenant.StatusActive)
	if err != nil {
		return err
	}

	for _, t := range tenants {
		// Warnings address organizations; branches follow their parent.
		if t.IsBranch() {
			continue
		}
		end := t.EffectiveEndDate()
		if end == nil {
			continue
		}

		daysLeft := timeutil.DaysUntilDate(now, *end)
		for _, threshold := range subscription.WarningThresholds {
			if daysLeft != threshold {
				continue
			}

			sent, err := s.subs.WarningSent(ctx, t.ID, threshold, *end)
			if err != nil {
				return err
			}
			if sent {
				continue
			}

			s.publish(ctx, subscription.Event{
				Type:      subscription.EventExpiryWarning,
				TenantID:  t.ID,
				Subdomain: t.Subdomain,
				Email:     t.OwnerEmail,
				DaysLeft:  threshold,
				PeriodEnd: end.Format(time.RFC3339),
			})

			if err := s.subs.MarkWarningSent(ctx, t.ID, threshold, *end); err != nil {
				return err
			}
			s.logger.Info("expiry warning sent",
				zap.String("tenant_id", t.ID),
				zap.Int("days_left", threshold),
			)
		}
	}
	return nil
}

// expireLapsed transitions every tenant whose end date has passed to
// expired, deactivates the branch entitlements of the period, and notifies
// the owner. Cancelled tenants lapse the same way once their paid-for
// period ends.
func (s *Scheduler) expireLapsed(ctx context.Context, now time.Time) error {
	tenants, err := s.tenants.ListByStatus(ctx, tenant.StatusTrial, tenant.StatusActive, tenant.StatusCancelled)
	if err != nil {
		return err
	}

	expired := tenant.StatusExpired
	for _, t := range tenants {
		end := t.EffectiveEndDate()
		if end == nil || !now.After(*end) {
			continue
		}

		if err := s.tenants.UpdateSubscription(ctx, t.ID, tenant.SubscriptionUpdate{Status: &expired}); err != nil {
			return err
		}

		if t.IsOrganization() {
			// Branch entitlements of the lapsed period go with it.
			if err := s.subs.DeactivateBranchSubscriptions(ctx, t.ID); err != nil {
				return err
			}

			// Branches share the organization's clock; expire them too so
			// branch-scoped sessions degrade to read-only.
			children, err := s.tenants.ListChildren(ctx, t.ID)
			if err != nil {
				return err
			}
			for _, child := range children {
				if child.SubscriptionStatus == tenant.StatusExpired {
					continue
				}
				if err := s.tenants.UpdateSubscription(ctx, child.ID, tenant.SubscriptionUpdate{Status: &expired}); err != nil {
					return err
				}
			}

			s.publish(ctx, subscription.Event{
				Type:      subscription.EventExpired,
				TenantID:  t.ID,
				Subdomain: t.Subdomain,
				Email:     t.OwnerEmail,
				PeriodEnd: end.Format(time.RFC3339),
			})
		}

		s.logger.Info("subscription expired",
			zap.String("tenant_id", t.ID),
			zap.Time("ended_at", *end),
		)
	}
	return nil
}

// reconcileAutoRenewals validates saved branch selections against currently
// active branches. The gateway's recurring-charge webhook performs the
// actual renewal; the scheduler never initiates charges. Pruning here keeps
// a disabled branch from being billed on the next auto-charge.
func (s *Scheduler) reconcileAutoRenewals(ctx context.Context) error {
	tenants, err := s.tenants.ListByStatus(ctx, tenant.StatusActive)
	if err != nil {
		return err
	}

	for _, t := range tenants {
		if !t.IsOrganization() || !t.AutoRenewalEnabled || len(t.SavedBranchSelection) == 0 {
			continue
		}

		children, err := s.tenants.ListChildren(ctx, t.ID)
		if err != nil {
			return err
		}
		activeByID := make(map[string]bool, len(children))
		for _, child := range children {
			activeByID[child.ID] = child.IsActive
		}

		pruned := make([]string, 0, len(t.SavedBranchSelection))
		for _, id := range t.SavedBranchSelection {
			if activeByID[id] {
				pruned = append(pruned, id)
			}
		}
		if len(pruned) == len(t.SavedBranchSelection) {
			continue
		}

		if err := s.tenants.UpdateSubscription(ctx, t.ID, tenant.SubscriptionUpdate{SavedBranchSelection: pruned}); err != nil {
			return err
		}
		s.logger.Info("pruned saved branch selection",
			zap.String("tenant_id", t.ID),
			zap.Int("removed", len(t.SavedBranchSelection)-len(pruned)),
		)
	}
	return nil
}

func (s *Scheduler) publish(ctx context.Context, event subscription.Event) {
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish billing event",
			zap.String("type", event.Type),
			zap.String("tenant_id", event.TenantID),
			zap.Error(err),
		)
	}
}
