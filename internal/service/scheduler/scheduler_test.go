package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"retail-service/internal/adapters/repository/memory"
	"retail-service/internal/domain/subscription"
	"retail-service/internal/domain/tenant"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []subscription.Event
}

func (n *recordingNotifier) Publish(ctx context.Context, event subscription.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) byType(eventType string) []subscription.Event {
	n.mu.Lock()
	defer n.mu.Unlock()

	matched := []subscription.Event{}
	for _, e := range n.events {
		if e.Type == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}

type fixture struct {
	scheduler *Scheduler
	tenants   *memory.TenantRepository
	subs      *memory.SubscriptionRepository
	notifier  *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tenants := memory.NewTenantRepository()
	subs := memory.NewSubscriptionRepository()
	notifier := &recordingNotifier{}

	return &fixture{
		scheduler: New(tenants, subs, notifier, nil, 9, 0, zap.NewNop()),
		tenants:   tenants,
		subs:      subs,
		notifier:  notifier,
	}
}

func (f *fixture) addOrg(t *testing.T, sub string, status tenant.Status, end time.Time, mutate func(*tenant.Tenant)) tenant.Tenant {
	t.Helper()

	org := tenant.Tenant{
		Subdomain: sub, Name: sub, OwnerEmail: sub + "@test",
		Currency: "KES", TaxRate: decimal.NewFromFloat(0.16), Timezone: "UTC",
		SubscriptionStatus: status, IsActive: true,
	}
	switch status {
	case tenant.StatusTrial:
		org.TrialEndsAt = &end
	default:
		org.NextBillingDate = &end
	}
	if mutate != nil {
		mutate(&org)
	}

	id, err := f.tenants.Add(context.Background(), org)
	require.NoError(t, err)
	org.ID = id
	return org
}

var now = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

func TestRunOnce_SendsThresholdWarnings(t *testing.T) {
	f := newFixture(t)

	f.addOrg(t, "seven", tenant.StatusActive, now.AddDate(0, 0, 7), nil)
	f.addOrg(t, "three", tenant.StatusTrial, now.AddDate(0, 0, 3), nil)
	f.addOrg(t, "one", tenant.StatusActive, now.AddDate(0, 0, 1), nil)
	f.addOrg(t, "far", tenant.StatusActive, now.AddDate(0, 0, 20), nil)

	require.NoError(t, f.scheduler.RunOnce(context.Background(), now))

	warnings := f.notifier.byType(subscription.EventExpiryWarning)
	require.Len(t, warnings, 3)

	daysByTenant := map[string]int{}
	for _, w := range warnings {
		daysByTenant[w.Subdomain] = w.DaysLeft
	}
	assert.Equal(t, 7, daysByTenant["seven"])
	assert.Equal(t, 3, daysByTenant["three"])
	assert.Equal(t, 1, daysByTenant["one"])
}

// A second run on the same day resends nothing: the per-(tenant, threshold,
// period) marker holds across restarts.
func TestRunOnce_WarningsNotDuplicated(t *testing.T) {
	f := newFixture(t)

	f.addOrg(t, "seven", tenant.StatusActive, now.AddDate(0, 0, 7), nil)

	require.NoError(t, f.scheduler.RunOnce(context.Background(), now))
	require.NoError(t, f.scheduler.RunOnce(context.Background(), now.Add(2*time.Hour)))

	assert.Len(t, f.notifier.byType(subscription.EventExpiryWarning), 1)
}

// Scenario: an active tenant whose billing date passed yesterday expires,
// its branch entitlements deactivate, its branches expire with it.
func TestRunOnce_ExpiresLapsedTenants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	org := f.addOrg(t, "lapsed", tenant.StatusActive, now.AddDate(0, 0, -1), nil)

	branch := tenant.Tenant{
		Subdomain: "lapsed-b1", Name: "Branch", OwnerEmail: "b@test",
		Currency: "KES", TaxRate: decimal.NewFromFloat(0.16), Timezone: "UTC",
		SubscriptionStatus: tenant.StatusActive, ParentID: &org.ID, IsActive: true,
	}
	end := now.AddDate(0, 0, -1)
	branch.NextBillingDate = &end
	branchID, err := f.tenants.Add(ctx, branch)
	require.NoError(t, err)

	txnID, err := f.subs.CreateTransaction(ctx, subscription.Transaction{
		TenantID: org.ID, Reference: "ref-1", Amount: decimal.NewFromInt(3600),
		Currency: "KES", BillingCycle: subscription.CycleMonthly,
		Status: subscription.StatusSuccess, SubscriptionStart: now.AddDate(0, -1, 0),
	})
	require.NoError(t, err)
	require.NoError(t, f.subs.UpsertBranchSubscription(ctx, subscription.BranchSubscription{
		TransactionID: txnID, TenantID: branchID, IsActive: true,
	}))

	require.NoError(t, f.scheduler.RunOnce(ctx, now))

	reloaded, err := f.tenants.Get(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusExpired, reloaded.SubscriptionStatus)

	reloadedBranch, err := f.tenants.Get(ctx, branchID)
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusExpired, reloadedBranch.SubscriptionStatus)

	rows, err := f.subs.ListBranchSubscriptions(ctx, txnID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].IsActive)

	assert.Len(t, f.notifier.byType(subscription.EventExpired), 1)
}

func TestRunOnce_TrialExpiry(t *testing.T) {
	f := newFixture(t)

	org := f.addOrg(t, "trialist", tenant.StatusTrial, now.AddDate(0, 0, -2), nil)

	require.NoError(t, f.scheduler.RunOnce(context.Background(), now))

	reloaded, err := f.tenants.Get(context.Background(), org.ID)
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusExpired, reloaded.SubscriptionStatus)
}

// Cancelled tenants keep access until the billing date, then lapse.
func TestRunOnce_CancelledLapsesAtBillingDate(t *testing.T) {
	f := newFixture(t)

	keeps := f.addOrg(t, "keeps", tenant.StatusCancelled, now.AddDate(0, 0, 5), nil)
	lapses := f.addOrg(t, "lapses", tenant.StatusCancelled, now.AddDate(0, 0, -1), nil)

	require.NoError(t, f.scheduler.RunOnce(context.Background(), now))

	kept, _ := f.tenants.Get(context.Background(), keeps.ID)
	assert.Equal(t, tenant.StatusCancelled, kept.SubscriptionStatus)

	gone, _ := f.tenants.Get(context.Background(), lapses.ID)
	assert.Equal(t, tenant.StatusExpired, gone.SubscriptionStatus)
}

// A disabled branch is pruned from the saved selection before the next
// auto-charge can bill it.
func TestRunOnce_PrunesSavedSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	org := f.addOrg(t, "renewer", tenant.StatusActive, now.AddDate(0, 0, 20), func(o *tenant.Tenant) {
		o.AutoRenewalEnabled = true
	})

	activeBranch := tenant.Tenant{
		Subdomain: "renewer-b1", Name: "B1", OwnerEmail: "b@test",
		Currency: "KES", TaxRate: decimal.NewFromFloat(0.16), Timezone: "UTC",
		SubscriptionStatus: tenant.StatusActive, ParentID: &org.ID, IsActive: true,
	}
	activeID, err := f.tenants.Add(ctx, activeBranch)
	require.NoError(t, err)

	disabledBranch := activeBranch
	disabledBranch.Subdomain = "renewer-b2"
	disabledBranch.IsActive = false
	disabledID, err := f.tenants.Add(ctx, disabledBranch)
	require.NoError(t, err)

	require.NoError(t, f.tenants.UpdateSubscription(ctx, org.ID, tenant.SubscriptionUpdate{
		SavedBranchSelection: []string{activeID, disabledID},
	}))

	require.NoError(t, f.scheduler.RunOnce(ctx, now))

	reloaded, err := f.tenants.Get(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{activeID}, []string(reloaded.SavedBranchSelection))
}

// Expiry is unconditional: a tenant one day overdue expires on the next
// fire, with no grace applied.
func TestRunOnce_ExpiryIsUnconditional(t *testing.T) {
	f := newFixture(t)

	overdue := f.addOrg(t, "overdue", tenant.StatusActive, now.AddDate(0, 0, -1), nil)

	require.NoError(t, f.scheduler.RunOnce(context.Background(), now))

	expired, err := f.tenants.Get(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusExpired, expired.SubscriptionStatus)
}

func TestNextFire(t *testing.T) {
	before := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC), nextFire(before, 9, 0))

	after := time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC), nextFire(after, 9, 0))
}
