package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-service/internal/adapters/repository/memory"
	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/subscription"
	"retail-service/internal/domain/tenant"
	"retail-service/pkg/errors"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// mockGateway scripts the external provider.
type mockGateway struct {
	mu          sync.Mutex
	verifyCalls int
	succeed     bool
	unavailable bool
	auth        *string
}

func (g *mockGateway) InitializeTransaction(ctx context.Context, req subscription.InitializeRequest) (subscription.InitializeResponse, error) {
	if g.unavailable {
		return subscription.InitializeResponse{}, context.DeadlineExceeded
	}
	return subscription.InitializeResponse{
		AuthorizationURL: "https://checkout.test/" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (g *mockGateway) VerifyTransaction(ctx context.Context, reference string) (subscription.VerifyResponse, error) {
	g.mu.Lock()
	g.verifyCalls++
	g.mu.Unlock()

	if g.unavailable {
		return subscription.VerifyResponse{}, context.DeadlineExceeded
	}
	return subscription.VerifyResponse{
		Reference:     reference,
		Success:       g.succeed,
		Authorization: g.auth,
	}, nil
}

func (g *mockGateway) CreateRecurringPlan(ctx context.Context, tenantID string, cycle subscription.Cycle, amount decimal.Decimal, authorization string) error {
	if g.unavailable {
		return context.DeadlineExceeded
	}
	return nil
}

func (g *mockGateway) DisableAuthorization(ctx context.Context, authorization string) error {
	return nil
}

func (g *mockGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verifyCalls
}

type fixture struct {
	service *Service
	tenants *memory.TenantRepository
	subs    *memory.SubscriptionRepository
	gateway *mockGateway

	org    tenant.Tenant
	b1, b2 tenant.Tenant
}

func ownerOf(tenantID string) membership.Principal {
	return membership.Principal{UserID: "owner-1", TenantID: tenantID, RoleType: membership.RoleTypeOwner}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	tenants := memory.NewTenantRepository()
	subs := memory.NewSubscriptionRepository()
	gateway := &mockGateway{succeed: true}

	trialEnds := time.Now().UTC().AddDate(0, 0, 10)
	org := tenant.Tenant{
		Subdomain: "acme", Name: "Acme", OwnerEmail: "owner@acme.test",
		Currency: "KES", TaxRate: d("0.16"), Timezone: "Africa/Nairobi",
		SubscriptionStatus: tenant.StatusTrial, TrialEndsAt: &trialEnds, IsActive: true,
	}
	orgID, err := tenants.Add(ctx, org)
	require.NoError(t, err)
	org.ID = orgID

	addBranch := func(sub string) tenant.Tenant {
		b := org
		b.ID = ""
		b.Subdomain = sub
		b.ParentID = &orgID
		id, err := tenants.Add(ctx, b)
		require.NoError(t, err)
		b.ID = id
		return b
	}
	b1 := addBranch("acme-b1")
	b2 := addBranch("acme-b2")

	service := New(tenants, subs, gateway, nil, subscription.Pricing{
		Base:       d("2000"),
		BranchRate: d("0.8"),
	})

	return &fixture{service: service, tenants: tenants, subs: subs, gateway: gateway, org: org, b1: b1, b2: b2}
}

func TestInitialize_PricesSelection(t *testing.T) {
	f := newFixture(t)

	res, err := f.service.Initialize(context.Background(), ownerOf(f.org.ID), subscription.InitializePayload{
		Cycle:     subscription.CycleMonthly,
		BranchIDs: []string{f.b1.ID},
	})
	require.NoError(t, err)

	// main location 2000 + one branch at 1600
	assert.Equal(t, "3600.00", res.Amount)
	assert.NotEmpty(t, res.Reference)
	assert.Contains(t, res.AuthorizationURL, res.Reference)

	txn, err := f.subs.GetByReference(context.Background(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPending, txn.Status)
	assert.ElementsMatch(t, []string{f.org.ID, f.b1.ID}, []string(txn.BranchIDs))
}

func TestInitialize_RejectsForeignBranch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	foreignID, err := f.tenants.Add(ctx, tenant.Tenant{
		Subdomain: "rival", Name: "Rival", OwnerEmail: "o@rival.test",
		Currency: "KES", TaxRate: d("0.16"), Timezone: "UTC",
		SubscriptionStatus: tenant.StatusTrial, IsActive: true,
	})
	require.NoError(t, err)

	_, err = f.service.Initialize(ctx, ownerOf(f.org.ID), subscription.InitializePayload{
		Cycle:     subscription.CycleMonthly,
		BranchIDs: []string{foreignID},
	})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestVerify_ActivatesTenants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	authToken := "AUTH_xyz"
	f.gateway.auth = &authToken

	res, err := f.service.Initialize(ctx, ownerOf(f.org.ID), subscription.InitializePayload{
		Cycle:     subscription.CycleMonthly,
		BranchIDs: []string{f.b1.ID},
	})
	require.NoError(t, err)

	verdict, err := f.service.Verify(ctx, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusSuccess, verdict.Status)
	require.NotNil(t, verdict.SubscriptionEnd)
	assert.ElementsMatch(t, []string{f.org.ID, f.b1.ID}, verdict.BranchesEnabled)

	org, err := f.tenants.Get(ctx, f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusActive, org.SubscriptionStatus)
	require.NotNil(t, org.NextBillingDate)
	require.NotNil(t, org.GatewayAuthorization)
	assert.Equal(t, authToken, *org.GatewayAuthorization)

	b1, err := f.tenants.Get(ctx, f.b1.ID)
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusActive, b1.SubscriptionStatus)

	// the un-selected branch stays as it was
	b2, err := f.tenants.Get(ctx, f.b2.ID)
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusTrial, b2.SubscriptionStatus)

	txn, err := f.subs.GetByReference(ctx, res.Reference)
	require.NoError(t, err)
	rows, err := f.subs.ListBranchSubscriptions(ctx, txn.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

// Scenario: verify three times concurrently — one success outcome, one set
// of entitlement rows, no error surfaced to any caller, and repeats never
// hit the gateway once settled.
func TestVerify_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.Initialize(ctx, ownerOf(f.org.ID), subscription.InitializePayload{
		Cycle:     subscription.CycleMonthly,
		BranchIDs: []string{f.b1.ID, f.b2.ID},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.service.Verify(ctx, res.Reference)
		}(i)
	}
	wg.Wait()

	for i, err := range results {
		assert.NoError(t, err, "caller %d", i)
	}

	txn, err := f.subs.GetByReference(ctx, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusSuccess, txn.Status)

	rows, err := f.subs.ListBranchSubscriptions(ctx, txn.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 3, "org root plus two branches, exactly once each")

	// a later verify is answered from the cache without gateway traffic
	callsBefore := f.gateway.calls()
	again, err := f.service.Verify(ctx, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusSuccess, again.Status)
	assert.Equal(t, callsBefore, f.gateway.calls())
}

func TestVerify_GatewayFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.succeed = false

	res, err := f.service.Initialize(ctx, ownerOf(f.org.ID), subscription.InitializePayload{
		Cycle: subscription.CycleMonthly,
	})
	require.NoError(t, err)

	verdict, err := f.service.Verify(ctx, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusFailed, verdict.Status)

	org, err := f.tenants.Get(ctx, f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusTrial, org.SubscriptionStatus, "a failed charge changes nothing")
}

// A gateway outage leaves the transaction pending; the next verify
// completes it.
func TestVerify_UnavailableStaysPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.Initialize(ctx, ownerOf(f.org.ID), subscription.InitializePayload{
		Cycle: subscription.CycleMonthly,
	})
	require.NoError(t, err)

	f.gateway.unavailable = true
	_, err = f.service.Verify(ctx, res.Reference)
	assert.True(t, errors.Is(err, errors.ErrGatewayUnavailable))

	txn, err := f.subs.GetByReference(ctx, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPending, txn.Status)

	f.gateway.unavailable = false
	verdict, err := f.service.Verify(ctx, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusSuccess, verdict.Status)
}

func TestVerify_InvalidReference(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Verify(context.Background(), "no-such-reference")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

// Scenario: mid-cycle branch addition is pro-rated and, on verification,
// pinned to the organization's existing billing date.
func TestAddBranch_ProRata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// activate with the main location + branch one
	res, err := f.service.Initialize(ctx, ownerOf(f.org.ID), subscription.InitializePayload{
		Cycle:     subscription.CycleMonthly,
		BranchIDs: []string{f.b1.ID},
	})
	require.NoError(t, err)
	_, err = f.service.Verify(ctx, res.Reference)
	require.NoError(t, err)

	orgBefore, err := f.tenants.Get(ctx, f.org.ID)
	require.NoError(t, err)
	require.NotNil(t, orgBefore.NextBillingDate)
	billingDate := *orgBefore.NextBillingDate

	add, err := f.service.AddBranch(ctx, ownerOf(f.org.ID), subscription.AddBranchPayload{BranchID: f.b2.ID})
	require.NoError(t, err)

	amount := d(add.Amount)
	assert.True(t, amount.IsPositive())
	assert.True(t, amount.LessThanOrEqual(d("1600")), "never more than the full per-branch price, got %s", amount)

	verdict, err := f.service.Verify(ctx, add.Reference)
	require.NoError(t, err)
	require.NotNil(t, verdict.SubscriptionEnd)
	assert.True(t, verdict.SubscriptionEnd.Equal(billingDate), "entitlement ends at the existing billing date")

	orgAfter, err := f.tenants.Get(ctx, f.org.ID)
	require.NoError(t, err)
	assert.True(t, orgAfter.NextBillingDate.Equal(billingDate), "the billing clock must not move")
	assert.Contains(t, []string(orgAfter.SavedBranchSelection), f.b2.ID)

	_, err = f.service.AddBranch(ctx, ownerOf(f.org.ID), subscription.AddBranchPayload{BranchID: f.b2.ID})
	assert.True(t, errors.Is(err, errors.ErrConflict), "already covered")
}

func TestCancelAndReactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := ownerOf(f.org.ID)

	// cancel requires active
	err := f.service.Cancel(ctx, p)
	assert.True(t, errors.Is(err, errors.ErrPreconditionFailed))

	res, err := f.service.Initialize(ctx, p, subscription.InitializePayload{Cycle: subscription.CycleMonthly})
	require.NoError(t, err)
	_, err = f.service.Verify(ctx, res.Reference)
	require.NoError(t, err)

	require.NoError(t, f.service.Cancel(ctx, p))
	org, _ := f.tenants.Get(ctx, f.org.ID)
	assert.Equal(t, tenant.StatusCancelled, org.SubscriptionStatus)

	// trial clock still running → reactivate lands on trial
	require.NoError(t, f.service.Reactivate(ctx, p))
	org, _ = f.tenants.Get(ctx, f.org.ID)
	assert.Equal(t, tenant.StatusTrial, org.SubscriptionStatus)
}

func TestReactivate_AfterTrialEndsLandsActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// an organization whose trial clock already ran out
	past := time.Now().UTC().AddDate(0, 0, -1)
	orgID, err := f.tenants.Add(ctx, tenant.Tenant{
		Subdomain: "veteran", Name: "Veteran", OwnerEmail: "o@veteran.test",
		Currency: "KES", TaxRate: d("0.16"), Timezone: "UTC",
		SubscriptionStatus: tenant.StatusTrial, TrialEndsAt: &past, IsActive: true,
	})
	require.NoError(t, err)
	p := ownerOf(orgID)

	res, err := f.service.Initialize(ctx, p, subscription.InitializePayload{Cycle: subscription.CycleMonthly})
	require.NoError(t, err)
	_, err = f.service.Verify(ctx, res.Reference)
	require.NoError(t, err)
	require.NoError(t, f.service.Cancel(ctx, p))

	require.NoError(t, f.service.Reactivate(ctx, p))
	org, err := f.tenants.Get(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusActive, org.SubscriptionStatus)
}

func TestHandleWebhook_ChargeSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.Initialize(ctx, ownerOf(f.org.ID), subscription.InitializePayload{Cycle: subscription.CycleMonthly})
	require.NoError(t, err)

	payload := []byte(`{"event":"charge.success","data":{"reference":"` + res.Reference + `","status":"success"}}`)
	require.NoError(t, f.service.HandleWebhook(ctx, payload))

	txn, err := f.subs.GetByReference(ctx, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusSuccess, txn.Status)

	// a redelivered webhook is acknowledged without effect
	require.NoError(t, f.service.HandleWebhook(ctx, payload))
}

func TestHandleWebhook_MalformedPayload(t *testing.T) {
	f := newFixture(t)

	err := f.service.HandleWebhook(context.Background(), []byte(`{not json`))
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}
