package identity

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-service/internal/adapters/repository/memory"
	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/tenant"
	"retail-service/internal/domain/user"
	"retail-service/internal/infrastructure/auth"
	"retail-service/pkg/crypto"
	"retail-service/pkg/errors"
)

type fixture struct {
	service     *Service
	tenants     *memory.TenantRepository
	users       *memory.UserRepository
	memberships *memory.MembershipRepository

	org     tenant.Tenant
	b1, b2  tenant.Tenant
	ownerID string
	staffID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	tenants := memory.NewTenantRepository()
	users := memory.NewUserRepository()
	memberships := memory.NewMembershipRepository()
	jwt := auth.NewJWTService("test-secret-key-at-least-32-characters", time.Hour, "test")

	service := New(users, tenants, memberships, jwt, Defaults{
		Currency:        "KES",
		TaxRate:         "0.16",
		Timezone:        "Africa/Nairobi",
		TrialPeriodDays: 14,
	})

	trialEnds := time.Now().UTC().AddDate(0, 1, 0)
	org := tenant.Tenant{
		Subdomain:          "acme",
		Name:               "Acme Retail",
		OwnerEmail:         "owner@acme.test",
		Currency:           "KES",
		TaxRate:            decimal.NewFromFloat(0.16),
		Timezone:           "Africa/Nairobi",
		SubscriptionStatus: tenant.StatusTrial,
		TrialEndsAt:        &trialEnds,
		IsActive:           true,
	}
	orgID, err := tenants.Add(ctx, org)
	require.NoError(t, err)
	org.ID = orgID

	newBranch := func(sub, name string) tenant.Tenant {
		b := org
		b.ID = ""
		b.Subdomain = sub
		b.Name = name
		b.ParentID = &orgID
		id, err := tenants.Add(ctx, b)
		require.NoError(t, err)
		b.ID = id
		return b
	}
	b1 := newBranch("acme-b1", "Acme Branch One")
	b2 := newBranch("acme-b2", "Acme Branch Two")

	hash, err := crypto.HashPassword("owner-password")
	require.NoError(t, err)
	ownerID, err := users.Add(ctx, user.User{
		Username:     "acme-owner",
		Email:        "owner@acme.test",
		PasswordHash: hash,
		FullName:     "Acme Owner",
		IsActive:     true,
	})
	require.NoError(t, err)

	staffHash, err := crypto.HashPassword("staff-password")
	require.NoError(t, err)
	staffID, err := users.Add(ctx, user.User{
		Username:     "acme-staff",
		Email:        "staff@acme.test",
		PasswordHash: staffHash,
		FullName:     "Acme Staff",
		IsActive:     true,
	})
	require.NoError(t, err)

	// Owner: admin on the org, no branch pin.
	_, err = memberships.Add(ctx, membership.Membership{
		UserID: ownerID, TenantID: orgID, Role: membership.RoleAdmin, IsOwner: true, IsActive: true,
	})
	require.NoError(t, err)

	// Staff: on the org, pinned to branch one.
	_, err = memberships.Add(ctx, membership.Membership{
		UserID: staffID, TenantID: orgID, Role: membership.RoleStaff, BranchID: &b1.ID, IsActive: true,
	})
	require.NoError(t, err)

	return &fixture{
		service:     service,
		tenants:     tenants,
		users:       users,
		memberships: memberships,
		org:         org,
		b1:          b1,
		b2:          b2,
		ownerID:     ownerID,
		staffID:     staffID,
	}
}

func TestAuthenticate_Success(t *testing.T) {
	f := newFixture(t)

	session, err := f.service.Authenticate(context.Background(), "acme-owner", "owner-password", "acme")
	require.NoError(t, err)

	assert.NotEmpty(t, session.Token)
	assert.Equal(t, f.org.ID, session.Tenant.ID)
	assert.Equal(t, membership.RoleTypeOwner, session.User.RoleType)
	assert.Nil(t, session.User.PinnedBranchID)
}

func TestAuthenticate_ByEmail(t *testing.T) {
	f := newFixture(t)

	session, err := f.service.Authenticate(context.Background(), "owner@acme.test", "owner-password", "acme")
	require.NoError(t, err)
	assert.Equal(t, f.ownerID, session.User.ID)
}

func TestAuthenticate_UnknownTenant(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Authenticate(context.Background(), "acme-owner", "owner-password", "nope")
	assert.True(t, errors.Is(err, ErrUnknownTenant))
}

// Wrong password, unknown user, and missing membership are the same opaque
// error: no account enumeration.
func TestAuthenticate_OpaqueFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, wrongPassword := f.service.Authenticate(ctx, "acme-owner", "bad-password", "acme")
	_, unknownUser := f.service.Authenticate(ctx, "nobody", "bad-password", "acme")

	assert.True(t, errors.Is(wrongPassword, errors.ErrInvalidCredentials))
	assert.True(t, errors.Is(unknownUser, errors.ErrInvalidCredentials))
}

func TestAuthenticate_SuspendedParentDeniesBranch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.tenants.SetActive(ctx, f.org.ID, false))

	_, err := f.service.Authenticate(ctx, "acme-staff", "staff-password", "acme-b1")
	assert.True(t, errors.Is(err, ErrInactive))
}

// Scenario: a user with one membership (org, admin, no pin) switches into a
// branch and arrives as owner there.
func TestSwitchTenant_SuperUser(t *testing.T) {
	f := newFixture(t)

	session, err := f.service.SwitchTenant(context.Background(), f.ownerID, f.b2.ID)
	require.NoError(t, err)

	assert.Equal(t, f.b2.ID, session.Tenant.ID)
	assert.Equal(t, membership.RoleTypeOwner, session.User.RoleType)
}

// The super-user rule holds for every branch of the organization,
// regardless of the membership's branch pin.
func TestSwitchTenant_SuperUserReachesAllBranches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, target := range []string{f.b1.ID, f.b2.ID, f.org.ID} {
		_, err := f.service.SwitchTenant(ctx, f.ownerID, target)
		assert.NoError(t, err, target)
	}

	// Even a branch-pinned org admin may enter any branch.
	pinnedAdminHash, err := crypto.HashPassword("pinned-password")
	require.NoError(t, err)
	pinnedID, err := f.users.Add(ctx, userFixture("pinned-admin", "pinned@acme.test", pinnedAdminHash))
	require.NoError(t, err)
	_, err = f.memberships.Add(ctx, membership.Membership{
		UserID: pinnedID, TenantID: f.org.ID, Role: membership.RoleAdmin, BranchID: &f.b1.ID, IsActive: true,
	})
	require.NoError(t, err)

	_, err = f.service.SwitchTenant(ctx, pinnedID, f.b2.ID)
	assert.NoError(t, err, "branch pin restricts staff, never admins")
}

// Scenario: staff pinned to branch one may not switch to branch two.
func TestSwitchTenant_StaffRestrictedToPin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.service.SwitchTenant(ctx, f.staffID, f.b1.ID)
	require.NoError(t, err)
	assert.Equal(t, membership.RoleTypeStaff, session.User.RoleType)
	require.NotNil(t, session.User.PinnedBranchID)
	assert.Equal(t, f.b1.ID, *session.User.PinnedBranchID)

	_, err = f.service.SwitchTenant(ctx, f.staffID, f.b2.ID)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestSwitchTenant_UnrelatedTenantHidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	otherID, err := f.tenants.Add(ctx, tenant.Tenant{
		Subdomain: "rival", Name: "Rival", OwnerEmail: "o@rival.test",
		Currency: "KES", TaxRate: decimal.NewFromFloat(0.16), Timezone: "UTC",
		SubscriptionStatus: tenant.StatusTrial, IsActive: true,
	})
	require.NoError(t, err)

	_, err = f.service.SwitchTenant(ctx, f.ownerID, otherID)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	_, err = f.service.SwitchTenant(ctx, f.ownerID, "no-such-tenant")
	assert.True(t, errors.Is(err, errors.ErrForbidden), "missing and foreign tenants are indistinguishable")
}

// Role changes take effect on the next resolve without token reissue.
func TestResolve_RecomputesRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, _, err := f.service.Resolve(ctx, f.staffID, f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, membership.RoleTypeStaff, p.RoleType)

	m, err := f.memberships.GetByUserAndTenant(ctx, f.staffID, f.org.ID)
	require.NoError(t, err)
	m.Role = membership.RoleAdmin
	m.BranchID = nil
	require.NoError(t, f.memberships.Update(ctx, m.ID, m))

	p, _, err = f.service.Resolve(ctx, f.staffID, f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, membership.RoleTypeOwner, p.RoleType)
}

func TestRefreshToken_ReissuesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.service.RefreshToken(ctx, f.staffID, f.org.ID)
	require.NoError(t, err)

	assert.NotEmpty(t, session.Token)
	assert.Equal(t, f.org.ID, session.Tenant.ID)
	assert.Equal(t, membership.RoleTypeStaff, session.User.RoleType)

	// a role change is reflected in the refreshed session
	m, err := f.memberships.GetByUserAndTenant(ctx, f.staffID, f.org.ID)
	require.NoError(t, err)
	m.Role = membership.RoleAdmin
	m.BranchID = nil
	require.NoError(t, f.memberships.Update(ctx, m.ID, m))

	session, err = f.service.RefreshToken(ctx, f.staffID, f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, membership.RoleTypeOwner, session.User.RoleType)
}

// A deactivated membership cannot extend its session.
func TestRefreshToken_DeniedAfterRevocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.memberships.GetByUserAndTenant(ctx, f.staffID, f.org.ID)
	require.NoError(t, err)
	require.NoError(t, f.memberships.Deactivate(ctx, m.ID))

	_, err = f.service.RefreshToken(ctx, f.staffID, f.org.ID)
	assert.True(t, errors.Is(err, ErrInactive))
}

func TestRegister_CreatesTrialOrgWithOwner(t *testing.T) {
	f := newFixture(t)

	session, err := f.service.Register(context.Background(), tenant.RegisterRequest{
		Subdomain:  "fresh",
		Name:       "Fresh Mart",
		OwnerEmail: "boss@fresh.test",
		OwnerName:  "Boss",
		Username:   "fresh-boss",
		Password:   "fresh-password",
	})
	require.NoError(t, err)

	assert.Equal(t, tenant.StatusTrial, session.Tenant.SubscriptionStatus)
	assert.NotNil(t, session.Tenant.TrialEndsAt)
	assert.Equal(t, membership.RoleTypeOwner, session.User.RoleType)

	_, err = f.service.Register(context.Background(), tenant.RegisterRequest{
		Subdomain:  "fresh",
		Name:       "Copycat",
		OwnerEmail: "copy@cat.test",
		Username:   "copycat",
		Password:   "copycat-password",
	})
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestCreateBranch_InheritsSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, _, err := f.service.Resolve(ctx, f.ownerID, f.org.ID)
	require.NoError(t, err)

	created, err := f.service.CreateBranch(ctx, p, tenant.BranchRequest{Subdomain: "acme-b3", Name: "Branch Three"})
	require.NoError(t, err)

	assert.Equal(t, f.org.Currency, created.Currency)
	require.NotNil(t, created.ParentID)
	assert.Equal(t, f.org.ID, *created.ParentID)

	// branches cannot own branches
	branchPrincipal, _, err := f.service.Resolve(ctx, f.ownerID, f.b1.ID)
	require.NoError(t, err)
	branchPrincipal.TenantID = f.b1.ID
	_, err = f.service.CreateBranch(ctx, branchPrincipal, tenant.BranchRequest{Subdomain: "nested", Name: "Nested"})
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}

func userFixture(username, email, hash string) user.User {
	return user.User{Username: username, Email: email, PasswordHash: hash, FullName: username, IsActive: true}
}
