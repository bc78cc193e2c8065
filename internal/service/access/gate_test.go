package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/tenant"
	"retail-service/pkg/errors"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func activeOrg() tenant.Tenant {
	future := now.AddDate(0, 1, 0)
	return tenant.Tenant{
		ID:                 "org-1",
		SubscriptionStatus: tenant.StatusActive,
		NextBillingDate:    &future,
		IsActive:           true,
	}
}

func activeBranch(id string) tenant.Tenant {
	t := activeOrg()
	parent := "org-1"
	t.ID = id
	t.ParentID = &parent
	return t
}

func owner() membership.Principal {
	return membership.Principal{UserID: "u-1", TenantID: "org-1", RoleType: membership.RoleTypeOwner}
}

func branchAdmin(branchID string) membership.Principal {
	return membership.Principal{UserID: "u-2", TenantID: branchID, RoleType: membership.RoleTypeBranchAdmin, PinnedBranchID: &branchID}
}

func staff(branchID string) membership.Principal {
	return membership.Principal{UserID: "u-3", TenantID: branchID, RoleType: membership.RoleTypeStaff, PinnedBranchID: &branchID}
}

func TestAuthorize_OwnerHasFullMatrix(t *testing.T) {
	actions := []Action{
		ActionDashboardView, ActionReportsView, ActionSaleCreate, ActionSaleViewAll,
		ActionSaleViewOwn, ActionCatalogEdit, ActionStockEdit, ActionMemberManage,
		ActionSettingsEdit, ActionSubscriptionManage,
	}
	for _, action := range actions {
		assert.NoError(t, Authorize(owner(), action, activeOrg(), nil, now), string(action))
	}
}

func TestAuthorize_OwnerCrossesBranches(t *testing.T) {
	other := "branch-2"
	assert.NoError(t, Authorize(owner(), ActionSaleCreate, activeBranch("branch-1"), &other, now))
	assert.NoError(t, Authorize(owner(), ActionDashboardView, activeOrg(), &other, now))
}

func TestAuthorize_BranchAdminScopedToOwnBranch(t *testing.T) {
	p := branchAdmin("branch-1")

	assert.NoError(t, Authorize(p, ActionCatalogEdit, activeBranch("branch-1"), nil, now))
	assert.NoError(t, Authorize(p, ActionSaleCreate, activeBranch("branch-1"), nil, now))

	other := "branch-2"
	err := Authorize(p, ActionCatalogEdit, activeBranch("branch-1"), &other, now)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	err = Authorize(p, ActionSubscriptionManage, activeBranch("branch-1"), nil, now)
	assert.True(t, errors.Is(err, errors.ErrForbidden), "billing is owner-only")
}

func TestAuthorize_StaffCanOnlySell(t *testing.T) {
	p := staff("branch-1")

	assert.NoError(t, Authorize(p, ActionSaleCreate, activeBranch("branch-1"), nil, now))
	assert.NoError(t, Authorize(p, ActionSaleViewOwn, activeBranch("branch-1"), nil, now))

	denied := []Action{
		ActionDashboardView, ActionReportsView, ActionSaleViewAll,
		ActionCatalogEdit, ActionStockEdit, ActionMemberManage, ActionSettingsEdit,
	}
	for _, action := range denied {
		err := Authorize(p, action, activeBranch("branch-1"), nil, now)
		assert.True(t, errors.Is(err, errors.ErrForbidden), string(action))
	}
}

func TestAuthorize_StaffCannotSellInOtherBranch(t *testing.T) {
	other := "branch-2"
	err := Authorize(staff("branch-1"), ActionSaleCreate, activeBranch("branch-1"), &other, now)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

// An expired subscription collapses mutating actions to precondition_failed
// while reads keep working — read-only degradation, not lockout.
func TestAuthorize_ExpiredIsReadOnly(t *testing.T) {
	expired := activeOrg()
	expired.SubscriptionStatus = tenant.StatusExpired

	err := Authorize(owner(), ActionSaleCreate, expired, nil, now)
	assert.True(t, errors.Is(err, errors.ErrPreconditionFailed))

	err = Authorize(owner(), ActionCatalogEdit, expired, nil, now)
	assert.True(t, errors.Is(err, errors.ErrPreconditionFailed))

	assert.NoError(t, Authorize(owner(), ActionDashboardView, expired, nil, now))
	assert.NoError(t, Authorize(owner(), ActionReportsView, expired, nil, now))
	// paying a lapsed subscription must stay possible
	assert.NoError(t, Authorize(owner(), ActionSubscriptionManage, expired, nil, now))
}

// Cancelled keeps full capability until the billing date passes.
func TestAuthorize_CancelledUntilBillingDate(t *testing.T) {
	cancelled := activeOrg()
	cancelled.SubscriptionStatus = tenant.StatusCancelled

	assert.NoError(t, Authorize(owner(), ActionSaleCreate, cancelled, nil, now))

	past := now.AddDate(0, -1, 0)
	cancelled.NextBillingDate = &past
	err := Authorize(owner(), ActionSaleCreate, cancelled, nil, now)
	assert.True(t, errors.Is(err, errors.ErrPreconditionFailed))
}

func TestAuthorize_TrialAllowsMutation(t *testing.T) {
	trial := activeOrg()
	trial.SubscriptionStatus = tenant.StatusTrial

	assert.NoError(t, Authorize(owner(), ActionSaleCreate, trial, nil, now))
}

func TestAuthorize_UnknownActionDenied(t *testing.T) {
	err := Authorize(owner(), Action("warehouse.teleport"), activeOrg(), nil, now)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}
