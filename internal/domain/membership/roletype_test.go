package membership

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"retail-service/internal/domain/tenant"
)

func org() tenant.Tenant {
	return tenant.Tenant{ID: "org-1"}
}

func branch() tenant.Tenant {
	parent := "org-1"
	return tenant.Tenant{ID: "branch-1", ParentID: &parent}
}

func TestDeriveRoleType(t *testing.T) {
	branchID := "branch-1"

	cases := []struct {
		name string
		m    Membership
		t    tenant.Tenant
		want RoleType
	}{
		{"org admin unpinned is owner", Membership{Role: RoleAdmin}, org(), RoleTypeOwner},
		{"org admin flagged owner stays owner despite pin", Membership{Role: RoleAdmin, BranchID: &branchID, IsOwner: true}, org(), RoleTypeOwner},
		{"org admin pinned is branch admin", Membership{Role: RoleAdmin, BranchID: &branchID}, org(), RoleTypeBranchAdmin},
		{"branch admin is branch admin", Membership{Role: RoleAdmin}, branch(), RoleTypeBranchAdmin},
		{"org staff is staff", Membership{Role: RoleStaff}, org(), RoleTypeStaff},
		{"branch staff is staff", Membership{Role: RoleStaff}, branch(), RoleTypeStaff},
		{"pinned staff is staff", Membership{Role: RoleStaff, BranchID: &branchID}, org(), RoleTypeStaff},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveRoleType(tc.m, tc.t))
		})
	}
}

// The derivation is pure: repeated calls with the same rows agree.
func TestDeriveRoleType_Pure(t *testing.T) {
	m := Membership{Role: RoleAdmin}
	for i := 0; i < 100; i++ {
		assert.Equal(t, RoleTypeOwner, DeriveRoleType(m, org()))
	}
}

func TestPrincipal_OperatesOn(t *testing.T) {
	branchID := "branch-1"

	owner := Principal{RoleType: RoleTypeOwner}
	assert.True(t, owner.OperatesOn("branch-1"))
	assert.True(t, owner.OperatesOn("anything"))

	pinned := Principal{RoleType: RoleTypeStaff, PinnedBranchID: &branchID}
	assert.True(t, pinned.OperatesOn("branch-1"))
	assert.False(t, pinned.OperatesOn("branch-2"))

	unpinned := Principal{RoleType: RoleTypeStaff}
	assert.False(t, unpinned.OperatesOn("branch-1"))
}
