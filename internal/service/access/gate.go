// Package access is the authorization gate: a pure decision over the
// permission matrix, consulted before any mutating operation and any read
// crossing branch boundaries. No storage access happens here; callers load
// the tenant row and pass it in.
package access

import (
	"time"

	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/tenant"
	"retail-service/pkg/errors"
)

// Action is a request-level capability. The set is closed.
type Action string

const (
	ActionDashboardView      Action = "dashboard.view"
	ActionReportsView        Action = "reports.view"
	ActionSaleCreate         Action = "sale.create"
	ActionSaleViewAll        Action = "sale.view_all"
	ActionSaleViewOwn        Action = "sale.view_own"
	ActionCatalogEdit        Action = "catalog.edit"
	ActionStockEdit          Action = "stock.edit"
	ActionMemberManage       Action = "member.manage"
	ActionSettingsEdit       Action = "settings.edit"
	ActionSubscriptionManage Action = "subscription.manage"
)

// scope is how far a role may exercise an action.
type scope int

const (
	scopeNone scope = iota
	scopeOwnBranch
	scopeAny
)

// matrix maps role type × action → scope. A compile-time table; there is no
// dynamic capability dispatch.
var matrix = map[membership.RoleType]map[Action]scope{
	membership.RoleTypeOwner: {
		ActionDashboardView:      scopeAny,
		ActionReportsView:        scopeAny,
		ActionSaleCreate:         scopeAny,
		ActionSaleViewAll:        scopeAny,
		ActionSaleViewOwn:        scopeAny,
		ActionCatalogEdit:        scopeAny,
		ActionStockEdit:          scopeAny,
		ActionMemberManage:       scopeAny,
		ActionSettingsEdit:       scopeAny,
		ActionSubscriptionManage: scopeAny,
	},
	membership.RoleTypeBranchAdmin: {
		ActionDashboardView: scopeOwnBranch,
		ActionReportsView:   scopeOwnBranch,
		ActionSaleCreate:    scopeOwnBranch,
		ActionSaleViewAll:   scopeOwnBranch,
		ActionSaleViewOwn:   scopeAny,
		ActionCatalogEdit:   scopeOwnBranch,
		ActionStockEdit:     scopeOwnBranch,
		ActionMemberManage:  scopeOwnBranch,
	},
	membership.RoleTypeStaff: {
		ActionSaleCreate:  scopeOwnBranch,
		ActionSaleViewOwn: scopeAny,
	},
}

// mutating lists the actions blocked by a lapsed subscription. Reads stay
// allowed: an expired tenant degrades to read-only, it is not locked out.
var mutating = map[Action]bool{
	ActionSaleCreate:         true,
	ActionCatalogEdit:        true,
	ActionStockEdit:          true,
	ActionMemberManage:       true,
	ActionSettingsEdit:       true,
	ActionSubscriptionManage: false, // paying must stay possible when expired
}

// Authorize decides whether the principal may perform action within t,
// optionally targeting a branch. t is the tenant the request is scoped to
// (the principal's tenant, already resolved).
//
// Returns nil on allow; a forbidden error when the matrix or branch scope
// denies; a precondition-failed error when only the subscription state
// blocks the action.
func Authorize(p membership.Principal, action Action, t tenant.Tenant, branchID *string, now time.Time) error {
	perms, ok := matrix[p.RoleType]
	if !ok {
		return errors.ErrForbidden
	}
	sc, ok := perms[action]
	if !ok || sc == scopeNone {
		return errors.ErrForbidden.WithDetails("action", string(action))
	}

	if sc == scopeOwnBranch {
		target := t.ID
		if branchID != nil {
			target = *branchID
		}
		if !p.OperatesOn(target) {
			return errors.ErrForbidden.WithDetails("action", string(action)).WithDetails("branch_id", target)
		}
	}

	// Subscription cross-cut: mutating actions require a live entitlement.
	if mutating[action] && !t.SubscriptionAllowsMutation(now) {
		return errors.ErrPreconditionFailed.
			WithDetails("action", string(action)).
			WithDetails("subscription_status", string(t.SubscriptionStatus))
	}

	return nil
}
