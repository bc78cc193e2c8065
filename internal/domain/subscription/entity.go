// Package subscription models the billing plane: payment transactions
// against the external gateway, the per-branch entitlement records they
// produce, cycle pricing, and pro-rata math.
package subscription

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Cycle is a billing cycle variant.
type Cycle string

const (
	CycleMonthly    Cycle = "monthly"
	CycleSemiAnnual Cycle = "semi_annual"
	CycleAnnual     Cycle = "annual"
)

// ValidCycle reports whether c is a known billing cycle.
func ValidCycle(c Cycle) bool {
	switch c {
	case CycleMonthly, CycleSemiAnnual, CycleAnnual:
		return true
	}
	return false
}

// Months returns the period length of the cycle in calendar months.
func (c Cycle) Months() int {
	switch c {
	case CycleSemiAnnual:
		return 6
	case CycleAnnual:
		return 12
	default:
		return 1
	}
}

// Status of a payment transaction.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Transaction is one payment attempt against the gateway. Reference is the
// externally visible identifier and the primary idempotency key for
// verification.
type Transaction struct {
	ID       string `db:"id"`
	TenantID string `db:"tenant_id"`

	Reference    string          `db:"reference"`
	Amount       decimal.Decimal `db:"amount"`
	Currency     string          `db:"currency"`
	BillingCycle Cycle           `db:"billing_cycle"`
	Status       Status          `db:"status"`

	SubscriptionStart time.Time  `db:"subscription_start"`
	SubscriptionEnd   *time.Time `db:"subscription_end"`

	// BranchIDs is the selection requested at initialization; verification
	// enables exactly these branches.
	BranchIDs pq.StringArray `db:"branch_ids"`

	// ProRata marks a mid-cycle branch addition: its end date is pinned to
	// the period already paid for rather than a fresh cycle.
	ProRata bool `db:"pro_rata"`

	GatewayAuthorization *string `db:"gateway_authorization"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// BranchSubscription is the historical record that a branch was covered by
// a transaction. The (transaction_id, tenant_id) uniqueness is the core
// idempotency guarantee of verification: a duplicate verify cannot produce
// a second row.
type BranchSubscription struct {
	ID             string    `db:"id"`
	TransactionID  string    `db:"transaction_id"`
	TenantID       string    `db:"tenant_id"`
	IsMainLocation bool      `db:"is_main_location"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
}

// WarningThresholds are the days-before-expiry marks at which the scheduler
// sends renewal warnings, highest urgency last.
var WarningThresholds = []int{7, 3, 1}
