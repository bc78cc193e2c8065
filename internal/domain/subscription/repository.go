package subscription

import (
	"context"
	"time"
)

// Repository defines the interface for billing persistence.
type Repository interface {
	// CreateTransaction inserts a pending transaction and returns its ID.
	CreateTransaction(ctx context.Context, data Transaction) (string, error)

	// GetTransaction retrieves a transaction by ID.
	GetTransaction(ctx context.Context, id string) (Transaction, error)

	// GetByReference retrieves a transaction by its gateway reference.
	GetByReference(ctx context.Context, reference string) (Transaction, error)

	// ListTransactions returns a tenant's transactions, newest first.
	ListTransactions(ctx context.Context, tenantID string, limit, offset int) ([]Transaction, error)

	// MarkFailed records a gateway-declined transaction.
	MarkFailed(ctx context.Context, id string) error

	// MarkSuccess records a verified transaction together with its period
	// end and the recurring-charge authorization token.
	MarkSuccess(ctx context.Context, id string, end time.Time, authorization *string) error

	// UpsertBranchSubscription inserts an entitlement record, relying on
	// the (transaction_id, tenant_id) uniqueness: inserting an existing
	// pair is a no-op, never an error surfaced to the caller.
	UpsertBranchSubscription(ctx context.Context, data BranchSubscription) error

	// ListBranchSubscriptions returns the entitlement rows of a transaction.
	ListBranchSubscriptions(ctx context.Context, transactionID string) ([]BranchSubscription, error)

	// DeactivateBranchSubscriptions disables every active entitlement
	// covering branches of the given organization.
	DeactivateBranchSubscriptions(ctx context.Context, orgID string) error

	// WarningSent reports whether the (tenant, threshold) warning for the
	// period ending at periodEnd was already sent.
	WarningSent(ctx context.Context, tenantID string, threshold int, periodEnd time.Time) (bool, error)

	// MarkWarningSent records the warning marker. Duplicate markers are
	// ignored.
	MarkWarningSent(ctx context.Context, tenantID string, threshold int, periodEnd time.Time) error
}
