package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"retail-service/internal/domain/subscription"
	"retail-service/internal/infrastructure/store"
)

const transactionColumns = `
	id, tenant_id, reference, amount, currency, billing_cycle, status,
	subscription_start, subscription_end, branch_ids, pro_rata,
	gateway_authorization, created_at, updated_at`

type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository creates a new instance of SubscriptionRepository.
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// CreateTransaction inserts a pending transaction into the store.
func (r *SubscriptionRepository) CreateTransaction(ctx context.Context, data subscription.Transaction) (string, error) {
	query := `
		INSERT INTO subscription_transactions (tenant_id, reference, amount, currency,
			billing_cycle, status, subscription_start, subscription_end, branch_ids, pro_rata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	branchIDs := data.BranchIDs
	if branchIDs == nil {
		branchIDs = pq.StringArray{}
	}

	args := []interface{}{
		data.TenantID,
		data.Reference,
		data.Amount,
		data.Currency,
		data.BillingCycle,
		data.Status,
		data.SubscriptionStart,
		data.SubscriptionEnd,
		branchIDs,
		data.ProRata,
	}

	var id string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return "", HandleSQLError(err)
	}
	return id, nil
}

// GetTransaction retrieves a transaction by ID.
func (r *SubscriptionRepository) GetTransaction(ctx context.Context, id string) (subscription.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM subscription_transactions WHERE id=$1`

	var txn subscription.Transaction
	if err := r.db.GetContext(ctx, &txn, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return txn, store.ErrorNotFound
		}
		return txn, err
	}
	return txn, nil
}

// GetByReference retrieves a transaction by its gateway reference.
func (r *SubscriptionRepository) GetByReference(ctx context.Context, reference string) (subscription.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM subscription_transactions WHERE reference=$1`

	var txn subscription.Transaction
	if err := r.db.GetContext(ctx, &txn, query, reference); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return txn, store.ErrorNotFound
		}
		return txn, err
	}
	return txn, nil
}

// ListTransactions returns a tenant's transactions, newest first.
func (r *SubscriptionRepository) ListTransactions(ctx context.Context, tenantID string, limit, offset int) ([]subscription.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + transactionColumns + `
		FROM subscription_transactions
		WHERE tenant_id=$1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows := []subscription.Transaction{}
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, limit, offset); err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkFailed records a gateway-declined transaction. Only pending
// transactions move to failed; a concurrent success wins.
func (r *SubscriptionRepository) MarkFailed(ctx context.Context, id string) error {
	query := `
		UPDATE subscription_transactions
		SET status='failed', updated_at=CURRENT_TIMESTAMP
		WHERE id=$1 AND status='pending'
		RETURNING id`

	if err := r.db.QueryRowContext(ctx, query, id).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	return nil
}

// MarkSuccess records a verified transaction with its period end and the
// recurring-charge authorization.
func (r *SubscriptionRepository) MarkSuccess(ctx context.Context, id string, end time.Time, authorization *string) error {
	query := `
		UPDATE subscription_transactions
		SET status='success', subscription_end=$1,
			gateway_authorization=COALESCE($2, gateway_authorization),
			updated_at=CURRENT_TIMESTAMP
		WHERE id=$3
		RETURNING id`

	if err := r.db.QueryRowContext(ctx, query, end, authorization, id).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrorNotFound
		}
		return err
	}
	return nil
}

// UpsertBranchSubscription inserts an entitlement record. The unique
// constraint on (transaction_id, tenant_id) makes duplicate verifications
// a no-op: ON CONFLICT DO NOTHING absorbs the race instead of surfacing it.
func (r *SubscriptionRepository) UpsertBranchSubscription(ctx context.Context, data subscription.BranchSubscription) error {
	query := `
		INSERT INTO branch_subscriptions (transaction_id, tenant_id, is_main_location, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (transaction_id, tenant_id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query, data.TransactionID, data.TenantID, data.IsMainLocation, data.IsActive)
	return HandleSQLError(err)
}

// ListBranchSubscriptions returns the entitlement rows of a transaction.
func (r *SubscriptionRepository) ListBranchSubscriptions(ctx context.Context, transactionID string) ([]subscription.BranchSubscription, error) {
	query := `
		SELECT id, transaction_id, tenant_id, is_main_location, is_active, created_at
		FROM branch_subscriptions
		WHERE transaction_id=$1
		ORDER BY created_at`

	rows := []subscription.BranchSubscription{}
	if err := r.db.SelectContext(ctx, &rows, query, transactionID); err != nil {
		return nil, err
	}
	return rows, nil
}

// DeactivateBranchSubscriptions disables every active entitlement covering
// branches of the given organization.
func (r *SubscriptionRepository) DeactivateBranchSubscriptions(ctx context.Context, orgID string) error {
	query := `
		UPDATE branch_subscriptions bs
		SET is_active=FALSE
		FROM subscription_transactions st
		WHERE bs.transaction_id = st.id AND st.tenant_id=$1 AND bs.is_active`

	_, err := r.db.ExecContext(ctx, query, orgID)
	return err
}

// WarningSent reports whether the (tenant, threshold) warning for the
// period ending at periodEnd was already sent.
func (r *SubscriptionRepository) WarningSent(ctx context.Context, tenantID string, threshold int, periodEnd time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM subscription_warnings
			WHERE tenant_id=$1 AND threshold_days=$2 AND period_end=$3
		)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, tenantID, threshold, periodEnd); err != nil {
		return false, err
	}
	return exists, nil
}

// MarkWarningSent records the warning marker; duplicates are absorbed.
func (r *SubscriptionRepository) MarkWarningSent(ctx context.Context, tenantID string, threshold int, periodEnd time.Time) error {
	query := `
		INSERT INTO subscription_warnings (tenant_id, threshold_days, period_end)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, threshold_days, period_end) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query, tenantID, threshold, periodEnd)
	return err
}
