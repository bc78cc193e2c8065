package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"retail-service/internal/domain/tenant"
	"retail-service/internal/infrastructure/store"
)

const tenantColumns = `
	id, subdomain, name, owner_email, currency, tax_rate, timezone, parent_id,
	subscription_status, trial_ends_at, next_billing_date, last_payment_date,
	auto_renewal_enabled, gateway_authorization, saved_branch_selection,
	billing_cycle, max_users, max_products, is_active, created_at, updated_at`

type TenantRepository struct {
	db *sqlx.DB
}

// NewTenantRepository creates a new instance of TenantRepository.
func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Add inserts a new tenant into the store.
func (r *TenantRepository) Add(ctx context.Context, data tenant.Tenant) (string, error) {
	query := `
		INSERT INTO tenants (subdomain, name, owner_email, currency, tax_rate, timezone, parent_id,
			subscription_status, trial_ends_at, next_billing_date, auto_renewal_enabled,
			saved_branch_selection, max_users, max_products, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, COALESCE($16, CURRENT_TIMESTAMP), COALESCE($17, CURRENT_TIMESTAMP))
		RETURNING id`

	selection := data.SavedBranchSelection
	if selection == nil {
		selection = pq.StringArray{}
	}

	args := []interface{}{
		data.Subdomain,
		data.Name,
		data.OwnerEmail,
		data.Currency,
		data.TaxRate,
		data.Timezone,
		data.ParentID,
		data.SubscriptionStatus,
		data.TrialEndsAt,
		data.NextBillingDate,
		data.AutoRenewalEnabled,
		selection,
		data.MaxUsers,
		data.MaxProducts,
		data.IsActive,
		nullableTime(data.CreatedAt),
		nullableTime(data.UpdatedAt),
	}

	var id string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return "", HandleSQLError(err)
	}
	return id, nil
}

// Get retrieves a tenant by ID from the store.
func (r *TenantRepository) Get(ctx context.Context, id string) (tenant.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE id=$1`, tenantColumns)

	var t tenant.Tenant
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, store.ErrorNotFound
		}
		return t, err
	}
	return t, nil
}

// GetBySubdomain retrieves a tenant by its subdomain.
func (r *TenantRepository) GetBySubdomain(ctx context.Context, subdomain string) (tenant.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE subdomain=$1`, tenantColumns)

	var t tenant.Tenant
	if err := r.db.GetContext(ctx, &t, query, subdomain); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, store.ErrorNotFound
		}
		return t, err
	}
	return t, nil
}

// ListChildren retrieves the branches of an organization.
func (r *TenantRepository) ListChildren(ctx context.Context, orgID string) ([]tenant.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE parent_id=$1 ORDER BY created_at`, tenantColumns)

	tenants := []tenant.Tenant{}
	if err := r.db.SelectContext(ctx, &tenants, query, orgID); err != nil {
		return nil, err
	}
	return tenants, nil
}

// ListByStatus retrieves tenants in any of the given subscription states.
func (r *TenantRepository) ListByStatus(ctx context.Context, statuses ...tenant.Status) ([]tenant.Tenant, error) {
	raw := make([]string, len(statuses))
	for i, s := range statuses {
		raw[i] = string(s)
	}

	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE subscription_status = ANY($1) ORDER BY created_at`, tenantColumns)

	tenants := []tenant.Tenant{}
	if err := r.db.SelectContext(ctx, &tenants, query, pq.Array(raw)); err != nil {
		return nil, err
	}
	return tenants, nil
}

// Update modifies business settings of an existing tenant. The subdomain is
// immutable after creation and deliberately absent here.
func (r *TenantRepository) Update(ctx context.Context, id string, data tenant.Tenant) error {
	query := `
		UPDATE tenants
		SET name=$1, owner_email=$2, currency=$3, tax_rate=$4, timezone=$5,
			max_users=$6, max_products=$7, updated_at=CURRENT_TIMESTAMP
		WHERE id=$8
		RETURNING id`

	args := []interface{}{
		data.Name,
		data.OwnerEmail,
		data.Currency,
		data.TaxRate,
		data.Timezone,
		data.MaxUsers,
		data.MaxProducts,
		id,
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrorNotFound
		}
		return err
	}
	return nil
}

// UpdateSubscription applies billing-plane changes to one tenant.
func (r *TenantRepository) UpdateSubscription(ctx context.Context, id string, upd tenant.SubscriptionUpdate) error {
	sets, args := r.prepareSubscriptionArgs(upd)
	if len(args) == 0 {
		return nil
	}

	args = append(args, id)
	sets = append(sets, "updated_at=CURRENT_TIMESTAMP")
	query := fmt.Sprintf("UPDATE tenants SET %s WHERE id=$%d RETURNING id", strings.Join(sets, ", "), len(args))

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrorNotFound
		}
		return err
	}
	return nil
}

// prepareSubscriptionArgs prepares the arguments for the update query.
func (r *TenantRepository) prepareSubscriptionArgs(upd tenant.SubscriptionUpdate) ([]string, []interface{}) {
	var sets []string
	var args []interface{}

	if upd.Status != nil {
		args = append(args, *upd.Status)
		sets = append(sets, fmt.Sprintf("subscription_status=$%d", len(args)))
	}
	if upd.NextBillingDate != nil {
		args = append(args, *upd.NextBillingDate)
		sets = append(sets, fmt.Sprintf("next_billing_date=$%d", len(args)))
	}
	if upd.LastPaymentDate != nil {
		args = append(args, *upd.LastPaymentDate)
		sets = append(sets, fmt.Sprintf("last_payment_date=$%d", len(args)))
	}
	if upd.GatewayAuthorization != nil {
		args = append(args, *upd.GatewayAuthorization)
		sets = append(sets, fmt.Sprintf("gateway_authorization=$%d", len(args)))
	}
	if upd.AutoRenewalEnabled != nil {
		args = append(args, *upd.AutoRenewalEnabled)
		sets = append(sets, fmt.Sprintf("auto_renewal_enabled=$%d", len(args)))
	}
	if upd.SavedBranchSelection != nil {
		args = append(args, pq.Array(upd.SavedBranchSelection))
		sets = append(sets, fmt.Sprintf("saved_branch_selection=$%d", len(args)))
	}
	if upd.BillingCycle != nil {
		args = append(args, *upd.BillingCycle)
		sets = append(sets, fmt.Sprintf("billing_cycle=$%d", len(args)))
	}

	return sets, args
}

// SetActive flips the administrative suspension flag.
func (r *TenantRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `
		UPDATE tenants
		SET is_active=$1, updated_at=CURRENT_TIMESTAMP
		WHERE id=$2
		RETURNING id`

	if err := r.db.QueryRowContext(ctx, query, active, id).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrorNotFound
		}
		return err
	}
	return nil
}

// Count returns the number of tenants.
func (r *TenantRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM tenants`); err != nil {
		return 0, err
	}
	return count, nil
}
