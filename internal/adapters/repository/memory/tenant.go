// Package memory provides mutex-guarded in-memory repositories. They back
// unit tests and local development without a datastore, mirroring the
// semantics of the postgres implementations — including the uniqueness
// behavior verification depends on.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"retail-service/internal/domain/tenant"
	"retail-service/internal/infrastructure/store"
	"retail-service/pkg/errors"
)

type TenantRepository struct {
	mu   sync.RWMutex
	rows map[string]tenant.Tenant
}

func NewTenantRepository() *TenantRepository {
	return &TenantRepository{rows: make(map[string]tenant.Tenant)}
}

func (r *TenantRepository) Add(ctx context.Context, data tenant.Tenant) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.rows {
		if existing.Subdomain == data.Subdomain {
			return "", errors.ErrConflict
		}
	}

	if data.ID == "" {
		data.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if data.CreatedAt.IsZero() {
		data.CreatedAt = now
	}
	data.UpdatedAt = now
	r.rows[data.ID] = data
	return data.ID, nil
}

func (r *TenantRepository) Get(ctx context.Context, id string) (tenant.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.rows[id]
	if !ok {
		return tenant.Tenant{}, store.ErrorNotFound
	}
	return t, nil
}

func (r *TenantRepository) GetBySubdomain(ctx context.Context, subdomain string) (tenant.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.rows {
		if t.Subdomain == subdomain {
			return t, nil
		}
	}
	return tenant.Tenant{}, store.ErrorNotFound
}

func (r *TenantRepository) ListChildren(ctx context.Context, orgID string) ([]tenant.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	children := []tenant.Tenant{}
	for _, t := range r.rows {
		if t.ParentID != nil && *t.ParentID == orgID {
			children = append(children, t)
		}
	}
	return children, nil
}

func (r *TenantRepository) ListByStatus(ctx context.Context, statuses ...tenant.Status) ([]tenant.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []tenant.Tenant{}
	for _, t := range r.rows {
		for _, s := range statuses {
			if t.SubscriptionStatus == s {
				matched = append(matched, t)
				break
			}
		}
	}
	return matched, nil
}

func (r *TenantRepository) Update(ctx context.Context, id string, data tenant.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rows[id]
	if !ok {
		return store.ErrorNotFound
	}

	existing.Name = data.Name
	existing.OwnerEmail = data.OwnerEmail
	existing.Currency = data.Currency
	existing.TaxRate = data.TaxRate
	existing.Timezone = data.Timezone
	existing.MaxUsers = data.MaxUsers
	existing.MaxProducts = data.MaxProducts
	existing.UpdatedAt = time.Now().UTC()
	r.rows[id] = existing
	return nil
}

func (r *TenantRepository) UpdateSubscription(ctx context.Context, id string, upd tenant.SubscriptionUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rows[id]
	if !ok {
		return store.ErrorNotFound
	}

	if upd.Status != nil {
		existing.SubscriptionStatus = *upd.Status
	}
	if upd.NextBillingDate != nil {
		existing.NextBillingDate = upd.NextBillingDate
	}
	if upd.LastPaymentDate != nil {
		existing.LastPaymentDate = upd.LastPaymentDate
	}
	if upd.GatewayAuthorization != nil {
		existing.GatewayAuthorization = upd.GatewayAuthorization
	}
	if upd.AutoRenewalEnabled != nil {
		existing.AutoRenewalEnabled = *upd.AutoRenewalEnabled
	}
	if upd.SavedBranchSelection != nil {
		existing.SavedBranchSelection = pq.StringArray(upd.SavedBranchSelection)
	}
	if upd.BillingCycle != nil {
		existing.BillingCycle = upd.BillingCycle
	}
	existing.UpdatedAt = time.Now().UTC()
	r.rows[id] = existing
	return nil
}

func (r *TenantRepository) SetActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rows[id]
	if !ok {
		return store.ErrorNotFound
	}
	existing.IsActive = active
	r.rows[id] = existing
	return nil
}

func (r *TenantRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.rows)), nil
}
