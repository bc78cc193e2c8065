package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"retail-service/internal/domain/membership"
	"retail-service/internal/infrastructure/store"
	"retail-service/pkg/errors"
)

type MembershipRepository struct {
	mu   sync.RWMutex
	rows map[string]membership.Membership
}

func NewMembershipRepository() *MembershipRepository {
	return &MembershipRepository{rows: make(map[string]membership.Membership)}
}

func (r *MembershipRepository) Add(ctx context.Context, data membership.Membership) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.rows {
		if existing.UserID == data.UserID && existing.TenantID == data.TenantID {
			return "", errors.ErrConflict
		}
	}

	if data.ID == "" {
		data.ID = uuid.New().String()
	}
	if data.JoinedAt.IsZero() {
		data.JoinedAt = time.Now().UTC()
	}
	r.rows[data.ID] = data
	return data.ID, nil
}

func (r *MembershipRepository) Get(ctx context.Context, id string) (membership.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.rows[id]
	if !ok {
		return membership.Membership{}, store.ErrorNotFound
	}
	return m, nil
}

func (r *MembershipRepository) GetByUserAndTenant(ctx context.Context, userID, tenantID string) (membership.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.rows {
		if m.UserID == userID && m.TenantID == tenantID {
			return m, nil
		}
	}
	return membership.Membership{}, store.ErrorNotFound
}

func (r *MembershipRepository) ListByTenant(ctx context.Context, tenantID string) ([]membership.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []membership.Membership{}
	for _, m := range r.rows {
		if m.TenantID == tenantID {
			matched = append(matched, m)
		}
	}
	return matched, nil
}

func (r *MembershipRepository) ListByUser(ctx context.Context, userID string) ([]membership.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []membership.Membership{}
	for _, m := range r.rows {
		if m.UserID == userID {
			matched = append(matched, m)
		}
	}
	return matched, nil
}

func (r *MembershipRepository) Update(ctx context.Context, id string, data membership.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rows[id]
	if !ok {
		return store.ErrorNotFound
	}
	existing.Role = data.Role
	existing.BranchID = data.BranchID
	existing.IsActive = data.IsActive
	existing.UpdatedAt = time.Now().UTC()
	r.rows[id] = existing
	return nil
}

func (r *MembershipRepository) Deactivate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rows[id]
	if !ok {
		return store.ErrorNotFound
	}
	existing.IsActive = false
	r.rows[id] = existing
	return nil
}

func (r *MembershipRepository) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, m := range r.rows {
		if m.TenantID == tenantID && m.IsActive {
			count++
		}
	}
	return count, nil
}
