package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"retail-service/internal/domain/subscription"
	"retail-service/internal/infrastructure/store"
)

type SubscriptionRepository struct {
	mu           sync.Mutex
	transactions map[string]subscription.Transaction
	// branchSubs is keyed by (transaction_id, tenant_id) — the same
	// composite uniqueness the postgres schema enforces, so duplicate
	// verifications are no-ops here too.
	branchSubs map[string]subscription.BranchSubscription
	warnings   map[string]time.Time
}

func NewSubscriptionRepository() *SubscriptionRepository {
	return &SubscriptionRepository{
		transactions: make(map[string]subscription.Transaction),
		branchSubs:   make(map[string]subscription.BranchSubscription),
		warnings:     make(map[string]time.Time),
	}
}

func (r *SubscriptionRepository) CreateTransaction(ctx context.Context, data subscription.Transaction) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data.ID == "" {
		data.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	data.CreatedAt, data.UpdatedAt = now, now
	r.transactions[data.ID] = data
	return data.ID, nil
}

func (r *SubscriptionRepository) GetTransaction(ctx context.Context, id string) (subscription.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	txn, ok := r.transactions[id]
	if !ok {
		return subscription.Transaction{}, store.ErrorNotFound
	}
	return txn, nil
}

func (r *SubscriptionRepository) GetByReference(ctx context.Context, reference string) (subscription.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, txn := range r.transactions {
		if txn.Reference == reference {
			return txn, nil
		}
	}
	return subscription.Transaction{}, store.ErrorNotFound
}

func (r *SubscriptionRepository) ListTransactions(ctx context.Context, tenantID string, limit, offset int) ([]subscription.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := []subscription.Transaction{}
	for _, txn := range r.transactions {
		if txn.TenantID == tenantID {
			matched = append(matched, txn)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	if offset > 0 {
		if offset >= len(matched) {
			return []subscription.Transaction{}, nil
		}
		matched = matched[offset:]
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *SubscriptionRepository) MarkFailed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	txn, ok := r.transactions[id]
	if !ok {
		return store.ErrorNotFound
	}
	if txn.Status != subscription.StatusPending {
		return nil
	}
	txn.Status = subscription.StatusFailed
	txn.UpdatedAt = time.Now().UTC()
	r.transactions[id] = txn
	return nil
}

func (r *SubscriptionRepository) MarkSuccess(ctx context.Context, id string, end time.Time, authorization *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	txn, ok := r.transactions[id]
	if !ok {
		return store.ErrorNotFound
	}
	txn.Status = subscription.StatusSuccess
	txn.SubscriptionEnd = &end
	if authorization != nil {
		txn.GatewayAuthorization = authorization
	}
	txn.UpdatedAt = time.Now().UTC()
	r.transactions[id] = txn
	return nil
}

func (r *SubscriptionRepository) UpsertBranchSubscription(ctx context.Context, data subscription.BranchSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := data.TransactionID + "|" + data.TenantID
	if _, ok := r.branchSubs[key]; ok {
		return nil
	}
	data.ID = uuid.New().String()
	data.CreatedAt = time.Now().UTC()
	r.branchSubs[key] = data
	return nil
}

func (r *SubscriptionRepository) ListBranchSubscriptions(ctx context.Context, transactionID string) ([]subscription.BranchSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := []subscription.BranchSubscription{}
	for _, bs := range r.branchSubs {
		if bs.TransactionID == transactionID {
			matched = append(matched, bs)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].TenantID < matched[j].TenantID })
	return matched, nil
}

func (r *SubscriptionRepository) DeactivateBranchSubscriptions(ctx context.Context, orgID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, bs := range r.branchSubs {
		txn, ok := r.transactions[bs.TransactionID]
		if !ok || txn.TenantID != orgID {
			continue
		}
		bs.IsActive = false
		r.branchSubs[key] = bs
	}
	return nil
}

func (r *SubscriptionRepository) WarningSent(ctx context.Context, tenantID string, threshold int, periodEnd time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.warnings[warningKey(tenantID, threshold, periodEnd)]
	return ok, nil
}

func (r *SubscriptionRepository) MarkWarningSent(ctx context.Context, tenantID string, threshold int, periodEnd time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.warnings[warningKey(tenantID, threshold, periodEnd)] = time.Now().UTC()
	return nil
}

func warningKey(tenantID string, threshold int, periodEnd time.Time) string {
	return fmt.Sprintf("%s|%d|%d", tenantID, threshold, periodEnd.Unix())
}
