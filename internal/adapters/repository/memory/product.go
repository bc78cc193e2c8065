package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"retail-service/internal/domain/product"
	"retail-service/internal/infrastructure/store"
	"retail-service/pkg/errors"
)

type ProductRepository struct {
	mu         sync.RWMutex
	rows       map[string]product.Product
	categories map[string]product.Category
	units      map[string]product.Unit

	// stocks backs the effective-catalog join.
	stocks *StockRepository
}

func NewProductRepository(stocks *StockRepository) *ProductRepository {
	return &ProductRepository{
		rows:       make(map[string]product.Product),
		categories: make(map[string]product.Category),
		units:      make(map[string]product.Unit),
		stocks:     stocks,
	}
}

func (r *ProductRepository) Add(ctx context.Context, data product.Product) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.rows {
		if existing.TenantID == data.TenantID && existing.SKU == data.SKU {
			return "", errors.ErrConflict
		}
	}

	if data.ID == "" {
		data.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	data.CreatedAt, data.UpdatedAt = now, now
	r.rows[data.ID] = data
	return data.ID, nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.rows[id]
	if !ok {
		return product.Product{}, store.ErrorNotFound
	}
	return p, nil
}

func (r *ProductRepository) GetMany(ctx context.Context, tenantID string, ids []string) (map[string]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byID := make(map[string]product.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.rows[id]; ok && p.TenantID == tenantID {
			byID[id] = p
		}
	}
	return byID, nil
}

func (r *ProductRepository) SKUExists(ctx context.Context, tenantID, sku, excludeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.rows {
		if p.TenantID == tenantID && p.SKU == sku && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *ProductRepository) ListEffective(ctx context.Context, orgID, branchID string) ([]product.EffectiveProduct, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := []product.EffectiveProduct{}
	for _, p := range r.rows {
		if p.TenantID != orgID {
			continue
		}
		bs, err := r.stocks.Get(ctx, branchID, p.ID)
		if err != nil {
			continue // not visible to this branch
		}
		rows = append(rows, product.EffectiveProduct{
			Product:      p,
			Quantity:     bs.Quantity,
			ReorderLevel: bs.ReorderLevel,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows, nil
}

func (r *ProductRepository) Update(ctx context.Context, id string, data product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rows[id]
	if !ok {
		return store.ErrorNotFound
	}

	data.ID = id
	data.TenantID = existing.TenantID
	data.CreatedAt = existing.CreatedAt
	data.IsAvailable = existing.IsAvailable
	data.UpdatedAt = time.Now().UTC()
	r.rows[id] = data
	return nil
}

func (r *ProductRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rows[id]
	if !ok {
		return store.ErrorNotFound
	}
	existing.IsAvailable = available
	r.rows[id] = existing
	return nil
}

func (r *ProductRepository) ListCategories(ctx context.Context, tenantID string) ([]product.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []product.Category{}
	for _, c := range r.categories {
		if c.TenantID == tenantID {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func (r *ProductRepository) AddCategory(ctx context.Context, data product.Category) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data.ID == "" {
		data.ID = uuid.New().String()
	}
	data.CreatedAt = time.Now().UTC()
	r.categories[data.ID] = data
	return data.ID, nil
}

func (r *ProductRepository) ListUnits(ctx context.Context, tenantID string) ([]product.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []product.Unit{}
	for _, u := range r.units {
		if u.TenantID == tenantID {
			matched = append(matched, u)
		}
	}
	return matched, nil
}

func (r *ProductRepository) AddUnit(ctx context.Context, data product.Unit) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data.ID == "" {
		data.ID = uuid.New().String()
	}
	data.CreatedAt = time.Now().UTC()
	r.units[data.ID] = data
	return data.ID, nil
}
