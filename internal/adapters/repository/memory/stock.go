package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"retail-service/internal/domain/stock"
	"retail-service/internal/infrastructure/store"
	"retail-service/pkg/errors"
)

type stockKey struct {
	branchID  string
	productID string
}

type StockRepository struct {
	mu        sync.Mutex
	rows      map[stockKey]stock.BranchStock
	movements []stock.Movement
}

func NewStockRepository() *StockRepository {
	return &StockRepository{rows: make(map[stockKey]stock.BranchStock)}
}

func (r *StockRepository) EnsureRow(ctx context.Context, branchID, productID string, reorderLevel int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := stockKey{branchID, productID}
	if _, ok := r.rows[key]; ok {
		return nil
	}
	r.rows[key] = stock.BranchStock{
		TenantID:     branchID,
		ProductID:    productID,
		Quantity:     0,
		ReorderLevel: reorderLevel,
		UpdatedAt:    time.Now().UTC(),
	}
	return nil
}

func (r *StockRepository) GetQuantity(ctx context.Context, branchID, productID string) (int, error) {
	row, err := r.Get(ctx, branchID, productID)
	if err != nil {
		return 0, err
	}
	return row.Quantity, nil
}

func (r *StockRepository) Get(ctx context.Context, branchID, productID string) (stock.BranchStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[stockKey{branchID, productID}]
	if !ok {
		return stock.BranchStock{}, store.ErrorNotFound
	}
	return row, nil
}

func (r *StockRepository) ApplyMovement(ctx context.Context, mv stock.Movement) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyLocked(mv)
}

// BulkApply applies all movements or none, mirroring the transactional
// behavior of the postgres implementation: every debit is validated before
// any write, under one lock.
func (r *StockRepository) BulkApply(ctx context.Context, movements []stock.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bulkApplyLocked(movements)
}

func (r *StockRepository) bulkApplyLocked(movements []stock.Movement) error {
	ordered := make([]stock.Movement, len(movements))
	copy(ordered, movements)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ProductID < ordered[j].ProductID
	})

	for _, mv := range ordered {
		row, ok := r.rows[stockKey{mv.TenantID, mv.ProductID}]
		if !ok {
			return store.ErrorNotFound
		}
		if row.Quantity+mv.Delta < 0 {
			return errors.ErrInsufficientStock.
				WithMessage(fmt.Sprintf("insufficient stock: have %d, need %d", row.Quantity, -mv.Delta)).
				WithDetails("product_id", mv.ProductID).
				WithDetails("available", row.Quantity)
		}
	}
	for _, mv := range ordered {
		if _, err := r.applyLocked(mv); err != nil {
			return err
		}
	}
	return nil
}

func (r *StockRepository) applyLocked(mv stock.Movement) (int, error) {
	key := stockKey{mv.TenantID, mv.ProductID}
	row, ok := r.rows[key]
	if !ok {
		return 0, store.ErrorNotFound
	}

	next := row.Quantity + mv.Delta
	if next < 0 {
		return 0, errors.ErrInsufficientStock.
			WithMessage(fmt.Sprintf("insufficient stock: have %d, need %d", row.Quantity, -mv.Delta)).
			WithDetails("product_id", mv.ProductID).
			WithDetails("available", row.Quantity)
	}

	row.Quantity = next
	row.UpdatedAt = time.Now().UTC()
	r.rows[key] = row

	mv.ID = uuid.New().String()
	mv.CreatedAt = time.Now().UTC()
	r.movements = append(r.movements, mv)
	return next, nil
}

func (r *StockRepository) SetReorderLevel(ctx context.Context, branchID, productID string, level int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := stockKey{branchID, productID}
	row, ok := r.rows[key]
	if !ok {
		return store.ErrorNotFound
	}
	row.ReorderLevel = level
	r.rows[key] = row
	return nil
}

func (r *StockRepository) ListMovements(ctx context.Context, branchID string, filter stock.MovementFilter) ([]stock.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := []stock.Movement{}
	for i := len(r.movements) - 1; i >= 0; i-- {
		mv := r.movements[i]
		if mv.TenantID != branchID {
			continue
		}
		if filter.ProductID != nil && mv.ProductID != *filter.ProductID {
			continue
		}
		if filter.Reason != nil && mv.Reason != *filter.Reason {
			continue
		}
		matched = append(matched, mv)
	}
	return matched, nil
}

// MovementCount reports how many movements exist for a (branch, product)
// pair; used by tests asserting the no-trace-on-failure property.
func (r *StockRepository) MovementCount(branchID, productID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, mv := range r.movements {
		if mv.TenantID == branchID && mv.ProductID == productID {
			count++
		}
	}
	return count
}
