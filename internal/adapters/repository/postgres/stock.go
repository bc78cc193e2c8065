package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"retail-service/internal/domain/stock"
	"retail-service/internal/infrastructure/store"
	domainerrors "retail-service/pkg/errors"
)

type StockRepository struct {
	db *sqlx.DB
}

// NewStockRepository creates a new instance of StockRepository.
func NewStockRepository(db *sqlx.DB) *StockRepository {
	return &StockRepository{db: db}
}

// EnsureRow creates the (branch, product) row with zero quantity if absent.
func (r *StockRepository) EnsureRow(ctx context.Context, branchID, productID string, reorderLevel int) error {
	query := `
		INSERT INTO branch_stocks (tenant_id, product_id, quantity, reorder_level)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (tenant_id, product_id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query, branchID, productID, reorderLevel)
	return err
}

// GetQuantity returns the branch's current quantity of a product.
func (r *StockRepository) GetQuantity(ctx context.Context, branchID, productID string) (int, error) {
	query := `SELECT quantity FROM branch_stocks WHERE tenant_id=$1 AND product_id=$2`

	var quantity int
	if err := r.db.GetContext(ctx, &quantity, query, branchID, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrorNotFound
		}
		return 0, err
	}
	return quantity, nil
}

// Get returns the full stock row.
func (r *StockRepository) Get(ctx context.Context, branchID, productID string) (stock.BranchStock, error) {
	query := `
		SELECT tenant_id, product_id, quantity, reorder_level, updated_at
		FROM branch_stocks
		WHERE tenant_id=$1 AND product_id=$2`

	var row stock.BranchStock
	if err := r.db.GetContext(ctx, &row, query, branchID, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return row, store.ErrorNotFound
		}
		return row, err
	}
	return row, nil
}

// ApplyMovement atomically applies one movement and returns the new
// quantity.
func (r *StockRepository) ApplyMovement(ctx context.Context, mv stock.Movement) (int, error) {
	var quantity int
	err := withTx(r.db, func(tx *sqlx.Tx) error {
		var err error
		quantity, err = applyMovementTx(ctx, tx, mv)
		return err
	})
	if err != nil {
		return 0, err
	}
	return quantity, nil
}

// BulkApply applies all movements or none, locking rows in ascending
// product id order so concurrent multi-item applications sharing products
// cannot deadlock.
func (r *StockRepository) BulkApply(ctx context.Context, movements []stock.Movement) error {
	return withTx(r.db, func(tx *sqlx.Tx) error {
		return applyMovementsTx(ctx, tx, movements)
	})
}

// applyMovementsTx is the shared transactional primitive: the sale
// repository calls it inside its own transaction so a failed sale leaves no
// stock trace.
func applyMovementsTx(ctx context.Context, tx *sqlx.Tx, movements []stock.Movement) error {
	ordered := make([]stock.Movement, len(movements))
	copy(ordered, movements)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ProductID < ordered[j].ProductID
	})

	for _, mv := range ordered {
		if _, err := applyMovementTx(ctx, tx, mv); err != nil {
			return err
		}
	}
	return nil
}

// applyMovementTx locks one (branch, product) row, rejects debits below
// zero, writes the quantity, and appends the audit movement. The lock scope
// is the single row: concurrent sales of different products never block
// each other.
func applyMovementTx(ctx context.Context, tx *sqlx.Tx, mv stock.Movement) (int, error) {
	var quantity int
	query := `SELECT quantity FROM branch_stocks WHERE tenant_id=$1 AND product_id=$2 FOR UPDATE`
	if err := tx.GetContext(ctx, &quantity, query, mv.TenantID, mv.ProductID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrorNotFound
		}
		return 0, err
	}

	next := quantity + mv.Delta
	if next < 0 {
		return 0, domainerrors.ErrInsufficientStock.
			WithMessage(fmt.Sprintf("insufficient stock: have %d, need %d", quantity, -mv.Delta)).
			WithDetails("product_id", mv.ProductID).
			WithDetails("available", quantity)
	}

	update := `
		UPDATE branch_stocks
		SET quantity=$1, updated_at=CURRENT_TIMESTAMP
		WHERE tenant_id=$2 AND product_id=$3`
	if _, err := tx.ExecContext(ctx, update, next, mv.TenantID, mv.ProductID); err != nil {
		return 0, err
	}

	insert := `
		INSERT INTO stock_movements (tenant_id, product_id, delta, reason, reference_id, actor_user_id)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, insert, mv.TenantID, mv.ProductID, mv.Delta, mv.Reason, mv.ReferenceID, mv.ActorUserID); err != nil {
		return 0, err
	}

	return next, nil
}

// SetReorderLevel updates the branch-specific reorder level.
func (r *StockRepository) SetReorderLevel(ctx context.Context, branchID, productID string, level int) error {
	query := `
		UPDATE branch_stocks
		SET reorder_level=$1, updated_at=CURRENT_TIMESTAMP
		WHERE tenant_id=$2 AND product_id=$3
		RETURNING product_id`

	if err := r.db.QueryRowContext(ctx, query, level, branchID, productID).Scan(&productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrorNotFound
		}
		return err
	}
	return nil
}

// ListMovements returns committed movements for a branch, newest first.
func (r *StockRepository) ListMovements(ctx context.Context, branchID string, filter stock.MovementFilter) ([]stock.Movement, error) {
	query := `
		SELECT id, tenant_id, product_id, delta, reason, reference_id, actor_user_id, created_at
		FROM stock_movements
		WHERE tenant_id=$1
			AND ($2::uuid IS NULL OR product_id=$2)
			AND ($3::text IS NULL OR reason=$3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var reason *string
	if filter.Reason != nil {
		raw := string(*filter.Reason)
		reason = &raw
	}

	movements := []stock.Movement{}
	if err := r.db.SelectContext(ctx, &movements, query, branchID, filter.ProductID, reason, limit, filter.Offset); err != nil {
		return nil, err
	}
	return movements, nil
}
