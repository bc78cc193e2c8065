package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"retail-service/internal/domain/product"
	"retail-service/internal/infrastructure/store"
)

const productColumns = `
	id, tenant_id, sku, name, description, category_id, unit_id, base_cost,
	selling_price, is_service, default_reorder_level, image_key, is_available,
	created_at, updated_at`

type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new instance of ProductRepository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Add inserts a new product into the store. The unique index on
// (tenant_id, sku) backs SKU uniqueness per organization.
func (r *ProductRepository) Add(ctx context.Context, data product.Product) (string, error) {
	query := `
		INSERT INTO products (tenant_id, sku, name, description, category_id, unit_id,
			base_cost, selling_price, is_service, default_reorder_level, image_key, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	args := []interface{}{
		data.TenantID,
		data.SKU,
		data.Name,
		data.Description,
		data.CategoryID,
		data.UnitID,
		data.BaseCost,
		data.SellingPrice,
		data.IsService,
		data.DefaultReorderLevel,
		data.ImageKey,
		data.IsAvailable,
	}

	var id string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return "", HandleSQLError(err)
	}
	return id, nil
}

// Get retrieves a product by ID from the store.
func (r *ProductRepository) Get(ctx context.Context, id string) (product.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id=$1`

	var p product.Product
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, store.ErrorNotFound
		}
		return p, err
	}
	return p, nil
}

// GetMany retrieves products by id within one organization, keyed by id.
func (r *ProductRepository) GetMany(ctx context.Context, tenantID string, ids []string) (map[string]product.Product, error) {
	if len(ids) == 0 {
		return map[string]product.Product{}, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE tenant_id=$1 AND id = ANY($2)`

	var rows []product.Product
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, pq.Array(ids)); err != nil {
		return nil, err
	}

	byID := make(map[string]product.Product, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}
	return byID, nil
}

// SKUExists checks (tenant_id, sku) uniqueness, optionally excluding one
// product id.
func (r *ProductRepository) SKUExists(ctx context.Context, tenantID, sku, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM products WHERE tenant_id=$1 AND sku=$2 AND ($3 = '' OR id::text <> $3))`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, tenantID, sku, excludeID); err != nil {
		return false, err
	}
	return exists, nil
}

// ListEffective returns the effective catalog for a branch: the
// organization's products joined against that branch's stock rows. Only
// products with a stock row are visible to the branch.
func (r *ProductRepository) ListEffective(ctx context.Context, orgID, branchID string) ([]product.EffectiveProduct, error) {
	query := `
		SELECT p.id, p.tenant_id, p.sku, p.name, p.description, p.category_id, p.unit_id,
			p.base_cost, p.selling_price, p.is_service, p.default_reorder_level,
			p.image_key, p.is_available, p.created_at, p.updated_at,
			bs.quantity, bs.reorder_level
		FROM products p
		JOIN branch_stocks bs ON bs.product_id = p.id AND bs.tenant_id = $2
		WHERE p.tenant_id = $1
		ORDER BY p.name`

	rows := []product.EffectiveProduct{}
	if err := r.db.SelectContext(ctx, &rows, query, orgID, branchID); err != nil {
		return nil, err
	}
	return rows, nil
}

// Update modifies an existing product.
func (r *ProductRepository) Update(ctx context.Context, id string, data product.Product) error {
	query := `
		UPDATE products
		SET sku=$1, name=$2, description=$3, category_id=$4, unit_id=$5, base_cost=$6,
			selling_price=$7, is_service=$8, default_reorder_level=$9, image_key=$10,
			updated_at=CURRENT_TIMESTAMP
		WHERE id=$11
		RETURNING id`

	args := []interface{}{
		data.SKU,
		data.Name,
		data.Description,
		data.CategoryID,
		data.UnitID,
		data.BaseCost,
		data.SellingPrice,
		data.IsService,
		data.DefaultReorderLevel,
		data.ImageKey,
		id,
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return HandleSQLError(err)
	}
	return nil
}

// SetAvailability soft-activates or soft-deactivates a product.
func (r *ProductRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	query := `
		UPDATE products
		SET is_available=$1, updated_at=CURRENT_TIMESTAMP
		WHERE id=$2
		RETURNING id`

	if err := r.db.QueryRowContext(ctx, query, available, id).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrorNotFound
		}
		return err
	}
	return nil
}

// ListCategories retrieves an organization's categories.
func (r *ProductRepository) ListCategories(ctx context.Context, tenantID string) ([]product.Category, error) {
	query := `SELECT id, tenant_id, name, created_at FROM categories WHERE tenant_id=$1 ORDER BY name`

	categories := []product.Category{}
	if err := r.db.SelectContext(ctx, &categories, query, tenantID); err != nil {
		return nil, err
	}
	return categories, nil
}

// AddCategory inserts a category.
func (r *ProductRepository) AddCategory(ctx context.Context, data product.Category) (string, error) {
	query := `INSERT INTO categories (tenant_id, name) VALUES ($1, $2) RETURNING id`

	var id string
	if err := r.db.QueryRowContext(ctx, query, data.TenantID, data.Name).Scan(&id); err != nil {
		return "", HandleSQLError(err)
	}
	return id, nil
}

// ListUnits retrieves an organization's units of measure.
func (r *ProductRepository) ListUnits(ctx context.Context, tenantID string) ([]product.Unit, error) {
	query := `SELECT id, tenant_id, name, abbreviation, created_at FROM units WHERE tenant_id=$1 ORDER BY name`

	units := []product.Unit{}
	if err := r.db.SelectContext(ctx, &units, query, tenantID); err != nil {
		return nil, err
	}
	return units, nil
}

// AddUnit inserts a unit of measure.
func (r *ProductRepository) AddUnit(ctx context.Context, data product.Unit) (string, error) {
	query := `INSERT INTO units (tenant_id, name, abbreviation) VALUES ($1, $2, $3) RETURNING id`

	var id string
	if err := r.db.QueryRowContext(ctx, query, data.TenantID, data.Name, data.Abbreviation).Scan(&id); err != nil {
		return "", HandleSQLError(err)
	}
	return id, nil
}
