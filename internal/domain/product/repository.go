package product

import "context"

// Repository defines the interface for catalog persistence.
type Repository interface {
	// Add inserts a new product and returns its ID. A duplicate
	// (tenant_id, sku) surfaces as a conflict.
	Add(ctx context.Context, data Product) (string, error)

	// Get retrieves a product by ID.
	Get(ctx context.Context, id string) (Product, error)

	// GetMany retrieves products by id within one organization, keyed by id.
	GetMany(ctx context.Context, tenantID string, ids []string) (map[string]Product, error)

	// SKUExists checks (tenant_id, sku) uniqueness, optionally excluding one
	// product id (for updates).
	SKUExists(ctx context.Context, tenantID, sku, excludeID string) (bool, error)

	// ListEffective returns the effective catalog for a branch: the
	// organization's products joined against that branch's stock rows.
	ListEffective(ctx context.Context, orgID, branchID string) ([]EffectiveProduct, error)

	// Update modifies an existing product.
	Update(ctx context.Context, id string, data Product) error

	// SetAvailability soft-activates or soft-deactivates a product.
	SetAvailability(ctx context.Context, id string, available bool) error

	// Categories and units are organization-scoped lookup data.
	ListCategories(ctx context.Context, tenantID string) ([]Category, error)
	AddCategory(ctx context.Context, data Category) (string, error)
	ListUnits(ctx context.Context, tenantID string) ([]Unit, error)
	AddUnit(ctx context.Context, data Unit) (string, error)
}
