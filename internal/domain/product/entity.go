package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. TenantID is always the organization id, never
// a branch: branches inherit the parent catalog and only hold their own
// quantities (see the stock package).
type Product struct {
	ID       string `db:"id"`
	TenantID string `db:"tenant_id"`
	SKU      string `db:"sku"`
	Name     string `db:"name"`

	Description *string `db:"description"`
	CategoryID  *string `db:"category_id"`
	UnitID      *string `db:"unit_id"`

	// BaseCost is the acquisition cost; SellingPrice is customer-facing and
	// already contains VAT.
	BaseCost     decimal.Decimal `db:"base_cost"`
	SellingPrice decimal.Decimal `db:"selling_price"`

	// IsService marks offerings with no stock tracking.
	IsService bool `db:"is_service"`

	// DefaultReorderLevel seeds the reorder level of the per-branch stock
	// rows auto-created for this product. Zero for services.
	DefaultReorderLevel int `db:"default_reorder_level"`

	// ImageKey is an opaque reference into the external object store.
	ImageKey *string `db:"image_key"`

	IsAvailable bool      `db:"is_available"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Category groups products within one organization.
type Category struct {
	ID        string    `db:"id"`
	TenantID  string    `db:"tenant_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// Unit is a unit of measure (piece, kg, litre) within one organization.
type Unit struct {
	ID           string    `db:"id"`
	TenantID     string    `db:"tenant_id"`
	Name         string    `db:"name"`
	Abbreviation string    `db:"abbreviation"`
	CreatedAt    time.Time `db:"created_at"`
}

// EffectiveProduct is one row of a branch's effective catalog: the parent
// organization's product joined against the branch's own stock row.
type EffectiveProduct struct {
	Product
	Quantity     int `db:"quantity"`
	ReorderLevel int `db:"reorder_level"`
}

// IsLowStock reports whether the branch quantity has fallen to the reorder
// level. Services never signal.
func (p EffectiveProduct) IsLowStock() bool {
	return !p.IsService && p.Quantity <= p.ReorderLevel
}
