// Package report holds the reporting aggregate types and the repository
// contract the aggregator runs on. All counts are counts of distinct sales,
// never of item rows.
package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Dimension selects the grouping of a price-variance report.
type Dimension string

const (
	DimensionProduct Dimension = "product"
	DimensionStaff   Dimension = "staff"
	DimensionBranch  Dimension = "branch"
)

// ValidDimension reports whether d is a known variance dimension.
func ValidDimension(d Dimension) bool {
	switch d {
	case DimensionProduct, DimensionStaff, DimensionBranch:
		return true
	}
	return false
}

// Query bounds an aggregation: tenant scope and a UTC instant range already
// resolved from the tenant's local calendar dates.
type Query struct {
	TenantIDs []string
	From      time.Time
	To        time.Time

	// Timezone is the tenant's IANA zone, used for local-date grouping.
	Timezone string
}

// DayRevenue is one local-date bucket of the revenue series.
type DayRevenue struct {
	Day     string          `db:"day" json:"day"`
	Revenue decimal.Decimal `db:"revenue" json:"revenue"`
	Count   int             `db:"count" json:"count"`
}

// ProductRevenue is one row of the top-products ranking.
type ProductRevenue struct {
	ProductID   string          `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Revenue     decimal.Decimal `db:"revenue" json:"revenue"`
}

// Dashboard is the headline aggregate for a period.
type Dashboard struct {
	Revenue      decimal.Decimal  `json:"revenue"`
	SalesCount   int              `json:"sales_count"`
	RevenueByDay []DayRevenue     `json:"revenue_by_day"`
	TopProducts  []ProductRevenue `json:"top_products"`
}

// VarianceRow is one dimension bucket of the price-variance report.
//
// SalesWithOverride and TotalSales both count distinct sale ids: a sale of
// three items with one override is one sale and one overridden sale. The
// invariant SalesWithOverride ≤ TotalSales holds by construction, keeping
// OverrideRate within [0, 1].
type VarianceRow struct {
	Key   string `db:"key" json:"key"`
	Label string `db:"label" json:"label"`

	TotalSales        int             `db:"total_sales" json:"total_sales_in_scope"`
	SalesWithOverride int             `db:"sales_with_override" json:"sales_with_override"`
	VarianceSum       decimal.Decimal `db:"variance_sum" json:"variance_sum"`

	OverrideRate float64 `json:"override_rate"`
}

// Repository defines the storage-level aggregations.
type Repository interface {
	Revenue(ctx context.Context, q Query) (decimal.Decimal, int, error)
	RevenueByDay(ctx context.Context, q Query) ([]DayRevenue, error)
	TopProducts(ctx context.Context, q Query, limit int) ([]ProductRevenue, error)
	Variance(ctx context.Context, q Query, d Dimension) ([]VarianceRow, error)
}
