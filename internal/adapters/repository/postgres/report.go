package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"retail-service/internal/domain/report"
)

type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new instance of ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Revenue sums totals and counts distinct sales in the window.
func (r *ReportRepository) Revenue(ctx context.Context, q report.Query) (decimal.Decimal, int, error) {
	query := `
		SELECT COALESCE(SUM(total), 0) AS revenue, COUNT(*) AS count
		FROM sales
		WHERE tenant_id = ANY($1) AND created_at >= $2 AND created_at < $3`

	var row struct {
		Revenue decimal.Decimal `db:"revenue"`
		Count   int             `db:"count"`
	}
	if err := r.db.GetContext(ctx, &row, query, pq.Array(q.TenantIDs), q.From, q.To); err != nil {
		return decimal.Zero, 0, err
	}
	return row.Revenue, row.Count, nil
}

// RevenueByDay groups revenue by the tenant's local calendar date. Sales
// committed near UTC midnight land on the correct local day because the
// grouping converts each timestamp into the tenant's zone first.
func (r *ReportRepository) RevenueByDay(ctx context.Context, q report.Query) ([]report.DayRevenue, error) {
	query := `
		SELECT to_char((created_at AT TIME ZONE $4)::date, 'YYYY-MM-DD') AS day,
			COALESCE(SUM(total), 0) AS revenue,
			COUNT(*) AS count
		FROM sales
		WHERE tenant_id = ANY($1) AND created_at >= $2 AND created_at < $3
		GROUP BY 1
		ORDER BY 1`

	rows := []report.DayRevenue{}
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(q.TenantIDs), q.From, q.To, q.Timezone); err != nil {
		return nil, err
	}
	return rows, nil
}

// TopProducts ranks products by revenue over the window.
func (r *ReportRepository) TopProducts(ctx context.Context, q report.Query, limit int) ([]report.ProductRevenue, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT si.product_id,
			MAX(si.product_name) AS product_name,
			SUM(si.quantity) AS quantity,
			COALESCE(SUM(si.unit_price * si.quantity), 0) AS revenue
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		WHERE s.tenant_id = ANY($1) AND s.created_at >= $2 AND s.created_at < $3
		GROUP BY si.product_id
		ORDER BY revenue DESC
		LIMIT $4`

	rows := []report.ProductRevenue{}
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(q.TenantIDs), q.From, q.To, limit); err != nil {
		return nil, err
	}
	return rows, nil
}

// Variance aggregates price-override accounting per dimension bucket.
//
// Both counters are COUNT(DISTINCT sale_id): a sale of three items with one
// override contributes one to each, so the override rate can never exceed
// one. Aggregating item rows instead was a real bug once — it inflated
// rates past 100% for multi-item sales.
func (r *ReportRepository) Variance(ctx context.Context, q report.Query, d report.Dimension) ([]report.VarianceRow, error) {
	var keyExpr, labelExpr string
	switch d {
	case report.DimensionProduct:
		keyExpr, labelExpr = "si.product_id::text", "MAX(si.product_name)"
	case report.DimensionStaff:
		keyExpr, labelExpr = "s.user_id::text", "MAX(u.full_name)"
	default:
		keyExpr, labelExpr = "s.tenant_id::text", "MAX(t.name)"
	}

	query := `
		SELECT ` + keyExpr + ` AS key,
			COALESCE(` + labelExpr + `, '') AS label,
			COUNT(DISTINCT s.id) AS total_sales,
			COUNT(DISTINCT s.id) FILTER (WHERE si.is_price_override) AS sales_with_override,
			COALESCE(SUM(si.variance * si.quantity) FILTER (WHERE si.is_price_override), 0) AS variance_sum
		FROM sales s
		JOIN sale_items si ON si.sale_id = s.id
		LEFT JOIN users u ON u.id = s.user_id
		LEFT JOIN tenants t ON t.id = s.tenant_id
		WHERE s.tenant_id = ANY($1) AND s.created_at >= $2 AND s.created_at < $3
		GROUP BY 1
		ORDER BY total_sales DESC`

	rows := []report.VarianceRow{}
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(q.TenantIDs), q.From, q.To); err != nil {
		return nil, err
	}
	return rows, nil
}
