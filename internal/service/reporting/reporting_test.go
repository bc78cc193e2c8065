package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-service/internal/adapters/repository/memory"
	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/report"
	"retail-service/internal/domain/sale"
	"retail-service/internal/domain/tenant"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

type fixture struct {
	service *Service
	sales   *memory.SaleRepository
	stocks  *memory.StockRepository
	tenants *memory.TenantRepository
	branch  tenant.Tenant
}

func newFixture(t *testing.T, timezone string) *fixture {
	t.Helper()
	ctx := context.Background()

	tenants := memory.NewTenantRepository()
	stocks := memory.NewStockRepository()
	sales := memory.NewSaleRepository(stocks)
	reports := memory.NewReportRepository(sales)

	branch := tenant.Tenant{
		Subdomain: "shop", Name: "Shop", OwnerEmail: "o@shop.test",
		Currency: "KES", TaxRate: d("0.16"), Timezone: timezone,
		SubscriptionStatus: tenant.StatusActive, IsActive: true,
	}
	id, err := tenants.Add(ctx, branch)
	require.NoError(t, err)
	branch.ID = id

	return &fixture{
		service: New(reports, tenants),
		sales:   sales,
		stocks:  stocks,
		tenants: tenants,
		branch:  branch,
	}
}

func (f *fixture) owner() membership.Principal {
	return membership.Principal{UserID: "owner-1", TenantID: f.branch.ID, RoleType: membership.RoleTypeOwner}
}

// addSale writes a sale with items directly through the repository; the
// aggregator only reads committed rows.
func (f *fixture) addSale(t *testing.T, userID string, createdAt time.Time, items []sale.Item) {
	t.Helper()

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(sale.LineTotal(item.UnitPrice, item.Quantity))
	}
	totals := sale.ComputeTotals(total, d("0.16"))

	_, err := f.sales.Create(context.Background(), sale.Sale{
		TenantID:      f.branch.ID,
		UserID:        userID,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
		TaxRate:       d("0.16"),
		PaymentMethod: sale.PaymentMethodCash,
		CreatedAt:     createdAt,
	}, items, nil)
	require.NoError(t, err)
}

func item(productID string, qty int, price string, override bool, variance string) sale.Item {
	return sale.Item{
		ProductID:       productID,
		Quantity:        qty,
		UnitPrice:       d(price),
		IsPriceOverride: override,
		Variance:        d(variance),
		ProductName:     productID,
	}
}

// Scenario: three sales — S1 with 3 items (1 overridden), S2 with 2 items
// (none), S3 with 1 item (overridden). Per branch: 3 sales in scope, 2 with
// override, rate 2/3. Item-based counting would report 2/6.
func TestPriceVariance_CountsDistinctSales(t *testing.T) {
	f := newFixture(t, "UTC")
	at := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	f.addSale(t, "staff-1", at, []sale.Item{
		item("p1", 1, "90", true, "-10"),
		item("p2", 1, "50", false, "0"),
		item("p3", 1, "30", false, "0"),
	})
	f.addSale(t, "staff-1", at.Add(time.Hour), []sale.Item{
		item("p1", 1, "100", false, "0"),
		item("p2", 1, "50", false, "0"),
	})
	f.addSale(t, "staff-2", at.Add(2*time.Hour), []sale.Item{
		item("p2", 2, "45", true, "-5"),
	})

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	rows, err := f.service.PriceVariance(context.Background(), f.owner(), from, to, nil, report.DimensionBranch)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, 3, row.TotalSales)
	assert.Equal(t, 2, row.SalesWithOverride)
	assert.InDelta(t, 0.667, row.OverrideRate, 0.001)
	// −10×1 + −5×2
	assert.True(t, row.VarianceSum.Equal(d("-20")), "got %s", row.VarianceSum)

	// the universal invariant: rate within [0, 1], overrides ≤ total
	assert.LessOrEqual(t, row.SalesWithOverride, row.TotalSales)
	assert.GreaterOrEqual(t, row.OverrideRate, 0.0)
	assert.LessOrEqual(t, row.OverrideRate, 1.0)
}

func TestPriceVariance_PerStaffDimension(t *testing.T) {
	f := newFixture(t, "UTC")
	at := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	f.addSale(t, "staff-1", at, []sale.Item{item("p1", 1, "90", true, "-10")})
	f.addSale(t, "staff-2", at, []sale.Item{item("p1", 1, "100", false, "0")})

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	rows, err := f.service.PriceVariance(context.Background(), f.owner(), from, to, nil, report.DimensionStaff)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byKey := map[string]report.VarianceRow{}
	for _, row := range rows {
		byKey[row.Key] = row
	}
	assert.Equal(t, 1, byKey["staff-1"].SalesWithOverride)
	assert.Equal(t, 0, byKey["staff-2"].SalesWithOverride)
}

func TestDashboard_RevenueAndCounts(t *testing.T) {
	f := newFixture(t, "UTC")
	at := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	f.addSale(t, "staff-1", at, []sale.Item{item("p1", 2, "500", false, "0")})
	f.addSale(t, "staff-1", at.Add(time.Hour), []sale.Item{item("p2", 1, "200", false, "0")})

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	dashboard, err := f.service.Dashboard(context.Background(), f.owner(), from, to, nil)
	require.NoError(t, err)

	assert.True(t, dashboard.Revenue.Equal(d("1200")))
	assert.Equal(t, 2, dashboard.SalesCount, "sales, not items")
	require.Len(t, dashboard.TopProducts, 2)
	assert.Equal(t, "p1", dashboard.TopProducts[0].ProductID)
}

// A sale at 21:30 UTC on June 10 is June 11 in Nairobi (UTC+3); the local
// calendar governs the daily buckets and the range boundaries.
func TestDashboard_TimezoneBuckets(t *testing.T) {
	f := newFixture(t, "Africa/Nairobi")

	lateUTC := time.Date(2025, 6, 10, 21, 30, 0, 0, time.UTC)
	f.addSale(t, "staff-1", lateUTC, []sale.Item{item("p1", 1, "100", false, "0")})

	from := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	dashboard, err := f.service.Dashboard(context.Background(), f.owner(), from, to, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, dashboard.SalesCount, "the sale belongs to the local June 11")
	require.Len(t, dashboard.RevenueByDay, 1)
	assert.Equal(t, "2025-06-11", dashboard.RevenueByDay[0].Day)

	// and the local June 10 window excludes it
	dayBefore, err := f.service.Dashboard(context.Background(), f.owner(),
		time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, dayBefore.SalesCount)
}

func TestPriceVariance_RejectsUnknownDimension(t *testing.T) {
	f := newFixture(t, "UTC")

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := f.service.PriceVariance(context.Background(), f.owner(), from, from, nil, report.Dimension("galaxy"))
	assert.Error(t, err)
}
