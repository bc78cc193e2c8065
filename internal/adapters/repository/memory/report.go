package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"retail-service/internal/domain/report"
	"retail-service/internal/domain/sale"
)

// ReportRepository aggregates over the in-memory sale store with the same
// distinct-sale semantics as the SQL implementation.
type ReportRepository struct {
	sales *SaleRepository
}

func NewReportRepository(sales *SaleRepository) *ReportRepository {
	return &ReportRepository{sales: sales}
}

func (r *ReportRepository) inWindow(s sale.Sale, q report.Query) bool {
	inScope := false
	for _, id := range q.TenantIDs {
		if s.TenantID == id {
			inScope = true
			break
		}
	}
	return inScope && !s.CreatedAt.Before(q.From) && s.CreatedAt.Before(q.To)
}

func (r *ReportRepository) Revenue(ctx context.Context, q report.Query) (decimal.Decimal, int, error) {
	r.sales.mu.Lock()
	defer r.sales.mu.Unlock()

	revenue := decimal.Zero
	count := 0
	for _, s := range r.sales.rows {
		if r.inWindow(s, q) {
			revenue = revenue.Add(s.Total)
			count++
		}
	}
	return revenue, count, nil
}

func (r *ReportRepository) RevenueByDay(ctx context.Context, q report.Query) ([]report.DayRevenue, error) {
	r.sales.mu.Lock()
	defer r.sales.mu.Unlock()

	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*report.DayRevenue)
	for _, s := range r.sales.rows {
		if !r.inWindow(s, q) {
			continue
		}
		day := s.CreatedAt.In(loc).Format("2006-01-02")
		bucket, ok := byDay[day]
		if !ok {
			bucket = &report.DayRevenue{Day: day}
			byDay[day] = bucket
		}
		bucket.Revenue = bucket.Revenue.Add(s.Total)
		bucket.Count++
	}

	days := make([]report.DayRevenue, 0, len(byDay))
	for _, bucket := range byDay {
		days = append(days, *bucket)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	return days, nil
}

func (r *ReportRepository) TopProducts(ctx context.Context, q report.Query, limit int) ([]report.ProductRevenue, error) {
	r.sales.mu.Lock()
	defer r.sales.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}

	byProduct := make(map[string]*report.ProductRevenue)
	for id, s := range r.sales.rows {
		if !r.inWindow(s, q) {
			continue
		}
		for _, item := range r.sales.items[id] {
			bucket, ok := byProduct[item.ProductID]
			if !ok {
				bucket = &report.ProductRevenue{ProductID: item.ProductID, ProductName: item.ProductName}
				byProduct[item.ProductID] = bucket
			}
			bucket.Quantity += item.Quantity
			bucket.Revenue = bucket.Revenue.Add(sale.LineTotal(item.UnitPrice, item.Quantity))
		}
	}

	rows := make([]report.ProductRevenue, 0, len(byProduct))
	for _, bucket := range byProduct {
		rows = append(rows, *bucket)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Revenue.GreaterThan(rows[j].Revenue) })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// Variance counts distinct sale ids per dimension bucket, never item rows.
func (r *ReportRepository) Variance(ctx context.Context, q report.Query, d report.Dimension) ([]report.VarianceRow, error) {
	r.sales.mu.Lock()
	defer r.sales.mu.Unlock()

	type bucket struct {
		total     map[string]bool
		overriden map[string]bool
		variance  decimal.Decimal
		label     string
	}
	buckets := make(map[string]*bucket)

	get := func(key, label string) *bucket {
		b, ok := buckets[key]
		if !ok {
			b = &bucket{total: make(map[string]bool), overriden: make(map[string]bool)}
			buckets[key] = b
		}
		if label != "" {
			b.label = label
		}
		return b
	}

	for id, s := range r.sales.rows {
		if !r.inWindow(s, q) {
			continue
		}
		for _, item := range r.sales.items[id] {
			var key, label string
			switch d {
			case report.DimensionProduct:
				key, label = item.ProductID, item.ProductName
			case report.DimensionStaff:
				key = s.UserID
			default:
				key = s.TenantID
			}

			b := get(key, label)
			b.total[id] = true
			if item.IsPriceOverride {
				b.overriden[id] = true
				b.variance = b.variance.Add(item.Variance.Mul(decimal.NewFromInt(int64(item.Quantity))))
			}
		}
	}

	rows := make([]report.VarianceRow, 0, len(buckets))
	for key, b := range buckets {
		rows = append(rows, report.VarianceRow{
			Key:               key,
			Label:             b.label,
			TotalSales:        len(b.total),
			SalesWithOverride: len(b.overriden),
			VarianceSum:       b.variance,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].TotalSales > rows[j].TotalSales })
	return rows, nil
}
