// Package reporting produces time-bounded aggregates over sales. Every
// count is a count of distinct sales, never of item rows — a sale of three
// items with one override is one sale and one overridden sale. Range
// boundaries are resolved in the tenant's IANA timezone before hitting the
// storage layer.
package reporting

import (
	"context"
	"time"

	"go.uber.org/zap"

	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/report"
	"retail-service/internal/domain/tenant"
	"retail-service/internal/infrastructure/log"
	"retail-service/pkg/errors"
	"retail-service/pkg/timeutil"
)

const topProductsLimit = 10

type Service struct {
	reports report.Repository
	tenants tenant.Repository
}

func New(reports report.Repository, tenants tenant.Repository) *Service {
	return &Service{reports: reports, tenants: tenants}
}

// buildQuery resolves the principal's scope and the inclusive local date
// range into a storage query.
func (s *Service) buildQuery(ctx context.Context, p membership.Principal, from, to time.Time, branchID *string) (report.Query, error) {
	t, err := s.tenants.Get(ctx, p.TenantID)
	if err != nil {
		return report.Query{}, errors.ErrInternal.Wrap(err)
	}

	var scope []string
	switch {
	case branchID != nil:
		// A branch filter narrows an owner's view; non-owners may only
		// address their own branch (the gate has already checked that).
		branch, err := s.tenants.Get(ctx, *branchID)
		if err != nil || branch.OrganizationID() != t.OrganizationID() {
			return report.Query{}, errors.ErrNotFound
		}
		scope = []string{branch.ID}
	case p.RoleType == membership.RoleTypeOwner && t.IsOrganization():
		scope = []string{t.ID}
		children, err := s.tenants.ListChildren(ctx, t.ID)
		if err != nil {
			return report.Query{}, errors.ErrInternal.Wrap(err)
		}
		for _, child := range children {
			scope = append(scope, child.ID)
		}
	default:
		scope = []string{t.ID}
	}

	start, end, err := timeutil.DayBoundsInZone(from, to, t.Timezone)
	if err != nil {
		return report.Query{}, errors.ErrInvalidArgument.Wrap(err)
	}
	if !end.After(start) {
		return report.Query{}, errors.ErrInvalidArgument.WithMessage("date range: to must not precede from")
	}

	return report.Query{
		TenantIDs: scope,
		From:      start,
		To:        end,
		Timezone:  t.Timezone,
	}, nil
}

// Dashboard returns the headline aggregates for a period.
func (s *Service) Dashboard(ctx context.Context, p membership.Principal, from, to time.Time, branchID *string) (report.Dashboard, error) {
	logger := log.FromContext(ctx).Named("dashboard").With(zap.String("tenant_id", p.TenantID))

	q, err := s.buildQuery(ctx, p, from, to, branchID)
	if err != nil {
		return report.Dashboard{}, err
	}

	revenue, count, err := s.reports.Revenue(ctx, q)
	if err != nil {
		logger.Error("failed to aggregate revenue", zap.Error(err))
		return report.Dashboard{}, errors.ErrInternal.Wrap(err)
	}

	byDay, err := s.reports.RevenueByDay(ctx, q)
	if err != nil {
		logger.Error("failed to aggregate revenue by day", zap.Error(err))
		return report.Dashboard{}, errors.ErrInternal.Wrap(err)
	}

	top, err := s.reports.TopProducts(ctx, q, topProductsLimit)
	if err != nil {
		logger.Error("failed to aggregate top products", zap.Error(err))
		return report.Dashboard{}, errors.ErrInternal.Wrap(err)
	}

	return report.Dashboard{
		Revenue:      revenue,
		SalesCount:   count,
		RevenueByDay: byDay,
		TopProducts:  top,
	}, nil
}

// PriceVariance returns the override accounting per dimension bucket.
func (s *Service) PriceVariance(ctx context.Context, p membership.Principal, from, to time.Time, branchID *string, dimension report.Dimension) ([]report.VarianceRow, error) {
	if !report.ValidDimension(dimension) {
		return nil, errors.ErrInvalidArgument.WithMessage("dimension: must be product, staff, or branch")
	}

	q, err := s.buildQuery(ctx, p, from, to, branchID)
	if err != nil {
		return nil, err
	}

	rows, err := s.reports.Variance(ctx, q, dimension)
	if err != nil {
		return nil, errors.ErrInternal.Wrap(err)
	}

	for i := range rows {
		if rows[i].TotalSales > 0 {
			rows[i].OverrideRate = float64(rows[i].SalesWithOverride) / float64(rows[i].TotalSales)
		}
	}
	return rows, nil
}
