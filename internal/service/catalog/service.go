// Package catalog implements product, category, and unit management with
// the effective-catalog view: branches see their parent organization's
// products joined against their own stock rows.
package catalog

import (
	"context"

	"go.uber.org/zap"

	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/product"
	"retail-service/internal/domain/stock"
	"retail-service/internal/domain/tenant"
	"retail-service/internal/infrastructure/log"
	"retail-service/internal/infrastructure/store"
	"retail-service/pkg/errors"
)

type Service struct {
	products product.Repository
	stocks   stock.Repository
	tenants  tenant.Repository
}

func New(products product.Repository, stocks stock.Repository, tenants tenant.Repository) *Service {
	return &Service{
		products: products,
		stocks:   stocks,
		tenants:  tenants,
	}
}

// organizationOf resolves the catalog-owning organization for the
// principal's tenant.
func (s *Service) organizationOf(ctx context.Context, tenantID string) (tenant.Tenant, error) {
	t, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return tenant.Tenant{}, errors.ErrNotFound
		}
		return tenant.Tenant{}, errors.ErrInternal.Wrap(err)
	}
	if t.IsOrganization() {
		return t, nil
	}
	parent, err := s.tenants.Get(ctx, *t.ParentID)
	if err != nil {
		return tenant.Tenant{}, errors.ErrInternal.Wrap(err)
	}
	return parent, nil
}

// stockHolders lists every tenant that holds stock rows for an
// organization's products: the root itself plus all branches.
func (s *Service) stockHolders(ctx context.Context, orgID string) ([]string, error) {
	children, err := s.tenants.ListChildren(ctx, orgID)
	if err != nil {
		return nil, errors.ErrInternal.Wrap(err)
	}
	ids := make([]string, 0, len(children)+1)
	ids = append(ids, orgID)
	for _, child := range children {
		ids = append(ids, child.ID)
	}
	return ids, nil
}

// ListProducts returns the effective catalog for the principal's tenant, or
// for another branch of the organization when branchViewID is set (owners
// only; the gate enforces the view permission upstream).
func (s *Service) ListProducts(ctx context.Context, p membership.Principal, branchViewID *string) ([]product.EffectiveResponse, error) {
	logger := log.FromContext(ctx).Named("list_products").With(zap.String("tenant_id", p.TenantID))

	org, err := s.organizationOf(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}

	viewID := p.TenantID
	if branchViewID != nil {
		branch, err := s.tenants.Get(ctx, *branchViewID)
		if err != nil {
			if errors.Is(err, store.ErrorNotFound) {
				return nil, errors.ErrNotFound
			}
			return nil, errors.ErrInternal.Wrap(err)
		}
		// The viewed branch must live under the same organization.
		if branch.OrganizationID() != org.ID {
			return nil, errors.ErrNotFound
		}
		viewID = branch.ID
	}

	rows, err := s.products.ListEffective(ctx, org.ID, viewID)
	if err != nil {
		logger.Error("failed to list effective catalog", zap.Error(err))
		return nil, errors.ErrInternal.Wrap(err)
	}
	return product.ParseFromEffectives(rows), nil
}

// LowStock returns the effective catalog rows at or below reorder level for
// the principal's branch.
func (s *Service) LowStock(ctx context.Context, p membership.Principal) ([]product.EffectiveResponse, error) {
	rows, err := s.ListProducts(ctx, p, nil)
	if err != nil {
		return nil, err
	}
	low := rows[:0]
	for _, r := range rows {
		if r.LowStock && !r.IsService {
			low = append(low, r)
		}
	}
	return low, nil
}

// ListCategories returns the organization's categories.
func (s *Service) ListCategories(ctx context.Context, p membership.Principal) ([]product.Category, error) {
	org, err := s.organizationOf(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}
	rows, err := s.products.ListCategories(ctx, org.ID)
	if err != nil {
		return nil, errors.ErrInternal.Wrap(err)
	}
	return rows, nil
}

// ListUnits returns the organization's units of measure.
func (s *Service) ListUnits(ctx context.Context, p membership.Principal) ([]product.Unit, error) {
	org, err := s.organizationOf(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}
	rows, err := s.products.ListUnits(ctx, org.ID)
	if err != nil {
		return nil, errors.ErrInternal.Wrap(err)
	}
	return rows, nil
}

// AddCategory creates an organization-scoped category.
func (s *Service) AddCategory(ctx context.Context, p membership.Principal, name string) (product.Category, error) {
	if name == "" {
		return product.Category{}, errors.ErrInvalidArgument.WithMessage("name: cannot be blank")
	}
	org, err := s.organizationOf(ctx, p.TenantID)
	if err != nil {
		return product.Category{}, err
	}
	c := product.Category{TenantID: org.ID, Name: name}
	id, err := s.products.AddCategory(ctx, c)
	if err != nil {
		return product.Category{}, errors.ErrInternal.Wrap(err)
	}
	c.ID = id
	return c, nil
}

// AddUnit creates an organization-scoped unit of measure.
func (s *Service) AddUnit(ctx context.Context, p membership.Principal, name, abbreviation string) (product.Unit, error) {
	if name == "" {
		return product.Unit{}, errors.ErrInvalidArgument.WithMessage("name: cannot be blank")
	}
	org, err := s.organizationOf(ctx, p.TenantID)
	if err != nil {
		return product.Unit{}, err
	}
	u := product.Unit{TenantID: org.ID, Name: name, Abbreviation: abbreviation}
	id, err := s.products.AddUnit(ctx, u)
	if err != nil {
		return product.Unit{}, errors.ErrInternal.Wrap(err)
	}
	u.ID = id
	return u, nil
}
