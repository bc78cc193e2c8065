package catalog

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/product"
	"retail-service/internal/infrastructure/log"
	"retail-service/internal/infrastructure/store"
	"retail-service/pkg/errors"
)

// CreateProduct adds a product to the organization's catalog. SKUs are
// unique per organization; branches never define their own. Stock rows with
// zero quantity are created for the root and every branch so the product is
// immediately visible everywhere.
func (s *Service) CreateProduct(ctx context.Context, p membership.Principal, req product.Request) (product.Response, error) {
	logger := log.FromContext(ctx).Named("create_product").With(
		zap.String("tenant_id", p.TenantID),
		zap.String("sku", req.SKU),
	)

	org, err := s.organizationOf(ctx, p.TenantID)
	if err != nil {
		return product.Response{}, err
	}

	if err := s.validateRefs(ctx, org.ID, req.CategoryID, req.UnitID); err != nil {
		return product.Response{}, err
	}

	exists, err := s.products.SKUExists(ctx, org.ID, req.SKU, "")
	if err != nil {
		return product.Response{}, errors.ErrInternal.Wrap(err)
	}
	if exists {
		return product.Response{}, errors.ErrConflict.WithMessage("sku already exists").WithDetails("sku", req.SKU)
	}

	entity, err := entityFromRequest(org.ID, req)
	if err != nil {
		return product.Response{}, err
	}

	id, err := s.products.Add(ctx, entity)
	if err != nil {
		if errors.Is(err, errors.ErrConflict) {
			return product.Response{}, errors.ErrConflict.WithMessage("sku already exists").WithDetails("sku", req.SKU)
		}
		logger.Error("failed to create product", zap.Error(err))
		return product.Response{}, errors.ErrInternal.Wrap(err)
	}
	entity.ID = id

	holders, err := s.stockHolders(ctx, org.ID)
	if err != nil {
		return product.Response{}, err
	}
	for _, branchID := range holders {
		if err := s.stocks.EnsureRow(ctx, branchID, id, entity.DefaultReorderLevel); err != nil {
			logger.Error("failed to seed stock row", zap.String("branch_id", branchID), zap.Error(err))
			return product.Response{}, errors.ErrInternal.Wrap(err)
		}
	}

	logger.Info("product created", zap.String("product_id", id))
	return product.ParseFromEntity(entity), nil
}

// UpdateProduct modifies a product of the organization's catalog.
func (s *Service) UpdateProduct(ctx context.Context, p membership.Principal, id string, req product.Request) (product.Response, error) {
	logger := log.FromContext(ctx).Named("update_product").With(zap.String("product_id", id))

	org, err := s.organizationOf(ctx, p.TenantID)
	if err != nil {
		return product.Response{}, err
	}

	existing, err := s.products.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return product.Response{}, errors.ErrNotFound
		}
		return product.Response{}, errors.ErrInternal.Wrap(err)
	}
	// Cross-tenant rows look exactly like missing rows.
	if existing.TenantID != org.ID {
		return product.Response{}, errors.ErrNotFound
	}

	if err := s.validateRefs(ctx, org.ID, req.CategoryID, req.UnitID); err != nil {
		return product.Response{}, err
	}

	if req.SKU != existing.SKU {
		exists, err := s.products.SKUExists(ctx, org.ID, req.SKU, id)
		if err != nil {
			return product.Response{}, errors.ErrInternal.Wrap(err)
		}
		if exists {
			return product.Response{}, errors.ErrConflict.WithMessage("sku already exists").WithDetails("sku", req.SKU)
		}
	}

	entity, err := entityFromRequest(org.ID, req)
	if err != nil {
		return product.Response{}, err
	}
	entity.ID = id
	entity.IsAvailable = existing.IsAvailable
	entity.CreatedAt = existing.CreatedAt

	if err := s.products.Update(ctx, id, entity); err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return product.Response{}, errors.ErrNotFound
		}
		logger.Error("failed to update product", zap.Error(err))
		return product.Response{}, errors.ErrInternal.Wrap(err)
	}

	return product.ParseFromEntity(entity), nil
}

// DeactivateProduct soft-deactivates a product. Products referenced by
// sales are never deleted.
func (s *Service) DeactivateProduct(ctx context.Context, p membership.Principal, id string) error {
	org, err := s.organizationOf(ctx, p.TenantID)
	if err != nil {
		return err
	}

	existing, err := s.products.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return errors.ErrNotFound
		}
		return errors.ErrInternal.Wrap(err)
	}
	if existing.TenantID != org.ID {
		return errors.ErrNotFound
	}

	return s.products.SetAvailability(ctx, id, false)
}

// validateRefs confirms category and unit references exist in the
// organization.
func (s *Service) validateRefs(ctx context.Context, orgID string, categoryID, unitID *string) error {
	if categoryID != nil {
		categories, err := s.products.ListCategories(ctx, orgID)
		if err != nil {
			return errors.ErrInternal.Wrap(err)
		}
		if !containsID(categories, *categoryID) {
			return errors.ErrInvalidArgument.WithMessage("category_id: unknown category")
		}
	}
	if unitID != nil {
		units, err := s.products.ListUnits(ctx, orgID)
		if err != nil {
			return errors.ErrInternal.Wrap(err)
		}
		if !containsUnitID(units, *unitID) {
			return errors.ErrInvalidArgument.WithMessage("unit_id: unknown unit")
		}
	}
	return nil
}

func containsID(categories []product.Category, id string) bool {
	for _, c := range categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

func containsUnitID(units []product.Unit, id string) bool {
	for _, u := range units {
		if u.ID == id {
			return true
		}
	}
	return false
}

func entityFromRequest(orgID string, req product.Request) (product.Product, error) {
	price, err := decimal.NewFromString(req.SellingPrice)
	if err != nil || !price.IsPositive() {
		return product.Product{}, errors.ErrInvalidArgument.WithMessage("selling_price: must be a positive decimal")
	}

	cost := decimal.Zero
	if req.BaseCost != "" {
		cost, err = decimal.NewFromString(req.BaseCost)
		if err != nil || cost.IsNegative() {
			return product.Product{}, errors.ErrInvalidArgument.WithMessage("base_cost: must be a non-negative decimal")
		}
	}

	reorder := req.DefaultReorderLevel
	if req.IsService {
		reorder = 0
	}

	return product.Product{
		TenantID:            orgID,
		SKU:                 req.SKU,
		Name:                req.Name,
		Description:         req.Description,
		CategoryID:          req.CategoryID,
		UnitID:              req.UnitID,
		BaseCost:            cost,
		SellingPrice:        price,
		IsService:           req.IsService,
		DefaultReorderLevel: reorder,
		ImageKey:            req.ImageKey,
		IsAvailable:         true,
	}, nil
}
