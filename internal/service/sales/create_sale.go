package sales

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/sale"
	"retail-service/internal/domain/stock"
	"retail-service/internal/infrastructure/log"
	"retail-service/internal/infrastructure/store"
	"retail-service/pkg/errors"
)

// CreateSale records a multi-item sale in the principal's tenant.
//
// Product validation against the effective catalog happens here, before
// the storage layer is called. The storage layer then runs the rest in one
// transaction at the database's default isolation level, not serializable:
// stock decrement (row locks taken in ascending product id order), the sale
// row with its VAT-inclusive totals, the item rows with variance tracking,
// and the movement audit records. Any failure there rolls everything back —
// quantities and movements never reflect an attempted sale.
func (s *Service) CreateSale(ctx context.Context, p membership.Principal, req sale.Request) (sale.Response, error) {
	logger := log.FromContext(ctx).Named("create_sale").With(
		zap.String("tenant_id", p.TenantID),
		zap.Int("item_count", len(req.Items)),
	)

	branch, err := s.tenants.Get(ctx, p.TenantID)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return sale.Response{}, errors.ErrNotFound
		}
		return sale.Response{}, errors.ErrInternal.Wrap(err)
	}
	orgID := branch.OrganizationID()

	ids := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.ProductID)
	}

	productsByID, err := s.products.GetMany(ctx, orgID, ids)
	if err != nil {
		return sale.Response{}, errors.ErrInternal.Wrap(err)
	}

	items := make([]sale.Item, 0, len(req.Items))
	movements := make([]stock.Movement, 0, len(req.Items))
	total := decimal.Zero

	for i, reqItem := range req.Items {
		prod, ok := productsByID[reqItem.ProductID]
		if !ok {
			return sale.Response{}, errors.ErrNotFound.
				WithMessage("unknown product").
				WithDetails("product_id", reqItem.ProductID)
		}
		if !prod.IsAvailable {
			return sale.Response{}, errors.ErrInvalidArgument.
				WithMessage("product is not available").
				WithDetails("product_id", reqItem.ProductID)
		}

		// The product must be in this branch's effective catalog: a stock
		// row must exist for the (branch, product) pair.
		if _, err := s.stocks.Get(ctx, branch.ID, prod.ID); err != nil {
			if errors.Is(err, store.ErrorNotFound) {
				return sale.Response{}, errors.ErrNotFound.
					WithMessage("unknown product").
					WithDetails("product_id", reqItem.ProductID)
			}
			return sale.Response{}, errors.ErrInternal.Wrap(err)
		}

		unitPrice := prod.SellingPrice
		if reqItem.PriceOverride != nil {
			unitPrice, err = decimal.NewFromString(*reqItem.PriceOverride)
			if err != nil || !unitPrice.IsPositive() {
				return sale.Response{}, errors.ErrInvalidArgument.
					WithMessage("price_override: must be a positive decimal").
					WithDetails("product_id", reqItem.ProductID)
			}
		}

		variance := unitPrice.Sub(prod.SellingPrice)
		items = append(items, sale.Item{
			ProductID:       prod.ID,
			Position:        i,
			Quantity:        reqItem.Quantity,
			UnitPrice:       unitPrice,
			IsPriceOverride: !variance.IsZero(),
			Variance:        variance,
			ProductName:     prod.Name,
			ProductSKU:      prod.SKU,
		})
		total = total.Add(sale.LineTotal(unitPrice, reqItem.Quantity))

		if !prod.IsService {
			movements = append(movements, stock.Movement{
				TenantID:    branch.ID,
				ProductID:   prod.ID,
				Delta:       -reqItem.Quantity,
				Reason:      stock.ReasonSale,
				ActorUserID: p.UserID,
			})
		}
	}

	totals := sale.ComputeTotals(total, branch.TaxRate)

	data := sale.Sale{
		TenantID:      branch.ID,
		UserID:        p.UserID,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
		TaxRate:       branch.TaxRate,
		PaymentMethod: req.PaymentMethod,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
	}

	created, err := s.sales.Create(ctx, data, items, movements)
	if err != nil {
		if errors.Is(err, errors.ErrInsufficientStock) {
			logger.Warn("insufficient stock", zap.Error(err))
			return sale.Response{}, err
		}
		logger.Error("failed to create sale", zap.Error(err))
		return sale.Response{}, errors.ErrInternal.Wrap(err)
	}

	storedItems, err := s.sales.GetItems(ctx, created.ID)
	if err != nil {
		return sale.Response{}, errors.ErrInternal.Wrap(err)
	}

	logger.Info("sale created",
		zap.String("sale_id", created.ID),
		zap.String("total", created.Total.StringFixed(2)),
	)
	return sale.ParseFromEntity(created, storedItems), nil
}
