// Package sales implements the sales engine: atomic multi-item sale
// creation with VAT-inclusive pricing, price-override variance tracking,
// and stock decrement — everything committed or nothing.
package sales

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/product"
	"retail-service/internal/domain/sale"
	"retail-service/internal/domain/stock"
	"retail-service/internal/domain/tenant"
	"retail-service/internal/infrastructure/log"
	"retail-service/internal/infrastructure/store"
	"retail-service/pkg/errors"
	"retail-service/pkg/pagination"
)

// ReceiptPublisher enqueues rendered-receipt delivery jobs for external
// consumers. Publishing failures never fail the sale.
type ReceiptPublisher interface {
	Publish(ctx context.Context, body []byte) error
}

type Service struct {
	sales    sale.Repository
	products product.Repository
	stocks   stock.Repository
	tenants  tenant.Repository
	receipts ReceiptPublisher
}

func New(
	sales sale.Repository,
	products product.Repository,
	stocks stock.Repository,
	tenants tenant.Repository,
	receipts ReceiptPublisher,
) *Service {
	return &Service{
		sales:    sales,
		products: products,
		stocks:   stocks,
		tenants:  tenants,
		receipts: receipts,
	}
}

// scopeTenantIDs resolves the tenant scope a principal may list sales for.
func (s *Service) scopeTenantIDs(ctx context.Context, p membership.Principal) ([]string, error) {
	if p.RoleType == membership.RoleTypeOwner {
		t, err := s.tenants.Get(ctx, p.TenantID)
		if err != nil {
			return nil, errors.ErrInternal.Wrap(err)
		}
		ids := []string{t.ID}
		if t.IsOrganization() {
			children, err := s.tenants.ListChildren(ctx, t.ID)
			if err != nil {
				return nil, errors.ErrInternal.Wrap(err)
			}
			for _, child := range children {
				ids = append(ids, child.ID)
			}
		}
		return ids, nil
	}
	return []string{p.TenantID}, nil
}

// GetSale returns a sale with its items and product snapshots. Sales of
// other tenants are indistinguishable from missing ones.
func (s *Service) GetSale(ctx context.Context, p membership.Principal, id string) (sale.Response, error) {
	data, err := s.sales.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return sale.Response{}, errors.ErrNotFound
		}
		return sale.Response{}, errors.ErrInternal.Wrap(err)
	}

	scope, err := s.scopeTenantIDs(ctx, p)
	if err != nil {
		return sale.Response{}, err
	}
	if !contains(scope, data.TenantID) {
		return sale.Response{}, errors.ErrNotFound
	}
	// Staff only see their own sales.
	if p.RoleType == membership.RoleTypeStaff && data.UserID != p.UserID {
		return sale.Response{}, errors.ErrNotFound
	}

	items, err := s.sales.GetItems(ctx, id)
	if err != nil {
		return sale.Response{}, errors.ErrInternal.Wrap(err)
	}
	return sale.ParseFromEntity(data, items), nil
}

// ListSales returns a page of sales within the principal's scope.
func (s *Service) ListSales(ctx context.Context, p membership.Principal, filter sale.Filter, paginator *pagination.Paginator) (pagination.Page, error) {
	scope, err := s.scopeTenantIDs(ctx, p)
	if err != nil {
		return pagination.Page{}, err
	}

	// A branch filter from the caller narrows within scope, never beyond.
	if len(filter.TenantIDs) > 0 {
		narrowed := filter.TenantIDs[:0]
		for _, id := range filter.TenantIDs {
			if contains(scope, id) {
				narrowed = append(narrowed, id)
			}
		}
		if len(narrowed) == 0 {
			return paginator.BuildPage([]sale.Response{}, 0), nil
		}
		filter.TenantIDs = narrowed
	} else {
		filter.TenantIDs = scope
	}

	if p.RoleType == membership.RoleTypeStaff {
		filter.UserID = &p.UserID
	}

	filter.Limit = paginator.Limit()
	filter.Offset = paginator.Offset()

	rows, err := s.sales.List(ctx, filter)
	if err != nil {
		return pagination.Page{}, errors.ErrInternal.Wrap(err)
	}
	total, err := s.sales.Count(ctx, filter)
	if err != nil {
		return pagination.Page{}, errors.ErrInternal.Wrap(err)
	}

	return paginator.BuildPage(sale.ParseFromEntities(rows), int(total)), nil
}

// MarkEmailSent flags a sale's email receipt as delivered. Idempotent.
func (s *Service) MarkEmailSent(ctx context.Context, p membership.Principal, id string) error {
	if _, err := s.GetSale(ctx, p, id); err != nil {
		return err
	}
	return s.sales.MarkEmailSent(ctx, id)
}

// MarkWhatsappSent flags a sale's WhatsApp receipt as delivered. Idempotent.
func (s *Service) MarkWhatsappSent(ctx context.Context, p membership.Principal, id string) error {
	if _, err := s.GetSale(ctx, p, id); err != nil {
		return err
	}
	return s.sales.MarkWhatsappSent(ctx, id)
}

// SendReceipt enqueues a receipt delivery job and optimistically flags the
// channel. Delivery itself happens in an external consumer.
func (s *Service) SendReceipt(ctx context.Context, p membership.Principal, id, channel string) error {
	logger := log.FromContext(ctx).Named("send_receipt").With(zap.String("sale_id", id), zap.String("channel", channel))

	res, err := s.GetSale(ctx, p, id)
	if err != nil {
		return err
	}

	if s.receipts == nil {
		return errors.ErrInvalidArgument.WithMessage("receipt delivery is not configured")
	}

	job := map[string]interface{}{
		"sale_id": id,
		"channel": channel,
		"sale":    res,
	}
	body, err := json.Marshal(job)
	if err != nil {
		return errors.ErrInternal.Wrap(err)
	}
	if err := s.receipts.Publish(ctx, body); err != nil {
		logger.Warn("failed to enqueue receipt job", zap.Error(err))
		return errors.ErrGatewayUnavailable.WithMessage("receipt queue unavailable")
	}

	switch channel {
	case "email":
		return s.sales.MarkEmailSent(ctx, id)
	case "whatsapp":
		return s.sales.MarkWhatsappSent(ctx, id)
	default:
		return errors.ErrInvalidArgument.WithMessage("channel: must be email or whatsapp")
	}
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
