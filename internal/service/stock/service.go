// Package stock implements the per-branch quantity ledger operations on top
// of the storage-level movement primitive.
package stock

import (
	"context"

	"go.uber.org/zap"

	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/product"
	"retail-service/internal/domain/stock"
	"retail-service/internal/infrastructure/log"
	"retail-service/internal/infrastructure/store"
	"retail-service/pkg/errors"
)

type Service struct {
	stocks   stock.Repository
	products product.Repository
}

func New(stocks stock.Repository, products product.Repository) *Service {
	return &Service{stocks: stocks, products: products}
}

// Receive books incoming stock for a product in the principal's branch.
func (s *Service) Receive(ctx context.Context, p membership.Principal, branchID, productID string, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, errors.ErrInvalidArgument.WithMessage("quantity: must be positive")
	}
	return s.apply(ctx, p, branchID, productID, quantity, stock.ReasonReceive, nil)
}

// Adjust corrects a branch quantity by a signed delta.
func (s *Service) Adjust(ctx context.Context, p membership.Principal, branchID, productID string, delta int) (int, error) {
	if delta == 0 {
		return 0, errors.ErrInvalidArgument.WithMessage("delta: cannot be zero")
	}
	return s.apply(ctx, p, branchID, productID, delta, stock.ReasonAdjust, nil)
}

// Return books returned goods back into a branch.
func (s *Service) Return(ctx context.Context, p membership.Principal, branchID, productID string, quantity int, saleID string) (int, error) {
	if quantity <= 0 {
		return 0, errors.ErrInvalidArgument.WithMessage("quantity: must be positive")
	}
	var ref *string
	if saleID != "" {
		ref = &saleID
	}
	return s.apply(ctx, p, branchID, productID, quantity, stock.ReasonReturn, ref)
}

func (s *Service) apply(ctx context.Context, p membership.Principal, branchID, productID string, delta int, reason stock.Reason, referenceID *string) (int, error) {
	logger := log.FromContext(ctx).Named("apply_movement").With(
		zap.String("branch_id", branchID),
		zap.String("product_id", productID),
		zap.Int("delta", delta),
	)

	prod, err := s.products.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return 0, errors.ErrNotFound
		}
		return 0, errors.ErrInternal.Wrap(err)
	}
	if prod.IsService {
		return 0, stock.ErrNotTracked.WithDetails("product_id", productID)
	}

	qty, err := s.stocks.ApplyMovement(ctx, stock.Movement{
		TenantID:    branchID,
		ProductID:   productID,
		Delta:       delta,
		Reason:      reason,
		ReferenceID: referenceID,
		ActorUserID: p.UserID,
	})
	if err != nil {
		if errors.Is(err, errors.ErrInsufficientStock) {
			logger.Warn("insufficient stock", zap.Error(err))
			return 0, err
		}
		if errors.Is(err, store.ErrorNotFound) {
			return 0, errors.ErrNotFound
		}
		logger.Error("failed to apply movement", zap.Error(err))
		return 0, errors.ErrInternal.Wrap(err)
	}

	logger.Info("movement applied", zap.Int("new_quantity", qty), zap.String("reason", string(reason)))
	return qty, nil
}

// Quantity returns the branch's current quantity of a product.
func (s *Service) Quantity(ctx context.Context, branchID, productID string) (int, error) {
	qty, err := s.stocks.GetQuantity(ctx, branchID, productID)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return 0, errors.ErrNotFound
		}
		return 0, errors.ErrInternal.Wrap(err)
	}
	return qty, nil
}

// SetReorderLevel updates a branch's reorder threshold for one product.
func (s *Service) SetReorderLevel(ctx context.Context, p membership.Principal, branchID, productID string, level int) error {
	if level < 0 {
		return errors.ErrInvalidArgument.WithMessage("reorder_level: cannot be negative")
	}
	if err := s.stocks.SetReorderLevel(ctx, branchID, productID, level); err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return errors.ErrNotFound
		}
		return errors.ErrInternal.Wrap(err)
	}
	return nil
}

// Movements lists the committed movement audit trail of a branch.
func (s *Service) Movements(ctx context.Context, branchID string, filter stock.MovementFilter) ([]stock.Movement, error) {
	rows, err := s.stocks.ListMovements(ctx, branchID, filter)
	if err != nil {
		return nil, errors.ErrInternal.Wrap(err)
	}
	return rows, nil
}
