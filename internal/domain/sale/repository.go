package sale

import (
	"context"
	"time"

	"retail-service/internal/domain/stock"
)

// Filter narrows sale listings.
type Filter struct {
	// TenantIDs scopes the listing; resolved by the caller from the
	// principal (a branch, or an organization plus all of its branches).
	TenantIDs []string

	// UserID restricts to one cashier's sales (staff see only their own).
	UserID *string

	PaymentMethod *PaymentMethod

	// From and To are UTC instants, already resolved from the tenant's
	// local calendar dates.
	From *time.Time
	To   *time.Time

	Limit  int
	Offset int
}

// Repository defines the interface for sale persistence.
//
// Create persists the sale, its items, and the stock decrement movements in
// one transaction: on any failure nothing is visible, stock included. The
// Postgres implementation runs it at the default isolation level, not
// serializable, and locks the stock rows it decrements.
type Repository interface {
	// Create inserts the sale and its items, applying the given stock
	// movements atomically. Movement reference ids are filled with the new
	// sale id. Returns the stored sale with its id assigned.
	Create(ctx context.Context, data Sale, items []Item, movements []stock.Movement) (Sale, error)

	// Get retrieves a sale by ID.
	Get(ctx context.Context, id string) (Sale, error)

	// GetItems retrieves the items of a sale in caller order.
	GetItems(ctx context.Context, saleID string) ([]Item, error)

	// List retrieves sales matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]Sale, error)

	// Count returns the number of sales matching the filter.
	Count(ctx context.Context, filter Filter) (int64, error)

	// MarkEmailSent and MarkWhatsappSent set receipt-delivery flags.
	// Both are idempotent.
	MarkEmailSent(ctx context.Context, id string) error
	MarkWhatsappSent(ctx context.Context, id string) error
}
