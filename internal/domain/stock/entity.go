// Package stock models the per-branch quantity ledger and its append-only
// movement audit trail. Quantities never go negative; every change flows
// through a movement.
package stock

import (
	"net/http"
	"time"

	"retail-service/pkg/errors"
)

// Reason classifies a stock movement.
type Reason string

const (
	ReasonSale    Reason = "sale"
	ReasonReceive Reason = "receive"
	ReasonAdjust  Reason = "adjust"
	ReasonReturn  Reason = "return"
)

// ErrNotTracked is returned when a movement addresses a service product.
var ErrNotTracked = errors.New("NOT_TRACKED", "stock is not tracked for service products", http.StatusUnprocessableEntity)

// BranchStock is one branch's quantity of one product.
// A product is visible to a branch iff this row exists; rows are created
// with quantity zero when the product is created.
type BranchStock struct {
	TenantID     string    `db:"tenant_id"`
	ProductID    string    `db:"product_id"`
	Quantity     int       `db:"quantity"`
	ReorderLevel int       `db:"reorder_level"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Movement is an append-only audit record of one stock change.
type Movement struct {
	ID          string    `db:"id"`
	TenantID    string    `db:"tenant_id"`
	ProductID   string    `db:"product_id"`
	Delta       int       `db:"delta"`
	Reason      Reason    `db:"reason"`
	ReferenceID *string   `db:"reference_id"`
	ActorUserID string    `db:"actor_user_id"`
	CreatedAt   time.Time `db:"created_at"`
}
