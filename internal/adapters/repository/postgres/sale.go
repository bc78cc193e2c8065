package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"retail-service/internal/domain/sale"
	"retail-service/internal/domain/stock"
	"retail-service/internal/infrastructure/store"
)

const saleColumns = `
	id, tenant_id, user_id, subtotal, tax, total, tax_rate, payment_method,
	customer_name, customer_email, customer_phone, notes, email_sent,
	whatsapp_sent, created_at`

type SaleRepository struct {
	db *sqlx.DB
}

// NewSaleRepository creates a new instance of SaleRepository.
func NewSaleRepository(db *sqlx.DB) *SaleRepository {
	return &SaleRepository{db: db}
}

// Create inserts the sale, its items, and the stock decrement movements in
// one transaction. Stock rows are locked in ascending product id order via
// the shared movement primitive; any failure rolls the whole sale back.
func (r *SaleRepository) Create(ctx context.Context, data sale.Sale, items []sale.Item, movements []stock.Movement) (sale.Sale, error) {
	err := withTx(r.db, func(tx *sqlx.Tx) error {
		insertSale := `
			INSERT INTO sales (tenant_id, user_id, subtotal, tax, total, tax_rate, payment_method,
				customer_name, customer_email, customer_phone, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, created_at`

		args := []interface{}{
			data.TenantID,
			data.UserID,
			data.Subtotal,
			data.Tax,
			data.Total,
			data.TaxRate,
			data.PaymentMethod,
			data.CustomerName,
			data.CustomerEmail,
			data.CustomerPhone,
			data.Notes,
		}
		if err := tx.QueryRowContext(ctx, insertSale, args...).Scan(&data.ID, &data.CreatedAt); err != nil {
			return err
		}

		// Stock first: an insufficient debit aborts before item rows exist.
		for i := range movements {
			movements[i].ReferenceID = &data.ID
		}
		if err := applyMovementsTx(ctx, tx, movements); err != nil {
			return err
		}

		insertItem := `
			INSERT INTO sale_items (sale_id, product_id, position, quantity, unit_price,
				is_price_override, variance, product_name, product_sku)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		for _, item := range items {
			_, err := tx.ExecContext(ctx, insertItem,
				data.ID,
				item.ProductID,
				item.Position,
				item.Quantity,
				item.UnitPrice,
				item.IsPriceOverride,
				item.Variance,
				item.ProductName,
				item.ProductSKU,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return sale.Sale{}, err
	}
	return data, nil
}

// Get retrieves a sale by ID from the store.
func (r *SaleRepository) Get(ctx context.Context, id string) (sale.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id=$1`

	var s sale.Sale
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s, store.ErrorNotFound
		}
		return s, err
	}
	return s, nil
}

// GetItems retrieves the items of a sale in caller order.
func (r *SaleRepository) GetItems(ctx context.Context, saleID string) ([]sale.Item, error) {
	query := `
		SELECT id, sale_id, product_id, position, quantity, unit_price,
			is_price_override, variance, product_name, product_sku
		FROM sale_items
		WHERE sale_id=$1
		ORDER BY position`

	items := []sale.Item{}
	if err := r.db.SelectContext(ctx, &items, query, saleID); err != nil {
		return nil, err
	}
	return items, nil
}

// filterClause builds the WHERE clause shared by List and Count.
func filterClause(filter sale.Filter) (string, []interface{}) {
	clauses := []string{"tenant_id = ANY($1)"}
	args := []interface{}{pq.Array(filter.TenantIDs)}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if filter.PaymentMethod != nil {
		args = append(args, string(*filter.PaymentMethod))
		clauses = append(clauses, fmt.Sprintf("payment_method=$%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("created_at < $%d", len(args)))
	}

	return strings.Join(clauses, " AND "), args
}

// List retrieves sales matching the filter, newest first.
func (r *SaleRepository) List(ctx context.Context, filter sale.Filter) ([]sale.Sale, error) {
	where, args := filterClause(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)

	query := fmt.Sprintf(`SELECT %s FROM sales WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		saleColumns, where, len(args)-1, len(args))

	sales := []sale.Sale{}
	if err := r.db.SelectContext(ctx, &sales, query, args...); err != nil {
		return nil, err
	}
	return sales, nil
}

// Count returns the number of sales matching the filter.
func (r *SaleRepository) Count(ctx context.Context, filter sale.Filter) (int64, error) {
	where, args := filterClause(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM sales WHERE %s`, where)

	var count int64
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkEmailSent sets the email receipt flag. Idempotent.
func (r *SaleRepository) MarkEmailSent(ctx context.Context, id string) error {
	return r.markFlag(ctx, id, "email_sent")
}

// MarkWhatsappSent sets the WhatsApp receipt flag. Idempotent.
func (r *SaleRepository) MarkWhatsappSent(ctx context.Context, id string) error {
	return r.markFlag(ctx, id, "whatsapp_sent")
}

func (r *SaleRepository) markFlag(ctx context.Context, id, column string) error {
	query := fmt.Sprintf(`UPDATE sales SET %s=TRUE WHERE id=$1 RETURNING id`, column)

	if err := r.db.QueryRowContext(ctx, query, id).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrorNotFound
		}
		return err
	}
	return nil
}
