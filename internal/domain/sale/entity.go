package sale

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer settled a sale.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodMobileMoney  PaymentMethod = "mobile_money"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// ValidPaymentMethod reports whether m is one of the accepted methods.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodMobileMoney, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// Sale is one point-of-sale transaction. TenantID is the branch where the
// sale happened (the organization id for org-root sales). Monetary fields
// are VAT-inclusive: Total is exact, Subtotal and Tax are extracted from it
// using the tenant's tax rate snapshot at sale time.
type Sale struct {
	ID       string `db:"id"`
	TenantID string `db:"tenant_id"`
	UserID   string `db:"user_id"`

	Subtotal decimal.Decimal `db:"subtotal"`
	Tax      decimal.Decimal `db:"tax"`
	Total    decimal.Decimal `db:"total"`

	// TaxRate is the tenant rate denormalized at sale time so historical
	// sales survive later settings changes.
	TaxRate decimal.Decimal `db:"tax_rate"`

	PaymentMethod PaymentMethod `db:"payment_method"`

	CustomerName  *string `db:"customer_name"`
	CustomerEmail *string `db:"customer_email"`
	CustomerPhone *string `db:"customer_phone"`
	Notes         *string `db:"notes"`

	EmailSent    bool `db:"email_sent"`
	WhatsappSent bool `db:"whatsapp_sent"`

	CreatedAt time.Time `db:"created_at"`
}

// Item is one line of a sale. UnitPrice is the effective VAT-inclusive price
// charged; Variance is the signed difference against the product's listed
// selling price at sale time.
type Item struct {
	ID        string `db:"id"`
	SaleID    string `db:"sale_id"`
	ProductID string `db:"product_id"`

	// Position preserves the caller's item order; stock locking reorders by
	// product id internally but the visible record does not.
	Position int `db:"position"`

	Quantity        int             `db:"quantity"`
	UnitPrice       decimal.Decimal `db:"unit_price"`
	IsPriceOverride bool            `db:"is_price_override"`
	Variance        decimal.Decimal `db:"variance"`

	// ProductName and ProductSKU are denormalized snapshots for receipts.
	ProductName string `db:"product_name"`
	ProductSKU  string `db:"product_sku"`
}
