package sale

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ItemRequest is one line of a sale request. PriceOverride, when present,
// replaces the product's listed selling price for this line.
type ItemRequest struct {
	ProductID     string  `json:"product_id"`
	Quantity      int     `json:"quantity"`
	PriceOverride *string `json:"price_override,omitempty"`
}

// Request represents the request payload for sale creation.
type Request struct {
	Items         []ItemRequest `json:"items"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	CustomerName  *string       `json:"customer_name,omitempty"`
	CustomerEmail *string       `json:"customer_email,omitempty"`
	CustomerPhone *string       `json:"customer_phone,omitempty"`
	Notes         *string       `json:"notes,omitempty"`
}

// Bind validates the request payload.
func (s *Request) Bind(r *http.Request) error {
	if len(s.Items) == 0 {
		return errors.New("items: cannot be empty")
	}
	if !ValidPaymentMethod(s.PaymentMethod) {
		return errors.New("payment_method: must be one of cash, card, mobile_money, bank_transfer")
	}

	for i, item := range s.Items {
		if item.ProductID == "" {
			return fmt.Errorf("items[%d].product_id: cannot be blank", i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("items[%d].quantity: must be positive", i)
		}
		if item.PriceOverride != nil {
			price, err := decimal.NewFromString(*item.PriceOverride)
			if err != nil || !price.IsPositive() {
				return fmt.Errorf("items[%d].price_override: must be a positive decimal", i)
			}
		}
	}
	return nil
}

// ItemResponse is one sale line in responses.
type ItemResponse struct {
	ProductID       string `json:"product_id"`
	ProductName     string `json:"product_name"`
	ProductSKU      string `json:"product_sku"`
	Quantity        int    `json:"quantity"`
	UnitPrice       string `json:"unit_price"`
	LineTotal       string `json:"line_total"`
	IsPriceOverride bool   `json:"is_price_override"`
	Variance        string `json:"variance"`
}

// Response represents the response payload for sale operations.
type Response struct {
	ID            string         `json:"id"`
	TenantID      string         `json:"tenant_id"`
	UserID        string         `json:"user_id"`
	Subtotal      string         `json:"subtotal"`
	Tax           string         `json:"tax"`
	Total         string         `json:"total"`
	PaymentMethod PaymentMethod  `json:"payment_method"`
	CustomerName  *string        `json:"customer_name,omitempty"`
	CustomerEmail *string        `json:"customer_email,omitempty"`
	CustomerPhone *string        `json:"customer_phone,omitempty"`
	Notes         *string        `json:"notes,omitempty"`
	EmailSent     bool           `json:"email_sent"`
	WhatsappSent  bool           `json:"whatsapp_sent"`
	CreatedAt     time.Time      `json:"created_at"`
	Items         []ItemResponse `json:"items,omitempty"`
}

// ParseFromEntity converts a sale entity with its items to a response.
func ParseFromEntity(data Sale, items []Item) Response {
	res := Response{
		ID:            data.ID,
		TenantID:      data.TenantID,
		UserID:        data.UserID,
		Subtotal:      data.Subtotal.StringFixed(2),
		Tax:           data.Tax.StringFixed(2),
		Total:         data.Total.StringFixed(2),
		PaymentMethod: data.PaymentMethod,
		CustomerName:  data.CustomerName,
		CustomerEmail: data.CustomerEmail,
		CustomerPhone: data.CustomerPhone,
		Notes:         data.Notes,
		EmailSent:     data.EmailSent,
		WhatsappSent:  data.WhatsappSent,
		CreatedAt:     data.CreatedAt,
	}

	res.Items = make([]ItemResponse, len(items))
	for i, item := range items {
		res.Items[i] = ItemResponse{
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			ProductSKU:      item.ProductSKU,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice.StringFixed(2),
			LineTotal:       LineTotal(item.UnitPrice, item.Quantity).StringFixed(2),
			IsPriceOverride: item.IsPriceOverride,
			Variance:        item.Variance.StringFixed(2),
		}
	}
	return res
}

// ParseFromEntities converts sale entities (without items) to responses.
func ParseFromEntities(data []Sale) []Response {
	res := make([]Response, len(data))
	for i, entity := range data {
		res[i] = ParseFromEntity(entity, nil)
	}
	return res
}
