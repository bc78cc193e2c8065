package product

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
)

// Request represents the request payload for product create and update.
type Request struct {
	SKU                 string  `json:"sku"`
	Name                string  `json:"name"`
	Description         *string `json:"description,omitempty"`
	CategoryID          *string `json:"category_id,omitempty"`
	UnitID              *string `json:"unit_id,omitempty"`
	BaseCost            string  `json:"base_cost"`
	SellingPrice        string  `json:"selling_price"`
	IsService           bool    `json:"is_service"`
	DefaultReorderLevel int     `json:"default_reorder_level"`
	ImageKey            *string `json:"image_key,omitempty"`
}

// Bind validates the request payload.
func (s *Request) Bind(r *http.Request) error {
	if s.SKU == "" {
		return errors.New("sku: cannot be blank")
	}
	if s.Name == "" {
		return errors.New("name: cannot be blank")
	}

	price, err := decimal.NewFromString(s.SellingPrice)
	if err != nil {
		return errors.New("selling_price: must be a decimal number")
	}
	if !price.IsPositive() {
		return errors.New("selling_price: must be greater than zero")
	}

	if s.BaseCost != "" {
		cost, err := decimal.NewFromString(s.BaseCost)
		if err != nil || cost.IsNegative() {
			return errors.New("base_cost: must be a non-negative decimal number")
		}
	}

	if s.IsService && s.DefaultReorderLevel != 0 {
		return errors.New("default_reorder_level: must be zero for services")
	}
	if s.DefaultReorderLevel < 0 {
		return errors.New("default_reorder_level: cannot be negative")
	}

	return nil
}

// Response represents the response payload for product operations.
type Response struct {
	ID           string  `json:"id"`
	SKU          string  `json:"sku"`
	Name         string  `json:"name"`
	Description  *string `json:"description,omitempty"`
	CategoryID   *string `json:"category_id,omitempty"`
	UnitID       *string `json:"unit_id,omitempty"`
	BaseCost     string  `json:"base_cost"`
	SellingPrice string  `json:"selling_price"`
	IsService    bool    `json:"is_service"`
	ImageKey     *string `json:"image_key,omitempty"`
	IsAvailable  bool    `json:"is_available"`
}

// EffectiveResponse is a catalog row with the viewing branch's quantity.
type EffectiveResponse struct {
	Response
	Quantity     int  `json:"quantity"`
	ReorderLevel int  `json:"reorder_level"`
	LowStock     bool `json:"low_stock"`
}

// ParseFromEntity converts a product entity to a response payload.
func ParseFromEntity(data Product) Response {
	return Response{
		ID:           data.ID,
		SKU:          data.SKU,
		Name:         data.Name,
		Description:  data.Description,
		CategoryID:   data.CategoryID,
		UnitID:       data.UnitID,
		BaseCost:     data.BaseCost.String(),
		SellingPrice: data.SellingPrice.String(),
		IsService:    data.IsService,
		ImageKey:     data.ImageKey,
		IsAvailable:  data.IsAvailable,
	}
}

// ParseFromEffective converts an effective catalog row to a response payload.
func ParseFromEffective(data EffectiveProduct) EffectiveResponse {
	return EffectiveResponse{
		Response:     ParseFromEntity(data.Product),
		Quantity:     data.Quantity,
		ReorderLevel: data.ReorderLevel,
		LowStock:     data.IsLowStock(),
	}
}

// ParseFromEffectives converts effective catalog rows to response payloads.
func ParseFromEffectives(data []EffectiveProduct) []EffectiveResponse {
	res := make([]EffectiveResponse, len(data))
	for i, entity := range data {
		res[i] = ParseFromEffective(entity)
	}
	return res
}
