package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	domainstock "retail-service/internal/domain/stock"
	"retail-service/internal/service/access"
	"retail-service/internal/service/stock"
	"retail-service/pkg/errors"
	"retail-service/pkg/server/response"
)

type StockHandler struct {
	stock *stock.Service
}

func NewStockHandler(stockService *stock.Service) *StockHandler {
	return &StockHandler{stock: stockService}
}

func (h *StockHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/receive", h.receive)
	r.Post("/adjust", h.adjust)
	r.Post("/return", h.returnStock)
	r.Get("/movements", h.movements)
	r.Put("/{productID}/reorder-level", h.setReorderLevel)

	return r
}

type movementRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Delta     int    `json:"delta,omitempty"`
	SaleID    string `json:"sale_id,omitempty"`
}

func (s *movementRequest) Bind(r *http.Request) error {
	if s.ProductID == "" {
		return errors.ErrInvalidArgument.WithMessage("product_id: cannot be blank")
	}
	return nil
}

type quantityResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *StockHandler) receive(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionStockEdit, sessionTenant, nil) {
		return
	}

	req := &movementRequest{}
	if err := render.Bind(r, req); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	qty, err := h.stock.Receive(r.Context(), principal, sessionTenant.ID, req.ProductID, req.Quantity)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, quantityResponse{ProductID: req.ProductID, Quantity: qty})
}

func (h *StockHandler) adjust(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionStockEdit, sessionTenant, nil) {
		return
	}

	req := &movementRequest{}
	if err := render.Bind(r, req); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	qty, err := h.stock.Adjust(r.Context(), principal, sessionTenant.ID, req.ProductID, req.Delta)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, quantityResponse{ProductID: req.ProductID, Quantity: qty})
}

func (h *StockHandler) returnStock(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionStockEdit, sessionTenant, nil) {
		return
	}

	req := &movementRequest{}
	if err := render.Bind(r, req); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	qty, err := h.stock.Return(r.Context(), principal, sessionTenant.ID, req.ProductID, req.Quantity, req.SaleID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, quantityResponse{ProductID: req.ProductID, Quantity: qty})
}

func (h *StockHandler) movements(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	// Movement history is an edit-plane view; staff have no business here.
	if !authorize(w, r, principal, access.ActionDashboardView, sessionTenant, nil) {
		return
	}

	filter := domainstock.MovementFilter{ProductID: optionalQuery(r, "product_id")}
	if raw := optionalQuery(r, "reason"); raw != nil {
		reason := domainstock.Reason(*raw)
		filter.Reason = &reason
	}

	rows, err := h.stock.Movements(r.Context(), sessionTenant.ID, filter)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, rows)
}

type reorderLevelRequest struct {
	Level int `json:"level"`
}

func (s *reorderLevelRequest) Bind(r *http.Request) error {
	if s.Level < 0 {
		return errors.ErrInvalidArgument.WithMessage("level: cannot be negative")
	}
	return nil
}

func (h *StockHandler) setReorderLevel(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionStockEdit, sessionTenant, nil) {
		return
	}

	req := &reorderLevelRequest{}
	if err := render.Bind(r, req); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	if err := h.stock.SetReorderLevel(r.Context(), principal, sessionTenant.ID, chi.URLParam(r, "productID"), req.Level); err != nil {
		response.Error(w, r, err)
		return
	}
	response.NoContent(w, r)
}
