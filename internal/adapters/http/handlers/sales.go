package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/sale"
	"retail-service/internal/service/access"
	"retail-service/internal/service/sales"
	"retail-service/pkg/errors"
	"retail-service/pkg/pagination"
	"retail-service/pkg/server/response"
)

type SaleHandler struct {
	sales *sales.Service
}

func NewSaleHandler(salesService *sales.Service) *SaleHandler {
	return &SaleHandler{sales: salesService}
}

func (h *SaleHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.Post("/", h.create)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Post("/receipt", h.sendReceipt)
	})

	return r
}

func (h *SaleHandler) create(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionSaleCreate, sessionTenant, nil) {
		return
	}

	req := &sale.Request{}
	if err := render.Bind(r, req); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	created, err := h.sales.CreateSale(r.Context(), principal, *req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, r, created)
}

func (h *SaleHandler) list(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}

	// Staff fall back to their own sales; everyone else needs the listing
	// capability.
	action := access.ActionSaleViewAll
	if principal.RoleType == membership.RoleTypeStaff {
		action = access.ActionSaleViewOwn
	}
	if !authorize(w, r, principal, action, sessionTenant, nil) {
		return
	}

	filter := sale.Filter{}
	if branchID := optionalQuery(r, "branch_id"); branchID != nil {
		filter.TenantIDs = []string{*branchID}
	}
	if method := optionalQuery(r, "payment_method"); method != nil {
		pm := sale.PaymentMethod(*method)
		if !sale.ValidPaymentMethod(pm) {
			response.Error(w, r, errors.ErrInvalidArgument.WithMessage("payment_method: unknown method"))
			return
		}
		filter.PaymentMethod = &pm
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	paginator := pagination.NewPaginator(page, pageSize)

	result, err := h.sales.ListSales(r.Context(), principal, filter, paginator)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, result)
}

func (h *SaleHandler) get(w http.ResponseWriter, r *http.Request) {
	principal, _, ok := requestContext(w, r)
	if !ok {
		return
	}

	result, err := h.sales.GetSale(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, result)
}

type receiptRequest struct {
	Channel string `json:"channel"`
}

func (s *receiptRequest) Bind(r *http.Request) error {
	if s.Channel != "email" && s.Channel != "whatsapp" {
		return errors.ErrInvalidArgument.WithMessage("channel: must be email or whatsapp")
	}
	return nil
}

func (h *SaleHandler) sendReceipt(w http.ResponseWriter, r *http.Request) {
	principal, _, ok := requestContext(w, r)
	if !ok {
		return
	}

	req := &receiptRequest{}
	if err := render.Bind(r, req); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	if err := h.sales.SendReceipt(r.Context(), principal, chi.URLParam(r, "id"), req.Channel); err != nil {
		response.Error(w, r, err)
		return
	}
	response.NoContent(w, r)
}
