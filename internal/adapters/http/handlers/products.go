package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"retail-service/internal/domain/product"
	"retail-service/internal/service/access"
	"retail-service/internal/service/catalog"
	"retail-service/pkg/errors"
	"retail-service/pkg/server/response"
)

type ProductHandler struct {
	catalog *catalog.Service
}

func NewProductHandler(catalogService *catalog.Service) *ProductHandler {
	return &ProductHandler{catalog: catalogService}
}

func (h *ProductHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/low-stock", h.lowStock)

	r.Route("/{id}", func(r chi.Router) {
		r.Put("/", h.update)
		r.Delete("/", h.deactivate)
	})

	return r
}

func (h *ProductHandler) CategoryRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.listCategories)
	r.Post("/", h.createCategory)
	return r
}

func (h *ProductHandler) UnitRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.listUnits)
	r.Post("/", h.createUnit)
	return r
}

// list returns the effective catalog. Viewing another branch's quantities
// is an owner capability.
func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}

	branchView := optionalQuery(r, "branch_view")
	if branchView != nil && *branchView != principal.TenantID {
		if !authorize(w, r, principal, access.ActionDashboardView, sessionTenant, branchView) {
			return
		}
	}

	rows, err := h.catalog.ListProducts(r.Context(), principal, branchView)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, rows)
}

func (h *ProductHandler) lowStock(w http.ResponseWriter, r *http.Request) {
	principal, _, ok := requestContext(w, r)
	if !ok {
		return
	}

	rows, err := h.catalog.LowStock(r.Context(), principal)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, rows)
}

func (h *ProductHandler) create(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionCatalogEdit, sessionTenant, nil) {
		return
	}

	req := &product.Request{}
	if err := render.Bind(r, req); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	created, err := h.catalog.CreateProduct(r.Context(), principal, *req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, r, created)
}

func (h *ProductHandler) update(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionCatalogEdit, sessionTenant, nil) {
		return
	}

	req := &product.Request{}
	if err := render.Bind(r, req); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	updated, err := h.catalog.UpdateProduct(r.Context(), principal, chi.URLParam(r, "id"), *req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, updated)
}

func (h *ProductHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionCatalogEdit, sessionTenant, nil) {
		return
	}

	if err := h.catalog.DeactivateProduct(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		response.Error(w, r, err)
		return
	}
	response.NoContent(w, r)
}

func (h *ProductHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	principal, _, ok := requestContext(w, r)
	if !ok {
		return
	}

	rows, err := h.catalog.ListCategories(r.Context(), principal)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, rows)
}

type nameRequest struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation,omitempty"`
}

func (s *nameRequest) Bind(r *http.Request) error {
	if s.Name == "" {
		return errors.ErrInvalidArgument.WithMessage("name: cannot be blank")
	}
	return nil
}

func (h *ProductHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionCatalogEdit, sessionTenant, nil) {
		return
	}

	req := &nameRequest{}
	if err := render.Bind(r, req); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	created, err := h.catalog.AddCategory(r.Context(), principal, req.Name)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, r, created)
}

func (h *ProductHandler) listUnits(w http.ResponseWriter, r *http.Request) {
	principal, _, ok := requestContext(w, r)
	if !ok {
		return
	}

	rows, err := h.catalog.ListUnits(r.Context(), principal)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, rows)
}

func (h *ProductHandler) createUnit(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionCatalogEdit, sessionTenant, nil) {
		return
	}

	req := &nameRequest{}
	if err := render.Bind(r, req); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	created, err := h.catalog.AddUnit(r.Context(), principal, req.Name, req.Abbreviation)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, r, created)
}
