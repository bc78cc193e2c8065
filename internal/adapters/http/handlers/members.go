package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/tenant"
	"retail-service/internal/service/access"
	"retail-service/internal/service/identity"
	"retail-service/pkg/errors"
	"retail-service/pkg/server/response"
)

type MemberHandler struct {
	identity *identity.Service
}

func NewMemberHandler(identityService *identity.Service) *MemberHandler {
	return &MemberHandler{identity: identityService}
}

func (h *MemberHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.add)
	r.Delete("/{id}", h.remove)
	return r
}

// BranchRoutes manage the branch hierarchy itself; owner only.
func (h *MemberHandler) BranchRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.createBranch)
	return r
}

func (h *MemberHandler) list(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionMemberManage, sessionTenant, nil) {
		return
	}

	rows, err := h.identity.ListMembers(r.Context(), principal)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, rows)
}

func (h *MemberHandler) add(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionMemberManage, sessionTenant, nil) {
		return
	}

	req := &memberPayload{}
	if err := render.Bind(r, req); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	created, err := h.identity.AddMember(r.Context(), principal, req.MemberRequest)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, r, created)
}

func (h *MemberHandler) remove(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionMemberManage, sessionTenant, nil) {
		return
	}

	if err := h.identity.RemoveMember(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		response.Error(w, r, err)
		return
	}
	response.NoContent(w, r)
}

func (h *MemberHandler) createBranch(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if principal.RoleType != membership.RoleTypeOwner {
		response.Error(w, r, errors.ErrForbidden)
		return
	}
	if !authorize(w, r, principal, access.ActionSettingsEdit, sessionTenant, nil) {
		return
	}

	req := &tenant.BranchRequest{}
	if err := render.Bind(r, req); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	created, err := h.identity.CreateBranch(r.Context(), principal, *req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, r, created)
}

// memberPayload wraps MemberRequest with request binding.
type memberPayload struct {
	identity.MemberRequest
}

func (s *memberPayload) Bind(r *http.Request) error {
	if s.Email == "" {
		return errors.ErrInvalidArgument.WithMessage("email: cannot be blank")
	}
	if s.Role == "" {
		return errors.ErrInvalidArgument.WithMessage("role: cannot be blank")
	}
	return nil
}
