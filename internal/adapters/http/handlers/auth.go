// Package handlers exposes the platform's HTTP surface: thin translation
// between wire payloads and services, with the authorization gate consulted
// before anything that mutates or crosses branch boundaries.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"retail-service/internal/adapters/http/middleware"
	"retail-service/internal/domain/tenant"
	"retail-service/internal/service/identity"
	"retail-service/pkg/errors"
	"retail-service/pkg/server/response"
)

type AuthHandler struct {
	identity *identity.Service
}

func NewAuthHandler(identityService *identity.Service) *AuthHandler {
	return &AuthHandler{identity: identityService}
}

// PublicRoutes are reachable without a session.
func (h *AuthHandler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.login)
	r.Post("/register", h.register)
	return r
}

// Routes require an authenticated principal.
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/refresh", h.refresh)
	r.Post("/switch", h.switchTenant)
	r.Get("/memberships", h.memberships)
	return r
}

type loginRequest struct {
	Credential string `json:"credential"`
	Password   string `json:"password"`
	Subdomain  string `json:"subdomain"`
}

func (s *loginRequest) Bind(r *http.Request) error {
	if s.Credential == "" || s.Password == "" || s.Subdomain == "" {
		return errors.ErrInvalidArgument.WithMessage("credential, password, and subdomain are required")
	}
	return nil
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	req := &loginRequest{}
	if err := render.Bind(r, req); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	session, err := h.identity.Authenticate(r.Context(), req.Credential, req.Password, req.Subdomain)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, session)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	req := &tenant.RegisterRequest{}
	if err := render.Bind(r, req); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	session, err := h.identity.Register(r.Context(), *req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, r, session)
}

// refresh reissues the session token for the current (user, tenant) pair;
// the membership is re-resolved so revocations take effect immediately.
func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, errors.ErrUnauthenticated)
		return
	}

	session, err := h.identity.RefreshToken(r.Context(), principal.UserID, principal.TenantID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, session)
}

type switchRequest struct {
	TenantID string `json:"tenant_id"`
}

func (s *switchRequest) Bind(r *http.Request) error {
	if s.TenantID == "" {
		return errors.ErrInvalidArgument.WithMessage("tenant_id is required")
	}
	return nil
}

func (h *AuthHandler) switchTenant(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, errors.ErrUnauthenticated)
		return
	}

	req := &switchRequest{}
	if err := render.Bind(r, req); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	session, err := h.identity.SwitchTenant(r.Context(), principal.UserID, req.TenantID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, session)
}

func (h *AuthHandler) memberships(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, errors.ErrUnauthenticated)
		return
	}

	targets, err := h.identity.ListMemberships(r.Context(), principal.UserID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, targets)
}
