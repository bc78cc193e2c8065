package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"retail-service/internal/domain/subscription"
	"retail-service/internal/service/access"
	"retail-service/internal/service/billing"
	"retail-service/pkg/errors"
	"retail-service/pkg/server/response"
)

// SignatureVerifier checks webhook payload signatures before any side
// effect.
type SignatureVerifier interface {
	VerifyWebhookSignature(payload []byte, signature string) bool
}

// WebhookSignatureHeader carries the gateway's HMAC of the body.
const WebhookSignatureHeader = "X-Gateway-Signature"

const maxWebhookBody = 1 << 20 // 1 MiB

type SubscriptionHandler struct {
	billing  *billing.Service
	verifier SignatureVerifier
}

func NewSubscriptionHandler(billingService *billing.Service, verifier SignatureVerifier) *SubscriptionHandler {
	return &SubscriptionHandler{billing: billingService, verifier: verifier}
}

func (h *SubscriptionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/status", h.status)
	r.Get("/transactions", h.transactions)
	r.Get("/verify/{reference}", h.verify)
	r.Post("/initialize", h.initialize)
	r.Post("/branches", h.addBranch)
	r.Post("/cancel", h.cancel)
	r.Post("/reactivate", h.reactivate)
	r.Post("/auto-renewal/enable", h.enableAutoRenewal)
	r.Post("/auto-renewal/disable", h.disableAutoRenewal)

	return r
}

// WebhookRoutes are signature-authenticated, not session-authenticated.
func (h *SubscriptionHandler) WebhookRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/gateway", h.webhook)
	return r
}

func (h *SubscriptionHandler) status(w http.ResponseWriter, r *http.Request) {
	principal, _, ok := requestContext(w, r)
	if !ok {
		return
	}

	result, err := h.billing.Status(r.Context(), principal)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, result)
}

func (h *SubscriptionHandler) transactions(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionSubscriptionManage, sessionTenant, nil) {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	rows, err := h.billing.ListTransactions(r.Context(), principal, limit, offset)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, rows)
}

// verify is deliberately open to any authenticated member: the customer
// landing back from checkout may not hold subscription.manage, and the
// operation is idempotent.
func (h *SubscriptionHandler) verify(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := requestContext(w, r); !ok {
		return
	}

	result, err := h.billing.Verify(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, result)
}

func (h *SubscriptionHandler) initialize(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionSubscriptionManage, sessionTenant, nil) {
		return
	}

	req := &subscription.InitializePayload{}
	if err := render.Bind(r, req); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	result, err := h.billing.Initialize(r.Context(), principal, *req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, result)
}

func (h *SubscriptionHandler) addBranch(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionSubscriptionManage, sessionTenant, nil) {
		return
	}

	req := &subscription.AddBranchPayload{}
	if err := render.Bind(r, req); err != nil {
		response.BadRequest(w, r, err)
		return
	}

	result, err := h.billing.AddBranch(r.Context(), principal, *req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, result)
}

func (h *SubscriptionHandler) cancel(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionSubscriptionManage, sessionTenant, nil) {
		return
	}

	if err := h.billing.Cancel(r.Context(), principal); err != nil {
		response.Error(w, r, err)
		return
	}
	response.NoContent(w, r)
}

func (h *SubscriptionHandler) reactivate(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionSubscriptionManage, sessionTenant, nil) {
		return
	}

	if err := h.billing.Reactivate(r.Context(), principal); err != nil {
		response.Error(w, r, err)
		return
	}
	response.NoContent(w, r)
}

func (h *SubscriptionHandler) enableAutoRenewal(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionSubscriptionManage, sessionTenant, nil) {
		return
	}

	if err := h.billing.EnableAutoRenewal(r.Context(), principal); err != nil {
		response.Error(w, r, err)
		return
	}
	response.NoContent(w, r)
}

func (h *SubscriptionHandler) disableAutoRenewal(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}
	if !authorize(w, r, principal, access.ActionSubscriptionManage, sessionTenant, nil) {
		return
	}

	if err := h.billing.DisableAutoRenewal(r.Context(), principal); err != nil {
		response.Error(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// webhook verifies the HMAC signature before touching the payload, then
// acknowledges everything the billing service absorbs — duplicates
// included — with a 2xx so the gateway stops retrying.
func (h *SubscriptionHandler) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		response.Error(w, r, errors.ErrInvalidArgument.WithMessage("unreadable payload"))
		return
	}

	signature := r.Header.Get(WebhookSignatureHeader)
	if !h.verifier.VerifyWebhookSignature(body, signature) {
		response.Error(w, r, errors.ErrUnauthenticated.WithMessage("invalid webhook signature"))
		return
	}

	if err := h.billing.HandleWebhook(r.Context(), body); err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, map[string]string{"status": "acknowledged"})
}
