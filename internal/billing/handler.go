package billing

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/trackifyhq/trackify/internal/authz"
	"github.com/trackifyhq/trackify/internal/transport"
	"github.com/trackifyhq/trackify/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sub, err := h.Service.Overview(actor)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(sub))
}

// Checkout responds with the processor's init_point; the client redirects
// the payer there to authorize the recurring charge.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CheckoutDTO
	if r.Body != nil {
		// an empty body means "keep the current cycle"
		_ = json.NewDecoder(r.Body).Decode(&dto)
	}

	initPoint, err := h.Service.Checkout(r.Context(), actor, dto)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, CheckoutResponse{
		InitPoint: initPoint,
		Message:   "complete the payment authorization at the provided link",
	})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sub, err := h.Service.Refresh(r.Context(), actor)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(sub))
}

// Success, Failure and Pending are the processor's back_url landings; they
// only carry a flash message, activation itself arrives via webhook.
func (h *Handler) Success(w http.ResponseWriter, r *http.Request) {
	h.WriteRedirect(w, "/billing", "if the payment was authorized, your subscription will activate within minutes")
}

func (h *Handler) Failure(w http.ResponseWriter, r *http.Request) {
	h.WriteRedirect(w, "/billing/checkout", "the payment was not completed, please try again")
}

func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	h.WriteRedirect(w, "/billing", "your payment is pending, we will notify you when it confirms")
}

// Webhook ACKs every delivery with 200 regardless of processing outcome;
// failures are dead-lettered internally.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		body = []byte("{}")
	}

	h.Service.HandleWebhook(r.Context(), r.URL.Query(), body)
	w.WriteHeader(http.StatusOK)
}
