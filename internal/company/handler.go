package company

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/trackifyhq/trackify/internal/transport"
	"github.com/trackifyhq/trackify/pkg/logger"
)

type ServiceAPI interface {
	Register(dto RegisterCompanyDTO) (*RegisteredTenant, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// Register handles company self-registration. Unauthenticated by design:
// this is how tenants come into existence.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterCompanyDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	registered, err := h.Service.Register(dto)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, CompanyResponse{
		ID:                 registered.Company.ID,
		Name:               registered.Company.Name,
		SubscriptionStatus: registered.Subscription.Status,
		HRUserID:           registered.HRUser.ID,
		HRUsername:         registered.HRUser.Username,
	})
}
