package evaluation

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/trackifyhq/trackify/internal/authz"
	evaluationDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/evaluation"
	"github.com/trackifyhq/trackify/internal/transport"
	"github.com/trackifyhq/trackify/pkg/logger"
)

type ServiceAPI interface {
	Create(ctx context.Context, actor authz.Identity, dto CreateEvaluationDTO) (*evaluationDatamodel.Evaluation, error)
	Update(ctx context.Context, actor authz.Identity, id int64, dto UpdateEvaluationDTO) (*evaluationDatamodel.Evaluation, error)
	Delete(actor authz.Identity, id int64) error
	Get(actor authz.Identity, id int64) (*evaluationDatamodel.Evaluation, error)
	List(actor authz.Identity) ([]*evaluationDatamodel.Evaluation, error)
	MyEvaluations(actor authz.Identity) ([]*evaluationDatamodel.Evaluation, error)
	History(actor authz.Identity, evaluationID int64) ([]*evaluationDatamodel.EvaluationHistory, error)
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

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateEvaluationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ev, err := h.Service.Create(r.Context(), actor, dto)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, ToResponse(ev))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	evs, err := h.Service.List(actor)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	responses := make([]EvaluationResponse, 0, len(evs))
	for _, ev := range evs {
		responses = append(responses, ToResponse(ev))
	}
	h.WriteJSON(w, http.StatusOK, responses)
}

func (h *Handler) MyEvaluations(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	evs, err := h.Service.MyEvaluations(actor)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	responses := make([]EvaluationResponse, 0, len(evs))
	for _, ev := range evs {
		responses = append(responses, ToResponse(ev))
	}
	h.WriteJSON(w, http.StatusOK, responses)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid evaluation id")
		return
	}

	ev, err := h.Service.Get(actor, id)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(ev))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid evaluation id")
		return
	}

	var dto UpdateEvaluationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ev, err := h.Service.Update(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(ev))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid evaluation id")
		return
	}

	if err := h.Service.Delete(actor, id); err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "evaluation deleted"})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid evaluation id")
		return
	}

	rows, err := h.Service.History(actor, id)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	responses := make([]HistoryResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, ToHistoryResponse(row))
	}
	h.WriteJSON(w, http.StatusOK, responses)
}
