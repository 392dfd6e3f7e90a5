package report

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/trackifyhq/trackify/internal/authz"
	"github.com/trackifyhq/trackify/internal/transport"
	"github.com/trackifyhq/trackify/pkg/logger"
)

type ServiceAPI interface {
	ExportTasks(actor authz.Identity, w io.Writer) error
	ExportEvaluations(actor authz.Identity, w io.Writer) error
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

// TasksCSV godoc
// @Summary Download the task report as CSV
// @Tags reports
// @Produce text/csv
// @Success 200 {string} string "CSV payload"
// @Router /reports/tasks/csv [get]
func (h *Handler) TasksCSV(w http.ResponseWriter, r *http.Request) {
	h.streamCSV(w, r, "tasks", h.Service.ExportTasks)
}

// EvaluationsCSV godoc
// @Summary Download the evaluation report as CSV
// @Tags reports
// @Produce text/csv
// @Success 200 {string} string "CSV payload"
// @Router /reports/evaluations/csv [get]
func (h *Handler) EvaluationsCSV(w http.ResponseWriter, r *http.Request) {
	h.streamCSV(w, r, "evaluations", h.Service.ExportEvaluations)
}

func (h *Handler) streamCSV(w http.ResponseWriter, r *http.Request, name string, export func(authz.Identity, io.Writer) error) {
	actor, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Permission failures must surface before any CSV bytes go out, so the
	// export is buffered per request.
	var buf bytes.Buffer
	if err := export(actor, &buf); err != nil {
		h.HandleError(w, err)
		return
	}

	filename := fmt.Sprintf("%s_%s.csv", name, time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
