package report

import (
	"encoding/csv"
	"io"
	"log/slog"
	"strconv"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/authz"
	"github.com/trackifyhq/trackify/internal/evaluation"
)

const (
	dueDateLayout   = "2006-01-02"
	timestampLayout = "2006-01-02 15:04"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ExportTasks streams the task report the actor is allowed to see.
// Managers and supervisors are confined to their own department; an
// actor without a department gets an empty report rather than an error.
func (s *Service) ExportTasks(actor authz.Identity, w io.Writer) error {
	if !actor.Can(authz.CapExportReports) {
		return internal.NewSoftDenyError("you do not have permission to export reports", "/", internal.ErrCodeUnauthorizedAccess)
	}

	filter := TaskFilter{CompanyID: actor.CompanyID, Super: actor.IsSuperuser}
	if !actor.IsSuperuser {
		if actor.DepartmentID == nil {
			return writeTaskCSV(w, nil)
		}
		filter.DepartmentID = actor.DepartmentID
	}

	rows, err := s.repo.TaskRows(filter)
	if err != nil {
		s.logger.Error("task report query failed", slog.Any("error", err))
		return internal.NewInternalError("failed to build task report", err)
	}
	return writeTaskCSV(w, rows)
}

// ExportEvaluations streams the evaluation report. Managers see every
// evaluation of people in their department; supervisors only see worker
// evaluations there.
func (s *Service) ExportEvaluations(actor authz.Identity, w io.Writer) error {
	if !actor.Can(authz.CapExportReports) {
		return internal.NewSoftDenyError("you do not have permission to export reports", "/", internal.ErrCodeUnauthorizedAccess)
	}

	filter := EvaluationFilter{CompanyID: actor.CompanyID, Super: actor.IsSuperuser}
	switch {
	case actor.IsSuperuser:
		// no narrowing
	case actor.DepartmentID == nil:
		return writeEvaluationCSV(w, nil)
	case actor.Role == authz.RoleSupervisor:
		filter.EvaluatedDepartmentID = actor.DepartmentID
		filter.Type = evaluation.TypeWorkerEval
	default:
		filter.EvaluatedDepartmentID = actor.DepartmentID
	}

	rows, err := s.repo.EvaluationRows(filter)
	if err != nil {
		s.logger.Error("evaluation report query failed", slog.Any("error", err))
		return internal.NewInternalError("failed to build evaluation report", err)
	}
	return writeEvaluationCSV(w, rows)
}

func writeTaskCSV(w io.Writer, rows []TaskRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "title", "status", "department", "assignee", "creator", "due_date", "created_at"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			strconv.FormatInt(row.ID, 10),
			row.Title,
			row.Status,
			row.DepartmentName,
			row.AssigneeName,
			row.CreatorName,
			row.DueDate.Format(dueDateLayout),
			row.CreatedAt.Format(timestampLayout),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeEvaluationCSV(w io.Writer, rows []EvaluationRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "type", "score", "comments", "evaluator", "evaluated", "department", "created_at"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			strconv.FormatInt(row.ID, 10),
			row.Type,
			strconv.Itoa(row.Score),
			row.Comments,
			row.EvaluatorName,
			row.EvaluatedName,
			row.DepartmentName,
			row.CreatedAt.Format(timestampLayout),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
