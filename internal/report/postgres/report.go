package postgres

import (
	"gorm.io/gorm"

	"github.com/trackifyhq/trackify/internal/report"
)

// ReportRepository implements the report.Repository interface using GORM
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) report.Repository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) TaskRows(filter report.TaskFilter) ([]report.TaskRow, error) {
	q := r.db.Table("tasks").
		Select(`tasks.id,
		        tasks.title,
		        tasks.status,
		        tasks.due_date,
		        tasks.created_at,
		        COALESCE(d.name, '') AS department_name,
		        COALESCE(a.first_name || ' ' || a.last_name, '') AS assignee_name,
		        COALESCE(c.first_name || ' ' || c.last_name, '') AS creator_name`).
		Joins("LEFT JOIN departments d ON d.id = tasks.department_id").
		Joins("LEFT JOIN users a ON a.id = tasks.assignee_id").
		Joins("LEFT JOIN users c ON c.id = tasks.creator_id")

	if !filter.Super {
		q = q.Where("tasks.company_id = ?", filter.CompanyID)
	}
	if filter.DepartmentID != nil {
		q = q.Where("tasks.department_id = ?", *filter.DepartmentID)
	}

	var rows []report.TaskRow
	err := q.Order("tasks.created_at DESC").Scan(&rows).Error
	return rows, err
}

func (r *ReportRepository) EvaluationRows(filter report.EvaluationFilter) ([]report.EvaluationRow, error) {
	q := r.db.Table("evaluations").
		Select(`evaluations.id,
		        evaluations.type,
		        evaluations.score,
		        evaluations.comments,
		        evaluations.created_at,
		        COALESCE(er.first_name || ' ' || er.last_name, '') AS evaluator_name,
		        COALESCE(ed.first_name || ' ' || ed.last_name, '') AS evaluated_name,
		        COALESCE(d.name, '') AS department_name`).
		Joins("LEFT JOIN users er ON er.id = evaluations.evaluator_id").
		Joins("LEFT JOIN users ed ON ed.id = evaluations.evaluated_id").
		Joins("LEFT JOIN departments d ON d.id = ed.department_id")

	if !filter.Super {
		q = q.Where("evaluations.company_id = ?", filter.CompanyID)
	}
	if filter.EvaluatedDepartmentID != nil {
		q = q.Where("ed.department_id = ?", *filter.EvaluatedDepartmentID)
	}
	if filter.Type != "" {
		q = q.Where("evaluations.type = ?", filter.Type)
	}

	var rows []report.EvaluationRow
	err := q.Order("evaluations.created_at DESC").Scan(&rows).Error
	return rows, err
}
