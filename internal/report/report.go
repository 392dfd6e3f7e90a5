// Package report produces downloadable CSV exports of tasks and
// evaluations. Rows come back denormalized from the repository so the
// files carry names instead of ids.
package report

import "time"

// TaskRow is one line of the task export.
type TaskRow struct {
	ID             int64
	Title          string
	Status         string
	DepartmentName string
	AssigneeName   string
	CreatorName    string
	DueDate        time.Time
	CreatedAt      time.Time
}

// EvaluationRow is one line of the evaluation export.
type EvaluationRow struct {
	ID             int64
	Type           string
	Score          int
	Comments       string
	EvaluatorName  string
	EvaluatedName  string
	DepartmentName string
	CreatedAt      time.Time
}

// TaskFilter narrows the task export to the caller's visibility.
type TaskFilter struct {
	CompanyID    int64
	Super        bool
	DepartmentID *int64
}

// EvaluationFilter narrows the evaluation export. Type, when set,
// restricts rows to that evaluation type. EvaluatedDepartmentID filters
// on the evaluated user's department.
type EvaluationFilter struct {
	CompanyID             int64
	Super                 bool
	EvaluatedDepartmentID *int64
	Type                  string
}

type Repository interface {
	TaskRows(filter TaskFilter) ([]TaskRow, error)
	EvaluationRows(filter EvaluationFilter) ([]EvaluationRow, error)
}
