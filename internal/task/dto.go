package task

import (
	"time"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/core/common/validation"
	taskDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/task"
)

type CreateTaskDTO struct {
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	AssigneeID   int64     `json:"assignee_id"`
	DepartmentID int64     `json:"department_id"`
	DueDate      time.Time `json:"due_date"`
}

func (d CreateTaskDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("title", d.Title).Required().MaxLength(200)
	v.Field("assignee_id", d.AssigneeID).Required()
	v.Field("department_id", d.DepartmentID).Required()
	v.Field("due_date", d.DueDate).Required().NotPast()
	return v.Validate()
}

// UpdateTaskDTO carries the editable fields; nil means unchanged. Status is
// accepted but force-reset server-side: only the assignee's transition
// endpoint may move it.
type UpdateTaskDTO struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	AssigneeID   *int64     `json:"assignee_id,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Status       *string    `json:"status,omitempty"`
}

func (d UpdateTaskDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	if d.Title != nil {
		v.Field("title", *d.Title).Required().MaxLength(200)
	}
	if d.DueDate != nil {
		v.Field("due_date", *d.DueDate).Required().NotPast()
	}
	return v.Validate()
}

// TransitionDTO is the assignee-only status change, with an optional
// comment logged as its own audit row.
type TransitionDTO struct {
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
}

type TaskResponse struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Status       string    `json:"status"`
	AssigneeID   int64     `json:"assignee_id"`
	DepartmentID int64     `json:"department_id"`
	CreatorID    *int64    `json:"creator_id,omitempty"`
	DueDate      time.Time `json:"due_date"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func ToResponse(t *taskDatamodel.Task) TaskResponse {
	return TaskResponse{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status,
		AssigneeID:   t.AssigneeID,
		DepartmentID: t.DepartmentID,
		CreatorID:    t.CreatorID,
		DueDate:      t.DueDate,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

type HistoryResponse struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Field     string    `json:"field,omitempty"`
	OldValue  *string   `json:"old_value,omitempty"`
	NewValue  *string   `json:"new_value,omitempty"`
	ActorID   *int64    `json:"actor_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func ToHistoryResponse(h *taskDatamodel.TaskHistory) HistoryResponse {
	return HistoryResponse{
		ID:        h.ID,
		Action:    h.Action,
		Field:     h.Field,
		OldValue:  h.OldValue,
		NewValue:  h.NewValue,
		ActorID:   h.ActorID,
		CreatedAt: h.CreatedAt,
	}
}
