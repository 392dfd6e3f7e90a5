package task

import "time"

type Task struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	CompanyID    int64     `gorm:"column:company_id;not null" json:"company_id"`
	DepartmentID int64     `gorm:"column:department_id;not null" json:"department_id"`
	AssigneeID   int64     `gorm:"column:assignee_id;not null" json:"assignee_id"`
	CreatorID    *int64    `gorm:"column:creator_id" json:"creator_id,omitempty"`
	Title        string    `gorm:"column:title;not null" json:"title"`
	Description  string    `gorm:"column:description" json:"description,omitempty"`
	Status       string    `gorm:"column:status;default:'Pending'" json:"status"`
	DueDate      time.Time `gorm:"column:due_date;not null" json:"due_date"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Task) TableName() string { return "tasks" }

// TaskHistory rows are append-only: written on every mutating task
// operation, never updated or deleted.
type TaskHistory struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	TaskID    int64     `gorm:"column:task_id;not null;index" json:"task_id"`
	Action    string    `gorm:"column:action;not null" json:"action"`
	Field     string    `gorm:"column:field" json:"field,omitempty"`
	OldValue  *string   `gorm:"column:old_value" json:"old_value,omitempty"`
	NewValue  *string   `gorm:"column:new_value" json:"new_value,omitempty"`
	ActorID   *int64    `gorm:"column:actor_id" json:"actor_id,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (TaskHistory) TableName() string { return "task_history" }
