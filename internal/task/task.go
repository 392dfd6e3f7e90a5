package task

import (
	identityDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/identity"
	taskDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/task"
	tenantDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/tenant"
)

// Task status values. Overdue is a manual label: no code path applies it
// automatically when a due date passes.
const (
	StatusPending    = "Pending"
	StatusInProgress = "InProgress"
	StatusOverdue    = "Overdue"
	StatusDone       = "Done"
)

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusInProgress, StatusOverdue, StatusDone:
		return true
	}
	return false
}

// Audit actions written to task_history.
const (
	ActionCreated           = "Created"
	ActionUpdated           = "Updated"
	ActionStatusChanged     = "StatusChanged"
	ActionAssignmentChanged = "AssignmentChanged"
	ActionDueDateChanged    = "DueDateChanged"
	ActionCommentAdded      = "CommentAdded"
	ActionDeleted           = "Deleted"
)

// Filter narrows task listings. CompanyID is always set for non-superusers;
// the optional fields implement the per-role department narrowing.
type Filter struct {
	CompanyID        int64
	DepartmentID     *int64
	AssigneeID       *int64
	AssigneeRoleName string
}

// Repository defines the data access methods for tasks. The WithHistory
// methods write the entity and its audit rows in one transaction.
type Repository interface {
	CreateWithHistory(t *taskDatamodel.Task, history []*taskDatamodel.TaskHistory) error
	UpdateWithHistory(t *taskDatamodel.Task, history []*taskDatamodel.TaskHistory) error
	// DeleteWithHistory writes the audit row and removes the task in one
	// transaction. History rows survive the task.
	DeleteWithHistory(taskID int64, history *taskDatamodel.TaskHistory) error

	GetByID(id int64) (*taskDatamodel.Task, error)
	List(filter Filter) ([]*taskDatamodel.Task, error)
	History(taskID int64) ([]*taskDatamodel.TaskHistory, error)

	GetUser(id int64) (*identityDatamodel.User, error)
	GetUserRoleName(id int64) (string, error)
	GetDepartment(id int64) (*tenantDatamodel.Department, error)
}
