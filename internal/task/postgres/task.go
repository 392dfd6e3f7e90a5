package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/trackifyhq/trackify/internal"
	identityDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/identity"
	taskDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/task"
	tenantDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/tenant"
	"github.com/trackifyhq/trackify/internal/task"
)

// TaskRepository implements the task.Repository interface using GORM
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) task.Repository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) CreateWithHistory(t *taskDatamodel.Task, history []*taskDatamodel.TaskHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(t).Error; err != nil {
			return err
		}
		for _, h := range history {
			h.TaskID = t.ID
			if err := tx.Create(h).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *TaskRepository) UpdateWithHistory(t *taskDatamodel.Task, history []*taskDatamodel.TaskHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(t).Error; err != nil {
			return err
		}
		for _, h := range history {
			h.TaskID = t.ID
			if err := tx.Create(h).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *TaskRepository) DeleteWithHistory(taskID int64, history *taskDatamodel.TaskHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		history.TaskID = taskID
		if err := tx.Create(history).Error; err != nil {
			return err
		}
		return tx.Delete(&taskDatamodel.Task{}, taskID).Error
	})
}

func (r *TaskRepository) GetByID(id int64) (*taskDatamodel.Task, error) {
	var t taskDatamodel.Task
	err := r.db.Where("id = ?", id).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrTaskNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) List(filter task.Filter) ([]*taskDatamodel.Task, error) {
	q := r.db.Model(&taskDatamodel.Task{})
	if filter.CompanyID != 0 {
		q = q.Where("tasks.company_id = ?", filter.CompanyID)
	}
	if filter.DepartmentID != nil {
		q = q.Where("tasks.department_id = ?", *filter.DepartmentID)
	}
	if filter.AssigneeID != nil {
		q = q.Where("tasks.assignee_id = ?", *filter.AssigneeID)
	}
	if filter.AssigneeRoleName != "" {
		q = q.Joins("JOIN users ON users.id = tasks.assignee_id").
			Joins("JOIN roles ON roles.id = users.role_id").
			Where("roles.name = ?", filter.AssigneeRoleName)
	}

	var tasks []*taskDatamodel.Task
	err := q.Order("tasks.due_date ASC").Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) History(taskID int64) ([]*taskDatamodel.TaskHistory, error) {
	var rows []*taskDatamodel.TaskHistory
	err := r.db.Where("task_id = ?", taskID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *TaskRepository) GetUser(id int64) (*identityDatamodel.User, error) {
	var u identityDatamodel.User
	err := r.db.Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *TaskRepository) GetUserRoleName(id int64) (string, error) {
	var name string
	err := r.db.Raw(`SELECT COALESCE(r.name, '') FROM users u
	                 LEFT JOIN roles r ON r.id = u.role_id
	                 WHERE u.id = ?`, id).Scan(&name).Error
	return name, err
}

func (r *TaskRepository) GetDepartment(id int64) (*tenantDatamodel.Department, error) {
	var dept tenantDatamodel.Department
	err := r.db.Where("id = ?", id).First(&dept).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrDepartmentNotFound
		}
		return nil, err
	}
	return &dept, nil
}
