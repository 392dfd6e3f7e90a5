package task

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/authz"
	identityDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/identity"
	taskDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/task"
	tenantDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/tenant"
	"github.com/trackifyhq/trackify/internal/core/events"
)

func TestTaskService(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Task Service Suite")
}

type mockRepository struct {
	tasks       map[int64]*taskDatamodel.Task
	history     map[int64][]*taskDatamodel.TaskHistory
	users       map[int64]*identityDatamodel.User
	roleNames   map[int64]string
	departments map[int64]*tenantDatamodel.Department
	nextID      int64
}

func newMockRepository() *mockRepository {
	deptOps := int64(10)
	return &mockRepository{
		tasks:   make(map[int64]*taskDatamodel.Task),
		history: make(map[int64][]*taskDatamodel.TaskHistory),
		users: map[int64]*identityDatamodel.User{
			// company 1: Bob supervises Ops, Jane works in Ops
			2: {ID: 2, CompanyID: 1, DepartmentID: &deptOps, FirstName: "Bob"},
			3: {ID: 3, CompanyID: 1, DepartmentID: &deptOps, FirstName: "Jane"},
			// company 2 worker
			9: {ID: 9, CompanyID: 2, DepartmentID: &deptOps, FirstName: "Eve"},
		},
		roleNames: map[int64]string{2: "Supervisor", 3: "Worker", 9: "Worker"},
		departments: map[int64]*tenantDatamodel.Department{
			10: {ID: 10, CompanyID: 1, Name: "Ops"},
			20: {ID: 20, CompanyID: 2, Name: "Ops"},
		},
		nextID: 1,
	}
}

func (m *mockRepository) CreateWithHistory(t *taskDatamodel.Task, history []*taskDatamodel.TaskHistory) error {
	t.ID = m.nextID
	m.nextID++
	m.tasks[t.ID] = t
	for _, h := range history {
		h.TaskID = t.ID
		m.history[t.ID] = append(m.history[t.ID], h)
	}
	return nil
}

func (m *mockRepository) UpdateWithHistory(t *taskDatamodel.Task, history []*taskDatamodel.TaskHistory) error {
	m.tasks[t.ID] = t
	for _, h := range history {
		h.TaskID = t.ID
		m.history[t.ID] = append(m.history[t.ID], h)
	}
	return nil
}

func (m *mockRepository) DeleteWithHistory(taskID int64, history *taskDatamodel.TaskHistory) error {
	m.history[taskID] = append(m.history[taskID], history)
	delete(m.tasks, taskID)
	return nil
}

func (m *mockRepository) GetByID(id int64) (*taskDatamodel.Task, error) {
	if t, ok := m.tasks[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, internal.ErrTaskNotFound
}

func (m *mockRepository) List(filter Filter) ([]*taskDatamodel.Task, error) {
	var result []*taskDatamodel.Task
	for _, t := range m.tasks {
		if filter.CompanyID != 0 && t.CompanyID != filter.CompanyID {
			continue
		}
		if filter.DepartmentID != nil && t.DepartmentID != *filter.DepartmentID {
			continue
		}
		if filter.AssigneeID != nil && t.AssigneeID != *filter.AssigneeID {
			continue
		}
		if filter.AssigneeRoleName != "" && m.roleNames[t.AssigneeID] != filter.AssigneeRoleName {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

func (m *mockRepository) History(taskID int64) ([]*taskDatamodel.TaskHistory, error) {
	return m.history[taskID], nil
}

func (m *mockRepository) GetUser(id int64) (*identityDatamodel.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, internal.ErrUserNotFound
}

func (m *mockRepository) GetUserRoleName(id int64) (string, error) {
	return m.roleNames[id], nil
}

func (m *mockRepository) GetDepartment(id int64) (*tenantDatamodel.Department, error) {
	if d, ok := m.departments[id]; ok {
		return d, nil
	}
	return nil, internal.ErrDepartmentNotFound
}

func actionsOf(rows []*taskDatamodel.TaskHistory) []string {
	actions := make([]string, 0, len(rows))
	for _, h := range rows {
		actions = append(actions, h.Action)
	}
	return actions
}

var _ = ginkgo.Describe("TaskService", func() {
	var (
		service    *Service
		mockRepo   *mockRepository
		supervisor authz.Identity
		jane       authz.Identity
		ctx        context.Context
	)

	deptOps := int64(10)
	tomorrow := time.Now().AddDate(0, 0, 1)

	createDTO := func() CreateTaskDTO {
		return CreateTaskDTO{
			Title:        "Restock shelves",
			Description:  "Aisle 4",
			AssigneeID:   3,
			DepartmentID: 10,
			DueDate:      tomorrow,
		}
	}

	ginkgo.BeforeEach(func() {
		mockRepo = newMockRepository()
		lg := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		service = NewService(mockRepo, events.NewEventBus(lg), lg)
		ctx = context.Background()
		supervisor = authz.Identity{UserID: 2, CompanyID: 1, Role: authz.RoleSupervisor, DepartmentID: &deptOps}
		jane = authz.Identity{UserID: 3, CompanyID: 1, Role: authz.RoleWorker, DepartmentID: &deptOps}
	})

	ginkgo.Describe("Create", func() {
		ginkgo.It("should default status to Pending and log a Created row", func() {
			created, err := service.Create(ctx, supervisor, createDTO())

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(created.Status).To(gomega.Equal(StatusPending))
			gomega.Expect(actionsOf(mockRepo.history[created.ID])).To(gomega.Equal([]string{ActionCreated}))
		})

		ginkgo.It("should reject a due date in the past", func() {
			dto := createDTO()
			dto.DueDate = time.Now().AddDate(0, 0, -1)

			_, err := service.Create(ctx, supervisor, dto)
			gomega.Expect(err).To(gomega.HaveOccurred())
		})

		ginkgo.It("should reject an assignee from another company", func() {
			dto := createDTO()
			dto.AssigneeID = 9

			_, err := service.Create(ctx, supervisor, dto)

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.StatusCode).To(gomega.Equal(422))
		})

		ginkgo.It("should reject an assignee outside the task's department", func() {
			otherDept := int64(99)
			mockRepo.departments[99] = &tenantDatamodel.Department{ID: 99, CompanyID: 1, Name: "Sales"}
			dto := createDTO()
			dto.DepartmentID = otherDept

			_, err := service.Create(ctx, supervisor, dto)
			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("department"))
		})

		ginkgo.It("should soft-deny a worker creating tasks", func() {
			_, err := service.Create(ctx, jane, createDTO())

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.RedirectTo).ToNot(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("Update", func() {
		ginkgo.It("should write one audit row per changed field", func() {
			created, err := service.Create(ctx, supervisor, createDTO())
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			title := "Restock all shelves"
			due := tomorrow.AddDate(0, 0, 3)
			_, err = service.Update(ctx, supervisor, created.ID, UpdateTaskDTO{Title: &title, DueDate: &due})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			actions := actionsOf(mockRepo.history[created.ID])
			gomega.Expect(actions).To(gomega.ConsistOf(ActionCreated, ActionUpdated, ActionDueDateChanged))
		})

		ginkgo.It("should write zero audit rows for a no-op edit", func() {
			created, err := service.Create(ctx, supervisor, createDTO())
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			sameTitle := created.Title
			_, err = service.Update(ctx, supervisor, created.ID, UpdateTaskDTO{Title: &sameTitle})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(mockRepo.history[created.ID]).To(gomega.HaveLen(1))
		})

		ginkgo.It("should discard status changes submitted through the edit form", func() {
			created, err := service.Create(ctx, supervisor, createDTO())
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			done := StatusDone
			updated, err := service.Update(ctx, supervisor, created.ID, UpdateTaskDTO{Status: &done})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(updated.Status).To(gomega.Equal(StatusPending))
		})

		ginkgo.It("should log AssignmentChanged and revalidate the new assignee", func() {
			mockRepo.users[4] = &identityDatamodel.User{ID: 4, CompanyID: 1, DepartmentID: &deptOps, FirstName: "Pam"}
			mockRepo.roleNames[4] = "Worker"

			created, err := service.Create(ctx, supervisor, createDTO())
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			newAssignee := int64(4)
			updated, err := service.Update(ctx, supervisor, created.ID, UpdateTaskDTO{AssigneeID: &newAssignee})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(updated.AssigneeID).To(gomega.Equal(int64(4)))

			actions := actionsOf(mockRepo.history[created.ID])
			gomega.Expect(actions).To(gomega.ContainElement(ActionAssignmentChanged))
		})
	})

	ginkgo.Describe("Transition", func() {
		ginkgo.It("should let the assignee move status and log the change with the comment", func() {
			created, err := service.Create(ctx, supervisor, createDTO())
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			updated, err := service.Transition(ctx, jane, created.ID, TransitionDTO{Status: StatusInProgress, Comment: "started"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(updated.Status).To(gomega.Equal(StatusInProgress))

			actions := actionsOf(mockRepo.history[created.ID])
			gomega.Expect(actions).To(gomega.Equal([]string{ActionCreated, ActionStatusChanged, ActionCommentAdded}))
		})

		ginkgo.It("should deny a non-assignee even with a managing role", func() {
			created, err := service.Create(ctx, supervisor, createDTO())
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.Transition(ctx, supervisor, created.ID, TransitionDTO{Status: StatusInProgress})

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Code).To(gomega.Equal(internal.ErrCodeNotAssignee))
		})

		ginkgo.It("should reject an unknown status", func() {
			created, err := service.Create(ctx, supervisor, createDTO())
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.Transition(ctx, jane, created.ID, TransitionDTO{Status: "Paused"})
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("Delete", func() {
		ginkgo.It("should refuse to delete a finished task", func() {
			created, err := service.Create(ctx, supervisor, createDTO())
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.Transition(ctx, jane, created.ID, TransitionDTO{Status: StatusDone})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			err = service.Delete(supervisor, created.ID)
			gomega.Expect(err).To(gomega.Equal(internal.ErrTaskFinalized))
		})

		ginkgo.It("should log Deleted with the title before removal", func() {
			created, err := service.Create(ctx, supervisor, createDTO())
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(service.Delete(supervisor, created.ID)).To(gomega.Succeed())

			rows := mockRepo.history[created.ID]
			last := rows[len(rows)-1]
			gomega.Expect(last.Action).To(gomega.Equal(ActionDeleted))
			gomega.Expect(*last.OldValue).To(gomega.Equal("Restock shelves"))

			_, err = service.Get(supervisor, created.ID)
			gomega.Expect(err).To(gomega.Equal(internal.ErrTaskNotFound))
		})
	})

	ginkgo.Describe("Get", func() {
		ginkgo.It("should soft-deny an HR user who is not the assignee", func() {
			created, err := service.Create(ctx, supervisor, createDTO())
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			hr := authz.Identity{UserID: 5, CompanyID: 1, Role: authz.RoleHR}
			_, err = service.Get(hr, created.ID)

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.RedirectTo).To(gomega.Equal("/tasks"))
		})

		ginkgo.It("should let the assignee view their task", func() {
			created, err := service.Create(ctx, supervisor, createDTO())
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			t, err := service.Get(jane, created.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(t.ID).To(gomega.Equal(created.ID))
		})
	})

	ginkgo.Describe("List", func() {
		ginkgo.It("should show a worker only their own tasks", func() {
			created, err := service.Create(ctx, supervisor, createDTO())
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			mockRepo.users[4] = &identityDatamodel.User{ID: 4, CompanyID: 1, DepartmentID: &deptOps}
			mockRepo.roleNames[4] = "Worker"
			other := createDTO()
			other.AssigneeID = 4
			_, err = service.Create(ctx, supervisor, other)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			tasks, err := service.List(jane)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(tasks).To(gomega.HaveLen(1))
			gomega.Expect(tasks[0].ID).To(gomega.Equal(created.ID))
		})

		ginkgo.It("should narrow a supervisor to workers in their department", func() {
			_, err := service.Create(ctx, supervisor, createDTO())
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			tasks, err := service.List(supervisor)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(tasks).To(gomega.HaveLen(1))
		})

		ginkgo.It("should hide tasks from other tenants", func() {
			created, err := service.Create(ctx, supervisor, createDTO())
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			otherManager := authz.Identity{UserID: 8, CompanyID: 2, Role: authz.RoleManager}
			_, err = service.Get(otherManager, created.ID)
			gomega.Expect(err).To(gomega.Equal(internal.ErrTaskNotFound))
		})
	})
})
