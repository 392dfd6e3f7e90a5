package task

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/authz"
	taskDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/task"
	"github.com/trackifyhq/trackify/internal/core/events"
)

// Service handles the task workflow: creation, per-field audited edits,
// assignee-only status transitions and guarded deletion.
type Service struct {
	repo   Repository
	bus    *events.EventBus
	logger *slog.Logger
}

func NewService(repo Repository, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		bus:    bus,
		logger: logger,
	}
}

// Create makes a task for an assignee in a department of the actor's
// company. Entity and the Created audit row are written in one transaction;
// the assignee notification fans out afterwards.
func (s *Service) Create(ctx context.Context, actor authz.Identity, dto CreateTaskDTO) (*taskDatamodel.Task, error) {
	if !actor.Can(authz.CapManageTasks) {
		return nil, internal.NewSoftDenyError("you do not have permission to manage tasks", "/", internal.ErrCodeUnauthorizedAccess)
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if err := s.checkAssignment(actor, dto.AssigneeID, dto.DepartmentID); err != nil {
		return nil, err
	}

	actorID := actor.UserID
	t := &taskDatamodel.Task{
		CompanyID:    actor.CompanyID,
		DepartmentID: dto.DepartmentID,
		AssigneeID:   dto.AssigneeID,
		CreatorID:    &actorID,
		Title:        dto.Title,
		Description:  dto.Description,
		Status:       StatusPending,
		DueDate:      dto.DueDate,
	}

	history := []*taskDatamodel.TaskHistory{
		{Action: ActionCreated, ActorID: &actorID},
	}

	if err := s.repo.CreateWithHistory(t, history); err != nil {
		s.logger.Error("failed to create task", "error", err, "company_id", actor.CompanyID)
		return nil, internal.NewInternalError("failed to create task", err)
	}

	s.bus.Publish(ctx, events.NewTaskAssignedEvent(t.ID, t.AssigneeID, t.Title))

	s.logger.Info("task created",
		"task_id", t.ID,
		"assignee_id", t.AssigneeID,
		"created_by", actor.UserID)

	return t, nil
}

// Update applies an edit, writing one audit row per changed field. A no-op
// edit writes nothing. Status changes submitted through the edit form are
// discarded: status only moves via Transition.
func (s *Service) Update(ctx context.Context, actor authz.Identity, id int64, dto UpdateTaskDTO) (*taskDatamodel.Task, error) {
	if !actor.Can(authz.CapManageTasks) {
		return nil, internal.NewSoftDenyError("you do not have permission to manage tasks", "/", internal.ErrCodeUnauthorizedAccess)
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	t, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}

	if dto.Status != nil && *dto.Status != t.Status {
		// Force-reset: managers and supervisors cannot move status
		// through the edit form.
		s.logger.Info("status change via edit form discarded",
			"task_id", t.ID, "actor_id", actor.UserID, "attempted", *dto.Status)
	}

	actorID := actor.UserID
	var history []*taskDatamodel.TaskHistory
	reassignedTo := int64(0)

	if dto.Title != nil && *dto.Title != t.Title {
		history = append(history, diffRow(ActionUpdated, "title", t.Title, *dto.Title, actorID))
		t.Title = *dto.Title
	}
	if dto.Description != nil && *dto.Description != t.Description {
		history = append(history, diffRow(ActionUpdated, "description", t.Description, *dto.Description, actorID))
		t.Description = *dto.Description
	}
	if dto.AssigneeID != nil && *dto.AssigneeID != t.AssigneeID {
		if err := s.checkAssignment(actor, *dto.AssigneeID, t.DepartmentID); err != nil {
			return nil, err
		}
		history = append(history, diffRow(ActionAssignmentChanged, "assignee",
			formatInt(t.AssigneeID), formatInt(*dto.AssigneeID), actorID))
		t.AssigneeID = *dto.AssigneeID
		reassignedTo = *dto.AssigneeID
	}
	if dto.DueDate != nil && !dto.DueDate.Equal(t.DueDate) {
		history = append(history, diffRow(ActionDueDateChanged, "due_date",
			t.DueDate.Format("2006-01-02"), dto.DueDate.Format("2006-01-02"), actorID))
		t.DueDate = *dto.DueDate
	}

	if len(history) == 0 {
		return t, nil
	}

	if err := s.repo.UpdateWithHistory(t, history); err != nil {
		s.logger.Error("failed to update task", "error", err, "task_id", id)
		return nil, internal.NewInternalError("failed to update task", err)
	}

	if reassignedTo != 0 {
		s.bus.Publish(ctx, events.NewTaskReassignedEvent(t.ID, reassignedTo, t.Title))
	}

	return t, nil
}

// Transition moves the task status. Only the assignee may do this; an
// optional comment becomes its own CommentAdded audit row.
func (s *Service) Transition(ctx context.Context, actor authz.Identity, id int64, dto TransitionDTO) (*taskDatamodel.Task, error) {
	if !ValidStatus(dto.Status) {
		return nil, internal.NewValidationFieldError("status", "unknown task status", internal.ErrCodeValidationFailed)
	}

	t, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}

	if t.AssigneeID != actor.UserID && !actor.IsSuperuser {
		return nil, internal.NewSoftDenyError("only the assignee can change the task status", "/tasks", internal.ErrCodeNotAssignee)
	}

	if dto.Status == t.Status && dto.Comment == "" {
		return t, nil
	}

	actorID := actor.UserID
	var history []*taskDatamodel.TaskHistory
	if dto.Status != t.Status {
		history = append(history, diffRow(ActionStatusChanged, "status", t.Status, dto.Status, actorID))
		t.Status = dto.Status
	}
	if dto.Comment != "" {
		comment := dto.Comment
		history = append(history, &taskDatamodel.TaskHistory{
			Action:   ActionCommentAdded,
			Field:    "comment",
			NewValue: &comment,
			ActorID:  &actorID,
		})
	}

	if err := s.repo.UpdateWithHistory(t, history); err != nil {
		s.logger.Error("failed to transition task", "error", err, "task_id", id)
		return nil, internal.NewInternalError("failed to update task status", err)
	}

	return t, nil
}

// Delete removes a task unless it is already Done. The Deleted audit row
// keeps the title and outlives the task.
func (s *Service) Delete(actor authz.Identity, id int64) error {
	if !actor.Can(authz.CapManageTasks) {
		return internal.NewSoftDenyError("you do not have permission to manage tasks", "/", internal.ErrCodeUnauthorizedAccess)
	}

	t, err := s.Get(actor, id)
	if err != nil {
		return err
	}

	if t.Status == StatusDone {
		return internal.ErrTaskFinalized
	}

	actorID := actor.UserID
	title := t.Title
	history := &taskDatamodel.TaskHistory{
		TaskID:   t.ID,
		Action:   ActionDeleted,
		Field:    "title",
		OldValue: &title,
		ActorID:  &actorID,
	}

	if err := s.repo.DeleteWithHistory(t.ID, history); err != nil {
		s.logger.Error("failed to delete task", "error", err, "task_id", id)
		return internal.NewInternalError("failed to delete task", err)
	}

	s.logger.Info("task deleted", "task_id", id, "deleted_by", actor.UserID)
	return nil
}

// Get returns a task visible to the actor: same tenant, and either the
// assignee or a role that manages tasks.
func (s *Service) Get(actor authz.Identity, id int64) (*taskDatamodel.Task, error) {
	t, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !actor.Scope().SameTenant(t.CompanyID) {
		return nil, internal.ErrTaskNotFound
	}
	if t.AssigneeID != actor.UserID && !actor.IsManagerOrSupervisor() {
		return nil, internal.NewSoftDenyError("you cannot view this task", "/tasks", internal.ErrCodeUnauthorizedAccess)
	}
	return t, nil
}

// List applies the per-role department narrowing: Managers see their
// department (or the whole company when they have none), Supervisors see
// their department's workers, Workers see their own tasks.
func (s *Service) List(actor authz.Identity) ([]*taskDatamodel.Task, error) {
	filter := Filter{CompanyID: actor.CompanyID}

	switch {
	case actor.IsSuperuser:
		// no narrowing
	case actor.Role == authz.RoleManager:
		filter.DepartmentID = actor.DepartmentID
	case actor.Role == authz.RoleSupervisor:
		filter.DepartmentID = actor.DepartmentID
		filter.AssigneeRoleName = string(authz.RoleWorker)
	case actor.Role == authz.RoleWorker:
		assigneeID := actor.UserID
		filter.AssigneeID = &assigneeID
	}

	return s.repo.List(filter)
}

// MyTasks is the JSON feed for the mobile client: the actor's own tasks.
func (s *Service) MyTasks(actor authz.Identity) ([]*taskDatamodel.Task, error) {
	assigneeID := actor.UserID
	return s.repo.List(Filter{CompanyID: actor.CompanyID, AssigneeID: &assigneeID})
}

// History returns the audit trail for a task the actor can see.
func (s *Service) History(actor authz.Identity, taskID int64) ([]*taskDatamodel.TaskHistory, error) {
	if _, err := s.Get(actor, taskID); err != nil {
		return nil, err
	}
	return s.repo.History(taskID)
}

// checkAssignment enforces the creation invariants: assignee and department
// belong to the actor's company and the assignee works in that department.
func (s *Service) checkAssignment(actor authz.Identity, assigneeID, departmentID int64) error {
	assignee, err := s.repo.GetUser(assigneeID)
	if err != nil {
		return internal.NewValidationFieldError("assignee_id", "assignee not found", internal.ErrCodeValidationFailed)
	}
	if !actor.Scope().SameTenant(assignee.CompanyID) {
		return internal.NewCrossTenantError("assignee_id")
	}

	dept, err := s.repo.GetDepartment(departmentID)
	if err != nil {
		return internal.NewValidationFieldError("department_id", "department not found", internal.ErrCodeValidationFailed)
	}
	if !actor.Scope().SameTenant(dept.CompanyID) {
		return internal.NewCrossTenantError("department_id")
	}

	if assignee.DepartmentID == nil || *assignee.DepartmentID != departmentID {
		return internal.NewValidationFieldError("assignee_id", "assignee does not belong to the task's department", internal.ErrCodeDepartmentMismatch)
	}
	return nil
}

func diffRow(action, field, oldValue, newValue string, actorID int64) *taskDatamodel.TaskHistory {
	o, n := oldValue, newValue
	return &taskDatamodel.TaskHistory{
		Action:   action,
		Field:    field,
		OldValue: &o,
		NewValue: &n,
		ActorID:  &actorID,
	}
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
