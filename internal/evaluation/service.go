package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/authz"
	evaluationDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/evaluation"
	identityDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/identity"
	"github.com/trackifyhq/trackify/internal/core/events"
)

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

// Create writes a new evaluation with its Created audit row and notifies
// the evaluated user. The pairing is fixed by role: Managers evaluate
// Supervisors, Supervisors evaluate Workers, both within their department.
func (s *Service) Create(ctx context.Context, actor authz.Identity, dto CreateEvaluationDTO) (*evaluationDatamodel.Evaluation, error) {
	if !actor.Can(authz.CapManageEvaluations) {
		return nil, internal.NewSoftDenyError("you do not have permission to manage evaluations", "/", internal.ErrCodeUnauthorizedAccess)
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if dto.EvaluatedID == actor.UserID {
		return nil, internal.NewValidationFieldError("evaluated_id", "you cannot evaluate yourself", internal.ErrCodeSelfEvaluation)
	}

	evaluated, evalType, err := s.checkPairing(actor, dto.EvaluatedID)
	if err != nil {
		return nil, err
	}

	ev := &evaluationDatamodel.Evaluation{
		CompanyID:   evaluated.CompanyID,
		EvaluatorID: actor.UserID,
		EvaluatedID: dto.EvaluatedID,
		Type:        evalType,
		Score:       dto.Score,
		Comments:    dto.Comments,
	}

	actorID := actor.UserID
	newScore := strconv.Itoa(dto.Score)
	history := []*evaluationDatamodel.EvaluationHistory{{
		Action:   ActionCreated,
		Field:    "score",
		NewValue: &newScore,
		ActorID:  &actorID,
	}}

	if err := s.repo.CreateWithHistory(ev, history); err != nil {
		s.logger.Error("failed to create evaluation", "error", err, "evaluated_id", dto.EvaluatedID)
		return nil, internal.NewInternalError("failed to create evaluation", err)
	}

	s.bus.Publish(ctx, events.NewEvaluationCreatedEvent(ev.ID, ev.EvaluatedID, ev.Score))

	s.logger.Info("evaluation created",
		"evaluation_id", ev.ID, "type", ev.Type,
		"evaluator_id", actor.UserID, "evaluated_id", ev.EvaluatedID)
	return ev, nil
}

// Update applies an edit by the original evaluator, writing one audit row
// per changed field. A no-op edit writes nothing.
func (s *Service) Update(ctx context.Context, actor authz.Identity, id int64, dto UpdateEvaluationDTO) (*evaluationDatamodel.Evaluation, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	ev, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}
	if ev.EvaluatorID != actor.UserID && !actor.IsSuperuser {
		return nil, internal.NewSoftDenyError("only the original evaluator can edit this evaluation", "/evaluations", internal.ErrCodeUnauthorizedAccess)
	}

	actorID := actor.UserID
	var history []*evaluationDatamodel.EvaluationHistory

	if dto.Score != nil && *dto.Score != ev.Score {
		history = append(history, diffRow("score", strconv.Itoa(ev.Score), strconv.Itoa(*dto.Score), actorID))
		ev.Score = *dto.Score
	}
	if dto.Comments != nil && *dto.Comments != ev.Comments {
		history = append(history, diffRow("comments", ev.Comments, *dto.Comments, actorID))
		ev.Comments = *dto.Comments
	}

	if len(history) == 0 {
		return ev, nil
	}

	if err := s.repo.UpdateWithHistory(ev, history); err != nil {
		s.logger.Error("failed to update evaluation", "error", err, "evaluation_id", id)
		return nil, internal.NewInternalError("failed to update evaluation", err)
	}

	s.bus.Publish(ctx, events.NewEvaluationUpdatedEvent(ev.ID, ev.EvaluatedID, ev.Score))
	return ev, nil
}

// Delete removes an evaluation. Allowed for the original evaluator or a
// Manager over the evaluated user's department. The Deleted audit row
// snapshots the score and comments and survives the evaluation.
func (s *Service) Delete(actor authz.Identity, id int64) error {
	ev, err := s.Get(actor, id)
	if err != nil {
		return err
	}

	if !s.canDelete(actor, ev) {
		return internal.NewSoftDenyError("you cannot delete this evaluation", "/evaluations", internal.ErrCodeUnauthorizedAccess)
	}

	actorID := actor.UserID
	snapshot := fmt.Sprintf("score=%d", ev.Score)
	if ev.Comments != "" {
		snapshot += "; " + ev.Comments
	}
	history := &evaluationDatamodel.EvaluationHistory{
		EvaluationID: ev.ID,
		Action:       ActionDeleted,
		Field:        "evaluation",
		OldValue:     &snapshot,
		ActorID:      &actorID,
	}

	if err := s.repo.DeleteWithHistory(ev.ID, history); err != nil {
		s.logger.Error("failed to delete evaluation", "error", err, "evaluation_id", id)
		return internal.NewInternalError("failed to delete evaluation", err)
	}

	s.logger.Info("evaluation deleted", "evaluation_id", id, "deleted_by", actor.UserID)
	return nil
}

// Get returns an evaluation visible to the actor: same tenant, and either a
// party to it or a role that manages evaluations.
func (s *Service) Get(actor authz.Identity, id int64) (*evaluationDatamodel.Evaluation, error) {
	ev, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !actor.Scope().SameTenant(ev.CompanyID) {
		return nil, internal.ErrEvaluationNotFound
	}
	if ev.EvaluatorID != actor.UserID && ev.EvaluatedID != actor.UserID && !actor.IsManagerOrSupervisor() {
		return nil, internal.NewSoftDenyError("you cannot view this evaluation", "/evaluations", internal.ErrCodeUnauthorizedAccess)
	}
	return ev, nil
}

// List applies the per-role department narrowing over the evaluated user.
func (s *Service) List(actor authz.Identity) ([]*evaluationDatamodel.Evaluation, error) {
	filter := Filter{CompanyID: actor.CompanyID}

	switch {
	case actor.IsSuperuser:
		// no narrowing
	case actor.Role == authz.RoleManager:
		filter.EvaluatedDepartmentID = actor.DepartmentID
	case actor.Role == authz.RoleSupervisor:
		filter.EvaluatedDepartmentID = actor.DepartmentID
		filter.EvaluatedRoleName = string(authz.RoleWorker)
	default:
		evaluatedID := actor.UserID
		filter.EvaluatedID = &evaluatedID
	}

	return s.repo.List(filter)
}

// MyEvaluations is the JSON feed of evaluations received by the actor.
func (s *Service) MyEvaluations(actor authz.Identity) ([]*evaluationDatamodel.Evaluation, error) {
	evaluatedID := actor.UserID
	return s.repo.List(Filter{CompanyID: actor.CompanyID, EvaluatedID: &evaluatedID})
}

// History returns the audit trail for an evaluation the actor can see.
func (s *Service) History(actor authz.Identity, evaluationID int64) ([]*evaluationDatamodel.EvaluationHistory, error) {
	if _, err := s.Get(actor, evaluationID); err != nil {
		return nil, err
	}
	return s.repo.History(evaluationID)
}

// checkPairing resolves the evaluated user and the evaluation type from the
// actor's role, enforcing tenant and department boundaries.
func (s *Service) checkPairing(actor authz.Identity, evaluatedID int64) (*identityDatamodel.User, string, error) {
	evaluated, err := s.repo.GetUser(evaluatedID)
	if err != nil {
		return nil, "", internal.NewValidationFieldError("evaluated_id", "evaluated user not found", internal.ErrCodeValidationFailed)
	}
	if !actor.Scope().SameTenant(evaluated.CompanyID) {
		return nil, "", internal.NewCrossTenantError("evaluated_id")
	}

	evaluatedRole, err := s.repo.GetUserRoleName(evaluatedID)
	if err != nil {
		return nil, "", internal.NewInternalError("failed to resolve evaluated user's role", err)
	}

	var evalType string
	switch {
	case actor.IsSuperuser:
		// superusers take the pairing from the evaluated side
		switch evaluatedRole {
		case string(authz.RoleSupervisor):
			evalType = TypeSupervisorEval
		case string(authz.RoleWorker):
			evalType = TypeWorkerEval
		default:
			return nil, "", internal.NewValidationFieldError("evaluated_id", "only Supervisors and Workers can be evaluated", internal.ErrCodeRolePairing)
		}
	case actor.Role == authz.RoleManager:
		if evaluatedRole != string(authz.RoleSupervisor) {
			return nil, "", internal.NewValidationFieldError("evaluated_id", "as a Manager you may only evaluate Supervisors", internal.ErrCodeRolePairing)
		}
		evalType = TypeSupervisorEval
	case actor.Role == authz.RoleSupervisor:
		if evaluatedRole != string(authz.RoleWorker) {
			return nil, "", internal.NewValidationFieldError("evaluated_id", "as a Supervisor you may only evaluate Workers", internal.ErrCodeRolePairing)
		}
		evalType = TypeWorkerEval
	default:
		return nil, "", internal.NewSoftDenyError("you do not have permission to manage evaluations", "/", internal.ErrCodeUnauthorizedAccess)
	}

	if !actor.IsSuperuser && actor.DepartmentID != nil {
		if evaluated.DepartmentID == nil || *evaluated.DepartmentID != *actor.DepartmentID {
			return nil, "", internal.NewValidationFieldError("evaluated_id", "you may only evaluate users in your department", internal.ErrCodeDepartmentMismatch)
		}
	}

	return evaluated, evalType, nil
}

func (s *Service) canDelete(actor authz.Identity, ev *evaluationDatamodel.Evaluation) bool {
	if actor.IsSuperuser || ev.EvaluatorID == actor.UserID {
		return true
	}
	if actor.Role != authz.RoleManager {
		return false
	}
	// a Manager without a department oversees the whole company
	if actor.DepartmentID == nil {
		return true
	}
	evaluated, err := s.repo.GetUser(ev.EvaluatedID)
	if err != nil || evaluated.DepartmentID == nil {
		return false
	}
	return *evaluated.DepartmentID == *actor.DepartmentID
}

func diffRow(field, oldValue, newValue string, actorID int64) *evaluationDatamodel.EvaluationHistory {
	o, n := oldValue, newValue
	return &evaluationDatamodel.EvaluationHistory{
		Action:   ActionUpdated,
		Field:    field,
		OldValue: &o,
		NewValue: &n,
		ActorID:  &actorID,
	}
}
