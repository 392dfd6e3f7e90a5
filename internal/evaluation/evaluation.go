package evaluation

import (
	evaluationDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/evaluation"
	identityDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/identity"
)

// Evaluation types follow the role pairing: a Manager evaluates a
// Supervisor, a Supervisor evaluates a Worker.
const (
	TypeSupervisorEval = "SUPERVISOR_EVAL"
	TypeWorkerEval     = "WORKER_EVAL"
)

// Audit actions written to evaluation_history.
const (
	ActionCreated = "Created"
	ActionUpdated = "Updated"
	ActionDeleted = "Deleted"
)

// Filter narrows evaluation listings the same way task listings narrow:
// Managers by the evaluated user's department, Supervisors additionally by
// the evaluated user's role.
type Filter struct {
	CompanyID             int64
	EvaluatedDepartmentID *int64
	EvaluatedRoleName     string
	EvaluatedID           *int64
	EvaluatorID           *int64
}

// Repository defines the data access methods for evaluations. The
// WithHistory methods write the entity and its audit rows in one
// transaction; history rows survive evaluation deletion.
type Repository interface {
	CreateWithHistory(ev *evaluationDatamodel.Evaluation, history []*evaluationDatamodel.EvaluationHistory) error
	UpdateWithHistory(ev *evaluationDatamodel.Evaluation, history []*evaluationDatamodel.EvaluationHistory) error
	DeleteWithHistory(evaluationID int64, history *evaluationDatamodel.EvaluationHistory) error

	GetByID(id int64) (*evaluationDatamodel.Evaluation, error)
	List(filter Filter) ([]*evaluationDatamodel.Evaluation, error)
	History(evaluationID int64) ([]*evaluationDatamodel.EvaluationHistory, error)

	GetUser(id int64) (*identityDatamodel.User, error)
	GetUserRoleName(id int64) (string, error)
}
